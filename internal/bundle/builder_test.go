package bundle

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"pdf-reconciliation-service/internal/models"
)

// fakeEngine concatenates documents and can be told to fail.
type fakeEngine struct {
	mergeErr  error
	failAfter int // fail on merges after this many successes; 0 means use mergeErr always
	merges    int
}

func (f *fakeEngine) PageCount(data []byte) (int, error)                { return 1, nil }
func (f *fakeEngine) ExtractPage(data []byte, page int) ([]byte, error) { return data, nil }
func (f *fakeEngine) PageText(data []byte, page int) (string, error)    { return "", nil }
func (f *fakeEngine) DocumentText(data []byte) (string, error)          { return "", nil }
func (f *fakeEngine) RenderPage(data []byte, page int, dpi int) ([]byte, error) {
	return nil, nil
}

func (f *fakeEngine) Merge(docs ...[]byte) ([]byte, error) {
	f.merges++
	if f.mergeErr != nil && f.merges > f.failAfter {
		return nil, f.mergeErr
	}
	var out []byte
	for _, d := range docs {
		out = append(out, d...)
	}
	return out, nil
}

func invoiceRecord(name string) *models.ExtractedRecord {
	return models.NewExtractedRecord(
		models.NewSourceDocument(models.KindInvoice, name, []byte("INV:"+name+";")))
}

func pairing(invoice *models.ExtractedRecord) models.Pairing {
	proof := models.NewExtractedRecord(
		models.NewSourceDocument(models.KindProof, "page 1", []byte("PROOF")))
	return models.NewPairing(invoice, proof, models.MethodCodeExact)
}

func readEntry(t *testing.T, data []byte, name string) []byte {
	t.Helper()

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("archive is not a valid zip: %v", err)
	}
	for _, f := range reader.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open entry %s: %v", name, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("failed to read entry %s: %v", name, err)
		}
		return content
	}
	t.Fatalf("entry %s not found in archive", name)
	return nil
}

func TestBuildArchive(t *testing.T) {
	builder := NewBuilder(&fakeEngine{})

	acme := invoiceRecord("acme.pdf")
	globex := invoiceRecord("globex.pdf")

	archive, err := builder.Build(
		[]*models.ExtractedRecord{acme, globex},
		[]models.Pairing{pairing(acme), pairing(globex)},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(archive.Name, "Reconciliation_") || !strings.HasSuffix(archive.Name, ".zip") {
		t.Errorf("unexpected archive name %q", archive.Name)
	}
	if len(archive.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(archive.Entries))
	}

	content := readEntry(t, archive.Data, "acme.pdf")
	if string(content) != "INV:acme.pdf;PROOF" {
		t.Errorf("entry content = %q, want invoice followed by proof", content)
	}
}

func TestBuildIncludesUnmatchedInvoices(t *testing.T) {
	builder := NewBuilder(&fakeEngine{})

	matched := invoiceRecord("matched.pdf")
	unmatched := invoiceRecord("unmatched.pdf")

	archive, err := builder.Build(
		[]*models.ExtractedRecord{matched, unmatched},
		[]models.Pairing{pairing(matched)},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(archive.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(archive.Entries))
	}

	// Unmatched invoices go in alone, without a proof page.
	content := readEntry(t, archive.Data, "unmatched.pdf")
	if string(content) != "INV:unmatched.pdf;" {
		t.Errorf("unmatched entry content = %q, want the invoice alone", content)
	}
	content = readEntry(t, archive.Data, "matched.pdf")
	if string(content) != "INV:matched.pdf;PROOF" {
		t.Errorf("matched entry content = %q, want invoice followed by proof", content)
	}
}

func TestBuildFailedMergeBundlesInvoiceAlone(t *testing.T) {
	engine := &fakeEngine{mergeErr: errors.New("corrupt page tree"), failAfter: 1}
	builder := NewBuilder(engine)

	good := invoiceRecord("good.pdf")
	bad := invoiceRecord("bad.pdf")

	archive, err := builder.Build(
		[]*models.ExtractedRecord{good, bad},
		[]models.Pairing{pairing(good), pairing(bad)},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(archive.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(archive.Entries))
	}
	if len(archive.Skipped) != 1 || archive.Skipped[0] != "bad.pdf" {
		t.Errorf("expected bad.pdf skipped, got %v", archive.Skipped)
	}

	// The failed merge degrades to the invoice by itself.
	content := readEntry(t, archive.Data, "bad.pdf")
	if string(content) != "INV:bad.pdf;" {
		t.Errorf("skipped entry content = %q, want the invoice alone", content)
	}
}

func TestBuildEmptyInvoices(t *testing.T) {
	builder := NewBuilder(&fakeEngine{})

	archive, err := builder.Build(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(archive.Entries) != 0 {
		t.Errorf("expected empty archive, got %v", archive.Entries)
	}

	// Still a readable zip.
	if _, err := zip.NewReader(bytes.NewReader(archive.Data), int64(len(archive.Data))); err != nil {
		t.Errorf("empty archive is not a valid zip: %v", err)
	}
}

func TestEntryNameNormalization(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{"acme.pdf", "acme.pdf"},
		{"acme.PDF", "acme.pdf"},
		{"reports/july/acme.pdf", "acme.pdf"},
		{"no-extension", "no-extension.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			if got := entryName(tt.origin); got != tt.want {
				t.Errorf("entryName(%q) = %q, want %q", tt.origin, got, tt.want)
			}
		})
	}
}
