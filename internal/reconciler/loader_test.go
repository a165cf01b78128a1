package reconciler

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "pdf-reconciliation-service/pkg/errors"
)

func TestLoadInvoices(t *testing.T) {
	tmpDir := t.TempDir()

	files := map[string][]byte{
		"b-invoice.pdf": []byte("%PDF-b"),
		"a-invoice.PDF": []byte("%PDF-a"),
		"notes.txt":     []byte("not a pdf"),
		"report.csv":    []byte("still not a pdf"),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, name), data, 0644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(tmpDir, "nested.pdf"), 0755); err != nil {
		t.Fatalf("failed to create subdirectory: %v", err)
	}

	docs, skipped, err := LoadInvoices(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("expected no skipped files, got %d", len(skipped))
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	// Sorted by filename, extension matched case-insensitively
	if docs[0].Origin != "a-invoice.PDF" {
		t.Errorf("expected first document 'a-invoice.PDF', got '%s'", docs[0].Origin)
	}
	if docs[1].Origin != "b-invoice.pdf" {
		t.Errorf("expected second document 'b-invoice.pdf', got '%s'", docs[1].Origin)
	}
	if string(docs[1].Data) != "%PDF-b" {
		t.Errorf("document data not loaded: %q", docs[1].Data)
	}
}

func TestLoadInvoicesMissingDirectory(t *testing.T) {
	_, _, err := LoadInvoices(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}

	reconErr, ok := apperrors.AsReconError(err)
	if !ok {
		t.Fatalf("expected a categorized error, got %T", err)
	}
	if reconErr.Code != apperrors.CodeDirectoryError {
		t.Errorf("expected code %s, got %s", apperrors.CodeDirectoryError, reconErr.Code)
	}
}

func TestLoadProofFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "proofs.pdf")
	if err := os.WriteFile(path, []byte("%PDF-proof"), 0644); err != nil {
		t.Fatalf("failed to create proof file: %v", err)
	}

	data, err := LoadProofFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "%PDF-proof" {
		t.Errorf("proof data not loaded: %q", data)
	}
}

func TestLoadProofFileNotFound(t *testing.T) {
	_, err := LoadProofFile(filepath.Join(t.TempDir(), "missing.pdf"))
	if err == nil {
		t.Fatal("expected error for missing proof file")
	}

	reconErr, ok := apperrors.AsReconError(err)
	if !ok {
		t.Fatalf("expected a categorized error, got %T", err)
	}
	if reconErr.Code != apperrors.CodeFileNotFound {
		t.Errorf("expected code %s, got %s", apperrors.CodeFileNotFound, reconErr.Code)
	}
}
