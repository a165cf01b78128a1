// Package bundle assembles the output archive: one PDF per invoice, the
// invoice pages followed by the matched proof page when there is one.
package bundle

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"pdf-reconciliation-service/internal/models"
	"pdf-reconciliation-service/internal/pdfops"
	"pdf-reconciliation-service/pkg/logger"
)

// Archive is the finished output bundle.
type Archive struct {
	// Name is the download filename, unique per run.
	Name string
	// Data is the zip file contents.
	Data []byte
	// Entries lists the documents inside the archive, one per invoice.
	Entries []string
	// Skipped lists matched invoices whose merge failed; their entry
	// holds the invoice alone and their pairing still counts as matched.
	Skipped []string
}

// Builder merges matched document pairs and packs them into a zip.
type Builder struct {
	engine pdfops.Engine
	log    logger.Logger
}

// NewBuilder creates a bundle builder on top of the given PDF engine.
func NewBuilder(engine pdfops.Engine) *Builder {
	return &Builder{
		engine: engine,
		log:    logger.GetGlobalLogger().WithComponent("bundle_builder"),
	}
}

// Build produces the archive with one entry per invoice, matched or not.
// A matched invoice is merged with its proof page; when the merge fails
// the invoice goes in alone and the build continues. Entry names come
// from the invoice filenames and are not deduplicated; only a zip-level
// failure aborts.
func (b *Builder) Build(invoices []*models.ExtractedRecord, pairings []models.Pairing) (*Archive, error) {
	archive := &Archive{Name: archiveName()}

	proofFor := make(map[*models.ExtractedRecord]*models.ExtractedRecord, len(pairings))
	for _, pairing := range pairings {
		proofFor[pairing.Invoice] = pairing.Proof
	}

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	for _, invoice := range invoices {
		entry := entryName(invoice.Origin())
		data := invoice.Source.Data

		if proof, ok := proofFor[invoice]; ok {
			merged, err := b.engine.Merge(invoice.Source.Data, proof.Source.Data)
			if err != nil {
				b.log.WithError(err).WithField("entry", entry).
					Warn("Merge failed, bundling invoice without its proof")
				archive.Skipped = append(archive.Skipped, entry)
			} else {
				data = merged
			}
		}

		w, err := writer.Create(entry)
		if err != nil {
			writer.Close()
			return nil, fmt.Errorf("failed to create archive entry %s: %w", entry, err)
		}
		if _, err := w.Write(data); err != nil {
			writer.Close()
			return nil, fmt.Errorf("failed to write archive entry %s: %w", entry, err)
		}
		archive.Entries = append(archive.Entries, entry)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	archive.Data = buf.Bytes()
	b.log.WithFields(logger.Fields{
		"archive": archive.Name,
		"entries": len(archive.Entries),
		"skipped": len(archive.Skipped),
	}).Info("Archive built")
	return archive, nil
}

// archiveName returns a per-run unique download name.
func archiveName() string {
	return fmt.Sprintf("Reconciliation_%s.zip", uuid.New().String()[:8])
}

// entryName derives a .pdf entry name from the invoice origin. Duplicate
// filenames produce duplicate entries; keeping inputs distinct is the
// caller's responsibility.
func entryName(origin string) string {
	name := path.Base(strings.ReplaceAll(origin, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = "invoice"
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if !strings.EqualFold(ext, ".pdf") {
		stem = name
	}
	return stem + ".pdf"
}
