package reconciler

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pdf-reconciliation-service/internal/models"
	apperrors "pdf-reconciliation-service/pkg/errors"
)

// LoadInvoices reads every PDF in the directory, sorted by filename so
// runs are deterministic. Unreadable files are skipped; the caller only
// gets an error when the directory itself cannot be read.
func LoadInvoices(dir string) ([]*models.SourceDocument, []*apperrors.ReconError, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, apperrors.FileError(apperrors.CodeDirectoryError, dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var docs []*models.SourceDocument
	var skipped []*apperrors.ReconError
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			skipped = append(skipped, apperrors.FileError(apperrors.CodeFilePermission, name, err))
			continue
		}
		docs = append(docs, models.NewSourceDocument(models.KindInvoice, name, data))
	}
	return docs, skipped, nil
}

// LoadProofFile reads the multi-page proof document.
func LoadProofFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.FileError(apperrors.CodeFileNotFound, path, err)
		}
		return nil, apperrors.FileError(apperrors.CodeFilePermission, path, err)
	}
	return data, nil
}
