// Package pdfops wraps the PDF toolkits behind narrow interfaces so the
// extraction pipeline and the bundle builder can run against fakes in tests.
package pdfops

import "errors"

// ErrPageOutOfRange is returned when a requested page does not exist.
var ErrPageOutOfRange = errors.New("page out of range")

// Engine provides the page-level PDF operations the pipeline needs.
// Page numbers are 1-based throughout.
type Engine interface {
	// PageCount returns the number of pages in the document.
	PageCount(data []byte) (int, error)

	// ExtractPage returns a single page as a standalone PDF document.
	ExtractPage(data []byte, page int) ([]byte, error)

	// Merge concatenates the given documents into one PDF, in order.
	Merge(docs ...[]byte) ([]byte, error)

	// PageText returns the text layer of one page. An empty string with a
	// nil error means the page has no extractable text.
	PageText(data []byte, page int) (string, error)

	// DocumentText returns the text layer of the whole document.
	DocumentText(data []byte) (string, error)

	// RenderPage rasterizes one page to a PNG image at the given DPI.
	RenderPage(data []byte, page int, dpi int) ([]byte, error)
}

// OCRClient recognizes text in a rendered page image.
type OCRClient interface {
	// Recognize returns the text found in a PNG or JPEG image.
	Recognize(image []byte) (string, error)

	// Close releases the underlying OCR resources.
	Close() error
}
