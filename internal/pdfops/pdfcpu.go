package pdfops

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"pdf-reconciliation-service/pkg/logger"
)

// minRenderWidth is the narrowest raster that still OCRs reliably.
// Narrower renders are upscaled before recognition.
const minRenderWidth = 1200

// engine is the production Engine backed by pdfcpu for page surgery,
// ledongthuc/pdf for text layers and go-fitz for rasterization.
type engine struct {
	conf *model.Configuration
	log  logger.Logger
}

// NewEngine creates the production PDF engine.
func NewEngine() Engine {
	conf := model.NewDefaultConfiguration()
	// Real-world bank PDFs routinely fail strict validation.
	conf.ValidationMode = model.ValidationRelaxed

	return &engine{
		conf: conf,
		log:  logger.GetGlobalLogger().WithComponent("pdf_engine"),
	}
}

func (e *engine) PageCount(data []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(data), e.conf)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return count, nil
}

func (e *engine) ExtractPage(data []byte, page int) ([]byte, error) {
	count, err := e.PageCount(data)
	if err != nil {
		return nil, err
	}
	if page < 1 || page > count {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, count)
	}

	var out bytes.Buffer
	selected := []string{strconv.Itoa(page)}
	if err := api.Trim(bytes.NewReader(data), &out, selected, e.conf); err != nil {
		return nil, fmt.Errorf("failed to extract page %d: %w", page, err)
	}
	return out.Bytes(), nil
}

func (e *engine) Merge(docs ...[]byte) ([]byte, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("nothing to merge")
	}
	if len(docs) == 1 {
		return docs[0], nil
	}

	readers := make([]io.ReadSeeker, len(docs))
	for i, doc := range docs {
		readers[i] = bytes.NewReader(doc)
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, e.conf); err != nil {
		return nil, fmt.Errorf("failed to merge %d documents: %w", len(docs), err)
	}
	return out.Bytes(), nil
}

func (e *engine) PageText(data []byte, page int) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open document for text extraction: %w", err)
	}
	if page < 1 || page > reader.NumPage() {
		return "", fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, reader.NumPage())
	}

	p := reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		// A page without a decodable text layer is not an error for the
		// caller; the next extraction tier handles it.
		e.log.WithError(err).WithField("page", page).Debug("Text layer not decodable")
		return "", nil
	}
	return text, nil
}

func (e *engine) DocumentText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open document for text extraction: %w", err)
	}

	var sb strings.Builder
	for page := 1; page <= reader.NumPage(); page++ {
		p := reader.Page(page)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (e *engine) RenderPage(data []byte, page int, dpi int) ([]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open document for rendering: %w", err)
	}
	defer doc.Close()

	if page < 1 || page > doc.NumPage() {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, doc.NumPage())
	}

	img, err := doc.ImageDPI(page-1, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, upscale(img), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode rendered page: %w", err)
	}
	return out.Bytes(), nil
}

// upscale widens small renders so OCR has enough pixels to work with.
func upscale(img image.Image) image.Image {
	if img.Bounds().Dx() >= minRenderWidth {
		return img
	}
	return imaging.Resize(img, minRenderWidth, 0, imaging.Lanczos)
}
