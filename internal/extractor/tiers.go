// Package extractor derives structured records from PDF documents through
// a tiered pipeline: the cheap text layer first, then OCR, then the vision
// service, then the origin label as a final hint. Later tiers only fill
// fields the earlier tiers left empty.
package extractor

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"pdf-reconciliation-service/internal/models"
	"pdf-reconciliation-service/internal/normalize"
	"pdf-reconciliation-service/internal/pdfops"
)

// Tier is one extraction strategy. Extract fills missing fields on the
// record in place and must not clear fields set by earlier tiers.
type Tier interface {
	Name() models.ExtractionTier
	Extract(ctx context.Context, doc *models.SourceDocument, rec *models.ExtractedRecord) error
}

// applyFields merges parsed values into the record, filling gaps only.
// It reports whether any field was newly filled.
func applyFields(rec *models.ExtractedRecord, tier models.ExtractionTier, amount decimal.Decimal, code, entity string) bool {
	filled := false

	if !rec.HasAmount() && amount.IsPositive() {
		rec.Amount = amount
		filled = true
	}
	if !rec.HasCode() && code != "" {
		if normalized := normalize.Code(code); normalized != "" {
			rec.ReferenceCode = normalized
			filled = true
		}
	}
	if rec.EntityName == "" && entity != "" {
		rec.EntityName = entity
		filled = true
	}

	if filled {
		rec.Tier = tier
	}
	return filled
}

// textTier reads the PDF's embedded text layer.
type textTier struct {
	engine pdfops.Engine
}

// NewTextTier creates the text-layer extraction tier.
func NewTextTier(engine pdfops.Engine) Tier {
	return &textTier{engine: engine}
}

func (t *textTier) Name() models.ExtractionTier {
	return models.TierTextLayer
}

func (t *textTier) Extract(ctx context.Context, doc *models.SourceDocument, rec *models.ExtractedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text, err := t.engine.DocumentText(doc.Data)
	if err != nil {
		return fmt.Errorf("text layer extraction failed: %w", err)
	}
	if text == "" {
		return nil
	}

	applyFields(rec, models.TierTextLayer,
		amountFrom(text), codeFrom(text), entityFrom(text))
	return nil
}

// ocrDPI is the render resolution for OCR; below 300 tesseract accuracy
// drops sharply on bank layouts.
const ocrDPI = 300

// maxOCRPages bounds how many pages are rasterized per document.
const maxOCRPages = 3

// ocrTier rasterizes pages and runs them through OCR.
type ocrTier struct {
	engine pdfops.Engine
	ocr    pdfops.OCRClient
}

// NewOCRTier creates the OCR extraction tier.
func NewOCRTier(engine pdfops.Engine, ocr pdfops.OCRClient) Tier {
	return &ocrTier{engine: engine, ocr: ocr}
}

func (t *ocrTier) Name() models.ExtractionTier {
	return models.TierOCR
}

func (t *ocrTier) Extract(ctx context.Context, doc *models.SourceDocument, rec *models.ExtractedRecord) error {
	count, err := t.engine.PageCount(doc.Data)
	if err != nil {
		return fmt.Errorf("OCR page count failed: %w", err)
	}
	if count > maxOCRPages {
		count = maxOCRPages
	}

	for page := 1; page <= count; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		img, err := t.engine.RenderPage(doc.Data, page, ocrDPI)
		if err != nil {
			return fmt.Errorf("OCR render failed on page %d: %w", page, err)
		}
		text, err := t.ocr.Recognize(img)
		if err != nil {
			return fmt.Errorf("OCR recognition failed on page %d: %w", page, err)
		}

		applyFields(rec, models.TierOCR,
			amountFrom(text), codeFrom(text), entityFrom(text))
		if rec.Complete() {
			break
		}
	}
	return nil
}

// filenameTier parses a monetary amount out of the document's origin
// label. It is the weakest tier and only ever supplies an amount.
type filenameTier struct{}

// NewFilenameTier creates the origin-label extraction tier.
func NewFilenameTier() Tier {
	return &filenameTier{}
}

func (t *filenameTier) Name() models.ExtractionTier {
	return models.TierFilename
}

func (t *filenameTier) Extract(ctx context.Context, doc *models.SourceDocument, rec *models.ExtractedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.HasAmount() {
		return nil
	}

	amount := amountFrom(doc.Origin)
	if !amount.IsPositive() {
		return nil
	}
	applyFields(rec, models.TierFilename, amount, "", "")
	return nil
}
