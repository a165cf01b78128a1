package extractor

import (
	"context"

	"pdf-reconciliation-service/internal/models"
	"pdf-reconciliation-service/internal/pdfops"
	"pdf-reconciliation-service/pkg/logger"
)

// Pipeline runs the extraction tiers in order against one document,
// stopping as soon as both amount and reference code are known. Tier
// failures are logged and skipped; extraction is best effort per document.
type Pipeline struct {
	tiers []Tier
	cache *Cache
	log   logger.Logger
}

// NewPipeline creates a pipeline over the given tiers. The cache is
// optional; pass nil to disable caching.
func NewPipeline(tiers []Tier, cache *Cache) *Pipeline {
	return &Pipeline{
		tiers: tiers,
		cache: cache,
		log:   logger.GetGlobalLogger().WithComponent("extraction_pipeline"),
	}
}

// DefaultTiers assembles the standard tier order. The OCR and vision
// tiers are skipped when their clients are nil.
func DefaultTiers(engine pdfops.Engine, ocr pdfops.OCRClient, vision VisionClient) []Tier {
	tiers := []Tier{NewTextTier(engine)}
	if ocr != nil {
		tiers = append(tiers, NewOCRTier(engine, ocr))
	}
	if vision != nil {
		tiers = append(tiers, NewVisionTier(engine, vision))
	}
	return append(tiers, NewFilenameTier())
}

// Extract produces a record for the document. The returned record may be
// incomplete; it is never nil. The error is non-nil only when the context
// is canceled.
func (p *Pipeline) Extract(ctx context.Context, doc *models.SourceDocument) (*models.ExtractedRecord, error) {
	rec := models.NewExtractedRecord(doc)

	hash := ContentHash(doc.Data)
	if cached := p.lookup(hash); cached != nil {
		rec.Amount = cached.Amount
		rec.ReferenceCode = cached.ReferenceCode
		rec.EntityName = cached.EntityName
		rec.Tier = cached.Tier
		p.log.WithFields(logger.Fields{
			"document": doc.Origin,
			"tier":     rec.Tier.String(),
		}).Debug("Extraction served from cache")
		return rec, nil
	}

	for _, tier := range p.tiers {
		if err := ctx.Err(); err != nil {
			return rec, err
		}

		if err := tier.Extract(ctx, doc, rec); err != nil {
			if ctx.Err() != nil {
				return rec, ctx.Err()
			}
			p.log.WithError(err).WithFields(logger.Fields{
				"document": doc.Origin,
				"tier":     tier.Name().String(),
			}).Warn("Extraction tier failed, trying next")
			continue
		}

		if rec.Complete() {
			break
		}
	}

	p.log.WithFields(logger.Fields{
		"document":   doc.Origin,
		"tier":       rec.Tier.String(),
		"amount":     rec.Amount.String(),
		"has_code":   rec.HasCode(),
		"has_entity": rec.EntityName != "",
	}).Debug("Extraction finished")

	p.store(hash, rec)
	return rec, nil
}

// lookup is fail-soft: cache errors degrade to misses.
func (p *Pipeline) lookup(hash string) *models.ExtractedRecord {
	if p.cache == nil {
		return nil
	}
	cached, err := p.cache.Get(hash)
	if err != nil {
		p.log.WithError(err).Warn("Cache lookup failed, extracting fresh")
		return nil
	}
	return cached
}

// store is fail-soft: a failed write costs a future cache miss, nothing
// more. Records with no usable fields are not cached so a later run with
// better tiers can retry them.
func (p *Pipeline) store(hash string, rec *models.ExtractedRecord) {
	if p.cache == nil || rec.Tier == models.TierNone {
		return
	}
	if err := p.cache.Put(hash, rec); err != nil {
		p.log.WithError(err).Warn("Cache store failed")
	}
}
