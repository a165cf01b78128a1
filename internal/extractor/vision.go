package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/googleapi"

	"pdf-reconciliation-service/internal/models"
	"pdf-reconciliation-service/internal/normalize"
	"pdf-reconciliation-service/internal/pdfops"
	"pdf-reconciliation-service/pkg/logger"
)

// VisionFields is the structured answer expected from the vision service.
type VisionFields struct {
	Amount        string `json:"amount"`
	ReferenceCode string `json:"reference_code"`
	EntityName    string `json:"entity_name"`
}

// VisionClient asks an external document-understanding service to read a
// rendered page.
type VisionClient interface {
	ExtractFields(ctx context.Context, png []byte) (*VisionFields, error)
}

const (
	// visionDPI keeps the upload small; the service reads layouts fine at
	// screen resolution.
	visionDPI = 150

	// maxVisionRetries bounds retries on throttled requests.
	maxVisionRetries = 3
)

// visionRetryBaseDelay is the first backoff step. Variable so tests run
// without real sleeps.
var visionRetryBaseDelay = 2 * time.Second

// visionTier renders the first page and sends it to the vision service.
type visionTier struct {
	engine pdfops.Engine
	client VisionClient
	log    logger.Logger
}

// NewVisionTier creates the vision extraction tier.
func NewVisionTier(engine pdfops.Engine, client VisionClient) Tier {
	return &visionTier{
		engine: engine,
		client: client,
		log:    logger.GetGlobalLogger().WithComponent("vision_tier"),
	}
}

func (t *visionTier) Name() models.ExtractionTier {
	return models.TierAIVision
}

func (t *visionTier) Extract(ctx context.Context, doc *models.SourceDocument, rec *models.ExtractedRecord) error {
	img, err := t.engine.RenderPage(doc.Data, 1, visionDPI)
	if err != nil {
		return fmt.Errorf("vision render failed: %w", err)
	}

	fields, err := t.callWithRetry(ctx, img)
	if err != nil {
		return err
	}
	if fields == nil {
		return nil
	}

	applyFields(rec, models.TierAIVision,
		normalize.Amount(fields.Amount),
		fields.ReferenceCode,
		normalize.EntityName(fields.EntityName))
	return nil
}

// callWithRetry retries throttled requests with exponential backoff.
// Other failures are returned immediately; the document is skipped, not
// the run.
func (t *visionTier) callWithRetry(ctx context.Context, img []byte) (*VisionFields, error) {
	var lastErr error

	for attempt := 0; attempt <= maxVisionRetries; attempt++ {
		if attempt > 0 {
			delay := visionRetryBaseDelay * time.Duration(1<<(attempt-1))
			t.log.WithFields(logger.Fields{
				"attempt": attempt,
				"delay":   delay.String(),
			}).Warn("Vision service throttled, backing off")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		fields, err := t.client.ExtractFields(ctx, img)
		if err == nil {
			return fields, nil
		}
		if !isThrottled(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("vision service still throttled after %d retries: %w", maxVisionRetries, lastErr)
}

// isThrottled reports whether the error is a rate-limit or transient
// overload response worth retrying.
func isThrottled(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code == 503
	}
	return false
}
