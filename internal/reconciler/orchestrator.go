// Package reconciler orchestrates a full run: ingest the proof pages,
// ingest and extract the invoices, pair them through the matching funnel
// and build the output archive. Documents are processed sequentially;
// extraction failures degrade the affected document, never the run. The
// only fatal input condition is a proof file that cannot be opened at all.
package reconciler

import (
	"context"
	"fmt"

	"pdf-reconciliation-service/internal/bundle"
	"pdf-reconciliation-service/internal/extractor"
	"pdf-reconciliation-service/internal/matcher"
	"pdf-reconciliation-service/internal/models"
	"pdf-reconciliation-service/internal/pdfops"
	"pdf-reconciliation-service/internal/pool"
	apperrors "pdf-reconciliation-service/pkg/errors"
	"pdf-reconciliation-service/pkg/logger"
)

// Phase names the stage a run is in.
type Phase string

const (
	PhaseIngestProofs   Phase = "INGEST_PROOFS"
	PhaseIngestInvoices Phase = "INGEST_INVOICES_AND_EXTRACT"
	PhaseMatch          Phase = "MATCH"
	PhaseBuildOutput    Phase = "BUILD_OUTPUT"
	PhaseDone           Phase = "DONE"
	PhaseFailed         Phase = "FAILED"
)

// Result is the outcome of a successful run.
type Result struct {
	Archive           *bundle.Archive
	Summary           *models.Summary
	Pairings          []models.Pairing
	UnmatchedInvoices []*models.ExtractedRecord
	UnusedProofs      []*models.ExtractedRecord
}

// Orchestrator drives one reconciliation session at a time.
type Orchestrator struct {
	engine   pdfops.Engine
	pipeline *extractor.Pipeline
	funnel   *matcher.Funnel
	builder  *bundle.Builder
	sink     Sink
	log      logger.Logger
}

// New creates an orchestrator. A nil sink discards events.
func New(engine pdfops.Engine, pipeline *extractor.Pipeline, funnel *matcher.Funnel, builder *bundle.Builder, sink Sink) *Orchestrator {
	if sink == nil {
		sink = NopSink
	}
	return &Orchestrator{
		engine:   engine,
		pipeline: pipeline,
		funnel:   funnel,
		builder:  builder,
		sink:     sink,
		log:      logger.GetGlobalLogger().WithComponent("orchestrator"),
	}
}

// Run processes the invoice documents against the multi-page proof file.
func (o *Orchestrator) Run(ctx context.Context, invoiceDocs []*models.SourceDocument, proofFile []byte) (*Result, error) {
	op := logger.NewOperationLogger("reconciliation", o.log)

	proofs, err := o.ingestProofs(ctx, proofFile)
	if err != nil {
		return nil, o.fail(op, err)
	}
	op.Step(string(PhaseIngestProofs))

	invoices, err := o.ingestInvoices(ctx, invoiceDocs)
	if err != nil {
		return nil, o.fail(op, err)
	}
	op.Step(string(PhaseIngestInvoices))

	o.enterPhase(PhaseMatch)
	pairings := o.funnel.Run(invoices, proofs)
	op.Step(string(PhaseMatch))

	o.enterPhase(PhaseBuildOutput)
	archive, err := o.builder.Build(invoices.Records(), pairings)
	if err != nil {
		return nil, o.fail(op, apperrors.WrapIfNeeded(err,
			apperrors.CategoryBundle, apperrors.CodeArchiveFailed, "failed to build output archive"))
	}
	op.Step(string(PhaseBuildOutput))

	result := &Result{
		Archive:           archive,
		Summary:           o.summarize(invoices, proofs, pairings),
		Pairings:          pairings,
		UnmatchedInvoices: invoices.Unused(),
		UnusedProofs:      proofs.Unused(),
	}

	o.enterPhase(PhaseDone)
	o.sink.Emit(Event{
		Type:    EventDone,
		Message: "reconciliation finished",
		Data: map[string]interface{}{
			"archive":       archive.Name,
			"totalInvoices": result.Summary.TotalInvoices,
			"totalProofs":   result.Summary.TotalProofs,
			"matched":       result.Summary.Matched,
			"unmatched":     result.Summary.Unmatched,
			"unusedProofs":  result.Summary.UnusedProofs,
		},
	})
	op.Success("Reconciliation completed")
	return result, nil
}

// ingestProofs splits the proof file into pages and extracts each one.
// An unreadable proof file is the run's only fatal input error.
func (o *Orchestrator) ingestProofs(ctx context.Context, proofFile []byte) (*pool.Pool, error) {
	o.enterPhase(PhaseIngestProofs)

	count, err := o.engine.PageCount(proofFile)
	if err != nil {
		return nil, apperrors.ExtractionError(apperrors.CodeUnreadablePDF, "proof file", err)
	}

	proofs := pool.New(models.KindProof)
	tracker := logger.NewDocumentTracker("ingest_proofs", int64(count), o.log)

	for page := 1; page <= count; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		origin := fmt.Sprintf("page %d", page)
		pageData, err := o.engine.ExtractPage(proofFile, page)
		if err != nil {
			o.log.WithError(err).WithField("page", page).Warn("Skipping unsplittable proof page")
			o.emitPageStatus(page, nil)
			tracker.Advance(origin, false)
			continue
		}

		doc := models.NewSourceDocument(models.KindProof, origin, pageData)
		rec, err := o.pipeline.Extract(ctx, doc)
		if err != nil {
			return nil, err
		}
		if addErr := proofs.Add(rec); addErr != nil {
			return nil, apperrors.InternalError(apperrors.CodeUnexpectedError, "proof ingestion", addErr)
		}

		o.emitPageStatus(page, rec)
		tracker.Advance(origin, rec.Complete())
	}

	tracker.Complete()
	return proofs, nil
}

// ingestInvoices extracts every invoice document into the invoice pool.
func (o *Orchestrator) ingestInvoices(ctx context.Context, docs []*models.SourceDocument) (*pool.Pool, error) {
	o.enterPhase(PhaseIngestInvoices)

	invoices := pool.New(models.KindInvoice)
	tracker := logger.NewDocumentTracker("ingest_invoices", int64(len(docs)), o.log)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		o.sink.Emit(Event{
			Type: EventItemStarted,
			Data: map[string]interface{}{"document": doc.Origin},
		})

		rec, err := o.pipeline.Extract(ctx, doc)
		if err != nil {
			return nil, err
		}
		if addErr := invoices.Add(rec); addErr != nil {
			return nil, apperrors.InternalError(apperrors.CodeUnexpectedError, "invoice ingestion", addErr)
		}

		o.sink.Emit(Event{
			Type: EventItemFinished,
			Data: map[string]interface{}{
				"document": doc.Origin,
				"complete": rec.Complete(),
				"tier":     rec.Tier.String(),
			},
		})
		tracker.Advance(doc.Origin, rec.Complete())
	}

	tracker.Complete()
	return invoices, nil
}

func (o *Orchestrator) summarize(invoices, proofs *pool.Pool, pairings []models.Pairing) *models.Summary {
	summary := models.NewSummary()
	summary.TotalInvoices = invoices.Len()
	summary.TotalProofs = proofs.Len()
	for _, p := range pairings {
		summary.Record(p)
	}
	summary.Unmatched = invoices.UnusedCount()
	summary.UnusedProofs = proofs.UnusedCount()
	return summary
}

func (o *Orchestrator) enterPhase(phase Phase) {
	o.log.WithField("phase", string(phase)).Info("Entering phase")
	o.sink.Emit(Event{
		Type:    EventLog,
		Message: "entering phase",
		Data:    map[string]interface{}{"phase": string(phase)},
	})
}

func (o *Orchestrator) emitPageStatus(page int, rec *models.ExtractedRecord) {
	data := map[string]interface{}{
		"page":     page,
		"complete": false,
		"tier":     models.TierNone.String(),
	}
	if rec != nil {
		data["complete"] = rec.Complete()
		data["tier"] = rec.Tier.String()
	}
	o.sink.Emit(Event{Type: EventPageStatus, Data: data})
}

// fail transitions to the failed phase, emits the terminal error event
// and passes the error through.
func (o *Orchestrator) fail(op *logger.OperationLogger, err error) error {
	o.enterPhase(PhaseFailed)
	o.sink.Emit(Event{
		Type:    EventError,
		Message: err.Error(),
	})
	op.Error(err, "Reconciliation failed")
	return err
}
