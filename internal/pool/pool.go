// Package pool holds the mutable collections of extracted records the
// matching funnel consumes. A pool owns its records exclusively; the used
// flag on a record is only ever set through MarkUsed, and once set it stays
// set for the lifetime of the session.
package pool

import (
	"fmt"

	"pdf-reconciliation-service/internal/models"
)

// Pool is a collection of ExtractedRecords of one document kind. It is not
// safe for concurrent use; the funnel mutates it from a single goroutine.
type Pool struct {
	kind    models.DocumentKind
	records []*models.ExtractedRecord
}

// New creates an empty pool for the given document kind.
func New(kind models.DocumentKind) *Pool {
	return &Pool{kind: kind}
}

// Kind returns the document kind this pool holds.
func (p *Pool) Kind() models.DocumentKind {
	return p.kind
}

// Add appends a record to the pool, preserving ingestion order. It returns
// an error when the record's document kind does not match the pool's.
func (p *Pool) Add(rec *models.ExtractedRecord) error {
	if rec == nil || rec.Source == nil {
		return fmt.Errorf("cannot add nil record to %s pool", p.kind)
	}
	if rec.Source.Kind != p.kind {
		return fmt.Errorf("cannot add %s record to %s pool", rec.Source.Kind, p.kind)
	}
	p.records = append(p.records, rec)
	return nil
}

// Len returns the total number of records, used or not.
func (p *Pool) Len() int {
	return len(p.records)
}

// Records returns all records in ingestion order. Callers must not mutate
// the used flag directly; pairing goes through MarkUsed.
func (p *Pool) Records() []*models.ExtractedRecord {
	return p.records
}

// Unused returns the records not yet consumed by a pairing, in ingestion
// order.
func (p *Pool) Unused() []*models.ExtractedRecord {
	var out []*models.ExtractedRecord
	for _, r := range p.records {
		if !r.Used() {
			out = append(out, r)
		}
	}
	return out
}

// UnusedCount returns how many records are still available for matching.
func (p *Pool) UnusedCount() int {
	n := 0
	for _, r := range p.records {
		if !r.Used() {
			n++
		}
	}
	return n
}

// FindUnused returns the first unused record satisfying pred, scanning in
// ingestion order, or nil when none qualifies. The record is not marked
// used; the caller pairs it explicitly via MarkUsed.
func (p *Pool) FindUnused(pred func(*models.ExtractedRecord) bool) *models.ExtractedRecord {
	for _, r := range p.records {
		if r.Used() {
			continue
		}
		if pred(r) {
			return r
		}
	}
	return nil
}

// FilterUnused returns every unused record satisfying pred, in ingestion
// order.
func (p *Pool) FilterUnused(pred func(*models.ExtractedRecord) bool) []*models.ExtractedRecord {
	var out []*models.ExtractedRecord
	for _, r := range p.records {
		if r.Used() {
			continue
		}
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// MarkUsed consumes a record. It returns false when the record was already
// used, which callers treat as "candidate lost, keep scanning". That return
// value is what preserves the at-most-one-use invariant across passes.
func (p *Pool) MarkUsed(rec *models.ExtractedRecord) bool {
	if rec == nil {
		return false
	}
	return rec.MarkUsed()
}
