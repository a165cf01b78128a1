// Package models defines the core data types shared by the extraction
// pipeline, the matching funnel and the bundle builder.
package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DocumentKind distinguishes the two batches of input documents.
type DocumentKind string

const (
	// KindInvoice is a billing document to be settled, one PDF per invoice.
	KindInvoice DocumentKind = "INVOICE"
	// KindProof is a payment confirmation, one page of the proof file.
	KindProof DocumentKind = "PROOF"
)

// String returns the string representation of DocumentKind.
func (k DocumentKind) String() string {
	return string(k)
}

// IsValid checks if the document kind is valid.
func (k DocumentKind) IsValid() bool {
	return k == KindInvoice || k == KindProof
}

// SourceDocument is an immutable input document: either a whole invoice
// PDF or a single page extracted from the proof-of-payment file. The raw
// bytes are retained for bundle assembly and are never mutated.
type SourceDocument struct {
	Kind   DocumentKind
	Origin string // filename for invoices, "page N" for proofs
	Data   []byte
}

// NewSourceDocument creates a new SourceDocument instance.
func NewSourceDocument(kind DocumentKind, origin string, data []byte) *SourceDocument {
	return &SourceDocument{
		Kind:   kind,
		Origin: origin,
		Data:   data,
	}
}

// String returns a string representation of the SourceDocument.
func (d *SourceDocument) String() string {
	return fmt.Sprintf("SourceDocument{Kind: %s, Origin: %s, Bytes: %d}",
		d.Kind, d.Origin, len(d.Data))
}

// ExtractionTier records which extraction tier ultimately supplied the
// amount and reference code of a record, for diagnostics.
type ExtractionTier string

const (
	// TierTextLayer means the fields came from the PDF's extractable text layer.
	TierTextLayer ExtractionTier = "TEXT_LAYER"
	// TierOCR means the fields came from optical character recognition of a
	// rasterized page.
	TierOCR ExtractionTier = "OCR"
	// TierAIVision means the fields came from the external
	// document-understanding service.
	TierAIVision ExtractionTier = "AI_VISION"
	// TierFilename means the amount was parsed from the document's origin label.
	TierFilename ExtractionTier = "FILENAME"
	// TierNone means no tier produced a usable field.
	TierNone ExtractionTier = "NONE"
)

// String returns the string representation of ExtractionTier.
func (t ExtractionTier) String() string {
	return string(t)
}

// ExtractedRecord holds the structured fields derived from one SourceDocument.
// A record is exclusively owned by the pool that holds it; the used flag is
// mutated only through the pool and, once set, is never reset within a session.
type ExtractedRecord struct {
	Source *SourceDocument

	// Amount is the monetary total; zero means "not determined".
	Amount decimal.Decimal
	// ReferenceCode is the digits-only billing reference; empty means
	// "not determined".
	ReferenceCode string
	// EntityName is the normalized payer/payee name; empty means
	// "not determined".
	EntityName string
	// Tier records which extraction tier supplied the fields.
	Tier ExtractionTier

	used bool
}

// NewExtractedRecord creates an empty record for the given document.
func NewExtractedRecord(src *SourceDocument) *ExtractedRecord {
	return &ExtractedRecord{
		Source: src,
		Amount: decimal.Zero,
		Tier:   TierNone,
	}
}

// Complete reports whether both amount and reference code were determined.
func (r *ExtractedRecord) Complete() bool {
	return r.Amount.IsPositive() && r.ReferenceCode != ""
}

// HasAmount reports whether an amount was determined.
func (r *ExtractedRecord) HasAmount() bool {
	return r.Amount.IsPositive()
}

// HasCode reports whether a reference code was determined.
func (r *ExtractedRecord) HasCode() bool {
	return r.ReferenceCode != ""
}

// Used reports whether the record has already been consumed by a pairing.
func (r *ExtractedRecord) Used() bool {
	return r.used
}

// MarkUsed sets the used flag. It returns false when the record was already
// used, so callers can preserve the at-most-one-use invariant. Concurrent
// callers must serialize this through the owning pool.
func (r *ExtractedRecord) MarkUsed() bool {
	if r.used {
		return false
	}
	r.used = true
	return true
}

// Origin returns the origin label of the underlying document.
func (r *ExtractedRecord) Origin() string {
	if r.Source == nil {
		return ""
	}
	return r.Source.Origin
}

// String returns a string representation of the ExtractedRecord.
func (r *ExtractedRecord) String() string {
	code := r.ReferenceCode
	if len(code) > 25 {
		code = code[:25] + "..."
	}
	return fmt.Sprintf("ExtractedRecord{Origin: %s, Amount: %s, Code: %s, Entity: %s, Tier: %s, Used: %t}",
		r.Origin(), r.Amount.String(), code, r.EntityName, r.Tier, r.used)
}

// MatchMethod identifies the funnel pass that produced a pairing.
type MatchMethod string

const (
	// MethodCodeExact pairs records whose reference codes are equal.
	MethodCodeExact MatchMethod = "CODE_EXACT"
	// MethodCodePartial pairs records whose codes share a long prefix.
	MethodCodePartial MatchMethod = "CODE_PARTIAL"
	// MethodAmountAndName pairs records on amount tolerance plus entity
	// name overlap.
	MethodAmountAndName MatchMethod = "AMOUNT_AND_NAME"
	// MethodAmountUnique pairs an invoice with the only proof inside the
	// amount tolerance.
	MethodAmountUnique MatchMethod = "AMOUNT_UNIQUE"
	// MethodAmountFuzzyCode pairs on amount tolerance plus code similarity.
	MethodAmountFuzzyCode MatchMethod = "AMOUNT_FUZZY_CODE"
	// MethodLastResort pairs the single leftover invoice with the single
	// leftover proof.
	MethodLastResort MatchMethod = "LAST_RESORT"
)

// String returns the string representation of MatchMethod.
func (m MatchMethod) String() string {
	return string(m)
}

// Confidence expresses how trustworthy a pairing is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// String returns the string representation of Confidence.
func (c Confidence) String() string {
	return string(c)
}

// ConfidenceFor returns the confidence level assigned to a match method.
func ConfidenceFor(m MatchMethod) Confidence {
	switch m {
	case MethodCodeExact, MethodCodePartial:
		return ConfidenceHigh
	case MethodAmountAndName:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Pairing records that a proof settles an invoice. Each ExtractedRecord
// appears in at most one Pairing per session.
type Pairing struct {
	Invoice    *ExtractedRecord
	Proof      *ExtractedRecord
	Method     MatchMethod
	Confidence Confidence
}

// NewPairing creates a Pairing with the confidence implied by the method.
func NewPairing(invoice, proof *ExtractedRecord, method MatchMethod) Pairing {
	return Pairing{
		Invoice:    invoice,
		Proof:      proof,
		Method:     method,
		Confidence: ConfidenceFor(method),
	}
}

// String returns a string representation of the Pairing.
func (p Pairing) String() string {
	return fmt.Sprintf("Pairing{Invoice: %s, Proof: %s, Method: %s, Confidence: %s}",
		p.Invoice.Origin(), p.Proof.Origin(), p.Method, p.Confidence)
}

// Summary aggregates the outcome of one reconciliation run.
type Summary struct {
	TotalInvoices   int                 `json:"totalInvoices"`
	TotalProofs     int                 `json:"totalProofs"`
	Matched         int                 `json:"matched"`
	Unmatched       int                 `json:"unmatched"`
	UnusedProofs    int                 `json:"unusedProofs"`
	MatchesByMethod map[MatchMethod]int `json:"matchesByMethod"`
}

// NewSummary creates an empty summary with the counter map initialized.
func NewSummary() *Summary {
	return &Summary{
		MatchesByMethod: make(map[MatchMethod]int),
	}
}

// Record accounts for one pairing in the summary counters.
func (s *Summary) Record(p Pairing) {
	s.Matched++
	s.MatchesByMethod[p.Method]++
}

// String returns a human-readable summary line.
func (s *Summary) String() string {
	return fmt.Sprintf("Summary{Invoices: %d, Proofs: %d, Matched: %d, Unmatched: %d, UnusedProofs: %d}",
		s.TotalInvoices, s.TotalProofs, s.Matched, s.Unmatched, s.UnusedProofs)
}
