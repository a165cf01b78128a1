package matcher

import (
	"fmt"

	"pdf-reconciliation-service/internal/models"
	"pdf-reconciliation-service/internal/normalize"
	"pdf-reconciliation-service/internal/pool"
	"pdf-reconciliation-service/pkg/logger"
)

// pass is one matching strategy. A pass scans the unmatched invoices in
// ingestion order, pairs what it can and marks both sides used; it never
// unwinds a pairing made by an earlier pass.
type pass interface {
	name() string
	run(invoices, proofs *pool.Pool) []models.Pairing
}

// Funnel consumes the invoice and proof pools through the ordered passes.
type Funnel struct {
	config *Config
	passes []pass
	log    logger.Logger
}

// NewFunnel creates a funnel with the standard pass order: code match,
// amount plus name, amount-only disambiguation, last resort.
func NewFunnel(config *Config) *Funnel {
	if config == nil {
		config = DefaultConfig()
	}

	f := &Funnel{
		config: config,
		log:    logger.GetGlobalLogger().WithComponent("matching_funnel"),
	}
	f.passes = []pass{
		&codePass{config: config},
		&amountNamePass{config: config},
		&amountPass{config: config},
	}
	if config.EnableLastResort {
		f.passes = append(f.passes, &lastResortPass{})
	}
	return f
}

// Run executes every pass in order and returns the pairings in the order
// they were made. Both pools are mutated: matched records come back marked
// used.
func (f *Funnel) Run(invoices, proofs *pool.Pool) []models.Pairing {
	var pairings []models.Pairing

	for _, p := range f.passes {
		made := p.run(invoices, proofs)
		pairings = append(pairings, made...)

		f.log.WithFields(logger.Fields{
			"pass":               p.name(),
			"pairings":           len(made),
			"invoices_remaining": invoices.UnusedCount(),
			"proofs_remaining":   proofs.UnusedCount(),
		}).Debug("Matching pass completed")
	}

	f.log.WithFields(logger.Fields{
		"total_pairings":     len(pairings),
		"unmatched_invoices": invoices.UnusedCount(),
		"unused_proofs":      proofs.UnusedCount(),
	}).Info("Matching funnel completed")

	return pairings
}

// pair marks both records used and builds the Pairing. It returns false if
// either side was already consumed, which means a concurrent or earlier
// pairing won the record.
func pair(invoices, proofs *pool.Pool, inv, proof *models.ExtractedRecord, method models.MatchMethod) (models.Pairing, bool) {
	if !invoices.MarkUsed(inv) {
		return models.Pairing{}, false
	}
	if !proofs.MarkUsed(proof) {
		// Undone deliberately is not possible: used never resets. The
		// invoice stays consumed and reports as unmatched, which is the
		// safe side of the at-most-one-use invariant.
		return models.Pairing{}, false
	}
	return models.NewPairing(inv, proof, method), true
}

// codePass implements CODE_EXACT and CODE_PARTIAL: equal codes, or one
// code a prefix of the other with at least MinSharedPrefix digits shared.
// The prefix rule absorbs check-digit and leading-zero discrepancies
// between the two document layouts; codes shorter than the floor only
// match by equality.
type codePass struct {
	config *Config
}

func (p *codePass) name() string { return "code" }

func (p *codePass) run(invoices, proofs *pool.Pool) []models.Pairing {
	var pairings []models.Pairing

	for _, inv := range invoices.Unused() {
		if !inv.HasCode() {
			continue
		}

		var method models.MatchMethod
		proof := proofs.FindUnused(func(r *models.ExtractedRecord) bool {
			if !r.HasCode() {
				return false
			}
			if r.ReferenceCode == inv.ReferenceCode {
				method = models.MethodCodeExact
				return true
			}
			if p.prefixMatch(inv.ReferenceCode, r.ReferenceCode) {
				method = models.MethodCodePartial
				return true
			}
			return false
		})
		if proof == nil {
			continue
		}

		if made, ok := pair(invoices, proofs, inv, proof, method); ok {
			pairings = append(pairings, made)
		}
	}
	return pairings
}

func (p *codePass) prefixMatch(a, b string) bool {
	shared := sharedPrefixLen(a, b)
	if shared < p.config.MinSharedPrefix {
		return false
	}
	// One code must be a prefix of the other, not merely share a run.
	shorter := len(a)
	if len(b) < shorter {
		shorter = len(b)
	}
	return shared == shorter
}

// amountNamePass implements AMOUNT_AND_NAME: proof amount within tolerance
// of the invoice amount and the normalized entity names overlapping.
type amountNamePass struct {
	config *Config
}

func (p *amountNamePass) name() string { return "amount_and_name" }

func (p *amountNamePass) run(invoices, proofs *pool.Pool) []models.Pairing {
	var pairings []models.Pairing

	for _, inv := range invoices.Unused() {
		if !inv.HasAmount() {
			continue
		}

		proof := proofs.FindUnused(func(r *models.ExtractedRecord) bool {
			return p.config.WithinTolerance(inv.Amount, r.Amount) &&
				normalize.NamesOverlap(inv.EntityName, r.EntityName)
		})
		if proof == nil {
			continue
		}

		if made, ok := pair(invoices, proofs, inv, proof, models.MethodAmountAndName); ok {
			pairings = append(pairings, made)
		}
	}
	return pairings
}

// amountPass implements AMOUNT_UNIQUE and AMOUNT_FUZZY_CODE. With exactly
// one tolerance candidate the amount alone decides; with several, a code
// similarity above the threshold picks the best candidate. Several
// candidates and no code evidence stays unmatched; ambiguity is not
// guessed away here.
type amountPass struct {
	config *Config
}

func (p *amountPass) name() string { return "amount" }

func (p *amountPass) run(invoices, proofs *pool.Pool) []models.Pairing {
	var pairings []models.Pairing

	for _, inv := range invoices.Unused() {
		if !inv.HasAmount() {
			continue
		}

		candidates := proofs.FilterUnused(func(r *models.ExtractedRecord) bool {
			return p.config.WithinTolerance(inv.Amount, r.Amount)
		})
		if len(candidates) == 0 {
			continue
		}

		var proof *models.ExtractedRecord
		method := models.MethodAmountUnique

		if len(candidates) == 1 {
			proof = candidates[0]
		} else if inv.HasCode() {
			proof = p.bestBySimilarity(inv.ReferenceCode, candidates)
			method = models.MethodAmountFuzzyCode
		}
		if proof == nil {
			continue
		}

		if made, ok := pair(invoices, proofs, inv, proof, method); ok {
			pairings = append(pairings, made)
		}
	}
	return pairings
}

// bestBySimilarity returns the candidate with the highest code similarity
// strictly above the threshold, first-fit on ties.
func (p *amountPass) bestBySimilarity(code string, candidates []*models.ExtractedRecord) *models.ExtractedRecord {
	var best *models.ExtractedRecord
	bestScore := p.config.CodeSimilarityThreshold

	for _, c := range candidates {
		score := codeSimilarity(code, c.ReferenceCode)
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best
}

// lastResortPass implements LAST_RESORT: when exactly one invoice and one
// proof survive every earlier pass, they are paired unconditionally.
type lastResortPass struct{}

func (p *lastResortPass) name() string { return "last_resort" }

func (p *lastResortPass) run(invoices, proofs *pool.Pool) []models.Pairing {
	if invoices.UnusedCount() != 1 || proofs.UnusedCount() != 1 {
		return nil
	}

	inv := invoices.Unused()[0]
	proof := proofs.Unused()[0]

	if made, ok := pair(invoices, proofs, inv, proof, models.MethodLastResort); ok {
		return []models.Pairing{made}
	}
	return nil
}

// Validate checks the funnel configuration.
func (f *Funnel) Validate() error {
	if f.config == nil {
		return fmt.Errorf("funnel configuration is required")
	}
	return f.config.Validate()
}

// Config returns a copy of the funnel configuration.
func (f *Funnel) Config() *Config {
	return f.config.Clone()
}
