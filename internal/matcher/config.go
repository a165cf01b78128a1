// Package matcher pairs extracted invoice records with proof records.
//
// The funnel runs a fixed sequence of passes, each one a matching strategy
// ordered from strongest evidence (equal reference codes) to weakest (the
// single leftover pair). Within a pass, invoices are evaluated in ingestion
// order and take the first qualifying proof, a deliberately greedy
// heuristic rather than a globally optimal assignment. Matched records are marked
// used immediately and never revisited by a later pass.
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToleranceMode selects how the amount tolerance is computed.
type ToleranceMode string

const (
	// ToleranceAbsolute compares amounts against a fixed cent tolerance.
	ToleranceAbsolute ToleranceMode = "absolute"
	// TolerancePercent compares amounts against a percentage of the
	// invoice amount.
	TolerancePercent ToleranceMode = "percent"
)

// String returns the string representation of ToleranceMode.
func (m ToleranceMode) String() string {
	return string(m)
}

// IsValid checks if the tolerance mode is valid.
func (m ToleranceMode) IsValid() bool {
	return m == ToleranceAbsolute || m == TolerancePercent
}

// Config holds the tunables of the matching funnel. Tolerances are
// configuration, not contract: different deployments legitimately run with
// different values, and the comparison is inclusive at the boundary in
// either mode.
type Config struct {
	// ToleranceMode selects absolute or percentage amount tolerance. One
	// mode is applied consistently across all passes of a run.
	ToleranceMode ToleranceMode `json:"tolerance_mode"`

	// AmountToleranceAbs is the absolute tolerance used in absolute mode
	// (currency units, default 0.05).
	AmountToleranceAbs decimal.Decimal `json:"amount_tolerance_abs"`

	// AmountTolerancePercent is the relative tolerance used in percent
	// mode (0.0 to 100.0, default 2.0).
	AmountTolerancePercent float64 `json:"amount_tolerance_percent"`

	// MinSharedPrefix is the minimum shared prefix length, in digits, for
	// a partial code match. Codes shorter than this are weak: they match
	// by equality only.
	MinSharedPrefix int `json:"min_shared_prefix"`

	// CodeSimilarityThreshold is the minimum edit-distance ratio for the
	// fuzzy-code pass (0.0 to 1.0, exclusive threshold).
	CodeSimilarityThreshold float64 `json:"code_similarity_threshold"`

	// EnableLastResort pairs the single leftover invoice with the single
	// leftover proof unconditionally.
	EnableLastResort bool `json:"enable_last_resort"`
}

// DefaultConfig returns a configuration with the tolerances the funnel
// ships with: absolute five-cent tolerance, twenty-digit prefix floor and
// a 0.6 similarity threshold.
func DefaultConfig() *Config {
	return &Config{
		ToleranceMode:           ToleranceAbsolute,
		AmountToleranceAbs:      decimal.NewFromFloat(0.05),
		AmountTolerancePercent:  2.0,
		MinSharedPrefix:         20,
		CodeSimilarityThreshold: 0.6,
		EnableLastResort:        true,
	}
}

// Validate checks if the matching configuration is valid.
func (c *Config) Validate() error {
	if !c.ToleranceMode.IsValid() {
		return fmt.Errorf("invalid tolerance mode: %s", c.ToleranceMode)
	}
	if c.AmountToleranceAbs.IsNegative() {
		return fmt.Errorf("absolute amount tolerance cannot be negative: %s", c.AmountToleranceAbs)
	}
	if c.AmountTolerancePercent < 0.0 || c.AmountTolerancePercent > 100.0 {
		return fmt.Errorf("amount tolerance percent must be between 0.0 and 100.0: %f", c.AmountTolerancePercent)
	}
	if c.MinSharedPrefix <= 0 {
		return fmt.Errorf("minimum shared prefix must be positive: %d", c.MinSharedPrefix)
	}
	if c.CodeSimilarityThreshold < 0.0 || c.CodeSimilarityThreshold > 1.0 {
		return fmt.Errorf("code similarity threshold must be between 0.0 and 1.0: %f", c.CodeSimilarityThreshold)
	}
	return nil
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// WithinTolerance reports whether a proof amount settles an invoice amount
// under the configured tolerance. The comparison is inclusive: a difference
// of exactly the tolerance still matches.
func (c *Config) WithinTolerance(invoiceAmount, proofAmount decimal.Decimal) bool {
	diff := invoiceAmount.Sub(proofAmount).Abs()
	return diff.LessThanOrEqual(c.tolerance(invoiceAmount))
}

func (c *Config) tolerance(amount decimal.Decimal) decimal.Decimal {
	if c.ToleranceMode == TolerancePercent {
		pct := decimal.NewFromFloat(c.AmountTolerancePercent / 100.0)
		return amount.Abs().Mul(pct)
	}
	return c.AmountToleranceAbs
}

// String returns a human-readable description of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Abs: %s, Percent: %.2f%%, MinPrefix: %d, Similarity: %.2f}",
		c.ToleranceMode, c.AmountToleranceAbs, c.AmountTolerancePercent,
		c.MinSharedPrefix, c.CodeSimilarityThreshold)
}
