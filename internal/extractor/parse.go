package extractor

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"pdf-reconciliation-service/internal/normalize"
)

var (
	// digitGroup matches a run of digits possibly broken by the group
	// separators billing layouts print inside the digit line.
	digitGroup = regexp.MustCompile(`\d[\d .\-]*\d`)

	// codeSeparators are stripped from a digit group before length
	// checking.
	codeSeparators = regexp.MustCompile(`[ .\-]`)

	// currencyAmount matches explicitly marked monetary figures.
	currencyAmount = regexp.MustCompile(`(?i)R\$\s*\d{1,3}(?:\.\d{3})*,\d{2}`)

	// bareAmount matches decimal-comma figures without a currency marker.
	bareAmount = regexp.MustCompile(`\b\d{1,3}(?:\.\d{3})*,\d{2}\b`)

	// entityLabel marks lines that carry the payer or payee name.
	entityLabel = regexp.MustCompile(`(?i)^\s*(?:nome|raz[aã]o\s+social|benefici[aá]rio|cedente|favorecido|pagador)\s*[:\-]\s*(.+)$`)
)

// codeFrom returns the first reference code found in the text, digits
// only, or empty when none is present. A code is a digit group that
// collapses to 40 to 55 digits once the separators are removed.
func codeFrom(text string) string {
	for _, group := range digitGroup.FindAllString(text, -1) {
		digits := codeSeparators.ReplaceAllString(group, "")
		if len(digits) >= 40 && len(digits) <= 55 {
			return digits
		}
	}
	return ""
}

// amountFrom returns the largest monetary figure found in the text.
// Explicitly marked figures win over bare decimal-comma numbers; the
// largest figure is taken because totals dominate line items on both
// invoices and payment proofs.
func amountFrom(text string) decimal.Decimal {
	matches := currencyAmount.FindAllString(text, -1)
	if len(matches) == 0 {
		matches = bareAmount.FindAllString(text, -1)
	}

	largest := decimal.Zero
	for _, m := range matches {
		value := normalize.Amount(m)
		if value.GreaterThan(largest) {
			largest = value
		}
	}
	return largest
}

// entityFrom returns the normalized name from the first labeled line,
// or empty when no label is present.
func entityFrom(text string) string {
	for _, line := range strings.Split(text, "\n") {
		groups := entityLabel.FindStringSubmatch(line)
		if groups == nil {
			continue
		}
		if name := normalize.EntityName(groups[1]); name != "" {
			return name
		}
	}
	return ""
}
