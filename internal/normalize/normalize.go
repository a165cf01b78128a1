// Package normalize converts raw extracted text into canonical field values.
//
// All functions are pure and total: malformed input yields the zero value
// (decimal.Zero or ""), never an error. Applying a function to its own
// output is a no-op, which the matching funnel relies on when fields pass
// through the pipeline more than once.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonDigit       = regexp.MustCompile(`\D`)
	currencyMarks  = regexp.MustCompile(`(?i)(r\$|us\$|\$|€|brl)`)
	namePunct      = regexp.MustCompile(`[^A-Z0-9 ]`)
	multipleSpaces = regexp.MustCompile(`\s+`)
)

// stopwords are legal-entity suffixes and boilerplate tokens dropped from
// entity names before comparison.
var stopwords = map[string]bool{
	"LTDA": true, "SA": true, "S": true, "A": true, "ME": true, "EIRELI": true, "EPP": true,
	"CIA": true, "COMPANHIA": true, "SOCIEDADE": true, "ASSOCIACAO": true,
	"DE": true, "DA": true, "DO": true, "DAS": true, "DOS": true, "E": true,
	"PAGAMENTO": true, "PAGTO": true, "COBRANCA": true, "BOLETO": true,
	"FATURA": true, "DOCUMENTO": true, "FAVORECIDO": true,
}

// governmentTokens collapse any municipal/state/tax-authority payee to a
// single canonical name, because the same public creditor appears under
// wildly different labels across invoices and payment proofs.
var governmentTokens = []string{
	"PREFEITURA", "MUNICIPIO", "MUNICIPAL", "GOVERNO", "ESTADO",
	"SECRETARIA", "FAZENDA", "RECEITA", "SEFAZ", "TRIBUTO", "TRIBUTOS",
	"IPTU", "ISSQN", "ISS", "DARF", "INSS", "FGTS", "UNIAO", "TESOURO",
}

// GovernmentEntity is the canonical entity name assigned to any payee
// recognized as a government or tax-authority body.
const GovernmentEntity = "GOVERNMENT"

// Amount parses a monetary string into a decimal. Brazilian ("1.234,56"),
// plain-comma ("1234,56") and dot-decimal ("1234.56") forms are accepted;
// currency symbols and whitespace are stripped. Irrecoverable input yields
// decimal.Zero.
func Amount(raw string) decimal.Decimal {
	s := currencyMarks.ReplaceAllString(raw, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero
	}

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		// The rightmost separator is the decimal mark, the other one is a
		// thousands separator.
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			// Multiple commas can only be thousands separators.
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case dot >= 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Code strips every non-digit character from a reference code. An input
// with no digits at all yields "". Length is not enforced here: the
// matcher treats short codes as weak evidence instead of discarding them.
func Code(raw string) string {
	return nonDigit.ReplaceAllString(raw, "")
}

// EntityName canonicalizes a payer/payee name: uppercase, diacritics
// folded, punctuation stripped, stopwords removed. Any name containing a
// government or tax-authority token collapses to GovernmentEntity.
// Unrecognizable input yields "".
func EntityName(raw string) string {
	s := foldDiacritics(strings.ToUpper(strings.TrimSpace(raw)))
	s = namePunct.ReplaceAllString(s, " ")
	s = multipleSpaces.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	words := strings.Fields(s)
	for _, w := range words {
		for _, tok := range governmentTokens {
			if w == tok {
				return GovernmentEntity
			}
		}
	}

	var kept []string
	for _, w := range words {
		if stopwords[w] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// foldDiacritics removes combining marks after NFD decomposition, so
// "JOSÉ" and "JOSE" compare equal.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NamesOverlap reports whether two normalized entity names refer to the
// same party: substring containment in either direction, or both collapsed
// to the government entity. Empty names never overlap.
func NamesOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == GovernmentEntity && b == GovernmentEntity {
		return true
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
