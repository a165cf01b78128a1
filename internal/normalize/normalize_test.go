package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"brazilian with thousands", "R$ 1.234,56", "1234.56"},
		{"brazilian plain comma", "1234,56", "1234.56"},
		{"dot decimal", "1234.56", "1234.56"},
		{"dot decimal with symbol", "$ 150.00", "150"},
		{"no separator", "402", "402"},
		{"large brazilian", "R$ 1.234.567,89", "1234567.89"},
		{"comma thousands dot decimal", "1,234,567.89", "1234567.89"},
		{"multiple dots no comma", "1.234.567", "1234567"},
		{"internal whitespace", "R$  150,00", "150"},
		{"empty", "", "0"},
		{"garbage", "abc", "0"},
		{"only symbol", "R$", "0"},
		{"negative rejected", "-50,00", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Amount(tt.input)
			want, _ := decimal.NewFromString(tt.expected)
			if !got.Equal(want) {
				t.Errorf("Amount(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

func TestAmountIdempotent(t *testing.T) {
	inputs := []string{"R$ 1.234,56", "402,00", "1234.56", "garbage", ""}

	for _, in := range inputs {
		once := Amount(in)
		twice := Amount(once.String())
		if !once.Equal(twice) {
			t.Errorf("Amount not idempotent for %q: once=%s twice=%s", in, once, twice)
		}
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"34191.79001 03520.137813 68109.400000 1 87220000015000", "34191790010352013781368109400000187220000015000"},
		{"ref: 12345", "12345"},
		{"no digits here", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Code(tt.input); got != tt.expected {
			t.Errorf("Code(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestCodeIdempotent(t *testing.T) {
	in := "34191.79001 03520.137813"
	once := Code(in)
	if twice := Code(once); twice != once {
		t.Errorf("Code not idempotent: once=%q twice=%q", once, twice)
	}
}

func TestEntityName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"legal suffix dropped", "ACME LTDA", "ACME"},
		{"diacritics folded", "José da Silva", "JOSE SILVA"},
		{"punctuation stripped", "ACME S.A.", "ACME"},
		{"government collapsed", "Prefeitura Municipal de Campinas", "GOVERNMENT"},
		{"tax authority collapsed", "Secretaria da Fazenda - SP", "GOVERNMENT"},
		{"iptu collapsed", "IPTU 2025 Parcela 3", "GOVERNMENT"},
		{"boilerplate dropped", "Pagamento de Boleto ACME", "ACME"},
		{"empty", "", ""},
		{"only stopwords", "de da do", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EntityName(tt.input); got != tt.expected {
				t.Errorf("EntityName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNamesOverlap(t *testing.T) {
	tests := []struct {
		a, b     string
		expected bool
	}{
		{"ACME", "ACME", true},
		{"ACME", "ACME COMERCIO", true},
		{"ACME COMERCIO", "ACME", true},
		{GovernmentEntity, GovernmentEntity, true},
		{"ACME", "WIDGETS", false},
		{"", "ACME", false},
		{"", "", false},
	}

	for _, tt := range tests {
		if got := NamesOverlap(tt.a, tt.b); got != tt.expected {
			t.Errorf("NamesOverlap(%q, %q) = %t, want %t", tt.a, tt.b, got, tt.expected)
		}
	}
}
