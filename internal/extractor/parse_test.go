package extractor

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCodeFrom(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "formatted digit line",
			text: "Pague com o código 34191.79001 01043.510047 91020.150008 2 91070026000",
			want: "34191790010104351004791020150008291070026000",
		},
		{
			name: "plain digit run",
			text: "23793381286008301336451000063301112233445566",
			want: "23793381286008301336451000063301112233445566",
		},
		{
			name: "too short",
			text: "code 1234567890123456789",
			want: "",
		},
		{
			name: "too long",
			text: "00000000000000000000000000000000000000000000000000000000000",
			want: "",
		},
		{
			name: "no digits",
			text: "nothing to see here",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := codeFrom(tt.text); got != tt.want {
				t.Errorf("codeFrom(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestAmountFrom(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "single marked amount",
			text: "Valor do documento: R$ 402,03",
			want: "402.03",
		},
		{
			name: "largest marked amount wins",
			text: "Juros R$ 1,50\nTotal R$ 1.234,56\nDesconto R$ 12,00",
			want: "1234.56",
		},
		{
			name: "bare amount fallback",
			text: "Valor 402,03",
			want: "402.03",
		},
		{
			name: "marked amounts shadow bare ones",
			text: "R$ 10,00 e o número 999,99 na referência",
			want: "10",
		},
		{
			name: "no amount",
			text: "sem valor informado",
			want: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, _ := decimal.NewFromString(tt.want)
			if got := amountFrom(tt.text); !got.Equal(want) {
				t.Errorf("amountFrom(%q) = %s, want %s", tt.text, got, want)
			}
		})
	}
}

func TestEntityFrom(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "labeled name line",
			text: "Banco XYZ\nNome: José da Silva\nValor: R$ 10,00",
			want: "JOSE SILVA",
		},
		{
			name: "beneficiario label",
			text: "Beneficiário: ACME Serviços LTDA",
			want: "ACME SERVICOS",
		},
		{
			name: "government entity collapses",
			text: "Favorecido: Prefeitura Municipal de Campinas",
			want: "GOVERNMENT",
		},
		{
			name: "no label",
			text: "José da Silva pagou a conta",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entityFrom(tt.text); got != tt.want {
				t.Errorf("entityFrom(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
