package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/api/googleapi"

	"pdf-reconciliation-service/internal/models"
)

// fakeVision fails with the queued errors before answering.
type fakeVision struct {
	errs   []error
	fields *VisionFields
	calls  int
}

func (f *fakeVision) ExtractFields(ctx context.Context, png []byte) (*VisionFields, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.fields, nil
}

func withFastRetries(t *testing.T) {
	t.Helper()
	saved := visionRetryBaseDelay
	visionRetryBaseDelay = time.Millisecond
	t.Cleanup(func() { visionRetryBaseDelay = saved })
}

func TestVisionTierFillsFields(t *testing.T) {
	engine := &fakeEngine{}
	client := &fakeVision{fields: &VisionFields{
		Amount:        "1.234,56",
		ReferenceCode: "34191.79001 01043.510047 91020.150008 2 91070026000",
		EntityName:    "ACME Serviços LTDA",
	}}
	tier := NewVisionTier(engine, client)

	rec := models.NewExtractedRecord(proofDoc())
	if err := tier.Extract(context.Background(), rec.Source, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !rec.Amount.Equal(decimal.NewFromFloat(1234.56)) {
		t.Errorf("expected amount 1234.56, got %s", rec.Amount)
	}
	if rec.ReferenceCode != "34191790010104351004791020150008291070026000" {
		t.Errorf("unexpected code %q", rec.ReferenceCode)
	}
	if rec.EntityName != "ACME SERVICOS" {
		t.Errorf("expected entity ACME SERVICOS, got %q", rec.EntityName)
	}
	if rec.Tier != models.TierAIVision {
		t.Errorf("expected tier %s, got %s", models.TierAIVision, rec.Tier)
	}
}

func TestVisionTierRetriesThrottling(t *testing.T) {
	withFastRetries(t)

	throttle := &googleapi.Error{Code: 429, Message: "resource exhausted"}
	client := &fakeVision{
		errs:   []error{throttle, throttle},
		fields: &VisionFields{Amount: "10,00"},
	}
	tier := NewVisionTier(&fakeEngine{}, client)

	rec := models.NewExtractedRecord(proofDoc())
	if err := tier.Extract(context.Background(), rec.Source, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.calls != 3 {
		t.Errorf("expected 3 calls, got %d", client.calls)
	}
	if !rec.Amount.Equal(decimal.NewFromFloat(10.00)) {
		t.Errorf("expected amount 10.00, got %s", rec.Amount)
	}
}

func TestVisionTierGivesUpAfterMaxRetries(t *testing.T) {
	withFastRetries(t)

	throttle := &googleapi.Error{Code: 429}
	client := &fakeVision{
		errs: []error{throttle, throttle, throttle, throttle, throttle},
	}
	tier := NewVisionTier(&fakeEngine{}, client)

	rec := models.NewExtractedRecord(proofDoc())
	err := tier.Extract(context.Background(), rec.Source, rec)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if client.calls != maxVisionRetries+1 {
		t.Errorf("expected %d calls, got %d", maxVisionRetries+1, client.calls)
	}
}

func TestVisionTierDoesNotRetryOtherErrors(t *testing.T) {
	withFastRetries(t)

	client := &fakeVision{errs: []error{errors.New("invalid API key")}}
	tier := NewVisionTier(&fakeEngine{}, client)

	rec := models.NewExtractedRecord(proofDoc())
	if err := tier.Extract(context.Background(), rec.Source, rec); err == nil {
		t.Fatal("expected error")
	}
	if client.calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", client.calls)
	}
}

func TestParseVisionResponse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
		amount  string
	}{
		{
			name:   "plain json",
			text:   `{"amount": "402,03", "reference_code": "", "entity_name": ""}`,
			amount: "402,03",
		},
		{
			name:   "json fenced",
			text:   "```json\n{\"amount\": \"402,03\", \"reference_code\": \"\", \"entity_name\": \"\"}\n```",
			amount: "402,03",
		},
		{
			name:   "bare fence",
			text:   "```\n{\"amount\": \"1,00\", \"reference_code\": \"\", \"entity_name\": \"\"}\n```",
			amount: "1,00",
		},
		{
			name:    "prose instead of json",
			text:    "The document shows a payment of R$ 402,03.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := parseVisionResponse(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fields.Amount != tt.amount {
				t.Errorf("expected amount %q, got %q", tt.amount, fields.Amount)
			}
		})
	}
}
