package pool

import (
	"testing"

	"pdf-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

func newRecord(kind models.DocumentKind, origin string, amount float64) *models.ExtractedRecord {
	rec := models.NewExtractedRecord(models.NewSourceDocument(kind, origin, []byte("%PDF-")))
	rec.Amount = decimal.NewFromFloat(amount)
	return rec
}

func TestPool_AddRejectsWrongKind(t *testing.T) {
	p := New(models.KindInvoice)

	if err := p.Add(newRecord(models.KindProof, "page 1", 10)); err == nil {
		t.Error("expected error adding proof record to invoice pool")
	}

	if err := p.Add(newRecord(models.KindInvoice, "a.pdf", 10)); err != nil {
		t.Errorf("unexpected error adding invoice record: %v", err)
	}

	if p.Len() != 1 {
		t.Errorf("expected 1 record, got %d", p.Len())
	}
}

func TestPool_FindUnusedScansInIngestionOrder(t *testing.T) {
	p := New(models.KindProof)
	first := newRecord(models.KindProof, "page 1", 100)
	second := newRecord(models.KindProof, "page 2", 100)
	p.Add(first)
	p.Add(second)

	hasAmount := func(r *models.ExtractedRecord) bool { return r.HasAmount() }

	if got := p.FindUnused(hasAmount); got != first {
		t.Fatalf("expected first record, got %v", got)
	}

	p.MarkUsed(first)

	if got := p.FindUnused(hasAmount); got != second {
		t.Fatalf("expected second record after first used, got %v", got)
	}
}

func TestPool_MarkUsedIsAtMostOnce(t *testing.T) {
	p := New(models.KindProof)
	rec := newRecord(models.KindProof, "page 1", 50)
	p.Add(rec)

	if !p.MarkUsed(rec) {
		t.Fatal("first MarkUsed should succeed")
	}
	if p.MarkUsed(rec) {
		t.Fatal("second MarkUsed must report the record as already used")
	}
	if !rec.Used() {
		t.Fatal("record should remain used")
	}
}

func TestPool_UnusedCount(t *testing.T) {
	p := New(models.KindInvoice)
	a := newRecord(models.KindInvoice, "a.pdf", 1)
	b := newRecord(models.KindInvoice, "b.pdf", 2)
	p.Add(a)
	p.Add(b)

	if n := p.UnusedCount(); n != 2 {
		t.Errorf("expected 2 unused, got %d", n)
	}

	p.MarkUsed(a)

	if n := p.UnusedCount(); n != 1 {
		t.Errorf("expected 1 unused, got %d", n)
	}
	if got := p.Unused(); len(got) != 1 || got[0] != b {
		t.Errorf("Unused() should return only the second record")
	}
}

func TestPool_FilterUnused(t *testing.T) {
	p := New(models.KindProof)
	small := newRecord(models.KindProof, "page 1", 10)
	big := newRecord(models.KindProof, "page 2", 1000)
	other := newRecord(models.KindProof, "page 3", 1000)
	p.Add(small)
	p.Add(big)
	p.Add(other)
	p.MarkUsed(other)

	over := p.FilterUnused(func(r *models.ExtractedRecord) bool {
		return r.Amount.GreaterThan(decimal.NewFromInt(100))
	})

	if len(over) != 1 || over[0] != big {
		t.Errorf("expected only the unused large record, got %v", over)
	}
}
