package report

import (
	"testing"

	"notaspese/internal/core"
	"notaspese/internal/query"
)

func tx(id int64, date string, desc string, cents int64, cat core.Category) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		ID:          id,
		Date:        d,
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Type:        cat,
	}
}

func TestSummarizeSingleTransaction(t *testing.T) {
	// One office chair at 129.99: the category total and the grand total
	// must both be exactly 12999 cents.
	txs := []core.Transaction{
		tx(1, "2024-01-05", "Office chair", 12999, core.CategoryOfficeSupplies),
	}
	s := Summarize(txs)
	if got := s.ByCategory[core.CategoryOfficeSupplies].Cents; got != 12999 {
		t.Fatalf("ByCategory[Office Supplies] = %d, want 12999", got)
	}
	if s.Total.Cents != 12999 {
		t.Fatalf("Total = %d, want 12999", s.Total.Cents)
	}
	if len(s.ByCategory) != 1 {
		t.Fatalf("ByCategory has %d keys, want 1", len(s.ByCategory))
	}
}

func TestSummarizeSameCategoryAccumulates(t *testing.T) {
	// Two Travel expenses, 50.00 and 75.50, must sum to exactly 125.50.
	txs := []core.Transaction{
		tx(1, "2024-03-01", "Train", 5000, core.CategoryTravel),
		tx(2, "2024-03-02", "Hotel", 7550, core.CategoryTravel),
	}
	s := Summarize(txs)
	if got := s.ByCategory[core.CategoryTravel].Cents; got != 12550 {
		t.Fatalf("ByCategory[Travel] = %d, want 12550", got)
	}
	if s.Total.Cents != 12550 {
		t.Fatalf("Total = %d, want 12550", s.Total.Cents)
	}
}

func TestSummarizeOmitsAbsentCategories(t *testing.T) {
	txs := []core.Transaction{
		tx(1, "2024-01-05", "Office chair", 12999, core.CategoryOfficeSupplies),
	}
	s := Summarize(txs)
	if _, present := s.ByCategory[core.CategoryTravel]; present {
		t.Fatal("categories with no transactions must be absent, not zero")
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	s := Summarize(nil)
	if s.Total.Cents != 0 {
		t.Fatalf("empty input total = %d, want 0", s.Total.Cents)
	}
	if len(s.ByCategory) != 0 {
		t.Fatalf("empty input produced %d categories", len(s.ByCategory))
	}
}

func TestSummarizeTotalConservation(t *testing.T) {
	// Summarize(Filter(L, spec)).Total must equal the plain sum over the
	// filtered subset, for any spec.
	ledger := []core.Transaction{
		tx(1, "2024-01-05", "Office chair", 12999, core.CategoryOfficeSupplies),
		tx(2, "2024-01-20", "Flight", 5000, core.CategoryTravel),
		tx(3, "2024-02-03", "Hotel", 7550, core.CategoryTravel),
		tx(4, "2024-02-10", "Rent", 120000, core.CategoryRent),
		tx(5, "2024-02-11", "Ads", 999, core.CategoryAdvertising),
	}
	start, _ := core.ParseDate("2024-01-15")
	specs := []query.Spec{
		{},
		{Search: "o"},
		{StartDate: &start},
		{Type: core.CategoryTravel},
		{Search: "hotel", Type: core.CategoryTravel},
		{Search: "no-such-thing"},
	}
	for _, spec := range specs {
		filtered := query.Filter(ledger, spec)
		s := Summarize(filtered)

		var plain int64
		for _, t2 := range filtered {
			plain += t2.Amount.Cents
		}
		if s.Total.Cents != plain {
			t.Fatalf("spec %+v: Total %d != plain sum %d", spec, s.Total.Cents, plain)
		}

		var byCat int64
		for _, v := range s.ByCategory {
			byCat += v.Cents
		}
		if s.Total.Cents != byCat {
			t.Fatalf("spec %+v: Total %d != sum of ByCategory %d", spec, s.Total.Cents, byCat)
		}
	}
}
