// Package report computes the aggregated figures shown in reports.
package report

import "notaspese/internal/core"

// Summary holds category-wise totals for a set of transactions. ByCategory
// only contains categories that actually appear in the input; Total is the
// exact sum of every amount, in integer cents.
type Summary struct {
	ByCategory map[core.Category]core.Money
	Total      core.Money
}

// Summarize folds the transactions into per-category sums and a grand
// total. Summation is integer-cent arithmetic, so the grand total always
// equals the sum of the per-category values to the cent.
func Summarize(txs []core.Transaction) Summary {
	s := Summary{ByCategory: make(map[core.Category]core.Money, len(txs))}
	for _, t := range txs {
		s.ByCategory[t.Type] = s.ByCategory[t.Type].Add(t.Amount)
		s.Total = s.Total.Add(t.Amount)
	}
	return s
}
