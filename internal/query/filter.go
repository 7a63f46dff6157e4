// Package query narrows a ledger snapshot down to the transactions a user
// asked to see. Filtering is pure: it never mutates the input and can be
// re-run on every render.
package query

import (
	"strings"

	"notaspese/internal/core"
)

// Spec is the user-supplied filter criteria. Every field is optional; the
// zero Spec matches all transactions.
type Spec struct {
	// Search is matched case-insensitively as a substring of either the
	// description or the category label.
	Search string
	// StartDate and EndDate are inclusive bounds when set.
	StartDate *core.Date
	EndDate   *core.Date
	// Type restricts to an exact category when non-empty.
	Type core.Category
}

// Matches reports whether a single transaction satisfies every criterion.
func (s Spec) Matches(t core.Transaction) bool {
	if search := strings.ToLower(strings.TrimSpace(s.Search)); search != "" {
		inDescription := strings.Contains(strings.ToLower(t.Description), search)
		inType := strings.Contains(strings.ToLower(string(t.Type)), search)
		if !inDescription && !inType {
			return false
		}
	}
	if s.StartDate != nil && t.Date.Before(s.StartDate.Time) {
		return false
	}
	if s.EndDate != nil && t.Date.After(s.EndDate.Time) {
		return false
	}
	if s.Type != "" && t.Type != s.Type {
		return false
	}
	return true
}

// Key returns a stable normalized representation of the spec, used as a
// cache key component by the HTTP layer.
func (s Spec) Key() string {
	var b strings.Builder
	b.WriteString("q=")
	b.WriteString(strings.ToLower(strings.TrimSpace(s.Search)))
	b.WriteString("|from=")
	if s.StartDate != nil {
		b.WriteString(s.StartDate.String())
	}
	b.WriteString("|to=")
	if s.EndDate != nil {
		b.WriteString(s.EndDate.String())
	}
	b.WriteString("|type=")
	b.WriteString(string(s.Type))
	return b.String()
}

// Filter returns the subsequence of txs matching the spec, in the original
// insertion order.
func Filter(txs []core.Transaction, spec Spec) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if spec.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}
