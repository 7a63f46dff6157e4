package receipt

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"notaspese/internal/core"
)

// prediction is the provider's nested field map. Every field is wrapped in
// a {"value": ...} object (or an array of them); values may be null when
// the provider could not read the document.
type prediction map[string]json.RawMessage

type wrappedValue struct {
	Value json.RawMessage `json:"value"`
}

// rawValue unwraps a prediction field to its inner value. Array-shaped
// fields yield their first element. The boolean reports whether a non-null
// value was found.
func rawValue(raw json.RawMessage) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, false
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []wrappedValue
		if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
			return nil, false
		}
		return valueOrNothing(list[0].Value)
	}
	var w wrappedValue
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, false
	}
	return valueOrNothing(w.Value)
}

func valueOrNothing(v json.RawMessage) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(string(v))
	if trimmed == "" || trimmed == "null" {
		return nil, false
	}
	return v, true
}

// resolveString walks the candidate fields in order and returns the first
// non-empty string value, or "" when no candidate yields one. The explicit
// candidate list keeps the precedence policy auditable in one place.
func resolveString(pred prediction, candidates ...string) string {
	for _, name := range candidates {
		raw, ok := pred[name]
		if !ok {
			continue
		}
		inner, ok := rawValue(raw)
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(inner, &s); err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// resolveAmount walks the candidate fields in order and returns the first
// present numeric value as exact integer cents. A candidate that is present
// but not numeric fails with a MalformedFieldError; a null or absent
// candidate just falls through to the next one.
func resolveAmount(pred prediction, candidates ...string) (cents int64, present bool, err error) {
	for _, name := range candidates {
		raw, ok := pred[name]
		if !ok {
			continue
		}
		inner, ok := rawValue(raw)
		if !ok {
			continue
		}
		d, perr := parseDecimalValue(inner)
		if perr != nil {
			return 0, false, &MalformedFieldError{Field: name, Value: string(inner)}
		}
		// Exact decimal shift to cents, half-up on sub-cent digits.
		return d.Shift(2).Round(0).IntPart(), true, nil
	}
	return 0, false, nil
}

// parseDecimalValue accepts a JSON number or a numeric string. Decoding
// through decimal avoids binary-float cent drift on values like 42.10.
func parseDecimalValue(inner json.RawMessage) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(inner))
	if strings.HasPrefix(s, `"`) {
		var quoted string
		if err := json.Unmarshal(inner, &quoted); err != nil {
			return decimal.Decimal{}, err
		}
		s = strings.TrimSpace(quoted)
	}
	return decimal.NewFromString(s)
}

// resolveDate reads the provider's date field. The boolean reports whether
// the field was present at all; a present but unparseable value falls back
// to today's date with fellBack set, which the caller surfaces as a
// warning rather than failing the extraction.
func resolveDate(pred prediction, today func() core.Date) (date core.Date, present bool, fellBack bool) {
	raw, ok := pred["date"]
	if !ok {
		return core.Date{}, false, false
	}
	inner, ok := rawValue(raw)
	if !ok {
		return core.Date{}, false, false
	}
	var s string
	if err := json.Unmarshal(inner, &s); err != nil {
		return today(), true, true
	}
	parsed, err := core.ParseDate(s)
	if err != nil {
		return today(), true, true
	}
	return parsed, true, false
}

// resolveCategory maps the provider's category label onto the closed
// taxonomy. Unknown or absent labels fall back to the catch-all; receipts
// are lenient on purpose, direct ledger input is not.
func resolveCategory(pred prediction) core.Category {
	label := resolveString(pred, "category")
	if c, ok := core.ParseCategory(label); ok {
		return c
	}
	return core.CategoryOther
}
