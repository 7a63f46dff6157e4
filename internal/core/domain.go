package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category is one label from the fixed expense taxonomy. The set is closed:
// a transaction can only ever carry one of the constants below, with
// CategoryOther acting as the catch-all.
type Category string

const (
	CategoryAdvertising    Category = "Advertising"
	CategoryMeals          Category = "Meals"
	CategoryOfficeSupplies Category = "Office Supplies"
	CategoryRent           Category = "Rent"
	CategorySoftware       Category = "Software"
	CategoryTravel         Category = "Travel"
	CategoryUtilities      Category = "Utilities"
	CategoryOther          Category = "Other"
)

// Categories returns the full taxonomy in display order.
func Categories() []Category {
	return []Category{
		CategoryAdvertising,
		CategoryMeals,
		CategoryOfficeSupplies,
		CategoryRent,
		CategorySoftware,
		CategoryTravel,
		CategoryUtilities,
		CategoryOther,
	}
}

// ParseCategory resolves a label case-insensitively against the taxonomy.
// The boolean reports whether the label was recognized.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Valid reports whether the category is a member of the closed set.
func (c Category) Valid() bool {
	_, ok := ParseCategory(string(c))
	return ok
}

type (
	// Date is a calendar date (no time-of-day component), serialized as
	// ISO 8601 YYYY-MM-DD. Chronological comparison via the embedded
	// time.Time is equivalent to lexicographic comparison of the ISO form.
	Date struct {
		time.Time
	}

	// Transaction is one recorded expense event. Immutable after creation;
	// the ledger only ever appends or removes whole transactions.
	Transaction struct {
		ID          int64    `json:"id"`
		Date        Date     `json:"date"`
		Description string   `json:"description"`
		Amount      Money    `json:"amount_cents"`
		Type        Category `json:"type"`
		Notes       string   `json:"notes,omitempty"`
	}

	// Draft holds candidate transaction fields before validation and id
	// assignment. A Draft never reaches storage: the ledger rejects it
	// wholesale when any required field is missing or invalid.
	Draft struct {
		Date        Date
		Description string
		Amount      Money
		Type        Category
		Notes       string
	}
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day (UTC midnight).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO 8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON encodes the date as a quoted YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON decodes a quoted YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// Required-field sentinel errors for draft validation.
var (
	ErrMissingDate        = errors.New("missing date")
	ErrMissingDescription = errors.New("missing description")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCategory    = errors.New("invalid category")
)

// ValidationError reports every required field that is missing or invalid
// on a draft. The add is blocked entirely; no partial transaction is stored.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid transaction: " + strings.Join(e.Fields, ", ")
}

// Validate checks all required fields and returns a *ValidationError
// listing each offending field, or nil when the draft is complete.
func (d Draft) Validate() error {
	var fields []string
	if d.Date.IsZero() {
		fields = append(fields, "date")
	}
	if strings.TrimSpace(d.Description) == "" {
		fields = append(fields, "description")
	}
	if d.Amount.Cents < 0 {
		fields = append(fields, "amount")
	}
	if !d.Type.Valid() {
		fields = append(fields, "type")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
