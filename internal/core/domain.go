package core

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	Sales    Category = "Sales"
	Expenses Category = "Expenses"
	Revenue  Category = "Revenue"
	Other    Category = "Other"
)

// DateLayout is the storage and wire format of an observation date.
const DateLayout = "2006-01-02"

// MaxNotesLength bounds the free-text notes of an observation.
const MaxNotesLength = 2000

type (
	Category string

	Date struct {
		time.Time
	}

	// Observation is one user-logged record. ID is zero until the store
	// assigns it.
	Observation struct {
		ID       int64
		Date     Date
		Value    float64
		Category Category
		Notes    string
	}
)

var (
	ErrZeroDate        = errors.New("date cannot be zero")
	ErrInvalidValue    = errors.New("value must be a finite number >= 0")
	ErrUnknownCategory = errors.New("unknown category")
	ErrNotesTooLong    = fmt.Errorf("notes too long (max %d characters)", MaxNotesLength)
)

// Categories returns the closed set of categories in display order.
func Categories() []Category {
	return []Category{Sales, Expenses, Revenue, Other}
}

// ParseCategory matches s against the closed set. Matching is exact.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

func (c Category) Validate() error {
	switch c {
	case Sales, Expenses, Revenue, Other:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCategory, string(c))
	}
}

func (c Category) String() string {
	return string(c)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks the observation invariants and returns a validation error
// wrapping the first violated rule.
func (o Observation) Validate() error {
	if err := o.Date.Validate(); err != nil {
		return NewError(KindValidation, "validate observation", o.Date.String(), err)
	}
	if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) || o.Value < 0 {
		return NewError(KindValidation, "validate observation", fmt.Sprint(o.Value), ErrInvalidValue)
	}
	if err := o.Category.Validate(); err != nil {
		return NewError(KindValidation, "validate observation", string(o.Category), err)
	}
	if len([]rune(o.Notes)) > MaxNotesLength {
		return NewError(KindValidation, "validate observation", "", ErrNotesTooLong)
	}
	return nil
}

// SortByDateDesc orders observations newest first; ties go to the higher id.
func SortByDateDesc(items []Observation) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date.Time) {
			return items[i].Date.After(items[j].Date.Time)
		}
		return items[i].ID > items[j].ID
	})
}
