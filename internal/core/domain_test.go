package core

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Fatalf("unexpected date %s", d)
	}
	if _, err := ParseDate("29/02/2024"); err == nil {
		t.Fatalf("expected error for wrong layout")
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, err := ParseCategory(string(c))
		if err != nil || got != c {
			t.Fatalf("%q: got %q err=%v", c, got, err)
		}
	}
	for _, bad := range []string{"Unknown", "sales", ""} {
		if _, err := ParseCategory(bad); !errors.Is(err, ErrUnknownCategory) {
			t.Fatalf("%q: expected ErrUnknownCategory, got %v", bad, err)
		}
	}
}

func TestObservationValidate(t *testing.T) {
	good := Observation{
		Date:     NewDate(2025, 1, 1),
		Value:    0,
		Category: Sales,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		name  string
		obs   Observation
		cause error
	}{
		{"zero date", Observation{Value: 1, Category: Sales}, ErrZeroDate},
		{"negative value", Observation{Date: NewDate(2025, 1, 1), Value: -1, Category: Sales}, ErrInvalidValue},
		{"nan value", Observation{Date: NewDate(2025, 1, 1), Value: math.NaN(), Category: Sales}, ErrInvalidValue},
		{"inf value", Observation{Date: NewDate(2025, 1, 1), Value: math.Inf(1), Category: Sales}, ErrInvalidValue},
		{"unknown category", Observation{Date: NewDate(2025, 1, 1), Value: 5, Category: "Unknown"}, ErrUnknownCategory},
		{"notes too long", Observation{Date: NewDate(2025, 1, 1), Value: 5, Category: Other, Notes: strings.Repeat("x", MaxNotesLength+1)}, ErrNotesTooLong},
	}
	for _, tc := range bads {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.obs.Validate()
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !errors.Is(err, tc.cause) {
				t.Fatalf("expected cause %v, got %v", tc.cause, err)
			}
		})
	}
}

func TestSortByDateDesc(t *testing.T) {
	items := []Observation{
		{ID: 1, Date: NewDate(2025, 1, 1)},
		{ID: 2, Date: NewDate(2025, 3, 1)},
		{ID: 3, Date: NewDate(2025, 1, 1)},
	}
	SortByDateDesc(items)
	want := []int64{2, 3, 1}
	for i, id := range want {
		if items[i].ID != id {
			t.Fatalf("position %d: got id %d, want %d", i, items[i].ID, id)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	err := NewError(KindPrediction, "predict", "MedInc=abc", errors.New("not a number"))
	if !errors.Is(err, ErrPrediction) {
		t.Fatalf("expected prediction kind")
	}
	if errors.Is(err, ErrValidation) {
		t.Fatalf("prediction error must not match validation")
	}
	if kind, ok := KindOf(err); !ok || kind != KindPrediction {
		t.Fatalf("KindOf = %q, %v", kind, ok)
	}
	if InputOf(err) != "MedInc=abc" {
		t.Fatalf("InputOf = %q", InputOf(err))
	}
	if !strings.Contains(err.Error(), "MedInc=abc") {
		t.Fatalf("message should echo input: %s", err.Error())
	}
}
