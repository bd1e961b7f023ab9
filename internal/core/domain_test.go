package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Display() != "01/05/2024" {
		t.Fatalf("display = %q", d.Display())
	}
	if d.Sortable() != "2024-01-05" {
		t.Fatalf("sortable = %q", d.Sortable())
	}

	for _, in := range []string{"", "   ", "2024-13-01", "01/05/2024", "yesterday"} {
		if _, err := ParseDate(in); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", in, err)
		}
	}
}

func TestParseDisplayDateRoundTrip(t *testing.T) {
	d := NewDate(2023, 12, 31)
	back, err := ParseDisplayDate(d.Display())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip changed date: %v -> %v", d, back)
	}
}

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

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{ID: "x", Category: "Food", Amount: Money{Cents: 100}, Date: NewDate(2025, 1, 1)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		e    Expense
		want error
	}{
		{Expense{Amount: Money{Cents: 0}, Date: NewDate(2025, 1, 1)}, ErrInvalidAmount},
		{Expense{Amount: Money{Cents: 1}}, ErrInvalidDate},
		// amount is reported before date
		{Expense{}, ErrInvalidAmount},
	}
	for i, tc := range bads {
		if err := tc.e.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestValidationError(t *testing.T) {
	var err error = &ValidationError{Field: "amount", Value: "abc", Err: ErrInvalidAmount}
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected errors.Is to see ErrInvalidAmount")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected errors.As to match")
	}
	if ve.UserMessage() != "Please enter a valid expense amount." {
		t.Fatalf("unexpected message %q", ve.UserMessage())
	}
	dateErr := &ValidationError{Field: "date", Err: ErrInvalidDate}
	if dateErr.UserMessage() != "Please select a valid date for the expense." {
		t.Fatalf("unexpected message %q", dateErr.UserMessage())
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Expense{
		{Category: "Food", Amount: Money{Cents: 1250}},
		{Category: "Transport", Amount: Money{Cents: 725}},
		{Category: "Food", Amount: Money{Cents: 300}},
	})
	if s.Count != 3 || s.Total.Cents != 2275 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if len(s.ByCategory) != 2 || s.ByCategory[0].Name != "Food" || s.ByCategory[0].Amount.Cents != 1550 {
		t.Fatalf("unexpected categories %+v", s.ByCategory)
	}
	if s.ByCategory[1].Name != "Transport" {
		t.Fatalf("expected first-seen order, got %+v", s.ByCategory)
	}
}
