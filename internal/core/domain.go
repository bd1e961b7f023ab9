package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// InputDateLayout is the layout produced by HTML date inputs.
	InputDateLayout = "2006-01-02"
	// DisplayDateLayout is the MM/DD/YYYY form shown in the table and on the chart axis.
	DisplayDateLayout = "01/02/2006"
	// SortableDateLayout orders lexically in chronological order.
	SortableDateLayout = "2006-01-02"
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is a single ledger record. ID is assigned by the ledger and is
	// the only identity used for removal.
	Expense struct {
		ID       string
		Category string
		Amount   Money
		Date     Date
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

// ValidationError reports which input field was rejected and why.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UserMessage returns the text shown to the person filling the form.
func (e *ValidationError) UserMessage() string {
	switch {
	case errors.Is(e.Err, ErrInvalidAmount):
		return "Please enter a valid expense amount."
	case errors.Is(e.Err, ErrInvalidDate):
		return "Please select a valid date for the expense."
	default:
		return "Please check the expense details."
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD calendar date. Blank input is rejected.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	t, err := time.Parse(InputDateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ParseDisplayDate is the inverse of Date.Display.
func ParseDisplayDate(s string) (Date, error) {
	t, err := time.Parse(DisplayDateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Display formats the date as MM/DD/YYYY.
func (d Date) Display() string {
	return d.Format(DisplayDateLayout)
}

// Sortable formats the date as YYYY-MM-DD.
func (d Date) Sortable() string {
	return d.Format(SortableDateLayout)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return e.Date.Validate()
}
