// Package core holds the expense domain types and the parsing of raw form
// input into them.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and display representations.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmount keeps cents within int64 after the *100 shift.
var maxAmount = decimal.NewFromInt((1<<63 - 1) / 100)

const (
	// maxIntegerDigits is the digit count of maxAmount.
	maxIntegerDigits = 17
	// minMagnitude is the lowest decimal magnitude that can still round to a
	// cent (0.005 has magnitude -2).
	minMagnitude = -2
)

// ParseAmount converts user input to cents with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Anything
// that is not a finite number, is not strictly positive, or rounds to zero
// cents yields ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("12.345") -> 1235 (rounds half up)
//	ParseAmount("0.004")  -> ErrInvalidAmount
//	ParseAmount("1e9")    -> 100000000000
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	// Bound the magnitude before comparing or rounding: both rescale the
	// coefficient by 10^|exponent|, so "1e50000000" would never finish.
	magnitude := int64(d.NumDigits()) + int64(d.Exponent())
	if magnitude > maxIntegerDigits || magnitude < minMagnitude {
		return Money{}, ErrInvalidAmount
	}
	if d.GreaterThan(maxAmount) {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2).IntPart()
	if cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents}, nil
}

// String renders the amount with exactly two decimals, e.g. "12.50".
func (m Money) String() string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// Float64 returns the amount in major units for chart datasets.
// Use cents for arithmetic.
func (m Money) Float64() float64 {
	return float64(m.Cents) / 100.0
}
