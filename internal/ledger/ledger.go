// Package ledger keeps the in-memory list of expenses and its running total.
package ledger

import (
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"spendchart/internal/core"
)

// Option configures a Ledger.
type Option func(*Ledger)

// WithIDGenerator replaces the UUID generator used for new records.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// Ledger is an ordered, mutex-guarded list of expenses. The total is kept
// incrementally and always equals the sum of the stored amounts.
type Ledger struct {
	mu      sync.RWMutex
	items   []core.Expense
	total   core.Money
	version uint64
	newID   func() string
}

func New(opts ...Option) *Ledger {
	l := &Ledger{newID: uuid.NewString}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Receipt is the record touched by a mutation and the ledger state right
// after it.
type Receipt struct {
	Expense core.Expense
	Total   core.Money
	Count   int
	Version uint64
}

// Add validates the raw input, appends a new record and returns it.
// The amount is checked before the date; on error nothing is stored.
func (l *Ledger) Add(category, amount, date string) (core.Expense, error) {
	r, err := l.AddRecord(category, amount, date)
	return r.Expense, err
}

// AddRecord is Add returning the resulting total and version as well.
func (l *Ledger) AddRecord(category, amount, date string) (Receipt, error) {
	m, err := core.ParseAmount(amount)
	if err != nil {
		return Receipt{}, &core.ValidationError{Field: "amount", Value: amount, Err: err}
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return Receipt{}, &core.ValidationError{Field: "date", Value: date, Err: err}
	}
	return l.Insert(core.Expense{Category: strings.TrimSpace(category), Amount: m, Date: d})
}

// Insert stores an already parsed expense. A fresh ID is always assigned.
func (l *Ledger) Insert(e core.Expense) (Receipt, error) {
	if err := e.Amount.Validate(); err != nil {
		return Receipt{}, &core.ValidationError{Field: "amount", Value: e.Amount.String(), Err: err}
	}
	if err := e.Date.Validate(); err != nil {
		return Receipt{}, &core.ValidationError{Field: "date", Err: err}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e.ID = l.newID()
	l.items = append(l.items, e)
	l.total = l.total.Add(e.Amount)
	l.version++
	return Receipt{Expense: e, Total: l.total, Count: len(l.items), Version: l.version}, nil
}

// Remove deletes the record with the given ID. When no such record exists
// the ledger, including its total, is left untouched.
func (l *Ledger) Remove(id string) (core.Expense, bool) {
	r, ok := l.RemoveRecord(id)
	return r.Expense, ok
}

// RemoveRecord is Remove returning the resulting total and version as well.
func (l *Ledger) RemoveRecord(id string) (Receipt, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := slices.IndexFunc(l.items, func(e core.Expense) bool { return e.ID == id })
	if i < 0 {
		return Receipt{}, false
	}
	removed := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	l.total = l.total.Sub(removed.Amount)
	l.version++
	return Receipt{Expense: removed, Total: l.total, Count: len(l.items), Version: l.version}, true
}

func (l *Ledger) Get(id string) (core.Expense, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.items {
		if e.ID == id {
			return e, true
		}
	}
	return core.Expense{}, false
}

func (l *Ledger) Total() core.Money {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Version increases by one on every successful mutation.
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Expenses returns a copy of the records in insertion order.
func (l *Ledger) Expenses() []core.Expense {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// State is a consistent read of the ledger.
type State struct {
	Expenses []core.Expense
	Total    core.Money
	Version  uint64
}

func (l *Ledger) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return State{Expenses: slices.Clone(l.items), Total: l.total, Version: l.version}
}

func (l *Ledger) Summary() core.Summary {
	return core.Summarize(l.Expenses())
}
