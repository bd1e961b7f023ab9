package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"spendchart/internal/amqp"
	"spendchart/internal/cache"
	"spendchart/internal/catalog"
	"spendchart/internal/chart"
	"spendchart/internal/core"
	"spendchart/internal/ledger"
	"spendchart/internal/log"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrExpenseNotFound = errors.New("expense not found")
)

// EventPublisher sends ledger change notifications. Publishing is best
// effort: a failure never undoes the ledger mutation.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
	Close() error
}

// NewExpense is the raw form input for a new record.
type NewExpense struct {
	Category string
	Amount   string
	Date     string
}

// Snapshot is a consistent view of the ledger and its chart.
type Snapshot struct {
	Expenses   []core.Expense
	Summary    core.Summary
	Projection chart.Projection
	Version    uint64
}

// ExpenseService owns the ledger and rebuilds the chart projection after
// every change.
type ExpenseService struct {
	ledger      *ledger.Ledger
	catalog     *catalog.Catalog
	publisher   EventPublisher
	projections *cache.LRUCache[chart.Projection]
	logger      *log.Logger
}

type Option func(*ExpenseService)

func WithPublisher(p EventPublisher) Option {
	return func(s *ExpenseService) { s.publisher = p }
}

func WithProjectionCache(c *cache.LRUCache[chart.Projection]) Option {
	return func(s *ExpenseService) { s.projections = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *ExpenseService) { s.logger = l }
}

func NewExpenseService(l *ledger.Ledger, c *catalog.Catalog, opts ...Option) *ExpenseService {
	if l == nil {
		l = ledger.New()
	}
	if c == nil {
		c = catalog.Default()
	}
	s := &ExpenseService{ledger: l, catalog: c}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentExpense)
	return s
}

func (s *ExpenseService) Catalog() *catalog.Catalog { return s.catalog }

// AddExpense validates the category against the catalog, stores the record
// and publishes an expense.added event. The receipt describes the ledger
// right after this insert.
func (s *ExpenseService) AddExpense(ctx context.Context, in NewExpense) (ledger.Receipt, error) {
	category := strings.TrimSpace(in.Category)
	if !s.catalog.Has(category) {
		return ledger.Receipt{}, fmt.Errorf("%w: %q", ErrUnknownCategory, in.Category)
	}

	r, err := s.ledger.AddRecord(category, in.Amount, in.Date)
	if err != nil {
		return ledger.Receipt{}, err
	}

	e := r.Expense
	s.logger.InfoContext(ctx, "Expense added", log.NewFields().
		WithExpense(e.ID, e.Category, e.Amount.Cents, e.Date.Sortable()).
		WithLedger(r.Total.Cents, r.Version).
		WithOperation(log.OpCreate).ToSlice()...)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventExpenseAdded, e, r.Total, r.Version))
	return r, nil
}

// RemoveExpense deletes the record with the given ID. Unknown IDs leave the
// ledger unchanged and return ErrExpenseNotFound.
func (s *ExpenseService) RemoveExpense(ctx context.Context, id string) (ledger.Receipt, error) {
	r, ok := s.ledger.RemoveRecord(id)
	if !ok {
		return ledger.Receipt{}, fmt.Errorf("%w: %s", ErrExpenseNotFound, id)
	}

	e := r.Expense
	s.logger.InfoContext(ctx, "Expense removed", log.NewFields().
		WithExpense(e.ID, e.Category, e.Amount.Cents, e.Date.Sortable()).
		WithLedger(r.Total.Cents, r.Version).
		WithOperation(log.OpDelete).ToSlice()...)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventExpenseRemoved, e, r.Total, r.Version))
	return r, nil
}

// publish runs after the ledger lock is released, so concurrent mutations may
// reach the broker out of version order. Consumers order by Version.
func (s *ExpenseService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldEventType, ev.Type,
			log.FieldExpenseID, ev.ExpenseID,
			log.FieldError, err)
	}
}

// Project returns the chart projection for the current ledger contents.
func (s *ExpenseService) Project(ctx context.Context) chart.Projection {
	return s.projectState(ctx, s.ledger.State())
}

func (s *ExpenseService) projectState(ctx context.Context, st ledger.State) chart.Projection {
	key := strconv.FormatUint(st.Version, 10)
	if s.projections != nil {
		if p, ok := s.projections.Get(key); ok {
			return p
		}
	}
	p := chart.Project(st.Expenses, s.catalog.Palette())
	if s.projections != nil {
		s.projections.Set(key, p)
	}
	s.logger.DebugContext(ctx, "Projection rebuilt",
		log.FieldVersion, st.Version,
		"labels", len(p.Labels),
		"series", len(p.Series))
	return p
}

// Snapshot reads the ledger once and derives summary and projection from
// that single read.
func (s *ExpenseService) Snapshot(ctx context.Context) Snapshot {
	st := s.ledger.State()
	return Snapshot{
		Expenses:   st.Expenses,
		Summary:    core.Summarize(st.Expenses),
		Projection: s.projectState(ctx, st),
		Version:    st.Version,
	}
}

func (s *ExpenseService) Total() core.Money { return s.ledger.Total() }

func (s *ExpenseService) Expenses() []core.Expense { return s.ledger.Expenses() }

func (s *ExpenseService) Count() int { return s.ledger.Len() }

func (s *ExpenseService) Version() uint64 { return s.ledger.Version() }

// CacheStats reports projection cache usage; zero when caching is off.
func (s *ExpenseService) CacheStats() cache.Stats {
	if s.projections == nil {
		return cache.Stats{}
	}
	return s.projections.Stats()
}

// Close releases the publisher.
func (s *ExpenseService) Close() error {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}
