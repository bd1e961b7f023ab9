package worker

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"spendchart/internal/amqp"
	"spendchart/internal/core"
	"spendchart/internal/log"
)

// DefaultReorderWindow is how many early events are held back while waiting
// for a missing version.
const DefaultReorderWindow = 64

// AuditWorker follows the ledger from its event stream. It keeps its own
// running total from the event amounts and reports when that total, or the
// version sequence, disagrees with what the publisher claimed.
//
// The service publishes after releasing the ledger lock, so concurrent
// mutations (and broker requeues) can arrive out of version order. Events
// ahead of the expected version are buffered and applied in order; a gap is
// only reported once the buffer exceeds the reorder window or on Flush.
type AuditWorker struct {
	mu          sync.Mutex
	logger      *log.Logger
	window      int
	pending     map[uint64]*amqp.LedgerEvent
	total       core.Money
	lastVersion uint64
	seen        int
	mismatches  int
	gaps        int
	duplicates  int
}

func NewAuditWorker(logger *log.Logger) *AuditWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AuditWorker{
		logger:  logger.WithComponent(log.ComponentWorker),
		window:  DefaultReorderWindow,
		pending: make(map[uint64]*amqp.LedgerEvent),
	}
}

// WithReorderWindow sets how many out-of-order events are buffered.
func (w *AuditWorker) WithReorderWindow(n int) *AuditWorker {
	if n > 0 {
		w.window = n
	}
	return w
}

// HandleLedgerEvent is the consumer callback.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ev.AmountCents <= 0 {
		return fmt.Errorf("event %s for %s has non-positive amount %d", ev.Type, ev.ExpenseID, ev.AmountCents)
	}
	switch ev.Type {
	case amqp.EventExpenseAdded, amqp.EventExpenseRemoved:
	default:
		return fmt.Errorf("%w: %s", amqp.ErrUnknownEventType, ev.Type)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case w.lastVersion == 0 && w.seen == 0 && len(w.pending) == 0:
		// First event fixes the starting point.
		w.apply(ctx, ev)
	case ev.Version <= w.lastVersion || w.pending[ev.Version] != nil:
		w.duplicates++
		w.logger.DebugContext(ctx, "Duplicate ledger event",
			log.FieldVersion, ev.Version,
			log.FieldExpenseID, ev.ExpenseID)
		return nil
	case ev.Version == w.lastVersion+1:
		w.apply(ctx, ev)
	default:
		w.pending[ev.Version] = ev
		if len(w.pending) > w.window {
			w.skipToPending(ctx)
		}
	}
	w.drain(ctx)
	return nil
}

// Flush applies every buffered event in version order, reporting the
// versions that never arrived as gaps.
func (w *AuditWorker) Flush(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.pending) > 0 {
		w.skipToPending(ctx)
		w.drain(ctx)
	}
}

func (w *AuditWorker) drain(ctx context.Context) {
	for {
		next, ok := w.pending[w.lastVersion+1]
		if !ok {
			return
		}
		delete(w.pending, next.Version)
		w.apply(ctx, next)
	}
}

// skipToPending gives up on the missing versions and applies the oldest
// buffered event.
func (w *AuditWorker) skipToPending(ctx context.Context) {
	versions := make([]uint64, 0, len(w.pending))
	for v := range w.pending {
		versions = append(versions, v)
	}
	oldest := slices.Min(versions)
	ev := w.pending[oldest]
	delete(w.pending, oldest)

	w.gaps++
	w.logger.WarnContext(ctx, "Ledger version gap",
		log.FieldVersion, ev.Version,
		"previous_version", w.lastVersion)
	w.apply(ctx, ev)
}

func (w *AuditWorker) apply(ctx context.Context, ev *amqp.LedgerEvent) {
	amount := core.Money{Cents: ev.AmountCents}
	if ev.Type == amqp.EventExpenseAdded {
		w.total = w.total.Add(amount)
	} else {
		w.total = w.total.Sub(amount)
	}
	w.seen++
	w.lastVersion = ev.Version

	if w.total.Cents != ev.TotalCents {
		w.mismatches++
		w.logger.WarnContext(ctx, "Running total differs from published total",
			"audited_total_cents", w.total.Cents,
			log.FieldTotalCents, ev.TotalCents,
			log.FieldVersion, ev.Version)
		// Resynchronise so a single lost event is reported once.
		w.total = core.Money{Cents: ev.TotalCents}
	}

	w.logger.InfoContext(ctx, "Ledger event",
		log.FieldEventType, ev.Type,
		log.FieldExpenseID, ev.ExpenseID,
		log.FieldCategory, ev.Category,
		log.FieldAmountCents, ev.AmountCents,
		log.FieldDate, ev.Date,
		log.FieldTotalCents, ev.TotalCents,
		log.FieldVersion, ev.Version)
}

// AuditStats summarises what the worker has observed.
type AuditStats struct {
	Seen       int
	Total      core.Money
	Mismatches int
	Gaps       int
	Duplicates int
	Pending    int
}

func (w *AuditWorker) Stats() AuditStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return AuditStats{
		Seen:       w.seen,
		Total:      w.total,
		Mismatches: w.mismatches,
		Gaps:       w.gaps,
		Duplicates: w.duplicates,
		Pending:    len(w.pending),
	}
}
