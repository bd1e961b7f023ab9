package amqp

import (
	"errors"
	"time"

	json "github.com/goccy/go-json"

	"spendchart/internal/core"
)

// Event types published when the ledger changes.
const (
	EventExpenseAdded   = "expense.added"
	EventExpenseRemoved = "expense.removed"
)

var ErrUnknownEventType = errors.New("unknown event type")

// LedgerEvent describes one ledger mutation together with the running total
// it produced.
type LedgerEvent struct {
	Type        string    `json:"type"`
	ExpenseID   string    `json:"expense_id"`
	Category    string    `json:"category"`
	AmountCents int64     `json:"amount_cents"`
	Date        string    `json:"date"` // YYYY-MM-DD
	TotalCents  int64     `json:"total_cents"`
	Version     uint64    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewLedgerEvent(eventType string, e core.Expense, total core.Money, version uint64) *LedgerEvent {
	return &LedgerEvent{
		Type:        eventType,
		ExpenseID:   e.ID,
		Category:    e.Category,
		AmountCents: e.Amount.Cents,
		Date:        e.Date.Sortable(),
		TotalCents:  total.Cents,
		Version:     version,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and checks a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case EventExpenseAdded, EventExpenseRemoved:
	default:
		return nil, ErrUnknownEventType
	}
	return &msg, nil
}
