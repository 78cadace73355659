package eventlog

import (
	"context"
	"fmt"
	"time"

	"example.com/restaurant/services/ordering/internal/money"
)

// Order lifecycle event types
const (
	EventCreated          = "created"
	EventPaymentAttempted = "payment_attempted"
	EventPaymentSucceeded = "payment_succeeded"
	EventPaymentFailed    = "payment_failed"
)

// PayloadTotalKey is the payload field carrying the order total on
// payment_succeeded events.
const PayloadTotalKey = "total_pence"

// OrderEvent is one append-only entry in an order's lifecycle trail.
type OrderEvent struct {
	OrderID   uint                   `json:"order_id"`
	Seq       int                    `json:"seq"`
	Type      string                 `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// DocumentID derives a deterministic document id so re-appending the same
// event during reconciliation overwrites instead of duplicating.
func (e OrderEvent) DocumentID() string {
	return fmt.Sprintf("order-%d-%d-%s", e.OrderID, e.Seq, e.Type)
}

// Total reads the total_pence payload field of a payment_succeeded event.
func (e OrderEvent) Total() (money.Pence, bool) {
	raw, ok := e.Payload[PayloadTotalKey]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return money.Pence(v), true
	case int64:
		return money.Pence(v), true
	case int:
		return money.Pence(v), true
	case money.Pence:
		return v, true
	}
	return 0, false
}

// Log is the append-only order event store.
type Log interface {
	// Append writes one event. Appends are idempotent per DocumentID.
	Append(ctx context.Context, event OrderEvent) error

	// EventsForOrder returns an order's events ordered by sequence.
	EventsForOrder(ctx context.Context, orderID uint) ([]OrderEvent, error)

	// PaymentsSucceededOn returns all payment_succeeded events whose
	// timestamp falls inside the given UTC day.
	PaymentsSucceededOn(ctx context.Context, day time.Time) ([]OrderEvent, error)
}
