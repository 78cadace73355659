package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"example.com/restaurant/services/ordering/internal/eventlog"
	"example.com/restaurant/services/ordering/internal/metrics"
	"example.com/restaurant/services/ordering/internal/models"
	"example.com/restaurant/services/ordering/internal/tracing"
)

// TrailLister is the slice of the order repository reconciliation needs.
type TrailLister interface {
	ListIncompleteTrails(ctx context.Context, limit int) ([]models.Order, error)
	MarkTrailComplete(ctx context.Context, id uint) error
}

// ReconcileService closes event trail gaps left behind by partial writes.
// The relational order is authoritative, so the full expected trail can be
// re-derived from it; deterministic event document ids make re-appending an
// already-present event harmless.
type ReconcileService struct {
	orders  TrailLister
	events  eventlog.Log
	metrics *metrics.Metrics
	tracer  tracing.Tracer
}

// NewReconcileService creates a new reconciliation service
func NewReconcileService(orders TrailLister, events eventlog.Log, collector *metrics.Metrics, tracer tracing.Tracer) *ReconcileService {
	return &ReconcileService{
		orders:  orders,
		events:  events,
		metrics: collector,
		tracer:  tracer,
	}
}

// Run re-appends missing events for terminal orders flagged with an
// incomplete trail.
func (s *ReconcileService) Run(ctx context.Context) error {
	txn := s.tracer.StartTransaction("reconcile-event-trails")
	defer s.tracer.EndTransaction(txn)

	orders, err := s.orders.ListIncompleteTrails(ctx, 100)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return err
	}

	if len(orders) == 0 {
		return nil
	}
	log.Info().Msgf("Found %d orders with incomplete event trails", len(orders))

	for _, order := range orders {
		if order.Status == models.OrderStatusPending {
			// Still mid-checkout, nothing terminal to derive yet.
			continue
		}
		if err := s.reconcileOrder(ctx, &order); err != nil {
			log.Error().Err(err).Uint("order_id", order.ID).Msg("Failed to reconcile event trail")
			s.tracer.RecordError(txn, err)
			// Leave the flag set, the next run retries.
			continue
		}
		if err := s.orders.MarkTrailComplete(ctx, order.ID); err != nil {
			log.Error().Err(err).Uint("order_id", order.ID).Msg("Failed to clear trail flag")
		}
	}

	return nil
}

// expectedTrail derives the full event sequence a terminal order must have.
func expectedTrail(order *models.Order) []eventlog.OrderEvent {
	created := order.CreatedAt.UTC()
	terminal := order.UpdatedAt.UTC()

	events := []eventlog.OrderEvent{
		{OrderID: order.ID, Seq: 1, Type: eventlog.EventCreated, Timestamp: created,
			Payload: map[string]interface{}{"postcode": order.Postcode}},
		{OrderID: order.ID, Seq: 2, Type: eventlog.EventPaymentAttempted, Timestamp: created},
	}

	if order.Status == models.OrderStatusPaid {
		events = append(events, eventlog.OrderEvent{
			OrderID: order.ID, Seq: 3, Type: eventlog.EventPaymentSucceeded, Timestamp: terminal,
			Payload: map[string]interface{}{eventlog.PayloadTotalKey: int64(order.Total())},
		})
	} else {
		events = append(events, eventlog.OrderEvent{
			OrderID: order.ID, Seq: 3, Type: eventlog.EventPaymentFailed, Timestamp: terminal,
		})
	}

	return events
}

func (s *ReconcileService) reconcileOrder(ctx context.Context, order *models.Order) error {
	existing, err := s.events.EventsForOrder(ctx, order.ID)
	if err != nil {
		return err
	}

	present := make(map[string]bool, len(existing))
	for _, event := range existing {
		present[event.DocumentID()] = true
	}

	for _, event := range expectedTrail(order) {
		if present[event.DocumentID()] {
			continue
		}
		if err := s.events.Append(ctx, event); err != nil {
			return err
		}
		s.metrics.IncrementCounter(metrics.EventsReconciled)
		log.Info().
			Uint("order_id", order.ID).
			Str("event_type", event.Type).
			Msg("Missing event re-appended")
	}

	return nil
}
