package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/restaurant/services/ordering/internal/eventlog"
	"example.com/restaurant/services/ordering/internal/faults"
	"example.com/restaurant/services/ordering/internal/messaging"
	"example.com/restaurant/services/ordering/internal/metrics"
	"example.com/restaurant/services/ordering/internal/models"
	"example.com/restaurant/services/ordering/internal/money"
	"example.com/restaurant/services/ordering/internal/payments"
	"example.com/restaurant/services/ordering/internal/postcode"
	"example.com/restaurant/services/ordering/internal/tracing"
)

// CartLine is one submitted cart entry.
type CartLine struct {
	MenuItemID uint
	Quantity   int
}

// CatalogReader is the slice of the menu repository checkout needs.
type CatalogReader interface {
	GetByID(ctx context.Context, id uint) (*models.MenuItem, error)
}

// OrderWriter is the slice of the order repository checkout needs.
type OrderWriter interface {
	CreateWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error
	SetStatus(ctx context.Context, id uint, status string) error
	MarkTrailIncomplete(ctx context.Context, id uint) error
}

// CheckoutService runs the checkout workflow: validate, snapshot prices,
// persist the order, simulate payment, and append the event trail. The
// relational order store and the event log are written sequentially with no
// shared transaction; a failed event append leaves the order authoritative
// and is reported as a PartialWriteError.
type CheckoutService struct {
	catalog   CatalogReader
	orders    OrderWriter
	events    eventlog.Log
	payments  *payments.Simulator
	postcodes *postcode.Checker
	receipts  messaging.ReceiptPublisher
	metrics   *metrics.Metrics
	tracer    tracing.Tracer
}

// NewCheckoutService creates a new checkout service. The receipt publisher
// may be nil when no queue is configured.
func NewCheckoutService(
	catalog CatalogReader,
	orders OrderWriter,
	events eventlog.Log,
	simulator *payments.Simulator,
	postcodes *postcode.Checker,
	receipts messaging.ReceiptPublisher,
	collector *metrics.Metrics,
	tracer tracing.Tracer,
) *CheckoutService {
	return &CheckoutService{
		catalog:   catalog,
		orders:    orders,
		events:    events,
		payments:  simulator,
		postcodes: postcodes,
		receipts:  receipts,
		metrics:   collector,
		tracer:    tracer,
	}
}

// Checkout runs the whole workflow for one submitted cart. It returns the
// terminal order; the order's Status says whether the simulated payment
// succeeded. A PartialWriteError is returned alongside a committed order
// when the event trail could not be fully appended; callers treat that as
// success because the relational order state is correct.
func (s *CheckoutService) Checkout(
	ctx context.Context,
	userID uint,
	email string,
	lines []CartLine,
	deliveryPostcode string,
	card payments.Card,
) (*models.Order, error) {
	txn := s.tracer.StartTransaction("checkout")
	defer s.tracer.EndTransaction(txn)

	start := time.Now()
	s.metrics.IncrementCounter(metrics.CheckoutAttempts)

	s.tracer.AddAttribute(txn, "user_id", userID)

	order, err := s.checkout(ctx, userID, email, lines, deliveryPostcode, card)
	s.metrics.RecordTimer("checkout", time.Since(start))

	if err != nil {
		var partial *faults.PartialWriteError
		if !errors.As(err, &partial) {
			s.metrics.IncrementCounter(metrics.CheckoutRejected)
			s.tracer.RecordError(txn, err)
			return order, err
		}
	}
	if order != nil {
		if order.Status == models.OrderStatusPaid {
			s.metrics.IncrementCounter(metrics.CheckoutPaid)
		} else {
			s.metrics.IncrementCounter(metrics.CheckoutFailed)
		}
	}
	return order, err
}

func (s *CheckoutService) checkout(
	ctx context.Context,
	userID uint,
	email string,
	lines []CartLine,
	deliveryPostcode string,
	card payments.Card,
) (*models.Order, error) {
	// 1. Everything that can be rejected is rejected before any write.
	pc := postcode.Normalize(deliveryPostcode)
	if !s.postcodes.Serviceable(pc) {
		return nil, faults.Validation("postcode %q is not a serviceable UK postcode", pc)
	}

	if len(lines) == 0 {
		return nil, faults.Validation("cart is empty")
	}
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, faults.Validation("quantity for item %d must be at least 1", line.MenuItemID)
		}
	}

	if err := s.payments.Validate(card); err != nil {
		return nil, err
	}

	// 2. Re-fetch each item so prices are snapshotted now, not at the time
	// the item went into the cart.
	items := make([]models.OrderItem, 0, len(lines))
	var total money.Pence
	for _, line := range lines {
		item, err := s.catalog.GetByID(ctx, line.MenuItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, faults.NotFound("menu item", line.MenuItemID)
			}
			return nil, faults.Unavailable("catalog store", err)
		}
		if !item.Available {
			return nil, faults.NotFound("menu item", line.MenuItemID)
		}
		items = append(items, models.OrderItem{
			MenuItemID:     item.ID,
			Quantity:       line.Quantity,
			UnitPricePence: item.PricePence,
		})
		total += item.PricePence * money.Pence(line.Quantity)
	}

	// 3. Order + line items land atomically in the relational store.
	order := &models.Order{
		UserID:        userID,
		Postcode:      pc,
		Status:        models.OrderStatusPending,
		TrailComplete: true,
	}
	if err := s.orders.CreateWithItems(ctx, order, items); err != nil {
		return nil, faults.Unavailable("order store", err)
	}

	log.Info().
		Uint("order_id", order.ID).
		Uint("user_id", userID).
		Int64("total_pence", int64(total)).
		Msg("Order created")

	var partialErr error
	appendEvent := func(seq int, eventType string, payload map[string]interface{}) {
		err := s.events.Append(ctx, eventlog.OrderEvent{
			OrderID:   order.ID,
			Seq:       seq,
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Payload:   payload,
		})
		if err == nil {
			return
		}
		// The order is authoritative; the gap is flagged for the
		// reconciliation job and the first failure is reported.
		log.Error().Err(err).
			Uint("order_id", order.ID).
			Str("event_type", eventType).
			Msg("Event log append failed, order stands")
		s.metrics.IncrementCounter(metrics.PartialWrites)
		if markErr := s.orders.MarkTrailIncomplete(ctx, order.ID); markErr != nil {
			log.Error().Err(markErr).Uint("order_id", order.ID).Msg("Failed to flag incomplete trail")
		}
		if partialErr == nil {
			partialErr = &faults.PartialWriteError{OrderID: order.ID, Cause: err}
		}
	}

	appendEvent(1, eventlog.EventCreated, map[string]interface{}{
		"user_email": email,
		"postcode":   pc,
	})

	// 4. Simulated payment. Closed synchronous step, no external call.
	appendEvent(2, eventlog.EventPaymentAttempted, nil)
	authorised := s.payments.Authorize(card)

	status := models.OrderStatusFailed
	if authorised {
		status = models.OrderStatusPaid
	}
	if err := s.orders.SetStatus(ctx, order.ID, status); err != nil {
		// Relational terminal write failed; the order stays pending and no
		// terminal event is appended.
		return order, errors.Wrap(err, "failed to finalise order status")
	}
	order.Status = status

	if authorised {
		appendEvent(3, eventlog.EventPaymentSucceeded, map[string]interface{}{
			eventlog.PayloadTotalKey: int64(total),
		})
		s.requestReceipt(ctx, order.ID, email)
	} else {
		appendEvent(3, eventlog.EventPaymentFailed, nil)
	}

	log.Info().
		Uint("order_id", order.ID).
		Str("status", status).
		Msg("Checkout finished")

	return order, partialErr
}

// requestReceipt enqueues receipt generation, best effort. A publish failure
// never fails the checkout.
func (s *CheckoutService) requestReceipt(ctx context.Context, orderID uint, email string) {
	if s.receipts == nil {
		return
	}
	err := s.receipts.PublishReceiptRequest(ctx, messaging.ReceiptRequest{
		OrderID: orderID,
		Email:   email,
	})
	if err != nil {
		log.Warn().Err(err).Uint("order_id", orderID).Msg("Failed to enqueue receipt request")
	}
}
