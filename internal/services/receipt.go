package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/restaurant/services/ordering/internal/faults"
	"example.com/restaurant/services/ordering/internal/metrics"
	"example.com/restaurant/services/ordering/internal/models"
	"example.com/restaurant/services/ordering/internal/money"
	"example.com/restaurant/services/ordering/internal/storage"
	"example.com/restaurant/services/ordering/internal/tracing"
)

// OrderReader is the slice of the order repository the generator needs.
type OrderReader interface {
	GetByID(ctx context.Context, id uint) (*models.Order, error)
}

// ReceiptService renders receipt artifacts for paid orders and stores them
// in the object store keyed by order id.
type ReceiptService struct {
	orders  OrderReader
	store   storage.ObjectStore
	metrics *metrics.Metrics
	tracer  tracing.Tracer
}

// NewReceiptService creates a new receipt service
func NewReceiptService(orders OrderReader, store storage.ObjectStore, collector *metrics.Metrics, tracer tracing.Tracer) *ReceiptService {
	return &ReceiptService{
		orders:  orders,
		store:   store,
		metrics: collector,
		tracer:  tracer,
	}
}

// Generate renders and stores the receipt for a paid order, returning the
// artifact URL. Orders that are missing or not paid are a NotFoundError.
func (s *ReceiptService) Generate(ctx context.Context, orderID uint) (string, error) {
	txn := s.tracer.StartTransaction("generate-receipt")
	defer s.tracer.EndTransaction(txn)

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", faults.NotFound("order", orderID)
		}
		s.tracer.RecordError(txn, err)
		return "", faults.Unavailable("order store", err)
	}
	if order.Status != models.OrderStatusPaid {
		return "", faults.NotFound("paid order", orderID)
	}

	key := fmt.Sprintf("receipt-%d.txt", order.ID)
	url, err := s.store.Store(ctx, key, []byte(renderReceipt(order)))
	if err != nil {
		s.tracer.RecordError(txn, err)
		return "", errors.Wrap(err, "failed to store receipt artifact")
	}

	s.metrics.IncrementCounter(metrics.ReceiptsGenerated)
	log.Info().Uint("order_id", order.ID).Str("url", url).Msg("Receipt generated")

	return url, nil
}

// renderReceipt produces the plain-text receipt artifact.
func renderReceipt(order *models.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "RECEIPT - Order #%d\n", order.ID)
	fmt.Fprintf(&b, "Placed: %s\n", order.CreatedAt.UTC().Format(time.RFC1123))
	if order.User.Email != "" {
		fmt.Fprintf(&b, "Customer: %s\n", order.User.Email)
	}
	fmt.Fprintf(&b, "Deliver to: %s\n", order.Postcode)
	b.WriteString("\n")

	for _, item := range order.Items {
		name := item.MenuItem.Name
		if name == "" {
			name = fmt.Sprintf("item %d", item.MenuItemID)
		}
		lineTotal := item.UnitPricePence * money.Pence(item.Quantity)
		fmt.Fprintf(&b, "%3d x %-30s %10s\n", item.Quantity, name, lineTotal.String())
	}

	b.WriteString(strings.Repeat("-", 48) + "\n")
	fmt.Fprintf(&b, "TOTAL %42s\n", order.Total().String())

	return b.String()
}
