package services

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/restaurant/services/ordering/internal/eventlog"
	"example.com/restaurant/services/ordering/internal/metrics"
	"example.com/restaurant/services/ordering/internal/models"
	"example.com/restaurant/services/ordering/internal/tracing"
)

type MockTrailOrders struct {
	mock.Mock
}

func (m *MockTrailOrders) ListIncompleteTrails(ctx context.Context, limit int) ([]models.Order, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockTrailOrders) MarkTrailComplete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func incompleteOrder(status string) models.Order {
	return models.Order{
		ID:            42,
		CreatedAt:     time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2026, 8, 28, 12, 0, 1, 0, time.UTC),
		Status:        status,
		Postcode:      "SW1A 1AA",
		TrailComplete: false,
		Items: []models.OrderItem{
			{MenuItemID: 1, Quantity: 2, UnitPricePence: 500},
		},
	}
}

func TestReconcileReappendsMissingEvents(t *testing.T) {
	mockOrders := new(MockTrailOrders)
	mockEvents := new(MockEventLog)

	order := incompleteOrder(models.OrderStatusPaid)
	mockOrders.On("ListIncompleteTrails", mock.Anything, 100).Return([]models.Order{order}, nil)
	mockOrders.On("MarkTrailComplete", mock.Anything, uint(42)).Return(nil)

	// Only the created event landed; the other two are missing
	mockEvents.On("EventsForOrder", mock.Anything, uint(42)).Return([]eventlog.OrderEvent{
		{OrderID: 42, Seq: 1, Type: eventlog.EventCreated},
	}, nil)
	mockEvents.On("Append", mock.Anything, mock.AnythingOfType("eventlog.OrderEvent")).Return(nil)

	service := NewReconcileService(mockOrders, mockEvents, metrics.NewMetrics(), &tracing.NewRelicTracer{})

	require.NoError(t, service.Run(context.Background()))

	// Seq 2 and 3 were re-appended, seq 1 was left alone
	var appended []string
	for _, call := range mockEvents.Calls {
		if call.Method == "Append" {
			appended = append(appended, call.Arguments.Get(1).(eventlog.OrderEvent).Type)
		}
	}
	require.Equal(t, []string{eventlog.EventPaymentAttempted, eventlog.EventPaymentSucceeded}, appended)

	mockOrders.AssertCalled(t, "MarkTrailComplete", mock.Anything, uint(42))
}

func TestReconcileFailedOrderGetsFailedTerminalEvent(t *testing.T) {
	mockOrders := new(MockTrailOrders)
	mockEvents := new(MockEventLog)

	order := incompleteOrder(models.OrderStatusFailed)
	mockOrders.On("ListIncompleteTrails", mock.Anything, 100).Return([]models.Order{order}, nil)
	mockOrders.On("MarkTrailComplete", mock.Anything, uint(42)).Return(nil)
	mockEvents.On("EventsForOrder", mock.Anything, uint(42)).Return([]eventlog.OrderEvent{}, nil)
	mockEvents.On("Append", mock.Anything, mock.Anything).Return(nil)

	service := NewReconcileService(mockOrders, mockEvents, metrics.NewMetrics(), &tracing.NewRelicTracer{})

	require.NoError(t, service.Run(context.Background()))

	last := mockEvents.Calls[len(mockEvents.Calls)-1].Arguments.Get(1).(eventlog.OrderEvent)
	require.Equal(t, eventlog.EventPaymentFailed, last.Type)
}

func TestReconcileLeavesFlagOnAppendFailure(t *testing.T) {
	mockOrders := new(MockTrailOrders)
	mockEvents := new(MockEventLog)

	order := incompleteOrder(models.OrderStatusPaid)
	mockOrders.On("ListIncompleteTrails", mock.Anything, 100).Return([]models.Order{order}, nil)
	mockEvents.On("EventsForOrder", mock.Anything, uint(42)).Return([]eventlog.OrderEvent{}, nil)
	mockEvents.On("Append", mock.Anything, mock.Anything).Return(errors.New("es down"))

	service := NewReconcileService(mockOrders, mockEvents, metrics.NewMetrics(), &tracing.NewRelicTracer{})

	require.NoError(t, service.Run(context.Background()))

	mockOrders.AssertNotCalled(t, "MarkTrailComplete", mock.Anything, mock.Anything)
}

func TestReconcileWithNothingToDo(t *testing.T) {
	mockOrders := new(MockTrailOrders)
	mockEvents := new(MockEventLog)

	mockOrders.On("ListIncompleteTrails", mock.Anything, 100).Return([]models.Order{}, nil)

	service := NewReconcileService(mockOrders, mockEvents, metrics.NewMetrics(), &tracing.NewRelicTracer{})

	require.NoError(t, service.Run(context.Background()))
	mockEvents.AssertNotCalled(t, "EventsForOrder", mock.Anything, mock.Anything)
}
