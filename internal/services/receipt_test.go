package services

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"example.com/restaurant/services/ordering/internal/faults"
	"example.com/restaurant/services/ordering/internal/metrics"
	"example.com/restaurant/services/ordering/internal/models"
	"example.com/restaurant/services/ordering/internal/tracing"
)

type MockOrderReader struct {
	mock.Mock
}

func (m *MockOrderReader) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Store(ctx context.Context, key string, data []byte) (string, error) {
	args := m.Called(ctx, key, data)
	return args.String(0), args.Error(1)
}

func paidOrder() *models.Order {
	return &models.Order{
		ID:        42,
		CreatedAt: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
		Status:    models.OrderStatusPaid,
		Postcode:  "SW1A 1AA",
		User:      models.User{Email: "user@example.com"},
		Items: []models.OrderItem{
			{MenuItemID: 1, Quantity: 2, UnitPricePence: 500, MenuItem: models.MenuItem{Name: "Margherita"}},
			{MenuItemID: 2, Quantity: 1, UnitPricePence: 350, MenuItem: models.MenuItem{Name: "Garlic Bread"}},
		},
	}
}

func TestGenerateStoresReceiptForPaidOrder(t *testing.T) {
	mockOrders := new(MockOrderReader)
	mockStore := new(MockObjectStore)

	mockOrders.On("GetByID", mock.Anything, uint(42)).Return(paidOrder(), nil)
	mockStore.On("Store", mock.Anything, "receipt-42.txt", mock.Anything).
		Return("http://localhost:8080/receipts/receipt-42.txt", nil)

	service := NewReceiptService(mockOrders, mockStore, metrics.NewMetrics(), &tracing.NewRelicTracer{})

	url, err := service.Generate(context.Background(), 42)

	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/receipts/receipt-42.txt", url)

	// The artifact lists the items and the order total
	body := string(mockStore.Calls[0].Arguments.Get(2).([]byte))
	require.Contains(t, body, "Order #42")
	require.Contains(t, body, "user@example.com")
	require.Contains(t, body, "Margherita")
	require.Contains(t, body, "Garlic Bread")
	require.Contains(t, body, "£13.50")
}

func TestGenerateRejectsUnpaidOrder(t *testing.T) {
	mockOrders := new(MockOrderReader)
	mockStore := new(MockObjectStore)

	pending := paidOrder()
	pending.Status = models.OrderStatusPending
	mockOrders.On("GetByID", mock.Anything, uint(42)).Return(pending, nil)

	service := NewReceiptService(mockOrders, mockStore, metrics.NewMetrics(), &tracing.NewRelicTracer{})

	_, err := service.Generate(context.Background(), 42)

	require.Error(t, err)
	require.True(t, faults.IsNotFound(err))
	mockStore.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateMissingOrderIsNotFound(t *testing.T) {
	mockOrders := new(MockOrderReader)
	mockOrders.On("GetByID", mock.Anything, uint(9)).Return(nil, errors.Wrap(gorm.ErrRecordNotFound, "failed to get order by ID"))

	service := NewReceiptService(mockOrders, new(MockObjectStore), metrics.NewMetrics(), &tracing.NewRelicTracer{})

	_, err := service.Generate(context.Background(), 9)

	require.Error(t, err)
	require.True(t, faults.IsNotFound(err))
}
