package services

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/restaurant/services/ordering/internal/eventlog"
	"example.com/restaurant/services/ordering/internal/faults"
	"example.com/restaurant/services/ordering/internal/metrics"
	"example.com/restaurant/services/ordering/internal/models"
	"example.com/restaurant/services/ordering/internal/money"
	"example.com/restaurant/services/ordering/internal/tracing"
)

type MockSummaries struct {
	mock.Mock
}

func (m *MockSummaries) Upsert(ctx context.Context, summary *models.SalesSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

func paidEvent(orderID uint, totalPence int64, ts time.Time) eventlog.OrderEvent {
	return eventlog.OrderEvent{
		OrderID:   orderID,
		Seq:       3,
		Type:      eventlog.EventPaymentSucceeded,
		Timestamp: ts,
		Payload:   map[string]interface{}{eventlog.PayloadTotalKey: totalPence},
	}
}

func TestRunForDateSumsPaidOrders(t *testing.T) {
	mockEvents := new(MockEventLog)
	mockSummaries := new(MockSummaries)

	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	mockEvents.On("PaymentsSucceededOn", mock.Anything, mock.Anything).Return([]eventlog.OrderEvent{
		paidEvent(1, 1350, day.Add(10*time.Hour)),
		paidEvent(2, 2000, day.Add(20*time.Hour)),
	}, nil)
	mockSummaries.On("Upsert", mock.Anything, mock.AnythingOfType("*models.SalesSummary")).Return(nil)

	service := NewSummaryService(mockEvents, mockSummaries, metrics.NewMetrics(), &tracing.NewRelicTracer{})

	summary, err := service.RunForDate(context.Background(), day)

	require.NoError(t, err)
	require.Equal(t, "2026-08-28", summary.Date)
	require.Equal(t, money.Pence(3350), summary.TotalRevenuePence)
	require.Equal(t, 2, summary.OrderCount)

	mockSummaries.AssertExpectations(t)
}

func TestRunForDateTwiceWritesIdenticalRows(t *testing.T) {
	mockEvents := new(MockEventLog)
	mockSummaries := new(MockSummaries)

	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	mockEvents.On("PaymentsSucceededOn", mock.Anything, mock.Anything).Return([]eventlog.OrderEvent{
		paidEvent(1, 1350, day.Add(10*time.Hour)),
		paidEvent(2, 2000, day.Add(20*time.Hour)),
	}, nil)

	var upserted []models.SalesSummary
	mockSummaries.On("Upsert", mock.Anything, mock.AnythingOfType("*models.SalesSummary")).
		Run(func(args mock.Arguments) {
			upserted = append(upserted, *args.Get(1).(*models.SalesSummary))
		}).
		Return(nil)

	service := NewSummaryService(mockEvents, mockSummaries, metrics.NewMetrics(), &tracing.NewRelicTracer{})

	first, err := service.RunForDate(context.Background(), day)
	require.NoError(t, err)
	second, err := service.RunForDate(context.Background(), day)
	require.NoError(t, err)

	// A rerun recomputes from the event log, it never accumulates on top of
	// the previous row.
	require.Equal(t, first.TotalRevenuePence, second.TotalRevenuePence)
	require.Equal(t, first.OrderCount, second.OrderCount)

	require.Len(t, upserted, 2)
	require.Equal(t, upserted[0].Date, upserted[1].Date)
	require.Equal(t, upserted[0].TotalRevenuePence, upserted[1].TotalRevenuePence)
	require.Equal(t, upserted[0].OrderCount, upserted[1].OrderCount)
	require.Equal(t, money.Pence(3350), upserted[1].TotalRevenuePence)
	require.Equal(t, 2, upserted[1].OrderCount)
}

func TestRunForDateWithNoSalesWritesZeroRow(t *testing.T) {
	mockEvents := new(MockEventLog)
	mockSummaries := new(MockSummaries)

	mockEvents.On("PaymentsSucceededOn", mock.Anything, mock.Anything).Return([]eventlog.OrderEvent{}, nil)
	mockSummaries.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	service := NewSummaryService(mockEvents, mockSummaries, metrics.NewMetrics(), &tracing.NewRelicTracer{})

	summary, err := service.RunForDate(context.Background(), time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	require.Equal(t, money.Pence(0), summary.TotalRevenuePence)
	require.Equal(t, 0, summary.OrderCount)
}

func TestRunForDateEventLogDownWritesNothing(t *testing.T) {
	mockEvents := new(MockEventLog)
	mockSummaries := new(MockSummaries)

	mockEvents.On("PaymentsSucceededOn", mock.Anything, mock.Anything).Return(nil, errors.New("es down"))

	service := NewSummaryService(mockEvents, mockSummaries, metrics.NewMetrics(), &tracing.NewRelicTracer{})

	_, err := service.RunForDate(context.Background(), time.Now().UTC())

	require.Error(t, err)
	require.True(t, faults.IsUnavailable(err))
	mockSummaries.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}
