package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/restaurant/services/ordering/internal/eventlog"
	"example.com/restaurant/services/ordering/internal/faults"
	"example.com/restaurant/services/ordering/internal/metrics"
	"example.com/restaurant/services/ordering/internal/models"
	"example.com/restaurant/services/ordering/internal/money"
	"example.com/restaurant/services/ordering/internal/tracing"
)

// SummaryDateFormat is the date key for daily summaries.
const SummaryDateFormat = "2006-01-02"

// SummaryUpserter is the slice of the summary repository the job needs.
type SummaryUpserter interface {
	Upsert(ctx context.Context, summary *models.SalesSummary) error
}

// SummaryService computes the daily sales rollup from the event log.
// Re-running a day is a full recompute and overwrite, never an increment,
// so the job is idempotent.
type SummaryService struct {
	events    eventlog.Log
	summaries SummaryUpserter
	metrics   *metrics.Metrics
	tracer    tracing.Tracer
}

// NewSummaryService creates a new summary service
func NewSummaryService(events eventlog.Log, summaries SummaryUpserter, collector *metrics.Metrics, tracer tracing.Tracer) *SummaryService {
	return &SummaryService{
		events:    events,
		summaries: summaries,
		metrics:   collector,
		tracer:    tracer,
	}
}

// RunForDate reads every payment_succeeded event of the given UTC day, sums
// the payload totals and counts orders, then overwrites the day's summary
// row. Nothing is written when the event log is unreachable.
func (s *SummaryService) RunForDate(ctx context.Context, day time.Time) (*models.SalesSummary, error) {
	txn := s.tracer.StartTransaction("daily-sales-summary")
	defer s.tracer.EndTransaction(txn)

	events, err := s.events.PaymentsSucceededOn(ctx, day)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, faults.Unavailable("event log", err)
	}

	var total money.Pence
	count := 0
	for _, event := range events {
		amount, ok := event.Total()
		if !ok {
			log.Warn().
				Uint("order_id", event.OrderID).
				Msg("payment_succeeded event without total payload, skipping")
			continue
		}
		total += amount
		count++
	}

	summary := &models.SalesSummary{
		Date:              day.UTC().Format(SummaryDateFormat),
		TotalRevenuePence: total,
		OrderCount:        count,
	}

	if err := s.summaries.Upsert(ctx, summary); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, faults.Unavailable("order store", err)
	}

	s.metrics.IncrementCounter(metrics.SummariesWritten)
	log.Info().
		Str("date", summary.Date).
		Int64("total_revenue_pence", int64(summary.TotalRevenuePence)).
		Int("order_count", summary.OrderCount).
		Msg("Daily sales summary written")

	return summary, nil
}
