package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/restaurant/services/ordering/config"
	"example.com/restaurant/services/ordering/internal/eventlog"
	"example.com/restaurant/services/ordering/internal/messaging"
	"example.com/restaurant/services/ordering/internal/metrics"
	"example.com/restaurant/services/ordering/internal/repositories"
	"example.com/restaurant/services/ordering/internal/services"
	"example.com/restaurant/services/ordering/internal/storage"
	"example.com/restaurant/services/ordering/internal/tracing"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker: receipt generation, nightly sales summaries and event trail reconciliation`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	// Initialize the database
	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = &tracing.NewRelicTracer{}
	}

	// Initialize the order event log
	eventLog, err := eventlog.NewElasticLog(cfg.Elastic)
	if err != nil {
		return errors.Wrap(err, "failed to initialize the order event log")
	}

	// Initialize metrics
	metricsCollector := metrics.NewMetrics()

	// Initialize receipt storage
	receiptFiles, err := storage.NewFileStore(cfg.Storage.ReceiptPath, cfg.Storage.BaseURL)
	if err != nil {
		return err
	}

	// Initialize repositories and services
	orderRepo := repositories.NewOrderRepository(db)
	summaryRepo := repositories.NewSummaryRepository(db)

	receiptService := services.NewReceiptService(orderRepo, receiptFiles, metricsCollector, tracer)
	summaryService := services.NewSummaryService(eventLog, summaryRepo, metricsCollector, tracer)
	reconcileService := services.NewReconcileService(orderRepo, eventLog, metricsCollector, tracer)

	// Initialize Azure Service Bus and start the receipt processor
	azureBus, err := messaging.NewAzureServiceBus(cfg.Azure)
	if err != nil {
		return err
	}
	defer azureBus.Close()

	g.Go(func() error {
		log.Info().Str("queue", cfg.Azure.QueueName).Msg("Starting receipt request processor")
		return azureBus.ProcessReceiptRequests(ctx, func(ctx context.Context, req messaging.ReceiptRequest) error {
			url, err := receiptService.Generate(ctx, req.OrderID)
			if err != nil {
				return err
			}
			log.Info().Uint("order_id", req.OrderID).Str("url", url).Msg("Receipt generated")
			return nil
		})
	})

	// Start the scheduled jobs
	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		// Nightly summary for the previous UTC day
		_, err = scheduler.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(
				gocron.NewAtTime(uint(cfg.Summary.RunAtHour), uint(cfg.Summary.RunAtMinute), 0))),
			gocron.NewTask(func() {
				day := time.Now().UTC().AddDate(0, 0, -1)
				log.Info().Str("date", day.Format(services.SummaryDateFormat)).Msg("Running nightly sales summary")
				if _, err := summaryService.RunForDate(ctx, day); err != nil {
					log.Error().Err(err).Msg("Nightly sales summary failed")
				}
			}),
		)
		if err != nil {
			return err
		}

		// Event trail reconciliation, a fallback for partial writes
		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Summary.ReconcileInterval),
			gocron.NewTask(func() {
				if err := reconcileService.Run(ctx); err != nil {
					log.Error().Err(err).Msg("Event trail reconciliation failed")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		return scheduler.Shutdown()
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
