package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"example.com/restaurant/services/ordering/config"
	"example.com/restaurant/services/ordering/internal/api"
	"example.com/restaurant/services/ordering/internal/cache"
	"example.com/restaurant/services/ordering/internal/eventlog"
	"example.com/restaurant/services/ordering/internal/messaging"
	"example.com/restaurant/services/ordering/internal/metrics"
	"example.com/restaurant/services/ordering/internal/models"
	"example.com/restaurant/services/ordering/internal/payments"
	"example.com/restaurant/services/ordering/internal/postcode"
	"example.com/restaurant/services/ordering/internal/repositories"
	"example.com/restaurant/services/ordering/internal/services"
	"example.com/restaurant/services/ordering/internal/session"
	"example.com/restaurant/services/ordering/internal/storage"
	"example.com/restaurant/services/ordering/internal/tracing"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the web server",
	Long:  `Start the HTTP server: storefront pages, admin pages and the JSON menu API`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
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

	// Initialize the database
	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}

	// Initialize the session cache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		return errors.Wrap(err, "failed to initialize Redis, sessions need it")
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

	// Initialize the receipt queue publisher. Checkout treats it as best
	// effort, so a missing queue only costs receipts.
	var receipts messaging.ReceiptPublisher
	if cfg.Azure.QueueConnStr != "" {
		bus, err := messaging.NewAzureServiceBus(cfg.Azure)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Service Bus, continuing without receipts")
		} else {
			receipts = bus
			defer bus.Close()
		}
	}

	// Initialize metrics
	metricsCollector := metrics.NewMetrics()

	// Initialize storage
	imageFiles, err := storage.NewFileStore(cfg.Storage.ImagePath, "/static/images")
	if err != nil {
		return err
	}

	// Initialize repositories and services
	userRepo := repositories.NewUserRepository(db)
	menuRepo := repositories.NewMenuRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	summaryRepo := repositories.NewSummaryRepository(db)

	simulator := payments.NewSimulator(cfg.Payment)
	postcodes := postcode.NewChecker(cfg.Checkout.ServiceablePrefixes)

	deps := api.Deps{
		Accounts: services.NewAccountService(userRepo),
		Catalog:  services.NewCatalogService(menuRepo),
		Checkout: services.NewCheckoutService(
			menuRepo, orderRepo, eventLog, simulator, postcodes,
			receipts, metricsCollector, tracer),
		Summaries: services.NewSummaryService(eventLog, summaryRepo, metricsCollector, tracer),
		Orders:    orderRepo,
		Sessions:  session.NewStore(redisCache, cfg.SessionSecure),
		Images:    storage.NewImageStore(imageFiles),
		Postcodes: postcodes,
		Metrics:   metricsCollector,
		Tracer:    tracer,
	}

	// Initialize and start the server
	server := api.NewServer(cfg, deps)

	// Start the server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	// Shutdown the server
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down web server")
	return nil
}

func initDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := models.SetupModels(db); err != nil {
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	// Configure the connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying DB connection")
	}
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	return db, nil
}
