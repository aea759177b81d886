package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/config"
	"github.com/cuongbtq/signup-harvester/internal/identity"
	"github.com/cuongbtq/signup-harvester/internal/mailbox"
	"github.com/cuongbtq/signup-harvester/internal/metrics"
	"github.com/cuongbtq/signup-harvester/internal/pipeline"
	"github.com/cuongbtq/signup-harvester/internal/registration"
	"github.com/cuongbtq/signup-harvester/internal/results"
	"github.com/cuongbtq/signup-harvester/shared/logger"
	"github.com/cuongbtq/signup-harvester/shared/postgresql"
	"github.com/cuongbtq/signup-harvester/shared/rabbitmq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("PIPELINE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/pipeline/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-config path] [threads signups-per-thread]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidatePipelineConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	workers, perWorker, err := readCounts(flag.Args(), os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	appLogger, err := logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableSource,
		NoColor:      cfg.Logging.NoColor,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting signup pipeline",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStores, err := initStores(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer closeStores()

	generator, err := identity.NewGenerator(cfg.Identity.EmailDomain, cfg.Identity.Seed)
	if err != nil {
		return fmt.Errorf("failed to initialize address generator: %w", err)
	}

	registrar, err := registration.NewHTTPRegistrar(&registration.Config{
		Endpoint:  cfg.Registration.Endpoint,
		Field:     cfg.Registration.Field,
		Encoding:  cfg.Registration.Encoding,
		Headers:   cfg.Registration.Headers,
		UserAgent: cfg.Registration.UserAgent,
		Timeout:   cfg.Registration.Timeout,
	}, appLogger.Component("registration"))
	if err != nil {
		return fmt.Errorf("failed to initialize registrar: %w", err)
	}

	finder, err := mailbox.NewIMAPFinder(&mailbox.Config{
		Server:      cfg.Mailbox.Server,
		Username:    cfg.Mailbox.Username,
		Password:    cfg.Mailbox.Password,
		Mailbox:     cfg.Mailbox.Mailbox,
		From:        cfg.Mailbox.From,
		Subject:     cfg.Mailbox.Subject,
		CodePattern: cfg.Mailbox.CodePattern,
		Timeout:     cfg.Mailbox.Timeout,
	}, appLogger.Component("mailbox"))
	if err != nil {
		return fmt.Errorf("failed to initialize mailbox: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p, err := pipeline.New(&pipeline.Config{
		Logger:                     appLogger.Component("pipeline"),
		Generator:                  generator,
		Registrar:                  registrar,
		Finder:                     mailbox.NewRateLimited(finder, cfg.Mailbox.RateLimit, cfg.Mailbox.Burst),
		Store:                      store,
		Metrics:                    metrics.New(registry),
		VerificationWorkers:        cfg.Pipeline.VerificationWorkers,
		MaxAttempts:                cfg.Pipeline.MaxAttempts,
		RetryDelay:                 cfg.Pipeline.RetryDelay,
		RetryMode:                  pipeline.RetryMode(cfg.Pipeline.RetryMode),
		RecordRegistrationFailures: cfg.Pipeline.RecordRegistrationFailures,
		PersistAttempts:            cfg.Pipeline.PersistAttempts,
		PersistRetryDelay:          cfg.Pipeline.PersistRetryDelay,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	g, gctx := errgroup.WithContext(runCtx)

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Metrics.ListenAddr, registry, appLogger.Logger)
		})
	}

	var summary *pipeline.Summary
	g.Go(func() error {
		defer cancelRun()

		var runErr error
		summary, runErr = p.Run(gctx, workers, perWorker)
		if errors.Is(runErr, context.Canceled) {
			appLogger.Warn("Pipeline interrupted")
			return nil
		}
		return runErr
	})

	err = g.Wait()
	if summary != nil {
		printSummary(os.Stdout, summary)
	}
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	appLogger.Info("Signup pipeline finished")
	return nil
}

// initStores builds the CSV store plus the optional Postgres and RabbitMQ
// sinks. The returned func closes the stores and their connections.
func initStores(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (results.Store, func(), error) {
	var (
		stores  []results.Store
		closers []func() error
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				appLogger.Warn("Failed to close resource", slog.Any("error", err))
			}
		}
	}

	csvStore := results.NewCSVStore(cfg.Results.CSVPath, appLogger.Component("csv"))
	stores = append(stores, csvStore)
	closers = append(closers, csvStore.Close)

	if cfg.Results.PostgresEnabled {
		db := cfg.Database
		dbClient, err := postgresql.NewClient(ctx, &postgresql.Config{
			Host:            db.Host,
			Port:            db.Port,
			User:            db.User,
			Password:        db.Password,
			Database:        db.Database,
			SSLMode:         db.SSLMode,
			MaxOpenConns:    db.MaxOpenConns,
			MaxIdleConns:    db.MaxIdleConns,
			ConnMaxLifetime: db.ConnMaxLifetime,
			ConnMaxIdleTime: db.ConnMaxIdleTime,
		}, appLogger.Logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		closers = append(closers, dbClient.Close)
		stores = append(stores, results.NewPostgresStore(dbClient.GetDB(), appLogger.Component("postgres")))
	}

	if cfg.Results.RabbitMQEnabled {
		mq := cfg.RabbitMQ
		rabbitClient, err := rabbitmq.NewClient(&rabbitmq.Config{
			Host:               mq.Host,
			Port:               mq.Port,
			User:               mq.User,
			Password:           mq.Password,
			VHost:              mq.VHost,
			ExchangeName:       mq.Exchange.Name,
			ExchangeType:       mq.Exchange.Type,
			ExchangeDurable:    mq.Exchange.Durable,
			ExchangeAutoDelete: mq.Exchange.AutoDelete,
			RoutingKey:         mq.RoutingKey,
			Heartbeat:          mq.Connection.Heartbeat,
			ConnectionTimeout:  mq.Connection.ConnectionTimeout,
			PublishRetries:     mq.Publish.RetryAttempts,
			PublishRetryDelay:  mq.Publish.RetryInterval,
			PublishBackoffMult: mq.Publish.BackoffMultiplier,
		}, appLogger.Logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		closers = append(closers, rabbitClient.Close)
		stores = append(stores, results.NewAMQPStore(rabbitClient, appLogger.Component("amqp")))
	}

	if len(stores) == 1 {
		return csvStore, cleanup, nil
	}
	return results.NewMultiStore(stores...), cleanup, nil
}

// serveMetrics exposes the registry until ctx is done
func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving metrics", slog.String("address", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	return nil
}
