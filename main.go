package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"

	"marketplace/internal/app"
	"marketplace/internal/config"
	"marketplace/internal/logging"
	"marketplace/internal/repositories"
	"marketplace/internal/seed"
	"marketplace/internal/services"
	"marketplace/pkg/rabbitmq"
)

var (
	// Global flags
	envFile  string
	seedDemo bool

	cfg    config.Config
	logger *zap.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "marketplace",
		Short: "Multi-vendor marketplace API with tiered pricing",
		Long: `Runs the marketplace HTTP API. Sellers publish products with quantity
price tiers, customers place orders, and admins manage the platform.

Configuration comes from the environment (optionally a .env file).
Run without a subcommand to start the server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			var err error
			cfg, err = config.Load(viper.New())
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger, err = logging.New(cfg.Env, cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: runServe,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.Flags().BoolVar(&seedDemo, "seed", false, "seed demo data into an empty store on startup")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().BoolVar(&seedDemo, "seed", false, "seed demo data into an empty store on startup")

	root.AddCommand(
		serveCmd,
		&cobra.Command{
			Use:   "migrate",
			Short: "Create tables or indexes for the configured store",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Load demo accounts and products into an empty store",
			RunE:  runSeed,
		},
		&cobra.Command{
			Use:   "consume",
			Short: "Log order events from the RabbitMQ queue",
			RunE:  runConsume,
		},
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore(ctx context.Context) (*repositories.Store, error) {
	store, err := repositories.Open(ctx, repositories.StoreOptions{
		Driver:        cfg.StoreDriver,
		DSN:           cfg.DatabaseDSN,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("failed to migrate %s store: %w", cfg.StoreDriver, err)
	}
	return store, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	images, err := app.NewLocalImageStore(cfg)
	if err != nil {
		return err
	}

	// --- Initialize RabbitMQ Client ---
	var publisher services.EventPublisher
	if cfg.EventsEnabled() {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.RabbitMQURL,
			Exchange: cfg.OrderExchange,
			Queue:    cfg.OrderQueue,
		}, logger.Named("rabbitmq"))
		if err != nil {
			return err
		}
		defer mqClient.Close()
		publisher = mqClient
	} else {
		logger.Info("RABBITMQ_URL not set, order events are disabled")
	}

	svc := app.NewServices(cfg, store, images, publisher, logger)
	if seedDemo {
		if _, err := seed.Run(ctx, svc.Users, svc.Products, logger.Named("seed")); err != nil {
			return err
		}
	}
	server := app.New(cfg, svc, store.Ping, logger)

	logger.Info("starting server", zap.String("addr", cfg.Port), zap.String("store", cfg.StoreDriver))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(cfg.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	store, err := openStore(context.Background())
	if err != nil {
		return err
	}
	logger.Info("store migrated", zap.String("store", cfg.StoreDriver))
	return store.Close(context.Background())
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	if cfg.StoreDriver == "memory" {
		logger.Warn("seeding the memory store has no effect beyond this process")
	}
	svc := app.NewServices(cfg, store, nil, nil, logger)
	res, err := seed.Run(ctx, svc.Users, svc.Products, logger.Named("seed"))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users and %d products (skipped: %t)\n", res.Users, res.Products, res.Skipped)
	return nil
}

func runConsume(cmd *cobra.Command, _ []string) error {
	if !cfg.EventsEnabled() {
		return errors.New("RABBITMQ_URL is required to consume order events")
	}
	mqClient, err := rabbitmq.NewClient(rabbitmq.Config{
		URL:      cfg.RabbitMQURL,
		Exchange: cfg.OrderExchange,
		Queue:    cfg.OrderQueue,
	}, logger.Named("rabbitmq"))
	if err != nil {
		return err
	}
	defer mqClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return mqClient.Consume(ctx, logOrderEvent(logger.Named("events")))
}

// logOrderEvent decodes order events and logs them. Undecodable messages are
// reported to the consumer so they are nacked.
func logOrderEvent(log *zap.Logger) rabbitmq.Handler {
	return func(_ context.Context, msg amqp.Delivery) error {
		var event services.OrderEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			return fmt.Errorf("decode %s: %w", msg.RoutingKey, err)
		}
		log.Info("order event",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.String("customer_id", event.CustomerID),
			zap.String("status", string(event.Status)),
			zap.String("previous_status", string(event.PreviousStatus)),
			zap.String("total_amount", event.TotalAmount.String()),
			zap.Int("item_count", event.ItemCount),
			zap.Time("occurred_at", event.OccurredAt))
		return nil
	}
}
