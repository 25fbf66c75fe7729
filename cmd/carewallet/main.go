package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/carelink/carewallet/internal/accounts"
	"github.com/carelink/carewallet/internal/commission"
	"github.com/carelink/carewallet/internal/config"
	"github.com/carelink/carewallet/internal/events"
	"github.com/carelink/carewallet/internal/gateway"
	"github.com/carelink/carewallet/internal/http_api"
	"github.com/carelink/carewallet/internal/metrics"
	"github.com/carelink/carewallet/internal/models"
	"github.com/carelink/carewallet/internal/notificator"
	"github.com/carelink/carewallet/internal/overview"
	"github.com/carelink/carewallet/internal/repository"
	"github.com/carelink/carewallet/internal/scheduler"
	"github.com/carelink/carewallet/internal/subscription"
	"github.com/carelink/carewallet/internal/wallet"
	"github.com/carelink/carewallet/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "carewallet",
		Usage: "Provider wallet, withdrawal settlement and subscription billing service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.IntFlag{Name: "api-port", Aliases: []string{"a"}, Usage: "HTTP API port"},
			&cli.StringFlag{Name: "gateway-base-url", Usage: "Payment gateway API base URL"},
			&cli.StringFlag{Name: "rabbitmq-url", Usage: "RabbitMQ URL for domain events"},
			&cli.StringFlag{Name: "expiry-schedule", Usage: "Cron spec of the subscription expiry sweep"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: func(c *cli.Context) error {
			return serve(c)
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the background scheduler",
				Action: serve,
			},
			{
				Name:   "expire-subscriptions",
				Usage:  "Expire every subscription whose period has ended, then exit",
				Action: expireSubscriptions,
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Override with flags if set
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("gateway-base-url") {
		cfg.GatewayBaseURL = c.String("gateway-base-url")
	}
	if c.IsSet("rabbitmq-url") {
		cfg.RabbitMQURL = c.String("rabbitmq-url")
	}
	if c.IsSet("expiry-schedule") {
		cfg.ExpirySweepSchedule = c.String("expiry-schedule")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds the wired services shared by every command.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *repository.DB
	metrics *metrics.Metrics
	events  models.EventPublisher

	wallet        *wallet.Service
	subscriptions *subscription.Service
	overview      *overview.Service
}

func newApp(ctx context.Context, c *cli.Context) (*app, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize database
	db, err := repository.NewPostgresDB(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var publisher models.EventPublisher
	if cfg.RabbitMQURL != "" {
		producer, err := events.NewEventProducer(cfg.RabbitMQURL, cfg.EventsExchange)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize event producer: %w", err)
		}
		publisher = producer
	} else {
		log.Warn("RABBITMQ_URL not set, domain events will only be logged")
		publisher = events.NewEventProducerFallback(log)
	}

	var notifier models.OperatorNotifier = notificator.Noop{}
	if cfg.TelegramBotToken != "" && cfg.TelegramAdminChatID != "" {
		telegram, err := notificator.NewTelegramNotificator(ctx, log, cfg.TelegramBotToken)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telegram notificator: %w", err)
		}
		notifier = notificator.NewNotificator(log, telegram, cfg.TelegramAdminChatID)
	}

	// Validate only lets an empty directory URL through in development mode.
	var directory models.AccountDirectory = accounts.StaticDirectory{}
	if cfg.AccountDirectoryURL != "" {
		directory = accounts.NewHTTPDirectory(cfg.AccountDirectoryURL, cfg.AccountCacheTTL, log)
	} else {
		log.Warn("ACCOUNT_DIRECTORY_URL not set, development mode treats every account as approved")
	}

	rates, err := cfg.Rates()
	if err != nil {
		return nil, err
	}
	m := metrics.New()

	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		metrics: m,
		events:  publisher,
		wallet:  wallet.NewService(db, commission.NewCalculator(rates), publisher, notifier, m, cfg.Currency, log),
		subscriptions: subscription.NewService(
			db,
			gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, log),
			directory,
			publisher,
			notifier,
			m,
			log,
		),
		overview: overview.NewService(db, log),
	}, nil
}

func (a *app) close() {
	a.events.Close()
	if err := a.db.Close(); err != nil {
		a.log.Errorw("Failed to close database", "error", err)
	}
	_ = a.log.Sync()
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.close()

	tiers, err := config.ParseTiers(a.cfg.SubscriptionTiers)
	if err != nil {
		return err
	}
	if _, _, err := a.subscriptions.SeedPlan(ctx, a.cfg.SubscriptionPlanName, a.cfg.Currency, tiers); err != nil {
		return fmt.Errorf("failed to seed subscription plan: %w", err)
	}

	sched, err := scheduler.New(a.cfg.ExpirySweepSchedule, a.db, a.subscriptions, a.cfg.InstanceID, a.log)
	if err != nil {
		return err
	}
	sched.Start()

	apiServer := http_api.NewHTTPServer(a.wallet, a.subscriptions, a.overview, a.metrics, http_api.Options{
		Port:           a.cfg.APIPort,
		JWTSecret:      a.cfg.JWTSecret,
		InternalAPIKey: a.cfg.InternalAPIKey,
		RequestTimeout: a.cfg.RequestTimeout,
	}, a.log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		a.log.Info("Shutdown signal received")
		err = apiServer.Shutdown()
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), http_api.ShutdownTimeout)
	defer cancel()
	sched.Stop(stopCtx)
	return err
}

func expireSubscriptions(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(c.Context, scheduler.DefaultTimeout)
	defer cancel()

	a, err := newApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := scheduler.New(a.cfg.ExpirySweepSchedule, a.db, a.subscriptions, a.cfg.InstanceID, a.log)
	if err != nil {
		return err
	}
	ran, n, err := sched.RunExpirySweep(ctx)
	if err != nil {
		return err
	}
	if !ran {
		a.log.Info("Another instance holds the expiry sweep lease, nothing done")
		return nil
	}
	a.log.Infow("Expiry sweep finished", "expired", n)
	return nil
}
