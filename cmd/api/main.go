package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/easyq-dev/easyq-backend/api/routes"
	"github.com/easyq-dev/easyq-backend/internal/notifications"
	"github.com/easyq-dev/easyq-backend/internal/packages"
	"github.com/easyq-dev/easyq-backend/internal/payments"
	"github.com/easyq-dev/easyq-backend/internal/questionsets"
	"github.com/easyq-dev/easyq-backend/internal/subscriptions"
	"github.com/easyq-dev/easyq-backend/pkg/config"
	"github.com/easyq-dev/easyq-backend/pkg/db"
	"github.com/easyq-dev/easyq-backend/pkg/logger"
	"github.com/easyq-dev/easyq-backend/pkg/metrics"
	"github.com/easyq-dev/easyq-backend/pkg/migrate"
	"github.com/easyq-dev/easyq-backend/pkg/redis"
	"github.com/easyq-dev/easyq-backend/pkg/sms"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	billingMetrics := metrics.NewBillingMetrics(registry)

	var textSender notifications.TextSender
	if cfg.SMS.Enabled() {
		smsClient, err := sms.NewClient(cfg.SMS.BaseURL, cfg.SMS.APIKey, cfg.SMS.SenderID, sms.WithTimeout(cfg.SMS.Timeout))
		if err != nil {
			logg.Error(context.Background(), "failed to create sms client", err)
			os.Exit(1)
		}
		textSender = smsClient
	} else {
		logg.Warn(context.Background(), "sms gateway not configured, text notifications disabled")
	}

	var mailSender notifications.MailSender
	if cfg.Mail.Enabled() {
		mailSender = notifications.NewSMTPMailer(cfg.Mail)
	} else {
		logg.Warn(context.Background(), "smtp not configured, mail notifications disabled")
	}

	notifier, err := notifications.NewService(notifications.ServiceParams{
		Mailer: mailSender,
		SMS:    textSender,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	packagesRepo := packages.NewRepository(dbClient.DB())

	packagesService, err := packages.NewService(packages.ServiceParams{
		Repo:   packagesRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create packages service", err)
		os.Exit(1)
	}

	subscriptionsService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:     subscriptions.NewRepository(dbClient.DB()),
		Packages: packagesRepo,
		Tx:       dbClient,
		Notifier: notifier,
		Metrics:  billingMetrics,
		Logger:   logg,
		Billing:  cfg.Billing,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:     payments.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Notifier: notifier,
		Metrics:  billingMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	questionSetsService, err := questionsets.NewService(questionsets.ServiceParams{
		Repo:    questionsets.NewRepository(dbClient.DB()),
		Quota:   subscriptionsService,
		Metrics: billingMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create question sets service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DBPinger:      dbClient,
			RedisPinger:   redisClient,
			Idempotency:   redisClient,
			Registry:      registry,
			Packages:      packagesService,
			Subscriptions: subscriptionsService,
			Payments:      paymentsService,
			QuestionSets:  questionSetsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
