// Package mykewangan wires the HTTP process: storage, cache, broker,
// external clients and the services behind the bot webhook, the payment
// callback and the cron endpoints.
package mykewangan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/billing/toyyibpay"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/cache"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/config"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/lib/sl"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/migrations"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/rabbitmq"
	botservice "github.com/bosskutradingaplikasi-boop/MyKewangan/internal/services/bot"
	paymentservice "github.com/bosskutradingaplikasi-boop/MyKewangan/internal/services/payment"
	reportservice "github.com/bosskutradingaplikasi-boop/MyKewangan/internal/services/report"
	subscriptionservice "github.com/bosskutradingaplikasi-boop/MyKewangan/internal/services/subscription"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/storage/repository"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/telegram"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}
	if err = repository.CheckDatabaseReady(db); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues(), cfg.RabbitMQPrefetch)
	if err != nil {
		conn.Close()
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(ch)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}
	price, err := decimal.NewFromString(cfg.PriceRM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse premium price %q: %w", cfg.PriceRM, err)
	}

	telegramClient := telegram.NewClient(cfg.BotToken)
	billingClient := toyyibpay.NewClient(cfg.SecretKey, cfg.CategoryCode)

	reportService := reportservice.NewReportService(db, publisher, loc, logger)
	subscriptionService := subscriptionservice.NewSubscriptionService(db, publisher, logger, cfg.FreeTransactionLimit)
	paymentService := paymentservice.New(billingClient, db, subscriptionService, cacheRedis, telegramClient,
		paymentservice.Config{
			PriceRM:      price,
			DurationDays: cfg.DurationDays,
			BotUsername:  cfg.BotUsername,
			AppBaseURL:   cfg.AppBaseURL,
		}, logger)
	botService := botservice.New(db, reportService, subscriptionService, paymentService,
		telegramClient, logger, cfg.FreeTransactionLimit, cfg.BotUsername)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, botService, paymentService, subscriptionService, reportService)

	if cfg.AppBaseURL != "" {
		webhookURL := "https://" + cfg.AppBaseURL + "/telegram"
		if err := telegramClient.SetWebhook(ctx, webhookURL); err != nil {
			// The webhook may already point at us; delivery failures will
			// surface in the logs either way.
			logger.Warn("failed to set telegram webhook", slog.String("url", webhookURL), sl.Err(err))
		}
	}

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.ch.Close()
		a.conn.Close()
		a.db.DB.Close()
		return err
	}
}
