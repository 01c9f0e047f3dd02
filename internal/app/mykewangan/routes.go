package mykewangan

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/http/handlers/cron/autoreport"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/http/handlers/cron/downgrade"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/http/handlers/health"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/http/handlers/paymentcallback"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/http/handlers/telegramwebhook"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/http/middlewarectx"
	botservice "github.com/bosskutradingaplikasi-boop/MyKewangan/internal/services/bot"
	paymentservice "github.com/bosskutradingaplikasi-boop/MyKewangan/internal/services/payment"
	reportservice "github.com/bosskutradingaplikasi-boop/MyKewangan/internal/services/report"
	subscriptionservice "github.com/bosskutradingaplikasi-boop/MyKewangan/internal/services/subscription"
)

// RegisterRoutes registers all routes of the HTTP process.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	botService *botservice.BotService,
	paymentService *paymentservice.PaymentService,
	subscriptionService *subscriptionservice.SubscriptionService,
	reportService *reportservice.ReportService) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	// Inbound webhooks from Telegram and toyyibpay.
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger))
		r.Post("/telegram", telegramwebhook.New(logger, botService).ServeHTTP)
		r.Post("/webhook/toyyibpay", paymentcallback.New(logger, paymentService).ServeHTTP)
	})

	// Endpoints hit by the external cron scheduler.
	r.Route("/api/cron", func(r chi.Router) {
		r.Get("/downgrade_users", downgrade.New(logger, subscriptionService).ServeHTTP)
		r.Get("/auto_reports", autoreport.New(logger, reportService).ServeHTTP)
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
}
