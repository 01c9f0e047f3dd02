// Package autoreport exposes the daily auto-report fan-out to the external
// cron scheduler.
package autoreport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/http/response"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/lib/sl"
)

type Service interface {
	QueueDailyReports(ctx context.Context) (int, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cron.autoreport"
	log := h.log.With(slog.String("op", op))

	count, err := h.service.QueueDailyReports(r.Context())
	if err != nil {
		log.Error("failed to queue daily reports", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to queue daily reports"))
		return
	}

	log.Info("daily reports queued", slog.Int("queued", count))
	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"queued": count,
	}))
}
