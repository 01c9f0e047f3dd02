// Package downgrade exposes the subscription expiry sweep to the external
// cron scheduler.
package downgrade

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/http/response"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/lib/sl"
)

type Service interface {
	SweepExpirations(ctx context.Context, now time.Time) (int, error)
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
	const op = "handlers.cron.downgrade"
	log := h.log.With(slog.String("op", op))

	count, err := h.service.SweepExpirations(r.Context(), time.Now().UTC())
	if err != nil {
		log.Error("failed to sweep expired subscriptions", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to sweep expired subscriptions"))
		return
	}

	log.Info("expiry sweep completed", slog.Int("downgraded", count))
	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"downgraded": count,
	}))
}
