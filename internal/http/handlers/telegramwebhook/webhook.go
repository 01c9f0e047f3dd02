// Package telegramwebhook receives Telegram update deliveries and hands
// them to the command router.
package telegramwebhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/lib/sl"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/telegram"
)

type Service interface {
	HandleUpdate(ctx context.Context, upd *telegram.Update)
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

// ServeHTTP always answers 200 once the body decodes: Telegram redelivers
// on non-2xx and per-update failures are already handled downstream.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.telegramwebhook"
	log := h.log.With(slog.String("op", op))

	var upd telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		log.Error("failed to decode update", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	h.service.HandleUpdate(r.Context(), &upd)
	w.WriteHeader(http.StatusOK)
}
