// Package paymentcallback receives toyyibpay payment callbacks.
package paymentcallback

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/http/response"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/lib/sl"
)

type Service interface {
	HandleCallback(ctx context.Context, refNo, status string) error
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// Payload is the form-encoded callback body. The reference arrives in the
// refno field; order_id is kept as a fallback because toyyibpay mirrors the
// reference there too.
type Payload struct {
	RefNo  string `validate:"required"`
	Status string `validate:"required"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.paymentcallback"
	log := h.log.With(slog.String("op", op))

	if err := r.ParseForm(); err != nil {
		log.Error("failed to parse callback form", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid form body"))
		return
	}

	refNo := r.FormValue("refno")
	if refNo == "" {
		refNo = r.FormValue("order_id")
	}
	payload := Payload{
		RefNo:  refNo,
		Status: r.FormValue("status"),
	}
	if err := h.validate.Struct(payload); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			// The gateway retries on non-2xx and an incomplete payload will
			// not improve on retry, so it is logged and acknowledged.
			log.Error("incomplete callback payload acknowledged", sl.Err(err))
			w.WriteHeader(http.StatusOK)
			render.JSON(w, r, response.OK())
			return
		}
		log.Error("failed to validate callback payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid callback payload"))
		return
	}

	if err := h.service.HandleCallback(r.Context(), payload.RefNo, payload.Status); err != nil {
		log.Error("failed to process payment callback", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to process callback"))
		return
	}

	log.Info("payment callback processed", slog.String("refno", payload.RefNo))
	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.OK())
}
