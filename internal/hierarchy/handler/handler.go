package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sangha/internal/hierarchy/service"
	"sangha/pkg/platform/httputil"
)

type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/hierarchy/chart", h.chart)
}

func (h *Handler) chart(w http.ResponseWriter, r *http.Request) {
	chart, err := h.service.Chart(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "serve hierarchy chart", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, chart)
}
