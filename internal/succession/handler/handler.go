package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	ledgermodels "sangha/internal/ledger/models"
	"sangha/internal/succession/service"
	"sangha/pkg/domain"
	"sangha/pkg/platform/httputil"
	"sangha/pkg/requestcontext"
)

type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/succession/appointments", h.appoint)
	r.Post("/succession/removals", h.remove)
	r.Post("/succession/replacements", h.replace)

	r.Get("/people/{personID}/transitions", h.transitions)
	r.Get("/people/{personID}/replacements", h.replacements)
}

type appointRequest struct {
	PersonID   string `json:"person_id"`
	Role       string `json:"role"`
	ScopeValue string `json:"scope_value"`
	SuperiorID string `json:"superior_id"`
}

func (h *Handler) appoint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[appointRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	personID, err := domain.ParsePersonID(req.PersonID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	input := service.AppointInput{PersonID: personID, Role: role, ScopeValue: req.ScopeValue}
	if req.SuperiorID != "" {
		superiorID, err := domain.ParsePersonID(req.SuperiorID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		input.SuperiorID = &superiorID
	}

	record, err := h.service.Appoint(ctx, input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

type removeRequest struct {
	PersonID string `json:"person_id"`
	Reason   string `json:"reason"`
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[removeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	personID, err := domain.ParsePersonID(req.PersonID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reason := ledgermodels.ReasonRemoval
	if req.Reason != "" {
		if reason, err = ledgermodels.ParseReason(req.Reason); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	record, err := h.service.Remove(ctx, personID, reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

type replaceRequest struct {
	VacatingID  string `json:"vacating_id"`
	SuccessorID string `json:"successor_id"`
}

func (h *Handler) replace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[replaceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	vacatingID, err := domain.ParsePersonID(req.VacatingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	successorID, err := domain.ParsePersonID(req.SuccessorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Replace(ctx, vacatingID, successorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) transitions(w http.ResponseWriter, r *http.Request) {
	personID, err := domain.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.service.History(r.Context(), personID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) replacements(w http.ResponseWriter, r *http.Request) {
	personID, err := domain.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	candidates, err := h.service.Replacements(r.Context(), personID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, candidates)
}
