package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sangha/internal/directory/service"
	"sangha/internal/directory/store"
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
	r.Post("/people", h.createPerson)
	r.Get("/people", h.listPeople)
	r.Get("/people/{personID}", h.getPerson)
	r.Put("/people/{personID}", h.updatePerson)

	r.Post("/namahattas", h.createNamahatta)
	r.Get("/namahattas", h.listNamahattas)
	r.Get("/namahattas/{namahattaID}", h.getNamahatta)
}

type personRequest struct {
	DisplayName string `json:"display_name"`
	LegalName   string `json:"legal_name"`
	Email       string `json:"email"`
	District    string `json:"district"`
	State       string `json:"state"`
	NamahattaID string `json:"namahatta_id"`
}

func (r personRequest) toInput() (service.CreatePersonInput, error) {
	input := service.CreatePersonInput{
		DisplayName: r.DisplayName,
		LegalName:   r.LegalName,
		Email:       r.Email,
		District:    r.District,
		State:       r.State,
	}
	if r.NamahattaID != "" {
		id, err := domain.ParseNamahattaID(r.NamahattaID)
		if err != nil {
			return service.CreatePersonInput{}, err
		}
		input.NamahattaID = &id
	}
	return input, nil
}

func (h *Handler) createPerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[personRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	input, err := req.toInput()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	person, err := h.service.CreatePerson(ctx, input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, person)
}

func (h *Handler) updatePerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, err := domain.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[personRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	input, err := req.toInput()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	person, err := h.service.UpdatePerson(ctx, personID, input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, person)
}

func (h *Handler) getPerson(w http.ResponseWriter, r *http.Request) {
	personID, err := domain.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	person, err := h.service.Person(r.Context(), personID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, person)
}

func (h *Handler) listPeople(w http.ResponseWriter, r *http.Request) {
	filter := store.PersonFilter{
		District: r.URL.Query().Get("district"),
		State:    r.URL.Query().Get("state"),
	}
	if raw := r.URL.Query().Get("namahatta_id"); raw != "" {
		id, err := domain.ParseNamahattaID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Namahatta = &id
	}
	people, err := h.service.ListPeople(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, people)
}

type namahattaRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	District string `json:"district"`
	State    string `json:"state"`
}

func (h *Handler) createNamahatta(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[namahattaRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	namahatta, err := h.service.CreateNamahatta(ctx, service.CreateNamahattaInput(req))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, namahatta)
}

func (h *Handler) getNamahatta(w http.ResponseWriter, r *http.Request) {
	namahattaID, err := domain.ParseNamahattaID(chi.URLParam(r, "namahattaID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	namahatta, err := h.service.Namahatta(r.Context(), namahattaID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, namahatta)
}

func (h *Handler) listNamahattas(w http.ResponseWriter, r *http.Request) {
	namahattas, err := h.service.ListNamahattas(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, namahattas)
}
