package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"eventreg/internal/catalog"
	"eventreg/internal/platform/metrics"
	"eventreg/internal/platform/middleware"
	"eventreg/internal/registration"
	"eventreg/internal/transport/http/shared"
	id "eventreg/pkg/domain"
	dErrors "eventreg/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks Service

// Service defines the registration operations the handler delegates to.
type Service interface {
	Submit(ctx context.Context, occurrenceID id.OccurrenceID, selection registration.Selection,
		registrant registration.Registrant, identity *registration.Identity,
		opts ...registration.SubmitOption) (*registration.Registration, error)
	ComputeTotal(ctx context.Context, occurrenceID id.OccurrenceID, selection registration.Selection) (catalog.Money, error)
	Get(ctx context.Context, registrationID id.RegistrationID, token string) (*registration.Registration, error)
	Deadline(ctx context.Context, reg *registration.Registration) (time.Time, bool, error)
	Confirm(ctx context.Context, registrationID id.RegistrationID, token string) (*registration.Registration, error)
	Cancel(ctx context.Context, registrationID id.RegistrationID) (*registration.Registration, error)
	MarkPaid(ctx context.Context, registrationID id.RegistrationID) (*registration.Registration, error)
}

// Handler is the thin HTTP layer over the registration service. It delegates
// to the service without embedding business logic so transport concerns
// remain isolated.
type Handler struct {
	service  Service
	logger   *slog.Logger
	metrics  *metrics.Metrics
	resolver middleware.IdentityResolver
}

func New(service Service, logger *slog.Logger, m *metrics.Metrics, resolver middleware.IdentityResolver) *Handler {
	return &Handler{service: service, logger: logger, metrics: m, resolver: resolver}
}

// Register mounts the registration routes with their middleware chain.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	if h.metrics != nil {
		router.Use(middleware.Latency(h.metrics))
	}
	if h.resolver != nil {
		router.Use(middleware.OptionalAuth(h.resolver, h.logger))
	}

	router.Post("/occurrences/{occurrenceID}/registrations", h.handleSubmit)
	router.Post("/occurrences/{occurrenceID}/total", h.handleTotal)
	router.Get("/registrations/{registrationID}", h.handleGet)
	router.Post("/registrations/{registrationID}/confirm", h.handleConfirm)
	router.Post("/registrations/{registrationID}/cancel", h.handleCancel)
	router.Post("/registrations/{registrationID}/payments", h.handleMarkPaid)

	r.Mount("/", router)
}

type submitRequest struct {
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Tickets map[string]int `json:"tickets"`
	// RegistrationID resubmits an existing draft instead of creating a new
	// registration.
	RegistrationID string `json:"registration_id,omitempty"`
}

type totalRequest struct {
	Tickets map[string]int `json:"tickets"`
}

type lineResponse struct {
	TicketTypeID string `json:"ticket_type_id"`
	Title        string `json:"title"`
	Quantity     int    `json:"quantity"`
}

type registrationResponse struct {
	ID            string         `json:"id"`
	OccurrenceID  string         `json:"occurrence_id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Status        string         `json:"status"`
	Total         moneyResponse  `json:"total"`
	Token         string         `json:"token,omitempty"`
	Lines         []lineResponse `json:"lines"`
	TotalQuantity int            `json:"total_quantity"`
	CreatedAt     time.Time      `json:"created_at"`
	// ConfirmBy is present only while the registration is unconfirmed and
	// its event defines a confirmation time limit.
	ConfirmBy *time.Time `json:"confirm_by,omitempty"`
}

type moneyResponse struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	occurrenceID, err := id.ParseOccurrenceID(chi.URLParam(r, "occurrenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	selection, err := parseSelection(req.Tickets)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var opts []registration.SubmitOption
	if req.RegistrationID != "" {
		existingID, err := id.ParseRegistrationID(req.RegistrationID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		opts = append(opts, registration.WithExistingRegistration(existingID))
	}

	result, err := h.service.Submit(ctx, occurrenceID, selection,
		registration.Registrant{Name: req.Name, Email: req.Email},
		identityFromContext(ctx), opts...)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeValidation) {
			h.logger.WarnContext(ctx, "submit failed",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, h.toResponse(ctx, result, true))
}

func (h *Handler) handleTotal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	occurrenceID, err := id.ParseOccurrenceID(chi.URLParam(r, "occurrenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req totalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	selection, err := parseSelection(req.Tickets)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	total, err := h.service.ComputeTotal(ctx, occurrenceID, selection)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, moneyResponse{Amount: total.Amount, Currency: total.Currency})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	result, err := h.service.Get(ctx, registrationID, r.URL.Query().Get("token"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.toResponse(ctx, result, false))
}

type confirmRequest struct {
	Token string `json:"token"`
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	result, err := h.service.Confirm(ctx, registrationID, req.Token)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.toResponse(ctx, result, false))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	result, err := h.service.Cancel(ctx, registrationID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.toResponse(ctx, result, false))
}

func (h *Handler) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	result, err := h.service.MarkPaid(ctx, registrationID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.toResponse(ctx, result, false))
}

// toResponse renders a registration. The token is included only right after
// submission, when the holder link is produced; later reads already hold it.
func (h *Handler) toResponse(ctx context.Context, reg *registration.Registration, includeToken bool) registrationResponse {
	resp := registrationResponse{
		ID:            reg.ID.String(),
		OccurrenceID:  reg.OccurrenceID.String(),
		Name:          reg.Name,
		Email:         reg.Email,
		Status:        string(reg.Status),
		Total:         moneyResponse{Amount: reg.Total.Amount, Currency: reg.Total.Currency},
		TotalQuantity: reg.TotalQuantity(),
		CreatedAt:     reg.CreatedAt,
	}
	if includeToken {
		resp.Token = reg.Token
	}
	for _, line := range reg.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			TicketTypeID: line.TicketTypeID.String(),
			Title:        line.Title,
			Quantity:     line.Quantity,
		})
	}
	if deadline, ok, err := h.service.Deadline(ctx, reg); err == nil && ok {
		resp.ConfirmBy = &deadline
	}
	return resp
}

func parseSelection(tickets map[string]int) (registration.Selection, error) {
	selection := make(registration.Selection, len(tickets))
	for rawID, quantity := range tickets {
		ticketTypeID, err := id.ParseTicketTypeID(rawID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid ticket type id in selection")
		}
		selection[ticketTypeID] = quantity
	}
	return selection, nil
}

func identityFromContext(ctx context.Context) *registration.Identity {
	ident := middleware.GetIdentity(ctx)
	if ident == nil {
		return nil
	}
	return &registration.Identity{
		MemberID: ident.MemberID,
		Name:     ident.Name,
		Email:    ident.Email,
	}
}
