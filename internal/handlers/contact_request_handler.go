package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/senyabanana/surplus-market/internal/models"
	"github.com/senyabanana/surplus-market/internal/services"
	"github.com/senyabanana/surplus-market/internal/utils"
)

// ContactRequestHandler serves the /contact-requests endpoints.
type ContactRequestHandler struct {
	Service *services.ContactRequestService
	Timeout time.Duration
}

// NewContactRequestHandler creates a new ContactRequestHandler.
func NewContactRequestHandler(service *services.ContactRequestService, timeout time.Duration) *ContactRequestHandler {
	return &ContactRequestHandler{Service: service, Timeout: timeout}
}

// Create handles POST /contact-requests.
func (h *ContactRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.NewContactRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cr, err := h.Service.Create(ctx, caller(r), req)
	if err != nil {
		sendServiceError(w, r, err, "failed to create contact request")
		return
	}
	utils.SendJSON(w, r, http.StatusCreated, models.Envelope{ContactRequest: cr})
}

// Review handles PATCH /contact-requests/{id}/review.
func (h *ContactRequestHandler) Review(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var decision models.ReviewDecision
	if !decodeBody(w, r, &decision) {
		return
	}

	cr, err := h.Service.Review(ctx, caller(r), id, decision)
	if err != nil {
		sendServiceError(w, r, err, "failed to review contact request")
		return
	}
	utils.SendJSON(w, r, http.StatusOK, models.Envelope{ContactRequest: cr})
}

// List handles GET /contact-requests?role=received|sent.
func (h *ContactRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	query := r.URL.Query()
	requests, err := h.Service.List(ctx, caller(r), models.RequestRole(query.Get("role")), query.Get("limit"), query.Get("offset"))
	if err != nil {
		sendServiceError(w, r, err, "failed to fetch contact requests")
		return
	}
	utils.SendJSON(w, r, http.StatusOK, models.Envelope{ContactRequests: requests})
}

// Get handles GET /contact-requests/{id}.
func (h *ContactRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cr, err := h.Service.Get(ctx, caller(r), id)
	if err != nil {
		sendServiceError(w, r, err, "failed to fetch contact request")
		return
	}
	utils.SendJSON(w, r, http.StatusOK, models.Envelope{ContactRequest: cr})
}
