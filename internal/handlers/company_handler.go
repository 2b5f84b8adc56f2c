package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/senyabanana/surplus-market/internal/models"
	"github.com/senyabanana/surplus-market/internal/services"
	"github.com/senyabanana/surplus-market/internal/utils"
)

// CompanyHandler serves the /companies endpoints.
type CompanyHandler struct {
	Service *services.CompanyService
	Timeout time.Duration
}

// NewCompanyHandler creates a new CompanyHandler.
func NewCompanyHandler(service *services.CompanyService, timeout time.Duration) *CompanyHandler {
	return &CompanyHandler{Service: service, Timeout: timeout}
}

// Register handles POST /companies.
func (h *CompanyHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.CompanyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	company, err := h.Service.Register(ctx, caller(r), req)
	if err != nil {
		sendServiceError(w, r, err, "failed to register company")
		return
	}
	utils.SendJSON(w, r, http.StatusCreated, models.Envelope{Company: company})
}

// Get handles GET /companies/{id}.
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	company, err := h.Service.Get(ctx, caller(r), id)
	if err != nil {
		sendServiceError(w, r, err, "failed to fetch company")
		return
	}
	utils.SendJSON(w, r, http.StatusOK, models.Envelope{Company: company})
}

// List handles GET /companies?status=1&status=2 for admins.
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	query := r.URL.Query()
	companies, err := h.Service.List(ctx, caller(r), query["status"], query.Get("limit"), query.Get("offset"))
	if err != nil {
		sendServiceError(w, r, err, "failed to fetch companies")
		return
	}
	utils.SendJSON(w, r, http.StatusOK, models.Envelope{Companies: companies})
}

// Update handles PATCH /companies/{id}.
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var upd models.CompanyUpdate
	if !decodeBody(w, r, &upd) {
		return
	}
	company, err := h.Service.Update(ctx, caller(r), id, upd)
	if err != nil {
		sendServiceError(w, r, err, "failed to update company")
		return
	}
	utils.SendJSON(w, r, http.StatusOK, models.Envelope{Company: company})
}

// Verify handles PATCH /companies/{id}/verify.
func (h *CompanyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var decision models.VerificationDecision
	if !decodeBody(w, r, &decision) {
		return
	}
	company, err := h.Service.Verify(ctx, caller(r), id, decision)
	if err != nil {
		sendServiceError(w, r, err, "failed to verify company")
		return
	}
	utils.SendJSON(w, r, http.StatusOK, models.Envelope{Company: company})
}
