package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/senyabanana/surplus-market/internal/models"
	"github.com/senyabanana/surplus-market/internal/services"
	"github.com/senyabanana/surplus-market/internal/utils"
)

// ProductHandler serves the /products endpoints.
type ProductHandler struct {
	Service *services.ProductService
	Timeout time.Duration
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, timeout time.Duration) *ProductHandler {
	return &ProductHandler{Service: service, Timeout: timeout}
}

// Create handles POST /products.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.ProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	product, err := h.Service.Create(ctx, caller(r), req)
	if err != nil {
		sendServiceError(w, r, err, "failed to create product")
		return
	}
	utils.SendJSON(w, r, http.StatusCreated, models.Envelope{Product: product})
}

// ListActive handles GET /products with optional category and currency filters.
func (h *ProductHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	query := r.URL.Query()
	products, err := h.Service.ListActive(ctx, query["category"], query["currency"], query.Get("limit"), query.Get("offset"))
	if err != nil {
		sendServiceError(w, r, err, "failed to fetch products")
		return
	}
	utils.SendJSON(w, r, http.StatusOK, models.Envelope{Products: products})
}

// ListMine handles GET /products/mine.
func (h *ProductHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	query := r.URL.Query()
	products, err := h.Service.ListMine(ctx, caller(r), query.Get("limit"), query.Get("offset"))
	if err != nil {
		sendServiceError(w, r, err, "failed to fetch products")
		return
	}
	utils.SendJSON(w, r, http.StatusOK, models.Envelope{Products: products})
}

// Get handles GET /products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	product, err := h.Service.Get(ctx, caller(r), id)
	if err != nil {
		sendServiceError(w, r, err, "failed to fetch product")
		return
	}
	utils.SendJSON(w, r, http.StatusOK, models.Envelope{Product: product})
}

type productTransition func(ctx context.Context, caller models.Identity, id int64) (*models.Product, error)

func (h *ProductHandler) transition(action productTransition, failure string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
		defer cancel()

		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		product, err := action(ctx, caller(r), id)
		if err != nil {
			sendServiceError(w, r, err, failure)
			return
		}
		utils.SendJSON(w, r, http.StatusOK, models.Envelope{Product: product})
	}
}

// Publish handles POST /products/{id}/publish.
func (h *ProductHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.transition(h.Service.Publish, "failed to publish product")(w, r)
}

// Unpublish handles POST /products/{id}/unpublish.
func (h *ProductHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.transition(h.Service.Unpublish, "failed to unpublish product")(w, r)
}

// MarkSold handles POST /products/{id}/sold.
func (h *ProductHandler) MarkSold(w http.ResponseWriter, r *http.Request) {
	h.transition(h.Service.MarkSold, "failed to mark product as sold")(w, r)
}

// Delete handles DELETE /products/{id}.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.Delete(ctx, caller(r), id); err != nil {
		sendServiceError(w, r, err, "failed to delete product")
		return
	}
	utils.SendJSON(w, r, http.StatusOK, models.Envelope{Message: "product deleted"})
}
