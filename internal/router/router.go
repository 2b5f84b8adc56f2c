package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/senyabanana/surplus-market/internal/handlers"
	"github.com/senyabanana/surplus-market/internal/metrics"
	"github.com/senyabanana/surplus-market/internal/middleware"
	"github.com/senyabanana/surplus-market/internal/utils"
)

// Deps bundles what the router needs.
type Deps struct {
	Companies       *handlers.CompanyHandler
	Products        *handlers.ProductHandler
	ContactRequests *handlers.ContactRequestHandler
	Verifier        middleware.TokenVerifier
	Metrics         *metrics.Metrics
	Logger          *zap.Logger
}

// InitRoutes builds the HTTP API.
func InitRoutes(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(d.Metrics.Middleware)
	r.Use(chimiddleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.SendErrorResponse(w, r, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.SendErrorResponse(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/api/ping", handlers.PingHandler)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	// Public catalog; a token, when present, lets owners see their own listings.
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuthenticate(d.Verifier))
		r.Get("/products", d.Products.ListActive)
		r.Get("/products/{id}", d.Products.Get)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(d.Verifier))

		r.Post("/companies", d.Companies.Register)
		r.Get("/companies/{id}", d.Companies.Get)
		r.Patch("/companies/{id}", d.Companies.Update)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/companies", d.Companies.List)
			r.Patch("/companies/{id}/verify", d.Companies.Verify)
		})

		r.Post("/products", d.Products.Create)
		r.Get("/products/mine", d.Products.ListMine)
		r.Post("/products/{id}/publish", d.Products.Publish)
		r.Post("/products/{id}/unpublish", d.Products.Unpublish)
		r.Post("/products/{id}/sold", d.Products.MarkSold)
		r.Delete("/products/{id}", d.Products.Delete)

		r.Post("/contact-requests", d.ContactRequests.Create)
		r.Get("/contact-requests", d.ContactRequests.List)
		r.Get("/contact-requests/{id}", d.ContactRequests.Get)
		r.Patch("/contact-requests/{id}/review", d.ContactRequests.Review)
	})

	return r
}
