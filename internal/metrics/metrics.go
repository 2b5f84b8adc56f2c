package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service's Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ContactRequestsCreated *prometheus.CounterVec
	ContactRequestReviews  *prometheus.CounterVec
	ContactRequestsExpired prometheus.Counter
	CompanyVerifications   *prometheus.CounterVec
	ProductTransitions     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers all collectors on reg under the given name prefix.
func New(prefix string, reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ContactRequestsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_contact_requests_created_total",
				Help: "Contact requests accepted or refused at creation",
			},
			[]string{"result"},
		),
		ContactRequestReviews: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_contact_request_reviews_total",
				Help: "Seller review decisions on contact requests",
			},
			[]string{"decision"},
		),
		ContactRequestsExpired: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_contact_requests_expired_total",
				Help: "Pending contact requests moved to Expired by the sweeper",
			},
		),
		CompanyVerifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_company_verifications_total",
				Help: "Admin verification decisions on companies",
			},
			[]string{"decision"},
		),
		ProductTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_product_transitions_total",
				Help: "Owner-driven product status changes",
			},
			[]string{"action", "result"},
		),
		gatherer: reg,
	}
}

// Nop returns collectors bound to a throwaway registry, for tests and tools.
func Nop() *Metrics {
	return New("nop", prometheus.NewRegistry())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveCreate counts a contact request creation attempt.
func (m *Metrics) ObserveCreate(err error) {
	m.ContactRequestsCreated.WithLabelValues(result(err)).Inc()
}

// ObserveReview counts a successful seller decision.
func (m *Metrics) ObserveReview(approved bool) {
	m.ContactRequestReviews.WithLabelValues(decision(approved)).Inc()
}

// ObserveVerification counts a successful admin decision.
func (m *Metrics) ObserveVerification(approved bool) {
	m.CompanyVerifications.WithLabelValues(decision(approved)).Inc()
}

// ObserveProduct counts a product status change attempt.
func (m *Metrics) ObserveProduct(action string, err error) {
	m.ProductTransitions.WithLabelValues(action, result(err)).Inc()
}

func decision(approved bool) string {
	if approved {
		return "approved"
	}
	return "rejected"
}
