// Package adminapi exposes a read-only HTTP surface over a gate and its
// service registry: job listing/inspection, a health check, and
// Prometheus metrics. It never mutates daemon state — all writes to the
// gate happen through client-dropped request files, never through this
// API.
package adminapi

import (
	"encoding/json"
	"net/http"

	"github.com/cisgate/gatequeue/gatefs"
	"github.com/cisgate/gatequeue/quota"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Server wires an Observer and a quota Registry into a chi router.
type Server struct {
	observer *gatefs.Observer
	registry *quota.Registry

	quotaUsage *prometheus.GaugeVec
	quotaReal  *prometheus.GaugeVec

	router chi.Router
}

// Config controls the admin surface's own behavior, distinct from the
// daemon's own Config.
type Config struct {
	RateLimitPerSec float64
	RateLimitBurst  int
}

// New builds a Server and registers its routes. The returned Server
// implements http.Handler by delegating ServeHTTP to its router.
func New(observer *gatefs.Observer, registry *quota.Registry, cfg Config) *Server {
	s := &Server{
		observer: observer,
		registry: registry,
		quotaUsage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gatequeue",
			Name:      "service_current_size_bytes",
			Help:      "Proxied (estimated) output size currently accounted against a service's quota.",
		}, []string{"service"}),
		quotaReal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gatequeue",
			Name:      "service_real_size_bytes",
			Help:      "Last-measured real output size on disk for a service.",
		}, []string{"service"}),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(s.quotaUsage, s.quotaReal)

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	if cfg.RateLimitPerSec <= 0 {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(rateLimit(limiter))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/jobs", s.handleListJobs)
	r.Get("/jobs/{id}", s.handleGetJob)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RefreshMetrics re-reads every configured service's quota accounting
// into the exported gauges. Callers wire this to a periodic ticker; the
// admin surface itself never decides when to poll.
func (s *Server) RefreshMetrics() {
	for _, name := range s.registry.Names() {
		svc, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		s.quotaUsage.WithLabelValues(name).Set(float64(svc.CurrentSize()))
		s.quotaReal.WithLabelValues(name).Set(float64(svc.RealSize()))
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.observer.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	summary, err := s.observer.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

