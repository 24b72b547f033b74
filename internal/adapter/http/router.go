package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/adapter/http/handler"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
	"github.com/iho/bankledger/internal/usecase"
)

// RouterConfig holds dependencies for the router. IdempotencyStore,
// RateLimiter, Metrics and MetricsHandler are optional.
type RouterConfig struct {
	AccountHandler   *handler.AccountHandler
	TransferHandler  *handler.TransferHandler
	EntryHandler     *handler.EntryHandler
	DashboardHandler *handler.DashboardHandler
	LedgerHandler    *handler.LedgerHandler
	DirectoryHandler *handler.DirectoryHandler
	HealthHandler    *handler.HealthHandler

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.ActingUser)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger).Wrap)
		}

		r.Route("/users", func(r chi.Router) {
			r.Post("/", cfg.DirectoryHandler.RegisterUser)
			r.Get("/{id}", cfg.DirectoryHandler.GetUser)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", cfg.DirectoryHandler.RegisterCustomer)
			r.Get("/{id}", cfg.DirectoryHandler.GetCustomer)
			r.Get("/{id}/dashboard", cfg.DashboardHandler.Get)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Open)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{rib}", cfg.AccountHandler.Get)
			r.Patch("/{rib}/status", cfg.AccountHandler.ChangeStatus)
			r.Get("/{rib}/entries", cfg.EntryHandler.History)
			r.Get("/{rib}/entries/recent", cfg.EntryHandler.Recent)
			r.Get("/{rib}/reconciliation", cfg.LedgerHandler.ReconcileAccount)
		})

		r.Route("/transfers", func(r chi.Router) {
			create := http.Handler(http.HandlerFunc(cfg.TransferHandler.Create))
			if cfg.RateLimiter != nil {
				create = cfg.RateLimiter.Limit(create)
			}
			r.Method(http.MethodPost, "/", create)
			r.Get("/{id}/entries", cfg.EntryHandler.ListByTransfer)
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/consistency", cfg.LedgerHandler.Consistency)
			r.Get("/reconciliation", cfg.LedgerHandler.Report)
		})
	})

	return r
}
