package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splax/cybervault/internal/service/auth"
	"github.com/splax/cybervault/internal/service/dashboard"
	"github.com/splax/cybervault/internal/service/identity"
	"github.com/splax/cybervault/internal/service/notarization"
	"github.com/splax/cybervault/internal/service/operation"
	"github.com/splax/cybervault/internal/ws"
)

const (
	rateWindowDefault  = time.Minute
	rateLimitSignup    = 5
	rateLimitLogin     = 12
	rateLimitRealtime  = 30
	healthCheckTimeout = 2 * time.Second
	defaultHeartbeat   = 25 * time.Second
)

// Deps carries the collaborators a Router serves.
type Deps struct {
	Logger       *slog.Logger
	Identity     identity.Service
	Notarization notarization.Service
	Dashboard    dashboard.Service
	Operations   operation.Service
	Auth         auth.Service
	Hub          *ws.Hub
	Limiter      RateLimiter
	// RateLimit is the per-client request budget per minute on /api routes.
	RateLimit    int
	AuthRequired bool
	// StoreHealth reports whether the record store is reachable.
	StoreHealth func(context.Context) error
	Heartbeat   time.Duration
	// Metrics receives the HTTP collectors. Nil means the default registry.
	Metrics prometheus.Registerer
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux          chi.Router
	logger       *slog.Logger
	identity     identity.Service
	notarization notarization.Service
	dashboard    dashboard.Service
	operations   operation.Service
	auth         auth.Service
	hub          *ws.Hub
	upgrader     websocket.Upgrader
	limiter      RateLimiter
	rateLimit    int
	authRequired bool
	storeHealth  func(context.Context) error
	heartbeat    time.Duration
	metrics      *routerMetrics
}

// NewRouter assembles routes with dependencies.
func NewRouter(deps Deps) *Router {
	r := &Router{
		mux:          chi.NewRouter(),
		logger:       deps.Logger,
		identity:     deps.Identity,
		notarization: deps.Notarization,
		dashboard:    deps.Dashboard,
		operations:   deps.Operations,
		auth:         deps.Auth,
		hub:          deps.Hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:      deps.Limiter,
		rateLimit:    deps.RateLimit,
		authRequired: deps.AuthRequired,
		storeHealth:  deps.StoreHealth,
		heartbeat:    deps.Heartbeat,
		metrics:      newRouterMetrics(deps.Metrics),
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if r.heartbeat <= 0 {
		r.heartbeat = defaultHeartbeat
	}
	r.routes()
	return r
}

// ServeHTTP delegates to the chi mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) routes() {
	m := r.mux
	m.Use(requestID, r.audit)
	m.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	m.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	m.Get("/healthz", r.handleHealthz)
	m.Handle("/metrics", promhttp.Handler())
	m.With(r.withRateLimit("/ws/events", rateLimitRealtime, rateWindowDefault, rateLimitKeyIP)).Get("/ws/events", r.handleEventsWS)

	m.Route("/api", func(api chi.Router) {
		api.With(r.withRateLimit("/api/auth/signup", rateLimitSignup, rateWindowDefault, rateLimitKeyIP)).Post("/auth/signup", r.handleSignup)
		api.With(r.withRateLimit("/api/auth/login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP)).Post("/auth/login", r.handleLogin)

		api.Group(func(api chi.Router) {
			api.Use(r.optionalAuth, r.withRateLimit("", r.rateLimit, rateWindowDefault, r.rateLimitKeyUser))

			api.Get("/dids", r.handleListDIDs)
			api.With(r.requireAuth).Post("/dids", r.handleCreateDID)
			api.With(r.requireAuth).Patch("/dids/{id}/status", r.handleUpdateDIDStatus)

			api.Get("/documents", r.handleListDocuments)
			api.With(r.requireAuth).Post("/documents", r.handleCreateDocument)
			api.Get("/documents/verify/{hash}", r.handleVerifyDocument)
			api.Get("/documents/search", r.handleSearchDocuments)

			api.Get("/stats", r.handleStats)
			api.Get("/iota/status", r.handleChainStatus)

			api.Get("/operations", r.handleListOperations)
			api.Get("/operations/{id}", r.handleGetOperation)

			api.Get("/events", r.handleEventsSSE)
		})
	})
}
