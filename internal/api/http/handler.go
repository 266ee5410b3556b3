package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"rentaldesk-bff/internal/config"
	"rentaldesk-bff/internal/logger"
	"rentaldesk-bff/internal/service"
	"rentaldesk-bff/internal/session"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the browser-facing JSON API.
type Handler struct {
	returns    service.ReturnService
	extensions service.ExtensionService
	registry   *service.WorkflowRegistry
	health     Pinger
}

func NewHandler(
	returns service.ReturnService,
	extensions service.ExtensionService,
	registry *service.WorkflowRegistry,
	health Pinger,
) *Handler {
	return &Handler{
		returns:    returns,
		extensions: extensions,
		registry:   registry,
		health:     health,
	}
}

// NewRouter registers every route under its security name and wraps them
// with request logging, rate limiting and authentication.
func NewRouter(h *Handler, sessions session.Manager, cfg config.ServerConfig) *mux.Router {
	r := mux.NewRouter()

	limit := rate.Inf
	if cfg.RateLimitPerSec > 0 {
		limit = rate.Limit(cfg.RateLimitPerSec)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	idle := time.Duration(cfg.RateLimitIdleMinutes) * time.Minute
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	trusted, err := config.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Warn("Ignoring trusted proxies", "error", err)
		trusted = nil
	}

	r.Use(
		RequestLogging,
		RateLimit(NewIPRateLimiter(limit, burst, idle), NewClientIPResolver(trusted)),
		Authenticate(sessions),
	)

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet).Name(config.RouteHealth)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/returns/preview", h.previewReturn).Methods(http.MethodPost).Name(config.RoutePreviewReturn)
	api.HandleFunc("/rentals/{rentalID}/return-workflows", h.openReturn).Methods(http.MethodPost).Name(config.RouteOpenReturnWorkflow)
	api.HandleFunc("/return-workflows/{workflowID}", h.getReturn).Methods(http.MethodGet).Name(config.RouteGetReturnWorkflow)
	api.HandleFunc("/return-workflows/{workflowID}/items/{lineID}", h.updateReturnItem).Methods(http.MethodPatch).Name(config.RouteUpdateReturnItem)
	api.HandleFunc("/return-workflows/{workflowID}/select-all", h.selectAllReturnItems).Methods(http.MethodPost).Name(config.RouteSelectAllReturnItems)
	api.HandleFunc("/return-workflows/{workflowID}/submit", h.submitReturn).Methods(http.MethodPost).Name(config.RouteSubmitReturnWorkflow)
	api.HandleFunc("/return-workflows/{workflowID}", h.closeReturn).Methods(http.MethodDelete).Name(config.RouteCloseReturnWorkflow)

	api.HandleFunc("/rentals/{rentalID}/lines/{lineID}/extension-workflows", h.openExtension).Methods(http.MethodPost).Name(config.RouteOpenExtensionWorkflow)
	api.HandleFunc("/extension-workflows/{workflowID}", h.getExtension).Methods(http.MethodGet).Name(config.RouteGetExtensionWorkflow)
	api.HandleFunc("/extension-workflows/{workflowID}/new-end-date", h.setExtensionEndDate).Methods(http.MethodPut).Name(config.RouteSetExtensionEndDate)
	api.HandleFunc("/extension-workflows/{workflowID}/check", h.checkExtension).Methods(http.MethodPost).Name(config.RouteCheckExtension)
	api.HandleFunc("/extension-workflows/{workflowID}/confirm", h.confirmExtension).Methods(http.MethodPost).Name(config.RouteConfirmExtension)
	api.HandleFunc("/extension-workflows/{workflowID}", h.closeExtension).Methods(http.MethodDelete).Name(config.RouteCloseExtensionWorkflow)

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// mustSession returns the session Authenticate put on the context. Routes
// that call it are never public.
func mustSession(r *http.Request) *session.Session {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		panic("http: session route reached without a session")
	}
	return sess
}
