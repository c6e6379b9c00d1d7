// Package httpapi exposes the clinic services over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"clinicdesk.org/internal/attachment"
	"clinicdesk.org/internal/audit"
	"clinicdesk.org/internal/auth"
	"clinicdesk.org/internal/clinic"
	"clinicdesk.org/internal/identity"
	"clinicdesk.org/internal/obs"
)

const serviceName = "clinic-api"

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe is a simple readiness check (for example a DB ping).
type ReadyProbe struct {
	DB Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.Ping(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// Services are the domain collaborators the handlers call.
type Services struct {
	Gate     *auth.Gate
	Users    *identity.Service
	Clinic   *clinic.Service
	Files    *attachment.Service
	Activity *audit.Query
}

// Options tune the HTTP layer.
type Options struct {
	Version     string
	Logger      *slog.Logger
	CORSOrigins []string
	// TrustedProxies are the peers whose X-Forwarded-For is believed.
	TrustedProxies  []netip.Prefix
	MaxBodyBytes    int64
	LoginRatePerSec int
	LoginRateBurst  int
	Ready           readinessChecker
}

// API is the HTTP layer.
type API struct {
	router       chi.Router
	gate         *auth.Gate
	users        *identity.Service
	clinic       *clinic.Service
	files        *attachment.Service
	activity     *audit.Query
	ready        readinessChecker
	logger       *slog.Logger
	version      string
	maxBodyBytes int64
	loginLimit   func(http.Handler) http.Handler
}

// New wires the router. It panics if a route has no entry in routePolicies.
func New(svc Services, opts Options) *API {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Ready == nil {
		opts.Ready = ReadyProbe{}
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.LoginRatePerSec <= 0 {
		opts.LoginRatePerSec = 5
	}
	if opts.LoginRateBurst <= 0 {
		opts.LoginRateBurst = 10
	}

	a := &API{
		router:       chi.NewRouter(),
		gate:         svc.Gate,
		users:        svc.Users,
		clinic:       svc.Clinic,
		files:        svc.Files,
		activity:     svc.Activity,
		ready:        opts.Ready,
		logger:       opts.Logger,
		version:      opts.Version,
		maxBodyBytes: opts.MaxBodyBytes,
		loginLimit:   RateLimit(opts.LoginRatePerSec, opts.LoginRateBurst),
	}

	a.router.Use(
		RequestID,
		ClientIP(opts.TrustedProxies),
		Origin,
		Logging(opts.Logger),
		SecurityHeaders,
		CORS(opts.CORSOrigins),
		obs.Instrument,
	)
	a.router.NotFound(notFound)
	a.router.MethodNotAllowed(methodNotAllowed)
	a.routes()
	return a
}

// Handler returns the root handler with tracing around the router.
func (a *API) Handler() http.Handler {
	return otelhttp.NewHandler(a.router, serviceName)
}

// --- Handlers ---

func (a *API) Welcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to the clinic management API",
		"version": a.version,
	})
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.ready.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
