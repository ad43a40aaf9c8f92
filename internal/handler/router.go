package handler

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
	"github.com/aryan0dhankhar/onboardhr/internal/events"
	"github.com/aryan0dhankhar/onboardhr/internal/observability/metrics"
	"github.com/aryan0dhankhar/onboardhr/internal/security"
	"github.com/aryan0dhankhar/onboardhr/internal/security/audit"
	"github.com/aryan0dhankhar/onboardhr/internal/security/middleware"
	"github.com/aryan0dhankhar/onboardhr/internal/security/ratelimit"
	"github.com/aryan0dhankhar/onboardhr/internal/service"
)

const defaultMaxBodyBytes = 1 << 20

// RouterConfig carries everything the HTTP surface is built from
type RouterConfig struct {
	AuthService         *service.AuthService
	EmployeeService     *service.EmployeeService
	OrganizationService *service.OrganizationService
	Hub                 *events.Hub
	AuditLogger         *audit.Logger
	// Limiter is the global per-caller request budget; nil disables it
	Limiter *ratelimit.Limiter
	// Throttle guards login and the public registration endpoints; nil disables it
	Throttle       ratelimit.Throttle
	HealthChecks   map[string]Pinger
	AllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For; everyone else is keyed by peer address
	TrustedProxies []netip.Prefix
	MaxBodyBytes   int64
	Logger         *slog.Logger
}

// NewRouter registers every route and wraps the mux in the shared middleware chain
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	auditLog := cfg.AuditLogger
	if auditLog == nil {
		auditLog = audit.NewLogger(log)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	authz := security.NewAuthorizationService(log)

	authHandler := NewAuthHandler(cfg.AuthService, log)
	employeeHandler := NewEmployeeHandler(cfg.EmployeeService, log)
	registrationHandler := NewRegistrationHandler(cfg.EmployeeService, log)
	profileHandler := NewProfileHandler(cfg.EmployeeService, log)
	orgHandler := NewOrganizationHandler(cfg.OrganizationService, log)
	healthHandler := NewHealthHandler(cfg.HealthChecks, log)

	requireAuth := middleware.RequireAuth(cfg.AuthService, auditLog, log)
	protected := func(perm security.Permission, h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, requireAuth, middleware.RequirePermission(authz, auditLog, perm))
	}
	throttled := func(scope string, h http.HandlerFunc) http.Handler {
		if cfg.Throttle == nil {
			return h
		}
		return middleware.Chain(h, middleware.Throttle(cfg.Throttle, scope, log))
	}

	mux := http.NewServeMux()

	// Setup and sessions
	mux.Handle("POST /api/setup/initialize", throttled("setup", authHandler.Setup))
	mux.Handle("POST /api/auth/login", throttled("login", authHandler.Login))
	mux.Handle("GET /api/auth/me", middleware.Chain(http.HandlerFunc(authHandler.Me), requireAuth))

	// Public invitation flow
	mux.Handle("GET /api/employees/register/{token}", throttled("register", registrationHandler.GetInvitation))

	// Admin lifecycle
	mux.Handle("POST /api/employees/invite", protected(security.PermInviteEmployee, employeeHandler.Invite))
	mux.Handle("GET /api/employees/admin/all", protected(security.PermListEmployees, employeeHandler.List))
	mux.Handle("GET /api/employees/admin/{id}", protected(security.PermReadEmployee, employeeHandler.Get))
	mux.Handle("PUT /api/employees/admin/{id}", protected(security.PermManageEmployee, employeeHandler.Update))
	mux.Handle("DELETE /api/employees/admin/{id}", protected(security.PermManageEmployee, employeeHandler.Delete))
	mux.Handle("PUT /api/employees/admin/{id}/restore", protected(security.PermManageEmployee, employeeHandler.Restore))
	mux.Handle("POST /api/employees/admin/{id}/archive", protected(security.PermManageEmployee, employeeHandler.Archive))
	mux.Handle("PUT /api/employees/admin/{id}/unarchive", protected(security.PermManageEmployee, employeeHandler.Unarchive))
	mux.Handle("POST /api/employees/admin/{id}/resend-invitation", protected(security.PermResendInvitation, employeeHandler.ResendInvitation))
	// POST register/{token} and {id}/status share a shape, so one pattern serves both
	mux.Handle("POST /api/employees/{seg}/{action}", employeeActions(
		throttled("register", registrationHandler.Register),
		protected(security.PermManageEmployee, employeeHandler.UpdateStatus),
		log,
	))

	// Employee self-service
	mux.Handle("GET /api/employees/profile", protected(security.PermReadOwnProfile, profileHandler.Get))
	mux.Handle("PUT /api/employees/profile", protected(security.PermUpdateOwnProfile, profileHandler.Update))
	mux.Handle("PUT /api/employees/profile/password", protected(security.PermChangeOwnPassword, profileHandler.ChangePassword))

	mux.Handle("GET /api/organization", protected(security.PermReadOrganization, orgHandler.ServeHTTP))

	if cfg.Hub != nil {
		eventsHandler := NewEventsHandler(cfg.Hub, log, cfg.AllowedOrigins)
		mux.Handle("GET /ws/events", middleware.Chain(
			protected(security.PermStreamOrgEvents, eventsHandler.ServeHTTP),
			tokenFromQuery,
		))
	}

	// Health, readiness and metrics (no auth required)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	mws := []func(http.Handler) http.Handler{
		middleware.RealIP(cfg.TrustedProxies),
		middleware.RequestID(log),
		middleware.CORS(cfg.AllowedOrigins),
	}
	if cfg.Limiter != nil {
		mws = append(mws, middleware.RateLimitMiddleware(cfg.Limiter, log))
	}
	mws = append(mws,
		middleware.LimitBody(cfg.MaxBodyBytes),
		middleware.ValidateJSONContentType(log),
	)
	// metrics wraps the mux directly so the matched route pattern is visible to it
	return middleware.Chain(metrics.HTTPMetricsMiddleware(mux), mws...)
}

// employeeActions routes POST /api/employees/{seg}/{action}: "register/{token}" completes
// a registration and "{id}/status" changes an employee's status. Anything else is 404.
func employeeActions(register, status http.Handler, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seg, action := r.PathValue("seg"), r.PathValue("action")
		switch {
		case seg == "register":
			r.SetPathValue("token", action)
			register.ServeHTTP(w, r)
		case action == "status":
			r.SetPathValue("id", seg)
			status.ServeHTTP(w, r)
		default:
			writeError(w, r, log, domain.ErrNotFound)
		}
	}
}
