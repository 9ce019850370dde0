package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/service"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
	"github.com/aussiebroadwan/gatekeep/pkg/jwtx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"

	_ "github.com/aussiebroadwan/gatekeep/api/gatekeep" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Limits are the rate limits applied per route group. Login limits are
// keyed by client IP, account limits by user and IP.
type Limits struct {
	Login   httpx.RateLimitConfig
	Account httpx.RateLimitConfig
	Probe   httpx.RateLimitConfig
}

// DefaultLimits mirror the httpx profiles.
var DefaultLimits = Limits{
	Login:   httpx.StrictLimit,
	Account: httpx.ModerateLimit,
	Probe:   httpx.LenientLimit,
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	DB                Pinger
	ChallengeStore    Pinger
	Limits            Limits
	EnrollmentService *service.EnrollmentService
	GateService       *service.GateService
	LedgerService     *service.LedgerService
}

func NewRouter(verifier jwtx.Verifier, buildVersion string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		Limits:       DefaultLimits,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerLogin()
	r.registerMFA()
	r.registerSessions()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Gatekeep API
//	@version		0.1.0
//	@description	Second factor enrollment, login and session history for a single-site admin.
//	@description
//	@description				Session tokens are HS256 JWTs whose sid claim names the login record they were issued for.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/gatekeep
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps h with session authentication, the logged out check and
// the per-user limit.
func (r *Router) secured(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		RequireLiveSession(r.LedgerService),
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerLogin() {
	h := &LoginHandler{Gate: r.GateService}

	// Both steps are brute force targets, so they share the strict limit
	// keyed by IP.
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(r.Limits.Login),
		),
	)
	r.Mux.Handle("POST /v1/login/mfa",
		httpx.Chain(http.HandlerFunc(h.HandleSecondFactor),
			httpx.RateLimitByIP(r.Limits.Login),
		),
	)
}

func (r *Router) registerMFA() {
	h := &EnrollmentHandler{Service: r.EnrollmentService}

	r.Mux.Handle("GET /v1/mfa", r.secured(h.HandleStatus, r.Limits.Account))
	r.Mux.Handle("POST /v1/mfa/{factor}/enroll", r.secured(h.HandleBegin, r.Limits.Account))
	// Confirm guesses a code, so it gets the login limit.
	r.Mux.Handle("POST /v1/mfa/{factor}/confirm", r.secured(h.HandleConfirm, r.Limits.Login))
	r.Mux.Handle("DELETE /v1/mfa/{factor}", r.secured(h.HandleDisable, r.Limits.Account))
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{Ledger: r.LedgerService}

	r.Mux.Handle("GET /v1/sessions", r.secured(h.HandleList, r.Limits.Account))
	r.Mux.Handle("POST /v1/sessions/{id}/logout", r.secured(h.HandleLogout, r.Limits.Account))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Probe),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.DB, r.ChallengeStore),
			httpx.RateLimitByIP(r.Limits.Probe),
		),
	)
}
