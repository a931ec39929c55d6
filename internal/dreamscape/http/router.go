package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/service"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store"
	"github.com/dreamscape-events/dreamscape/pkg/httpx"
	"github.com/dreamscape-events/dreamscape/pkg/jwtx"
	"github.com/dreamscape-events/dreamscape/pkg/slogx"

	_ "github.com/dreamscape-events/dreamscape/api/docs" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Identity *service.IdentityService
	Sessions *service.SessionService
	Events   *service.EventService

	// SecureCookies marks session and state cookies Secure.
	SecureCookies bool
}

func NewRouter(keys *jwtx.KeyManager, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerEvents()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Dreamscape API
//	@version		0.1.0
//	@description	Event planning: accounts, events, RSVPs and event lifecycle.
//	@description
//	@description				Sessions are JWTs sent as a Bearer token or the dreamscape_session cookie.
//
//	@contact.name				Dreamscape Team
//	@contact.url				https://github.com/dreamscape-events/dreamscape
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

func (r *Router) authed(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.keys.Verifier),
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Identity:      r.Identity,
		Sessions:      r.Sessions,
		SecureCookies: r.SecureCookies,
	}

	// Account creation and profile completion - strict by IP
	r.Mux.Handle("POST /api/auth/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup), httpx.RateLimitByIP(httpx.StrictLimit)),
	)
	// Sign-in is counted per address being tried, with a looser cap per IP
	r.Mux.Handle("POST /api/auth/signin",
		httpx.Chain(http.HandlerFunc(h.HandleSignin),
			httpx.RateLimitByIP(httpx.ModerateLimit),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)
	r.Mux.Handle("POST /api/auth/complete-profile",
		httpx.Chain(http.HandlerFunc(h.HandleCompleteProfile), httpx.RateLimitByIP(httpx.StrictLimit)),
	)

	r.Mux.Handle("POST /api/auth/signout",
		httpx.Chain(http.HandlerFunc(h.HandleSignout), httpx.RateLimitByIP(httpx.LenientLimit)),
	)
	r.Mux.Handle("GET /api/auth/session", r.authed(h.HandleSession, httpx.LenientLimit))

	// Browser redirects - moderate by IP
	r.Mux.Handle("GET /api/auth/google/login",
		httpx.Chain(http.HandlerFunc(h.HandleGoogleLogin), httpx.RateLimitByIP(httpx.ModerateLimit)),
	)
	r.Mux.Handle("GET /api/auth/google/callback",
		httpx.Chain(http.HandlerFunc(h.HandleGoogleCallback), httpx.RateLimitByIP(httpx.ModerateLimit)),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Identity: r.Identity}

	// Limited per IP and email to slow account enumeration
	r.Mux.Handle("GET /api/user/check",
		httpx.Chain(http.HandlerFunc(h.HandleCheckEmail),
			httpx.RateLimitByIPAndFormField(httpx.ModerateLimit, "email"),
		),
	)

	r.Mux.Handle("GET /api/user/profile", r.authed(h.HandleGetProfile, httpx.LenientLimit))
	r.Mux.Handle("PUT /api/user/profile", r.authed(h.HandleUpdateProfile, httpx.ModerateLimit))
}

func (r *Router) registerEvents() {
	h := &EventsHandler{Events: r.Events}

	r.Mux.Handle("GET /api/events", r.authed(h.HandleList, httpx.LenientLimit))
	r.Mux.Handle("POST /api/events", r.authed(h.HandleCreate, httpx.ModerateLimit))
	r.Mux.Handle("GET /api/events/{id}", r.authed(h.HandleGet, httpx.LenientLimit))
	r.Mux.Handle("PUT /api/events/{id}", r.authed(h.HandleUpdate, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /api/events/{id}", r.authed(h.HandleDelete, httpx.ModerateLimit))
	r.Mux.Handle("POST /api/events/{id}/rsvp", r.authed(h.HandleRSVP, httpx.ModerateLimit))
	r.Mux.Handle("PUT /api/events/{id}/status", r.authed(h.HandleStatus, httpx.ModerateLimit))
}

func (r *Router) registerSystem() {
	// Health checks - lenient, monitors poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion), httpx.RateLimitByIP(httpx.LenientLimit)),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys), httpx.RateLimitByIP(httpx.LenientLimit)),
	)
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys), httpx.RateLimitByIP(httpx.PublicLimit)),
	)
}
