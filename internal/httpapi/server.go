// Package httpapi exposes the intents and selectors of an app.App as a local
// JSON API.
//
//	GET    /healthz
//	GET    /metrics
//	GET    /session
//	POST   /signup
//	POST   /login
//	POST   /logout
//	PATCH  /profile
//	PUT    /profile/password
//	PUT    /profile/social-links
//	GET    /cart
//	DELETE /cart
//	POST   /cart/lines
//	PATCH  /cart/lines/{productID}
//	DELETE /cart/lines/{productID}
//	GET    /backups
//	POST   /backups
//	POST   /backups/restore
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/atelier/internal/app"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/metrics"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

type Server struct {
	app          *app.App
	logger       logging.Logger
	loginLimiter *rate.Limiter
}

// New builds the API for a. The login route is limited to
// LoginRatePerMinute requests per minute with a burst of LoginBurst; a
// non-positive rate disables the limit.
func New(a *app.App) *Server {
	limit := rate.Inf
	if r := a.Config.LoginRatePerMinute; r > 0 {
		limit = rate.Limit(r / 60)
	}
	return &Server{
		app:          a,
		logger:       a.Logger.With("module", "httpapi"),
		loginLimiter: rate.NewLimiter(limit, max(1, a.Config.LoginBurst)),
	}
}

// Routes returns the router with the middleware stack:
//
//	requestID → accessLog → recoverer
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(s.logger, s.app.Metrics))
	r.Use(recoverer(s.logger))

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(s.app.Registry))

	r.Get("/session", s.getSession)
	r.Post("/signup", s.signup)
	r.With(limit(s.loginLimiter, s.logger)).Post("/login", s.login)
	r.Post("/logout", s.logout)

	r.Route("/profile", func(r chi.Router) {
		r.Patch("/", s.updateProfile)
		r.Put("/password", s.changePassword)
		r.Put("/social-links", s.updateSocialLinks)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", s.getCart)
		r.Delete("/", s.clearCart)
		r.Post("/lines", s.addLine)
		r.Route("/lines/{productID}", func(r chi.Router) {
			r.Patch("/", s.updateLine)
			r.Delete("/", s.removeLine)
		})
	})

	r.Route("/backups", func(r chi.Router) {
		r.Get("/", s.listBackups)
		r.Post("/", s.exportBackup)
		r.Post("/restore", s.importBackup)
	})

	return r
}
