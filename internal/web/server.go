// Package web serves the bakery menu over HTTP: a JSON API, a server-rendered
// kiosk page, and a websocket that pushes menu updates.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/bakery/internal/config"
	"github.com/JonMunkholm/bakery/internal/loader"
	mw "github.com/JonMunkholm/bakery/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MenuService is the loader as seen by the web layer. *loader.Loader implements it.
type MenuService interface {
	State() loader.State
	Refresh(ctx context.Context)
	Subscribe() (<-chan loader.State, func())
}

// Freshness reports whether the cached menu is due for a background refresh.
// *cache.Manager implements it.
type Freshness interface {
	ShouldRefresh() bool
}

// Server is the HTTP server for the menu service.
type Server struct {
	menu     MenuService
	cache    Freshness
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
	hub      *Hub
	limiters []*rateLimiter
}

// NewServer creates a Server with all middleware and routes installed.
func NewServer(menu MenuService, cache Freshness, cfg *config.Config) *Server {
	s := &Server{
		menu:   menu,
		cache:  cache,
		cfg:    cfg,
		router: chi.NewRouter(),
		hub:    NewHub(menu.State, cfg.Security.AllowedOrigins),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware shared by every route.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Long-lived connections skip compression and the request timeout.
	s.router.Get("/ws/menu", s.hub.HandleWebSocket)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

		r.Get("/healthz", s.handleHealth)
		r.Get("/", http.RedirectHandler("/kiosk", http.StatusFound).ServeHTTP)
		r.Get("/kiosk", s.handleKiosk)

		r.Route("/api/menu", func(r chi.Router) {
			r.Get("/", s.handleMenu)
			r.Get("/categories", s.handleCategories)
			r.Get("/category/{categoryID}", s.handleCategory)
			r.Get("/status", s.handleStatus)

			r.Group(func(r chi.Router) {
				r.Use(mw.APIKeyAuth(s.cfg.Security))
				if s.cfg.Rate.Enabled {
					r.Use(s.newLimiter(s.cfg.Rate.RefreshLimit).middleware)
				}
				r.Post("/refresh", s.handleRefresh)
			})
		})
	})
}

func (s *Server) newLimiter(perMinute int) *rateLimiter {
	rl := newRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl
}

// RunHub pushes loader updates to websocket clients until ctx is cancelled.
func (s *Server) RunHub(ctx context.Context) {
	updates, unsubscribe := s.menu.Subscribe()
	defer unsubscribe()
	s.hub.Run(ctx, updates)
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background helpers.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
// Menu images may live on any https host.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	const csp = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data: https:; connect-src 'self' ws: wss:; font-src 'self'"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				h.Set("Content-Security-Policy", csp)
			}
			next.ServeHTTP(w, r)
		})
	}
}
