package web

import (
	"context"
	"net/http"

	"sysmonk/internal/auth"
	"sysmonk/internal/conf"
	"sysmonk/internal/logging"
	"sysmonk/internal/netx"
	"sysmonk/internal/stream"
	"sysmonk/internal/system"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// OverviewSource describes the host for the monitor page.
type OverviewSource interface {
	Overview(ctx context.Context) (*system.Overview, error)
}

// Options carries the collaborators a Server is built from.
type Options struct {
	Config   *conf.Config
	Sessions *auth.SessionStore
	Codec    *auth.TokenCodec
	Provider system.Provider
	Overview OverviewSource
	Logger   zerolog.Logger
	Version  string
}

// Server owns the HTTP surface: pages, login, the raw WebSocket channel
// and the Socket.IO dashboard namespace.
type Server struct {
	cfg       *conf.Config
	verifier  *auth.Verifier
	validator *auth.Validator
	codec     *auth.TokenCodec
	provider  system.Provider
	overview  OverviewSource
	slots     *stream.Slots
	sio       *netx.Socket
	dashboard *dashboardManager
	pages     pages
	version   string
	log       zerolog.Logger

	// base outlives requests; channels run on it until Close
	base   context.Context
	cancel context.CancelFunc
}

// New builds a Server and registers the Socket.IO namespace
func New(opts Options) (*Server, error) {
	p, err := loadPages()
	if err != nil {
		return nil, err
	}

	base, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:       opts.Config,
		verifier:  auth.NewVerifier(opts.Config.Auth, opts.Sessions, logging.Component(opts.Logger, "auth")),
		validator: auth.NewValidator(opts.Sessions, opts.Codec, opts.Config.SessionLifetime()),
		codec:     opts.Codec,
		provider:  opts.Provider,
		overview:  opts.Overview,
		slots:     stream.NewSlots(opts.Config.MaxConnections),
		sio:       netx.NewSocket("/socket.io"),
		dashboard: newDashboardManager(),
		pages:     p,
		version:   opts.Version,
		log:       logging.Component(opts.Logger, "web"),
		base:      base,
		cancel:    cancel,
	}
	s.setupDashboard()
	return s, nil
}

// Close stops every open telemetry channel
func (s *Server) Close() {
	s.cancel()
}

// Router returns the HTTP handler for the whole application
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(s.log))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders)

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleIndex)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)
	r.Get("/check-auth", s.handleCheckAuth)
	r.Handle("/assets/*", assetsHandler())
	r.Handle("/socket.io/*", s.sio.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(s.validator, s.failedAuth))
		r.Get("/monitor", s.handleMonitor)
		r.Get("/ws/system", s.handleSystemSocket)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		netx.WriteMethodNotAllowed(w)
	})
	return r
}

func (s *Server) page(title string) pageData {
	return pageData{Title: title, Version: s.version}
}
