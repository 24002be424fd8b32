// Package api is the host callback surface: print servers post lifecycle
// events and progress here, and operators read and edit settings.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"octolabel/internal/catalog"
	"octolabel/internal/eventbus"
	"octolabel/internal/hostevents"
	"octolabel/internal/notify"
	"octolabel/internal/settings"
	logx "octolabel/pkg/logx"
)

// AdminHeader carries the admin token for restricted settings fields.
const AdminHeader = "X-Octolabel-Admin"

type Config struct {
	Addr            string
	AdminToken      string
	AllowAllOrigins bool
	RequestTimeout  time.Duration
}

// Dispatcher is the part of notify.Dispatcher the API drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, id catalog.ID, data notify.Data) notify.Outcome
}

// Deps are the components behind the routes. Health may be nil.
type Deps struct {
	Dispatcher Dispatcher
	Settings   *settings.Accessor
	Monitor    *settings.Monitor
	History    *notify.History
	Bus        eventbus.Bus
	Health     func() any
}

type Server struct {
	cfg    Config
	deps   Deps
	mapper hostevents.Mapper
	log    logx.Logger
	router chi.Router
	http   *http.Server
}

func New(cfg Config, deps Deps, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	if deps.Bus == nil {
		deps.Bus = eventbus.Nop{}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	s := &Server{cfg: cfg, deps: deps, log: log}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	corsOpts := cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", AdminHeader},
		MaxAge:         300,
	}
	if s.cfg.AllowAllOrigins {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/events", s.handleEvent)
		r.Post("/progress", s.handleProgress)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Get("/catalog", s.handleCatalog)
		r.Get("/history", s.handleHistory)
	})
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Serve listens on cfg.Addr until ctx is cancelled, then shuts down.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.log.Info("api listening", logx.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) isAdmin(r *http.Request) bool {
	if s.cfg.AdminToken == "" {
		return false
	}
	got := r.Header.Get(AdminHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.AdminToken)) == 1
}
