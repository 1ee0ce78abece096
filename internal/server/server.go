// Package server exposes the gens engine over HTTP: gen and list CRUD, the
// rate limited result endpoint, a websocket test channel for the editor and
// a public gen page.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/netutil"

	"github.com/conneroisu/randomall/internal/config"
	"github.com/conneroisu/randomall/internal/engine"
	"github.com/conneroisu/randomall/internal/i18n"
	"github.com/conneroisu/randomall/internal/logging"
	"github.com/conneroisu/randomall/internal/middleware"
	"github.com/conneroisu/randomall/internal/storage"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// Deps are the collaborators of a Server.
type Deps struct {
	Store   *storage.Store
	Catalog *i18n.Catalog
	Events  logging.EventSink
	Logger  logging.Logger
}

// Server serves the HTTP API.
type Server struct {
	cfg     *config.Config
	store   *storage.Store
	catalog *i18n.Catalog
	events  logging.EventSink
	logger  logging.Logger
	chains  *middleware.Chains
	limiter *RateLimiter
	handler http.Handler

	// live websocket sessions; hijacked connections are not tracked by
	// http.Server.Shutdown
	sessions   sync.WaitGroup
	sessionMu  sync.Mutex
	closed     bool
	baseCtx    context.Context
	cancelBase context.CancelFunc
	closeOnce  sync.Once
}

// New creates a server. Close must be called when the server is not
// started with Serve.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server: config is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("server: store is required")
	}
	if deps.Catalog == nil {
		deps.Catalog = i18n.MustNew(cfg.Locale.Language)
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Events == nil {
		deps.Events = logging.NewLogEventSink(deps.Logger)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		store:   deps.Store,
		catalog: deps.Catalog,
		events:  deps.Events,
		logger:  deps.Logger.WithComponent("server"),
		chains: middleware.NewChains(middleware.Deps{
			Lists:   deps.Store.Lists,
			Backups: deps.Store.Gens,
			Catalog: deps.Catalog,
			Events:  deps.Events,
			Logger:  deps.Logger,
		}),
		limiter: NewRateLimiter(RateLimitConfig{
			RequestsPerMinute: cfg.Limits.ResultRequestsPerMinute,
			BurstSize:         cfg.Limits.ResultBurst,
		}),
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}
	s.handler = chain(s.routes(),
		s.recoverMiddleware,
		s.loggingMiddleware,
		s.corsMiddleware,
		identityMiddleware,
	)
	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/gens", s.handleCreateGen)
	mux.HandleFunc("POST /api/gens/test", s.handleTestGen)
	mux.HandleFunc("GET /api/gens/editor/ws", s.handleEditorWS)
	mux.HandleFunc("GET /api/gens/{id}", s.handleGenInfo)
	mux.HandleFunc("PUT /api/gens/{id}", s.handleEditGen)
	mux.HandleFunc("POST /api/gens/{id}", s.handleGenResult)
	mux.HandleFunc("POST /api/gens/{id}/key", s.handleChangeKey)

	mux.HandleFunc("POST /api/lists", s.handleCreateList)
	mux.HandleFunc("GET /api/lists/{id}", s.handleGetList)

	mux.HandleFunc("GET /gen/{id}", s.handleGenPage)
	return mux
}

// Handler returns the root handler with all HTTP middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe listens on the configured address and serves until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully and
// closes the server.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.Close()

	if n := s.cfg.Server.MaxConnections; n > 0 {
		ln = netutil.LimitListener(ln, n)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	s.logger.Info(ctx, "Server listening", "addr", ln.Addr().String(),
		"max_connections", s.cfg.Server.MaxConnections)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	<-errCh
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close ends websocket sessions, stops the rate limiter and waits for
// pending backups.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.sessionMu.Lock()
		s.closed = true
		s.sessionMu.Unlock()

		s.cancelBase()
		s.sessions.Wait()
		s.limiter.Stop()
		s.chains.Wait()
	})
}

func (s *Server) engineDeps() engine.Deps {
	return engine.Deps{
		Gens:    s.store.Gens,
		Chains:  s.chains,
		Catalog: s.catalog,
		Events:  s.events,
		Logger:  s.logger,
	}
}
