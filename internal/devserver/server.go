package devserver

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 14 * 24 * time.Hour
)

// Config configures a Server.
type Config struct {
	// JWTSecret signs access tokens. A random secret is generated when empty.
	JWTSecret  []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now returns the current time. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Server is the development API server.
type Server struct {
	handler http.Handler
	server  *http.Server

	db     *database
	tokens *tokenIssuer
	now    func() time.Time
}

// Compile-time check that Server implements http.Handler
var _ http.Handler = (*Server)(nil)

// New creates a Server with an empty database.
func New(cfg Config) (*Server, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if len(cfg.JWTSecret) == 0 {
		cfg.JWTSecret = make([]byte, 32)
		if _, err := rand.Read(cfg.JWTSecret); err != nil {
			return nil, fmt.Errorf("generating jwt secret: %w", err)
		}
		cfg.Logger.Info("using random jwt secret, sessions end on restart")
	}

	s := &Server{
		db:     newDatabase(),
		tokens: newTokenIssuer(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, cfg.Now),
		now:    cfg.Now,
	}

	mux := http.NewServeMux()
	s.routes(mux)
	s.handler = applyMiddlewares(mux,
		Logging(cfg.Logger),
		Recovery,
	)

	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/refresh", s.handleRefresh)
	mux.Handle("POST /api/v1/auth/logout", s.requireBearer(s.handleLogout))

	mux.Handle("GET /api/v1/tasks", s.requireBearer(s.handleListTasks))
	mux.Handle("POST /api/v1/tasks", s.requireBearer(s.handleCreateTask))
	mux.Handle("GET /api/v1/tasks/{id}", s.requireBearer(s.handleGetTask))
	mux.Handle("PUT /api/v1/tasks/{id}", s.requireBearer(s.handleUpdateTask))
	mux.Handle("DELETE /api/v1/tasks/{id}", s.requireBearer(s.handleDeleteTask))

	mux.Handle("GET /api/v1/comments/task/{taskId}", s.requireBearer(s.handleListComments))
	mux.Handle("POST /api/v1/comments", s.requireBearer(s.handleCreateComment))
	mux.Handle("GET /api/v1/comments/{id}", s.requireBearer(s.handleGetComment))
	mux.Handle("PUT /api/v1/comments/{id}", s.requireBearer(s.handleUpdateComment))
	mux.Handle("DELETE /api/v1/comments/{id}", s.requireBearer(s.handleDeleteComment))

	mux.Handle("GET /api/v1/replies/comment/{commentId}", s.requireBearer(s.handleListReplies))
	mux.Handle("POST /api/v1/replies", s.requireBearer(s.handleCreateReply))
	mux.Handle("GET /api/v1/replies/{id}", s.requireBearer(s.handleGetReply))
	mux.Handle("PUT /api/v1/replies/{id}", s.requireBearer(s.handleUpdateReply))
	mux.Handle("DELETE /api/v1/replies/{id}", s.requireBearer(s.handleDeleteReply))

	mux.Handle("GET /api/v1/users", s.requireBearer(s.handleListUsers))
	mux.Handle("GET /api/v1/users/{id}", s.requireBearer(s.handleGetUser))
	mux.Handle("PUT /api/v1/users/{id}", s.requireBearer(s.handleUpdateUser))
	mux.Handle("DELETE /api/v1/users/{id}", s.requireBearer(s.handleDeleteUser))
	mux.Handle("POST /api/v1/users/{id}/profile-image", s.requireBearer(s.handleUploadProfileImage))
	mux.Handle("GET /api/v1/users/{id}/profile-image", s.requireBearer(s.handleGetProfileImage))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.writeAPIError(w, r, http.StatusNotFound, "No endpoint "+r.Method+" "+r.URL.Path)
	})
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors (network failures during operation) are sent to the error channel.
//
// The caller is responsible for calling Shutdown() to stop the server.
func (s *Server) Start(ctx context.Context, address string) (<-chan error, error) {
	// Create listener synchronously to catch port-in-use errors immediately
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	s.server = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := s.server.Serve(listener)
		// Only report error if not from graceful shutdown
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.InfoContext(ctx, "development api server listening", "address", listener.Addr().String())

	return errCh, nil
}

// Shutdown performs graceful shutdown of the HTTP server.
// Returns error if shutdown fails or times out.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		// Graceful shutdown failed - force close
		_ = s.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
