package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/florianilch/kanbanctl/internal/apiclient"
	"github.com/florianilch/kanbanctl/internal/devserver"
	"github.com/florianilch/kanbanctl/internal/kanban"
	"github.com/florianilch/kanbanctl/internal/tokensource"
)

// Version is stamped at build time.
var Version = "dev"

// App wires the credential store, the authenticated dispatcher and the resource services.
type App struct {
	cfg    *Config
	closer io.Closer

	Services *kanban.Services
}

// New creates a new App instance. Credentials are not read until the first call.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, closer, err := cfg.Auth.NewTokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	exchanger := tokensource.NewExchanger(cfg.API.BaseURL, tokensource.WithTimeout(cfg.API.Timeout))
	client, err := apiclient.NewClient(cfg.API.BaseURL, store, exchanger,
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithTransportOptions(
			apiclient.WithRefreshPolicy(cfg.Auth.RefreshPolicy),
			apiclient.WithUserAgent("kanbanctl/"+Version),
		),
	)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}

	return &App{
		cfg:    cfg,
		closer: closer,
		Services: &kanban.Services{
			Auth:     kanban.NewAuthService(client, store, exchanger),
			Tasks:    kanban.NewTaskService(client),
			Comments: kanban.NewCommentService(client),
			Replies:  kanban.NewReplyService(client),
			Users:    kanban.NewUserService(client),
		},
	}, nil
}

// Close releases the token store.
func (a *App) Close() error {
	return a.closer.Close()
}

// Serve runs the development API server and blocks until ctx is done or the server fails.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func Serve(ctx context.Context, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	server, err := devserver.New(devserver.Config{
		JWTSecret:  []byte(cfg.Server.JWTSecret),
		AccessTTL:  cfg.Server.AccessTTL,
		RefreshTTL: cfg.Server.RefreshTTL,
		Logger:     slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to create development server: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	address := cfg.Server.Host + ":" + strconv.FormatUint(uint64(cfg.Server.Port), 10)
	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	serverErrCh, err := server.Start(gCtx, address)
	if err != nil {
		return fmt.Errorf("development server startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, server.Shutdown)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-serverErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "development server runtime error", "error", err)
				return fmt.Errorf("devserver: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("development server stopped")
	return nil
}
