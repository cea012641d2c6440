package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/kanbanctl/internal/apiclient"
	"github.com/florianilch/kanbanctl/internal/app"
	"github.com/florianilch/kanbanctl/internal/observability"
)

// session is the per-invocation environment of a client command.
type session struct {
	cfg   *app.Config
	app   *app.App
	cmd   *cli.Command
	stdin *bufio.Reader
}

type sessionAction func(ctx context.Context, s *session) error

// instrument loads the configuration and installs logging.
func instrument(ctx context.Context, cmd *cli.Command) (*app.Config, func(context.Context) error, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	shutdown, err := observability.Instrument(ctx, cfg.LogLevel, string(cfg.LogFormat),
		observability.WithWriter(cmd.Root().ErrWriter))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}
	return cfg, shutdown, nil
}

// withSession builds the application before running action and tears it down after.
func withSession(action sessionAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) (err error) {
		cfg, shutdown, err := instrument(ctx, cmd)
		if err != nil {
			return err
		}
		defer func() {
			if shutdownErr := shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
				slog.WarnContext(ctx, "flushing logs failed", "error", shutdownErr)
			}
		}()

		application, err := app.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to create app: %w", err)
		}
		defer func() {
			if closeErr := application.Close(); closeErr != nil {
				err = errors.Join(err, closeErr)
			}
		}()

		return action(ctx, &session{cfg: cfg, app: application, cmd: cmd})
	}
}

// render writes v to stdout in the configured output format.
func (s *session) render(v any) error {
	return render(s.cmd.Root().Writer, s.cfg.Output, v)
}

// printf writes a status line to stdout.
func (s *session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.cmd.Root().Writer, format+"\n", args...)
}

// authorID returns --author, or the user id of the stored session.
func (s *session) authorID(ctx context.Context) (int64, error) {
	if s.cmd.IsSet("author") {
		return s.cmd.Int64("author"), nil
	}

	status, err := s.app.Services.Auth.Status(ctx)
	if err != nil {
		return 0, err
	}
	if !status.LoggedIn {
		return 0, apiclient.SessionEnded("not logged in", nil)
	}
	id, err := strconv.ParseInt(status.UserID, 10, 64)
	if err != nil {
		return 0, usageError("cannot derive the author from the session, pass --author")
	}
	return id, nil
}
