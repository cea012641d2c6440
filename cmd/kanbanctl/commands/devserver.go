package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/kanbanctl/internal/app"
)

func devserverCommand() *cli.Command {
	return &cli.Command{
		Name:  "devserver",
		Usage: "run an in-memory Kanban API for local development",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server--host",
				Usage: "server host",
				Value: app.DefaultConfigServerHost,
			},
			&cli.IntFlag{
				Name:  "server--port",
				Usage: "server port",
				Value: app.DefaultConfigServerPort,
			},
			&cli.StringFlag{
				Name:  "server--jwt-secret",
				Usage: "access token signing secret, random when empty",
			},
			&cli.DurationFlag{
				Name:  "server--access-ttl",
				Usage: "access token lifetime",
				Value: app.DefaultConfigServerAccessTTL,
			},
			&cli.DurationFlag{
				Name:  "server--refresh-ttl",
				Usage: "refresh token lifetime",
				Value: app.DefaultConfigServerRefreshTTL,
			},
		},
		Action: devserverAction,
	}
}

func devserverAction(ctx context.Context, cmd *cli.Command) error {
	cfg, shutdown, err := instrument(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		_ = shutdown(context.WithoutCancel(ctx))
	}()

	slog.InfoContext(ctx, "starting")

	if err := app.Serve(ctx, cfg); err != nil {
		return fmt.Errorf("development server failed: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}
