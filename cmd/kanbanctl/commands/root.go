package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/kanbanctl/internal/app"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	return newRootCommand(os.Stdin, os.Stdout, os.Stderr).Run(ctx, args)
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "kanbanctl",
		Usage:     "Kanban board API client",
		Version:   app.Version,
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output format (json|yaml)",
				Value:   string(app.DefaultConfigOutput),
			},
			&cli.StringFlag{
				Name:  "api--base-url",
				Usage: "Kanban API base URL",
				Value: app.DefaultConfigAPIBaseURL,
			},
			&cli.DurationFlag{
				Name:  "api--timeout",
				Usage: "timeout per API call including a refresh and retry",
				Value: app.DefaultConfigAPITimeout,
			},
			&cli.StringFlag{
				Name:  "auth--storage",
				Usage: "credential storage (file|env|keyring|sealed|sqlite)",
				Value: string(app.DefaultConfigAuthStorage),
			},
			&cli.StringFlag{
				Name:  "auth--refresh-policy",
				Usage: "handling of 401s while a refresh is running (reject|join)",
				Value: string(app.DefaultConfigRefreshPolicy),
			},
		},
		Commands: []*cli.Command{
			authCommand(),
			tasksCommand(),
			commentsCommand(),
			repliesCommand(),
			usersCommand(),
			devserverCommand(),
		},
	}
}
