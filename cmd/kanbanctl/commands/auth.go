package commands

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/kanbanctl/internal/kanban"
)

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "manage the stored session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "log in and store the issued credentials",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username-or-email", Aliases: []string{"u"}, Usage: "username or email"},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "password, prompted for when omitted"},
				},
				Action: withSession(loginAction),
			},
			{
				Name:  "register",
				Usage: "create an account and store the issued credentials",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "password", Usage: "password, prompted for when omitted"},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "first-name", Required: true},
					&cli.StringFlag{Name: "last-name", Required: true},
					&cli.StringFlag{Name: "gender", Usage: "MALE|FEMALE|OTHER", Value: string(kanban.GenderOther)},
				},
				Action: withSession(registerAction),
			},
			{
				Name:   "refresh",
				Usage:  "exchange the stored refresh token for a new pair",
				Action: withSession(refreshAction),
			},
			{
				Name:   "logout",
				Usage:  "end the session and clear the stored credentials",
				Action: withSession(logoutAction),
			},
			{
				Name:   "status",
				Usage:  "show the stored session",
				Action: withSession(statusAction),
			},
		},
	}
}

func loginAction(ctx context.Context, s *session) error {
	login := s.cmd.String("username-or-email")
	if login == "" {
		var err error
		if login, err = s.prompt("Username or email: "); err != nil {
			return err
		}
	}
	password, err := s.password()
	if err != nil {
		return err
	}

	if err := s.app.Services.Auth.Login(ctx, kanban.LoginRequest{UsernameOrEmail: login, Password: password}); err != nil {
		return err
	}
	s.printf("logged in as %s", login)
	return nil
}

func registerAction(ctx context.Context, s *session) error {
	password, err := s.password()
	if err != nil {
		return err
	}

	err = s.app.Services.Auth.Register(ctx, kanban.RegisterRequest{
		Username:  s.cmd.String("username"),
		Password:  password,
		Email:     openapi_types.Email(s.cmd.String("email")),
		FirstName: s.cmd.String("first-name"),
		LastName:  s.cmd.String("last-name"),
		Gender:    kanban.Gender(strings.ToUpper(s.cmd.String("gender"))),
	})
	if err != nil {
		return err
	}
	s.printf("registered and logged in as %s", s.cmd.String("username"))
	return nil
}

func refreshAction(ctx context.Context, s *session) error {
	if err := s.app.Services.Auth.Refresh(ctx); err != nil {
		return err
	}
	s.printf("session refreshed")
	return nil
}

// logoutAction succeeds once local credentials are gone, server-side revocation is best effort.
func logoutAction(ctx context.Context, s *session) error {
	if err := s.app.Services.Auth.Logout(ctx); err != nil {
		if status, statusErr := s.app.Services.Auth.Status(ctx); statusErr != nil || status.LoggedIn {
			return err
		}
		slog.WarnContext(ctx, "server-side logout failed, local credentials cleared", "error", err)
	}
	s.printf("logged out")
	return nil
}

func statusAction(ctx context.Context, s *session) error {
	status, err := s.app.Services.Auth.Status(ctx)
	if err != nil {
		return err
	}
	return s.render(status)
}

// password returns --password or prompts for it without echo.
func (s *session) password() (string, error) {
	if s.cmd.IsSet("password") {
		return s.cmd.String("password"), nil
	}

	file, ok := s.cmd.Root().Reader.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return s.prompt("")
	}

	_, _ = fmt.Fprint(s.cmd.Root().ErrWriter, "Password: ")
	secret, err := term.ReadPassword(int(file.Fd()))
	_, _ = fmt.Fprintln(s.cmd.Root().ErrWriter)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(secret), nil
}

// prompt reads one line from stdin.
func (s *session) prompt(label string) (string, error) {
	if label != "" {
		_, _ = fmt.Fprint(s.cmd.Root().ErrWriter, label)
	}
	if s.stdin == nil {
		s.stdin = bufio.NewReader(s.cmd.Root().Reader)
	}
	line, err := s.stdin.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" && err != nil {
		return "", usageError("no input on stdin")
	}
	return line, nil
}
