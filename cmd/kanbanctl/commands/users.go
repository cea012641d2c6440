package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/kanbanctl/internal/kanban"
)

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "manage users",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list a page of users",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Usage: "zero-based page number"},
					&cli.IntFlag{Name: "size", Usage: "page size"},
					&cli.StringFlag{Name: "sort", Usage: "property[,asc|desc]"},
				},
				Action: withSession(func(ctx context.Context, s *session) error {
					page, err := s.app.Services.Users.List(ctx, kanban.ListUsersParams{
						Page: optionalInt(s.cmd, "page"),
						Size: optionalInt(s.cmd, "size"),
						Sort: optionalString(s.cmd, "sort"),
					})
					if err != nil {
						return err
					}
					return s.render(page)
				}),
			},
			{
				Name:      "get",
				Usage:     "show a user",
				ArgsUsage: "ID",
				Action: withSession(func(ctx context.Context, s *session) error {
					id, err := idArg(s.cmd, 0, "user id")
					if err != nil {
						return err
					}
					user, err := s.app.Services.Users.Get(ctx, id)
					if err != nil {
						return err
					}
					return s.render(user)
				}),
			},
			{
				Name:      "update",
				Usage:     "change profile fields, unset flags are left unchanged",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email"},
					&cli.StringFlag{Name: "first-name"},
					&cli.StringFlag{Name: "last-name"},
					&cli.StringFlag{Name: "gender", Usage: "MALE|FEMALE|OTHER"},
					&cli.StringFlag{Name: "image-id"},
				},
				Action: withSession(func(ctx context.Context, s *session) error {
					id, err := idArg(s.cmd, 0, "user id")
					if err != nil {
						return err
					}

					req := kanban.UserUpdateRequest{
						FirstName: optionalString(s.cmd, "first-name"),
						LastName:  optionalString(s.cmd, "last-name"),
						ImageID:   optionalString(s.cmd, "image-id"),
					}
					if email := optionalString(s.cmd, "email"); email != nil {
						v := openapi_types.Email(*email)
						req.Email = &v
					}
					if gender := optionalString(s.cmd, "gender"); gender != nil {
						v := kanban.Gender(strings.ToUpper(*gender))
						req.Gender = &v
					}

					user, err := s.app.Services.Users.Update(ctx, id, req)
					if err != nil {
						return err
					}
					return s.render(user)
				}),
			},
			{
				Name:      "delete",
				Usage:     "delete a user",
				ArgsUsage: "ID",
				Action: withSession(func(ctx context.Context, s *session) error {
					id, err := idArg(s.cmd, 0, "user id")
					if err != nil {
						return err
					}
					if err := s.app.Services.Users.Delete(ctx, id); err != nil {
						return err
					}
					s.printf("deleted user %d", id)
					return nil
				}),
			},
			{
				Name:      "upload-image",
				Usage:     "upload a profile image",
				ArgsUsage: "ID FILE",
				Action: withSession(func(ctx context.Context, s *session) error {
					id, err := idArg(s.cmd, 0, "user id")
					if err != nil {
						return err
					}
					path := s.cmd.Args().Get(1)
					if path == "" {
						return usageError("missing image file")
					}
					data, err := os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("reading image: %w", err)
					}

					var file openapi_types.File
					file.InitFromBytes(data, filepath.Base(path))
					if err := s.app.Services.Users.UploadProfileImage(ctx, id, file); err != nil {
						return err
					}
					s.printf("uploaded %s (%d bytes)", file.Filename(), file.FileSize())
					return nil
				}),
			},
			{
				Name:      "image",
				Usage:     "download a profile image",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Usage: "write to this file instead of stdout"},
				},
				Action: withSession(func(ctx context.Context, s *session) error {
					id, err := idArg(s.cmd, 0, "user id")
					if err != nil {
						return err
					}
					data, contentType, err := s.app.Services.Users.ProfileImage(ctx, id)
					if err != nil {
						return err
					}

					out := s.cmd.String("out")
					if out == "" {
						_, err := s.cmd.Root().Writer.Write(data)
						return err
					}
					if err := os.WriteFile(out, data, 0o644); err != nil {
						return fmt.Errorf("writing image: %w", err)
					}
					s.printf("saved %s (%s, %d bytes)", out, contentType, len(data))
					return nil
				}),
			},
		},
	}
}
