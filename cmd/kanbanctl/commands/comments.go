package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/kanbanctl/internal/kanban"
)

func authorFlag() cli.Flag {
	return &cli.Int64Flag{Name: "author", Usage: "author user id, defaults to the logged-in user"}
}

func commentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "comments",
		Usage: "manage task comments",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "list the comments of a task",
				ArgsUsage: "TASK_ID",
				Action: withSession(func(ctx context.Context, s *session) error {
					taskID, err := idArg(s.cmd, 0, "task id")
					if err != nil {
						return err
					}
					comments, err := s.app.Services.Comments.ListForTask(ctx, taskID)
					if err != nil {
						return err
					}
					return s.render(comments)
				}),
			},
			{
				Name:      "get",
				Usage:     "show a comment",
				ArgsUsage: "ID",
				Action: withSession(func(ctx context.Context, s *session) error {
					id, err := idArg(s.cmd, 0, "comment id")
					if err != nil {
						return err
					}
					comment, err := s.app.Services.Comments.Get(ctx, id)
					if err != nil {
						return err
					}
					return s.render(comment)
				}),
			},
			{
				Name:  "create",
				Usage: "comment on a task",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "task", Required: true, Usage: "task id"},
					&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Required: true},
					authorFlag(),
				},
				Action: withSession(func(ctx context.Context, s *session) error {
					author, err := s.authorID(ctx)
					if err != nil {
						return err
					}
					comment, err := s.app.Services.Comments.Create(ctx, kanban.CommentCreateRequest{
						TaskID:       s.cmd.Int64("task"),
						AuthorUserID: author,
						Message:      s.cmd.String("message"),
					})
					if err != nil {
						return err
					}
					return s.render(comment)
				}),
			},
			{
				Name:      "update",
				Usage:     "edit a comment",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Required: true},
				},
				Action: withSession(func(ctx context.Context, s *session) error {
					id, err := idArg(s.cmd, 0, "comment id")
					if err != nil {
						return err
					}
					comment, err := s.app.Services.Comments.Update(ctx, id, kanban.MessageUpdateRequest{Message: s.cmd.String("message")})
					if err != nil {
						return err
					}
					return s.render(comment)
				}),
			},
			{
				Name:      "delete",
				Usage:     "delete a comment with its replies",
				ArgsUsage: "ID",
				Action: withSession(func(ctx context.Context, s *session) error {
					id, err := idArg(s.cmd, 0, "comment id")
					if err != nil {
						return err
					}
					if err := s.app.Services.Comments.Delete(ctx, id); err != nil {
						return err
					}
					s.printf("deleted comment %d", id)
					return nil
				}),
			},
		},
	}
}
