package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/kanbanctl/internal/kanban"
)

func repliesCommand() *cli.Command {
	return &cli.Command{
		Name:  "replies",
		Usage: "manage replies to comments",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "list the replies to a comment",
				ArgsUsage: "COMMENT_ID",
				Action: withSession(func(ctx context.Context, s *session) error {
					commentID, err := idArg(s.cmd, 0, "comment id")
					if err != nil {
						return err
					}
					replies, err := s.app.Services.Replies.ListForComment(ctx, commentID)
					if err != nil {
						return err
					}
					return s.render(replies)
				}),
			},
			{
				Name:      "get",
				Usage:     "show a reply",
				ArgsUsage: "ID",
				Action: withSession(func(ctx context.Context, s *session) error {
					id, err := idArg(s.cmd, 0, "reply id")
					if err != nil {
						return err
					}
					reply, err := s.app.Services.Replies.Get(ctx, id)
					if err != nil {
						return err
					}
					return s.render(reply)
				}),
			},
			{
				Name:  "create",
				Usage: "reply to a comment",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "comment", Required: true, Usage: "comment id"},
					&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Required: true},
					authorFlag(),
				},
				Action: withSession(func(ctx context.Context, s *session) error {
					author, err := s.authorID(ctx)
					if err != nil {
						return err
					}
					reply, err := s.app.Services.Replies.Create(ctx, kanban.ReplyCreateRequest{
						CommentID:    s.cmd.Int64("comment"),
						AuthorUserID: author,
						Message:      s.cmd.String("message"),
					})
					if err != nil {
						return err
					}
					return s.render(reply)
				}),
			},
			{
				Name:      "update",
				Usage:     "edit a reply",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Required: true},
				},
				Action: withSession(func(ctx context.Context, s *session) error {
					id, err := idArg(s.cmd, 0, "reply id")
					if err != nil {
						return err
					}
					reply, err := s.app.Services.Replies.Update(ctx, id, kanban.MessageUpdateRequest{Message: s.cmd.String("message")})
					if err != nil {
						return err
					}
					return s.render(reply)
				}),
			},
			{
				Name:      "delete",
				Usage:     "delete a reply",
				ArgsUsage: "ID",
				Action: withSession(func(ctx context.Context, s *session) error {
					id, err := idArg(s.cmd, 0, "reply id")
					if err != nil {
						return err
					}
					if err := s.app.Services.Replies.Delete(ctx, id); err != nil {
						return err
					}
					s.printf("deleted reply %d", id)
					return nil
				}),
			},
		},
	}
}
