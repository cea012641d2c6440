package commands

import (
	"context"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/kanbanctl/internal/kanban"
)

// taskFlags describes a full task; update replaces every field.
func taskFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Required: true},
		&cli.StringFlag{Name: "description"},
		&cli.StringFlag{Name: "status", Usage: "TODO|IN_PROGRESS|DONE", Value: string(kanban.StatusTodo)},
		&cli.StringSliceFlag{Name: "label", Usage: "BUG|FEATURE|ENHANCEMENT|DOCUMENTATION|REFACTOR, repeatable"},
		&cli.Int64Flag{Name: "assignee", Usage: "assignee user id"},
		&cli.StringFlag{Name: "due", Usage: "due date (RFC 3339)"},
		&cli.FloatFlag{Name: "position", Usage: "ordering within the column"},
	}
}

func tasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "manage tasks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list tasks",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "only tasks in this column"},
				},
				Action: withSession(func(ctx context.Context, s *session) error {
					var status *kanban.Status
					if s.cmd.IsSet("status") {
						v := kanban.Status(strings.ToUpper(s.cmd.String("status")))
						status = &v
					}
					tasks, err := s.app.Services.Tasks.List(ctx, status)
					if err != nil {
						return err
					}
					return s.render(tasks)
				}),
			},
			{
				Name:      "get",
				Usage:     "show a task",
				ArgsUsage: "ID",
				Action: withSession(func(ctx context.Context, s *session) error {
					id, err := idArg(s.cmd, 0, "task id")
					if err != nil {
						return err
					}
					task, err := s.app.Services.Tasks.Get(ctx, id)
					if err != nil {
						return err
					}
					return s.render(task)
				}),
			},
			{
				Name:  "create",
				Usage: "create a task",
				Flags: taskFlags(),
				Action: withSession(func(ctx context.Context, s *session) error {
					req, err := taskRequest(s.cmd)
					if err != nil {
						return err
					}
					task, err := s.app.Services.Tasks.Create(ctx, req)
					if err != nil {
						return err
					}
					return s.render(task)
				}),
			},
			{
				Name:      "update",
				Usage:     "replace a task",
				ArgsUsage: "ID",
				Flags:     taskFlags(),
				Action: withSession(func(ctx context.Context, s *session) error {
					id, err := idArg(s.cmd, 0, "task id")
					if err != nil {
						return err
					}
					req, err := taskRequest(s.cmd)
					if err != nil {
						return err
					}
					task, err := s.app.Services.Tasks.Update(ctx, id, req)
					if err != nil {
						return err
					}
					return s.render(task)
				}),
			},
			{
				Name:      "delete",
				Usage:     "delete a task with its comments",
				ArgsUsage: "ID",
				Action: withSession(func(ctx context.Context, s *session) error {
					id, err := idArg(s.cmd, 0, "task id")
					if err != nil {
						return err
					}
					if err := s.app.Services.Tasks.Delete(ctx, id); err != nil {
						return err
					}
					s.printf("deleted task %d", id)
					return nil
				}),
			},
		},
	}
}

func taskRequest(cmd *cli.Command) (kanban.TaskRequest, error) {
	due, err := optionalTime(cmd, "due")
	if err != nil {
		return kanban.TaskRequest{}, err
	}

	var labels []kanban.Label
	for _, label := range cmd.StringSlice("label") {
		labels = append(labels, kanban.Label(strings.ToUpper(label)))
	}

	return kanban.TaskRequest{
		Title:          cmd.String("title"),
		Description:    optionalString(cmd, "description"),
		Status:         kanban.Status(strings.ToUpper(cmd.String("status"))),
		Labels:         labels,
		AssigneeUserID: optionalInt64(cmd, "assignee"),
		DueAt:          due,
		Position:       optionalFloat(cmd, "position"),
	}, nil
}
