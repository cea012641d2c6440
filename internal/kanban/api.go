package kanban

import (
	"context"

	"github.com/florianilch/kanbanctl/internal/apiclient"
)

// API is the dispatcher the services send requests through.
type API interface {
	Do(ctx context.Context, req apiclient.Request, out any) error
	Download(ctx context.Context, req apiclient.Request) ([]byte, string, error)
}

// Compile-time check to ensure apiclient.Client implements API
var _ API = (*apiclient.Client)(nil)

// Services bundles every resource service of one API client.
type Services struct {
	Auth     *AuthService
	Tasks    *TaskService
	Comments *CommentService
	Replies  *ReplyService
	Users    *UserService
}
