package kanban

import (
	"context"
	"net/http"

	"github.com/florianilch/kanbanctl/internal/apiclient"
)

const commentsPath = "/api/v1/comments"

// CommentService manages comments on tasks.
type CommentService struct {
	api API
}

// NewCommentService creates a CommentService.
func NewCommentService(api API) *CommentService {
	return &CommentService{api: api}
}

// ListForTask returns the comments of a task.
func (s *CommentService) ListForTask(ctx context.Context, taskID int64) ([]Comment, error) {
	param, err := pathParam("taskId", taskID)
	if err != nil {
		return nil, err
	}

	var comments []Comment
	err = s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: commentsPath + "/task/" + param}, &comments)
	return comments, err
}

func (s *CommentService) Get(ctx context.Context, id int64) (*Comment, error) {
	path, err := itemPath(commentsPath, id)
	if err != nil {
		return nil, err
	}

	var comment Comment
	if err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: path}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *CommentService) Create(ctx context.Context, req CommentCreateRequest) (*Comment, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	var comment Comment
	if err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: commentsPath, Body: req}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *CommentService) Update(ctx context.Context, id int64, req MessageUpdateRequest) (*Comment, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	path, err := itemPath(commentsPath, id)
	if err != nil {
		return nil, err
	}

	var comment Comment
	if err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPut, Path: path, Body: req}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *CommentService) Delete(ctx context.Context, id int64) error {
	return deleteItem(ctx, s.api, commentsPath, id)
}
