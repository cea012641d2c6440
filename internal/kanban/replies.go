package kanban

import (
	"context"
	"net/http"

	"github.com/florianilch/kanbanctl/internal/apiclient"
)

const repliesPath = "/api/v1/replies"

// ReplyService manages replies to comments.
type ReplyService struct {
	api API
}

// NewReplyService creates a ReplyService.
func NewReplyService(api API) *ReplyService {
	return &ReplyService{api: api}
}

// ListForComment returns the replies to a comment.
func (s *ReplyService) ListForComment(ctx context.Context, commentID int64) ([]Reply, error) {
	param, err := pathParam("commentId", commentID)
	if err != nil {
		return nil, err
	}

	var replies []Reply
	err = s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: repliesPath + "/comment/" + param}, &replies)
	return replies, err
}

func (s *ReplyService) Get(ctx context.Context, id int64) (*Reply, error) {
	path, err := itemPath(repliesPath, id)
	if err != nil {
		return nil, err
	}

	var reply Reply
	if err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: path}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *ReplyService) Create(ctx context.Context, req ReplyCreateRequest) (*Reply, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	var reply Reply
	if err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: repliesPath, Body: req}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *ReplyService) Update(ctx context.Context, id int64, req MessageUpdateRequest) (*Reply, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	path, err := itemPath(repliesPath, id)
	if err != nil {
		return nil, err
	}

	var reply Reply
	if err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPut, Path: path, Body: req}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *ReplyService) Delete(ctx context.Context, id int64) error {
	return deleteItem(ctx, s.api, repliesPath, id)
}
