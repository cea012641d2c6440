package kanban

import (
	"context"
	"net/http"
	"net/url"

	"github.com/florianilch/kanbanctl/internal/apiclient"
)

const tasksPath = "/api/v1/tasks"

// TaskService manages tasks.
type TaskService struct {
	api API
}

// NewTaskService creates a TaskService.
func NewTaskService(api API) *TaskService {
	return &TaskService{api: api}
}

// List returns all tasks, or only those in status when non-nil.
func (s *TaskService) List(ctx context.Context, status *Status) ([]Task, error) {
	query := url.Values{}
	if status != nil {
		if err := validate.Var(*status, "oneof=TODO IN_PROGRESS DONE"); err != nil {
			return nil, apiclient.NewValidationError("invalid status filter")
		}
		if err := addQueryParam(query, "status", *status); err != nil {
			return nil, err
		}
	}

	var tasks []Task
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: tasksPath, Query: query}, &tasks)
	return tasks, err
}

// Get returns one task.
func (s *TaskService) Get(ctx context.Context, id int64) (*Task, error) {
	path, err := itemPath(tasksPath, id)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: path}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Create adds a task owned by the authenticated user.
func (s *TaskService) Create(ctx context.Context, req TaskRequest) (*Task, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	var task Task
	if err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: tasksPath, Body: req}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update replaces a task.
func (s *TaskService) Update(ctx context.Context, id int64, req TaskRequest) (*Task, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	path, err := itemPath(tasksPath, id)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPut, Path: path, Body: req}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, id int64) error {
	return deleteItem(ctx, s.api, tasksPath, id)
}

// itemPath returns collection/{id}.
func itemPath(collection string, id int64) (string, error) {
	param, err := pathParam("id", id)
	if err != nil {
		return "", err
	}
	return collection + "/" + param, nil
}

func deleteItem(ctx context.Context, api API, collection string, id int64) error {
	path, err := itemPath(collection, id)
	if err != nil {
		return err
	}
	return api.Do(ctx, apiclient.Request{Method: http.MethodDelete, Path: path}, nil)
}
