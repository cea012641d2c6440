package devserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/florianilch/kanbanctl/internal/kanban"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	var status *kanban.Status
	if err := runtime.BindQueryParameter("form", true, false, "status", r.URL.Query(), &status); err != nil {
		s.writeAPIError(w, r, http.StatusBadRequest, "Invalid query parameter status")
		return
	}
	if status != nil {
		if err := kanban.Validate(struct {
			Status kanban.Status `json:"status" validate:"oneof=TODO IN_PROGRESS DONE"`
		}{*status}); err != nil {
			s.writeAPIError(w, r, http.StatusBadRequest, validationMessage(err))
			return
		}
	}

	s.db.mu.RLock()
	tasks := s.db.tasks.list(func(t kanban.Task) bool {
		return status == nil || t.Status == *status
	})
	s.db.mu.RUnlock()

	writeJSON(r.Context(), w, tasks, http.StatusOK)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	s.db.mu.RLock()
	task, found := s.db.tasks.get(id)
	s.db.mu.RUnlock()
	if !found {
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("Task with id [%d] not found", id))
		return
	}

	writeJSON(r.Context(), w, task, http.StatusOK)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req kanban.TaskRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	now := s.timestamp()

	s.db.mu.Lock()
	task := s.db.tasks.insert(func(id int64) kanban.Task {
		return applyTaskRequest(kanban.Task{
			ID:            id,
			CreatorUserID: currentUserID(r.Context()),
			CreatedAt:     now,
		}, req, now)
	})
	s.db.mu.Unlock()

	writeJSON(r.Context(), w, task, http.StatusOK)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var req kanban.TaskRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	s.db.mu.Lock()
	task, found := s.db.tasks.get(id)
	if found {
		task = applyTaskRequest(task, req, s.timestamp())
		s.db.tasks.put(id, task)
	}
	s.db.mu.Unlock()
	if !found {
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("Task with id [%d] not found", id))
		return
	}

	writeJSON(r.Context(), w, task, http.StatusOK)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	if !s.db.deleteTask(id) {
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("Task with id [%d] not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func applyTaskRequest(task kanban.Task, req kanban.TaskRequest, now time.Time) kanban.Task {
	task.Title = req.Title
	task.Description = req.Description
	task.Status = req.Status
	task.Labels = req.Labels
	if task.Labels == nil {
		task.Labels = []kanban.Label{}
	}
	task.AssigneeUserID = req.AssigneeUserID
	task.DueAt = req.DueAt
	task.Position = req.Position
	task.UpdatedAt = now
	return task
}
