package devserver

import (
	"fmt"
	"net/http"

	"github.com/florianilch/kanbanctl/internal/kanban"
)

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	taskID, ok := s.pathID(w, r, "taskId")
	if !ok {
		return
	}

	s.db.mu.RLock()
	_, found := s.db.tasks.get(taskID)
	comments := s.db.comments.list(func(c kanban.Comment) bool { return c.TaskID == taskID })
	s.db.mu.RUnlock()
	if !found {
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("Task with id [%d] not found", taskID))
		return
	}

	writeJSON(r.Context(), w, comments, http.StatusOK)
}

func (s *Server) handleGetComment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	s.db.mu.RLock()
	comment, found := s.db.comments.get(id)
	s.db.mu.RUnlock()
	if !found {
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("Comment with id [%d] not found", id))
		return
	}

	writeJSON(r.Context(), w, comment, http.StatusOK)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req kanban.CommentCreateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	now := s.timestamp()

	s.db.mu.Lock()
	if _, found := s.db.tasks.get(req.TaskID); !found {
		s.db.mu.Unlock()
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("Task with id [%d] not found", req.TaskID))
		return
	}
	comment := s.db.comments.insert(func(id int64) kanban.Comment {
		return kanban.Comment{
			ID:           id,
			TaskID:       req.TaskID,
			AuthorUserID: req.AuthorUserID,
			Message:      req.Message,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	})
	s.db.mu.Unlock()

	writeJSON(r.Context(), w, comment, http.StatusOK)
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var req kanban.MessageUpdateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	s.db.mu.Lock()
	comment, found := s.db.comments.get(id)
	if found {
		comment.Message = req.Message
		comment.UpdatedAt = s.timestamp()
		s.db.comments.put(id, comment)
	}
	s.db.mu.Unlock()
	if !found {
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("Comment with id [%d] not found", id))
		return
	}

	writeJSON(r.Context(), w, comment, http.StatusOK)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	if !s.db.deleteComment(id) {
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("Comment with id [%d] not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListReplies(w http.ResponseWriter, r *http.Request) {
	commentID, ok := s.pathID(w, r, "commentId")
	if !ok {
		return
	}

	s.db.mu.RLock()
	_, found := s.db.comments.get(commentID)
	replies := s.db.replies.list(func(reply kanban.Reply) bool { return reply.CommentID == commentID })
	s.db.mu.RUnlock()
	if !found {
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("Comment with id [%d] not found", commentID))
		return
	}

	writeJSON(r.Context(), w, replies, http.StatusOK)
}

func (s *Server) handleGetReply(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	s.db.mu.RLock()
	reply, found := s.db.replies.get(id)
	s.db.mu.RUnlock()
	if !found {
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("Reply with id [%d] not found", id))
		return
	}

	writeJSON(r.Context(), w, reply, http.StatusOK)
}

func (s *Server) handleCreateReply(w http.ResponseWriter, r *http.Request) {
	var req kanban.ReplyCreateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	now := s.timestamp()

	s.db.mu.Lock()
	if _, found := s.db.comments.get(req.CommentID); !found {
		s.db.mu.Unlock()
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("Comment with id [%d] not found", req.CommentID))
		return
	}
	reply := s.db.replies.insert(func(id int64) kanban.Reply {
		return kanban.Reply{
			ID:           id,
			CommentID:    req.CommentID,
			AuthorUserID: req.AuthorUserID,
			Message:      req.Message,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	})
	s.db.mu.Unlock()

	writeJSON(r.Context(), w, reply, http.StatusOK)
}

func (s *Server) handleUpdateReply(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var req kanban.MessageUpdateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	s.db.mu.Lock()
	reply, found := s.db.replies.get(id)
	if found {
		reply.Message = req.Message
		reply.UpdatedAt = s.timestamp()
		s.db.replies.put(id, reply)
	}
	s.db.mu.Unlock()
	if !found {
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("Reply with id [%d] not found", id))
		return
	}

	writeJSON(r.Context(), w, reply, http.StatusOK)
}

func (s *Server) handleDeleteReply(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	s.db.mu.Lock()
	removed := s.db.replies.remove(id)
	s.db.mu.Unlock()
	if !removed {
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("Reply with id [%d] not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
