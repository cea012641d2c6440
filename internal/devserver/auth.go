package devserver

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/florianilch/kanbanctl/internal/kanban"
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req kanban.RegisterRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.ErrorContext(r.Context(), "hashing password failed", "error", err)
		s.writeAPIError(w, r, http.StatusInternalServerError, "Unexpected error occurred")
		return
	}

	s.db.mu.Lock()
	switch {
	case s.db.usernameTaken(req.Username):
		s.db.mu.Unlock()
		s.writeAPIError(w, r, http.StatusConflict, "Username already taken")
		return
	case s.db.emailTaken(string(req.Email), 0):
		s.db.mu.Unlock()
		s.writeAPIError(w, r, http.StatusConflict, "Email already taken")
		return
	}
	record := s.db.users.insert(func(id int64) *userRecord {
		return &userRecord{
			User: kanban.User{
				ID:        id,
				FirstName: req.FirstName,
				LastName:  req.LastName,
				Username:  req.Username,
				Email:     req.Email,
				Gender:    req.Gender,
			},
			passwordHash: hash,
		}
	})
	s.db.mu.Unlock()

	slog.InfoContext(r.Context(), "user registered", "user_id", record.ID)
	s.issueTokens(w, r, record.ID, record.Username)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req kanban.LoginRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	record, ok := s.db.findUserByLogin(req.UsernameOrEmail)
	if !ok || bcrypt.CompareHashAndPassword(record.passwordHash, []byte(req.Password)) != nil {
		slog.WarnContext(r.Context(), "login failed, invalid credentials")
		s.writeAPIError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	s.issueTokens(w, r, record.ID, record.Username)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	userID, err := s.tokens.rotate(req.RefreshToken)
	if err != nil {
		slog.WarnContext(r.Context(), "refresh failed", "error", err)
		s.writeAPIError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	user, ok := s.db.user(userID)
	if !ok {
		s.writeAPIError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	s.issueTokens(w, r, user.ID, user.Username)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r.Context())
	revoked := s.tokens.revokeAll(userID)
	slog.InfoContext(r.Context(), "user logged out", "user_id", userID, "revoked_refresh_tokens", revoked)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) issueTokens(w http.ResponseWriter, r *http.Request, userID int64, username string) {
	pair, err := s.tokens.issue(userID, username)
	if err != nil {
		slog.ErrorContext(r.Context(), "issuing tokens failed", "error", err)
		s.writeAPIError(w, r, http.StatusInternalServerError, "Unexpected error occurred")
		return
	}
	writeJSON(r.Context(), w, pair, http.StatusOK)
}
