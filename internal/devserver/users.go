package devserver

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/florianilch/kanbanctl/internal/kanban"
)

const (
	defaultPageSize = 20
	maxPageSize     = 2000
	maxImageBytes   = 5 << 20
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var (
		page, size *int
		sort       *string
	)
	query := r.URL.Query()
	for name, dest := range map[string]any{"page": &page, "size": &size, "sort": &sort} {
		if err := runtime.BindQueryParameter("form", true, false, name, query, dest); err != nil {
			s.writeAPIError(w, r, http.StatusBadRequest, "Invalid query parameter "+name)
			return
		}
	}

	number, limit := 0, defaultPageSize
	if page != nil && *page > 0 {
		number = *page
	}
	if size != nil && *size > 0 {
		limit = min(*size, maxPageSize)
	}

	s.db.mu.RLock()
	records := s.db.users.list(nil)
	s.db.mu.RUnlock()

	users := make([]kanban.User, 0, len(records))
	for _, record := range records {
		users = append(users, record.User)
	}
	if sort != nil {
		sortUsers(users, *sort)
	}

	writeJSON(r.Context(), w, paginate(users, number, limit), http.StatusOK)
}

// paginate slices items into a zero-based page of the given size.
func paginate[T any](items []T, number, size int) kanban.Page[T] {
	total := len(items)
	start := min(number*size, total)
	end := min(start+size, total)
	content := items[start:end]

	totalPages := (total + size - 1) / size
	return kanban.Page[T]{
		Content:          content,
		TotalElements:    int64(total),
		TotalPages:       totalPages,
		Number:           number,
		Size:             size,
		NumberOfElements: len(content),
		First:            number == 0,
		Last:             number >= totalPages-1,
		Empty:            len(content) == 0,
	}
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	user, found := s.db.user(id)
	if !found {
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("User with id [%d] not found", id))
		return
	}

	writeJSON(r.Context(), w, user, http.StatusOK)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var req kanban.UserUpdateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	s.db.mu.Lock()
	record, found := s.db.users.get(id)
	if !found {
		s.db.mu.Unlock()
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("User with id [%d] not found", id))
		return
	}
	if req.Email != nil && s.db.emailTaken(string(*req.Email), id) {
		s.db.mu.Unlock()
		s.writeAPIError(w, r, http.StatusConflict, "Email already taken")
		return
	}
	if req.Email != nil {
		record.Email = *req.Email
	}
	if req.FirstName != nil {
		record.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		record.LastName = *req.LastName
	}
	if req.Gender != nil {
		record.Gender = *req.Gender
	}
	if req.ImageID != nil {
		record.ImageID = req.ImageID
	}
	user := record.User
	s.db.mu.Unlock()

	writeJSON(r.Context(), w, user, http.StatusOK)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	s.db.mu.Lock()
	removed := s.db.users.remove(id)
	s.db.mu.Unlock()
	if !removed {
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("User with id [%d] not found", id))
		return
	}
	s.tokens.revokeAll(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUploadProfileImage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		s.writeAPIError(w, r, http.StatusBadRequest, "Malformed multipart request")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	part, header, err := r.FormFile(kanban.ProfileImageField)
	if err != nil {
		s.writeAPIError(w, r, http.StatusBadRequest, "Missing file part "+kanban.ProfileImageField)
		return
	}
	_ = part.Close()

	var file openapi_types.File
	file.InitFromMultipart(header)
	data, err := file.Bytes()
	if err != nil || len(data) == 0 {
		s.writeAPIError(w, r, http.StatusBadRequest, "Empty file")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	imageID := uuid.NewString()
	s.db.mu.Lock()
	record, found := s.db.users.get(id)
	if found {
		record.image = data
		record.imageType = contentType
		record.ImageID = &imageID
	}
	s.db.mu.Unlock()
	if !found {
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("User with id [%d] not found", id))
		return
	}

	slog.InfoContext(r.Context(), "profile image stored", "user_id", id, "bytes", file.FileSize())
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetProfileImage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}

	s.db.mu.RLock()
	record, found := s.db.users.get(id)
	var (
		image       []byte
		contentType string
	)
	if found {
		image, contentType = record.image, record.imageType
	}
	s.db.mu.RUnlock()

	switch {
	case !found:
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("User with id [%d] not found", id))
	case len(image) == 0:
		s.writeAPIError(w, r, http.StatusNotFound, fmt.Sprintf("Profile image for user [%d] not found", id))
	default:
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(image)
	}
}
