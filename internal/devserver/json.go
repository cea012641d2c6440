package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/oapi-codegen/runtime"

	"github.com/florianilch/kanbanctl/internal/kanban"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// APIError is the error body of every non-2xx response.
type APIError struct {
	Path          string `json:"path"`
	Message       string `json:"message"`
	StatusCode    int    `json:"statusCode"`
	LocalDateTime string `json:"localDateTime"`
}

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// writeAPIError writes the API's error body for r.
func (s *Server) writeAPIError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(r.Context(), w, APIError{
		Path:          r.URL.Path,
		Message:       message,
		StatusCode:    status,
		LocalDateTime: s.now().Format("2006-01-02T15:04:05.999999999"),
	}, status)
}

// decodeBody reads a JSON body into dst and validates it. On failure the error response
// has been written and false is returned.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		s.writeAPIError(w, r, http.StatusBadRequest, "Malformed request body")
		return false
	}
	if err := kanban.Validate(dst); err != nil {
		s.writeAPIError(w, r, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// validationMessage renders field errors as "field: message" pairs in field order.
func validationMessage(err error) string {
	fields, ok := goerrors.GetValidationErrors(err)
	if !ok || len(fields) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field.Field+": "+field.Message)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

// pathID binds the int64 path parameter name. On failure the error response has been
// written and false is returned.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", name, r.PathValue(name), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		s.writeAPIError(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid path parameter %s", name))
		return 0, false
	}
	return id, true
}

// timestamp is the server's notion of now for created/updated fields.
func (s *Server) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}
