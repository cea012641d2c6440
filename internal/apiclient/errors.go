package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to dispatcher errors.
const (
	TextCodeTransport    = "KANBAN_TRANSPORT_ERROR"
	TextCodeSessionEnded = "KANBAN_SESSION_ENDED"
	TextCodeApplication  = "KANBAN_APPLICATION_ERROR"
	TextCodeInvalidInput = "KANBAN_INVALID_REQUEST"
)

// Metadata keys of application errors.
const (
	metadataStatus  = "status"
	metadataMessage = "message"
	metadataPath    = "path"
)

const defaultSessionMessage = "session ended"

// ErrorKind classifies dispatcher failures.
type ErrorKind int

const (
	// KindNone marks errors that did not originate in the dispatcher.
	KindNone ErrorKind = iota
	// KindTransport covers failures where no response was received.
	KindTransport
	// KindAuthorization means the session ended and the user must log in again.
	KindAuthorization
	// KindApplication is any other non-2xx response from the API.
	KindApplication
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuthorization:
		return "authorization"
	case KindApplication:
		return "application"
	default:
		return "none"
	}
}

// APIError is the error body returned by the Kanban API.
type APIError struct {
	Path          string `json:"path"`
	Message       string `json:"message"`
	StatusCode    int    `json:"statusCode"`
	LocalDateTime string `json:"localDateTime,omitempty"`
}

// KindOf returns the kind of a dispatcher error, or KindNone.
func KindOf(err error) ErrorKind {
	var e *goerrors.Error
	if !errors.As(err, &e) {
		return KindNone
	}
	switch e.TextCode {
	case TextCodeTransport:
		return KindTransport
	case TextCodeSessionEnded:
		return KindAuthorization
	case TextCodeApplication:
		return KindApplication
	default:
		return KindNone
	}
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool { return KindOf(err) == KindTransport }

// IsAuthorization reports whether err means the session ended.
func IsAuthorization(err error) bool { return KindOf(err) == KindAuthorization }

// IsApplication reports whether err is an API error response.
func IsApplication(err error) bool { return KindOf(err) == KindApplication }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *goerrors.Error
	if !errors.As(err, &e) {
		return 0
	}
	return e.Code
}

// ServerMessage returns the API's error message carried by an application error.
func ServerMessage(err error) string {
	var e *goerrors.Error
	if !errors.As(err, &e) || e.Metadata == nil {
		return ""
	}
	msg, _ := e.Metadata[metadataMessage].(string)
	return msg
}

// newError builds a taxonomy error keeping cause as the unwrap target.
// goerrors.Wrap would clone an existing *goerrors.Error and keep its category instead.
func newError(category goerrors.Category, textCode, message string, cause error) *goerrors.Error {
	e := goerrors.New(message, category).WithTextCode(textCode)
	e.Source = cause
	return e
}

func newTransportError(cause error) *goerrors.Error {
	return newError(goerrors.CategoryExternal, TextCodeTransport, "request failed", cause)
}

func newAuthorizationError(message string, cause error) *goerrors.Error {
	if message == "" {
		message = defaultSessionMessage
	}
	return newError(goerrors.CategoryAuth, TextCodeSessionEnded, message, cause).
		WithCode(http.StatusUnauthorized)
}

// newApplicationError maps a non-2xx response onto an application error. body is the
// response body, parsed as APIError when possible.
func newApplicationError(status int, body []byte) *goerrors.Error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}

	e := newError(categoryForStatus(status), TextCodeApplication,
		fmt.Sprintf("api responded %d: %s", status, apiErr.Message), nil).
		WithCode(status).
		WithMetadata(map[string]any{
			metadataStatus:  status,
			metadataMessage: apiErr.Message,
		})
	if apiErr.Path != "" {
		e = e.WithMetadata(map[string]any{metadataPath: apiErr.Path})
	}
	return e
}

// newDecodeError reports a 2xx response whose body could not be decoded.
func newDecodeError(status int, cause error) *goerrors.Error {
	return newError(goerrors.CategoryExternal, TextCodeApplication,
		fmt.Sprintf("api responded %d with an unreadable body", status), cause).
		WithCode(status).
		WithMetadata(map[string]any{
			metadataStatus:  status,
			metadataMessage: "unreadable response body",
		})
}

// NewValidationError reports a request payload rejected before any I/O.
func NewValidationError(message string, fields ...goerrors.FieldError) *goerrors.Error {
	return goerrors.NewValidation(message, fields...).WithTextCode(TextCodeInvalidInput)
}

func categoryForStatus(status int) goerrors.Category {
	switch {
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusConflict:
		return goerrors.CategoryConflict
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status >= 400 && status < 500:
		return goerrors.CategoryBadInput
	default:
		return goerrors.CategoryExternal
	}
}

// SessionEnded reports that the stored session is gone or unusable. cause may be nil.
func SessionEnded(message string, cause error) error {
	return newAuthorizationError(message, cause)
}
