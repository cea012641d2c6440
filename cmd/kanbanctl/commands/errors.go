package commands

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/florianilch/kanbanctl/internal/apiclient"
)

// errUsage marks invalid command-line arguments.
var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// ErrorMessage renders a command error for the terminal.
func ErrorMessage(err error) string {
	var e *goerrors.Error
	if errors.As(err, &e) && len(e.ValidationErrors) > 0 {
		parts := make([]string, 0, len(e.ValidationErrors))
		for _, field := range e.ValidationErrors {
			parts = append(parts, field.Field+" "+field.Message)
		}
		return "invalid request: " + strings.Join(parts, ", ")
	}

	switch apiclient.KindOf(err) {
	case apiclient.KindAuthorization:
		return "session ended, run `kanbanctl auth login`"
	case apiclient.KindTransport:
		if errors.As(err, &e) && e.Source != nil {
			return "cannot reach the API: " + e.Source.Error()
		}
		return "cannot reach the API"
	case apiclient.KindApplication:
		message := apiclient.ServerMessage(err)
		if message == "" {
			return err.Error()
		}
		return fmt.Sprintf("%s (HTTP %d)", message, apiclient.StatusCode(err))
	}
	return err.Error()
}
