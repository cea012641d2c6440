package apiclient

import "context"

type contextKey int

const (
	anonymousKey contextKey = iota
	retryKey
)

// Anonymous marks ctx so that requests carry no bearer credential and a 401 response
// is reported as-is instead of starting a refresh.
func Anonymous(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey, true)
}

// IsAnonymous reports whether ctx was marked with Anonymous.
func IsAnonymous(ctx context.Context) bool {
	v, _ := ctx.Value(anonymousKey).(bool)
	return v
}

func withRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, retryKey, true)
}

// isRetry reports whether the request is the single resubmission after a refresh.
func isRetry(ctx context.Context) bool {
	v, _ := ctx.Value(retryKey).(bool)
	return v
}
