// Package devserver implements an in-memory Kanban API for local development and
// end-to-end tests.
//
// It issues HS256 JWT access tokens and rotating refresh tokens, rejects missing or
// expired bearer credentials with 401, and answers errors with the API's error body
// {path, message, statusCode, localDateTime}. Nothing is persisted.
package devserver
