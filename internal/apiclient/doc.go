// Package apiclient dispatches requests to the Kanban API with session handling.
//
// Transport is an http.RoundTripper that injects the stored access token as a bearer
// credential and, on a 401 response, exchanges the stored refresh token for a new pair
// and resubmits the request once. Client builds JSON requests on top of it and maps
// every failure onto a closed set of error kinds (see ErrorKind).
//
// At most one refresh exchange is in flight per Transport. Under RefreshReject a 401
// that arrives while an exchange is running ends the session immediately; under
// RefreshJoin it waits for the running exchange and retries with its result.
//
// Requests whose context is marked with Anonymous (login, registration) carry no bearer
// and never trigger a refresh.
package apiclient
