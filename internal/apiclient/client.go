package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/florianilch/kanbanctl/internal/tokenstore"
)

const (
	defaultTimeout = 30 * time.Second
	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 1 << 20
)

// Request describes one API call.
type Request struct {
	Method string
	// Path is joined to the client's base URL, e.g. "/api/v1/tasks".
	Path  string
	Query url.Values
	// Body is JSON-encoded unless RawBody is set.
	Body any
	// RawBody is sent as-is with ContentType.
	RawBody     []byte
	ContentType string
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	timeout          time.Duration
	transportOptions []TransportOption
}

// WithTimeout bounds each call including a refresh-and-retry cycle. Defaults to 30 seconds.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithTransportOptions passes options through to the underlying Transport.
func WithTransportOptions(opts ...TransportOption) ClientOption {
	return func(c *clientConfig) {
		c.transportOptions = append(c.transportOptions, opts...)
	}
}

// Client issues JSON requests against the Kanban API through a Transport.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	transport  *Transport
}

// NewClient creates a Client for baseURL. Credentials are read from and written to store.
func NewClient(baseURL string, store tokenstore.TokenStore, refresher Refresher, opts ...ClientOption) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", baseURL)
	}

	cfg := &clientConfig{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(cfg)
	}

	transport, err := NewTransport(store, refresher, cfg.transportOptions...)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout:   cfg.timeout,
			Transport: transport,
		},
		transport: transport,
	}, nil
}

// Transport returns the dispatcher used by the client.
func (c *Client) Transport() *Transport {
	return c.transport
}

// Do sends req and decodes a JSON response into out (if non-nil).
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	resp, err := c.send(ctx, req, "application/json")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return newDecodeError(resp.StatusCode, fmt.Errorf("decoding response of %s %s: %w", req.Method, req.Path, err)).
			WithRequestID(resp.Request.Header.Get(HeaderRequestID))
	}
	return nil
}

// Download sends req and returns the raw response body and its content type.
func (c *Client) Download(ctx context.Context, req Request) ([]byte, string, error) {
	resp, err := c.send(ctx, req, "*/*")
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", newTransportError(fmt.Errorf("reading response of %s %s: %w", req.Method, req.Path, err))
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// send performs the round trip and turns every non-2xx response into a taxonomy error.
// On success the caller owns the response body.
func (c *Client) send(ctx context.Context, req Request, accept string) (*http.Response, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classify(err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	requestID := resp.Request.Header.Get(HeaderRequestID)

	// A 401 here is terminal: either the request was anonymous (bad credentials) or it
	// was already resubmitted once with a refreshed token.
	if resp.StatusCode == http.StatusUnauthorized && !IsAnonymous(ctx) {
		appErr := newApplicationError(resp.StatusCode, body)
		return nil, newAuthorizationError(defaultSessionMessage, appErr).WithRequestID(requestID)
	}
	return nil, newApplicationError(resp.StatusCode, body).WithRequestID(requestID)
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.RawBody != nil:
		body = bytes.NewReader(req.RawBody)
		contentType = req.ContentType
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	return httpReq, nil
}

// classify maps an http.Client error onto the taxonomy. Errors already classified by
// the Transport are unwrapped from *url.Error; everything else is a transport error.
func classify(err error) error {
	var e *goerrors.Error
	if errors.As(err, &e) && KindOf(e) != KindNone {
		return e
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return newTransportError(urlErr.Err).WithMetadata(map[string]any{
			"url": strings.SplitN(urlErr.URL, "?", 2)[0],
		})
	}
	return newTransportError(err)
}
