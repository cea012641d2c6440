package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/florianilch/kanbanctl/internal/tokenstore"
)

// HeaderRequestID carries a per-request correlation id, kept across the retry.
const HeaderRequestID = "X-Request-ID"

// RefreshPolicy decides what a 401 does while another refresh exchange is running.
type RefreshPolicy string

const (
	// RefreshReject ends the session of concurrent 401s without a second exchange.
	RefreshReject RefreshPolicy = "reject"
	// RefreshJoin makes concurrent 401s wait for the running exchange and retry with its result.
	RefreshJoin RefreshPolicy = "join"
)

// Refresher exchanges a refresh token for a new credential pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (tokenstore.CredentialPair, error)
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithBase sets the underlying transport. Defaults to http.DefaultTransport.
func WithBase(base http.RoundTripper) TransportOption {
	return func(t *Transport) {
		if base != nil {
			t.base = base
		}
	}
}

// WithRefreshPolicy selects the concurrency policy for 401 handling.
func WithRefreshPolicy(policy RefreshPolicy) TransportOption {
	return func(t *Transport) {
		if policy != "" {
			t.policy = policy
		}
	}
}

// WithUserAgent sets the User-Agent of requests that don't carry one.
func WithUserAgent(userAgent string) TransportOption {
	return func(t *Transport) {
		t.userAgent = userAgent
	}
}

// Transport injects stored credentials and runs the refresh-and-retry protocol.
type Transport struct {
	base      http.RoundTripper
	store     tokenstore.TokenStore
	refresher Refresher
	policy    RefreshPolicy
	userAgent string

	// refreshing is the single-flight flag of RefreshReject.
	refreshing atomic.Bool
	// group collapses concurrent exchanges under RefreshJoin.
	group singleflight.Group
}

// Compile-time check that Transport implements http.RoundTripper.
var _ http.RoundTripper = (*Transport)(nil)

// NewTransport creates a Transport reading and updating credentials in store.
func NewTransport(store tokenstore.TokenStore, refresher Refresher, opts ...TransportOption) (*Transport, error) {
	if store == nil {
		return nil, fmt.Errorf("missing token store")
	}
	if refresher == nil {
		return nil, fmt.Errorf("missing refresher")
	}

	t := &Transport{
		base:      http.DefaultTransport,
		store:     store,
		refresher: refresher,
		policy:    RefreshReject,
	}
	for _, opt := range opts {
		opt(t)
	}

	switch t.policy {
	case RefreshReject, RefreshJoin:
	default:
		return nil, fmt.Errorf("unknown refresh policy %q", t.policy)
	}

	return t, nil
}

// RoundTrip sends req with the stored bearer credential. A 401 on a non-anonymous,
// not yet retried request triggers one refresh exchange and one resubmission.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	out := req.Clone(ctx)
	if err := bufferBody(req, out); err != nil {
		return nil, err
	}
	if out.Header.Get(HeaderRequestID) == "" {
		out.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if t.userAgent != "" && out.Header.Get("User-Agent") == "" {
		out.Header.Set("User-Agent", t.userAgent)
	}

	anonymous := IsAnonymous(ctx)
	var sentAccessToken string
	if !anonymous {
		if pair := t.readPair(ctx); pair != nil {
			out.Header.Set("Authorization", "Bearer "+pair.AccessToken)
			sentAccessToken = pair.AccessToken
		}
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || anonymous || isRetry(ctx) {
		return resp, nil
	}
	discard(resp)

	slog.DebugContext(ctx, "access token rejected, refreshing session",
		"method", out.Method, "path", out.URL.Path, "request_id", out.Header.Get(HeaderRequestID))

	// Once started, the refresh runs to completion even if the caller gives up.
	refreshCtx := context.WithoutCancel(ctx)

	var pair tokenstore.CredentialPair
	switch t.policy {
	case RefreshJoin:
		pair, err = t.refreshShared(refreshCtx, sentAccessToken)
	default:
		pair, err = t.refreshExclusive(refreshCtx)
	}
	if err != nil {
		return nil, err
	}

	retry := out.Clone(withRetry(ctx))
	if out.GetBody != nil {
		body, err := out.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replaying request body: %w", err)
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	return t.base.RoundTrip(retry)
}

// refreshExclusive runs the exchange under the single-flight flag. A 401 without refresh
// token, or while the flag is held, ends the session.
func (t *Transport) refreshExclusive(ctx context.Context) (tokenstore.CredentialPair, error) {
	current := t.readPair(ctx)
	if current == nil {
		t.clear(ctx)
		return tokenstore.CredentialPair{}, newAuthorizationError("no refresh token available", nil)
	}
	if !t.refreshing.CompareAndSwap(false, true) {
		t.clear(ctx)
		return tokenstore.CredentialPair{}, newAuthorizationError("session refresh already in progress", nil)
	}
	defer t.refreshing.Store(false)

	return t.exchange(ctx, current.RefreshToken)
}

// refreshShared joins the running exchange, if any. A request that carried an access
// token older than the stored one retries with the stored pair without an exchange.
func (t *Transport) refreshShared(ctx context.Context, sentAccessToken string) (tokenstore.CredentialPair, error) {
	current := t.readPair(ctx)
	if current == nil {
		t.clear(ctx)
		return tokenstore.CredentialPair{}, newAuthorizationError("no refresh token available", nil)
	}
	if sentAccessToken != "" && current.AccessToken != sentAccessToken {
		return *current, nil
	}

	v, err, shared := t.group.Do("refresh", func() (any, error) {
		// An exchange may have completed between the read above and entering the group.
		if latest := t.readPair(ctx); latest != nil && latest.AccessToken != current.AccessToken {
			return *latest, nil
		}
		return t.exchange(ctx, current.RefreshToken)
	})
	if err != nil {
		return tokenstore.CredentialPair{}, err
	}
	if shared {
		slog.DebugContext(ctx, "joined in-flight session refresh")
	}
	return v.(tokenstore.CredentialPair), nil
}

// exchange trades refreshToken for a new pair and persists it. ctx must already be
// detached from the caller's cancellation.
func (t *Transport) exchange(ctx context.Context, refreshToken string) (tokenstore.CredentialPair, error) {
	pair, err := t.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		slog.WarnContext(ctx, "session refresh failed", "error", err)
		t.clear(ctx)
		return tokenstore.CredentialPair{}, newAuthorizationError("session refresh failed", err)
	}

	if err := t.store.Write(ctx, pair); err != nil {
		// The new access token is still usable for the retry; later refreshes will fail.
		slog.ErrorContext(ctx, "failed to persist refreshed credentials", "error", err)
	} else {
		slog.InfoContext(ctx, "session refreshed")
	}
	return pair, nil
}

// readPair returns the stored pair; backend failures are logged and read as absent.
func (t *Transport) readPair(ctx context.Context) *tokenstore.CredentialPair {
	pair, err := t.store.Read(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to read stored credentials", "error", err)
		return nil
	}
	return pair
}

func (t *Transport) clear(ctx context.Context) {
	err := t.store.Clear(ctx)
	switch {
	case err == nil:
	case errors.Is(err, tokenstore.ErrReadOnly):
		slog.DebugContext(ctx, "credential storage is read-only, not clearing")
	default:
		slog.ErrorContext(ctx, "failed to clear stored credentials", "error", err)
	}
}

// bufferBody makes the request body replayable for the single resubmission.
func bufferBody(orig, out *http.Request) error {
	if orig.Body == nil || orig.Body == http.NoBody || orig.GetBody != nil {
		return nil
	}

	// RoundTrippers must close the body, also on error.
	defer func() { _ = orig.Body.Close() }()
	data, err := io.ReadAll(orig.Body)
	if err != nil {
		return fmt.Errorf("buffering request body: %w", err)
	}

	out.Body = io.NopCloser(bytes.NewReader(data))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	out.ContentLength = int64(len(data))
	return nil
}

// discard drains and closes a response body so the connection can be reused.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
