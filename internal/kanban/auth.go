package kanban

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/florianilch/kanbanctl/internal/apiclient"
	"github.com/florianilch/kanbanctl/internal/tokensource"
	"github.com/florianilch/kanbanctl/internal/tokenstore"
)

const (
	loginPath    = "/api/v1/auth/login"
	registerPath = "/api/v1/auth/register"
	logoutPath   = "/api/v1/auth/logout"
)

// AuthService starts and ends sessions and keeps the token store in sync.
type AuthService struct {
	api       API
	store     tokenstore.TokenStore
	refresher apiclient.Refresher
}

// NewAuthService creates an AuthService.
func NewAuthService(api API, store tokenstore.TokenStore, refresher apiclient.Refresher) *AuthService {
	return &AuthService{api: api, store: store, refresher: refresher}
}

// SessionStatus describes the stored session.
type SessionStatus struct {
	LoggedIn  bool       `json:"loggedIn" yaml:"loggedIn"`
	UserID    string     `json:"userId,omitempty" yaml:"userId,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
	Expired   bool       `json:"expired" yaml:"expired"`
}

// Login authenticates and stores the issued pair.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) error {
	if err := Validate(req); err != nil {
		return err
	}
	return s.startSession(ctx, loginPath, req)
}

// Register creates an account and stores the issued pair.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) error {
	if err := Validate(req); err != nil {
		return err
	}
	return s.startSession(ctx, registerPath, req)
}

func (s *AuthService) startSession(ctx context.Context, path string, body any) error {
	if tokenstore.IsReadOnly(s.store) {
		return fmt.Errorf("cannot start a session: %w", tokenstore.ErrReadOnly)
	}

	var pair tokenstore.CredentialPair
	err := s.api.Do(apiclient.Anonymous(ctx), apiclient.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	}, &pair)
	if err != nil {
		return err
	}

	if err := s.store.Write(ctx, pair); err != nil {
		return fmt.Errorf("storing credentials: %w", err)
	}
	slog.InfoContext(ctx, "session started", "user_id", tokensource.Subject(pair.AccessToken))
	return nil
}

// Refresh exchanges the stored refresh token for a new pair. On failure the store is
// cleared and a session-ended error is returned.
func (s *AuthService) Refresh(ctx context.Context) error {
	if tokenstore.IsReadOnly(s.store) {
		return fmt.Errorf("cannot refresh the session: %w", tokenstore.ErrReadOnly)
	}

	current, err := s.store.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading credentials: %w", err)
	}
	if current == nil {
		return apiclient.SessionEnded("not logged in", nil)
	}

	pair, err := s.refresher.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if clearErr := s.store.Clear(context.WithoutCancel(ctx)); clearErr != nil && !errors.Is(clearErr, tokenstore.ErrReadOnly) {
			slog.ErrorContext(ctx, "failed to clear stored credentials", "error", clearErr)
		}
		return apiclient.SessionEnded("session refresh failed", err)
	}

	if err := s.store.Write(ctx, pair); err != nil {
		return fmt.Errorf("storing credentials: %w", err)
	}
	return nil
}

// Logout revokes the session server-side on a best-effort basis and always clears the
// store. The server's error, if any, is returned after clearing.
func (s *AuthService) Logout(ctx context.Context) error {
	serverErr := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   logoutPath,
	}, nil)

	clearErr := s.store.Clear(context.WithoutCancel(ctx))
	if errors.Is(clearErr, tokenstore.ErrReadOnly) {
		clearErr = nil
	}
	if clearErr != nil {
		clearErr = fmt.Errorf("clearing credentials: %w", clearErr)
	}

	return errors.Join(clearErr, serverErr)
}

// Status reports the stored session without contacting the API.
func (s *AuthService) Status(ctx context.Context) (*SessionStatus, error) {
	source, err := tokensource.NewStoreTokenSource(ctx, s.store)
	if err != nil {
		return nil, err
	}

	token, err := source.Token()
	if errors.Is(err, tokensource.ErrNoCredentials) {
		return &SessionStatus{}, nil
	}
	if err != nil {
		return nil, err
	}

	status := &SessionStatus{
		LoggedIn: true,
		UserID:   tokensource.Subject(token.AccessToken),
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		status.ExpiresAt = &expiry
		status.Expired = !token.Valid()
	}
	return status, nil
}
