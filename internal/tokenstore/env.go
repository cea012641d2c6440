package tokenstore

import (
	"context"
	"fmt"
	"os"
)

const (
	envAccessTokenSuffix  = "ACCESS_TOKEN"
	envRefreshTokenSuffix = "REFRESH_TOKEN"
)

// EnvStore provides read-only access to a credential pair held in two environment
// variables, <prefix>ACCESS_TOKEN and <prefix>REFRESH_TOKEN.
// Suitable for CI where the session is provisioned externally.
type EnvStore struct {
	accessKey  string
	refreshKey string
}

// Compile-time check to ensure EnvStore implements TokenStore
var _ TokenStore = (*EnvStore)(nil)

// NewEnvStore creates an EnvStore for the given variable prefix.
// Returns error if the prefix is empty.
func NewEnvStore(prefix string) (*EnvStore, error) {
	if prefix == "" {
		return nil, fmt.Errorf("environment prefix cannot be empty")
	}

	return &EnvStore{
		accessKey:  prefix + envAccessTokenSuffix,
		refreshKey: prefix + envRefreshTokenSuffix,
	}, nil
}

// Read returns the pair from the environment. Returns nil unless both variables are set.
func (e *EnvStore) Read(ctx context.Context) (*CredentialPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pair := CredentialPair{
		AccessToken:  os.Getenv(e.accessKey),
		RefreshToken: os.Getenv(e.refreshKey),
	}
	if !pair.Complete() {
		return nil, nil
	}
	return &pair, nil
}

// Write is not supported for environment variables (they are read-only).
func (e *EnvStore) Write(ctx context.Context, _ CredentialPair) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return ErrReadOnly
}

// Clear is not supported for environment variables (they are read-only).
func (e *EnvStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return ErrReadOnly
}

// ReadOnly reports that the store cannot be written.
func (e *EnvStore) ReadOnly() bool { return true }
