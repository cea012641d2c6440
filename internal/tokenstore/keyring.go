package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

// KeyringStore provides OS-native secure credential storage for the pair.
// Uses macOS Keychain, Windows Credential Manager, or Linux Secret Service.
type KeyringStore struct {
	service string
	user    string
}

// Compile-time check to ensure KeyringStore implements TokenStore
var _ TokenStore = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore for the OS-native credential storage
// (macOS Keychain, Windows Credential Manager, etc.) using the given service and user identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringStore{
		service: service,
		user:    user,
	}, nil
}

// Read returns the pair from the system keyring, or nil if no entry exists.
func (k *KeyringStore) Read(ctx context.Context) (*CredentialPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	secret, err := keyring.Get(k.service, k.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pair, ok := decodePair([]byte(secret))
	if !ok {
		slog.WarnContext(ctx, "ignoring malformed stored credentials", "store", "keyring", "service", k.service)
		return nil, nil
	}
	return pair, nil
}

// Write persists the pair to the system keyring, overwriting any existing value.
func (k *KeyringStore) Write(ctx context.Context, pair CredentialPair) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodePair(pair)
	if err != nil {
		return err
	}
	return keyring.Set(k.service, k.user, string(data))
}

// Clear deletes the keyring entry. A missing entry is not an error.
func (k *KeyringStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := keyring.Delete(k.service, k.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}
