package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
)

// RecordKey names the single record holding the serialized credential pair.
const RecordKey = "tokens"

var (
	// ErrReadOnly is returned by Write and Clear on backends that cannot be modified.
	ErrReadOnly = errors.New("token storage is read-only")

	// ErrIncompletePair is returned by Write when either token is empty.
	ErrIncompletePair = errors.New("credential pair requires both access and refresh token")
)

// IsReadOnly reports whether s rejects Write and Clear with ErrReadOnly.
func IsReadOnly(s TokenStore) bool {
	ro, ok := s.(interface{ ReadOnly() bool })
	return ok && ro.ReadOnly()
}

// CredentialPair is the session credential issued by the API on login, registration
// and refresh.
type CredentialPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Complete reports whether both tokens are present.
func (p CredentialPair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// TokenStore reads and writes the credential pair to persistent storage.
//
// Implementations must be safe for concurrent use.
type TokenStore interface {
	// Read returns the stored pair, or nil when nothing is stored or the stored record
	// is malformed. An error is returned only when the backend itself fails.
	Read(ctx context.Context) (*CredentialPair, error)

	// Write replaces any stored pair. Returns ErrIncompletePair for partial pairs and
	// ErrReadOnly if the backend is read-only.
	Write(ctx context.Context, pair CredentialPair) error

	// Clear removes the stored pair. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// encodePair serializes a complete pair.
func encodePair(pair CredentialPair) ([]byte, error) {
	if !pair.Complete() {
		return nil, ErrIncompletePair
	}
	return json.Marshal(pair)
}

// decodePair parses a stored record. Malformed or partial records yield ok=false.
func decodePair(data []byte) (pair *CredentialPair, ok bool) {
	var p CredentialPair
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	if !p.Complete() {
		return nil, false
	}
	return &p, true
}
