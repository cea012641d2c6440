package devserver

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/florianilch/kanbanctl/internal/tokenstore"
)

var errInvalidRefreshToken = errors.New("invalid refresh token")

// accessClaims are the claims of an access token. The subject is the user id.
type accessClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type refreshRecord struct {
	userID    int64
	expiresAt time.Time
	revoked   bool
}

// tokenIssuer signs access tokens and tracks refresh tokens.
type tokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	refresh map[string]*refreshRecord
}

func newTokenIssuer(secret []byte, accessTTL, refreshTTL time.Duration, now func() time.Time) *tokenIssuer {
	return &tokenIssuer{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
		refresh:    make(map[string]*refreshRecord),
	}
}

// issue creates a new access token and refresh token for the user.
func (t *tokenIssuer) issue(userID int64, username string) (tokenstore.CredentialPair, error) {
	now := t.now()
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
			ID:        uuid.NewString(),
		},
	}).SignedString(t.secret)
	if err != nil {
		return tokenstore.CredentialPair{}, fmt.Errorf("signing access token: %w", err)
	}

	refresh := uuid.NewString()
	t.mu.Lock()
	t.refresh[refresh] = &refreshRecord{userID: userID, expiresAt: now.Add(t.refreshTTL)}
	t.mu.Unlock()

	return tokenstore.CredentialPair{AccessToken: access, RefreshToken: refresh}, nil
}

// verify checks signature and expiry of an access token and returns its user id.
func (t *tokenIssuer) verify(raw string) (int64, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(claims.Subject, 10, 64)
}

// rotate revokes refreshToken and returns the owning user id. Unknown, revoked and
// expired tokens are rejected.
func (t *tokenIssuer) rotate(refreshToken string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, ok := t.refresh[refreshToken]
	if !ok || record.revoked || record.expiresAt.Before(t.now()) {
		return 0, errInvalidRefreshToken
	}
	record.revoked = true
	return record.userID, nil
}

// revokeAll revokes every refresh token of the user.
func (t *tokenIssuer) revokeAll(userID int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	revoked := 0
	for token, record := range t.refresh {
		if record.userID != userID {
			continue
		}
		if !record.revoked {
			revoked++
		}
		// Revoked tokens are never accepted again; dropping them keeps the map bounded.
		delete(t.refresh, token)
	}
	return revoked
}
