package tokensource

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/florianilch/kanbanctl/internal/tokenstore"
)

// ErrNoCredentials is returned when the store holds no credential pair.
var ErrNoCredentials = errors.New("no stored credentials")

// StoreTokenSource reports the pair currently held in a TokenStore as an oauth2.Token.
// It never refreshes; expired access tokens are refreshed by the dispatcher on 401.
type StoreTokenSource struct {
	ctx   context.Context
	store tokenstore.TokenStore
}

// Compile-time check to ensure StoreTokenSource implements oauth2.TokenSource
var _ oauth2.TokenSource = (*StoreTokenSource)(nil)

// NewStoreTokenSource creates a StoreTokenSource.
// oauth2.TokenSource.Token() has no context parameter, so ctx is kept for store reads.
func NewStoreTokenSource(ctx context.Context, store tokenstore.TokenStore) (*StoreTokenSource, error) {
	if store == nil {
		return nil, fmt.Errorf("missing token store")
	}
	return &StoreTokenSource{ctx: ctx, store: store}, nil
}

// Token reads the stored pair. Returns ErrNoCredentials when nothing is stored.
func (s *StoreTokenSource) Token() (*oauth2.Token, error) {
	pair, err := s.store.Read(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("reading stored credentials: %w", err)
	}
	if pair == nil {
		return nil, ErrNoCredentials
	}
	return Token(*pair), nil
}
