package tokenstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"filippo.io/age"
)

// SealedStore keeps the pair in a file encrypted to a local age X25519 identity.
// The identity is generated on first write when the identity file does not exist.
type SealedStore struct {
	filePath     string
	identityPath string

	mu       sync.Mutex
	identity *age.X25519Identity
}

// Compile-time check to ensure SealedStore implements TokenStore
var _ TokenStore = (*SealedStore)(nil)

// NewSealedStore creates a SealedStore writing ciphertext to filePath and reading the
// age identity from identityPath.
func NewSealedStore(filePath, identityPath string) (*SealedStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}
	if identityPath == "" {
		return nil, fmt.Errorf("identity path cannot be empty")
	}

	for _, dir := range []string{filepath.Dir(filePath), filepath.Dir(identityPath)} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
	}

	return &SealedStore{
		filePath:     filePath,
		identityPath: identityPath,
	}, nil
}

// Read decrypts and returns the stored pair. Returns nil when there is no ciphertext,
// no identity, or the ciphertext cannot be decrypted into a complete pair.
func (s *SealedStore) Read(ctx context.Context) (*CredentialPair, error) {
	ciphertext, err := readSecureFile(ctx, s.filePath)
	if err != nil || ciphertext == nil {
		return nil, err
	}

	identity, err := s.loadIdentity(ctx, false)
	if err != nil || identity == nil {
		return nil, err
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		slog.WarnContext(ctx, "ignoring undecryptable stored credentials", "store", "sealed", "path", s.filePath, "error", err)
		return nil, nil
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		slog.WarnContext(ctx, "ignoring undecryptable stored credentials", "store", "sealed", "path", s.filePath, "error", err)
		return nil, nil
	}

	pair, ok := decodePair(plaintext)
	if !ok {
		slog.WarnContext(ctx, "ignoring malformed stored credentials", "store", "sealed", "path", s.filePath)
		return nil, nil
	}
	return pair, nil
}

// Write encrypts the pair to the local identity and atomically replaces the ciphertext file.
func (s *SealedStore) Write(ctx context.Context, pair CredentialPair) error {
	plaintext, err := encodePair(pair)
	if err != nil {
		return err
	}

	identity, err := s.loadIdentity(ctx, true)
	if err != nil {
		return err
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, identity.Recipient())
	if err != nil {
		return fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalizing age encryption: %w", err)
	}

	return writeFileAtomic(ctx, s.filePath, ciphertext.Bytes())
}

// Clear removes the ciphertext file. The identity is kept for later writes.
func (s *SealedStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// loadIdentity returns the cached identity, reading it from disk on first use.
// With create set, a missing identity file is generated.
func (s *SealedStore) loadIdentity(ctx context.Context, create bool) (*age.X25519Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity != nil {
		return s.identity, nil
	}

	data, err := readSecureFile(ctx, s.identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading age identity: %w", err)
	}

	if data == nil {
		if !create {
			return nil, nil
		}
		identity, err := age.GenerateX25519Identity()
		if err != nil {
			return nil, fmt.Errorf("generating age identity: %w", err)
		}
		if err := writeFileAtomic(ctx, s.identityPath, []byte(identity.String()+"\n")); err != nil {
			return nil, fmt.Errorf("writing age identity: %w", err)
		}
		slog.InfoContext(ctx, "generated age identity for sealed credentials", "path", s.identityPath)
		s.identity = identity
		return identity, nil
	}

	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing age identity %s: %w", s.identityPath, err)
	}
	for _, candidate := range identities {
		if identity, ok := candidate.(*age.X25519Identity); ok {
			s.identity = identity
			return identity, nil
		}
	}
	return nil, fmt.Errorf("no X25519 identity in %s", s.identityPath)
}
