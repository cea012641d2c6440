package tokenstore

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const credentialsSchema = `CREATE TABLE IF NOT EXISTS credentials (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteStore keeps the pair as a JSON value in a single row of a local SQLite database.
type SQLiteStore struct {
	pool *sqlitex.Pool
	path string
}

// Compile-time check to ensure SQLiteStore implements TokenStore
var _ TokenStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path in WAL mode.
// Callers must Close the store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    2,
		PrepareConn: prepareCredentialsConn,
	})
	if err != nil {
		return nil, fmt.Errorf("opening credential database %s: %w", path, err)
	}

	return &SQLiteStore{
		pool: pool,
		path: path,
	}, nil
}

func prepareCredentialsConn(conn *sqlite.Conn) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return sqlitex.ExecuteTransient(conn, credentialsSchema, nil)
}

// Read returns the stored pair, or nil if no row exists or the row is malformed.
func (s *SQLiteStore) Read(ctx context.Context) (*CredentialPair, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var (
		value string
		found bool
	)
	err = sqlitex.Execute(conn, "SELECT value FROM credentials WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{RecordKey},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = stmt.ColumnText(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	if !found {
		return nil, nil
	}

	pair, ok := decodePair([]byte(value))
	if !ok {
		slog.WarnContext(ctx, "ignoring malformed stored credentials", "store", "sqlite", "path", s.path)
		return nil, nil
	}
	return pair, nil
}

// Write upserts the pair.
func (s *SQLiteStore) Write(ctx context.Context, pair CredentialPair) error {
	data, err := encodePair(pair)
	if err != nil {
		return err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT INTO credentials (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		&sqlitex.ExecOptions{Args: []any{RecordKey, string(data)}},
	)
	if err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// Clear deletes the row. A missing row is not an error.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "DELETE FROM credentials WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{RecordKey},
	})
	if err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return nil
}

// Close releases the database pool.
func (s *SQLiteStore) Close() error {
	return s.pool.Close()
}
