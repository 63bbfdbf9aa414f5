// Package store caches compiled chunks in a SQLite database, keyed by the
// SHA-256 of their source text.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/clove/compiler"
	"github.com/chazu/clove/pkg/bytecode"
)

// ErrNotFound indicates no chunk is cached for the requested source.
var ErrNotFound = errors.New("store: chunk not found")

// Store is a persistent chunk cache. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
	log  commonlog.Logger
}

// Open opens (creating if needed) the cache database at path. Use ":memory:"
// for a throwaway cache.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		hash TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		data BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, path: path, log: commonlog.GetLogger("clove.store")}, nil
}

// DefaultPath returns $CLOVE_CACHE, or ~/.clove/cache.db when unset.
func DefaultPath() (string, error) {
	if p := os.Getenv("CLOVE_CACHE"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home dir: %w", err)
	}
	return filepath.Join(home, ".clove", "cache.db"), nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Key returns the cache key for source.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached chunk for source. Entries written by a different
// bytecode version are treated as missing.
func (s *Store) Get(ctx context.Context, source string) (*bytecode.Chunk, error) {
	var (
		version int
		data    []byte
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT version, data FROM chunks WHERE hash = ?", Key(source),
	).Scan(&version, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying chunk: %w", err)
	}
	if version != int(bytecode.BytecodeVersion) {
		return nil, ErrNotFound
	}

	c, err := bytecode.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decoding cached chunk: %w", err)
	}
	return c, nil
}

// Put stores c as the compiled form of source, replacing any previous entry.
func (s *Store) Put(ctx context.Context, source string, c *bytecode.Chunk) error {
	data, err := bytecode.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding chunk: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO chunks (hash, version, data, created_at) VALUES (?, ?, ?, ?)",
		Key(source), bytecode.BytecodeVersion, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}
	return nil
}

// Compile returns the cached chunk for source, compiling and caching it on a
// miss. The second result reports whether the cache was hit. Compile errors
// are returned as-is and never cached.
func (s *Store) Compile(ctx context.Context, source string) (*bytecode.Chunk, bool, error) {
	c, err := s.Get(ctx, source)
	switch {
	case err == nil:
		return c, true, nil
	case errors.Is(err, ErrNotFound):
	default:
		// A corrupt entry is recompiled and overwritten.
		s.log.Warningf("ignoring cached chunk: %s", err)
	}

	c, err = compiler.CompileChunk(source)
	if err != nil {
		return nil, false, err
	}
	if err := s.Put(ctx, source, c); err != nil {
		return nil, false, err
	}
	return c, false, nil
}

// Count returns the number of cached chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Purge removes every cached chunk.
func (s *Store) Purge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("purging chunks: %w", err)
	}
	return nil
}
