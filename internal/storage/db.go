// Package storage persists gens, lists, editor backups and gen version
// history in SQLite.
package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/conneroisu/randomall/internal/errors"
	"github.com/conneroisu/randomall/internal/logging"
	"github.com/conneroisu/randomall/internal/types"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS gens (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	username TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	category TEXT,
	subcategories TEXT NOT NULL DEFAULT '[]',
	tags TEXT NOT NULL DEFAULT '[]',
	access INTEGER NOT NULL DEFAULT 0,
	access_key TEXT NOT NULL DEFAULT '',
	format TEXT NOT NULL,
	body TEXT NOT NULL,
	variations INTEGER NOT NULL DEFAULT 0,
	hash TEXT NOT NULL DEFAULT '',
	views INTEGER NOT NULL DEFAULT 0,
	active INTEGER NOT NULL DEFAULT 1,
	copyright INTEGER NOT NULL DEFAULT 0,
	date_added INTEGER NOT NULL,
	date_updated INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gens_user ON gens(user_id);

CREATE TABLE IF NOT EXISTS gen_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	gen_id INTEGER NOT NULL REFERENCES gens(id) ON DELETE CASCADE,
	user_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	access INTEGER NOT NULL,
	category TEXT,
	format TEXT NOT NULL,
	body TEXT NOT NULL,
	hash TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gen_history_gen ON gen_history(gen_id);

CREATE TABLE IF NOT EXISTS lists (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	username TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	access INTEGER NOT NULL DEFAULT 0,
	active INTEGER NOT NULL DEFAULT 1,
	content TEXT NOT NULL,
	slicer INTEGER NOT NULL DEFAULT 0,
	date_added INTEGER NOT NULL,
	date_updated INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS backups (
	user_id INTEGER PRIMARY KEY,
	data TEXT NOT NULL,
	date_updated INTEGER NOT NULL
);
`

// Options configure Open.
type Options struct {
	Path      string
	CacheSize int
	CacheTTL  time.Duration
	Logger    logging.Logger
}

// Store owns the database handle and the repositories built on it.
type Store struct {
	db     *sql.DB
	logger logging.Logger

	Gens  *GensRepo
	Lists *ListsRepo
}

// Open opens (creating if needed) the database at opts.Path and applies the
// schema.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, apperrors.NewConfigError("STORAGE_PATH", "storage path is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}

	if opts.Path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, apperrors.NewStorageError("STORAGE_DIR", "failed to create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, apperrors.NewStorageError("STORAGE_OPEN", "failed to open database", err)
	}
	// SQLite has a single writer; one connection also keeps ":memory:"
	// databases from splitting across the pool.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if opts.Path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range append(pragmas, schema) {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, apperrors.NewStorageError("STORAGE_SCHEMA", "failed to initialize database", err)
		}
	}

	logger := opts.Logger.WithComponent("storage")
	logger.Info(ctx, "Database ready", "path", opts.Path)

	clock := time.Now
	return &Store{
		db:     db,
		logger: logger,
		Gens:   newGensRepo(db, NewCache[int64, *types.GenEntity](opts.CacheSize, opts.CacheTTL), clock),
		Lists:  newListsRepo(db, NewCache[int64, *types.ListEntity](opts.CacheSize, opts.CacheTTL), clock),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
