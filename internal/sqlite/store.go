// Package sqlite implements the profile store: the host application's SQLite
// index together with the blob files it references.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/sigsmuggle/pkg/types"
)

var _ types.Store = (*Store)(nil)

// Store owns one index connection and one blob root.
type Store struct {
	db     *sql.DB
	root   string
	dbPath string
	fs     afero.Fs
	log    *zap.SugaredLogger
	bucket func() int
}

// Option configures a Store at Open.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Store) { s.log = log }
}

// WithFs sets the filesystem blob files are read from and written to.
// The default is the operating system filesystem. The index itself always
// lives on the operating system filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(s *Store) { s.fs = fsys }
}

// Open connects to the store described by cfg.
// The database file must already exist unless cfg.Create is set.
func Open(cfg types.Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data dir: %w", err)
	}

	s := &Store{
		root:   root,
		dbPath: filepath.Join(root, filepath.Base(cfg.DatabasePath())),
		fs:     afero.NewOsFs(),
		log:    zap.NewNop().Sugar(),
		bucket: defaultBucket,
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Create {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("%w: creating data dir: %w", types.ErrStoreIO, err)
		}
	} else if _, err := os.Stat(s.dbPath); err != nil {
		return nil, fmt.Errorf("%w: opening index %s: %w", types.ErrStoreIO, s.dbPath, err)
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening index: %w", types.ErrStoreIO, err)
	}
	// A single connection keeps the write pass and every read on one
	// SQLite handle.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connecting to index: %w", types.ErrStoreIO, err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: configuring index: %w", types.ErrStoreIO, err)
	}

	s.db = db
	s.log.Debugw("store opened", "root", root, "index", s.dbPath)
	return s, nil
}

// Close releases the database connection. Close is idempotent.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("%w: closing index: %w", types.ErrStoreIO, err)
	}
	return nil
}

// Root returns the absolute blob root.
func (s *Store) Root() string {
	return s.root
}

// EnsureSchema creates the signature tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("%w: creating schema: %w", types.ErrStoreIO, err)
		}
	}
	return nil
}

// Stats holds row counts of the signature tables.
type Stats struct {
	Signatures  int `json:"signatures"`
	Blocks      int `json:"blocks"`
	OwnedBlocks int `json:"owned_blocks"`
}

// Stats counts the rows of each signature table.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		table string
		dst   *int
	}{
		{signaturesTable, &st.Signatures},
		{blocksTable, &st.Blocks},
		{ownedBlocksTable, &st.OwnedBlocks},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return Stats{}, fmt.Errorf("%w: counting %s: %w", types.ErrStoreIO, c.table, err)
		}
	}
	return st, nil
}

// Resolve joins the blob root with a slash-separated relative path.
// Returns ErrPathEscape for empty or absolute paths and for paths that would
// leave the root.
func (s *Store) Resolve(rel string) (string, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", types.ErrPathEscape, rel)
	}
	return filepath.Join(s.root, local), nil
}

// readContent returns the content of the blob at rel.
func (s *Store) readContent(rel string) ([]byte, error) {
	abs, err := s.Resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", types.ErrContentMissing, rel)
		}
		return nil, fmt.Errorf("%w: reading %s: %w", types.ErrStoreIO, rel, err)
	}
	return data, nil
}

// exists reports whether a blob file is present at the absolute path.
func (s *Store) exists(abs string) (bool, error) {
	ok, err := afero.Exists(s.fs, abs)
	if err != nil {
		return false, fmt.Errorf("%w: checking %s: %w", types.ErrStoreIO, abs, err)
	}
	return ok, nil
}
