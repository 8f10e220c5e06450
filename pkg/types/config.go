package types

import (
	"errors"
	"path/filepath"
)

// DefaultDatabaseName is the index file the host application keeps inside a
// profile's data directory.
const DefaultDatabaseName = "Outlook.sqlite"

// Config locates one profile store.
type Config struct {
	// DataDir is the blob root; the database file lives directly inside it.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Database is the index file name relative to DataDir.
	// Empty means DefaultDatabaseName.
	Database string `json:"database" yaml:"database"`

	// Create allows opening a store whose database file does not exist yet.
	// The index is created empty; the caller still has to call EnsureSchema.
	Create bool `json:"-" yaml:"-"`
}

// Config validation errors.
var (
	ErrDataDirEmpty    = errors.New("data directory must not be empty")
	ErrDatabaseInvalid = errors.New("database must be a plain file name")
)

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	if c.Database != "" && (filepath.Base(c.Database) != c.Database || c.Database == "." || c.Database == "..") {
		return ErrDatabaseInvalid
	}
	return nil
}

// DatabasePath returns the absolute-or-relative path of the index file.
func (c Config) DatabasePath() string {
	name := c.Database
	if name == "" {
		name = DefaultDatabaseName
	}
	return filepath.Join(c.DataDir, name)
}
