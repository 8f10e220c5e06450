// Package fileutil holds filesystem helpers shared by the store and the
// bundle codec.
package fileutil

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// WriteAtomic writes path through a temp file in the same directory: write
// fills it, then it is synced, closed and renamed over path. On any failure
// the temp file is removed and path is left as it was. The parent directory
// must exist.
func WriteAtomic(fsys afero.Fs, path string, write func(w io.Writer) error) error {
	tmp, err := afero.TempFile(fsys, filepath.Dir(path), ".sigsmuggle-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		fsys.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		fsys.Remove(tmpName)
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		fsys.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		fsys.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
