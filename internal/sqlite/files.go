package sqlite

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/mesh-intelligence/sigsmuggle/internal/fileutil"
	"github.com/mesh-intelligence/sigsmuggle/pkg/types"
)

// writeContent atomically writes data to abs using the temp-file, fsync,
// rename pattern, creating parent directories as needed. A file that did not
// exist before is remembered so a rollback can remove it.
func (t *writeTxn) writeContent(abs string, data []byte) error {
	existed, err := t.store.exists(abs)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(t.store.fs, abs, data); err != nil {
		return err
	}
	if !existed {
		t.created = append(t.created, abs)
	}
	return nil
}

// removeCreated deletes, newest first, the files this pass created.
func (t *writeTxn) removeCreated() {
	for i := len(t.created) - 1; i >= 0; i-- {
		if err := t.store.fs.Remove(t.created[i]); err != nil {
			t.store.log.Warnw("could not remove file from rolled back write", "path", t.created[i], "error", err)
		}
	}
	t.created = nil
}

func writeFileAtomic(fsys afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", types.ErrStoreIO, dir, err)
	}
	err := fileutil.WriteAtomic(fsys, path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrStoreIO, err)
	}
	return nil
}
