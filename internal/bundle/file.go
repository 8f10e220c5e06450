package bundle

import (
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/mesh-intelligence/sigsmuggle/internal/fileutil"
)

// WriteFile atomically writes b to path. An existing file at path is only
// replaced once the new one is complete.
func WriteFile(fsys afero.Fs, path string, b *Bundle) error {
	return fileutil.WriteAtomic(fsys, path, func(w io.Writer) error {
		return Write(w, b)
	})
}

// ReadFile reads and decodes the bundle at path.
func ReadFile(fsys afero.Fs, path string) (*Bundle, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bundle: %w", err)
	}
	defer f.Close()
	return Read(f)
}
