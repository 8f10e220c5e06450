package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/sigsmuggle/pkg/types"
)

// testHeader is the block header observed in real profiles.
var testHeader = [types.BlockIDHeaderSize]byte{0x5D, 0x3F, 0x00, 0x00}

// newTestStore opens a store over a fresh temp dir with the schema in place.
func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	s, err := Open(types.Config{DataDir: t.TempDir(), Create: true}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

// seedSignature inserts a Signatures row and writes its content file.
func seedSignature(t *testing.T, s *Store, recordID int64, path string, content []byte) {
	t.Helper()
	_, err := s.db.Exec(
		"INSERT INTO Signatures (Record_RecordID, PathToDataFile) VALUES (?, ?)",
		recordID, encodePath(path),
	)
	require.NoError(t, err)
	seedFile(t, s, path, content)
}

// seedBlock inserts a Blocks row, the join row, and the block content file.
func seedBlock(t *testing.T, s *Store, recordID int64, id types.BlockID, tag int64, path string, content []byte) {
	t.Helper()
	_, err := s.db.Exec(
		"INSERT INTO Blocks (BlockId, BlockTag, PathToDataFile) VALUES (?, ?, ?)",
		id.Bytes(), tag, encodePath(path),
	)
	require.NoError(t, err)
	_, err = s.db.Exec(
		"INSERT INTO Signatures_OwnedBlocks (Record_RecordID, BlockID, BlockTag) VALUES (?, ?, ?)",
		recordID, id.Bytes(), tag,
	)
	require.NoError(t, err)
	seedFile(t, s, path, content)
}

func seedFile(t *testing.T, s *Store, path string, content []byte) {
	t.Helper()
	abs, err := s.Resolve(path)
	require.NoError(t, err)
	require.NoError(t, s.fs.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, afero.WriteFile(s.fs, abs, content, 0o644))
}

func mustBlockID(t *testing.T) types.BlockID {
	t.Helper()
	id, err := types.GenerateBlockID(testHeader)
	require.NoError(t, err)
	return id
}

// errInjected is returned by failingFs once its budget is spent.
var errInjected = errors.New("injected write failure")

// failingFs lets a fixed number of files be opened for writing, then fails
// every further write open.
type failingFs struct {
	afero.Fs
	remaining atomic.Int64
}

func newFailingFs(base afero.Fs, allowedWrites int64) *failingFs {
	f := &failingFs{Fs: base}
	f.remaining.Store(allowedWrites)
	return f
}

func (f *failingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE) != 0 {
		if f.remaining.Add(-1) < 0 {
			return nil, errInjected
		}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func (f *failingFs) Create(name string) (afero.File, error) {
	return f.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
}

// listFiles returns every regular file under root on fsys.
func listFiles(t *testing.T, fsys afero.Fs, root string) []string {
	t.Helper()
	var files []string
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	return files
}
