package migrate

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/mesh-intelligence/sigsmuggle/internal/bundle"
	"github.com/mesh-intelligence/sigsmuggle/pkg/types"
)

// ExportFile exports src and writes the bundle atomically to path on fsys.
// Nothing is written when the export fails.
func (e *Engine) ExportFile(ctx context.Context, src types.Store, fsys afero.Fs, path string) (Report, error) {
	b, r, err := e.ExportAll(ctx, src)
	if err != nil {
		return Report{}, err
	}
	if err := bundle.WriteFile(fsys, path, b); err != nil {
		return Report{}, fmt.Errorf("export: writing %s: %w", path, err)
	}
	e.log.Debugw("bundle written", "path", path)
	return r, nil
}

// ImportFile reads the bundle at path on fsys and imports it into dst.
func (e *Engine) ImportFile(ctx context.Context, dst types.Store, fsys afero.Fs, path string, opts ImportOptions) (Report, error) {
	b, err := bundle.ReadFile(fsys, path)
	if err != nil {
		return Report{}, fmt.Errorf("import: reading %s: %w", path, err)
	}
	e.log.Debugw("bundle read", "path", path, "version", b.Version, "generator", b.Generator,
		"created_at", b.CreatedAt, "signatures", len(b.Signatures), "blocks", b.Blocks())
	return e.ImportAll(ctx, dst, b, opts)
}
