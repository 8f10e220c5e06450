// Package migrate moves signatures between profile stores: it reads every
// signature out of a source store into a bundle, and writes a bundle into a
// destination store in one all-or-nothing pass.
package migrate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/sigsmuggle/internal/bundle"
	"github.com/mesh-intelligence/sigsmuggle/pkg/sigsmuggle"
	"github.com/mesh-intelligence/sigsmuggle/pkg/types"
)

// Engine runs export and import passes.
type Engine struct {
	log *zap.SugaredLogger
}

// New returns an Engine logging to log. A nil log discards output.
func New(log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{log: log}
}

// ImportOptions tune ImportAll.
type ImportOptions struct {
	// DryRun performs the whole pass and then rolls it back.
	DryRun bool

	// PreserveRecordIDs keeps the bundle's record ids instead of letting the
	// destination assign new ones. A record id already present in the
	// destination fails the whole import.
	PreserveRecordIDs bool
}

// Report summarizes a pass.
type Report struct {
	Signatures int
	Blocks     int
	Bytes      int64
	DryRun     bool
}

func reportOf(sigs []types.Signature) Report {
	var r Report
	for _, s := range sigs {
		r.Signatures++
		r.Blocks += len(s.Blocks)
		r.Bytes += s.Size()
	}
	return r
}

// ExportAll reads every signature from src into a new bundle. Any load
// failure aborts the export; no partial bundle is returned.
func (e *Engine) ExportAll(ctx context.Context, src types.Store) (*bundle.Bundle, Report, error) {
	sigs, err := src.ReadAllSignatures(ctx)
	if err != nil {
		return nil, Report{}, fmt.Errorf("export: %w", err)
	}

	b := bundle.New("sigsmuggle "+sigsmuggle.Version, sigs)
	r := reportOf(sigs)
	e.log.Debugw("exported signatures", "signatures", r.Signatures, "blocks", r.Blocks, "bytes", r.Bytes)
	return b, r, nil
}

// ImportAll persists every signature of b into dst inside one write
// transaction. The first failure rolls the whole pass back, leaving dst as it
// was before the call.
func (e *Engine) ImportAll(ctx context.Context, dst types.Store, b *bundle.Bundle, opts ImportOptions) (Report, error) {
	txn, err := dst.BeginWrite(ctx, types.WriteOptions{PreserveRecordIDs: opts.PreserveRecordIDs})
	if err != nil {
		return Report{}, fmt.Errorf("import: %w", err)
	}
	defer txn.Rollback()

	stored := make([]types.Signature, 0, len(b.Signatures))
	for i, sig := range b.Signatures {
		out, err := txn.PersistSignature(ctx, sig)
		if err != nil {
			e.log.Debugw("import failed, rolling back", "index", i, "source_record_id", sig.RecordID, "error", err)
			return Report{}, fmt.Errorf("import signature %d (source record %d): %w", i, sig.RecordID, err)
		}
		e.log.Debugw("imported signature",
			"source_record_id", sig.RecordID, "record_id", out.RecordID, "path", out.Path, "blocks", len(out.Blocks))
		stored = append(stored, out)
	}

	r := reportOf(stored)
	if opts.DryRun {
		if err := txn.Rollback(); err != nil {
			return Report{}, fmt.Errorf("import dry run: %w", err)
		}
		r.DryRun = true
		e.log.Debugw("dry run rolled back", "signatures", r.Signatures, "blocks", r.Blocks, "bytes", r.Bytes)
		return r, nil
	}

	if err := txn.Commit(); err != nil {
		return Report{}, fmt.Errorf("import: %w", err)
	}
	e.log.Debugw("imported signatures", "signatures", r.Signatures, "blocks", r.Blocks, "bytes", r.Bytes)
	return r, nil
}
