package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/sigsmuggle/pkg/types"
)

var _ types.WriteTxn = (*writeTxn)(nil)

// writeTxn is one write pass: a database transaction plus the list of blob
// files the pass created, so a rollback can take both back.
type writeTxn struct {
	store   *Store
	tx      *sql.Tx
	opts    types.WriteOptions
	created []string // absolute paths of files that did not exist before the pass
	done    bool
}

// BeginWrite opens the transaction that wraps a whole write pass.
func (s *Store) BeginWrite(ctx context.Context, opts types.WriteOptions) (types.WriteTxn, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning write: %w", types.ErrStoreIO, err)
	}
	return &writeTxn{store: s, tx: tx, opts: opts}, nil
}

// PersistSignature writes the signature row first so its record id is known,
// then each owned block with its join row, then the signature content.
func (t *writeTxn) PersistSignature(ctx context.Context, sig types.Signature) (types.Signature, error) {
	if t.done {
		return types.Signature{}, fmt.Errorf("%w: %w", types.ErrStoreIO, sql.ErrTxDone)
	}

	path, abs, err := t.signaturePath(ctx, sig.Path)
	if err != nil {
		return types.Signature{}, err
	}

	recordID, err := t.insertSignatureRow(ctx, sig.RecordID, encodePath(path), t.opts.PreserveRecordIDs)
	if err != nil {
		return types.Signature{}, err
	}

	blocks := make([]types.Block, 0, len(sig.Blocks))
	for _, b := range sig.Blocks {
		stored, err := t.persistBlock(ctx, recordID, b)
		if err != nil {
			return types.Signature{}, fmt.Errorf("persisting block of signature %d: %w", recordID, err)
		}
		blocks = append(blocks, stored)
	}

	if err := t.writeContent(abs, sig.Content); err != nil {
		return types.Signature{}, err
	}

	t.store.log.Debugw("persisted signature", "record_id", recordID, "path", path, "blocks", len(blocks))
	return types.Signature{
		RecordID: recordID,
		Path:     path,
		Content:  sig.Content,
		Blocks:   blocks,
	}, nil
}

// signaturePath keeps the incoming path unless it is empty, already
// referenced by a row, or already present on disk; then it generates a
// fresh distribution path with the same extension.
func (t *writeTxn) signaturePath(ctx context.Context, incoming string) (string, string, error) {
	if incoming == "" {
		return t.freshPath(ctx, KindSignature, SignatureExt)
	}

	abs, err := t.store.Resolve(incoming)
	if err != nil {
		return "", "", err
	}
	taken, err := t.pathReferenced(ctx, encodePath(incoming))
	if err != nil {
		return "", "", err
	}
	if !taken {
		if taken, err = t.store.exists(abs); err != nil {
			return "", "", err
		}
	}
	if taken {
		return t.freshPath(ctx, KindSignature, extOf(incoming, SignatureExt))
	}
	return incoming, abs, nil
}

// maxPathAttempts bounds regeneration of a distribution path that collides
// with an existing file or row.
const maxPathAttempts = 8

// freshPath generates a distribution path that no row references and no file
// occupies. It returns the relative and the absolute path.
func (t *writeTxn) freshPath(ctx context.Context, kind PathKind, ext string) (string, string, error) {
	for i := 0; i < maxPathAttempts; i++ {
		rel := t.store.NewDistributionPath(kind, ext)
		abs, err := t.store.Resolve(rel)
		if err != nil {
			return "", "", err
		}
		onDisk, err := t.store.exists(abs)
		if err != nil {
			return "", "", err
		}
		if onDisk {
			continue
		}
		referenced, err := t.pathReferenced(ctx, encodePath(rel))
		if err != nil {
			return "", "", err
		}
		if !referenced {
			return rel, abs, nil
		}
	}
	return "", "", fmt.Errorf("%w: no free %s path after %d attempts", types.ErrStoreIO, kind.Category(), maxPathAttempts)
}

// Commit commits the transaction. The files written by the pass stay.
func (t *writeTxn) Commit() error {
	if t.done {
		return fmt.Errorf("%w: %w", types.ErrStoreIO, sql.ErrTxDone)
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		t.removeCreated()
		return fmt.Errorf("%w: committing write: %w", types.ErrStoreIO, err)
	}
	t.created = nil
	return nil
}

// Rollback discards the rows and removes the files the pass created.
// Rollback after Commit or a previous Rollback does nothing.
func (t *writeTxn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	err := t.tx.Rollback()
	t.removeCreated()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%w: rolling back write: %w", types.ErrStoreIO, err)
	}
	return nil
}
