package types

import (
	"context"
	"errors"
)

// Store is the relational index plus blob root of one profile.
// Callers read every signature out of it, or open a write transaction and
// persist signatures into it.
type Store interface {
	// ReadAllSignatures loads every signature row, its content, and its owned
	// blocks. The result is fully materialized; the first failure aborts.
	ReadAllSignatures(ctx context.Context) ([]Signature, error)

	// BeginWrite opens the single transaction used for a write pass.
	BeginWrite(ctx context.Context, opts WriteOptions) (WriteTxn, error)

	// Close releases the database connection.
	Close() error
}

// WriteTxn is one all-or-nothing write pass against a Store.
type WriteTxn interface {
	// PersistSignature writes the signature row, its block and join rows, and
	// all content files. It returns the signature as stored, carrying the
	// identifiers and paths the destination assigned.
	PersistSignature(ctx context.Context, sig Signature) (Signature, error)

	// Commit makes every row written in the pass visible.
	Commit() error

	// Rollback discards every row written in the pass and removes the files
	// the pass created. Calling Rollback after Commit is a no-op.
	Rollback() error
}

// WriteOptions tune a write pass.
type WriteOptions struct {
	// PreserveRecordIDs inserts signature rows under the incoming RecordID
	// instead of letting the destination assign one. A RecordID already in
	// use fails the pass with ErrRecordExists.
	PreserveRecordIDs bool
}

// Migration errors. Every one of them is fatal to the running operation.
var (
	ErrContentMissing      = errors.New("content file missing")
	ErrRowMissing          = errors.New("index row missing")
	ErrMalformedIdentifier = errors.New("malformed block identifier")
	ErrPathEscape          = errors.New("path escapes blob root")
	ErrBundleFormat        = errors.New("corrupt or unsupported bundle")
	ErrStoreIO             = errors.New("store I/O failure")
	ErrRecordExists        = errors.New("record id already in use")
)
