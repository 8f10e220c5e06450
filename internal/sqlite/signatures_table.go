package sqlite

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/sigsmuggle/pkg/types"
)

// signatureRow is one Signatures row before its content is loaded.
type signatureRow struct {
	recordID int64
	path     string // percent-encoded
}

// ReadAllSignatures loads every signature in storage order, together with
// its content and owned blocks. The first failure aborts the read.
func (s *Store) ReadAllSignatures(ctx context.Context) ([]types.Signature, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT Record_RecordID, PathToDataFile FROM Signatures",
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying signatures: %w", types.ErrStoreIO, err)
	}

	// Rows are drained before loading blocks; the store has one connection.
	var pending []signatureRow
	for rows.Next() {
		var r signatureRow
		if err := rows.Scan(&r.recordID, &r.path); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scanning signature: %w", types.ErrStoreIO, err)
		}
		pending = append(pending, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: iterating signatures: %w", types.ErrStoreIO, err)
	}
	rows.Close()

	sigs := make([]types.Signature, 0, len(pending))
	for _, r := range pending {
		sig, err := loadSignature(ctx, s, r.recordID, r.path)
		if err != nil {
			return nil, fmt.Errorf("loading signature %d: %w", r.recordID, err)
		}
		s.log.Debugw("loaded signature", "record_id", sig.RecordID, "path", sig.Path, "blocks", len(sig.Blocks))
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// loadSignature builds a Signature from its index row: it decodes the path,
// reads the content, and loads the owned blocks.
func loadSignature(ctx context.Context, s *Store, recordID int64, encodedPath string) (types.Signature, error) {
	path := decodePath(encodedPath)
	content, err := s.readContent(path)
	if err != nil {
		return types.Signature{}, err
	}

	blocks, err := loadOwnedBlocks(ctx, s, recordID)
	if err != nil {
		return types.Signature{}, err
	}

	return types.Signature{
		RecordID: recordID,
		Path:     path,
		Content:  content,
		Blocks:   blocks,
	}, nil
}

// insertSignatureRow writes the Signatures row and returns its record id.
// With preserve set and a positive id the row is inserted under that id and
// an id already in use fails with ErrRecordExists; otherwise the table's
// autoincrement assigns a fresh one.
func (t *writeTxn) insertSignatureRow(ctx context.Context, recordID int64, encodedPath string, preserve bool) (int64, error) {
	if preserve && recordID > 0 {
		var n int
		if err := t.tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM Signatures WHERE Record_RecordID = ?", recordID,
		).Scan(&n); err != nil {
			return 0, fmt.Errorf("%w: checking signature %d: %w", types.ErrStoreIO, recordID, err)
		}
		if n > 0 {
			return 0, fmt.Errorf("%w: signature %d", types.ErrRecordExists, recordID)
		}
		_, err := t.tx.ExecContext(ctx,
			"INSERT INTO Signatures (Record_RecordID, PathToDataFile) VALUES (?, ?)",
			recordID, encodedPath,
		)
		if err != nil {
			return 0, fmt.Errorf("%w: inserting signature %d: %w", types.ErrStoreIO, recordID, err)
		}
		return recordID, nil
	}

	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO Signatures (PathToDataFile) VALUES (?)",
		encodedPath,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: inserting signature: %w", types.ErrStoreIO, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: reading signature id: %w", types.ErrStoreIO, err)
	}
	return id, nil
}

// pathReferenced reports whether any Signatures or Blocks row already points
// at the encoded path.
func (t *writeTxn) pathReferenced(ctx context.Context, encodedPath string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM Signatures WHERE PathToDataFile = ?)
		      + (SELECT COUNT(*) FROM Blocks WHERE PathToDataFile = ?)`,
		encodedPath, encodedPath,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: checking path %s: %w", types.ErrStoreIO, encodedPath, err)
	}
	return n > 0, nil
}
