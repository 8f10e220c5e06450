package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/sigsmuggle/pkg/types"
)

// ownedBlockRow is one join row with the Blocks columns it points at.
type ownedBlockRow struct {
	joinID []byte
	rawID  []byte // nil when the Blocks row is absent
	tag    sql.NullInt64
	path   sql.NullString
}

// loadOwnedBlocks loads every block the signature owns, in join-table order.
// A join row without a matching Blocks row fails with ErrRowMissing.
func loadOwnedBlocks(ctx context.Context, s *Store, recordID int64) ([]types.Block, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT o.BlockID, b.BlockId, b.BlockTag, b.PathToDataFile
		   FROM Signatures_OwnedBlocks o
		   LEFT JOIN Blocks b ON b.BlockId = o.BlockID
		  WHERE o.Record_RecordID = ?
		  ORDER BY o.rowid`,
		recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying blocks of signature %d: %w", types.ErrRowMissing, recordID, err)
	}

	var pending []ownedBlockRow
	for rows.Next() {
		var r ownedBlockRow
		if err := rows.Scan(&r.joinID, &r.rawID, &r.tag, &r.path); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scanning block of signature %d: %w", types.ErrRowMissing, recordID, err)
		}
		pending = append(pending, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: iterating blocks of signature %d: %w", types.ErrRowMissing, recordID, err)
	}
	rows.Close()

	blocks := make([]types.Block, 0, len(pending))
	for _, r := range pending {
		if r.rawID == nil {
			return nil, fmt.Errorf("%w: block %x owned by signature %d has no Blocks row", types.ErrRowMissing, r.joinID, recordID)
		}
		b, err := loadBlock(s, r.rawID, r.tag.Int64, r.path.String)
		if err != nil {
			return nil, fmt.Errorf("loading block %x: %w", r.rawID, err)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// loadBlock builds a Block from its index row.
func loadBlock(s *Store, rawID []byte, tag int64, encodedPath string) (types.Block, error) {
	id, err := types.DecodeBlockID(rawID)
	if err != nil {
		return types.Block{}, err
	}
	path := decodePath(encodedPath)
	content, err := s.readContent(path)
	if err != nil {
		return types.Block{}, err
	}
	return types.Block{ID: id, Tag: tag, Path: path, Content: content}, nil
}

// persistBlock writes one owned block under recordID. The block always gets
// a fresh identifier (keeping the source header) and a fresh distribution
// path; the join row, the Blocks row, and the content file are written in
// that order.
func (t *writeTxn) persistBlock(ctx context.Context, recordID int64, b types.Block) (types.Block, error) {
	id, err := types.GenerateBlockID(b.ID.Header())
	if err != nil {
		return types.Block{}, err
	}

	path, abs, err := t.freshPath(ctx, KindAttachment, extOf(b.Path, AttachmentExt))
	if err != nil {
		return types.Block{}, err
	}

	if _, err := t.tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO Signatures_OwnedBlocks (Record_RecordID, BlockID, BlockTag) VALUES (?, ?, ?)",
		recordID, id.Bytes(), b.Tag,
	); err != nil {
		return types.Block{}, fmt.Errorf("%w: linking block %s: %w", types.ErrStoreIO, id, err)
	}
	if _, err := t.tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO Blocks (BlockId, BlockTag, PathToDataFile) VALUES (?, ?, ?)",
		id.Bytes(), b.Tag, encodePath(path),
	); err != nil {
		return types.Block{}, fmt.Errorf("%w: inserting block %s: %w", types.ErrStoreIO, id, err)
	}
	if err := t.writeContent(abs, b.Content); err != nil {
		return types.Block{}, err
	}

	t.store.log.Debugw("persisted block", "record_id", recordID, "block_id", id.String(), "tag", b.Tag, "path", path)
	return types.Block{ID: id, Tag: b.Tag, Path: path, Content: b.Content}, nil
}
