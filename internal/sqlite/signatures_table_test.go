package sqlite

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/sigsmuggle/pkg/types"
)

func TestReadAllSignatures(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		s := newTestStore(t)
		sigs, err := s.ReadAllSignatures(ctx)
		require.NoError(t, err)
		assert.Empty(t, sigs)
	})

	t.Run("signature with one block", func(t *testing.T) {
		s := newTestStore(t)
		id := mustBlockID(t)
		seedSignature(t, s, 1, "Signatures/3/ABCD.olk15Signature", []byte("hello"))
		seedBlock(t, s, 1, id, 1, "Signature Attachments/9/EF01.olk15SigAttachment", []byte("world"))

		sigs, err := s.ReadAllSignatures(ctx)
		require.NoError(t, err)
		require.Len(t, sigs, 1)

		sig := sigs[0]
		assert.Equal(t, int64(1), sig.RecordID)
		assert.Equal(t, "Signatures/3/ABCD.olk15Signature", sig.Path)
		assert.Equal(t, []byte("hello"), sig.Content)
		require.Len(t, sig.Blocks, 1)
		assert.Equal(t, id, sig.Blocks[0].ID)
		assert.Equal(t, int64(1), sig.Blocks[0].Tag)
		assert.Equal(t, "Signature Attachments/9/EF01.olk15SigAttachment", sig.Blocks[0].Path)
		assert.Equal(t, []byte("world"), sig.Blocks[0].Content)
	})

	t.Run("blocks are scoped to their owner and kept in join order", func(t *testing.T) {
		s := newTestStore(t)
		seedSignature(t, s, 1, "Signatures/1/A.olk15Signature", []byte("a"))
		seedSignature(t, s, 2, "Signatures/2/B.olk15Signature", []byte("b"))
		first, second, other := mustBlockID(t), mustBlockID(t), mustBlockID(t)
		seedBlock(t, s, 1, first, 1, "Signature Attachments/1/X.olk15SigAttachment", []byte("x"))
		seedBlock(t, s, 2, other, 3, "Signature Attachments/2/Z.olk15SigAttachment", []byte("z"))
		seedBlock(t, s, 1, second, 2, "Signature Attachments/1/Y.olk15SigAttachment", []byte("y"))

		sigs, err := s.ReadAllSignatures(ctx)
		require.NoError(t, err)
		require.Len(t, sigs, 2)

		byID := map[int64]types.Signature{}
		for _, sig := range sigs {
			byID[sig.RecordID] = sig
		}
		require.Len(t, byID[1].Blocks, 2)
		assert.Equal(t, first, byID[1].Blocks[0].ID)
		assert.Equal(t, second, byID[1].Blocks[1].ID)
		require.Len(t, byID[2].Blocks, 1)
		assert.Equal(t, other, byID[2].Blocks[0].ID)
	})

	t.Run("header is preserved verbatim", func(t *testing.T) {
		s := newTestStore(t)
		id, err := types.GenerateBlockID([types.BlockIDHeaderSize]byte{0xCA, 0xFE, 0xBA, 0xBE})
		require.NoError(t, err)
		seedSignature(t, s, 1, "Signatures/1/A.olk15Signature", []byte("a"))
		seedBlock(t, s, 1, id, 7, "Signature Attachments/1/X.olk15SigAttachment", []byte("x"))

		sigs, err := s.ReadAllSignatures(ctx)
		require.NoError(t, err)
		assert.Equal(t, [types.BlockIDHeaderSize]byte{0xCA, 0xFE, 0xBA, 0xBE}, sigs[0].Blocks[0].ID.Header())
	})
}

func TestReadAllSignaturesFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing signature file", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.db.Exec("INSERT INTO Signatures (Record_RecordID, PathToDataFile) VALUES (1, 'Signatures/1/gone.olk15Signature')")
		require.NoError(t, err)

		_, err = s.ReadAllSignatures(ctx)
		require.ErrorIs(t, err, types.ErrContentMissing)
	})

	t.Run("missing block file", func(t *testing.T) {
		s := newTestStore(t)
		seedSignature(t, s, 1, "Signatures/1/A.olk15Signature", []byte("a"))
		id := mustBlockID(t)
		_, err := s.db.Exec("INSERT INTO Blocks (BlockId, BlockTag, PathToDataFile) VALUES (?, 1, 'Signature%20Attachments/1/gone')", id.Bytes())
		require.NoError(t, err)
		_, err = s.db.Exec("INSERT INTO Signatures_OwnedBlocks (Record_RecordID, BlockID, BlockTag) VALUES (1, ?, 1)", id.Bytes())
		require.NoError(t, err)

		_, err = s.ReadAllSignatures(ctx)
		require.ErrorIs(t, err, types.ErrContentMissing)
	})

	t.Run("join row without block row", func(t *testing.T) {
		s := newTestStore(t)
		seedSignature(t, s, 1, "Signatures/1/A.olk15Signature", []byte("a"))
		_, err := s.db.Exec("INSERT INTO Signatures_OwnedBlocks (Record_RecordID, BlockID, BlockTag) VALUES (1, ?, 1)", mustBlockID(t).Bytes())
		require.NoError(t, err)

		_, err = s.ReadAllSignatures(ctx)
		require.ErrorIs(t, err, types.ErrRowMissing)
	})

	t.Run("short block id", func(t *testing.T) {
		s := newTestStore(t)
		seedSignature(t, s, 1, "Signatures/1/A.olk15Signature", []byte("a"))
		short := []byte{1, 2, 3}
		_, err := s.db.Exec("INSERT INTO Blocks (BlockId, BlockTag, PathToDataFile) VALUES (?, 1, 'x')", short)
		require.NoError(t, err)
		_, err = s.db.Exec("INSERT INTO Signatures_OwnedBlocks (Record_RecordID, BlockID, BlockTag) VALUES (1, ?, 1)", short)
		require.NoError(t, err)

		_, err = s.ReadAllSignatures(ctx)
		require.ErrorIs(t, err, types.ErrMalformedIdentifier)
	})

	t.Run("row path escaping the root", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.db.Exec("INSERT INTO Signatures (Record_RecordID, PathToDataFile) VALUES (1, '..%2F..%2Fetc%2Fpasswd')")
		require.NoError(t, err)

		_, err = s.ReadAllSignatures(ctx)
		require.ErrorIs(t, err, types.ErrPathEscape)
	})

	t.Run("join query failure", func(t *testing.T) {
		s := newTestStore(t)
		seedSignature(t, s, 1, "Signatures/1/A.olk15Signature", []byte("a"))
		_, err := s.db.Exec("DROP TABLE Signatures_OwnedBlocks")
		require.NoError(t, err)

		_, err = s.ReadAllSignatures(ctx)
		require.ErrorIs(t, err, types.ErrRowMissing)
	})
}

func TestPersistSignature(t *testing.T) {
	ctx := context.Background()
	src := types.Signature{
		RecordID: 42,
		Path:     "Signatures/3/ABCD.olk15Signature",
		Content:  []byte("hello"),
		Blocks: []types.Block{{
			ID:      mustBlockID(t),
			Tag:     1,
			Path:    "Signature Attachments/9/EF01.olk15SigAttachment",
			Content: []byte("world"),
		}},
	}

	t.Run("fresh identities", func(t *testing.T) {
		s := newTestStore(t)
		txn, err := s.BeginWrite(ctx, types.WriteOptions{})
		require.NoError(t, err)
		stored, err := txn.PersistSignature(ctx, src)
		require.NoError(t, err)
		require.NoError(t, txn.Commit())

		assert.Equal(t, int64(1), stored.RecordID, "autoincrement assigns the id")
		assert.Equal(t, src.Path, stored.Path, "unused path is kept")
		require.Len(t, stored.Blocks, 1)
		blk := stored.Blocks[0]
		assert.NotEqual(t, src.Blocks[0].ID, blk.ID)
		assert.Equal(t, src.Blocks[0].ID.Header(), blk.ID.Header())
		assert.NotEqual(t, src.Blocks[0].Path, blk.Path)
		assert.Regexp(t, `^Signature Attachments/[0-9]{1,3}/[0-9A-F-]{36}\.olk15SigAttachment$`, blk.Path)

		sigs, err := s.ReadAllSignatures(ctx)
		require.NoError(t, err)
		require.Len(t, sigs, 1)
		assert.Equal(t, stored, sigs[0])

		var joinTag int64
		require.NoError(t, s.db.QueryRow("SELECT BlockTag FROM Signatures_OwnedBlocks WHERE Record_RecordID = ? AND BlockID = ?",
			stored.RecordID, blk.ID.Bytes()).Scan(&joinTag))
		assert.Equal(t, int64(1), joinTag)

		var encoded string
		require.NoError(t, s.db.QueryRow("SELECT PathToDataFile FROM Blocks WHERE BlockId = ?", blk.ID.Bytes()).Scan(&encoded))
		assert.Equal(t, encodePath(blk.Path), encoded)
		assert.Contains(t, encoded, "Signature%20Attachments/")
	})

	t.Run("repeated persist never collides", func(t *testing.T) {
		s := newTestStore(t)
		txn, err := s.BeginWrite(ctx, types.WriteOptions{})
		require.NoError(t, err)
		first, err := txn.PersistSignature(ctx, src)
		require.NoError(t, err)
		second, err := txn.PersistSignature(ctx, src)
		require.NoError(t, err)
		require.NoError(t, txn.Commit())

		assert.NotEqual(t, first.RecordID, second.RecordID)
		assert.NotEqual(t, first.Path, second.Path, "referenced path is replaced")
		assert.Regexp(t, distributionPathRe, second.Path)
		assert.NotEqual(t, first.Blocks[0].ID, second.Blocks[0].ID)

		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, Stats{Signatures: 2, Blocks: 2, OwnedBlocks: 2}, st)
	})

	t.Run("preserved record id", func(t *testing.T) {
		s := newTestStore(t)
		txn, err := s.BeginWrite(ctx, types.WriteOptions{PreserveRecordIDs: true})
		require.NoError(t, err)
		stored, err := txn.PersistSignature(ctx, src)
		require.NoError(t, err)
		require.NoError(t, txn.Commit())
		assert.Equal(t, int64(42), stored.RecordID)
	})

	t.Run("preserved record id already in use", func(t *testing.T) {
		s := newTestStore(t)
		seedSignature(t, s, 42, "Signatures/1/OLD.olk15Signature", []byte("old"))
		seedBlock(t, s, 42, mustBlockID(t), 7, "Signature Attachments/1/OLD.olk15SigAttachment", []byte("old block"))
		filesBefore := listFiles(t, s.fs, s.Root())

		txn, err := s.BeginWrite(ctx, types.WriteOptions{PreserveRecordIDs: true})
		require.NoError(t, err)
		_, err = txn.PersistSignature(ctx, src)
		require.ErrorIs(t, err, types.ErrRecordExists)
		require.NoError(t, txn.Rollback())

		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, Stats{Signatures: 1, Blocks: 1, OwnedBlocks: 1}, st)
		assert.ElementsMatch(t, filesBefore, listFiles(t, s.fs, s.Root()))

		got, err := s.ReadAllSignatures(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, []byte("old"), got[0].Content)
		require.Len(t, got[0].Blocks, 1)
		assert.Equal(t, []byte("old block"), got[0].Blocks[0].Content)
	})

	t.Run("empty path gets a distribution path", func(t *testing.T) {
		s := newTestStore(t)
		txn, err := s.BeginWrite(ctx, types.WriteOptions{})
		require.NoError(t, err)
		stored, err := txn.PersistSignature(ctx, types.Signature{Content: []byte("x")})
		require.NoError(t, err)
		require.NoError(t, txn.Commit())
		assert.Regexp(t, distributionPathRe, stored.Path)
	})

	t.Run("escaping path is rejected", func(t *testing.T) {
		s := newTestStore(t)
		txn, err := s.BeginWrite(ctx, types.WriteOptions{})
		require.NoError(t, err)
		defer txn.Rollback()
		_, err = txn.PersistSignature(ctx, types.Signature{Path: "../../etc/passwd", Content: []byte("x")})
		require.ErrorIs(t, err, types.ErrPathEscape)
	})

	t.Run("persist after commit fails", func(t *testing.T) {
		s := newTestStore(t)
		txn, err := s.BeginWrite(ctx, types.WriteOptions{})
		require.NoError(t, err)
		require.NoError(t, txn.Commit())
		_, err = txn.PersistSignature(ctx, src)
		require.ErrorIs(t, err, types.ErrStoreIO)
		require.NoError(t, txn.Rollback())
	})
}

func TestWriteRollbackIsAtomic(t *testing.T) {
	ctx := context.Background()

	// Three blocks and the signature content: four file writes per signature.
	sig := types.Signature{
		Path:    "Signatures/5/NEW.olk15Signature",
		Content: []byte("sig"),
	}
	for i := 0; i < 3; i++ {
		sig.Blocks = append(sig.Blocks, types.Block{
			ID:      mustBlockID(t),
			Tag:     int64(i),
			Path:    "Signature Attachments/1/B.olk15SigAttachment",
			Content: []byte{byte(i)},
		})
	}

	for failAt := int64(0); failAt < 4; failAt++ {
		mem := afero.NewMemMapFs()
		ffs := newFailingFs(mem, 1<<30)
		s := newTestStore(t, WithFs(ffs))
		seedSignature(t, s, 1, "Signatures/1/OLD.olk15Signature", []byte("old"))
		seedBlock(t, s, 1, mustBlockID(t), 9, "Signature Attachments/1/OLD.olk15SigAttachment", []byte("old block"))

		before, err := s.Stats(ctx)
		require.NoError(t, err)
		filesBefore := listFiles(t, mem, s.Root())

		ffs.remaining.Store(failAt)
		txn, err := s.BeginWrite(ctx, types.WriteOptions{})
		require.NoError(t, err)
		_, err = txn.PersistSignature(ctx, sig)
		require.ErrorIs(t, err, errInjected, "fail at write %d", failAt)
		require.NoError(t, txn.Rollback())

		after, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after, "rows changed after rollback at write %d", failAt)
		assert.ElementsMatch(t, filesBefore, listFiles(t, mem, s.Root()), "files changed after rollback at write %d", failAt)

		ffs.remaining.Store(1 << 30)
		sigs, err := s.ReadAllSignatures(ctx)
		require.NoError(t, err, "a row references a missing file after rollback at write %d", failAt)
		require.Len(t, sigs, 1)
		assert.Equal(t, []byte("old"), sigs[0].Content)
	}
}
