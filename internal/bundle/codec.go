package bundle

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mesh-intelligence/sigsmuggle/pkg/types"
)

// Write encodes b to w, one JSON record per line.
func Write(w io.Writer, b *Bundle) error {
	bw := bufio.NewWriter(w)

	header := headerJSON{
		Format:     Format,
		Version:    b.Version,
		Generator:  b.Generator,
		CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
		Signatures: len(b.Signatures),
	}
	if header.Version == 0 {
		header.Version = CurrentVersion
	}
	if err := writeLine(bw, header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, sig := range b.Signatures {
		if err := writeLine(bw, toJSON(sig)); err != nil {
			return fmt.Errorf("writing signature %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing bundle: %w", err)
	}
	return nil
}

func writeLine(w *bufio.Writer, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(line); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

func toJSON(sig types.Signature) signatureJSON {
	out := signatureJSON{
		RecordID: sig.RecordID,
		Path:     sig.Path,
		Content:  sig.Content,
		SHA256:   digest(sig.Content),
		Blocks:   make([]blockJSON, 0, len(sig.Blocks)),
	}
	for _, b := range sig.Blocks {
		id := b.ID
		out.Blocks = append(out.Blocks, blockJSON{
			ID:      &id,
			Tag:     b.Tag,
			Path:    b.Path,
			Content: b.Content,
			SHA256:  digest(b.Content),
		})
	}
	return out
}

// Read decodes a bundle from r. Every structural problem is reported as
// ErrBundleFormat: a missing or foreign header, a newer version, a record
// count mismatch, a checksum mismatch, or a malformed or zero block
// identifier.
func Read(r io.Reader) (*Bundle, error) {
	br := bufio.NewReader(r)
	lineNo := 0

	nextLine := func() ([]byte, error) {
		for {
			line, err := br.ReadBytes('\n')
			if len(line) > 0 || err == nil {
				lineNo++
			}
			line = bytes.TrimSpace(line)
			if len(line) > 0 {
				return line, nil
			}
			if err != nil {
				return nil, err
			}
		}
	}

	line, err := nextLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty bundle", types.ErrBundleFormat)
		}
		return nil, fmt.Errorf("reading bundle header: %w", err)
	}

	var header headerJSON
	if err := json.Unmarshal(line, &header); err != nil {
		return nil, fmt.Errorf("%w: header: %w", types.ErrBundleFormat, err)
	}
	if header.Format != Format {
		return nil, fmt.Errorf("%w: unknown format %q", types.ErrBundleFormat, header.Format)
	}
	if header.Version < 1 || header.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d (max %d)", types.ErrBundleFormat, header.Version, CurrentVersion)
	}
	if header.Signatures < 0 {
		return nil, fmt.Errorf("%w: negative signature count", types.ErrBundleFormat)
	}
	createdAt, err := time.Parse(time.RFC3339, header.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: created_at: %w", types.ErrBundleFormat, err)
	}

	b := &Bundle{
		Version:    header.Version,
		Generator:  header.Generator,
		CreatedAt:  createdAt,
		Signatures: []types.Signature{},
	}
	for {
		line, err := nextLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading bundle: %w", err)
		}

		var rec signatureJSON
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", types.ErrBundleFormat, lineNo, err)
		}
		sig, err := fromJSON(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", types.ErrBundleFormat, lineNo, err)
		}
		b.Signatures = append(b.Signatures, sig)
	}

	if len(b.Signatures) != header.Signatures {
		return nil, fmt.Errorf("%w: header announces %d signatures, found %d",
			types.ErrBundleFormat, header.Signatures, len(b.Signatures))
	}
	return b, nil
}

func fromJSON(rec signatureJSON) (types.Signature, error) {
	if err := verify(rec.Content, rec.SHA256); err != nil {
		return types.Signature{}, fmt.Errorf("signature %d: %w", rec.RecordID, err)
	}
	sig := types.Signature{
		RecordID: rec.RecordID,
		Path:     rec.Path,
		Content:  rec.Content,
		Blocks:   make([]types.Block, 0, len(rec.Blocks)),
	}
	for i, blk := range rec.Blocks {
		if blk.ID == nil || blk.ID.IsZero() {
			return types.Signature{}, fmt.Errorf("signature %d block %d: missing id", rec.RecordID, i)
		}
		if err := verify(blk.Content, blk.SHA256); err != nil {
			return types.Signature{}, fmt.Errorf("signature %d block %s: %w", rec.RecordID, blk.ID, err)
		}
		sig.Blocks = append(sig.Blocks, types.Block{
			ID:      *blk.ID,
			Tag:     blk.Tag,
			Path:    blk.Path,
			Content: blk.Content,
		})
	}
	return sig, nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func verify(data []byte, want string) error {
	if got := digest(data); got != want {
		return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
	}
	return nil
}
