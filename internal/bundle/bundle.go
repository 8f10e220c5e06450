// Package bundle encodes exported signatures as a portable JSON Lines file.
//
// The first line is a header naming the format, its version, and the number
// of signature records that follow. Every further line is one signature with
// its blocks nested inside it. Content is base64 and carries a SHA-256 digest
// so truncated or edited bundles are detected on read. Unknown fields are
// ignored, so newer writers stay readable as long as the version allows it.
package bundle

import (
	"time"

	"github.com/mesh-intelligence/sigsmuggle/pkg/types"
)

// Format identifies sigsmuggle bundles in the header line.
const Format = "sigsmuggle-bundle"

// CurrentVersion is the version written by this package and the highest it
// reads.
const CurrentVersion = 1

// Bundle is the decoded content of a bundle file.
type Bundle struct {
	Version    int
	Generator  string
	CreatedAt  time.Time
	Signatures []types.Signature
}

// New returns a bundle of the current version holding sigs.
func New(generator string, sigs []types.Signature) *Bundle {
	return &Bundle{
		Version:    CurrentVersion,
		Generator:  generator,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
		Signatures: sigs,
	}
}

// Blocks returns the number of blocks across all signatures.
func (b *Bundle) Blocks() int {
	n := 0
	for _, s := range b.Signatures {
		n += len(s.Blocks)
	}
	return n
}

// headerJSON is the first line of a bundle.
type headerJSON struct {
	Format     string `json:"format"`
	Version    int    `json:"version"`
	Generator  string `json:"generator,omitempty"`
	CreatedAt  string `json:"created_at"`
	Signatures int    `json:"signatures"`
}

// signatureJSON is one signature line.
type signatureJSON struct {
	RecordID int64       `json:"record_id"`
	Path     string      `json:"path"`
	Content  []byte      `json:"content"`
	SHA256   string      `json:"sha256"`
	Blocks   []blockJSON `json:"blocks"`
}

// blockJSON is a block nested in a signature line.
type blockJSON struct {
	ID      *types.BlockID `json:"id"`
	Tag     int64          `json:"tag"`
	Path    string         `json:"path"`
	Content []byte         `json:"content"`
	SHA256  string         `json:"sha256"`
}
