package types

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// BlockID layout: a 4-byte header the host application assigns, followed by
// a 16-byte random unique part. The header is opaque; it is copied but never
// interpreted.
const (
	BlockIDHeaderSize = 4
	BlockIDUniqueSize = 16
	BlockIDSize       = BlockIDHeaderSize + BlockIDUniqueSize
)

// BlockID identifies an attachment block. The zero value is not a valid
// identifier of any stored block.
type BlockID [BlockIDSize]byte

// DecodeBlockID builds a BlockID from its raw column value.
// Returns ErrMalformedIdentifier unless raw is exactly BlockIDSize bytes.
func DecodeBlockID(raw []byte) (BlockID, error) {
	var id BlockID
	if len(raw) != BlockIDSize {
		return id, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedIdentifier, len(raw), BlockIDSize)
	}
	copy(id[:], raw)
	return id, nil
}

// EncodeBlockID joins a header and a unique part.
func EncodeBlockID(header [BlockIDHeaderSize]byte, unique [BlockIDUniqueSize]byte) BlockID {
	var id BlockID
	copy(id[:BlockIDHeaderSize], header[:])
	copy(id[BlockIDHeaderSize:], unique[:])
	return id
}

// GenerateBlockID returns a new identifier carrying header and a fresh
// 128-bit random unique part.
func GenerateBlockID(header [BlockIDHeaderSize]byte) (BlockID, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return BlockID{}, fmt.Errorf("generating block id: %w", err)
	}
	return EncodeBlockID(header, u), nil
}

// Header returns the opaque 4-byte header.
func (id BlockID) Header() [BlockIDHeaderSize]byte {
	var h [BlockIDHeaderSize]byte
	copy(h[:], id[:BlockIDHeaderSize])
	return h
}

// Unique returns the 16-byte random part.
func (id BlockID) Unique() [BlockIDUniqueSize]byte {
	var u [BlockIDUniqueSize]byte
	copy(u[:], id[BlockIDHeaderSize:])
	return u
}

// Bytes returns a copy of the raw 20-byte value as stored in the index.
func (id BlockID) Bytes() []byte {
	b := make([]byte, BlockIDSize)
	copy(b, id[:])
	return b
}

// IsZero reports whether id is the zero value.
func (id BlockID) IsZero() bool {
	return id == BlockID{}
}

// String renders the header as hex followed by the unique part as a UUID.
func (id BlockID) String() string {
	h := id.Header()
	return hex.EncodeToString(h[:]) + ":" + uuid.UUID(id.Unique()).String()
}

// MarshalText encodes the identifier as 40 lowercase hex digits.
func (id BlockID) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(BlockIDSize))
	hex.Encode(out, id[:])
	return out, nil
}

// UnmarshalText decodes 40 hex digits through DecodeBlockID.
func (id *BlockID) UnmarshalText(text []byte) error {
	raw := make([]byte, hex.DecodedLen(len(text)))
	if _, err := hex.Decode(raw, text); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedIdentifier, err)
	}
	decoded, err := DecodeBlockID(raw)
	if err != nil {
		return err
	}
	*id = decoded
	return nil
}
