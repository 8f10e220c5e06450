package types

// Signature is one exported signature record: the index row, the content of
// its primary file, and the blocks it owns.
type Signature struct {
	// RecordID is the autoincrement key in the store it was read from.
	// Destination stores assign their own.
	RecordID int64

	// Path is the percent-decoded content path relative to the blob root.
	Path string

	// Content is the raw file content, copied at load time.
	Content []byte

	// Blocks are the attachments owned by the signature.
	Blocks []Block
}

// Block is one attachment owned by a signature.
type Block struct {
	ID      BlockID
	Tag     int64  // application-defined role, carried unchanged
	Path    string // percent-decoded, relative to the blob root
	Content []byte
}

// Size returns the number of content bytes held by the signature and all of
// its blocks.
func (s Signature) Size() int64 {
	n := int64(len(s.Content))
	for _, b := range s.Blocks {
		n += int64(len(b.Content))
	}
	return n
}
