package sqlite

import (
	"fmt"
	"math/rand/v2"
	"path"
	"strings"

	"github.com/google/uuid"
)

// PathKind selects the subtree a distribution path is generated in.
type PathKind string

// Path kinds. The category directory is the kind's plural.
const (
	KindSignature  PathKind = "Signature"
	KindAttachment PathKind = "Signature Attachment"
)

// Default file extensions the host application uses for each kind.
const (
	SignatureExt  = "olk15Signature"
	AttachmentExt = "olk15SigAttachment"
)

// bucketCount is the number of shard directories under each category.
const bucketCount = 256

// Category returns the top-level directory for the kind.
func (k PathKind) Category() string {
	return string(k) + "s"
}

// defaultBucket picks a shard uniformly from [0, bucketCount).
func defaultBucket() int {
	return rand.IntN(bucketCount)
}

// NewDistributionPath returns a fresh relative path of the form
// "<Category>/<bucket>/<UPPERCASE-UUID>.<ext>". The bucket only spreads files
// across directories and carries no meaning.
func (s *Store) NewDistributionPath(kind PathKind, ext string) string {
	name := strings.ToUpper(uuid.New().String())
	return path.Join(kind.Category(), fmt.Sprint(s.bucket()), name+"."+ext)
}

// extOf returns the extension of a stored path without the dot, or def when
// the path has none.
func extOf(p, def string) string {
	ext := path.Ext(p)
	if len(ext) < 2 {
		return def
	}
	return ext[1:]
}
