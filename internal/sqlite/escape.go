package sqlite

import (
	"net/url"
	"strings"
)

const upperhex = "0123456789ABCDEF"

// shouldEscape reports whether c must be percent-encoded in a stored path.
// Only unreserved characters and the path separator pass through.
func shouldEscape(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return false
	}
	switch c {
	case '_', '.', '-', '~', '/':
		return false
	}
	return true
}

// encodePath percent-encodes a relative path for the PathToDataFile column.
func encodePath(p string) string {
	n := 0
	for i := 0; i < len(p); i++ {
		if shouldEscape(p[i]) {
			n++
		}
	}
	if n == 0 {
		return p
	}

	var b strings.Builder
	b.Grow(len(p) + 2*n)
	for i := 0; i < len(p); i++ {
		c := p[i]
		if shouldEscape(c) {
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// decodePath reverses encodePath. Columns written by the host application
// occasionally carry stray '%' characters; those are kept verbatim.
func decodePath(p string) string {
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return p
	}
	return decoded
}
