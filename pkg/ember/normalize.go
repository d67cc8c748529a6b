package ember

import (
	"net/url"
	"strings"
)

// Path is a normalized request path: decoded segments with empty and dot
// segments resolved.
type Path struct {
	Segments []string
}

// NormalizePath turns a raw request target into match segments.
//
//   - the query and fragment are dropped
//   - the path is truncated at the first NUL byte, "%00" or invalid escape
//   - components are split on "/" and percent-decoded one by one
//   - empty and "." components are dropped, ".." pops but never above root
//
// Malformed input never fails: the worst case is the root path.
func NormalizePath(raw string) Path {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	raw = raw[:validPrefix(raw)]

	var segs []string
	for len(raw) > 0 {
		var comp string
		comp, raw, _ = strings.Cut(raw, "/")
		if comp == "" {
			continue
		}
		if strings.IndexByte(comp, '%') >= 0 {
			// validPrefix guarantees every escape is well formed.
			if decoded, err := url.PathUnescape(comp); err == nil {
				comp = decoded
			}
		}
		switch comp {
		case ".":
		case "..":
			if len(segs) > 0 {
				segs = segs[:len(segs)-1]
			}
		default:
			segs = append(segs, comp)
		}
	}
	return Path{Segments: segs}
}

// validPrefix returns the length of the longest prefix of raw free of NUL
// bytes and malformed or NUL percent escapes.
func validPrefix(raw string) int {
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case 0:
			return i
		case '%':
			if i+2 >= len(raw) || !isHex(raw[i+1]) || !isHex(raw[i+2]) {
				return i
			}
			if raw[i+1] == '0' && raw[i+2] == '0' {
				return i
			}
			i += 2
		}
	}
	return len(raw)
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// String returns the canonical form, "/" for the root. Segments are
// re-escaped so a decoded "/" inside a segment stays distinguishable.
func (p Path) String() string {
	if len(p.Segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, seg := range p.Segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p.Segments)
}
