// Package route holds the vocabulary shared by the ember scanner and runtime:
// route segments and the segment compiler, HTTP verbs, handler return shapes,
// matched parameters and the uniform Response.
package route

import (
	"path"
	"regexp"
	"strings"
)

// SegmentType represents the type of a route segment.
type SegmentType int

const (
	// SegmentStatic is a literal path component (e.g., "users")
	SegmentStatic SegmentType = iota
	// SegmentDynamic captures one request component (e.g., [id])
	SegmentDynamic
)

// String returns the segment type name.
func (t SegmentType) String() string {
	if t == SegmentDynamic {
		return "dynamic"
	}
	return "static"
}

// Segment represents one compiled path component.
type Segment struct {
	// Raw is the original path component (e.g., "[id]")
	Raw string
	// Name is the literal text for static segments or the parameter name for dynamic ones
	Name string
	// Type is the segment type
	Type SegmentType
}

// IsDynamic reports whether the segment captures a parameter.
func (s Segment) IsDynamic() bool {
	return s.Type == SegmentDynamic
}

// [id], [userId], [post-id] ... anything non-empty between one pair of brackets.
var dynamicSegmentRe = regexp.MustCompile(`^\[(.+)\]$`)

// IndexName is the file stem that maps to its containing directory.
const IndexName = "index"

// ParseSegment parses a single path component into a Segment.
// Malformed brackets ("[id", "id]", "[]") stay static.
func ParseSegment(name string) Segment {
	if m := dynamicSegmentRe.FindStringSubmatch(name); len(m) > 1 {
		return Segment{Raw: name, Name: m[1], Type: SegmentDynamic}
	}
	return Segment{Raw: name, Name: name, Type: SegmentStatic}
}

// Compile turns a forward-slash relative file path into its route segments.
//
//	index.go                -> []            (/)
//	admin/index.go          -> [admin]       (/admin)
//	users/[id].go           -> [users {id}]  (/users/{id})
func Compile(relPath string) []Segment {
	p := strings.TrimSpace(strings.ReplaceAll(relPath, "\\", "/"))
	p = strings.Trim(p, "/")

	dir, file := path.Split(p)
	stem := strings.TrimSuffix(file, path.Ext(file))
	if stem == IndexName {
		p = strings.TrimSuffix(dir, "/")
	} else {
		p = dir + stem
	}

	if p == "" {
		return nil
	}

	parts := strings.Split(p, "/")
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		segments = append(segments, ParseSegment(part))
	}
	return segments
}

// BuildURLPattern renders segments in brace form, e.g. "/users/{id}".
func BuildURLPattern(segments []Segment) string {
	if len(segments) == 0 {
		return "/"
	}

	var b strings.Builder
	for _, seg := range segments {
		b.WriteByte('/')
		if seg.IsDynamic() {
			b.WriteString("{" + seg.Name + "}")
			continue
		}
		b.WriteString(seg.Name)
	}
	return b.String()
}

// ParamNames returns the dynamic segment names in pattern order.
func ParamNames(segments []Segment) []string {
	var names []string
	for _, seg := range segments {
		if seg.IsDynamic() {
			names = append(names, seg.Name)
		}
	}
	return names
}

// Overlaps reports whether some request path could structurally match both
// a and b: same arity, and at every position either side is dynamic or the
// static texts are equal.
func Overlaps(a, b []Segment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].IsDynamic() || b[i].IsDynamic() {
			continue
		}
		if a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}
