package ember

import (
	"context"
	"fmt"
	"net/http"

	"github.com/abdul-hamid-achik/ember/pkg/route"
	"github.com/abdul-hamid-achik/ember/pkg/scanner"
)

// Warning is a non-fatal table building issue.
type Warning = scanner.Warning

// RouteEntry is one matchable (method, pattern, handler) unit.
type RouteEntry struct {
	// Method is the HTTP verb
	Method string
	// Segments is the compiled pattern
	Segments []route.Segment
	// Pattern is the brace-form pattern (e.g., "/users/{id}")
	Pattern string
	// File is the handler file relative to the route root
	File string
	// Kind is the file's marker classification
	Kind scanner.Kind
	// Name is the verb function name
	Name string
	// Signature is the original calling convention
	Signature route.Signature
	// Doc is the verb function's doc comment, when built from source
	Doc string
	// Registered is false for placeholders built from source alone
	Registered bool
	// Invoke runs the adapted handler
	Invoke Handler

	dynamic int
}

// ParamNames returns the dynamic segment names in pattern order.
func (e *RouteEntry) ParamNames() []string {
	return route.ParamNames(e.Segments)
}

// matchSegments compares request segments against a pattern of the same
// arity. Params are only allocated once every static segment matched.
func matchSegments(pattern []route.Segment, segs []string, dynamic int) (route.Params, bool) {
	for i, seg := range pattern {
		if seg.Type == route.SegmentStatic && seg.Name != segs[i] {
			return nil, false
		}
	}
	if dynamic == 0 {
		return nil, true
	}
	params := make(route.Params, 0, dynamic)
	for i, seg := range pattern {
		if seg.Type == route.SegmentDynamic {
			params = append(params, route.Param{Name: seg.Name, Value: segs[i]})
		}
	}
	return params, true
}

// Table is the ordered, immutable route table.
type Table struct {
	entries  []RouteEntry
	files    []scanner.ProjectFile
	overlaps []scanner.Overlap
}

// Build compiles project files into a table. Files are ordered by relative
// path and verbs within a file follow the canonical verb order. With a nil
// registry every detected verb gets a placeholder answering 501; with a
// registry, verbs detected in source but never registered are placeholders
// too and produce a warning.
func Build(files []scanner.ProjectFile, reg *Registry) (*Table, []Warning) {
	sorted := make([]scanner.ProjectFile, 0, len(files))
	for _, f := range files {
		if f.Kind == scanner.KindOther {
			continue
		}
		sorted = append(sorted, f)
	}
	scanner.SortFiles(sorted)

	t := &Table{files: sorted}
	var warnings []Warning

	for _, file := range sorted {
		for _, verb := range route.Verbs {
			h, ok := handlerFor(file, verb)
			if !ok {
				continue
			}

			entry := RouteEntry{
				Method:    verb,
				Segments:  file.Segments,
				Pattern:   file.URLPattern,
				File:      file.RelativePath,
				Kind:      file.Kind,
				Name:      h.Name,
				Signature: h.Signature,
				Doc:       h.Doc,
				Invoke:    notRegistered,
			}
			if entry.Pattern == "" {
				entry.Pattern = route.BuildURLPattern(file.Segments)
			}
			entry.dynamic = countDynamic(file.Segments)

			if reg != nil {
				if r, ok := reg.Lookup(file.RelativePath, verb); ok {
					entry.Invoke = r.Invoke
					entry.Signature = r.Signature
					entry.Registered = true
					if r.Name != "" {
						entry.Name = r.Name
					}
				} else {
					warnings = append(warnings, Warning{
						FilePath: file.RelativePath,
						Message:  fmt.Sprintf("%s %s is not registered, run ember generate", verb, h.Name),
					})
				}
			}

			t.entries = append(t.entries, entry)
		}
	}

	t.overlaps = scanner.FindOverlaps(sorted)
	return t, warnings
}

// FromRegistry builds a table from registered handlers alone, for binaries
// that ship without their handler sources.
func FromRegistry(reg *Registry) *Table {
	var files []scanner.ProjectFile
	for _, file := range reg.Files() {
		segs := route.Compile(file)
		pf := scanner.ProjectFile{
			RelativePath: file,
			Kind:         scanner.KindAPI,
			Segments:     segs,
			URLPattern:   route.BuildURLPattern(segs),
		}
		for _, verb := range reg.Verbs(file) {
			r, _ := reg.Lookup(file, verb)
			pf.Handlers = append(pf.Handlers, scanner.Handler{
				Name:      r.Name,
				Method:    verb,
				Signature: r.Signature,
			})
		}
		files = append(files, pf)
	}
	t, _ := Build(files, reg)
	return t
}

func handlerFor(file scanner.ProjectFile, verb string) (scanner.Handler, bool) {
	for _, h := range file.Handlers {
		if h.Method == verb {
			return h, true
		}
	}
	return scanner.Handler{}, false
}

func notRegistered(context.Context, route.Params, []byte) (route.Response, error) {
	return route.Response{}, NewHTTPError(http.StatusNotImplemented, "handler not registered")
}

// Entries returns a copy of the entries in match order.
func (t *Table) Entries() []RouteEntry {
	out := make([]RouteEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Entry returns the entry at index i.
func (t *Table) Entry(i int) *RouteEntry {
	return &t.entries[i]
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Files returns the retained project files in discovery order.
func (t *Table) Files() []scanner.ProjectFile {
	return t.files
}

// Overlaps returns the structurally overlapping route pairs. The first
// file of each pair always wins.
func (t *Table) Overlaps() []scanner.Overlap {
	return t.overlaps
}

// lookup scans for the first entry matching method and request segments.
// It returns the entry index or -1.
func (t *Table) lookup(method string, segs []string) (int, route.Params) {
	for i := range t.entries {
		e := &t.entries[i]
		if len(e.Method) != len(method) || len(e.Segments) != len(segs) || e.Method != method {
			continue
		}
		if params, ok := matchSegments(e.Segments, segs, e.dynamic); ok {
			return i, params
		}
	}
	return -1, nil
}

// Find returns the first project file whose pattern matches segs,
// regardless of handlers. Raw-file fallback serves it.
func (t *Table) Find(segs []string) (*scanner.ProjectFile, route.Params) {
	for i := range t.files {
		f := &t.files[i]
		if len(f.Segments) != len(segs) {
			continue
		}
		if params, ok := matchSegments(f.Segments, segs, countDynamic(f.Segments)); ok {
			return f, params
		}
	}
	return nil, nil
}

func countDynamic(segs []route.Segment) int {
	n := 0
	for _, seg := range segs {
		if seg.IsDynamic() {
			n++
		}
	}
	return n
}
