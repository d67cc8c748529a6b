// Package scanner discovers ember handler files under a route root.
// It classifies files by their first-line marker, compiles their paths into
// route segments and inspects their verb functions using go/parser.
package scanner

import (
	"github.com/abdul-hamid-achik/ember/pkg/route"
)

// Kind classifies a discovered file by its marker.
type Kind int

const (
	// KindOther files carry no recognized marker and are excluded.
	KindOther Kind = iota
	// KindAPI files are marked "api".
	KindAPI
	// KindUI files are marked "ui".
	KindUI
)

// String returns the marker name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAPI:
		return "api"
	case KindUI:
		return "ui"
	default:
		return "other"
	}
}

// ProjectFile represents one discovered handler file.
type ProjectFile struct {
	// RelativePath is the forward-slash path from the route root (e.g., "users/[id].go")
	RelativePath string
	// AbsolutePath is the resolved file location, used for raw serving
	AbsolutePath string
	// Kind is the marker classification
	Kind Kind
	// Segments are the compiled route segments
	Segments []route.Segment
	// URLPattern is the brace-form pattern (e.g., "/users/{id}")
	URLPattern string
	// Package is the source package clause name
	Package string
	// Handlers are the recognized verb functions in canonical verb order
	Handlers []Handler
}

// Handler represents a recognized verb function.
type Handler struct {
	// Name is the function name (e.g., "GET", "Get", "get")
	Name string
	// Method is the HTTP method (e.g., "GET")
	Method string
	// Signature is the inferred calling convention
	Signature route.Signature
	// Line is the declaration line in the source file
	Line int
	// Doc is the function doc comment, if any
	Doc string
}

// ScanResult holds all discovered files from a scan.
type ScanResult struct {
	// Root is the scanned route root
	Root string
	// Files are the retained api/ui files sorted by RelativePath
	Files []ProjectFile
	// Skipped counts eligible files without a recognized marker
	Skipped int
	// Warnings are non-fatal issues encountered during scanning
	Warnings []Warning
	// Overlaps are pairs of routes that can match the same request
	Overlaps []Overlap
}

// HandlerCount returns the number of verb functions across all files.
func (r *ScanResult) HandlerCount() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Handlers)
	}
	return n
}

// Warning represents a non-fatal issue during scanning.
type Warning struct {
	FilePath string
	Message  string
}

// String formats the warning as "path: message".
func (w Warning) String() string {
	if w.FilePath == "" {
		return w.Message
	}
	return w.FilePath + ": " + w.Message
}

// Overlap represents two routes that structurally match the same requests.
// First wins at dispatch time because it is discovered earlier.
type Overlap struct {
	Method  string
	Pattern string
	First   string
	Second  string
	Message string
}
