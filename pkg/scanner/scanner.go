package scanner

import (
	"errors"
	"fmt"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/ember/pkg/route"
)

// ErrRootNotFound is returned when the route root cannot be opened.
// The accompanying ScanResult is empty and still usable.
var ErrRootNotFound = errors.New("route root not found")

// knownPrivateFolders contains folder names that should be skipped
var knownPrivateFolders = map[string]bool{
	"_components":  true,
	"_lib":         true,
	"_utils":       true,
	"_helpers":     true,
	"_private":     true,
	"_shared":      true,
	"node_modules": true,
	"vendor":       true,
	"testdata":     true,
}

// IsPrivateFolder checks if a directory should be skipped during scanning.
func IsPrivateFolder(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." && name != ".." {
		return true
	}
	return knownPrivateFolders[name]
}

// IsEligibleFile reports whether a file name can hold handlers.
func IsEligibleFile(name string) bool {
	if filepath.Ext(name) != ".go" {
		return false
	}
	return !strings.HasSuffix(name, "_test.go") && !strings.HasSuffix(name, "_templ.go")
}

// Scanner scans a route root for handler files.
type Scanner struct {
	root    string
	fset    *token.FileSet
	verbose bool
}

// NewScanner creates a new Scanner for the given route root.
func NewScanner(root string) *Scanner {
	return &Scanner{
		root: root,
		fset: token.NewFileSet(),
	}
}

// SetVerbose enables verbose logging during scanning.
func (s *Scanner) SetVerbose(v bool) {
	s.verbose = v
}

// Root returns the scanned directory.
func (s *Scanner) Root() string {
	return s.root
}

// Scan walks the route root and returns the retained files sorted by
// relative path. Unreadable files become warnings. A missing or
// unreadable root yields an empty result and ErrRootNotFound.
func (s *Scanner) Scan() (*ScanResult, error) {
	result := &ScanResult{Root: s.root}

	if s.root == "" {
		return result, fmt.Errorf("%w: no route root configured", ErrRootNotFound)
	}
	info, err := os.Stat(s.root)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrRootNotFound, err)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, s.root)
	}

	var candidates []string
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root {
				return err
			}
			result.Warnings = append(result.Warnings, Warning{FilePath: path, Message: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != s.root && IsPrivateFolder(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if IsEligibleFile(d.Name()) {
			candidates = append(candidates, path)
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrRootNotFound, err)
	}

	for _, path := range candidates {
		file, warn := s.scanFile(path)
		if warn != nil {
			result.Warnings = append(result.Warnings, *warn)
		}
		if file == nil {
			continue
		}
		if file.Kind == KindOther {
			result.Skipped++
			continue
		}
		result.Files = append(result.Files, *file)
	}

	SortFiles(result.Files)
	result.Overlaps = FindOverlaps(result.Files)

	if s.verbose {
		for _, o := range result.Overlaps {
			fmt.Printf("  Warning: %s\n", o.Message)
		}
	}

	return result, nil
}

// scanFile classifies one candidate and inspects its verbs. A nil file
// means the candidate could not be read at all.
func (s *Scanner) scanFile(path string) (*ProjectFile, *Warning) {
	relPath, err := filepath.Rel(s.root, path)
	if err != nil {
		return nil, &Warning{FilePath: path, Message: err.Error()}
	}
	relPath = filepath.ToSlash(relPath)

	firstLine, err := readFirstLine(path)
	if err != nil {
		return nil, &Warning{FilePath: relPath, Message: fmt.Sprintf("unreadable, skipped: %v", err)}
	}

	file := &ProjectFile{
		RelativePath: relPath,
		AbsolutePath: absPath(path),
		Kind:         ParseMarker(firstLine),
	}
	if file.Kind == KindOther {
		return file, nil
	}

	file.Segments = route.Compile(relPath)
	file.URLPattern = route.BuildURLPattern(file.Segments)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &Warning{FilePath: relPath, Message: fmt.Sprintf("unreadable, skipped: %v", err)}
	}

	info, err := InspectSource(s.fset, path, src)
	if err != nil {
		// Still a route: raw fallback can serve it, it just has no handlers.
		return file, &Warning{FilePath: relPath, Message: err.Error()}
	}

	file.Package = info.Package
	file.Handlers = info.Handlers

	var warn *Warning
	if len(info.Warnings) > 0 {
		warn = &Warning{FilePath: relPath, Message: strings.Join(info.Warnings, "; ")}
		if s.verbose {
			fmt.Printf("  Warning: %s\n", warn)
		}
	}

	if s.verbose {
		for _, h := range file.Handlers {
			fmt.Printf("  Found handler: %s %s in %s (%s)\n", h.Method, file.URLPattern, relPath, h.Signature)
		}
	}

	return file, warn
}

// SortFiles orders files by relative path, byte-wise. This order is the
// route declaration order and decides first-match ties.
func SortFiles(files []ProjectFile) {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].RelativePath < files[j].RelativePath
	})
}

// FindOverlaps reports every pair of handlers with the same method whose
// patterns can match the same request. Files must already be sorted.
func FindOverlaps(files []ProjectFile) []Overlap {
	var overlaps []Overlap
	for i := range files {
		for j := i + 1; j < len(files); j++ {
			if !route.Overlaps(files[i].Segments, files[j].Segments) {
				continue
			}
			for _, a := range files[i].Handlers {
				for _, b := range files[j].Handlers {
					if a.Method != b.Method {
						continue
					}
					overlaps = append(overlaps, Overlap{
						Method:  a.Method,
						Pattern: files[i].URLPattern,
						First:   files[i].RelativePath,
						Second:  files[j].RelativePath,
						Message: fmt.Sprintf("%s %s (%s) shadows %s (%s)",
							a.Method, files[i].URLPattern, files[i].RelativePath,
							files[j].URLPattern, files[j].RelativePath),
					})
				}
			}
		}
	}
	return overlaps
}

func absPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
