package scanner

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/abdul-hamid-achik/ember/pkg/route"
)

// ScaffoldConfig holds configuration for handler file scaffolding.
type ScaffoldConfig struct {
	Root    string   // Route root the file is created under
	Path    string   // Route path (e.g., "users/[id]")
	Methods []string // HTTP methods (default: GET)
	Kind    Kind     // KindAPI (default) or KindUI
}

// ScaffoldResult holds the result of scaffolding.
type ScaffoldResult struct {
	File    string   `json:"file"`
	Pattern string   `json:"pattern"`
	Methods []string `json:"methods"`
}

// Scaffold writes a new handler file with one stub per method. It never
// overwrites an existing file.
func Scaffold(cfg ScaffoldConfig) (*ScaffoldResult, error) {
	rel, err := scaffoldPath(cfg.Path)
	if err != nil {
		return nil, err
	}
	if cfg.Kind == KindOther {
		cfg.Kind = KindAPI
	}

	methods := cfg.Methods
	if len(methods) == 0 {
		methods = []string{"GET"}
	}
	var verbs []string
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if !route.IsVerb(m) {
			return nil, fmt.Errorf("unknown method %q", m)
		}
		verbs = append(verbs, m)
	}

	segs := route.Compile(rel)
	pattern := route.BuildURLPattern(segs)
	filePath := filepath.Join(cfg.Root, filepath.FromSlash(rel))

	if _, err := os.Stat(filePath); err == nil {
		return nil, fmt.Errorf("file already exists: %s", filePath)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	var buf bytes.Buffer
	if err := scaffoldTemplate.Execute(&buf, map[string]any{
		"Kind":    cfg.Kind.String(),
		"Package": packageNameFromSegments(segs),
		"Methods": verbs,
		"Params":  route.ParamNames(segs),
		"Pattern": pattern,
	}); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("scaffold does not compile: %w", err)
	}
	if err := os.WriteFile(filePath, src, 0644); err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &ScaffoldResult{File: filePath, Pattern: pattern, Methods: verbs}, nil
}

// scaffoldPath turns "users/[id]" into "users/[id].go". The empty path is
// the index route.
func scaffoldPath(p string) (string, error) {
	p = strings.Trim(filepath.ToSlash(strings.TrimSpace(p)), "/")
	p = strings.TrimSuffix(p, ".go")
	if p == "" {
		return route.IndexName + ".go", nil
	}
	for _, seg := range strings.Split(p, "/") {
		switch {
		case seg == "" || seg == "." || seg == "..":
			return "", fmt.Errorf("invalid route path %q", p)
		case IsPrivateFolder(seg):
			return "", fmt.Errorf("route path %q uses the private name %q", p, seg)
		}
	}
	return p + ".go", nil
}

// packageNameFromSegments names the package after the last static segment.
func packageNameFromSegments(segs []route.Segment) string {
	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i].IsDynamic() {
			continue
		}
		name := strings.ReplaceAll(sanitizePackageName(segs[i].Name), "_", "")
		if name == "" {
			continue
		}
		if name[0] >= '0' && name[0] <= '9' {
			name = "pkg" + name
		}
		if goKeywords[name] {
			name += "route"
		}
		return name
	}
	return "routes"
}

var scaffoldTemplate = template.Must(template.New("scaffold").Parse(`// ember:{{.Kind}}
//go:build ember

package {{.Package}}

import "github.com/abdul-hamid-achik/ember/pkg/route"
{{range .Methods}}
// {{.}} handles {{.}} {{$.Pattern}}.
func {{.}}(p route.Params) (string, int) {
	return "{{.}} {{$.Pattern}}"{{range $.Params}} + " {{.}}=" + p.Get("{{.}}"){{end}}, 200
}
{{end}}`))
