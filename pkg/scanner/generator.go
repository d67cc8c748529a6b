package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/abdul-hamid-achik/ember/internal/version"
	"github.com/abdul-hamid-achik/ember/pkg/route"
)

// DefaultOutputDir is where generated registration code is written.
const DefaultOutputDir = "internal/generated"

// GeneratorConfig holds configuration for code generation.
type GeneratorConfig struct {
	// ModuleName is the Go module name (from go.mod)
	ModuleName string
	// RouteRoot is the directory holding handler files
	RouteRoot string
	// OutputDir is where to write generated files (default: internal/generated)
	OutputDir string
	// ProjectDir is the module root; when set, import paths are derived
	// from OutputDir relative to it
	ProjectDir string
	// Verbose prints every generated file
	Verbose bool
}

// Generator turns scan results into compilable registration code. Every
// handler file is copied into its own package under OutputDir, next to a
// register.go that hands its verb functions to an ember.Registry.
type Generator struct {
	config GeneratorConfig
}

// NewGenerator creates a new Generator with the given config.
func NewGenerator(config GeneratorConfig) *Generator {
	if config.OutputDir == "" {
		config.OutputDir = DefaultOutputDir
	}
	if config.RouteRoot == "" {
		config.RouteRoot = "."
	}
	return &Generator{config: config}
}

// GenerateResult holds the result of code generation.
type GenerateResult struct {
	// ScanResult is the scan results used for generation
	ScanResult *ScanResult
	// GeneratedFiles are the paths to generated files
	GeneratedFiles []string
}

// Generate scans the route root and writes the generated packages.
func (g *Generator) Generate() (*GenerateResult, error) {
	s := NewScanner(g.config.RouteRoot)
	scanResult, err := s.Scan()
	if err != nil && !errors.Is(err, ErrRootNotFound) {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return g.GenerateFrom(scanResult)
}

// GenerateFrom writes generated packages for an existing scan result.
func (g *Generator) GenerateFrom(scanResult *ScanResult) (*GenerateResult, error) {
	if g.config.ModuleName == "" {
		return nil, fmt.Errorf("module name is required")
	}

	if err := g.checkOutputDir(); err != nil {
		return nil, err
	}
	// Stale packages from removed handler files must not survive.
	if err := removeGenerated(g.config.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to clean output dir: %w", err)
	}
	if err := os.MkdirAll(g.config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	result := &GenerateResult{ScanResult: scanResult}

	var packages []packageEntry
	used := make(map[string]int)
	for _, file := range scanResult.Files {
		if len(file.Handlers) == 0 {
			continue
		}

		alias := MakeImportAlias(file.RelativePath)
		if n := used[alias]; n > 0 {
			used[alias]++
			alias = fmt.Sprintf("%s%d", alias, n+1)
		} else {
			used[alias] = 1
		}

		files, err := g.writeHandlerPackage(file, alias)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s: %w", file.RelativePath, err)
		}
		result.GeneratedFiles = append(result.GeneratedFiles, files...)

		packages = append(packages, packageEntry{
			Alias:      alias,
			ImportPath: g.importPath(alias),
			File:       file.RelativePath,
		})
	}

	registerPath := filepath.Join(g.config.OutputDir, "register.go")
	if err := g.writeTemplate(registerPath, registerTemplate, map[string]any{
		"Packages":      packages,
		"SchemaVersion": version.GetGeneratorSchemaVersion(),
	}); err != nil {
		return nil, fmt.Errorf("failed to generate register.go: %w", err)
	}
	result.GeneratedFiles = append(result.GeneratedFiles, registerPath)

	if g.config.Verbose {
		for _, f := range result.GeneratedFiles {
			fmt.Printf("  Generated %s\n", f)
		}
	}

	return result, nil
}

// checkOutputDir rejects an output directory that is, or contains, the
// route root or the project directory.
func (g *Generator) checkOutputDir() error {
	for _, dir := range []string{g.config.RouteRoot, g.config.ProjectDir} {
		if dir != "" && IsWithin(dir, g.config.OutputDir) {
			return fmt.Errorf("output dir %s contains %s, refusing to write there", g.config.OutputDir, dir)
		}
	}
	return nil
}

// IsWithin reports whether path is dir or lies below it.
func IsWithin(path, dir string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// removeGenerated deletes the register.go and package directories an
// earlier run wrote into dir. Everything else is left in place.
func removeGenerated(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		switch {
		case e.IsDir():
			if isGeneratedFile(filepath.Join(path, "register.go")) {
				if err := os.RemoveAll(path); err != nil {
					return err
				}
			}
		case e.Name() == "register.go":
			if isGeneratedFile(path) {
				if err := os.Remove(path); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func isGeneratedFile(path string) bool {
	line, err := readFirstLine(path)
	return err == nil && strings.HasPrefix(line, generatedHeader)
}

const generatedHeader = "// Code generated by ember."

// packageEntry is used for template rendering
type packageEntry struct {
	Alias      string
	ImportPath string
	File       string
}

// registration is used for template rendering
type registration struct {
	File   string
	Method string
	Func   string
}

func (g *Generator) importPath(alias string) string {
	dir := g.config.OutputDir
	if g.config.ProjectDir != "" {
		if rel, err := filepath.Rel(g.config.ProjectDir, dir); err == nil {
			dir = rel
		}
	}
	dir = filepath.ToSlash(filepath.Clean(dir))
	return g.config.ModuleName + "/" + strings.TrimPrefix(dir, "./") + "/" + alias
}

// writeHandlerPackage copies the handler source with its package clause
// renamed and build constraints removed, then adds the package's Register.
func (g *Generator) writeHandlerPackage(file ProjectFile, alias string) ([]string, error) {
	src, err := os.ReadFile(file.AbsolutePath)
	if err != nil {
		return nil, err
	}

	pkgDir := filepath.Join(g.config.OutputDir, alias)
	if err := os.MkdirAll(pkgDir, 0755); err != nil {
		return nil, err
	}

	rewritten, err := RewriteSource(src, alias)
	if err != nil {
		return nil, err
	}
	handlerPath := filepath.Join(pkgDir, "handlers.go")
	if err := os.WriteFile(handlerPath, rewritten, 0644); err != nil {
		return nil, err
	}

	regs := make([]registration, 0, len(file.Handlers))
	for _, h := range file.Handlers {
		regs = append(regs, registration{File: file.RelativePath, Method: h.Method, Func: h.Name})
	}

	registerPath := filepath.Join(pkgDir, "register.go")
	if err := g.writeTemplate(registerPath, packageRegisterTemplate, map[string]any{
		"Package":       alias,
		"Source":        file.RelativePath,
		"Registrations": regs,
	}); err != nil {
		return nil, err
	}

	return []string{handlerPath, registerPath}, nil
}

func (g *Generator) writeTemplate(path, tmplText string, data map[string]any) error {
	var buf bytes.Buffer
	tmpl := template.Must(template.New(filepath.Base(path)).Funcs(template.FuncMap{
		"quote": strconv.Quote,
	}).Parse(tmplText))
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("generated code does not compile: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}

var (
	packageClauseRe   = regexp.MustCompile(`(?m)^package\s+\w+`)
	buildConstraintRe = regexp.MustCompile(`(?m)^//(go:build|\s*\+build)\b.*\n`)
)

// RewriteSource strips build constraints and renames the package clause.
func RewriteSource(src []byte, pkg string) ([]byte, error) {
	loc := packageClauseRe.FindIndex(src)
	if loc == nil {
		return nil, fmt.Errorf("no package clause")
	}

	head := buildConstraintRe.ReplaceAll(src[:loc[0]], nil)
	var out bytes.Buffer
	out.WriteString(generatedHeader + " DO NOT EDIT.\n\n")
	out.Write(head)
	out.WriteString("package " + pkg)
	out.Write(src[loc[1]:])
	return out.Bytes(), nil
}

// MakeImportAlias creates a unique, valid package name for a handler file.
// Example: "posts/[id]/comments/[commentId].go" -> "postsIdCommentsCommentid"
func MakeImportAlias(relPath string) string {
	segs := route.Compile(relPath)
	if len(segs) == 0 {
		return "root"
	}

	var b strings.Builder
	for _, seg := range segs {
		b.WriteString(toPascalCase(sanitizePackageName(seg.Name)))
	}

	name := b.String()
	if name == "" {
		return "route"
	}
	name = strings.ToLower(name[:1]) + name[1:]
	if name[0] >= '0' && name[0] <= '9' {
		name = "r" + name
	}
	if goKeywords[name] {
		name += "Route"
	}
	return name
}

var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
	// Names the generated register.go files already use.
	"ember": true, "errors": true, "generated": true,
}

// toPascalCase converts a string to PascalCase.
func toPascalCase(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, ".", "_")

	parts := strings.Split(s, "_")
	var result strings.Builder

	for _, part := range parts {
		if part == "" {
			continue
		}
		result.WriteString(strings.ToUpper(string(part[0])))
		if len(part) > 1 {
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// sanitizePackageName reduces a segment to ASCII letters and digits, with
// word breaks kept as underscores for toPascalCase.
func sanitizePackageName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r == '-' || r == '_' || r == '.' || r == ' ':
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

const packageRegisterTemplate = `// Code generated by ember. DO NOT EDIT.
// Source: {{.Source}}

package {{.Package}}

import (
	"errors"

	"github.com/abdul-hamid-achik/ember/pkg/ember"
)

// EmberRegister hands this file's verb functions to the registry.
func EmberRegister(reg *ember.Registry) error {
	return errors.Join(
{{- range .Registrations}}
		reg.Register({{quote .File}}, {{quote .Method}}, {{.Func}}),
{{- end}}
	)
}
`

const registerTemplate = `// Code generated by ember. DO NOT EDIT.
// Schema version: {{.SchemaVersion}}

package generated

import (
	"errors"

	"github.com/abdul-hamid-achik/ember/pkg/ember"
{{- range .Packages}}
	{{.Alias}} {{quote .ImportPath}}
{{- end}}
)

// Register adds every discovered handler to reg.
func Register(reg *ember.Registry) error {
{{- if .Packages}}
	return errors.Join(
{{- range .Packages}}
		{{.Alias}}.EmberRegister(reg), // {{.File}}
{{- end}}
	)
{{- else}}
	_ = reg
	return errors.Join()
{{- end}}
}

// NewRegistry returns a registry holding every discovered handler.
func NewRegistry() (*ember.Registry, error) {
	reg := ember.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
`

// GetModuleName reads the module name from the go.mod in dir.
func GetModuleName(dir string) (string, error) {
	content, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", err
	}

	lines := strings.Split(string(content), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "module ") {
			return strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "module ")), `"`), nil
		}
	}

	return "", fmt.Errorf("module name not found in go.mod")
}
