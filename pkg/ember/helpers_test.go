package ember

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/ember/pkg/route"
	"github.com/abdul-hamid-achik/ember/pkg/scanner"
)

// projectFile builds a ProjectFile as the scanner would, with one bare
// string handler per verb.
func projectFile(rel string, verbs ...string) scanner.ProjectFile {
	segs := route.Compile(rel)
	f := scanner.ProjectFile{
		RelativePath: rel,
		Kind:         scanner.KindAPI,
		Segments:     segs,
		URLPattern:   route.BuildURLPattern(segs),
	}
	for _, v := range verbs {
		f.Handlers = append(f.Handlers, scanner.Handler{
			Name:      v,
			Method:    v,
			Signature: route.Signature{Shape: route.ShapeBareString, Params: true},
		})
	}
	return f
}

// echoRegistry registers a handler answering "<verb> <file> <params>" for
// every handler of files.
func echoRegistry(t *testing.T, files ...scanner.ProjectFile) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, f := range files {
		for _, h := range f.Handlers {
			file, verb := f.RelativePath, h.Method
			err := reg.Register(file, verb, func(p route.Params) string {
				out := verb + " " + file
				for _, kv := range p {
					out += " " + kv.Name + "=" + kv.Value
				}
				return out
			})
			if err != nil {
				t.Fatalf("Register(%s, %s) error = %v", file, verb, err)
			}
		}
	}
	return reg
}

// writeRoute writes a handler file under root and returns its ProjectFile
// with AbsolutePath set.
func writeRoute(t *testing.T, root, rel, content string, verbs ...string) scanner.ProjectFile {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	f := projectFile(rel, verbs...)
	f.AbsolutePath = path
	return f
}
