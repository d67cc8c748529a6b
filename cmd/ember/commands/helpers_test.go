package commands

import (
	"os"
	"path/filepath"
	"testing"
)

const usersRoute = `// ember:api
//go:build ember

package users

import "github.com/abdul-hamid-achik/ember/pkg/route"

// GET returns one user.
// Users are looked up by id.
func GET(p route.Params) string {
	return "user " + p.Get("id")
}

func Delete(p route.Params) (string, int) {
	return "", 204
}
`

const meRoute = `// ember:api
//go:build ember

package users

func GET() string {
	return "me"
}
`

const readmeRoute = `// ember:ui
//go:build ember

package docs
`

// writeProject creates a project with ember.yaml, go.mod and the given
// files under routes/.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
	write("ember.yaml", "parent_folder: routes\n")
	write("go.mod", "module github.com/user/myapp\n\ngo 1.25\n")
	for rel, content := range files {
		write("routes/"+rel, content)
	}
	return dir
}
