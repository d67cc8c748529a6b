package ember

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/ember/pkg/route"
)

const usersHandler = `// ember:api
//go:build ember

package users

import "github.com/abdul-hamid-achik/ember/pkg/route"

// GET returns one user.
func GET(p route.Params) (string, int) {
	return "user " + p.Get("id"), 200
}

func DELETE(p route.Params) (string, int) {
	return "", 204
}
`

const docsHandler = `// ember:ui
//go:build ember

package docs
`

func newTestProject(t *testing.T) (dir string, reg *Registry) {
	t.Helper()
	dir = t.TempDir()
	for rel, content := range map[string]string{
		"routes/users/[id].go": usersHandler,
		"routes/docs.go":       docsHandler,
	} {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	reg = NewRegistry()
	if err := reg.Register("users/[id].go", "GET", func(p route.Params) (string, int) {
		return "user " + p.Get("id"), 200
	}); err != nil {
		t.Fatal(err)
	}
	return dir, reg
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.ParentFolder = "routes"
	return cfg
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestApp_ServeHTTP(t *testing.T) {
	dir, reg := newTestProject(t)
	app := New(WithDir(dir), WithConfig(testConfig()), WithRegistry(reg))
	app.DisableLogger()
	app.Use(RequestID())
	if err := app.Mount(); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/users/42", 200, "user 42"},
		{"/docs", 200, "// ember:ui"},
		{"/health", 200, "OK"},
		{"/missing", 404, "Not Found"},
		{"/metrics", 200, "ember_dispatch_requests_total"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			rec := get(t, app, tc.path)
			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
			if !strings.Contains(rec.Body.String(), tc.contains) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tc.contains)
			}
			if rec.Header().Get(RequestIDHeader) == "" {
				t.Error("middleware did not run")
			}
		})
	}
}

func TestApp_UnregisteredVerbWarnsAndAnswers501(t *testing.T) {
	dir, reg := newTestProject(t)
	app := New(WithDir(dir), WithConfig(testConfig()), WithRegistry(reg), WithoutMetrics())
	app.DisableLogger()
	if err := app.Mount(); err != nil {
		t.Fatal(err)
	}

	var found bool
	for _, w := range app.Warnings() {
		if strings.Contains(w.Message, "DELETE") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want one about DELETE", app.Warnings())
	}

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/1", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}

	if rec := get(t, app, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("/metrics status = %d, want 404 without metrics", rec.Code)
	}
}

func TestApp_WarnsAboutBuiltinShadowing(t *testing.T) {
	dir := t.TempDir()
	for rel, content := range map[string]string{
		"routes/metrics.go":       "// ember:api\n//go:build ember\n\npackage metrics\n\nfunc GET() string { return \"mine\" }\n",
		"routes/health.go":        "// ember:api\n//go:build ember\n\npackage health\n\nfunc POST() string { return \"posted\" }\n",
		"routes/[section].go":     "// ember:api\n//go:build ember\n\npackage section\n\nfunc PUT() string { return \"put\" }\n",
		"routes/users/profile.go": "// ember:api\n//go:build ember\n\npackage profile\n\nfunc GET() string { return \"me\" }\n",
	} {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	shadowed := func(app *App) map[string]bool {
		t.Helper()
		if err := app.Build(); err != nil {
			t.Fatal(err)
		}
		out := make(map[string]bool)
		for _, w := range app.Warnings() {
			if strings.Contains(w.Message, "built-in endpoint") {
				out[w.FilePath] = true
			}
		}
		return out
	}

	cfg := testConfig()
	cfg.RawFallback = false
	got := shadowed(New(WithDir(dir), WithConfig(cfg)))
	if !got["metrics.go"] || !got["[section].go"] {
		t.Errorf("shadowed = %v, want metrics.go and [section].go", got)
	}
	if got["health.go"] || got["users/profile.go"] {
		t.Errorf("shadowed = %v, POST /health and /users/profile stay reachable", got)
	}

	if got := shadowed(New(WithDir(dir), WithConfig(cfg), WithoutMetrics())); len(got) != 0 {
		t.Errorf("shadowed = %v, want none without metrics", got)
	}
}

func TestApp_RegistryOnly(t *testing.T) {
	_, reg := newTestProject(t)
	cfg := testConfig()
	cfg.ParentFolder = filepath.Join(t.TempDir(), "missing")

	app := New(WithConfig(cfg), WithRegistry(reg), WithoutMetrics())
	app.DisableLogger()
	if err := app.Build(); err != nil {
		t.Fatal(err)
	}
	if app.Table().Len() != 1 {
		t.Fatalf("Len() = %d, want 1 from the registry", app.Table().Len())
	}
	if err := app.Mount(); err != nil {
		t.Fatal(err)
	}
	if rec := get(t, app, "/users/5"); rec.Body.String() != "user 5" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestApp_NoRoutes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ParentFolder = ""

	app := New(WithConfig(cfg), WithoutMetrics())
	app.DisableLogger()
	if err := app.Mount(); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	if len(app.Warnings()) != 1 {
		t.Errorf("warnings = %v, want the missing root", app.Warnings())
	}
	if rec := get(t, app, "/anything"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestApp_LogsMatchedRoute(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	dir, reg := newTestProject(t)
	app := New(WithDir(dir), WithConfig(testConfig()), WithRegistry(reg), WithoutMetrics())
	app.SetLogger(RequestLoggerConfig{Level: LogLevelInfo, ShowMatch: true, DisableColors: true})
	if err := app.Mount(); err != nil {
		t.Fatal(err)
	}

	get(t, app, "/users/7")
	output := buf.String()
	if !strings.Contains(output, "/users/7") || !strings.Contains(output, "/users/{id}") || !strings.Contains(output, "200") {
		t.Errorf("log = %q", output)
	}
}

func TestApp_DevServesOpenAPI(t *testing.T) {
	dir, reg := newTestProject(t)
	cfg := testConfig()
	cfg.Dev = true

	app := New(WithDir(dir), WithConfig(cfg), WithRegistry(reg), WithoutMetrics())
	app.DisableLogger()
	if err := app.Mount(); err != nil {
		t.Fatal(err)
	}

	rec := get(t, app, OpenAPIPath)
	body, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK || !strings.Contains(string(body), "/users/{id}") {
		t.Errorf("status = %d, body = %s", rec.Code, body)
	}
}
