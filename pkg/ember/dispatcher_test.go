package ember

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/abdul-hamid-achik/ember/pkg/route"
	"github.com/abdul-hamid-achik/ember/pkg/scanner"
)

func newTestDispatcher(t *testing.T, opts ...DispatcherOption) *Dispatcher {
	t.Helper()
	files := []scanner.ProjectFile{
		projectFile("users/[id].go", "GET", "DELETE"),
		projectFile("posts/[id]/comments/[commentId].go", "GET"),
		projectFile("index.go", "GET"),
		projectFile("users/me.go", "GET"),
	}
	table, warnings := Build(files, echoRegistry(t, files...))
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	return NewDispatcher(table, opts...)
}

func TestDispatcher_Resolve(t *testing.T) {
	for _, cached := range []bool{false, true} {
		var opts []DispatcherOption
		if cached {
			opts = append(opts, WithMatchCache(NewMatchCache(0)))
		}
		d := newTestDispatcher(t, opts...)

		tests := []struct {
			method string
			path   string
			file   string
			params string
		}{
			{"GET", "/users/42", "users/[id].go", "id=42"},
			{"DELETE", "/users/42", "users/[id].go", "id=42"},
			{"get", "/users/42", "users/[id].go", "id=42"},
			{"GET", "/users", "", ""},
			{"GET", "/posts/7/comments/3", "posts/[id]/comments/[commentId].go", "id=7,commentId=3"},
			{"GET", "/", "index.go", ""},
			{"GET", "/index", "", ""},
			{"GET", "/does/not/exist", "", ""},
			{"GET", "/users/me", "users/[id].go", "id=me"},
			{"GET", "/users/john%20doe", "users/[id].go", "id=john doe"},
			{"GET", "//users//42/?q=1", "users/[id].go", "id=42"},
			{"GET", "/x/../users/42", "users/[id].go", "id=42"},
			{"PUT", "/users/42", "", ""},
		}

		for _, tc := range tests {
			// Twice, so the cached variant answers from the cache.
			for i := 0; i < 2; i++ {
				m, ok := d.Resolve(tc.method, tc.path)
				if tc.file == "" {
					if ok {
						t.Errorf("cached=%v %s %s: matched %s, want none", cached, tc.method, tc.path, m.Entry.File)
					}
					continue
				}
				if !ok {
					t.Fatalf("cached=%v %s %s: no match", cached, tc.method, tc.path)
				}
				if m.Entry.File != tc.file {
					t.Errorf("cached=%v %s %s: file = %s, want %s", cached, tc.method, tc.path, m.Entry.File, tc.file)
				}
				var parts []string
				for _, kv := range m.Params {
					parts = append(parts, kv.Name+"="+kv.Value)
				}
				if got := strings.Join(parts, ","); got != tc.params {
					t.Errorf("cached=%v %s %s: params = %q, want %q", cached, tc.method, tc.path, got, tc.params)
				}
			}
		}
	}
}

func TestDispatcher_ResolveIdempotentWithCache(t *testing.T) {
	d := newTestDispatcher(t, WithMatchCache(NewMatchCache(0)))

	first, _ := d.Resolve("GET", "/users/9")
	first.Params[0].Value = "tampered"
	second, _ := d.Resolve("GET", "/users/9")

	if first.Entry != second.Entry {
		t.Error("entries differ between identical resolves")
	}
	if second.Params.Get("id") != "9" {
		t.Errorf("params = %v, want id=9", second.Params)
	}
	if s := d.Cache().Stats(); s.Hits != 1 || s.Entries != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	d := newTestDispatcher(t)

	tests := []struct {
		name    string
		req     Request
		status  int
		body    string
		outcome string
	}{
		{"handler", Request{Method: "GET", Path: "/users/42"}, 200, "GET users/[id].go id=42", OutcomeHandler},
		{"root", Request{Method: "GET", Path: "/"}, 200, "GET index.go", OutcomeHandler},
		{"health", Request{Method: "GET", Path: "/health"}, 200, "OK", OutcomeHealth},
		{"health lower case method", Request{Method: "get", Path: "/health?x"}, 200, "OK", OutcomeHealth},
		{"not found", Request{Method: "GET", Path: "/nope"}, 404, "Not Found", OutcomeNotFound},
		{"method mismatch", Request{Method: "POST", Path: "/users/42"}, 404, "Not Found", OutcomeNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := d.Dispatch(context.Background(), tc.req)
			if res.Response.Status != tc.status {
				t.Errorf("status = %d, want %d", res.Response.Status, tc.status)
			}
			if string(res.Response.Body) != tc.body {
				t.Errorf("body = %q, want %q", res.Response.Body, tc.body)
			}
			if res.Outcome != tc.outcome {
				t.Errorf("outcome = %q, want %q", res.Outcome, tc.outcome)
			}
		})
	}
}

func TestDispatcher_BareStringIs200(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("api.go", "GET", func() string { return "hi" }); err != nil {
		t.Fatal(err)
	}
	d := NewDispatcher(FromRegistry(reg))

	res := d.Dispatch(context.Background(), Request{Method: "GET", Path: "/api"})
	want := route.Response{Status: 200, Body: []byte("hi"), ContentType: "text/plain; charset=utf-8"}
	if res.Response.Status != want.Status || !bytes.Equal(res.Response.Body, want.Body) || res.Response.ContentType != want.ContentType {
		t.Errorf("response = %+v, want %+v", res.Response, want)
	}
}

func TestDispatcher_FirstMatchWins(t *testing.T) {
	files := []scanner.ProjectFile{
		projectFile("users/me.go", "GET"),
		projectFile("users/[id].go", "GET"),
	}
	table, _ := Build(files, echoRegistry(t, files...))
	d := NewDispatcher(table)

	res := d.Dispatch(context.Background(), Request{Method: "GET", Path: "/users/me"})
	if got := string(res.Response.Body); got != "GET users/[id].go id=me" {
		t.Errorf("body = %q, want the earlier users/[id].go", got)
	}
}

func TestDispatcher_InvocationBoundary(t *testing.T) {
	reg := NewRegistry()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(reg.Register("panic.go", "GET", func() string { panic("boom") }))
	must(reg.Register("teapot.go", "GET", func() (string, error) {
		return "", NewHTTPError(http.StatusTeapot, "short and stout")
	}))
	must(reg.Register("fail.go", "GET", func() (route.Response, error) {
		return route.Response{}, errors.New("database password is hunter2")
	}))
	must(reg.Register("echo.go", "POST", func(p route.Params, body string) string { return "got " + body }))

	d := NewDispatcher(FromRegistry(reg))

	tests := []struct {
		path   string
		method string
		body   string
		status int
		want   string
	}{
		{"/panic", "GET", "", 500, `{"error":"internal server error","code":500}`},
		{"/teapot", "GET", "", 418, `{"error":"short and stout","code":418}`},
		{"/fail", "GET", "", 500, `{"error":"internal server error","code":500}`},
		{"/echo", "POST", "hello", 200, "got hello"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			res := d.Dispatch(context.Background(), Request{Method: tc.method, Path: tc.path, Body: []byte(tc.body)})
			if res.Response.Status != tc.status {
				t.Errorf("status = %d, want %d", res.Response.Status, tc.status)
			}
			if string(res.Response.Body) != tc.want {
				t.Errorf("body = %q, want %q", res.Response.Body, tc.want)
			}
			if tc.status >= 400 && res.Err == nil {
				t.Error("Err not recorded")
			}
		})
	}
}

func TestDispatcher_InvalidStructuredStatus(t *testing.T) {
	reg := NewRegistry()
	for file, status := range map[string]int{"tiny.go": 42, "zero.go": 0, "huge.go": 1000} {
		status := status
		if err := reg.Register(file, "GET", func(route.Params) route.Response {
			return route.Response{Status: status, Body: []byte("leaked")}
		}); err != nil {
			t.Fatal(err)
		}
	}
	d := NewDispatcher(FromRegistry(reg))

	for _, path := range []string{"/tiny", "/zero", "/huge"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

			if rec.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want 500", rec.Code)
			}
			if got := rec.Body.String(); got != `{"error":"internal server error","code":500}` {
				t.Errorf("body = %q", got)
			}

			res := d.Dispatch(context.Background(), Request{Method: http.MethodGet, Path: path})
			if res.Outcome != OutcomeError || res.Err == nil {
				t.Errorf("Outcome = %q, Err = %v", res.Outcome, res.Err)
			}
		})
	}
}

func TestDispatcher_RawFallback(t *testing.T) {
	root := t.TempDir()
	const src = "// ember:api\npackage docs\n"
	files := []scanner.ProjectFile{
		writeRoute(t, root, "docs/[page].go", src),
		writeRoute(t, root, "about.go", src),
	}
	table, _ := Build(files, nil)

	t.Run("with params", func(t *testing.T) {
		d := NewDispatcher(table, WithRawFallback(true))
		res := d.Dispatch(context.Background(), Request{Method: "GET", Path: "/docs/intro"})
		if res.Outcome != OutcomeFallback || res.File != "docs/[page].go" {
			t.Errorf("outcome = %q, file = %q", res.Outcome, res.File)
		}
		if want := "\nParams:\npage = intro\n" + src; string(res.Response.Body) != want {
			t.Errorf("body = %q, want %q", res.Response.Body, want)
		}
	})

	t.Run("without params", func(t *testing.T) {
		d := NewDispatcher(table, WithRawFallback(true))
		res := d.Dispatch(context.Background(), Request{Method: "GET", Path: "/about"})
		if string(res.Response.Body) != src || res.Response.ContentType != route.TextContentType {
			t.Errorf("response = %+v", res.Response)
		}
	})

	t.Run("GET only", func(t *testing.T) {
		d := NewDispatcher(table, WithRawFallback(true))
		res := d.Dispatch(context.Background(), Request{Method: "POST", Path: "/about"})
		if res.Response.Status != http.StatusNotFound {
			t.Errorf("status = %d, want 404", res.Response.Status)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		d := NewDispatcher(table)
		res := d.Dispatch(context.Background(), Request{Method: "GET", Path: "/about"})
		if res.Response.Status != http.StatusNotFound {
			t.Errorf("status = %d, want 404", res.Response.Status)
		}
	})

	t.Run("cached contents survive deletion", func(t *testing.T) {
		dir := t.TempDir()
		f := writeRoute(t, dir, "gone.go", src)
		tbl, _ := Build([]scanner.ProjectFile{f}, nil)
		d := NewDispatcher(tbl, WithRawFallback(true))
		if err := os.Remove(f.AbsolutePath); err != nil {
			t.Fatal(err)
		}
		res := d.Dispatch(context.Background(), Request{Method: "GET", Path: "/gone"})
		if res.Response.Status != http.StatusOK {
			t.Errorf("status = %d, want 200 from the content cache", res.Response.Status)
		}
	})

	t.Run("dev mode reads from disk", func(t *testing.T) {
		dir := t.TempDir()
		f := writeRoute(t, dir, "gone.go", src)
		tbl, _ := Build([]scanner.ProjectFile{f}, nil)
		d := NewDispatcher(tbl, WithRawFallback(true), WithDevMode(true))
		if err := os.Remove(f.AbsolutePath); err != nil {
			t.Fatal(err)
		}
		res := d.Dispatch(context.Background(), Request{Method: "GET", Path: "/gone"})
		if res.Response.Status != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", res.Response.Status)
		}
		if !strings.HasPrefix(string(res.Response.Body), "Failed to read file: ") {
			t.Errorf("body = %q", res.Response.Body)
		}
	})
}

func TestDispatcher_NilTable(t *testing.T) {
	d := NewDispatcher(nil, WithRawFallback(true))
	res := d.Dispatch(context.Background(), Request{Method: "GET", Path: "/anything"})
	if res.Response.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", res.Response.Status)
	}
}

func TestDispatcher_ServeHTTP(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("echo/[id].go", "POST", func(p route.Params, body []byte) route.Response {
		return route.Text(http.StatusCreated, p.Get("id")+":"+string(body)).WithHeader("X-Echo", "1")
	}); err != nil {
		t.Fatal(err)
	}
	d := NewDispatcher(FromRegistry(reg), WithMaxBodyBytes(8))

	t.Run("writes response", func(t *testing.T) {
		rec := httptest.NewRecorder()
		d.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/echo/a%20b", strings.NewReader("hi")))

		if rec.Code != http.StatusCreated {
			t.Errorf("status = %d, want 201", rec.Code)
		}
		if rec.Body.String() != "a b:hi" {
			t.Errorf("body = %q", rec.Body.String())
		}
		if rec.Header().Get("X-Echo") != "1" || rec.Header().Get("Content-Type") != route.TextContentType {
			t.Errorf("headers = %v", rec.Header())
		}
	})

	t.Run("body too large", func(t *testing.T) {
		rec := httptest.NewRecorder()
		d.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/echo/1", strings.NewReader("way more than eight bytes")))
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})

	t.Run("nul byte in path", func(t *testing.T) {
		rec := httptest.NewRecorder()
		d.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/echo/1%00/x", strings.NewReader("ok")))
		if rec.Code != http.StatusCreated {
			t.Errorf("status = %d, want 201 after truncation", rec.Code)
		}
		body, _ := io.ReadAll(rec.Body)
		if string(body) != "1:ok" {
			t.Errorf("body = %q", body)
		}
	})
}

func TestDispatcher_Metrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	m := NewMetrics(promReg)
	d := newTestDispatcher(t, WithMetrics(m), WithMatchCache(NewMatchCache(0)))

	for _, path := range []string{"/users/1", "/users/1", "/nope", "/health"} {
		d.Dispatch(context.Background(), Request{Method: "GET", Path: path})
	}
	d.Dispatch(context.Background(), Request{Method: "BREW", Path: "/pot"})

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", OutcomeHandler)); got != 2 {
		t.Errorf("handler requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", OutcomeNotFound)); got != 1 {
		t.Errorf("not found requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("OTHER", OutcomeNotFound)); got != 1 {
		t.Errorf("other method requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cacheHits); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cacheMisses); got != 3 {
		t.Errorf("cache misses = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.cacheEntries); got != 3 {
		t.Errorf("cache entries = %v, want 3", got)
	}
	if n, err := testutil.GatherAndCount(promReg, "ember_dispatch_requests_total"); err != nil || n == 0 {
		t.Errorf("GatherAndCount() = %d, %v", n, err)
	}
}
