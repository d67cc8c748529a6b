package scanner

import (
	"go/token"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/ember/pkg/route"
)

func inspect(t *testing.T, src string) *SourceInfo {
	t.Helper()
	info, err := InspectSource(token.NewFileSet(), "handler.go", []byte(src))
	if err != nil {
		t.Fatalf("InspectSource failed: %v", err)
	}
	return info
}

func TestInspectSignature(t *testing.T) {
	tests := []struct {
		name    string
		decl    string
		want    route.Signature
		wantErr string
	}{
		{
			name: "bare string",
			decl: "func GET() string",
			want: route.Signature{Shape: route.ShapeBareString},
		},
		{
			name: "tuple with params",
			decl: "func GET(p route.Params) (string, int)",
			want: route.Signature{Shape: route.ShapeTupleStatus, Params: true},
		},
		{
			name: "tuple uint16 status with map params",
			decl: "func GET(p map[string]string) (string, uint16)",
			want: route.Signature{Shape: route.ShapeTupleStatus, Params: true},
		},
		{
			name: "structured with body",
			decl: "func POST(p route.Params, body []byte) route.Response",
			want: route.Signature{Shape: route.ShapeStructured, Params: true, Body: true},
		},
		{
			name: "structured with context and error",
			decl: "func POST(ctx context.Context, p route.Params, body string) (route.Response, error)",
			want: route.Signature{Shape: route.ShapeStructured, Context: true, Params: true, Body: true, Err: true},
		},
		{
			name: "context only",
			decl: "func GET(ctx context.Context) (string, error)",
			want: route.Signature{Shape: route.ShapeBareString, Context: true, Err: true},
		},
		{
			name: "grouped params",
			decl: "func GET(ctx context.Context, p Params) (body string, status int, err error)",
			want: route.Signature{Shape: route.ShapeTupleStatus, Context: true, Params: true, Err: true},
		},
		{
			name:    "no results",
			decl:    "func GET()",
			wantErr: "unrecognized return shape (no results)",
		},
		{
			name:    "wrong result",
			decl:    "func GET() int",
			wantErr: "unrecognized return shape (int)",
		},
		{
			name:    "body without params",
			decl:    "func POST(body []byte) string",
			wantErr: "parameter []byte is not route.Params",
		},
		{
			name:    "bad body type",
			decl:    "func POST(p route.Params, n int) string",
			wantErr: "body parameter int",
		},
		{
			name:    "too many params",
			decl:    "func POST(p route.Params, b []byte, extra string) string",
			wantErr: "too many parameters (3)",
		},
		{
			name:    "http handler style",
			decl:    "func GET(w http.ResponseWriter, r *http.Request)",
			wantErr: "http.ResponseWriter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := inspect(t, "package p\n\n"+tt.decl+" { panic(0) }\n")
			if tt.wantErr != "" {
				if len(info.Handlers) != 0 {
					t.Fatalf("expected no handlers, got %+v", info.Handlers)
				}
				if len(info.Warnings) != 1 || !strings.Contains(info.Warnings[0], tt.wantErr) {
					t.Fatalf("Warnings = %v, want one containing %q", info.Warnings, tt.wantErr)
				}
				return
			}
			if len(info.Handlers) != 1 {
				t.Fatalf("Handlers = %+v, Warnings = %v", info.Handlers, info.Warnings)
			}
			if got := info.Handlers[0].Signature; got != tt.want {
				t.Errorf("Signature = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestInspectSource_NamePreference(t *testing.T) {
	info := inspect(t, `package p

func get() string { return "lower" }
func GET() string { return "upper" }
func Get() string { return "title" }
func post() string { return "post" }
`)

	if len(info.Handlers) != 2 {
		t.Fatalf("Handlers = %+v", info.Handlers)
	}
	if info.Handlers[0].Name != "GET" || info.Handlers[0].Method != "GET" {
		t.Errorf("GET should win, got %+v", info.Handlers[0])
	}
	if info.Handlers[1].Name != "post" || info.Handlers[1].Method != "POST" {
		t.Errorf("lower case post should be found, got %+v", info.Handlers[1])
	}
	if len(info.Warnings) != 2 {
		t.Errorf("expected two shadowing warnings, got %v", info.Warnings)
	}
}

func TestInspectSource_CanonicalOrderAndIsolation(t *testing.T) {
	info := inspect(t, `package p

func HEAD() string { return "" }
func PATCH() int { return 0 }
func DELETE() string { return "" }
func GET() string { return "" }
`)

	var methods []string
	for _, h := range info.Handlers {
		methods = append(methods, h.Method)
	}
	if strings.Join(methods, ",") != "GET,DELETE,HEAD" {
		t.Errorf("methods = %v, want GET,DELETE,HEAD", methods)
	}
	if len(info.Warnings) != 1 || !strings.HasPrefix(info.Warnings[0], "PATCH skipped") {
		t.Errorf("Warnings = %v", info.Warnings)
	}
}

func TestInspectSource_IgnoresMethodsAndOthers(t *testing.T) {
	info := inspect(t, `package p

type svc struct{}

func (svc) GET() string { return "" }
func Fetch() string { return "" }
func TRACE() string { return "" }
`)
	if len(info.Handlers) != 0 || len(info.Warnings) != 0 {
		t.Errorf("Handlers = %+v, Warnings = %v", info.Handlers, info.Warnings)
	}
	if info.Package != "p" {
		t.Errorf("Package = %q", info.Package)
	}
}

func TestInspectSource_DocAndLine(t *testing.T) {
	info := inspect(t, `package p

// GET returns a greeting.
func GET() string { return "hi" }
`)
	h := info.Handlers[0]
	if h.Doc != "GET returns a greeting." {
		t.Errorf("Doc = %q", h.Doc)
	}
	if h.Line != 4 {
		t.Errorf("Line = %d, want 4", h.Line)
	}
}

func TestInspectSource_ParseError(t *testing.T) {
	if _, err := InspectSource(token.NewFileSet(), "x.go", []byte("not go")); err == nil {
		t.Error("expected parse error")
	}
}
