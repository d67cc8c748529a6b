package route

import (
	"reflect"
	"testing"
)

func TestParseSegment(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType SegmentType
		wantName string
	}{
		{"dynamic bracket", "[id]", SegmentDynamic, "id"},
		{"dynamic camel", "[commentId]", SegmentDynamic, "commentId"},
		{"dynamic with hyphen", "[post-id]", SegmentDynamic, "post-id"},
		{"static simple", "users", SegmentStatic, "users"},
		{"static with hyphen", "user-profile", SegmentStatic, "user-profile"},
		{"empty brackets stay static", "[]", SegmentStatic, "[]"},
		{"open bracket only", "[id", SegmentStatic, "[id"},
		{"close bracket only", "id]", SegmentStatic, "id]"},
		{"prefix before bracket", "a[id]", SegmentStatic, "a[id]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSegment(tt.input)
			if got.Type != tt.wantType {
				t.Errorf("ParseSegment(%q).Type = %v, want %v", tt.input, got.Type, tt.wantType)
			}
			if got.Name != tt.wantName {
				t.Errorf("ParseSegment(%q).Name = %q, want %q", tt.input, got.Name, tt.wantName)
			}
			if got.Raw != tt.input {
				t.Errorf("ParseSegment(%q).Raw = %q, want %q", tt.input, got.Raw, tt.input)
			}
		})
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		pattern string
		params  []string
	}{
		{"root index", "index.go", "/", nil},
		{"nested index", "admin/index.go", "/admin", nil},
		{"plain file", "admin.go", "/admin", nil},
		{"dynamic file", "users/[id].go", "/users/{id}", []string{"id"}},
		{"dynamic dirs", "posts/[id]/comments/[commentId].go", "/posts/{id}/comments/{commentId}", []string{"id", "commentId"}},
		{"index under dynamic dir", "users/[id]/index.go", "/users/{id}", []string{"id"}},
		{"index only as stem", "indexes.go", "/indexes", nil},
		{"index dir is static", "index/list.go", "/index/list", nil},
		{"backslashes normalized", `users\[id].go`, "/users/{id}", []string{"id"}},
		{"malformed bracket static", "files/[name.go", "/files/[name", nil},
		{"no extension", "about", "/about", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := Compile(tt.path)
			if got := BuildURLPattern(segs); got != tt.pattern {
				t.Errorf("Compile(%q) pattern = %q, want %q", tt.path, got, tt.pattern)
			}
			if got := ParamNames(segs); !reflect.DeepEqual(got, tt.params) {
				t.Errorf("Compile(%q) params = %v, want %v", tt.path, got, tt.params)
			}
		})
	}
}

func TestCompile_IndexCollapsesToParent(t *testing.T) {
	if !reflect.DeepEqual(Compile("admin/index.go"), Compile("admin.go")) {
		t.Errorf("admin/index.go and admin.go should compile to the same segments")
	}
	if segs := Compile("index.go"); len(segs) != 0 {
		t.Errorf("root index should have zero segments, got %v", segs)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical static", "users.go", "users/index.go", true},
		{"dynamic vs static", "users/[id].go", "users/me.go", true},
		{"two dynamics", "users/[id].go", "users/[name].go", true},
		{"different static", "users/me.go", "users/you.go", false},
		{"different arity", "users.go", "users/[id].go", false},
		{"root vs root", "index.go", "index.go", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(Compile(tt.a), Compile(tt.b)); got != tt.want {
				t.Errorf("Overlaps(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
