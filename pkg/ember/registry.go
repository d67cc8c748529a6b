package ember

import (
	"fmt"
	"path"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/ember/pkg/route"
)

// Registration is one adapted verb function of one handler file.
type Registration struct {
	// File is the handler file path relative to the route root (e.g., "users/[id].go")
	File string
	// Verb is the HTTP method (e.g., "GET")
	Verb string
	// Name is the original function name, for diagnostics
	Name string
	// Signature describes the original calling convention
	Signature route.Signature
	// Invoke runs the handler
	Invoke Handler
}

// BodyRequired reports whether the handler reads the request body.
func (r Registration) BodyRequired() bool {
	return r.Signature.Body
}

// Registry holds the handlers a binary knows about, keyed by file and verb.
// Generated code fills it with one Register call per discovered handler.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]map[string]Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]map[string]Registration)}
}

// Register adapts fn and records it for (file, verb).
func (r *Registry) Register(file, verb string, fn any) error {
	h, sig, err := Adapt(fn)
	if err != nil {
		return fmt.Errorf("%s %s: %w", verb, file, err)
	}
	return r.Add(Registration{
		File:      file,
		Verb:      verb,
		Name:      funcName(fn),
		Signature: sig,
		Invoke:    h,
	})
}

// Add records an already adapted handler.
func (r *Registry) Add(reg Registration) error {
	reg.File = cleanFile(reg.File)
	reg.Verb = strings.ToUpper(reg.Verb)

	if !route.IsVerb(reg.Verb) {
		return fmt.Errorf("%w: %q", ErrUnknownVerb, reg.Verb)
	}
	if reg.Invoke == nil {
		return fmt.Errorf("%s %s: %w: nil handler", reg.Verb, reg.File, ErrUnsupportedSignature)
	}
	if !reg.Signature.Shape.Valid() {
		return fmt.Errorf("%s %s: %w: unknown shape %s", reg.Verb, reg.File, ErrUnsupportedSignature, reg.Signature.Shape)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	verbs, ok := r.entries[reg.File]
	if !ok {
		verbs = make(map[string]Registration)
		r.entries[reg.File] = verbs
	}
	if _, exists := verbs[reg.Verb]; exists {
		return fmt.Errorf("%w: %s %s", ErrDuplicateHandler, reg.Verb, reg.File)
	}
	verbs[reg.Verb] = reg
	return nil
}

// Lookup returns the registration for (file, verb).
func (r *Registry) Lookup(file, verb string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.entries[cleanFile(file)][strings.ToUpper(verb)]
	return reg, ok
}

// Verbs returns the registered verbs of file in canonical order.
func (r *Registry) Verbs(file string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	verbs := r.entries[cleanFile(file)]
	var out []string
	for _, v := range route.Verbs {
		if _, ok := verbs[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Files returns every file with at least one registration, sorted.
func (r *Registry) Files() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files := make([]string, 0, len(r.entries))
	for f := range r.entries {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, verbs := range r.entries {
		n += len(verbs)
	}
	return n
}

func cleanFile(file string) string {
	file = strings.ReplaceAll(file, "\\", "/")
	file = path.Clean("/" + file)
	return strings.TrimPrefix(file, "/")
}

// funcName returns the unqualified name of a function value.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	name := f.Name()
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
