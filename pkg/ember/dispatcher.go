package ember

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abdul-hamid-achik/ember/pkg/route"
)

// tracerName is the OpenTelemetry tracer name for dispatch spans.
const tracerName = "ember/dispatcher"

// HealthPath is answered with "OK" before any route is consulted.
const HealthPath = "/health"

// DefaultMaxBodyBytes bounds request bodies read by ServeHTTP.
const DefaultMaxBodyBytes int64 = 10 << 20

// Request is the transport-neutral input of Dispatch.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

// Match is a resolved route entry with its captured params.
type Match struct {
	Entry  *RouteEntry
	Index  int
	Params route.Params
}

// Result is the outcome of Dispatch.
type Result struct {
	Response route.Response
	// Outcome is one of the Outcome* constants
	Outcome string
	// Match is set when a route entry answered
	Match *Match
	// File is the project file served by the raw fallback
	File string
	// Err is the handler error or recovered panic, if any
	Err error
}

// Pattern returns the matched pattern, or "" when no entry matched.
func (r *Result) Pattern() string {
	if r == nil || r.Match == nil {
		return ""
	}
	return r.Match.Entry.Pattern
}

// Dispatcher resolves requests against a Table and invokes handlers.
// It is safe for concurrent use.
type Dispatcher struct {
	table       *Table
	cache       *MatchCache
	metrics     *Metrics
	tracer      trace.Tracer
	rawFallback bool
	dev         bool
	maxBody     int64
	contents    map[string][]byte
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMatchCache memoizes resolve outcomes in c.
func WithMatchCache(c *MatchCache) DispatcherOption {
	return func(d *Dispatcher) { d.cache = c }
}

// WithMetrics records dispatch metrics in m.
func WithMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithRawFallback serves matching handler files as text when no entry
// answers a GET request.
func WithRawFallback(enabled bool) DispatcherOption {
	return func(d *Dispatcher) { d.rawFallback = enabled }
}

// WithDevMode makes the raw fallback read files from disk on every request
// instead of serving the contents loaded at construction.
func WithDevMode(dev bool) DispatcherOption {
	return func(d *Dispatcher) { d.dev = dev }
}

// WithMaxBodyBytes bounds request bodies read by ServeHTTP.
func WithMaxBodyBytes(n int64) DispatcherOption {
	return func(d *Dispatcher) { d.maxBody = n }
}

// NewDispatcher creates a dispatcher over table. A nil table answers
// every request with 404.
func NewDispatcher(table *Table, opts ...DispatcherOption) *Dispatcher {
	if table == nil {
		table = &Table{}
	}
	d := &Dispatcher{
		table:   table,
		tracer:  otel.Tracer(tracerName),
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.rawFallback && !d.dev {
		d.contents = make(map[string][]byte)
		for _, f := range table.Files() {
			if f.AbsolutePath == "" {
				continue
			}
			if data, err := os.ReadFile(f.AbsolutePath); err == nil {
				d.contents[f.AbsolutePath] = data
			}
		}
	}
	return d
}

// Table returns the dispatcher's route table.
func (d *Dispatcher) Table() *Table {
	return d.table
}

// Cache returns the match cache, or nil.
func (d *Dispatcher) Cache() *MatchCache {
	return d.cache
}

// Resolve returns the first entry matching method and the raw path.
func (d *Dispatcher) Resolve(method, raw string) (*Match, bool) {
	return d.resolve(strings.ToUpper(method), NormalizePath(raw))
}

func (d *Dispatcher) resolve(method string, p Path) (*Match, bool) {
	if d.cache == nil {
		return d.lookup(method, p)
	}

	key := p.String()
	if index, params, found := d.cache.Get(method, key); found {
		d.metrics.cacheLookup(true, d.cache.Len())
		if index < 0 {
			return nil, false
		}
		return &Match{Entry: d.table.Entry(index), Index: index, Params: params}, true
	}

	m, ok := d.lookup(method, p)
	if ok {
		d.cache.Put(method, key, m.Index, m.Params)
	} else {
		d.cache.Put(method, key, -1, nil)
	}
	d.metrics.cacheLookup(false, d.cache.Len())
	return m, ok
}

func (d *Dispatcher) lookup(method string, p Path) (*Match, bool) {
	index, params := d.table.lookup(method, p.Segments)
	if index < 0 {
		return nil, false
	}
	return &Match{Entry: d.table.Entry(index), Index: index, Params: params}, true
}

// Dispatch resolves and answers one request: the health check, then the
// first matching entry, then the raw-file fallback, then 404.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	start := time.Now()
	method := strings.ToUpper(req.Method)

	ctx, span := d.tracer.Start(ctx, "ember.dispatch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", req.Path),
		),
	)
	defer span.End()

	res := d.dispatch(ctx, method, req)

	span.SetAttributes(
		attribute.String("ember.outcome", res.Outcome),
		attribute.Int("http.response.status_code", statusOf(res.Response)),
	)
	if p := res.Pattern(); p != "" {
		span.SetAttributes(attribute.String("http.route", p))
	}
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}

	if res.Outcome != OutcomeHealth {
		d.metrics.observe(method, res.Outcome, time.Since(start))
	}
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, method string, req Request) Result {
	p := NormalizePath(req.Path)

	if method == http.MethodGet && p.String() == HealthPath {
		return Result{Response: route.Text(http.StatusOK, "OK"), Outcome: OutcomeHealth}
	}

	if m, ok := d.resolve(method, p); ok {
		resp, err := invoke(ctx, m.Entry.Invoke, m.Params, req.Body)
		if err == nil && !validStatus(int64(resp.Status)) {
			err = fmt.Errorf("handler returned invalid status %d", resp.Status)
		}
		if err != nil {
			return Result{Response: ErrorResponse(err), Outcome: OutcomeError, Match: m, Err: err}
		}
		return Result{Response: resp, Outcome: OutcomeHandler, Match: m}
	}

	if d.rawFallback && method == http.MethodGet {
		if res, ok := d.serveRaw(p); ok {
			return res
		}
	}

	return Result{Response: route.Text(http.StatusNotFound, "Not Found"), Outcome: OutcomeNotFound}
}

// invoke runs a handler, turning panics into errors.
func invoke(ctx context.Context, h Handler, params route.Params, body []byte) (resp route.Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = route.Response{}
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return h(ctx, params, body)
}

// serveRaw answers with the text of the first project file matching p.
func (d *Dispatcher) serveRaw(p Path) (Result, bool) {
	file, params := d.table.Find(p.Segments)
	if file == nil || file.AbsolutePath == "" {
		return Result{}, false
	}

	contents, ok := d.contents[file.AbsolutePath]
	if !ok {
		data, err := os.ReadFile(file.AbsolutePath)
		if err != nil {
			return Result{
				Response: route.Text(http.StatusInternalServerError, "Failed to read file: "+err.Error()),
				Outcome:  OutcomeError,
				File:     file.RelativePath,
				Err:      err,
			}, true
		}
		contents = data
	}

	var body []byte
	if len(params) > 0 {
		var b strings.Builder
		b.WriteString("\nParams:\n")
		for _, kv := range params {
			b.WriteString(kv.Name + " = " + kv.Value + "\n")
		}
		body = append([]byte(b.String()), contents...)
	} else {
		body = append([]byte(nil), contents...)
	}

	return Result{
		Response: route.Response{Status: http.StatusOK, Body: body, ContentType: route.TextContentType},
		Outcome:  OutcomeFallback,
		File:     file.RelativePath,
	}, true
}

// ServeHTTP adapts net/http to Dispatch.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.Serve(w, r)
}

// Serve answers r and returns the dispatch result for logging.
func (d *Dispatcher) Serve(w http.ResponseWriter, r *http.Request) Result {
	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		reader := io.Reader(r.Body)
		if d.maxBody > 0 {
			reader = http.MaxBytesReader(w, r.Body, d.maxBody)
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			res := Result{Outcome: OutcomeError, Err: err}
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				res.Response = ErrorResponse(NewHTTPError(http.StatusRequestEntityTooLarge))
			} else {
				res.Response = ErrorResponse(NewHTTPError(http.StatusBadRequest, "failed to read request body"))
			}
			_ = res.Response.Write(w)
			return res
		}
		body = data
	}

	res := d.Dispatch(r.Context(), Request{Method: r.Method, Path: r.URL.EscapedPath(), Body: body})
	_ = res.Response.Write(w)
	return res
}

func statusOf(resp route.Response) int {
	if resp.Status == 0 {
		return http.StatusOK
	}
	return resp.Status
}
