// Package ember is the runtime of file-routed ember projects: it adapts
// registered handlers, builds the ordered route table and dispatches
// requests against it.
package ember

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsPath serves Prometheus metrics when metrics are enabled.
const MetricsPath = "/metrics"

// OpenAPIPath serves the generated OpenAPI document in dev mode.
const OpenAPIPath = "/_ember/openapi.json"

// App is an ember application: a chi router in front of a Dispatcher.
type App struct {
	// router is the underlying chi router
	router chi.Router

	// config holds the application configuration
	config *Config

	// dir is the project directory config paths are relative to
	dir string

	// registry holds the registered handlers, nil for source-only tables
	registry *Registry

	// middlewares run before the dispatcher
	middlewares []MiddlewareFunc

	// table and dispatcher are built by Build
	table      *Table
	dispatcher *Dispatcher
	warnings   []Warning
	mounted    bool

	// promRegistry collects dispatch metrics, nil disables /metrics
	promRegistry *prometheus.Registry

	// server is the HTTP server (set during Listen)
	server *http.Server

	// logger is the request logger
	logger        *RequestLogger
	loggerEnabled bool
}

// Option configures an App.
type Option func(*App)

// WithConfig sets the configuration instead of loading it.
func WithConfig(cfg *Config) Option {
	return func(a *App) { a.config = cfg }
}

// WithDir sets the project directory (default ".").
func WithDir(dir string) Option {
	return func(a *App) { a.dir = dir }
}

// WithRegistry sets the handlers to dispatch to, usually from the generated
// package's NewRegistry.
func WithRegistry(reg *Registry) Option {
	return func(a *App) { a.registry = reg }
}

// WithPrometheusRegistry collects metrics in reg and serves them on /metrics.
func WithPrometheusRegistry(reg *prometheus.Registry) Option {
	return func(a *App) { a.promRegistry = reg }
}

// WithoutMetrics disables metrics and the /metrics endpoint.
func WithoutMetrics() Option {
	return func(a *App) { a.promRegistry = nil }
}

// New creates an App. Without WithConfig the configuration is loaded from
// the project directory; a broken config file is reported and the app
// serves no routes.
func New(opts ...Option) *App {
	app := &App{
		router:        chi.NewRouter(),
		dir:           ".",
		promRegistry:  prometheus.NewRegistry(),
		logger:        NewRequestLogger(DefaultRequestLoggerConfig()),
		loggerEnabled: true,
	}
	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		cfg, err := LoadConfig(app.dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  Warning: %v\n", err)
		}
		app.config = cfg
	}
	if os.Getenv("EMBER_LOG_LEVEL") == "" {
		app.logger.config.Level = ParseLogLevel(app.config.LogLevel)
	}
	return app
}

// SetLogger configures the request logger.
func (a *App) SetLogger(config RequestLoggerConfig) {
	a.logger = NewRequestLogger(config)
	a.loggerEnabled = true
}

// DisableLogger disables request logging.
func (a *App) DisableLogger() {
	a.loggerEnabled = false
}

// Use adds middleware in front of the dispatcher, in order.
func (a *App) Use(mw MiddlewareFunc) {
	a.middlewares = append(a.middlewares, mw)
}

// Router returns the underlying chi router.
func (a *App) Router() chi.Router {
	return a.router
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Table returns the route table, nil before Build.
func (a *App) Table() *Table {
	return a.table
}

// Dispatcher returns the dispatcher, nil before Build.
func (a *App) Dispatcher() *Dispatcher {
	return a.dispatcher
}

// Warnings returns the scan and build warnings of the last Build.
func (a *App) Warnings() []Warning {
	return a.warnings
}

// Build scans the route root and builds the table and dispatcher. Without
// handler sources on disk the table is built from the registry alone.
func (a *App) Build() error {
	table, _, warnings, err := buildTable(a.config.RouteRoot(a.dir), a.registry)
	if err != nil {
		return err
	}

	opts := dispatcherOptions(a.config)
	if a.promRegistry != nil {
		opts = append(opts, WithMetrics(NewMetrics(a.promRegistry)))
	}

	a.table = table
	a.warnings = append(warnings, a.shadowedRoutes(table)...)
	a.dispatcher = NewDispatcher(table, opts...)
	return nil
}

// builtin is an endpoint answered before the route table. An empty
// method matches every method.
type builtin struct {
	path   string
	method string
}

// shadowedRoutes warns about project files that a built-in endpoint makes
// unreachable.
func (a *App) shadowedRoutes(table *Table) []Warning {
	builtins := []builtin{{HealthPath, http.MethodGet}}
	if a.promRegistry != nil {
		builtins = append(builtins, builtin{MetricsPath, ""})
	}
	if a.config.Dev {
		builtins = append(builtins, builtin{OpenAPIPath, http.MethodGet})
	}

	var warnings []Warning
	for _, b := range builtins {
		segs := NormalizePath(b.path).Segments
		for _, f := range table.Files() {
			if len(f.Segments) != len(segs) {
				continue
			}
			if _, ok := matchSegments(f.Segments, segs, countDynamic(f.Segments)); !ok {
				continue
			}
			method := b.method
			if method == "" {
				method = "every method"
			} else if _, ok := handlerFor(f, method); !ok && !(method == http.MethodGet && a.config.RawFallback) {
				continue
			}
			warnings = append(warnings, Warning{
				FilePath: f.RelativePath,
				Message:  fmt.Sprintf("%s %s is answered by the built-in endpoint, this route is unreachable", method, b.path),
			})
		}
	}
	return warnings
}

// Mount registers the endpoints on the router. It builds the table first
// when Build has not run. Only the first call has an effect.
func (a *App) Mount() error {
	if a.mounted {
		return nil
	}
	if a.dispatcher == nil {
		if err := a.Build(); err != nil {
			return err
		}
	}

	for _, mw := range a.middlewares {
		a.router.Use(mw)
	}

	if a.promRegistry != nil {
		a.promRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.router.Handle(MetricsPath, promhttp.HandlerFor(a.promRegistry, promhttp.HandlerOpts{}))
	}
	if a.config.Dev {
		a.router.Get(OpenAPIPath, openAPIHandler(BuildOpenAPI(a.table, OpenAPIConfig{
			Title: filepath.Base(a.absDir()),
		})))
	}

	a.router.Handle("/*", http.HandlerFunc(a.dispatch))
	a.mounted = true
	return nil
}

func (a *App) absDir() string {
	if abs, err := filepath.Abs(a.dir); err == nil {
		return abs
	}
	return a.dir
}

type resultKey struct{}

func (a *App) dispatch(w http.ResponseWriter, r *http.Request) {
	res := a.dispatcher.Serve(w, r)
	if slot, ok := r.Context().Value(resultKey{}).(*Result); ok {
		*slot = res
	}
}

// ServeHTTP implements http.Handler.
// Request flow: logger → middleware → dispatcher.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rw := newResponseWriter(w)

	var res Result
	r = r.WithContext(context.WithValue(r.Context(), resultKey{}, &res))
	a.router.ServeHTTP(rw, r)

	if a.loggerEnabled && a.logger != nil {
		var logged *Result
		if res.Outcome != "" {
			logged = &res
		}
		a.logger.Log(r, rw.Status(), rw.Size(), time.Since(start), logged, res.Err)
	}
}

// Listen starts the HTTP server and blocks until SIGINT or SIGTERM, then
// shuts down gracefully.
func (a *App) Listen(addr ...string) error {
	address := a.config.ListenAddress()
	if len(addr) > 0 {
		address = addr[0]
	}

	if err := a.Mount(); err != nil {
		return err
	}
	for _, w := range a.warnings {
		fmt.Fprintf(os.Stderr, "  Warning: %s\n", w)
	}

	a.server = &http.Server{
		Addr:              address,
		Handler:           a,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	serverErr := make(chan error, 1)
	go func() {
		fmt.Printf("\n  ember running at http://%s (%d routes)\n\n", address, a.table.Len())
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
		fmt.Println("\n  Shutting down gracefully...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown gracefully: %w", err)
	}

	fmt.Println("  Server stopped")
	return nil
}

// Shutdown gracefully shuts down the server.
func (a *App) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Addr returns the listen address, "" before Listen.
func (a *App) Addr() string {
	if a.server == nil {
		return ""
	}
	return a.server.Addr
}
