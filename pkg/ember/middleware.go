package ember

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// MiddlewareFunc wraps an http.Handler.
type MiddlewareFunc func(http.Handler) http.Handler

// ---------- Recover Middleware ----------

// Recover returns a middleware that recovers from panics outside handlers,
// e.g. in other middleware.
func Recover() MiddlewareFunc {
	return RecoverWithConfig(RecoverConfig{LogStackTrace: true})
}

// RecoverConfig holds configuration for the recover middleware.
type RecoverConfig struct {
	// LogStackTrace logs the stack trace.
	LogStackTrace bool

	// ErrorHandler writes the response for a recovered panic.
	ErrorHandler func(w http.ResponseWriter, r *http.Request, err any)
}

// RecoverWithConfig returns a recover middleware with custom configuration.
func RecoverWithConfig(config RecoverConfig) MiddlewareFunc {
	if config.ErrorHandler == nil {
		config.ErrorHandler = defaultPanicHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					if config.LogStackTrace {
						log.Printf("[PANIC] %v\n%s", rec, debug.Stack())
					}
					config.ErrorHandler(w, r, rec)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func defaultPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	if rw, ok := w.(*responseWriter); ok && rw.Written() {
		return
	}
	_ = ErrorResponse(NewHTTPError(http.StatusInternalServerError, "internal server error")).Write(w)
}

// ---------- RequestID Middleware ----------

// RequestIDHeader is the default request ID header.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns a middleware that adds a unique request ID to each request.
func RequestID() MiddlewareFunc {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDConfig holds configuration for the request ID middleware.
type RequestIDConfig struct {
	// Header is the header name to use. Default is "X-Request-ID".
	Header string

	// Generator is a custom ID generator.
	Generator func() string
}

// RequestIDWithConfig returns a request ID middleware with custom configuration.
func RequestIDWithConfig(config RequestIDConfig) MiddlewareFunc {
	if config.Header == "" {
		config.Header = RequestIDHeader
	}
	if config.Generator == nil {
		config.Generator = generateRequestID
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(config.Header)
			if id == "" {
				id = config.Generator()
			}
			w.Header().Set(config.Header, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

// RequestIDFromContext returns the request ID stored by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

var requestIDCounter atomic.Uint64

func generateRequestID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), requestIDCounter.Add(1))
}

// ---------- Timeout Middleware ----------

// Timeout bounds the request context. Handlers that take a context observe
// the deadline; others run to completion.
func Timeout(d time.Duration) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ---------- response capture ----------

// responseWriter records the status and size written, for logging.
type responseWriter struct {
	http.ResponseWriter
	status  int
	size    int64
	written bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(status int) {
	if rw.written {
		return
	}
	rw.status = status
	rw.written = true
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Status returns the written status.
func (rw *responseWriter) Status() int { return rw.status }

// Size returns the number of body bytes written.
func (rw *responseWriter) Size() int64 { return rw.size }

// Written reports whether the header was written.
func (rw *responseWriter) Written() bool { return rw.written }
