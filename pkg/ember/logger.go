package ember

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// LogLevel controls which requests are logged.
type LogLevel int

const (
	// LogLevelDebug logs everything
	LogLevelDebug LogLevel = iota
	// LogLevelInfo logs every request
	LogLevelInfo
	// LogLevelWarn logs 4xx and 5xx responses
	LogLevelWarn
	// LogLevelError logs 5xx responses
	LogLevelError
	// LogLevelOff disables request logging
	LogLevelOff
)

// String returns the level name.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "debug"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	case LogLevelOff:
		return "off"
	default:
		return "info"
	}
}

// ParseLogLevel parses a level name. Unknown names mean info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	case "off", "none", "disabled":
		return LogLevelOff
	default:
		return LogLevelInfo
	}
}

// RequestLoggerConfig configures the request logger.
type RequestLoggerConfig struct {
	// Compact prints one short line per request
	Compact bool
	// ShowTimestamp prefixes lines with the time
	ShowTimestamp bool
	// TimestampFormat is the time layout (default "15:04:05")
	TimestampFormat string
	// ShowIP prints the client IP
	ShowIP bool
	// ShowUserAgent prints the user agent
	ShowUserAgent bool
	// ShowSize prints the response size
	ShowSize bool
	// ShowErrors prints handler errors
	ShowErrors bool
	// ShowMatch prints the matched route pattern or fallback outcome
	ShowMatch bool
	// TimeUnit is "ms", "us" or "auto"
	TimeUnit string
	// Level filters by response status
	Level LogLevel
	// SkipPaths are path prefixes that are never logged
	SkipPaths []string
	// SkipStatic skips static assets
	SkipStatic bool
	// StaticPaths are path prefixes treated as static assets
	StaticPaths []string
	// DisableColors turns off ANSI colors
	DisableColors bool
}

// DefaultRequestLoggerConfig returns the default configuration. The level
// comes from EMBER_LOG_LEVEL, else debug when EMBER_DEV is set, else warn
// when GO_ENV is production, else info.
func DefaultRequestLoggerConfig() RequestLoggerConfig {
	level := LogLevelInfo
	switch {
	case os.Getenv("EMBER_LOG_LEVEL") != "":
		level = ParseLogLevel(os.Getenv("EMBER_LOG_LEVEL"))
	case isTruthy(os.Getenv("EMBER_DEV")):
		level = LogLevelDebug
	case os.Getenv("GO_ENV") == "production":
		level = LogLevelWarn
	}

	return RequestLoggerConfig{
		Compact:         true,
		ShowTimestamp:   true,
		TimestampFormat: "15:04:05",
		ShowErrors:      true,
		ShowMatch:       true,
		TimeUnit:        "ms",
		Level:           level,
		SkipPaths:       []string{HealthPath},
		StaticPaths:     []string{"/static", "/assets", "/public"},
	}
}

func isTruthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// RequestLogger writes one line per request through the standard logger.
type RequestLogger struct {
	config RequestLoggerConfig
}

// NewRequestLogger creates a request logger. Colors are disabled when
// stdout is not a terminal.
func NewRequestLogger(config RequestLoggerConfig) *RequestLogger {
	if config.TimestampFormat == "" {
		config.TimestampFormat = "15:04:05"
	}
	if config.TimeUnit == "" {
		config.TimeUnit = "ms"
	}
	if !config.DisableColors && !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		config.DisableColors = true
	}
	return &RequestLogger{config: config}
}

var staticExtensions = map[string]bool{
	".css": true, ".js": true, ".map": true, ".png": true, ".jpg": true,
	".jpeg": true, ".gif": true, ".svg": true, ".ico": true, ".webp": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
}

// ShouldLog reports whether a request to path answered with status is
// logged at the configured level.
func (l *RequestLogger) ShouldLog(p string, status int) bool {
	switch l.config.Level {
	case LogLevelOff:
		return false
	case LogLevelWarn:
		if status < 400 {
			return false
		}
	case LogLevelError:
		if status < 500 {
			return false
		}
	}

	for _, skip := range l.config.SkipPaths {
		if p == skip || strings.HasPrefix(p, strings.TrimSuffix(skip, "/")+"/") {
			return false
		}
	}

	if l.config.SkipStatic {
		for _, prefix := range l.config.StaticPaths {
			if strings.HasPrefix(p, prefix) {
				return false
			}
		}
		if staticExtensions[strings.ToLower(path.Ext(p))] {
			return false
		}
	}
	return true
}

// Log writes the line for one request. res may be nil for requests that
// never reached the dispatcher.
func (l *RequestLogger) Log(r *http.Request, status int, size int64, latency time.Duration, res *Result, err error) {
	if !l.ShouldLog(r.URL.Path, status) {
		return
	}

	var b strings.Builder
	if l.config.ShowTimestamp {
		b.WriteString(l.dim("[" + time.Now().Format(l.config.TimestampFormat) + "] "))
	}

	b.WriteString(l.methodColor(r.Method)(fmt.Sprintf("%-7s", r.Method)))
	b.WriteString(" ")
	b.WriteString(r.URL.Path)

	if l.config.ShowMatch && res != nil {
		switch {
		case res.Pattern() != "":
			b.WriteString(l.dim(" → " + res.Pattern()))
		case res.Outcome == OutcomeFallback:
			b.WriteString(l.yellow(" → raw " + res.File))
		}
	}

	b.WriteString(" ")
	b.WriteString(l.statusColor(status)(fmt.Sprintf("%d", status)))
	b.WriteString(" ")
	b.WriteString(l.formatLatency(latency))

	if l.config.ShowSize {
		b.WriteString(" ")
		b.WriteString(l.dim(l.formatSize(size)))
	}
	if l.config.ShowIP {
		b.WriteString(" ")
		b.WriteString(l.dim(getClientIP(r)))
	}
	if l.config.ShowUserAgent {
		if ua := r.UserAgent(); ua != "" {
			b.WriteString(" ")
			b.WriteString(l.dim(fmt.Sprintf("%q", ua)))
		}
	}
	if l.config.ShowErrors && err != nil {
		b.WriteString(" ")
		b.WriteString(l.red("error: " + err.Error()))
	}

	log.Println(b.String())
}

func (l *RequestLogger) formatLatency(d time.Duration) string {
	switch l.config.TimeUnit {
	case "us":
		return fmt.Sprintf("%dµs", d.Microseconds())
	case "auto":
		switch {
		case d < time.Millisecond:
			return fmt.Sprintf("%dµs", d.Microseconds())
		case d < time.Second:
			return fmt.Sprintf("%dms", d.Milliseconds())
		default:
			return fmt.Sprintf("%.2fs", d.Seconds())
		}
	default:
		if d < time.Millisecond {
			return "<1ms"
		}
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

func (l *RequestLogger) formatSize(size int64) string {
	switch {
	case size < 1024:
		return fmt.Sprintf("%dB", size)
	case size < 1024*1024:
		return fmt.Sprintf("%.1fKB", float64(size)/1024)
	default:
		return fmt.Sprintf("%.1fMB", float64(size)/(1024*1024))
	}
}

// getClientIP prefers X-Forwarded-For, then X-Real-IP, then RemoteAddr.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type colorFunc func(a ...interface{}) string

func (l *RequestLogger) paint(attrs ...color.Attribute) colorFunc {
	if l.config.DisableColors {
		return fmt.Sprint
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.SprintFunc()
}

func (l *RequestLogger) dim(s string) string    { return l.paint(color.Faint)(s) }
func (l *RequestLogger) red(s string) string    { return l.paint(color.FgRed)(s) }
func (l *RequestLogger) yellow(s string) string { return l.paint(color.FgYellow)(s) }

func (l *RequestLogger) methodColor(method string) colorFunc {
	switch method {
	case http.MethodGet:
		return l.paint(color.FgCyan)
	case http.MethodPost:
		return l.paint(color.FgGreen)
	case http.MethodPut, http.MethodPatch:
		return l.paint(color.FgYellow)
	case http.MethodDelete:
		return l.paint(color.FgRed)
	default:
		return l.paint(color.FgMagenta)
	}
}

func (l *RequestLogger) statusColor(status int) colorFunc {
	switch {
	case status >= 500:
		return l.paint(color.FgRed, color.Bold)
	case status >= 400:
		return l.paint(color.FgYellow)
	case status >= 300:
		return l.paint(color.FgCyan)
	default:
		return l.paint(color.FgGreen)
	}
}
