package ember

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/abdul-hamid-achik/ember/pkg/route"
)

// Registration and configuration errors.
var (
	ErrUnknownVerb          = errors.New("unknown verb")
	ErrUnsupportedSignature = errors.New("unsupported handler signature")
	ErrDuplicateHandler     = errors.New("duplicate handler")
	ErrInvalidConfig        = errors.New("invalid configuration")
)

// HTTPError is an error carrying an HTTP status. Handlers return it to
// answer with something other than 500.
type HTTPError struct {
	Code    int
	Message string
	Err     error
}

// NewHTTPError creates an HTTPError. The message defaults to the status text.
func NewHTTPError(code int, message ...string) *HTTPError {
	msg := http.StatusText(code)
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	return &HTTPError{Code: code, Message: msg}
}

// Error implements error.
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// WithError attaches an underlying cause.
func (e *HTTPError) WithError(err error) *HTTPError {
	e.Err = err
	return e
}

// IsHTTPError reports whether err wraps an HTTPError and returns it.
func IsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// errorBody is the JSON body of error responses.
type errorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// ErrorResponse converts a handler error into a Response. HTTPErrors keep
// their status and message, anything else becomes an opaque 500.
func ErrorResponse(err error) route.Response {
	if httpErr, ok := IsHTTPError(err); ok {
		return route.JSON(httpErr.Code, errorBody{Error: httpErr.Message, Code: httpErr.Code})
	}
	return route.JSON(http.StatusInternalServerError, errorBody{
		Error: "internal server error",
		Code:  http.StatusInternalServerError,
	})
}
