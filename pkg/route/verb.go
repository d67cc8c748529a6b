package route

import (
	"net/http"
	"strings"
)

// Verbs lists the supported HTTP methods in canonical per-file order.
var Verbs = [...]string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodPatch,
	http.MethodOptions,
	http.MethodHead,
}

// IsVerb reports whether method is one of the supported verbs.
// The comparison is exact: methods are upper case on the wire.
func IsVerb(method string) bool {
	return VerbIndex(method) >= 0
}

// VerbIndex returns the canonical position of method, or -1.
func VerbIndex(method string) int {
	for i, v := range Verbs {
		if v == method {
			return i
		}
	}
	return -1
}

// FuncNames returns the function names recognized for a verb, most preferred
// first: GET, Get, get.
func FuncNames(verb string) [3]string {
	lower := strings.ToLower(verb)
	title := lower
	if lower != "" {
		title = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return [3]string{strings.ToUpper(verb), title, lower}
}
