package route

import (
	"encoding/json"
	"net/http"
)

// TextContentType is used for string and tuple handler results.
const TextContentType = "text/plain; charset=utf-8"

// JSONContentType is used by JSON and error responses.
const JSONContentType = "application/json"

// Header is one response header, kept in insertion order.
type Header struct {
	Name  string
	Value string
}

// Response is the uniform result every adapted handler yields.
type Response struct {
	Status      int
	Body        []byte
	ContentType string
	Headers     []Header
}

// Text builds a plain text response.
func Text(status int, body string) Response {
	return Response{Status: status, Body: []byte(body), ContentType: TextContentType}
}

// JSON builds a JSON response. Encoding failures produce a 500.
func JSON(status int, v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		return Text(http.StatusInternalServerError, "failed to encode response")
	}
	return Response{Status: status, Body: data, ContentType: JSONContentType}
}

// WithHeader returns a copy of r with an extra header appended.
func (r Response) WithHeader(name, value string) Response {
	headers := make([]Header, len(r.Headers), len(r.Headers)+1)
	copy(headers, r.Headers)
	r.Headers = append(headers, Header{Name: name, Value: value})
	return r
}

// Write copies the response onto w.
func (r Response) Write(w http.ResponseWriter) error {
	for _, h := range r.Headers {
		w.Header().Add(h.Name, h.Value)
	}
	if r.ContentType != "" {
		w.Header().Set("Content-Type", r.ContentType)
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err := w.Write(r.Body)
	return err
}
