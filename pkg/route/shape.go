package route

import "fmt"

// Shape is the closed set of handler return conventions.
type Shape int

const (
	// ShapeStructured handlers return a Response.
	ShapeStructured Shape = iota + 1
	// ShapeTupleStatus handlers return (string, status).
	ShapeTupleStatus
	// ShapeBareString handlers return a string answered with 200.
	ShapeBareString
)

var shapeNames = map[Shape]string{
	ShapeStructured:  "response",
	ShapeTupleStatus: "tuple",
	ShapeBareString:  "string",
}

// String returns the short shape name used in CLI and JSON output.
func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// Valid reports whether s is one of the known shapes.
func (s Shape) Valid() bool {
	_, ok := shapeNames[s]
	return ok
}

// Signature describes how an adapted handler is called.
type Signature struct {
	// Shape is the return convention
	Shape Shape
	// Context is set when the handler takes a context.Context first
	Context bool
	// Params is set when the handler accepts path parameters
	Params bool
	// Body is set when the handler accepts the request body
	Body bool
	// Err is set when the handler also returns an error
	Err bool
}

// String renders a compact description, e.g. "ctx,params,body -> tuple".
func (s Signature) String() string {
	in := ""
	add := func(part string) {
		if in != "" {
			in += ","
		}
		in += part
	}
	if s.Context {
		add("ctx")
	}
	if s.Params {
		add("params")
	}
	if s.Body {
		add("body")
	}
	out := s.Shape.String()
	if s.Err {
		out += "+error"
	}
	return in + " -> " + out
}
