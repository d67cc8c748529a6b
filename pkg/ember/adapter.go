package ember

import (
	"context"
	"fmt"
	"net/http"
	"reflect"

	"github.com/abdul-hamid-achik/ember/pkg/route"
)

// Handler is the uniform calling convention every handler is adapted to.
type Handler func(ctx context.Context, params route.Params, body []byte) (route.Response, error)

var (
	contextType  = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	paramsType   = reflect.TypeOf(route.Params(nil))
	responseType = reflect.TypeOf(route.Response{})
)

// Adapt wraps a verb function into a Handler. It accepts the same calling
// conventions the scanner recognizes in source:
//
//	func([ctx context.Context,] [params route.Params|map[string]string, [body []byte|string]]) R
//
// where R is route.Response, (string, int) or string, each optionally
// followed by error.
func Adapt(fn any) (Handler, route.Signature, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, route.Signature{}, fmt.Errorf("%w: %T is not a function", ErrUnsupportedSignature, fn)
	}
	if v.IsNil() {
		return nil, route.Signature{}, fmt.Errorf("%w: nil %T", ErrUnsupportedSignature, fn)
	}
	if h, sig, ok := adaptDirect(fn); ok {
		return h, sig, nil
	}
	t := v.Type()

	sig, err := inspectFuncType(t)
	if err != nil {
		return nil, sig, fmt.Errorf("%w: %v", ErrUnsupportedSignature, err)
	}

	in := make([]reflect.Type, t.NumIn())
	for i := range in {
		in[i] = t.In(i)
	}

	h := func(ctx context.Context, params route.Params, body []byte) (route.Response, error) {
		args := make([]reflect.Value, 0, len(in))
		i := 0
		if sig.Context {
			args = append(args, reflect.ValueOf(&ctx).Elem())
			i++
		}
		if sig.Params {
			args = append(args, paramsValue(in[i], params))
			i++
		}
		if sig.Body {
			args = append(args, bodyValue(in[i], body))
		}
		return convertResults(sig, v.Call(args))
	}
	return h, sig, nil
}

// adaptDirect handles the most common signatures without reflection.
func adaptDirect(fn any) (Handler, route.Signature, bool) {
	switch f := fn.(type) {
	case func() string:
		return func(context.Context, route.Params, []byte) (route.Response, error) {
			return route.Text(http.StatusOK, f()), nil
		}, route.Signature{Shape: route.ShapeBareString}, true
	case func(route.Params) string:
		return func(_ context.Context, p route.Params, _ []byte) (route.Response, error) {
			return route.Text(http.StatusOK, f(p)), nil
		}, route.Signature{Shape: route.ShapeBareString, Params: true}, true
	case func(route.Params) (string, int):
		return func(_ context.Context, p route.Params, _ []byte) (route.Response, error) {
			body, status := f(p)
			return tupleResponse(body, int64(status))
		}, route.Signature{Shape: route.ShapeTupleStatus, Params: true}, true
	case func(route.Params) route.Response:
		return func(_ context.Context, p route.Params, _ []byte) (route.Response, error) {
			return f(p), nil
		}, route.Signature{Shape: route.ShapeStructured, Params: true}, true
	case Handler:
		return f, route.Signature{Shape: route.ShapeStructured, Context: true, Params: true, Body: true, Err: true}, true
	case func(context.Context, route.Params, []byte) (route.Response, error):
		return f, route.Signature{Shape: route.ShapeStructured, Context: true, Params: true, Body: true, Err: true}, true
	}
	return nil, route.Signature{}, false
}

// inspectFuncType classifies a function type the way scanner.InspectSignature
// classifies its syntax.
func inspectFuncType(t reflect.Type) (route.Signature, error) {
	var sig route.Signature

	if t.IsVariadic() {
		return sig, fmt.Errorf("variadic handlers are not supported")
	}

	i, n := 0, t.NumIn()
	if n > 0 && t.In(0) == contextType {
		sig.Context = true
		i++
	}
	switch n - i {
	case 0:
	case 1, 2:
		if !isParamsKind(t.In(i)) {
			return sig, fmt.Errorf("parameter %s is not route.Params or map[string]string", t.In(i))
		}
		sig.Params = true
		if n-i == 2 {
			if !isBodyKind(t.In(i + 1)) {
				return sig, fmt.Errorf("body parameter %s is not []byte or string", t.In(i+1))
			}
			sig.Body = true
		}
	default:
		return sig, fmt.Errorf("too many parameters (%d)", n-i)
	}

	out := make([]reflect.Type, t.NumOut())
	for j := range out {
		out[j] = t.Out(j)
	}
	if k := len(out); k > 0 && out[k-1] == errorType {
		sig.Err = true
		out = out[:k-1]
	}
	switch {
	case len(out) == 1 && out[0] == responseType:
		sig.Shape = route.ShapeStructured
	case len(out) == 2 && out[0].Kind() == reflect.String && isIntegerKind(out[1].Kind()):
		sig.Shape = route.ShapeTupleStatus
	case len(out) == 1 && out[0].Kind() == reflect.String:
		sig.Shape = route.ShapeBareString
	default:
		return sig, fmt.Errorf("unrecognized return shape (%s)", resultTypes(out, sig.Err))
	}
	return sig, nil
}

func isParamsKind(t reflect.Type) bool {
	if t == paramsType {
		return true
	}
	return t.Kind() == reflect.Map && t.Key().Kind() == reflect.String && t.Elem().Kind() == reflect.String
}

func isBodyKind(t reflect.Type) bool {
	if t.Kind() == reflect.String {
		return true
	}
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func paramsValue(t reflect.Type, params route.Params) reflect.Value {
	if t == paramsType {
		return reflect.ValueOf(params)
	}
	return reflect.ValueOf(params.Map()).Convert(t)
}

func bodyValue(t reflect.Type, body []byte) reflect.Value {
	if t.Kind() == reflect.String {
		return reflect.ValueOf(string(body)).Convert(t)
	}
	return reflect.ValueOf(body).Convert(t)
}

func convertResults(sig route.Signature, out []reflect.Value) (route.Response, error) {
	if sig.Err {
		if errVal := out[len(out)-1]; !errVal.IsNil() {
			return route.Response{}, errVal.Interface().(error)
		}
	}

	switch sig.Shape {
	case route.ShapeStructured:
		return out[0].Interface().(route.Response), nil
	case route.ShapeTupleStatus:
		status := out[1]
		if status.CanInt() {
			return tupleResponse(out[0].String(), status.Int())
		}
		if u := status.Uint(); u <= 999 {
			return tupleResponse(out[0].String(), int64(u))
		}
		return route.Response{}, fmt.Errorf("handler returned invalid status %d", status.Uint())
	default:
		return route.Text(http.StatusOK, out[0].String()), nil
	}
}

// tupleResponse wraps a (body, status) pair. Statuses net/http cannot
// write are handler errors rather than silently rewritten codes.
func tupleResponse(body string, status int64) (route.Response, error) {
	if !validStatus(status) {
		return route.Response{}, fmt.Errorf("handler returned invalid status %d", status)
	}
	return route.Text(int(status), body), nil
}

// validStatus reports whether net/http can write status.
func validStatus(status int64) bool {
	return status >= 100 && status <= 999
}

func resultTypes(out []reflect.Type, withErr bool) string {
	if len(out) == 0 && !withErr {
		return "no results"
	}
	s := ""
	for i, t := range out {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	if withErr {
		if s != "" {
			s += ", "
		}
		s += "error"
	}
	return s
}
