package scanner

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/abdul-hamid-achik/ember/pkg/route"
)

// SourceInfo is what the signature adapter extracts from one handler file.
type SourceInfo struct {
	// Package is the package clause name
	Package string
	// Handlers are the recognized verbs in canonical order
	Handlers []Handler
	// Warnings are per-verb issues; other verbs are unaffected
	Warnings []string
}

// InspectSource parses handler source text and classifies every verb function.
// It only fails when the text is not parseable Go.
func InspectSource(fset *token.FileSet, filename string, src []byte) (*SourceInfo, error) {
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}

	funcs := make(map[string]*ast.FuncDecl)
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil {
			continue
		}
		funcs[fn.Name.Name] = fn
	}

	info := &SourceInfo{Package: file.Name.Name}
	for _, verb := range route.Verbs {
		var chosen *ast.FuncDecl
		for _, name := range route.FuncNames(verb) {
			fn, ok := funcs[name]
			if !ok {
				continue
			}
			if chosen == nil {
				chosen = fn
				continue
			}
			info.Warnings = append(info.Warnings,
				fmt.Sprintf("%s shadowed by %s, ignoring it", name, chosen.Name.Name))
		}
		if chosen == nil {
			continue
		}

		sig, err := InspectSignature(chosen.Type)
		if err != nil {
			info.Warnings = append(info.Warnings,
				fmt.Sprintf("%s skipped: %v", chosen.Name.Name, err))
			continue
		}

		h := Handler{
			Name:      chosen.Name.Name,
			Method:    verb,
			Signature: sig,
			Line:      fset.Position(chosen.Pos()).Line,
		}
		if chosen.Doc != nil {
			h.Doc = strings.TrimSpace(chosen.Doc.Text())
		}
		info.Handlers = append(info.Handlers, h)
	}

	return info, nil
}

// InspectSignature classifies a function type into a route.Signature.
//
// Parameters: [ctx context.Context] [params route.Params|map[string]string [body []byte|string]]
// Results:    route.Response | (string, int) | string, each optionally followed by error.
func InspectSignature(ft *ast.FuncType) (route.Signature, error) {
	var sig route.Signature

	if ft.TypeParams != nil && len(ft.TypeParams.List) > 0 {
		return sig, fmt.Errorf("generic handlers are not supported")
	}

	params := flattenFields(ft.Params)
	if len(params) > 0 && isContextType(params[0]) {
		sig.Context = true
		params = params[1:]
	}
	switch len(params) {
	case 0:
	case 1, 2:
		if !isParamsType(params[0]) {
			return sig, fmt.Errorf("parameter %s is not route.Params or map[string]string", exprString(params[0]))
		}
		sig.Params = true
		if len(params) == 2 {
			if !isBodyType(params[1]) {
				return sig, fmt.Errorf("body parameter %s is not []byte or string", exprString(params[1]))
			}
			sig.Body = true
		}
	default:
		return sig, fmt.Errorf("too many parameters (%d)", len(params))
	}

	results := flattenFields(ft.Results)
	if n := len(results); n > 0 && isIdent(results[n-1], "error") {
		sig.Err = true
		results = results[:n-1]
	}
	switch {
	case len(results) == 1 && isResponseType(results[0]):
		sig.Shape = route.ShapeStructured
	case len(results) == 2 && isIdent(results[0], "string") && isIntegerType(results[1]):
		sig.Shape = route.ShapeTupleStatus
	case len(results) == 1 && isIdent(results[0], "string"):
		sig.Shape = route.ShapeBareString
	default:
		return sig, fmt.Errorf("unrecognized return shape (%s)", resultsString(ft.Results))
	}

	return sig, nil
}

// flattenFields expands "a, b string" into one entry per name.
func flattenFields(fl *ast.FieldList) []ast.Expr {
	if fl == nil {
		return nil
	}
	var out []ast.Expr
	for _, f := range fl.List {
		n := len(f.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out = append(out, f.Type)
		}
	}
	return out
}

func isIdent(e ast.Expr, name string) bool {
	id, ok := e.(*ast.Ident)
	return ok && id.Name == name
}

// isNamed matches pkg.Name or a bare Name (dot imports, same package).
func isNamed(e ast.Expr, name string) bool {
	switch x := e.(type) {
	case *ast.Ident:
		return x.Name == name
	case *ast.SelectorExpr:
		return x.Sel.Name == name
	}
	return false
}

func isContextType(e ast.Expr) bool {
	sel, ok := e.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	pkg, ok := sel.X.(*ast.Ident)
	return ok && pkg.Name == "context" && sel.Sel.Name == "Context"
}

func isParamsType(e ast.Expr) bool {
	if m, ok := e.(*ast.MapType); ok {
		return isIdent(m.Key, "string") && isIdent(m.Value, "string")
	}
	return isNamed(e, "Params")
}

func isBodyType(e ast.Expr) bool {
	if isIdent(e, "string") {
		return true
	}
	arr, ok := e.(*ast.ArrayType)
	return ok && arr.Len == nil && (isIdent(arr.Elt, "byte") || isIdent(arr.Elt, "uint8"))
}

func isResponseType(e ast.Expr) bool {
	return isNamed(e, "Response")
}

var integerTypes = map[string]bool{
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
}

func isIntegerType(e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	return ok && integerTypes[id.Name]
}

func exprString(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.Ident:
		return x.Name
	case *ast.SelectorExpr:
		return exprString(x.X) + "." + x.Sel.Name
	case *ast.StarExpr:
		return "*" + exprString(x.X)
	case *ast.ArrayType:
		if x.Len == nil {
			return "[]" + exprString(x.Elt)
		}
		return "[...]" + exprString(x.Elt)
	case *ast.MapType:
		return "map[" + exprString(x.Key) + "]" + exprString(x.Value)
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.FuncType:
		return "func"
	case *ast.Ellipsis:
		return "..." + exprString(x.Elt)
	case *ast.ChanType:
		return "chan " + exprString(x.Value)
	}
	return fmt.Sprintf("%T", e)
}

func resultsString(fl *ast.FieldList) string {
	results := flattenFields(fl)
	if len(results) == 0 {
		return "no results"
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = exprString(r)
	}
	return strings.Join(parts, ", ")
}
