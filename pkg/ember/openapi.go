package ember

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/ember/pkg/route"
)

// OpenAPIConfig configures OpenAPI document generation.
type OpenAPIConfig struct {
	// Title is the API title (default: "API").
	Title string

	// Version is the API version (default: "1.0.0").
	Version string

	// Description is the API description.
	Description string

	// Servers are server URLs.
	Servers []string

	// OpenAPIVersion is the document version (default: "3.0.3").
	OpenAPIVersion string
}

// BuildOpenAPI describes every table entry as an OpenAPI operation. When
// several entries share a method and pattern only the first one is
// described, as only the first one is ever dispatched.
func BuildOpenAPI(table *Table, config OpenAPIConfig) *openapi3.T {
	if config.Title == "" {
		config.Title = "API"
	}
	if config.Version == "" {
		config.Version = "1.0.0"
	}
	if config.OpenAPIVersion == "" {
		config.OpenAPIVersion = "3.0.3"
	}

	doc := &openapi3.T{
		OpenAPI: config.OpenAPIVersion,
		Info: &openapi3.Info{
			Title:       config.Title,
			Version:     config.Version,
			Description: config.Description,
		},
		Paths: openapi3.NewPaths(),
	}
	for _, url := range config.Servers {
		doc.Servers = append(doc.Servers, &openapi3.Server{URL: url})
	}

	if table == nil {
		return doc
	}

	for i := range table.entries {
		e := &table.entries[i]
		item := doc.Paths.Value(e.Pattern)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(e.Pattern, item)
		}
		if item.GetOperation(e.Method) != nil {
			continue
		}
		item.SetOperation(e.Method, buildOperation(e))
	}
	return doc
}

func buildOperation(e *RouteEntry) *openapi3.Operation {
	summary, description := splitDoc(e.Doc)
	op := &openapi3.Operation{
		OperationID: operationID(e),
		Summary:     summary,
		Description: description,
		Tags:        []string{deriveTag(e.Segments)},
		Responses:   openapi3.NewResponses(),
	}

	for _, name := range e.ParamNames() {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: &openapi3.Parameter{
			Name:     name,
			In:       openapi3.ParameterInPath,
			Required: true,
			Schema:   openapi3.NewStringSchema().NewRef(),
		}})
	}

	ok := &openapi3.Response{Description: openapi3.Ptr("Success")}
	if e.Signature.Shape != route.ShapeStructured {
		ok.Content = openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"text/plain"})
	}
	op.Responses.Set("200", &openapi3.ResponseRef{Value: ok})

	if len(e.ParamNames()) > 0 {
		op.Responses.Set("404", &openapi3.ResponseRef{Value: &openapi3.Response{
			Description: openapi3.Ptr("Not Found"),
		}})
	}
	if e.Signature.Err {
		op.Responses.Set("500", &openapi3.ResponseRef{Value: &openapi3.Response{
			Description: openapi3.Ptr("Internal Server Error"),
			Content: openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema().
				WithProperty("error", openapi3.NewStringSchema()).
				WithProperty("code", openapi3.NewIntegerSchema())),
		}})
	}

	if e.Signature.Body {
		op.RequestBody = &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
			Description: "Request body",
			Content: openapi3.NewContentWithSchema(
				openapi3.NewStringSchema().WithFormat("binary"),
				[]string{"application/octet-stream"},
			),
		}}
	}
	return op
}

// splitDoc uses the first doc line as summary and the rest as description.
func splitDoc(doc string) (summary, description string) {
	doc = strings.TrimSpace(doc)
	first, rest, _ := strings.Cut(doc, "\n")
	return strings.TrimSpace(first), strings.TrimSpace(rest)
}

// deriveTag tags operations by their first static segment.
func deriveTag(segs []route.Segment) string {
	for _, seg := range segs {
		if seg.IsDynamic() || seg.Name == "api" {
			continue
		}
		return seg.Name
	}
	return "default"
}

func operationID(e *RouteEntry) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(e.Method))
	for _, seg := range e.Segments {
		name := seg.Name
		if seg.IsDynamic() {
			b.WriteString("By")
		}
		for _, part := range strings.FieldsFunc(name, func(r rune) bool {
			return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
		}) {
			b.WriteString(strings.ToUpper(part[:1]) + part[1:])
		}
	}
	if len(e.Segments) == 0 {
		b.WriteString("Root")
	}
	return b.String()
}

// MarshalOpenAPI encodes doc as "json" or "yaml".
func MarshalOpenAPI(doc *openapi3.T, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return yaml.Marshal(doc)
	case "json", "":
		return json.MarshalIndent(doc, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported format: %s (use json or yaml)", format)
	}
}

// WriteOpenAPI writes doc to path in the given format.
func WriteOpenAPI(doc *openapi3.T, path, format string) error {
	data, err := MarshalOpenAPI(doc, format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// openAPIHandler serves the document as JSON.
func openAPIHandler(doc *openapi3.T) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_ = route.JSON(http.StatusOK, doc).Write(w)
	}
}
