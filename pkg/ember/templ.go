package ember

import (
	"bytes"
	"context"

	"github.com/a-h/templ"

	"github.com/abdul-hamid-achik/ember/pkg/route"
)

// HTMLContentType is used for rendered templ components.
const HTMLContentType = "text/html; charset=utf-8"

// Render renders a templ component into a Response, for ui handlers:
//
//	func GET(ctx context.Context, p route.Params) (route.Response, error) {
//		return ember.Render(ctx, http.StatusOK, views.User(p.Get("id")))
//	}
func Render(ctx context.Context, status int, c templ.Component) (route.Response, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return route.Response{}, err
	}
	return route.Response{Status: status, Body: buf.Bytes(), ContentType: HTMLContentType}, nil
}
