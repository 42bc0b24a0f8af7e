// Package niformsecho provides Echo framework integration for niforms.
//
// Mount the AJAX endpoint and scripts onto an Echo instance or group:
//
//	e := echo.New()
//	niformsecho.Mount(e, reg)
//	e.GET("/contact", niformsecho.Page(reg, contactBody, "contact"))
//
// Or mount on a group with middleware:
//
//	g := e.Group("/site", sessionMiddleware)
//	niformsecho.MountGroup(g, reg)
package niformsecho

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/pthm/niforms"
)

// router is the part of echo.Echo and echo.Group that Mount uses.
type router interface {
	Any(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) []*echo.Route
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// Mount registers the AJAX endpoint at reg.AjaxPath() and the scripts
// under reg.AssetsPath() on an Echo instance.
func Mount(e *echo.Echo, reg *niforms.Registry) {
	mount(e, reg)
}

// MountGroup does the same on a group, so the form endpoints share the
// group's middleware. The registry paths must include the group prefix.
func MountGroup(g *echo.Group, reg *niforms.Registry, prefix string) {
	mount(groupRouter{g: g, prefix: prefix}, reg)
}

func mount(r router, reg *niforms.Registry) {
	r.Any(reg.AjaxPath(), echo.WrapHandler(reg.Handler()))
	r.GET(reg.AssetsPath()+"*", echo.WrapHandler(reg.AssetsHandler()))
}

// groupRouter strips the group prefix so registry paths can stay absolute.
type groupRouter struct {
	g      *echo.Group
	prefix string
}

func (gr groupRouter) trim(path string) string {
	if len(path) >= len(gr.prefix) && path[:len(gr.prefix)] == gr.prefix {
		return path[len(gr.prefix):]
	}
	return path
}

func (gr groupRouter) Any(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) []*echo.Route {
	return gr.g.Any(gr.trim(path), h, m...)
}

func (gr groupRouter) GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return gr.g.GET(gr.trim(path), h, m...)
}

// Page returns a handler that expands the ni-form shortcodes in content and
// writes the result. A pending submit notice is shown once and cleared.
func Page(reg *niforms.Registry, content, postID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		html, err := RenderContent(c, reg, content, postID)
		if err != nil {
			return err
		}
		return c.HTML(http.StatusOK, html)
	}
}

// RenderContent expands the shortcodes in content for the current request.
func RenderContent(c echo.Context, reg *niforms.Registry, content, postID string) (string, error) {
	req := c.Request()
	html, err := reg.RenderContent(niforms.ContextWithRequest(req.Context(), req), content, postID)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusInternalServerError, "failed to render forms").SetInternal(err)
	}
	if _, err := req.Cookie(niforms.NoticeCookie); err == nil {
		niforms.ClearNotice(c.Response())
	}
	return html, nil
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return niformsecho.Render(c, form.Component())
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}
