package niforms

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/a-h/templ"
)

// Render writes a templ component to the HTTP response.
//
// Sets Content-Type to text/html and renders the component using the
// request's context.
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    niforms.Render(w, r, form.Component())
//	}
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// IsAJAX returns true if the request was sent by the form script.
//
// form.js sets X-Requested-With on every submit; the _submit-style field
// is checked separately by Process.
func IsAJAX(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

// Referer returns the page the submit came from, or def.
func Referer(r *http.Request, def string) string {
	if ref := r.Header.Get("Referer"); ref != "" {
		return ref
	}
	return def
}

type requestKey struct{}

// ContextWithRequest attaches r to ctx so Shortcode can read a pending
// submit notice while rendering.
//
//	html, err := reg.RenderContent(niforms.ContextWithRequest(r.Context(), r), body, "42")
func ContextWithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, requestKey{}, r)
}

// RequestFromContext returns the request attached by ContextWithRequest.
func RequestFromContext(ctx context.Context) *http.Request {
	r, _ := ctx.Value(requestKey{}).(*http.Request)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
