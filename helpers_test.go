package niforms

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/templ"
)

func TestIsAJAX(t *testing.T) {
	tests := []struct {
		name   string
		header string
		expect bool
	}{
		{"with XMLHttpRequest", "XMLHttpRequest", true},
		{"without header", "", false},
		{"with other value", "fetch", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("X-Requested-With", tt.header)
			}

			result := IsAJAX(req)
			if result != tt.expect {
				t.Errorf("IsAJAX() = %v, want %v", result, tt.expect)
			}
		})
	}
}

func TestReferer(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if got := Referer(req, "/"); got != "/" {
		t.Errorf("Referer() = %q, want default", got)
	}
	req.Header.Set("Referer", "https://example.com/contact")
	if got := Referer(req, "/"); got != "https://example.com/contact" {
		t.Errorf("Referer() = %q", got)
	}
}

func TestContextWithRequest(t *testing.T) {
	if RequestFromContext(context.Background()) != nil {
		t.Error("RequestFromContext() on empty context should be nil")
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := ContextWithRequest(context.Background(), req)
	if RequestFromContext(ctx) != req {
		t.Error("RequestFromContext() did not return the request")
	}
}

func TestRenderComponent(t *testing.T) {
	comp := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<p>hi</p>")
		return err
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if err := Render(rec, req, comp); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if rec.Body.String() != "<p>hi</p>" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestAssetsHandler(t *testing.T) {
	reg := newTestRegistry(t)
	for _, name := range []string{AssetForm, AssetFormHoneypot} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			reg.AssetsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, reg.AssetURL(name), nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if rec.Body.Len() == 0 {
				t.Error("empty asset")
			}
		})
	}
}
