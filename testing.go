package niforms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
)

// TestResult holds the outcome of a test render or submit.
//
// Provides convenience methods for asserting on HTML content, headers,
// status codes, the process result and redirects.
type TestResult struct {
	HTML        string
	StatusCode  int
	Headers     http.Header
	Result      *ProcessResult
	RedirectURL string
	Cookies     []*http.Cookie
	// Form is the cached form for renders.
	Form *Form
}

// TestRender renders one shortcode and loads the form it cached.
//
// Use this to check what preform handlers did to a form:
//
//	result, err := niforms.TestRender(ctx, reg, []niforms.Field{{Key: "form-processor", Value: "email"}}, body)
//	if !result.Form.HasHiddenField("_form-hash") {
//	    t.Fatal("hash field missing")
//	}
func TestRender(ctx context.Context, reg *Registry, attrs []Field, content string) (*TestResult, error) {
	html, rendered, err := reg.renderForm(ctx, attrs, content, DefaultTag, "")
	if err != nil {
		return nil, err
	}
	form, err := reg.Cache().Load(ctx, rendered.Hash())
	if err != nil {
		return nil, err
	}
	return &TestResult{
		HTML:       html,
		StatusCode: http.StatusOK,
		Headers:    http.Header{},
		Form:       form,
	}, nil
}

// TestSubmit caches form and processes a submission of values for it
// without HTTP.
//
//	form := niforms.NewForm(attrs, body, "ni-form", "")
//	form.SetHiddenField(niforms.FieldFormProcessor, "email")
//	result, err := niforms.TestSubmit(ctx, reg, form, map[string]string{"email": "a@b.c"})
func TestSubmit(ctx context.Context, reg *Registry, form *Form, values map[string]string) (*ProcessResult, error) {
	if _, err := reg.Cache().Save(ctx, form); err != nil {
		return nil, err
	}
	req := NewTestRequest(http.MethodPost, reg.ActionURL(ActionProcess)).
		WithFormValues(values).
		WithFormData(FieldFormHash, form.Hash()).
		WithContext(ctx).
		Build()
	return reg.Process(ctx, req)
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// Succeeded reports whether the submission passed.
func (r *TestResult) Succeeded() bool {
	return r.Result != nil && r.Result.Result
}

// WasRedirected checks if the response was a redirect.
func (r *TestResult) WasRedirected() bool {
	return r.RedirectURL != ""
}

// RedirectedTo checks if the response was redirected to a specific URL.
func (r *TestResult) RedirectedTo(url string) bool {
	return r.RedirectURL == url
}

// IsOK checks if the status code is 200.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// HasStatus checks if the status code matches.
func (r *TestResult) HasStatus(code int) bool {
	return r.StatusCode == code
}

// GetHeader returns the value of a header.
func (r *TestResult) GetHeader(key string) string {
	return r.Headers.Get(key)
}

// Cookie returns the cookie set by the response, or nil.
func (r *TestResult) Cookie(name string) *http.Cookie {
	for _, c := range r.Cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// TestRequestBuilder provides a fluent interface for building test requests.
//
//	result, err := niforms.NewTestRequest("POST", reg.ActionURL(niforms.ActionProcess)).
//	    WithFormData("_form-hash", hash).
//	    AJAX().
//	    Execute(reg.Handler())
type TestRequestBuilder struct {
	method   string
	url      string
	formData url.Values
	headers  map[string]string
	cookies  []*http.Cookie
	ctx      context.Context
}

// NewTestRequest creates a new test request builder.
func NewTestRequest(method, url string) *TestRequestBuilder {
	return &TestRequestBuilder{
		method:   method,
		url:      url,
		formData: make(map[string][]string),
		headers:  make(map[string]string),
		ctx:      context.Background(),
	}
}

// WithFormData adds a form value to the request.
func (b *TestRequestBuilder) WithFormData(key, value string) *TestRequestBuilder {
	b.formData.Add(key, value)
	return b
}

// WithFormValues adds multiple form values to the request.
func (b *TestRequestBuilder) WithFormValues(data map[string]string) *TestRequestBuilder {
	for k, v := range data {
		b.formData.Set(k, v)
	}
	return b
}

// WithHeader adds a header to the request.
func (b *TestRequestBuilder) WithHeader(key, value string) *TestRequestBuilder {
	b.headers[key] = value
	return b
}

// WithCookie adds a cookie to the request.
func (b *TestRequestBuilder) WithCookie(c *http.Cookie) *TestRequestBuilder {
	if c != nil {
		b.cookies = append(b.cookies, c)
	}
	return b
}

// AJAX marks the request as sent by the form script.
func (b *TestRequestBuilder) AJAX() *TestRequestBuilder {
	return b.WithFormData(FieldSubmitStyle, submitStyleAJAX)
}

// WithContext sets the context for the request.
func (b *TestRequestBuilder) WithContext(ctx context.Context) *TestRequestBuilder {
	b.ctx = ctx
	return b
}

// Build returns the request.
func (b *TestRequestBuilder) Build() *http.Request {
	req := httptest.NewRequest(b.method, b.url, strings.NewReader(b.formData.Encode()))
	req = req.WithContext(b.ctx)

	if len(b.formData) > 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	return req
}

// Execute sends the request to h and records the response. JSON bodies
// are decoded into Result.
func (b *TestRequestBuilder) Execute(h http.Handler) (*TestResult, error) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, b.Build())

	resp := rec.Result()
	defer resp.Body.Close()

	result := &TestResult{
		HTML:        rec.Body.String(),
		StatusCode:  rec.Code,
		Headers:     rec.Header(),
		RedirectURL: rec.Header().Get("Location"),
		Cookies:     resp.Cookies(),
	}

	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		var pr ProcessResult
		if err := json.Unmarshal(rec.Body.Bytes(), &pr); err == nil && rec.Code == http.StatusOK {
			result.Result = &pr
		}
	}
	return result, nil
}
