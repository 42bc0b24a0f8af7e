package niforms

import (
	"context"
	"net/http"
	"testing"
)

func TestTestRequestBuilder(t *testing.T) {
	req := NewTestRequest(http.MethodPost, "/submit").
		WithFormData("a", "1").
		WithFormData("a", "2").
		WithFormValues(map[string]string{"b": "3"}).
		WithHeader("X-Test", "yes").
		WithCookie(&http.Cookie{Name: "c", Value: "v"}).
		Build()

	if err := req.ParseForm(); err != nil {
		t.Fatalf("ParseForm() error = %v", err)
	}
	if got := req.PostForm["a"]; len(got) != 2 {
		t.Errorf("a = %v, want two values", got)
	}
	if req.PostForm.Get("b") != "3" {
		t.Errorf("b = %q", req.PostForm.Get("b"))
	}
	if req.Header.Get("X-Test") != "yes" {
		t.Error("header missing")
	}
	if c, err := req.Cookie("c"); err != nil || c.Value != "v" {
		t.Errorf("cookie = %v, %v", c, err)
	}
}

func TestTestRenderAndSubmit(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	reg.RegisterProcessor("spy", &spyProcessor{pass: true, response: Message("Got it")})

	rendered, err := TestRender(ctx, reg, []Field{{Key: "form-processor", Value: "spy"}}, "<input name=\"q\">")
	if err != nil {
		t.Fatalf("TestRender() error = %v", err)
	}
	if !rendered.IsOK() || !rendered.HTMLContains(`<input name="q">`) {
		t.Errorf("render result = %+v", rendered)
	}

	result, err := TestSubmit(ctx, reg, rendered.Form, map[string]string{"q": "search"})
	if err != nil {
		t.Fatalf("TestSubmit() error = %v", err)
	}
	if !result.Result || result.Message != "Got it" {
		t.Errorf("result = %+v", result)
	}
}

func TestTestRenderWithExplicitID(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	reg.RegisterProcessor("spy", &spyProcessor{pass: true})

	attrs := []Field{
		{Key: "id", Value: "contact"},
		{Key: "form-processor", Value: "spy"},
		{Key: "success-message", Value: "Thanks"},
		{Key: "disable-ajax", Value: "1"},
	}
	rendered, err := TestRender(ctx, reg, attrs, "body")
	if err != nil {
		t.Fatalf("TestRender() error = %v", err)
	}
	if rendered.Form.ID() != "contact" {
		t.Errorf("ID() = %q, want contact", rendered.Form.ID())
	}
	hash := rendered.Form.HiddenField(FieldFormHash, "")
	if hash != rendered.Form.Hash() {
		t.Errorf("%s = %q, want cached form hash %q", FieldFormHash, hash, rendered.Form.Hash())
	}
	if !rendered.HTMLContains(`value="` + hash + `"`) {
		t.Errorf("rendered markup does not carry the cached hash:\n%s", rendered.HTML)
	}
	if rendered.Form.HasAttribute(AttrFormProcessor) || rendered.Form.HasAttribute(AttrDisableAJAX) {
		t.Error("shortcode-only attributes were cached")
	}
}

func TestTestResultHelpers(t *testing.T) {
	r := &TestResult{
		HTML:        "<p>one</p><p>two</p>",
		StatusCode:  http.StatusSeeOther,
		Headers:     http.Header{"Location": {"/x"}},
		RedirectURL: "/x",
		Result:      &ProcessResult{Result: true},
		Cookies:     []*http.Cookie{{Name: NoticeCookie, Value: "v"}},
	}
	if !r.HTMLContainsAll("one", "two") || r.HTMLContainsAll("one", "three") {
		t.Error("HTMLContainsAll() wrong")
	}
	if !r.WasRedirected() || !r.RedirectedTo("/x") {
		t.Error("redirect helpers wrong")
	}
	if r.IsOK() || !r.HasStatus(http.StatusSeeOther) {
		t.Error("status helpers wrong")
	}
	if r.GetHeader("Location") != "/x" {
		t.Error("GetHeader() wrong")
	}
	if !r.Succeeded() {
		t.Error("Succeeded() = false")
	}
	if r.Cookie(NoticeCookie) == nil || r.Cookie("other") != nil {
		t.Error("Cookie() wrong")
	}
}
