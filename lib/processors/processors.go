// Package processors contains the stock form processors.
package processors

import (
	"context"

	"github.com/pthm/niforms"
)

// Processor codes registered by RegisterDefaults.
const (
	CodeTestHTML     = "test-html"
	CodeTestRedirect = "test-redirect"
	CodeEmail        = "email"
)

// TestHTML replaces the submitted form with a fixed heading.
type TestHTML struct{}

func (TestHTML) Process(ctx context.Context, submit *niforms.FormSubmit, form *niforms.Form, log *niforms.Logger) (bool, error) {
	return true, nil
}

func (TestHTML) Success(ctx context.Context, submit *niforms.FormSubmit, form *niforms.Form, log *niforms.Logger) (niforms.Response, error) {
	return niforms.HTML{NewHTML: "<h1>It worked!</h1>"}, nil
}

// TestRedirect sends the submitter to the site home page.
type TestRedirect struct {
	HomeURL string
}

func (TestRedirect) Process(ctx context.Context, submit *niforms.FormSubmit, form *niforms.Form, log *niforms.Logger) (bool, error) {
	return true, nil
}

func (p TestRedirect) Success(ctx context.Context, submit *niforms.FormSubmit, form *niforms.Form, log *niforms.Logger) (niforms.Response, error) {
	url := p.HomeURL
	if url == "" {
		url = "/"
	}
	return niforms.Redirect{URL: url}, nil
}

// RegisterDefaults registers test-html, test-redirect and email on reg.
func RegisterDefaults(reg *niforms.Registry, homeURL string, email *Email) {
	reg.RegisterProcessor(CodeTestHTML, TestHTML{})
	reg.RegisterProcessor(CodeTestRedirect, TestRedirect{HomeURL: homeURL})
	if email != nil {
		reg.RegisterProcessor(CodeEmail, email)
	}
}
