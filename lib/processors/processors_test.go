package processors

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pthm/niforms"
)

type fakeMailer struct {
	sent []Mail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, mail Mail) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

func postSubmit(values map[string]string) *niforms.FormSubmit {
	req := niforms.NewTestRequest(http.MethodPost, "/").WithFormValues(values).Build()
	return niforms.NewFormSubmit(req, true)
}

func nopLog() *niforms.Logger {
	return niforms.NewLogger(zap.NewNop())
}

func contactForm() *niforms.Form {
	return niforms.NewForm([]niforms.Field{{Key: "id", Value: "contact"}}, "", niforms.DefaultTag, "")
}

func TestTestProcessors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		p    niforms.Processor
		want niforms.Response
	}{
		{"html", TestHTML{}, niforms.HTML{NewHTML: "<h1>It worked!</h1>"}},
		{"redirect", TestRedirect{HomeURL: "https://example.com/"}, niforms.Redirect{URL: "https://example.com/"}},
		{"redirect default", TestRedirect{}, niforms.Redirect{URL: "/"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.p.Process(ctx, postSubmit(nil), contactForm(), nopLog())
			if err != nil || !ok {
				t.Fatalf("Process() = %v, %v", ok, err)
			}
			got, err := tt.p.Success(ctx, postSubmit(nil), contactForm(), nopLog())
			if err != nil {
				t.Fatalf("Success() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Success() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRegisterDefaults(t *testing.T) {
	cache, err := niforms.NewFormCache(t.TempDir(), []byte("test-key-32-bytes-long-xxxxxxxxx"), false)
	if err != nil {
		t.Fatal(err)
	}
	reg := niforms.NewRegistry(cache)
	RegisterDefaults(reg, "/", &Email{To: "a@b.c", Mailer: &fakeMailer{}})

	for _, code := range []string{niforms.NullProcessorCode, CodeTestHTML, CodeTestRedirect, CodeEmail} {
		if !reg.HasProcessor(code) {
			t.Errorf("processor %q not registered", code)
		}
	}
}

func TestEmailProcess(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	p := &Email{To: "site@example.com", Mailer: mailer}

	submit := postSubmit(map[string]string{
		"name":                "Ada",
		"message":             "Hello",
		niforms.FieldFormHash: "0123456789abcdef0123456789abcdef",
	})
	ok, err := p.Process(ctx, submit, contactForm(), nopLog())
	if err != nil || !ok {
		t.Fatalf("Process() = %v, %v", ok, err)
	}

	want := []Mail{{
		To:      "site@example.com",
		Subject: "Form submission: contact",
		Body:    "message: Hello\nname: Ada\n",
	}}
	if diff := cmp.Diff(want, mailer.sent); diff != "" {
		t.Errorf("sent mail mismatch (-want +got):\n%s", diff)
	}

	resp, err := p.Success(ctx, submit, contactForm(), nopLog())
	if err != nil || resp != niforms.Bool(true) {
		t.Errorf("Success() = %v, %v", resp, err)
	}
}

func TestEmailSavedDataOverrides(t *testing.T) {
	mailer := &fakeMailer{}
	p := &Email{To: "site@example.com", Subject: "Default", Mailer: mailer}

	form := contactForm().
		SetSavedData("email-to", "sales@example.com").
		SetSavedData("email-subject", "Quote request")
	if ok, _ := p.Process(context.Background(), postSubmit(nil), form, nopLog()); !ok {
		t.Fatal("Process() failed")
	}
	if got := mailer.sent[0]; got.To != "sales@example.com" || got.Subject != "Quote request" {
		t.Errorf("mail = %+v", got)
	}
}

func TestEmailFailures(t *testing.T) {
	tests := []struct {
		name  string
		email *Email
		want  string
	}{
		{"no recipient", &Email{Mailer: &fakeMailer{}}, "no recipient configured"},
		{"send error", &Email{To: "a@b.c", Mailer: &fakeMailer{err: errors.New("smtp down")}}, "failed to send mail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := nopLog()
			ok, err := tt.email.Process(context.Background(), postSubmit(nil), contactForm(), log)
			if err != nil || ok {
				t.Errorf("Process() = %v, %v, want false, nil", ok, err)
			}
			logs := log.Logs()
			if len(logs) != 1 || logs[0].Message != tt.want || logs[0].Level != niforms.LevelError {
				t.Errorf("logs = %+v", logs)
			}
		})
	}
}

func TestBodyListsFiles(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("name", "Ada")
	mw.WriteField("_form-id", "contact")
	fw, _ := mw.CreateFormFile("cv", "cv.pdf")
	fw.Write([]byte("%PDF-1.4"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	got := Body(niforms.NewFormSubmit(req, true))
	want := "name: Ada\ncv: [file] cv.pdf (8 bytes)\n"
	if got != want {
		t.Errorf("Body() = %q, want %q", got, want)
	}
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := LogMailer{Logger: zap.New(core)}

	if err := m.Send(context.Background(), Mail{To: "a@b.c", Subject: "s", Body: "b"}); err != nil {
		t.Fatal(err)
	}
	entries := logs.FilterMessage("mail").All()
	if len(entries) != 1 || entries[0].ContextMap()["to"] != "a@b.c" {
		t.Errorf("entries = %+v", entries)
	}
}
