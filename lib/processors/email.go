package processors

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pthm/niforms"
)

// Mail is one outgoing message.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers mail.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// LogMailer writes mail to a zap logger instead of sending it.
type LogMailer struct {
	Logger *zap.Logger
}

func (m LogMailer) Send(ctx context.Context, mail Mail) error {
	l := m.Logger
	if l == nil {
		l = zap.NewNop()
	}
	l.Info("mail",
		zap.String("to", mail.To),
		zap.String("subject", mail.Subject),
		zap.String("body", mail.Body),
	)
	return nil
}

// Email sends the posted fields as a plain-text mail. The recipient and
// subject can be overridden per form through the "email-to" and
// "email-subject" saved data keys set by a preform handler.
type Email struct {
	To      string
	Subject string
	Mailer  Mailer
}

func (e *Email) Process(ctx context.Context, submit *niforms.FormSubmit, form *niforms.Form, log *niforms.Logger) (bool, error) {
	to := savedString(form, "email-to", e.To)
	if to == "" {
		log.Error("no recipient configured", map[string]any{"form": form.ID()})
		return false, nil
	}
	mail := Mail{
		To:      to,
		Subject: savedString(form, "email-subject", e.subject(form)),
		Body:    Body(submit),
	}
	if err := e.Mailer.Send(ctx, mail); err != nil {
		log.Error("failed to send mail", map[string]any{"form": form.ID(), "error": err.Error()})
		return false, nil
	}
	log.Info("mail sent", map[string]any{"form": form.ID(), "to": to})
	return true, nil
}

func (e *Email) Success(ctx context.Context, submit *niforms.FormSubmit, form *niforms.Form, log *niforms.Logger) (niforms.Response, error) {
	return niforms.Bool(true), nil
}

func (e *Email) subject(form *niforms.Form) string {
	if e.Subject != "" {
		return e.Subject
	}
	return "Form submission: " + form.ID()
}

func savedString(form *niforms.Form, key, def string) string {
	if s, ok := form.SavedData(key, def).(string); ok && s != "" {
		return s
	}
	return def
}

// Body renders the posted fields, one "name: value" line each, sorted by
// name. Fields starting with an underscore are internal and skipped.
// Uploaded files are listed by name.
func Body(submit *niforms.FormSubmit) string {
	var sb strings.Builder

	post := submit.Post().Get()
	keys := make([]string, 0, len(post))
	for k := range post {
		if strings.HasPrefix(k, "_") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s: %s\n", k, strings.Join(post[k], ", "))
	}

	files := submit.Files().Get()
	names := make([]string, 0, len(files))
	for k := range files {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		for _, h := range files[k] {
			fmt.Fprintf(&sb, "%s: [file] %s (%d bytes)\n", k, h.Filename, h.Size)
		}
	}
	return sb.String()
}
