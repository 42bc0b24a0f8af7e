package niforms

import (
	"context"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// Flash levels for submit notices.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// NoticeCookie carries the result of a non-AJAX submit across the
// redirect back to the page.
const NoticeCookie = "niforms_notice"

const noticeMaxAge = 60 * time.Second

// Flash is a one-time notice shown above a form after a plain (non-AJAX)
// submit.
type Flash struct {
	Level   string `msgpack:"l"` // success, error
	Message string `msgpack:"m"`
	FormID  string `msgpack:"f"`
}

// RenderNotice renders a flash as the notice box placed before the form.
// The message is written as markup; pass untrusted text through
// html.EscapeString or a sanitizer first.
func RenderNotice(f Flash) string {
	if f.Message == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(`<div class="niform-notice niform-notice-`)
	sb.WriteString(html.EscapeString(f.Level))
	sb.WriteString(`" role="status">`)
	sb.WriteString(f.Message)
	sb.WriteString(`</div>`)
	sb.WriteString("\n")
	return sb.String()
}

// filterNotice makes the flash message safe to render: the sanitizer
// policy filters it when one is set, otherwise it is escaped.
func (reg *Registry) filterNotice(f Flash) Flash {
	if reg.policy != nil {
		f.Message = reg.policy.Sanitize(f.Message)
	} else {
		f.Message = html.EscapeString(f.Message)
	}
	return f
}

// NoticeComponent returns a templ component for a flash.
func NoticeComponent(f Flash) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, RenderNotice(f))
		return err
	})
}

// setNotice stores flash in a short-lived signed cookie.
func (reg *Registry) setNotice(w http.ResponseWriter, flash Flash) error {
	value, err := reg.cache.Encoder().Encode(purposeNotice, flash, false)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     NoticeCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(noticeMaxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Notice returns the pending flash for formID, if r carries one. A cookie
// with a bad signature is ignored.
func (reg *Registry) Notice(r *http.Request, formID string) (Flash, bool) {
	if r == nil {
		return Flash{}, false
	}
	c, err := r.Cookie(NoticeCookie)
	if err != nil {
		return Flash{}, false
	}
	var flash Flash
	if err := reg.cache.Encoder().Decode(purposeNotice, c.Value, false, &flash); err != nil {
		reg.logger.Debug("ignoring invalid notice cookie")
		return Flash{}, false
	}
	if flash.FormID != formID {
		return Flash{}, false
	}
	return flash, true
}

// ClearNotice expires the notice cookie.
func ClearNotice(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   NoticeCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}
