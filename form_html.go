package niforms

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// String renders the form markup: the <form> element with its attributes,
// the body, one hidden input per hidden field, and any queued scripts.
func (f *Form) String() string {
	var attrs strings.Builder
	for _, a := range f.attrs.Pairs() {
		fmt.Fprintf(&attrs, ` %s="%s"`, EscapeEntities(a.Key), EscapeEntities(a.Value))
	}

	var hidden strings.Builder
	for _, h := range f.hidden.Pairs() {
		fmt.Fprintf(&hidden, "<input type=\"hidden\" name=\"%s\" value=\"%s\">\n",
			EscapeEntities(h.Key), EscapeEntities(h.Value))
	}

	return fmt.Sprintf("<form%s>\n%s\n%s\n</form>\n%s",
		attrs.String(), f.content, hidden.String(), strings.Join(f.scripts, "\n\n"))
}

// Component exposes the rendered form for templ layouts.
func (f *Form) Component() templ.Component {
	markup := f.String()
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, markup)
		return err
	})
}
