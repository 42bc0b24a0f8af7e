package shortcode

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseAttrs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Attr
	}{
		{"empty", "", nil},
		{
			"quoted",
			` form-processor="email" success-message='Thanks, friend!'`,
			[]Attr{{"form-processor", "email"}, {"success-message", "Thanks, friend!"}},
		},
		{
			"bare value",
			` class=wide id="x"`,
			[]Attr{{"class", "wide"}, {"id", "x"}},
		},
		{
			"positional",
			` disable-ajax "quoted flag" id="x"`,
			[]Attr{{"0", "disable-ajax"}, {"1", "quoted flag"}, {"id", "x"}},
		},
		{
			"names lower-cased",
			` ID="x"`,
			[]Attr{{"id", "x"}},
		},
		{
			"duplicate keeps position",
			` a="1" b="2" a="3"`,
			[]Attr{{"a", "3"}, {"b", "2"}},
		},
		{
			"non-breaking space",
			"\u00a0a=\"1\"\u00a0b=\"2\"",
			[]Attr{{"a", "1"}, {"b", "2"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseAttrs(tt.text)); diff != "" {
				t.Errorf("ParseAttrs(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestFind(t *testing.T) {
	content := `<p>a</p>[ni-form id="one"]<input name="x">[/ni-form]
[ni-form id="two" /]
[[ni-form id="escaped"]]
[gallery id="3"]
[ni-form id="open"]`

	found := Find(content, []string{"ni-form"})
	want := []Shortcode{
		{
			Tag:      "ni-form",
			Attrs:    []Attr{{"id", "one"}},
			Content:  `<input name="x">`,
			Enclosed: true,
			Raw:      `[ni-form id="one"]<input name="x">[/ni-form]`,
		},
		{
			Tag:         "ni-form",
			Attrs:       []Attr{{"id", "two"}},
			SelfClosing: true,
			Raw:         `[ni-form id="two" /]`,
		},
		{
			Tag:   "ni-form",
			Attrs: []Attr{{"id", "open"}},
			Raw:   `[ni-form id="open"]`,
		},
	}
	if diff := cmp.Diff(want, found); diff != "" {
		t.Errorf("Find() mismatch (-want +got):\n%s", diff)
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no shortcodes", "plain text [not one]", "plain text [not one]"},
		{"enclosed", `a [box id="1"]body[/box] b`, "a <box 1:body> b"},
		{"self closing", `[box id="2" /]`, "<box 2:>"},
		{"escaped", `[[box id="3"]]`, `[box id="3"]`},
		{"escaped open only", `[[box id="4"]`, "[<box 4:>"},
		{"unknown tag", `[other]x[/other]`, `[other]x[/other]`},
		{"two", `[box id="a"/][box id="b"/]`, "<box a:><box b:>"},
	}
	render := func(sc Shortcode) (string, error) {
		id, _ := sc.Attr("id")
		return "<" + sc.Tag + " " + id + ":" + sc.Content + ">", nil
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.content, []string{"box"}, render)
			if err != nil {
				t.Fatalf("Expand() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestExpandStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Expand(strings.Repeat(`[box /]`, 3), []string{"box"}, func(sc Shortcode) (string, error) {
		calls++
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expand() error = %v, want boom", err)
	}
	if calls != 1 {
		t.Errorf("render called %d times, want 1", calls)
	}
}
