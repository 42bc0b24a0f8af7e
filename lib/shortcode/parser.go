// Package shortcode finds and expands [tag attr="value"]body[/tag]
// shortcodes in page content.
//
// Only registered tags are recognised; everything else is passed through.
// A shortcode wrapped in double brackets ([[tag]]) is an escape and is
// emitted literally without its outer brackets.
package shortcode

import (
	"regexp"
	"strconv"
	"strings"
)

// Attr is one parsed attribute. Positional attributes (bare words or bare
// quoted strings) are keyed by their position among positional attributes:
// "0", "1", ...
type Attr struct {
	Name  string
	Value string
}

// Shortcode is one occurrence in the content.
type Shortcode struct {
	Tag         string
	Attrs       []Attr
	Content     string
	SelfClosing bool
	Enclosed    bool
	// Raw is the full matched text, including brackets.
	Raw string
}

// Attr returns the named attribute value.
func (s Shortcode) Attr(name string) (string, bool) {
	for _, a := range s.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// ExpandFunc renders one shortcode.
type ExpandFunc func(sc Shortcode) (string, error)

var attrPattern = regexp.MustCompile(`([\w-]+)\s*=\s*"([^"]*)"(?:\s|$)|([\w-]+)\s*=\s*'([^']*)'(?:\s|$)|([\w-]+)\s*=\s*([^\s'"]+)(?:\s|$)|"([^"]*)"(?:\s|$)|'([^']*)'(?:\s|$)|(\S+)(?:\s|$)`)

var spaceLike = regexp.MustCompile("[\u00a0\u200b]+")

// ParseAttrs parses the attribute text of a shortcode. Names are
// lower-cased and later duplicates replace earlier values in place.
func ParseAttrs(text string) []Attr {
	text = spaceLike.ReplaceAllString(text, " ")
	var attrs []Attr
	positional := 0
	set := func(name, value string) {
		for i := range attrs {
			if attrs[i].Name == name {
				attrs[i].Value = value
				return
			}
		}
		attrs = append(attrs, Attr{Name: name, Value: value})
	}
	for _, m := range attrPattern.FindAllStringSubmatch(text, -1) {
		switch {
		case m[1] != "":
			set(strings.ToLower(m[1]), m[2])
		case m[3] != "":
			set(strings.ToLower(m[3]), m[4])
		case m[5] != "":
			set(strings.ToLower(m[5]), m[6])
		default:
			value := m[7]
			if value == "" {
				value = m[8]
			}
			if value == "" {
				value = m[9]
			}
			set(strconv.Itoa(positional), value)
			positional++
		}
	}
	return attrs
}

// Expand replaces every shortcode with one of the given tags by the output
// of fn. The first error stops expansion.
func Expand(content string, tags []string, fn ExpandFunc) (string, error) {
	if len(tags) == 0 || !strings.Contains(content, "[") {
		return content, nil
	}
	known := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		known[t] = struct{}{}
	}

	var sb strings.Builder
	pos := 0
	for pos < len(content) {
		open := strings.IndexByte(content[pos:], '[')
		if open < 0 {
			break
		}
		open += pos

		m, ok := match(content, open, known)
		if !ok {
			sb.WriteString(content[pos : open+1])
			pos = open + 1
			continue
		}

		sb.WriteString(content[pos:open])
		if m.escapedOpen && m.escapedClose {
			sb.WriteString(content[open+1 : m.end-1])
		} else {
			out, err := fn(m.sc)
			if err != nil {
				return "", err
			}
			if m.escapedOpen {
				sb.WriteByte('[')
			}
			sb.WriteString(out)
		}
		pos = m.end
	}
	sb.WriteString(content[pos:])
	return sb.String(), nil
}

// Find returns every shortcode with one of the given tags, escaped ones
// excluded.
func Find(content string, tags []string) []Shortcode {
	var found []Shortcode
	_, _ = Expand(content, tags, func(sc Shortcode) (string, error) {
		found = append(found, sc)
		return "", nil
	})
	return found
}

type matchResult struct {
	sc           Shortcode
	escapedOpen  bool
	escapedClose bool
	end          int
}

// match tries to read a shortcode starting at content[open] == '['.
func match(content string, open int, known map[string]struct{}) (matchResult, bool) {
	var m matchResult
	i := open + 1
	if i < len(content) && content[i] == '[' {
		m.escapedOpen = true
		i++
	}

	nameStart := i
	for i < len(content) && isNameByte(content[i]) {
		i++
	}
	tag := content[nameStart:i]
	if _, ok := known[tag]; !ok {
		return m, false
	}

	// Attribute text runs to the first ']'.
	closeBracket := strings.IndexByte(content[i:], ']')
	if closeBracket < 0 {
		return m, false
	}
	closeBracket += i
	attrText := content[i:closeBracket]
	if strings.Contains(attrText, "[") {
		return m, false
	}

	end := closeBracket + 1
	sc := Shortcode{Tag: tag}
	trimmed := strings.TrimRight(attrText, " \t\r\n")
	if strings.HasSuffix(trimmed, "/") {
		sc.SelfClosing = true
		attrText = strings.TrimSuffix(trimmed, "/")
	} else {
		closing := "[/" + tag + "]"
		if idx := strings.Index(content[end:], closing); idx >= 0 {
			sc.Content = content[end : end+idx]
			sc.Enclosed = true
			end = end + idx + len(closing)
		}
	}
	sc.Attrs = ParseAttrs(attrText)

	if m.escapedOpen && end < len(content) && content[end] == ']' {
		m.escapedClose = true
		end++
	}
	sc.Raw = content[open:end]
	m.sc = sc
	m.end = end
	return m, true
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}
