package niforms

import "strings"

// latin1Entities lists the HTML 4.01 named entities for U+00A0..U+00FF in
// code point order.
const latin1Entities = "nbsp iexcl cent pound curren yen brvbar sect uml copy ordf laquo not shy reg macr " +
	"deg plusmn sup2 sup3 acute micro para middot cedil sup1 ordm raquo frac14 frac12 frac34 iquest " +
	"Agrave Aacute Acirc Atilde Auml Aring AElig Ccedil Egrave Eacute Ecirc Euml Igrave Iacute Icirc Iuml " +
	"ETH Ntilde Ograve Oacute Ocirc Otilde Ouml times Oslash Ugrave Uacute Ucirc Uuml Yacute THORN szlig " +
	"agrave aacute acirc atilde auml aring aelig ccedil egrave eacute ecirc euml igrave iacute icirc iuml " +
	"eth ntilde ograve oacute ocirc otilde ouml divide oslash ugrave uacute ucirc uuml yacute thorn yuml"

var entityTable = buildEntityTable()

func buildEntityTable() map[rune]string {
	table := map[rune]string{
		'"':  "&quot;",
		'\'': "&#039;",
		'<':  "&lt;",
		'>':  "&gt;",
	}
	for i, name := range strings.Fields(latin1Entities) {
		table[rune(0xA0+i)] = "&" + name + ";"
	}
	return table
}

// EscapeEntities converts characters to HTML entities while leaving
// ampersands that already start an entity untouched, so escaping an
// escaped value is a no-op.
func EscapeEntities(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + len(s)/8)
	for i, r := range s {
		if r == '&' {
			if startsEntity(s[i+1:]) {
				sb.WriteByte('&')
			} else {
				sb.WriteString("&amp;")
			}
			continue
		}
		if entity, ok := entityTable[r]; ok {
			sb.WriteString(entity)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// startsEntity reports whether rest (the text after an '&') begins with
// something shaped like a named entity ([A-Za-z]{0,4}\w{2,3};) or a short
// numeric one (#[0-9]{2,3};).
func startsEntity(rest string) bool {
	if strings.HasPrefix(rest, "#") {
		n := 0
		for n < len(rest)-1 && n < 4 && isDigit(rest[1+n]) {
			n++
		}
		return n >= 2 && n <= 3 && len(rest) > 1+n && rest[1+n] == ';'
	}

	n := 0
	for n < len(rest) && n < 8 && isWordByte(rest[n]) {
		n++
	}
	if n < 2 || n > 7 || len(rest) <= n || rest[n] != ';' {
		return false
	}
	for _, tail := range []int{2, 3} {
		lead := n - tail
		if lead < 0 || lead > 4 {
			continue
		}
		if allLetters(rest[:lead]) {
			return true
		}
	}
	return false
}

func allLetters(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordByte(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}
