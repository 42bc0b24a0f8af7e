package niforms

import (
	"strconv"
	"strings"
)

// exportAttributes renders an ordered string mapping the way PHP's
// var_export prints an array. The form hash is computed over this text, so
// the layout must stay byte-for-byte stable.
func exportAttributes(attrs *Fields) string {
	var sb strings.Builder
	sb.WriteString("array (\n")
	for _, key := range attrs.Keys() {
		value, _ := attrs.Lookup(key)
		sb.WriteString("  ")
		sb.WriteString(exportKey(key))
		sb.WriteString(" => ")
		sb.WriteString(exportString(value))
		sb.WriteString(",\n")
	}
	sb.WriteString(")")
	return sb.String()
}

// exportKey prints integer-like keys bare, matching PHP's key casting.
func exportKey(key string) string {
	if isIntegerKey(key) {
		return key
	}
	return exportString(key)
}

func exportString(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
	s = strings.ReplaceAll(s, "\x00", `' . "\0" . '`)
	return "'" + s + "'"
}

func isIntegerKey(key string) bool {
	if key == "0" {
		return true
	}
	digits := strings.TrimPrefix(key, "-")
	if digits == "" || digits[0] < '1' || digits[0] > '9' {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	_, err := strconv.ParseInt(key, 10, 64)
	return err == nil
}

// StripSlashes removes one level of backslash escaping: `\x` becomes `x`,
// `\\` becomes `\` and `\0` becomes a NUL byte. A trailing lone backslash
// is dropped.
func StripSlashes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		if s[i] == '0' {
			sb.WriteByte(0)
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
