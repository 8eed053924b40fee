package remap

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// mapCall formats map("<intermediate>", "<original>", "<final>")
func (e *Engine) mapCall(intermediate, original, final string) string {
	var sb strings.Builder
	sb.WriteString(e.conf.MapMethod)
	sb.WriteByte('(')
	for i, arg := range []string{intermediate, original, final} {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('"')
		sb.WriteString(escape(arg))
		sb.WriteByte('"')
	}
	sb.WriteByte(')')
	return sb.String()
}

// escape quotes s for a Java string literal; non-ASCII is written as \u escapes
func escape(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r < 0x20 || r > 0x7e:
			for _, u := range utf16.Encode([]rune{r}) {
				fmt.Fprintf(&sb, "\\u%04x", u)
			}
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func isClassNameChar(c byte) bool {
	return c == '/' || c == '$' || c == '_' ||
		c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// spliceClasses rewrites every mapped class name embedded in the string
// literal t and returns the replacement expression along with the number of
// names rewritten. Literal text around a name stays a string operand of a
// concatenation; empty operands are never emitted.
func (e *Engine) spliceClasses(t token) (string, int) {
	raw := t.content()
	prefix := e.conf.Prefix

	var (
		parts []string
		count int
		last  int
	)
	for off := 0; off < len(raw); {
		i := strings.Index(raw[off:], prefix)
		if i < 0 {
			break
		}
		start := off + i
		end := start + len(prefix)
		for end < len(raw) && isClassNameChar(raw[end]) {
			end++
		}
		off = end

		if start > 0 && raw[start-1] == '\\' {
			continue
		}
		name := strings.TrimRight(raw[start:end], "/")
		end = start + len(name)

		c, ok := e.intermediate.Class(name)
		if !ok {
			continue
		}
		final, ok := e.finalClassName(c)
		if !ok {
			final = name
		}

		// carry an enclosing L...; into the arguments
		lead, trail := "", ""
		if start > 0 && raw[start-1] == 'L' && end < len(raw) && raw[end] == ';' &&
			(start == 1 || !isClassNameChar(raw[start-2])) {
			start--
			end++
			lead, trail = "L", ";"
		}

		if start > last {
			parts = append(parts, `"`+raw[last:start]+`"`)
		}
		parts = append(parts, e.mapCall(lead+c.Intermediate+trail, lead+name+trail, lead+final+trail))
		last = end
		count++
	}

	if count == 0 {
		return "", 0
	}
	if last < len(raw) {
		parts = append(parts, `"`+raw[last:]+`"`)
	}

	return strings.Join(parts, " + "), count
}
