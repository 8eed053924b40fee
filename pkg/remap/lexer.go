package remap

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokIdent tokenKind = iota
	tokString
	tokChar
	tokNumber
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokChar:
		return "char"
	case tokNumber:
		return "number"
	case tokPunct:
		return "punctuation"
	default:
		return "unknown"
	}
}

// token is a lexeme of the dump source; Start and End are byte offsets
type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

// content returns the raw text between a string literal's quotes
func (t token) content() string {
	return t.text[1 : len(t.text)-1]
}

// value returns a string literal's decoded value. Unicode escapes are UTF-16
// code units; surrogate pairs are joined.
func (t token) value() string {
	raw := t.content()
	if !strings.ContainsRune(raw, '\\') {
		return raw
	}
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			sb.WriteByte(c)
			continue
		}
		if r, n, ok := unicodeEscape(raw[i:]); ok {
			if utf16.IsSurrogate(r) {
				if lo, m, ok := unicodeEscape(raw[i+n:]); ok {
					if pair := utf16.DecodeRune(r, lo); pair != utf8.RuneError {
						r = pair
						n += m
					}
				}
			}
			sb.WriteRune(r)
			i += n - 1
			continue
		}
		if r, n := octalEscape(raw[i+1:]); n > 0 {
			sb.WriteRune(r)
			i += n
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		default:
			sb.WriteByte(raw[i])
		}
	}
	return sb.String()
}

// unicodeEscape decodes a leading \uXXXX (any number of u) and returns its length
func unicodeEscape(s string) (rune, int, bool) {
	if len(s) < 2 || s[0] != '\\' || s[1] != 'u' {
		return 0, 0, false
	}
	n := 2
	for n < len(s) && s[n] == 'u' {
		n++
	}
	if n+4 > len(s) {
		return 0, 0, false
	}
	v, err := strconv.ParseUint(s[n:n+4], 16, 16)
	if err != nil {
		return 0, 0, false
	}
	return rune(v), n + 4, true
}

// octalEscape decodes the digits of an octal escape, \0 to \377
func octalEscape(s string) (rune, int) {
	limit := 3
	if len(s) > 0 && s[0] > '3' {
		limit = 2
	}
	var v rune
	n := 0
	for n < limit && n < len(s) && s[n] >= '0' && s[n] <= '7' {
		v = v*8 + rune(s[n]-'0')
		n++
	}
	return v, n
}

// lex splits Java source into tokens, dropping whitespace and comments
func lex(src string) ([]token, error) {
	var toks []token

	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case strings.HasPrefix(src[i:], "//"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				i = len(src)
			} else {
				i += end + 1
			}
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, malformedAt(src, i, "unterminated comment")
			}
			i += end + 4
		case r == '"' || r == '\'':
			end, err := scanQuoted(src, i, byte(r))
			if err != nil {
				return nil, err
			}
			kind := tokString
			if r == '\'' {
				kind = tokChar
			}
			toks = append(toks, token{kind: kind, text: src[i:end], start: i, end: end})
			i = end
		case isIdentStart(r):
			start := i
			for i < len(src) {
				r, size := utf8.DecodeRuneInString(src[i:])
				if !isIdentPart(r) {
					break
				}
				i += size
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], start: start, end: i})
		case r >= '0' && r <= '9':
			start := i
			for i < len(src) {
				c := src[i]
				if isNumberPart(c) {
					i++
					continue
				}
				// signed exponent
				if (c == '+' || c == '-') && (src[i-1] == 'e' || src[i-1] == 'E') && !isHex(src[start:i]) {
					i++
					continue
				}
				break
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], start: start, end: i})
		default:
			toks = append(toks, token{kind: tokPunct, text: src[i : i+size], start: i, end: i + size})
			i += size
		}
	}

	return toks, nil
}

func scanQuoted(src string, start int, quote byte) (int, error) {
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '\n':
			return 0, malformedAt(src, start, "newline in literal")
		case quote:
			return i + 1, nil
		}
	}
	return 0, malformedAt(src, start, "unterminated literal")
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func isNumberPart(c byte) bool {
	return c == '.' || c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isHex(num string) bool {
	return strings.HasPrefix(num, "0x") || strings.HasPrefix(num, "0X")
}

func malformedAt(src string, off int, reason string) error {
	line := strings.Count(src[:off], "\n") + 1
	return fmt.Errorf("%w: line %d: %s", ErrMalformedSource, line, reason)
}
