package descriptor

import "strings"

var readablePrimitives = map[string]byte{
	"boolean": Boolean,
	"byte":    Byte,
	"char":    Char,
	"double":  Double,
	"float":   Float,
	"int":     Int,
	"long":    Long,
	"short":   Short,
	"void":    Void,
}

// ReadableType converts a dotted, bracket-suffixed source type token
// (e.g. "int[]" or "java.lang.String") into a Type.
func ReadableType(token string) Type {
	var t Type
	for strings.HasSuffix(token, "[]") {
		t.Dims++
		token = strings.TrimSuffix(token, "[]")
	}
	if code, ok := readablePrimitives[token]; ok {
		t.Kind = code
		return t
	}
	t.Kind = Object
	t.Name = strings.ReplaceAll(token, ".", "/")
	return t
}

// FromReadable converts a source type token into its descriptor form.
// The empty token (an empty parameter list) maps to the empty string.
func FromReadable(token string) string {
	if token == "" {
		return ""
	}
	return ReadableType(token).String()
}

// InternalName converts a dotted class name to its slash separated form
func InternalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}
