package remap

import (
	"fmt"
	"strings"
)

type occurrenceKind uint8

const (
	occMethod occurrenceKind = iota
	occField
	occInnerClass
	occPackage
	occStaticImport
	occMapCall
)

// occurrence is one recognised construct in the dump source.
//
// For member and inner class occurrences target is the string literal that
// gets replaced by a map call; for package declarations start/end cover the
// whole declaration.
type occurrence struct {
	kind   occurrenceKind
	owner  string
	name   string
	desc   string
	target token
	start  int
	end    int
	// literals holds the string arguments of an existing map call
	literals []token
}

type parser struct {
	toks      []token
	src       string
	mapMethod string
}

// parseOccurrences walks the token stream and returns every recognised
// construct in source order.
func parseOccurrences(src string, toks []token, mapMethod string) ([]occurrence, error) {
	p := &parser{toks: toks, src: src, mapMethod: mapMethod}

	var occs []occurrence
	seenPackage := false

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.kind != tokIdent {
			continue
		}

		switch {
		case t.text == "package" && !seenPackage:
			name, end, err := p.qualifiedName(i + 1)
			if err != nil {
				return nil, err
			}
			seenPackage = true
			occs = append(occs, occurrence{kind: occPackage, name: name, start: t.start, end: toks[end].end})
			i = end
		case t.text == "import" && p.peek(i+1, tokIdent, "static"):
			name, end, err := p.qualifiedName(i + 2)
			if err != nil {
				return nil, err
			}
			occs = append(occs, occurrence{kind: occStaticImport, name: name, start: t.start, end: toks[end].end})
			i = end
		case t.text == "visitMethodInsn" && p.isCall(i):
			occ, ok, err := p.memberCall(i, occMethod, 4, 5)
			if err != nil {
				return nil, err
			}
			if ok {
				occs = append(occs, occ)
			}
		case t.text == "visitFieldInsn" && p.isCall(i):
			occ, ok, err := p.memberCall(i, occField, 4, 4)
			if err != nil {
				return nil, err
			}
			if ok {
				occs = append(occs, occ)
			}
		case t.text == "new" && p.peek(i+1, tokIdent, "Handle") && p.peek(i+2, tokPunct, "("):
			kind, err := p.handleKind(i + 1)
			if err != nil {
				return nil, err
			}
			occ, ok, err := p.memberCall(i+1, kind, 4, 5)
			if err != nil {
				return nil, err
			}
			if ok {
				occs = append(occs, occ)
			}
		case t.text == "visitInnerClass" && p.isCall(i):
			args, _, err := p.callArgs(i + 1)
			if err != nil {
				return nil, err
			}
			if len(args) != 4 {
				return nil, p.malformed(t, "visitInnerClass takes 4 arguments")
			}
			if p.hasMapCall(args[0]) || p.hasMapCall(args[2]) {
				continue
			}
			name, ok := stringArg(args[0])
			if !ok {
				return nil, p.malformed(t, "visitInnerClass expects a string class name")
			}
			inner, ok := stringArg(args[2])
			if !ok {
				// anonymous classes carry a null inner name
				continue
			}
			occs = append(occs, occurrence{kind: occInnerClass, owner: name.value(), name: inner.value(), target: inner})
		case t.text == p.mapMethod && p.peek(i+1, tokPunct, "(") && !p.peek(i-1, tokPunct, "."):
			args, end, err := p.callArgs(i + 1)
			if err != nil {
				return nil, err
			}
			occ := occurrence{kind: occMapCall, start: t.start, end: toks[end].end}
			for _, arg := range args {
				for _, a := range arg {
					if a.kind == tokString {
						occ.literals = append(occ.literals, a)
					}
				}
			}
			occs = append(occs, occ)
		}
	}

	return occs, nil
}

func (p *parser) peek(i int, kind tokenKind, text string) bool {
	return i >= 0 && i < len(p.toks) && p.toks[i].is(kind, text)
}

// isCall reports whether the identifier at i is a method invocation on a receiver
func (p *parser) isCall(i int) bool {
	return p.peek(i-1, tokPunct, ".") && p.peek(i+1, tokPunct, "(")
}

// memberCall parses '<call>(ARG, "owner", "name", "desc"[, ARG])'. Calls
// whose arguments already go through the map function are skipped.
func (p *parser) memberCall(i int, kind occurrenceKind, minArgs, maxArgs int) (occurrence, bool, error) {
	call := p.toks[i]
	args, _, err := p.callArgs(i + 1)
	if err != nil {
		return occurrence{}, false, err
	}
	if len(args) < minArgs || len(args) > maxArgs {
		return occurrence{}, false, p.malformed(call, fmt.Sprintf("%s takes %d arguments, got %d", call.text, maxArgs, len(args)))
	}

	var strs [3]token
	for n := range strs {
		arg := args[n+1]
		if p.hasMapCall(arg) {
			return occurrence{}, false, nil
		}
		s, ok := stringArg(arg)
		if !ok {
			return occurrence{}, false, p.malformed(call, fmt.Sprintf("%s argument %d must be a string literal", call.text, n+2))
		}
		strs[n] = s
	}

	return occurrence{
		kind:   kind,
		owner:  strs[0].value(),
		name:   strs[1].value(),
		desc:   strs[2].value(),
		target: strs[1],
	}, true, nil
}

// handleKind reads the reference kind of 'new Handle(TAG, ...)'
func (p *parser) handleKind(i int) (occurrenceKind, error) {
	args, _, err := p.callArgs(i + 1)
	if err != nil {
		return 0, err
	}
	if len(args) == 0 || len(args[0]) == 0 {
		return 0, p.malformed(p.toks[i], "Handle takes a reference kind")
	}
	tag := args[0][len(args[0])-1]
	if _, ok := fieldHandles[tag.text]; ok {
		return occField, nil
	}
	return occMethod, nil
}

var fieldHandles = map[string]struct{}{
	"H_GETFIELD":  {},
	"H_GETSTATIC": {},
	"H_PUTFIELD":  {},
	"H_PUTSTATIC": {},
	"1":           {},
	"2":           {},
	"3":           {},
	"4":           {},
}

func (p *parser) hasMapCall(arg []token) bool {
	for n := 0; n+1 < len(arg); n++ {
		if arg[n].is(tokIdent, p.mapMethod) && arg[n+1].is(tokPunct, "(") {
			return true
		}
	}
	return false
}

// callArgs splits the argument list opening at index open into top level
// arguments and returns the index of the closing parenthesis.
func (p *parser) callArgs(open int) ([][]token, int, error) {
	if !p.peek(open, tokPunct, "(") {
		return nil, 0, p.malformed(p.toks[open-1], "expected '('")
	}

	var (
		args  [][]token
		cur   []token
		depth int
	)
	for i := open + 1; i < len(p.toks); i++ {
		t := p.toks[i]
		if t.kind == tokPunct {
			switch t.text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				if depth == 0 {
					if t.text != ")" {
						return nil, 0, p.malformed(t, "unbalanced "+t.text)
					}
					if len(cur) > 0 || len(args) > 0 {
						args = append(args, cur)
					}
					return args, i, nil
				}
				depth--
			case ",":
				if depth == 0 {
					args = append(args, cur)
					cur = nil
					continue
				}
			}
		}
		cur = append(cur, t)
	}

	return nil, 0, p.malformed(p.toks[open], "unterminated argument list")
}

// qualifiedName reads 'a.b.c;' starting at i and returns the index of the ';'
func (p *parser) qualifiedName(i int) (string, int, error) {
	var parts []string
	for ; i < len(p.toks); i++ {
		t := p.toks[i]
		switch {
		case t.kind == tokIdent:
			parts = append(parts, t.text)
		case t.is(tokPunct, "."):
		case t.is(tokPunct, "*"):
			parts = append(parts, "*")
		case t.is(tokPunct, ";"):
			if len(parts) == 0 {
				return "", 0, p.malformed(t, "empty name")
			}
			return strings.Join(parts, "."), i, nil
		default:
			return "", 0, p.malformed(t, "unexpected "+t.text)
		}
	}
	return "", 0, fmt.Errorf("%w: unterminated declaration", ErrMalformedSource)
}

func (p *parser) malformed(t token, reason string) error {
	return malformedAt(p.src, t.start, reason)
}

func stringArg(arg []token) (token, bool) {
	if len(arg) != 1 || arg[0].kind != tokString {
		return token{}, false
	}
	return arg[0], true
}
