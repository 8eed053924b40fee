// Package proguard parses readable-namespace mapping tables in the proguard
// dialect published alongside each game release.
//
//	# comment
//	net.minecraft.Util -> ad:
//	    java.util.concurrent.atomic.AtomicInteger WORKER_COUNT -> c
//	    37:43:java.util.function.Function memoize(java.util.function.Function) -> a
//
// The dialect only relates official and named names, so every record it
// produces carries the official name in its intermediate slot.
package proguard

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blacktop/asmremap/pkg/descriptor"
	"github.com/blacktop/asmremap/pkg/mappings"
	"github.com/pkg/errors"
)

const (
	arrow       = " -> "
	maxLineSize = 1 << 20
)

type line struct {
	num    int
	member bool
	text   string
}

// ParseFile parses a proguard table from disk
func ParseFile(path string) (*mappings.Records, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a proguard table.
//
// The first pass collects every class header; the second attaches member
// rows to the most recent header and derives each member's official
// signature by swapping readable class names for their official ones.
func Parse(r io.Reader) (*mappings.Records, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	recs := &mappings.Records{}
	byOfficial := make(map[string]mappings.ClassMapping)
	namedToOfficial := make(map[string]string)

	for _, l := range lines {
		if l.member {
			continue
		}
		cm, err := parseClass(l)
		if err != nil {
			return nil, err
		}
		byOfficial[cm.Official] = cm
		namedToOfficial[cm.Named] = cm.Official
		recs.Classes = append(recs.Classes, cm)
	}

	toOfficial := descriptor.MapLookup(namedToOfficial)

	var active *mappings.ClassMapping
	for _, l := range lines {
		if !l.member {
			cm, _ := parseClass(l)
			cm = byOfficial[cm.Official]
			active = &cm
			continue
		}
		if active == nil {
			return nil, fmt.Errorf("%w: line %d", mappings.ErrNoActiveClass, l.num)
		}

		left, official, ok := strings.Cut(l.text, arrow)
		if !ok || official == "" {
			return nil, malformed(l, "missing '->'")
		}
		typ, rest, ok := strings.Cut(left, " ")
		if !ok || rest == "" {
			return nil, malformed(l, "expected '<type> <name>'")
		}

		if strings.Contains(rest, "(") {
			m, err := parseMethod(l, typ, rest, official, toOfficial)
			if err != nil {
				return nil, err
			}
			m.Owner = *active
			recs.Methods = append(recs.Methods, m)
			continue
		}

		desc := descriptor.FromReadable(typ)
		officialDesc, err := descriptor.MapClassNames(desc, toOfficial)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", l.num, err)
		}
		recs.Fields = append(recs.Fields, mappings.FieldMapping{
			Owner:              *active,
			Descriptor:         desc,
			OfficialDescriptor: officialDesc,
			Official:           official,
			Intermediate:       official,
			Named:              rest,
		})
	}

	return recs, nil
}

func parseClass(l line) (mappings.ClassMapping, error) {
	named, official, ok := strings.Cut(l.text, arrow)
	if !ok || !strings.HasSuffix(official, ":") {
		return mappings.ClassMapping{}, malformed(l, "expected '<name> -> <official>:'")
	}
	official = descriptor.InternalName(strings.TrimSuffix(official, ":"))
	return mappings.ClassMapping{
		Official:     official,
		Intermediate: official,
		Named:        descriptor.InternalName(named),
	}, nil
}

// parseMethod handles '[start:end:]<ret> <name>(<params>)[:origStart:origEnd]'
func parseMethod(l line, ret, rest, official string, toOfficial descriptor.NameLookup) (mappings.MethodMapping, error) {
	if i := strings.LastIndexByte(ret, ':'); i >= 0 {
		ret = ret[i+1:]
	}

	open := strings.IndexByte(rest, '(')
	closing := strings.IndexByte(rest, ')')
	if open <= 0 || closing < open {
		return mappings.MethodMapping{}, malformed(l, "unbalanced parameter list")
	}
	name := rest[:open]

	var sb strings.Builder
	sb.WriteByte('(')
	if params := strings.TrimSpace(rest[open+1 : closing]); params != "" {
		for _, p := range strings.Split(params, ",") {
			sb.WriteString(descriptor.FromReadable(strings.TrimSpace(p)))
		}
	}
	sb.WriteByte(')')
	sb.WriteString(descriptor.FromReadable(ret))

	sig := sb.String()
	if _, err := descriptor.Parse(sig); err != nil {
		return mappings.MethodMapping{}, fmt.Errorf("line %d: %w", l.num, err)
	}
	officialSig, err := descriptor.MapClassNames(sig, toOfficial)
	if err != nil {
		return mappings.MethodMapping{}, fmt.Errorf("line %d: %w", l.num, err)
	}

	return mappings.MethodMapping{
		Signature:         sig,
		OfficialSignature: officialSig,
		Official:          official,
		Intermediate:      official,
		Named:             name,
	}, nil
}

func readLines(r io.Reader) ([]line, error) {
	var lines []line

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	num := 0
	for scanner.Scan() {
		num++
		text := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines = append(lines, line{
			num:    num,
			member: text[0] == ' ' || text[0] == '\t',
			text:   trimmed,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read proguard table")
	}

	return lines, nil
}

func malformed(l line, reason string) error {
	return fmt.Errorf("%w: line %d: %s: %q", mappings.ErrMalformedRow, l.num, reason, l.text)
}
