// Package tiny parses intermediate-namespace mapping tables in the tiny v2
// dialect: a header line followed by tab separated rows whose leading
// whitespace encodes nesting.
//
//	tiny	2	0	official	intermediary	named
//	c	a	net/minecraft/class_1297	net/minecraft/entity/Entity
//		m	(La;)Z	a	method_5722	isTeammate
//			p	1		other
//		f	I	b	field_5986	id
package tiny

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/asmremap/internal/magic"
	"github.com/blacktop/asmremap/pkg/descriptor"
	"github.com/blacktop/asmremap/pkg/mappings"
	"github.com/pkg/errors"
)

// EntryName is the archive entry holding the table inside a mappings jar
const EntryName = "mappings/mappings.tiny"

const maxLineSize = 1 << 20

type row struct {
	line  int
	depth int
	kind  byte
	cols  []string
}

func (r row) col(i int) string {
	if i < len(r.cols) {
		return r.cols[i]
	}
	return ""
}

// ParseFile parses a tiny table from a mappings jar or a bare .tiny file
func ParseFile(path string) (*mappings.Records, error) {
	isZip, err := magic.IsZip(path)
	if err != nil {
		return nil, err
	}

	if !isZip {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open %s", path)
		}
		defer f.Close()
		return Parse(f)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open archive %s", path)
	}
	defer zr.Close()

	entry, err := zr.Open(EntryName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find %s in %s", EntryName, path)
	}
	defer entry.Close()

	return Parse(entry)
}

// Parse reads a tiny table.
//
// The first pass collects every top level class row; the second attaches
// method and field rows to the most recent top level class, translating the
// official class names in their descriptors into named ones.
func Parse(r io.Reader) (*mappings.Records, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}

	recs := &mappings.Records{}
	byNamed := make(map[string]mappings.ClassMapping)
	officialToNamed := make(map[string]string)

	for _, rw := range rows {
		if rw.depth != 0 || rw.kind != 'c' {
			continue
		}
		if len(rw.cols) < 3 {
			return nil, fmt.Errorf("%w: line %d: class row needs at least 3 columns", mappings.ErrMalformedRow, rw.line)
		}
		named := rw.col(3)
		if named == "" {
			named = rw.col(2)
		}
		cm := mappings.ClassMapping{
			Official:     rw.col(1),
			Intermediate: rw.col(2),
			Named:        named,
		}
		byNamed[cm.Named] = cm
		officialToNamed[cm.Official] = cm.Named
		recs.Classes = append(recs.Classes, cm)
	}

	toNamed := descriptor.MapLookup(officialToNamed)

	var active *mappings.ClassMapping
	for _, rw := range rows {
		switch rw.kind {
		case 'c':
			if rw.depth == 0 {
				named := rw.col(3)
				if named == "" {
					named = rw.col(2)
				}
				cm := byNamed[named]
				active = &cm
			}
			// nested class rows are comments
			continue
		case 'p', 'v':
			continue
		}

		if active == nil {
			return nil, fmt.Errorf("%w: line %d", mappings.ErrNoActiveClass, rw.line)
		}
		if len(rw.cols) < 4 {
			return nil, fmt.Errorf("%w: line %d: member row needs at least 4 columns", mappings.ErrMalformedRow, rw.line)
		}

		desc, official, intermediate, named := rw.col(1), rw.col(2), rw.col(3), rw.col(4)
		if named == "" {
			named = intermediate
		}
		namedDesc, err := descriptor.MapClassNames(desc, toNamed)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", rw.line, err)
		}

		switch rw.kind {
		case 'm':
			recs.Methods = append(recs.Methods, mappings.MethodMapping{
				Owner:             *active,
				Signature:         namedDesc,
				OfficialSignature: desc,
				Official:          official,
				Intermediate:      intermediate,
				Named:             named,
			})
		case 'f':
			recs.Fields = append(recs.Fields, mappings.FieldMapping{
				Owner:              *active,
				Descriptor:         namedDesc,
				OfficialDescriptor: desc,
				Official:           official,
				Intermediate:       intermediate,
				Named:              named,
			})
		}
	}

	return recs, nil
}

func readRows(r io.Reader) ([]row, error) {
	var rows []row

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if line == 1 {
			if err := checkHeader(text); err != nil {
				return nil, err
			}
			continue
		}

		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			continue
		}

		cols := strings.Split(trimmed, "\t")
		if len(cols[0]) != 1 || !strings.Contains("cmfpv", cols[0]) {
			return nil, fmt.Errorf("%w: line %d: unknown row kind %q", mappings.ErrMalformedRow, line, cols[0])
		}

		rows = append(rows, row{
			line:  line,
			depth: len(text) - len(strings.TrimLeft(text, " \t")),
			kind:  cols[0][0],
			cols:  cols,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read tiny table")
	}

	return rows, nil
}

func checkHeader(header string) error {
	cols := strings.Split(header, "\t")
	switch {
	case len(cols) > 0 && cols[0] == "v1":
		return fmt.Errorf("%w: tiny v1 tables are not supported", mappings.ErrMalformedRow)
	case len(cols) >= 3 && cols[0] == "tiny":
		log.WithFields(log.Fields{
			"version":    cols[1] + "." + cols[2],
			"namespaces": strings.Join(cols[3:], ","),
		}).Debug("Parsing tiny table")
	}
	return nil
}
