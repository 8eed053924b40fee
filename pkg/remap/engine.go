// Package remap rewrites ASMifier dump source so that every reference into the
// mapped code base goes through a runtime mapping call,
//
//	map("<intermediate>", "<named>", "<final>")
//
// instead of a hard coded name.
package remap

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/asmremap/pkg/descriptor"
	"github.com/blacktop/asmremap/pkg/hierarchy"
	"github.com/blacktop/asmremap/pkg/mappings"
)

const (
	// DefaultMapMethod is the name of the injected mapping function
	DefaultMapMethod = "map"
	// DefaultPrefix is the internal package prefix of the mapped code base
	DefaultPrefix = "net/minecraft/"
)

var (
	// ErrAlreadyRemapped is returned for source that already imports the mapping function
	ErrAlreadyRemapped = errors.New("source is already remapped")
	// ErrMalformedSource is returned for dump source the lexer or parser cannot follow
	ErrMalformedSource = errors.New("malformed dump source")
)

// Config controls the shape of the rewritten source
type Config struct {
	// Package replaces the dump's package declaration
	Package string
	// MapUtil is the fully qualified class declaring the mapping function
	MapUtil string
	// MapMethod is the mapping function's name
	MapMethod string
	// Prefix limits rewriting to types under this internal package prefix
	Prefix string
}

func (c *Config) withDefaults() Config {
	conf := Config{}
	if c != nil {
		conf = *c
	}
	if conf.MapMethod == "" {
		conf.MapMethod = DefaultMapMethod
	}
	if conf.Prefix == "" {
		conf.Prefix = DefaultPrefix
	}
	return conf
}

// Stats counts what a Rewrite did
type Stats struct {
	Methods      int
	Fields       int
	Classes      int
	InnerClasses int
	// Unresolved counts member references left as plain strings
	Unresolved int
}

// Add accumulates o into s
func (s *Stats) Add(o *Stats) {
	if o == nil {
		return
	}
	s.Methods += o.Methods
	s.Fields += o.Fields
	s.Classes += o.Classes
	s.InnerClasses += o.InnerClasses
	s.Unresolved += o.Unresolved
}

// Engine rewrites dump source against two indices: intermediate is keyed on
// named names and translates the dump's references into the intermediate
// namespace; final is keyed on official names and supplies the display names.
//
// An Engine holds no per-call state and is safe for concurrent use.
type Engine struct {
	intermediate *mappings.Index
	final        *mappings.Index
	resolver     *hierarchy.Resolver
	conf         Config
}

// NewEngine returns an Engine. resolver may be nil, in which case inherited
// members that are missing from the intermediate index are left unresolved.
func NewEngine(intermediate, final *mappings.Index, resolver *hierarchy.Resolver, conf *Config) *Engine {
	return &Engine{
		intermediate: intermediate,
		final:        final,
		resolver:     resolver,
		conf:         conf.withDefaults(),
	}
}

// Config returns the engine's effective configuration
func (e *Engine) Config() Config {
	return e.conf
}

type edit struct {
	start int
	end   int
	text  string
}

// Rewrite transforms one dump source file
func (e *Engine) Rewrite(src string) (string, *Stats, error) {
	toks, err := lex(src)
	if err != nil {
		return "", nil, err
	}
	occs, err := parseOccurrences(src, toks, e.conf.MapMethod)
	if err != nil {
		return "", nil, err
	}

	imp := e.staticImport()
	for _, occ := range occs {
		if occ.kind == occStaticImport && occ.name == imp {
			return "", nil, fmt.Errorf("%w: found 'import static %s'", ErrAlreadyRemapped, imp)
		}
	}

	var (
		stats    Stats
		edits    []edit
		consumed = make(map[int]bool)
		pkg      *occurrence
	)

	for i := range occs {
		occ := &occs[i]
		switch occ.kind {
		case occPackage:
			pkg = occ
		case occMapCall:
			for _, lit := range occ.literals {
				consumed[lit.start] = true
			}
		case occMethod:
			consumed[occ.target.start] = true
			text, err := e.method(occ, &stats)
			if err != nil {
				return "", nil, err
			}
			if text != "" {
				edits = append(edits, edit{occ.target.start, occ.target.end, text})
			}
		case occField:
			consumed[occ.target.start] = true
			text, err := e.field(occ, &stats)
			if err != nil {
				return "", nil, err
			}
			if text != "" {
				edits = append(edits, edit{occ.target.start, occ.target.end, text})
			}
		case occInnerClass:
			consumed[occ.target.start] = true
			if text := e.innerClass(occ, &stats); text != "" {
				edits = append(edits, edit{occ.target.start, occ.target.end, text})
			}
		}
	}

	for _, t := range toks {
		if t.kind != tokString || consumed[t.start] {
			continue
		}
		if text, n := e.spliceClasses(t); n > 0 {
			stats.Classes += n
			edits = append(edits, edit{t.start, t.end, text})
		}
	}

	header := "import static " + imp + ";"
	if pkg != nil {
		name := e.conf.Package
		if name == "" {
			name = pkg.name
		}
		edits = append(edits, edit{pkg.start, pkg.end, "package " + name + ";\n" + header})
	} else {
		var sb strings.Builder
		if e.conf.Package != "" {
			sb.WriteString("package " + e.conf.Package + ";\n")
		}
		sb.WriteString(header + "\n")
		edits = append(edits, edit{0, 0, sb.String()})
	}

	out, err := apply(src, edits)
	if err != nil {
		return "", nil, err
	}
	return out, &stats, nil
}

func (e *Engine) staticImport() string {
	return e.conf.MapUtil + "." + e.conf.MapMethod
}

func (e *Engine) inScope(owner string) bool {
	return strings.HasPrefix(owner, e.conf.Prefix)
}

// method resolves a method reference. It returns "" when the name stays a
// plain string.
func (e *Engine) method(occ *occurrence, stats *Stats) (string, error) {
	if !e.inScope(occ.owner) {
		return "", nil
	}
	desc, err := descriptor.Parse(occ.desc)
	if err != nil {
		return "", err
	}

	ctx := log.WithFields(log.Fields{"owner": occ.owner, "method": occ.name + occ.desc})

	switch occ.name {
	case "<init>", "<clinit>":
		return "", nil
	}

	m, ok := e.intermediate.Method(occ.owner, occ.name, occ.desc)
	if !ok {
		if isEnumSynthetic(occ.owner, occ.name, desc) && e.resolver.IsEnum(occ.owner) {
			return "", nil
		}
		declaring, err := e.resolver.DeclaringType(occ.owner, occ.name, desc.ParamDescriptors())
		if err != nil {
			return "", fmt.Errorf("failed to resolve declaring type of %s.%s: %w", occ.owner, occ.name, err)
		}
		if declaring != occ.owner {
			m, ok = e.intermediate.Method(declaring, occ.name, occ.desc)
		}
		if !ok {
			ctx.WithField("declaring", declaring).Debug("Unresolved method")
			stats.Unresolved++
			return "", nil
		}
	}

	final := occ.name
	if e.final != nil {
		if fm, ok := e.final.Method(m.Owner.Official, m.Official, m.OfficialSignature); ok {
			final = fm.Named
		} else {
			ctx.Debug("Method missing from final mappings")
		}
	}

	stats.Methods++
	return e.mapCall(m.Intermediate, occ.name, final), nil
}

// isEnumSynthetic matches the compiler generated values() and valueOf(String)
func isEnumSynthetic(owner, name string, desc *descriptor.Descriptor) bool {
	self := descriptor.ObjectType(owner)
	switch name {
	case "values":
		return len(desc.Params) == 0 && desc.Return == descriptor.ArrayOf(self, 1)
	case "valueOf":
		return len(desc.Params) == 1 &&
			desc.Params[0] == descriptor.ObjectType("java/lang/String") &&
			desc.Return == self
	}
	return false
}

func (e *Engine) field(occ *occurrence, stats *Stats) (string, error) {
	if !e.inScope(occ.owner) {
		return "", nil
	}
	if _, err := descriptor.ParseType(occ.desc); err != nil {
		return "", err
	}

	stats.Fields++

	f, ok := e.intermediate.Field(occ.owner, occ.name)
	if !ok {
		log.WithFields(log.Fields{"owner": occ.owner, "field": occ.name}).Debug("Field not in mappings")
		return e.mapCall(occ.name, occ.name, occ.name), nil
	}

	final := occ.name
	if e.final != nil {
		if ff, ok := e.final.Field(f.Owner.Official, f.Official); ok {
			final = ff.Named
		}
	}
	return e.mapCall(f.Intermediate, occ.name, final), nil
}

func (e *Engine) innerClass(occ *occurrence, stats *Stats) string {
	if !e.inScope(occ.owner) {
		return ""
	}
	c, ok := e.intermediate.Class(occ.owner)
	if !ok {
		return ""
	}

	final := occ.name
	if name, ok := e.finalClassName(c); ok {
		final = simpleName(name)
	}

	stats.InnerClasses++
	return e.mapCall(simpleName(c.Intermediate), occ.name, final)
}

// finalClassName returns c's display name; never renamed classes keep their own
func (e *Engine) finalClassName(c mappings.ClassMapping) (string, bool) {
	if !c.IsObfuscated() {
		return c.Named, true
	}
	if e.final == nil {
		return "", false
	}
	fc, ok := e.final.Class(c.Official)
	if !ok {
		return "", false
	}
	return fc.Named, true
}

// simpleName returns the part of a nested class name after the last '$'
func simpleName(name string) string {
	if i := strings.LastIndexByte(name, '$'); i >= 0 {
		return name[i+1:]
	}
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func apply(src string, edits []edit) (string, error) {
	sort.SliceStable(edits, func(i, j int) bool {
		return edits[i].start < edits[j].start
	})

	var sb strings.Builder
	sb.Grow(len(src) + len(edits)*64)

	last := 0
	for _, ed := range edits {
		if ed.start < last {
			return "", fmt.Errorf("overlapping rewrites at offset %d", ed.start)
		}
		sb.WriteString(src[last:ed.start])
		sb.WriteString(ed.text)
		last = ed.end
	}
	sb.WriteString(src[last:])

	return sb.String(), nil
}
