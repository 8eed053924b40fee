package hierarchy

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Method is a declared method, name plus descriptor
type Method struct {
	Name       string `yaml:"name"`
	Descriptor string `yaml:"descriptor"`
}

// TypeInfo is the precomputed shape of one type
type TypeInfo struct {
	Name       string   `yaml:"name"`
	Super      string   `yaml:"super,omitempty"`
	Interfaces []string `yaml:"interfaces,omitempty"`
	Interface  bool     `yaml:"interface,omitempty"`
	Enum       bool     `yaml:"enum,omitempty"`
	Methods    []Method `yaml:"methods,omitempty"`
}

type typeTable struct {
	Types []*TypeInfo `yaml:"types"`
}

// MapProvider is a Provider over an in-memory symbol table
type MapProvider struct {
	types map[string]*TypeInfo
}

// NewMapProvider returns a MapProvider holding types
func NewMapProvider(types ...*TypeInfo) *MapProvider {
	p := &MapProvider{types: make(map[string]*TypeInfo, len(types))}
	for _, t := range types {
		p.Add(t)
	}
	return p
}

// Add stores t, replacing any previous entry of the same name
func (p *MapProvider) Add(t *TypeInfo) {
	p.types[t.Name] = t
}

// Len returns the number of known types
func (p *MapProvider) Len() int {
	return len(p.types)
}

// Types returns every known type sorted by name
func (p *MapProvider) Types() []*TypeInfo {
	types := make([]*TypeInfo, 0, len(p.types))
	for _, t := range p.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		return types[i].Name < types[j].Name
	})
	return types
}

func (p *MapProvider) lookup(typ string) (*TypeInfo, error) {
	t, ok := p.types[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, typ)
	}
	return t, nil
}

func (p *MapProvider) Interfaces(typ string) ([]string, error) {
	t, err := p.lookup(typ)
	if err != nil {
		return nil, err
	}
	return t.Interfaces, nil
}

func (p *MapProvider) Superclass(typ string) (string, error) {
	t, err := p.lookup(typ)
	if err != nil {
		return "", err
	}
	if t.Interface {
		return "", nil
	}
	return t.Super, nil
}

func (p *MapProvider) HasDeclaredMethod(typ, name string, params []string) (bool, error) {
	t, err := p.lookup(typ)
	if err != nil {
		return false, err
	}
	want := "(" + strings.Join(params, "") + ")"
	for _, m := range t.Methods {
		if m.Name == name && strings.HasPrefix(m.Descriptor, want) {
			return true, nil
		}
	}
	return false, nil
}

func (p *MapProvider) IsEnum(typ string) (bool, error) {
	t, err := p.lookup(typ)
	if err != nil {
		return false, err
	}
	return t.Enum, nil
}

// ReadTypes decodes a YAML type table
func ReadTypes(r io.Reader) (*MapProvider, error) {
	var table typeTable
	if err := yaml.NewDecoder(r).Decode(&table); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode type table")
	}
	for i, t := range table.Types {
		if t == nil || t.Name == "" {
			return nil, errors.Errorf("type table entry %d has no name", i)
		}
	}
	return NewMapProvider(table.Types...), nil
}

// LoadTypes reads a YAML type table from path
func LoadTypes(path string) (*MapProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open type table %s", path)
	}
	defer f.Close()
	return ReadTypes(f)
}

// WriteTypes encodes the table as YAML
func (p *MapProvider) WriteTypes(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(typeTable{Types: p.Types()}); err != nil {
		return errors.Wrap(err, "failed to encode type table")
	}
	return enc.Close()
}
