package classfile

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/asmremap/internal/magic"
	"github.com/blacktop/asmremap/pkg/hierarchy"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// DefaultCacheSize is the number of parsed classes a Classpath keeps
const DefaultCacheSize = 4096

type root interface {
	open(name string) (io.ReadCloser, error)
	names() []string
	io.Closer
}

type dirRoot struct {
	dir string
}

func (d dirRoot) open(name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(d.dir, filepath.FromSlash(name)+".class"))
}

func (d dirRoot) names() []string {
	var names []string
	filepath.WalkDir(d.dir, func(path string, e fs.DirEntry, err error) error {
		if err != nil || e.IsDir() || !strings.HasSuffix(path, ".class") {
			return nil
		}
		rel, err := filepath.Rel(d.dir, path)
		if err != nil {
			return nil
		}
		names = append(names, strings.TrimSuffix(filepath.ToSlash(rel), ".class"))
		return nil
	})
	return names
}

func (dirRoot) Close() error { return nil }

type jarRoot struct {
	zr    *zip.ReadCloser
	files map[string]*zip.File
}

func openJar(path string) (*jarRoot, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open jar %s", path)
	}
	j := &jarRoot{zr: zr, files: make(map[string]*zip.File)}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".class") {
			j.files[strings.TrimSuffix(f.Name, ".class")] = f
		}
	}
	return j, nil
}

func (j *jarRoot) open(name string) (io.ReadCloser, error) {
	f, ok := j.files[name]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return f.Open()
}

func (j *jarRoot) names() []string {
	names := make([]string, 0, len(j.files))
	for name := range j.files {
		names = append(names, name)
	}
	return names
}

func (j *jarRoot) Close() error { return j.zr.Close() }

// Classpath is a hierarchy.Provider backed by compiled classes in jars and
// directories. Classes are parsed on first use and kept in an LRU cache; it
// is safe for concurrent use.
type Classpath struct {
	roots []root
	cache *lru.Cache[string, *Class]
}

// Open builds a Classpath over the given jars and directories, searched in order
func Open(paths ...string) (*Classpath, error) {
	cache, err := lru.New[string, *Class](DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	cp := &Classpath{cache: cache}

	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			cp.Close()
			return nil, errors.Wrapf(err, "invalid classpath entry %s", path)
		}
		if fi.IsDir() {
			cp.roots = append(cp.roots, dirRoot{dir: path})
			continue
		}
		isZip, err := magic.IsZip(path)
		if err != nil {
			cp.Close()
			return nil, err
		}
		if !isZip {
			cp.Close()
			return nil, fmt.Errorf("classpath entry %s is neither a directory nor a jar", path)
		}
		j, err := openJar(path)
		if err != nil {
			cp.Close()
			return nil, err
		}
		log.WithField("jar", path).WithField("classes", len(j.files)).Debug("Opened classpath jar")
		cp.roots = append(cp.roots, j)
	}

	return cp, nil
}

// Close releases any open jars
func (cp *Classpath) Close() error {
	var first error
	for _, r := range cp.roots {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Class returns the parsed class for an internal name
func (cp *Classpath) Class(name string) (*Class, error) {
	if c, ok := cp.cache.Get(name); ok {
		return c, nil
	}

	for _, r := range cp.roots {
		rc, err := r.open(name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, errors.Wrapf(err, "failed to open class %s", name)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read class %s", name)
		}
		c, err := Parse(data)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse class %s", name)
		}
		cp.cache.Add(name, c)
		return c, nil
	}

	return nil, fmt.Errorf("%w: %s", hierarchy.ErrTypeNotFound, name)
}

// Names returns every class name on the classpath, sorted
func (cp *Classpath) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range cp.roots {
		for _, name := range r.names() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func (cp *Classpath) Interfaces(typ string) ([]string, error) {
	c, err := cp.Class(typ)
	if err != nil {
		return nil, err
	}
	return c.Interfaces, nil
}

func (cp *Classpath) Superclass(typ string) (string, error) {
	c, err := cp.Class(typ)
	if err != nil {
		return "", err
	}
	if c.IsInterface() {
		return "", nil
	}
	return c.Super, nil
}

func (cp *Classpath) HasDeclaredMethod(typ, name string, params []string) (bool, error) {
	c, err := cp.Class(typ)
	if err != nil {
		return false, err
	}
	return c.DeclaresMethod(name, params), nil
}

func (cp *Classpath) IsEnum(typ string) (bool, error) {
	c, err := cp.Class(typ)
	if err != nil {
		return false, err
	}
	return c.IsEnum(), nil
}

// TypeInfo converts a parsed class into a type table entry
func (c *Class) TypeInfo() *hierarchy.TypeInfo {
	t := &hierarchy.TypeInfo{
		Name:       c.Name,
		Interfaces: c.Interfaces,
		Interface:  c.IsInterface(),
		Enum:       c.IsEnum(),
	}
	if !t.Interface {
		t.Super = c.Super
	}
	for _, m := range c.Methods {
		t.Methods = append(t.Methods, hierarchy.Method{Name: m.Name, Descriptor: m.Descriptor})
	}
	return t
}

// Types extracts a type table covering every class on the classpath
func (cp *Classpath) Types() (*hierarchy.MapProvider, error) {
	p := hierarchy.NewMapProvider()
	for _, name := range cp.Names() {
		c, err := cp.Class(name)
		if err != nil {
			return nil, err
		}
		p.Add(c.TypeInfo())
	}
	return p, nil
}
