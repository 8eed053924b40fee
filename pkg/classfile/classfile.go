// Package classfile reads the type facts the remapper needs out of compiled
// JVM class files: the class name, its superclass and interfaces, its access
// flags and the names and descriptors of its members.
//
// Method bodies and attributes are skipped.
package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/blacktop/asmremap/internal/magic"
	"github.com/blacktop/asmremap/pkg/descriptor"
)

// AccessFlags is a class or member access_flags mask
type AccessFlags uint16

const (
	AccPublic     AccessFlags = 0x0001
	AccPrivate    AccessFlags = 0x0002
	AccProtected  AccessFlags = 0x0004
	AccStatic     AccessFlags = 0x0008
	AccFinal      AccessFlags = 0x0010
	AccSuper      AccessFlags = 0x0020
	AccBridge     AccessFlags = 0x0040
	AccVarargs    AccessFlags = 0x0080
	AccNative     AccessFlags = 0x0100
	AccInterface  AccessFlags = 0x0200
	AccAbstract   AccessFlags = 0x0400
	AccStrict     AccessFlags = 0x0800
	AccSynthetic  AccessFlags = 0x1000
	AccAnnotation AccessFlags = 0x2000
	AccEnum       AccessFlags = 0x4000
	AccModule     AccessFlags = 0x8000
)

func (f AccessFlags) Has(flag AccessFlags) bool { return f&flag != 0 }

// constant pool tags
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

type header struct {
	Magic     uint32
	Minor     uint16
	Major     uint16
	PoolCount uint16
}

type classInfo struct {
	Access     AccessFlags
	ThisClass  uint16
	SuperClass uint16
}

type memberInfo struct {
	Access     AccessFlags
	Name       uint16
	Descriptor uint16
	AttrCount  uint16
}

// Member is a field or method declared by a class
type Member struct {
	Access     AccessFlags `yaml:"access,omitempty"`
	Name       string      `yaml:"name"`
	Descriptor string      `yaml:"descriptor"`
}

// Class is the parsed shape of one class file
type Class struct {
	Major      uint16
	Minor      uint16
	Access     AccessFlags
	Name       string
	Super      string
	Interfaces []string
	Fields     []Member
	Methods    []Member
}

// IsInterface reports whether the class is an interface
func (c *Class) IsInterface() bool { return c.Access.Has(AccInterface) }

// IsEnum reports whether the class is an enum
func (c *Class) IsEnum() bool { return c.Access.Has(AccEnum) }

// DeclaresMethod reports whether the class declares a method called name
// whose parameter descriptors equal params.
func (c *Class) DeclaresMethod(name string, params []string) bool {
	for _, m := range c.Methods {
		if m.Name != name {
			continue
		}
		d, err := descriptor.Parse(m.Descriptor)
		if err != nil {
			continue
		}
		got := d.ParamDescriptors()
		if len(got) != len(params) {
			continue
		}
		match := true
		for i := range got {
			if got[i] != params[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Parse decodes a class file
func Parse(data []byte) (*Class, error) {
	if !magic.IsClassData(data) {
		return nil, fmt.Errorf("not a class file: bad magic")
	}

	r := bytes.NewReader(data)

	var hdr header
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, fmt.Errorf("failed to read class file header: %w", err)
	}

	pool, err := readPool(r, int(hdr.PoolCount))
	if err != nil {
		return nil, err
	}

	var info classInfo
	if err := binary.Read(r, binary.BigEndian, &info); err != nil {
		return nil, fmt.Errorf("failed to read class info: %w", err)
	}

	c := &Class{
		Major:  hdr.Major,
		Minor:  hdr.Minor,
		Access: info.Access,
	}
	if c.Name, err = pool.className(info.ThisClass); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	if info.SuperClass != 0 {
		if c.Super, err = pool.className(info.SuperClass); err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
	}

	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read interfaces count: %w", err)
	}
	for i := 0; i < int(count); i++ {
		var idx uint16
		if err := binary.Read(r, binary.BigEndian, &idx); err != nil {
			return nil, fmt.Errorf("failed to read interface %d: %w", i, err)
		}
		iface, err := pool.className(idx)
		if err != nil {
			return nil, fmt.Errorf("interfaces: %w", err)
		}
		c.Interfaces = append(c.Interfaces, iface)
	}

	if c.Fields, err = readMembers(r, pool); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	if c.Methods, err = readMembers(r, pool); err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}

	return c, nil
}

type constant struct {
	tag  uint8
	utf8 string
	ref  uint16
}

type constantPool []constant

func (p constantPool) utf8(idx uint16) (string, error) {
	if int(idx) >= len(p) || p[idx].tag != tagUtf8 {
		return "", fmt.Errorf("constant %d is not a utf8 entry", idx)
	}
	return p[idx].utf8, nil
}

func (p constantPool) className(idx uint16) (string, error) {
	if int(idx) >= len(p) || p[idx].tag != tagClass {
		return "", fmt.Errorf("constant %d is not a class entry", idx)
	}
	return p.utf8(p[idx].ref)
}

func readPool(r *bytes.Reader, count int) (constantPool, error) {
	// entry 0 is unused
	pool := make(constantPool, count)

	for i := 1; i < count; i++ {
		tag, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("failed to read constant %d: %w", i, err)
		}
		pool[i].tag = tag

		var skip int64
		switch tag {
		case tagUtf8:
			var n uint16
			if err := binary.Read(r, binary.BigEndian, &n); err != nil {
				return nil, fmt.Errorf("failed to read utf8 length: %w", err)
			}
			buf := make([]byte, n)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("failed to read utf8 constant %d: %w", i, err)
			}
			pool[i].utf8 = string(buf)
		case tagClass:
			if err := binary.Read(r, binary.BigEndian, &pool[i].ref); err != nil {
				return nil, fmt.Errorf("failed to read class constant %d: %w", i, err)
			}
		case tagString, tagMethodType, tagModule, tagPackage:
			skip = 2
		case tagMethodHandle:
			skip = 3
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			skip = 4
		case tagLong, tagDouble:
			skip = 8
			// 8-byte constants take two slots
			i++
		default:
			return nil, fmt.Errorf("unknown constant pool tag %d at %d", tag, i)
		}
		if skip > 0 {
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return nil, err
			}
		}
	}

	return pool, nil
}

func readMembers(r *bytes.Reader, pool constantPool) ([]Member, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read count: %w", err)
	}

	members := make([]Member, 0, count)
	for i := 0; i < int(count); i++ {
		var mi memberInfo
		if err := binary.Read(r, binary.BigEndian, &mi); err != nil {
			return nil, fmt.Errorf("failed to read member %d: %w", i, err)
		}
		name, err := pool.utf8(mi.Name)
		if err != nil {
			return nil, err
		}
		desc, err := pool.utf8(mi.Descriptor)
		if err != nil {
			return nil, err
		}
		if err := skipAttributes(r, int(mi.AttrCount)); err != nil {
			return nil, err
		}
		members = append(members, Member{Access: mi.Access, Name: name, Descriptor: desc})
	}

	return members, nil
}

func skipAttributes(r *bytes.Reader, count int) error {
	for i := 0; i < count; i++ {
		var attr struct {
			Name   uint16
			Length uint32
		}
		if err := binary.Read(r, binary.BigEndian, &attr); err != nil {
			return fmt.Errorf("failed to read attribute header: %w", err)
		}
		if int64(attr.Length) > int64(r.Len()) {
			return fmt.Errorf("attribute length %d overruns class file", attr.Length)
		}
		if _, err := r.Seek(int64(attr.Length), io.SeekCurrent); err != nil {
			return err
		}
	}
	return nil
}
