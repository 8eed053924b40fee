package classfile

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/blacktop/asmremap/pkg/hierarchy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClass struct {
	access     AccessFlags
	name       string
	super      string
	interfaces []string
	fields     []Member
	methods    []Member
}

type poolWriter struct {
	buf   bytes.Buffer
	count uint16
	utf   map[string]uint16
	class map[string]uint16
}

func newPool() *poolWriter {
	return &poolWriter{count: 1, utf: make(map[string]uint16), class: make(map[string]uint16)}
}

func (p *poolWriter) utf8(s string) uint16 {
	if idx, ok := p.utf[s]; ok {
		return idx
	}
	p.buf.WriteByte(tagUtf8)
	binary.Write(&p.buf, binary.BigEndian, uint16(len(s)))
	p.buf.WriteString(s)
	p.utf[s] = p.count
	p.count++
	return p.utf[s]
}

func (p *poolWriter) classRef(name string) uint16 {
	if idx, ok := p.class[name]; ok {
		return idx
	}
	ref := p.utf8(name)
	p.buf.WriteByte(tagClass)
	binary.Write(&p.buf, binary.BigEndian, ref)
	p.class[name] = p.count
	p.count++
	return p.class[name]
}

func (p *poolWriter) long(v uint64) {
	p.buf.WriteByte(tagLong)
	binary.Write(&p.buf, binary.BigEndian, v)
	p.count += 2
}

func (p *poolWriter) str(s string) {
	ref := p.utf8(s)
	p.buf.WriteByte(tagString)
	binary.Write(&p.buf, binary.BigEndian, ref)
	p.count++
}

func buildClass(tc testClass) []byte {
	p := newPool()
	p.long(42)
	p.str("hello")
	this := p.classRef(tc.name)
	var super uint16
	if tc.super != "" {
		super = p.classRef(tc.super)
	}
	var ifaces []uint16
	for _, i := range tc.interfaces {
		ifaces = append(ifaces, p.classRef(i))
	}
	codeAttr := p.utf8("Code")

	var body bytes.Buffer
	be := binary.BigEndian
	binary.Write(&body, be, tc.access)
	binary.Write(&body, be, this)
	binary.Write(&body, be, super)
	binary.Write(&body, be, uint16(len(ifaces)))
	for _, i := range ifaces {
		binary.Write(&body, be, i)
	}

	writeMembers := func(members []Member, withAttr bool) {
		binary.Write(&body, be, uint16(len(members)))
		for _, m := range members {
			binary.Write(&body, be, m.Access)
			binary.Write(&body, be, p.utf8(m.Name))
			binary.Write(&body, be, p.utf8(m.Descriptor))
			if withAttr {
				binary.Write(&body, be, uint16(1))
				binary.Write(&body, be, codeAttr)
				binary.Write(&body, be, uint32(3))
				body.Write([]byte{0xb1, 0x00, 0x00})
			} else {
				binary.Write(&body, be, uint16(0))
			}
		}
	}
	writeMembers(tc.fields, false)
	writeMembers(tc.methods, true)
	binary.Write(&body, be, uint16(0))

	var out bytes.Buffer
	binary.Write(&out, be, uint32(0xcafebabe))
	binary.Write(&out, be, uint16(0))
	binary.Write(&out, be, uint16(61))
	binary.Write(&out, be, p.count)
	out.Write(p.buf.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}

var (
	entityLike = testClass{
		access:  AccPublic | AccInterface | AccAbstract,
		name:    "net/minecraft/world/EntityLike",
		super:   "java/lang/Object",
		methods: []Member{{Access: AccPublic | AccAbstract, Name: "getUuid", Descriptor: "()Ljava/util/UUID;"}},
	}
	entity = testClass{
		access:     AccPublic | AccAbstract | AccSuper,
		name:       "net/minecraft/entity/Entity",
		super:      "java/lang/Object",
		interfaces: []string{"net/minecraft/world/EntityLike"},
		fields:     []Member{{Access: AccPrivate, Name: "id", Descriptor: "I"}},
		methods: []Member{
			{Access: AccPublic, Name: "getUuid", Descriptor: "()Ljava/util/UUID;"},
			{Access: AccPublic, Name: "setPos", Descriptor: "(DDD)V"},
		},
	}
	player = testClass{
		access: AccPublic | AccSuper,
		name:   "net/minecraft/entity/player/PlayerEntity",
		super:  "net/minecraft/entity/Entity",
	}
	formatting = testClass{
		access: AccPublic | AccFinal | AccSuper | AccEnum,
		name:   "net/minecraft/util/Formatting",
		super:  "java/lang/Enum",
		methods: []Member{
			{Access: AccPublic | AccStatic, Name: "values", Descriptor: "()[Lnet/minecraft/util/Formatting;"},
		},
	}
)

func TestParse(t *testing.T) {
	c, err := Parse(buildClass(entity))
	require.NoError(t, err)

	assert.Equal(t, uint16(61), c.Major)
	assert.Equal(t, "net/minecraft/entity/Entity", c.Name)
	assert.Equal(t, "java/lang/Object", c.Super)
	assert.Equal(t, []string{"net/minecraft/world/EntityLike"}, c.Interfaces)
	assert.False(t, c.IsInterface())
	assert.False(t, c.IsEnum())
	assert.Equal(t, entity.fields, c.Fields)
	assert.Equal(t, entity.methods, c.Methods)

	assert.True(t, c.DeclaresMethod("setPos", []string{"D", "D", "D"}))
	assert.False(t, c.DeclaresMethod("setPos", []string{"D"}))
	assert.True(t, c.DeclaresMethod("getUuid", nil))

	iface, err := Parse(buildClass(entityLike))
	require.NoError(t, err)
	assert.True(t, iface.IsInterface())

	enum, err := Parse(buildClass(formatting))
	require.NoError(t, err)
	assert.True(t, enum.IsEnum())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("PK\x03\x04"))
	assert.Error(t, err)

	data := buildClass(entity)
	_, err = Parse(data[:len(data)/2])
	assert.Error(t, err)
}

func writeJar(t *testing.T, path string, classes ...testClass) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, tc := range classes {
		w, err := zw.Create(tc.name + ".class")
		require.NoError(t, err)
		_, err = w.Write(buildClass(tc))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestClasspath(t *testing.T) {
	tmp := t.TempDir()

	jar := filepath.Join(tmp, "named.jar")
	writeJar(t, jar, entityLike, entity, formatting)

	dir := filepath.Join(tmp, "classes")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "net/minecraft/entity/player"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "net/minecraft/entity/player/PlayerEntity.class"), buildClass(player), 0o644))

	cp, err := Open(dir, jar)
	require.NoError(t, err)
	defer cp.Close()

	assert.Equal(t, []string{
		"net/minecraft/entity/Entity",
		"net/minecraft/entity/player/PlayerEntity",
		"net/minecraft/util/Formatting",
		"net/minecraft/world/EntityLike",
	}, cp.Names())

	super, err := cp.Superclass("net/minecraft/entity/player/PlayerEntity")
	require.NoError(t, err)
	assert.Equal(t, "net/minecraft/entity/Entity", super)

	super, err = cp.Superclass("net/minecraft/world/EntityLike")
	require.NoError(t, err)
	assert.Empty(t, super)

	ok, err := cp.IsEnum("net/minecraft/util/Formatting")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = cp.Interfaces("java/lang/Object")
	assert.ErrorIs(t, err, hierarchy.ErrTypeNotFound)

	got, err := hierarchy.NewResolver(cp).DeclaringType("net/minecraft/entity/player/PlayerEntity", "getUuid", nil)
	require.NoError(t, err)
	assert.Equal(t, "net/minecraft/world/EntityLike", got)

	types, err := cp.Types()
	require.NoError(t, err)
	assert.Equal(t, 4, types.Len())
	has, err := types.HasDeclaredMethod("net/minecraft/entity/Entity", "setPos", []string{"D", "D", "D"})
	require.NoError(t, err)
	assert.True(t, has)
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.jar"))
	assert.Error(t, err)

	notJar := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(notJar, []byte("hello world"), 0o644))
	_, err = Open(notJar)
	assert.Error(t, err)
}
