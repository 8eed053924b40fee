package proguard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blacktop/asmremap/pkg/mappings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const table = `# {"fileName":"client.txt","id":"sourceFile"}
net.minecraft.world.entity.Entity -> bsr:
# {"fileName":"Entity.java","id":"sourceFile"}
    int id -> b
    net.minecraft.world.level.Level level -> c
    net.minecraft.world.entity.Entity[] passengers -> d
    123:456:boolean isAlliedTo(net.minecraft.world.entity.Entity) -> a
    457:457:boolean isAlliedTo(net.minecraft.world.entity.Entity) -> a
    12:12:void tick():88:89 -> l
    net.minecraft.world.level.Level level() -> dc
    void setPos(double,double,double) -> e
net.minecraft.world.level.Level -> bss:
    1:1:java.lang.String toString() -> toString
net.minecraft.client.main.Main -> net.minecraft.client.main.Main:
    10:20:void main(java.lang.String[]) -> main
`

func TestParse(t *testing.T) {
	recs, err := Parse(strings.NewReader(table))
	require.NoError(t, err)

	require.Len(t, recs.Classes, 3)
	entity := mappings.ClassMapping{
		Official:     "bsr",
		Intermediate: "bsr",
		Named:        "net/minecraft/world/entity/Entity",
	}
	assert.Equal(t, entity, recs.Classes[0])
	assert.True(t, recs.Classes[0].IsObfuscated())
	assert.False(t, recs.Classes[2].IsObfuscated())

	require.Len(t, recs.Fields, 3)
	assert.Equal(t, mappings.FieldMapping{
		Owner:              entity,
		Descriptor:         "I",
		OfficialDescriptor: "I",
		Official:           "b",
		Intermediate:       "b",
		Named:              "id",
	}, recs.Fields[0])
	assert.Equal(t, "Lnet/minecraft/world/level/Level;", recs.Fields[1].Descriptor)
	assert.Equal(t, "Lbss;", recs.Fields[1].OfficialDescriptor)
	assert.Equal(t, "[Lbsr;", recs.Fields[2].OfficialDescriptor)

	require.Len(t, recs.Methods, 7)
	allied := recs.Methods[0]
	assert.Equal(t, "isAlliedTo", allied.Named)
	assert.Equal(t, "a", allied.Official)
	assert.Equal(t, "(Lnet/minecraft/world/entity/Entity;)Z", allied.Signature)
	assert.Equal(t, "(Lbsr;)Z", allied.OfficialSignature)
	assert.Equal(t, entity, allied.Owner)

	tick := recs.Methods[2]
	assert.Equal(t, "tick", tick.Named)
	assert.Equal(t, "()V", tick.Signature)

	level := recs.Methods[3]
	assert.Equal(t, "()Lbss;", level.OfficialSignature)

	assert.Equal(t, "(DDD)V", recs.Methods[4].Signature)
	assert.Equal(t, "([Ljava/lang/String;)V", recs.Methods[6].OfficialSignature)
}

func TestLineNumberPrefix(t *testing.T) {
	in := "pkg.Readable -> a:\n    123:456:void method(int) -> b\n"

	recs, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs.Methods, 1)

	m := recs.Methods[0]
	assert.Equal(t, "b", m.Official)
	assert.Equal(t, "method", m.Named)
	assert.Equal(t, "(I)V", m.OfficialSignature)
	assert.Equal(t, "pkg/Readable", m.Owner.Named)
}

func TestIndexes(t *testing.T) {
	recs, err := Parse(strings.NewReader(table))
	require.NoError(t, err)

	// repeated inline ranges collapse onto one record
	official, err := mappings.NewIndex(mappings.OfficialPivot, recs)
	require.NoError(t, err)
	assert.Equal(t, 6, official.Stats().Methods)

	m, ok := official.Method("bsr", "a", "(Lbsr;)Z")
	require.True(t, ok)
	assert.Equal(t, "isAlliedTo", m.Named)

	f, ok := official.Field("bsr", "c")
	require.True(t, ok)
	assert.Equal(t, "level", f.Named)

	c, ok := official.Class("net/minecraft/client/main/Main")
	require.True(t, ok)
	assert.Equal(t, "net/minecraft/client/main/Main", c.Named)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		err  error
	}{
		{
			name: "member before class",
			in:   "    int id -> b\n",
			err:  mappings.ErrNoActiveClass,
		},
		{
			name: "class without colon",
			in:   "a.B -> c\n",
			err:  mappings.ErrMalformedRow,
		},
		{
			name: "member without arrow",
			in:   "a.B -> c:\n    int id\n",
			err:  mappings.ErrMalformedRow,
		},
		{
			name: "unbalanced params",
			in:   "a.B -> c:\n    void run)( -> d\n",
			err:  mappings.ErrMalformedRow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.txt")
	require.NoError(t, os.WriteFile(path, []byte(table), 0o644))

	recs, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, recs.Classes, 3)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
