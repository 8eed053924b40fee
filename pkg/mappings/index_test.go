package mappings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	entity    = ClassMapping{Official: "bsr", Intermediate: "net/minecraft/class_1297", Named: "net/minecraft/entity/Entity"}
	mainClass = ClassMapping{Official: "net/minecraft/client/main/Main", Intermediate: "net/minecraft/client/main/Main", Named: "net/minecraft/client/main/Main"}
)

func testRecords() *Records {
	return &Records{
		Classes: []ClassMapping{entity, mainClass},
		Methods: []MethodMapping{
			{
				Owner:             entity,
				Signature:         "(Lnet/minecraft/entity/Entity;)Z",
				OfficialSignature: "(Lbsr;)Z",
				Official:          "a",
				Intermediate:      "method_5703",
				Named:             "isTeammate",
			},
		},
		Fields: []FieldMapping{
			{
				Owner:              entity,
				Descriptor:         "I",
				OfficialDescriptor: "I",
				Official:           "b",
				Intermediate:       "field_5986",
				Named:              "id",
			},
		},
	}
}

func TestIsObfuscated(t *testing.T) {
	assert.True(t, entity.IsObfuscated())
	assert.False(t, mainClass.IsObfuscated())
}

func TestNamedIndex(t *testing.T) {
	idx, err := NewIndex(NamedPivot, testRecords())
	require.NoError(t, err)

	c, ok := idx.Class("net/minecraft/entity/Entity")
	require.True(t, ok)
	assert.Equal(t, entity, c)

	_, ok = idx.Class("bsr")
	assert.False(t, ok)

	m, ok := idx.Method("net/minecraft/entity/Entity", "isTeammate", "(Lnet/minecraft/entity/Entity;)Z")
	require.True(t, ok)
	assert.Equal(t, "method_5703", m.Intermediate)
	assert.True(t, idx.HasMethod("net/minecraft/entity/Entity", "isTeammate", "(Lnet/minecraft/entity/Entity;)Z"))
	assert.False(t, idx.HasMethod("net/minecraft/entity/Entity", "isTeammate", "(Lbsr;)Z"))

	f, ok := idx.Field("net/minecraft/entity/Entity", "id")
	require.True(t, ok)
	assert.Equal(t, "field_5986", f.Intermediate)

	assert.Equal(t, Stats{Pivot: "named", Classes: 2, Methods: 1, Fields: 1}, idx.Stats())
}

func TestOfficialIndex(t *testing.T) {
	idx, err := NewIndex(OfficialPivot, testRecords())
	require.NoError(t, err)

	_, ok := idx.Class("bsr")
	assert.True(t, ok)

	m, ok := idx.Method("bsr", "a", "(Lbsr;)Z")
	require.True(t, ok)
	assert.Equal(t, "isTeammate", m.Named)

	f, ok := idx.Field("bsr", "b")
	require.True(t, ok)
	assert.Equal(t, "id", f.Named)
}

func TestPivotRoundTrip(t *testing.T) {
	named, err := NewIndex(NamedPivot, testRecords())
	require.NoError(t, err)
	official, err := NewIndex(OfficialPivot, testRecords())
	require.NoError(t, err)

	for _, c := range testRecords().Classes {
		byOfficial, ok := official.Class(c.Official)
		require.True(t, ok)
		byNamed, ok := named.Class(byOfficial.Named)
		require.True(t, ok)
		assert.Equal(t, c.Official, byNamed.Official)
	}
}

func TestDuplicateKeys(t *testing.T) {
	recs := testRecords()
	recs.Methods = append(recs.Methods, recs.Methods[0])
	_, err := NewIndex(NamedPivot, recs)
	assert.NoError(t, err, "identical duplicates are tolerated")

	clash := recs.Methods[0]
	clash.Official = "c"
	recs.Methods = append(recs.Methods, clash)
	_, err = NewIndex(NamedPivot, recs)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	// the clash is invisible under the official pivot
	_, err = NewIndex(OfficialPivot, recs)
	assert.NoError(t, err)
}

func TestPivotByName(t *testing.T) {
	p, err := PivotByName("named")
	require.NoError(t, err)
	assert.Equal(t, NamedPivot, p)

	p, err = PivotByName("official")
	require.NoError(t, err)
	assert.Equal(t, OfficialPivot, p)

	_, err = PivotByName("intermediate")
	assert.Error(t, err)
}
