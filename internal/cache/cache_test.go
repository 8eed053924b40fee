package cache

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/blacktop/asmremap/pkg/mappings"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex(t *testing.T) *mappings.Index {
	t.Helper()

	entity := mappings.ClassMapping{
		Official:     "bfj",
		Intermediate: "net/minecraft/class_1297",
		Named:        "net/minecraft/entity/Entity",
	}
	idx, err := mappings.NewIndex(mappings.NamedPivot, &mappings.Records{
		Classes: []mappings.ClassMapping{entity},
		Methods: []mappings.MethodMapping{{
			Owner:             entity,
			Signature:         "()V",
			OfficialSignature: "()V",
			Official:          "k",
			Intermediate:      "method_5773",
			Named:             "tick",
		}},
		Fields: []mappings.FieldMapping{{
			Owner:              entity,
			Descriptor:         "I",
			OfficialDescriptor: "I",
			Official:           "aj",
			Intermediate:       "field_5986",
			Named:              "id",
		}},
	})
	require.NoError(t, err)
	return idx
}

func TestPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("root", "yarn-1.18+build.1-v2", "tiny.json.lz4"),
		Path("root", "/tmp/yarn-1.18+build.1-v2.jar", "tiny"))
	assert.Equal(t,
		filepath.Join("root", "yarn-1.18+build.1", "proguard.json.lz4"),
		Path("root", "yarn-1.18+build.1", "proguard"))
}

func TestStoreLoad(t *testing.T) {
	idx := testIndex(t)
	path := Path(t.TempDir(), "yarn-1.18+build.1-v2.jar", "tiny")

	require.NoError(t, Store(path, idx))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, idx.Stats(), got.Stats())
	assert.Equal(t, idx.Records(), got.Records())

	m, ok := got.Method("net/minecraft/entity/Entity", "tick", "()V")
	require.True(t, ok)
	assert.Equal(t, "method_5773", m.Intermediate)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func writeSnapshot(t *testing.T, snap any) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	require.NoError(t, json.NewEncoder(zw).Encode(snap))
	require.NoError(t, zw.Close())
	return &buf
}

func TestReadIncompatible(t *testing.T) {
	recs := &mappings.Records{}
	for _, snap := range []Snapshot{
		{Format: "2.0.0", Pivot: "named", Records: recs},
		{Format: "0.9", Pivot: "named", Records: recs},
		{Format: "latest", Pivot: "named", Records: recs},
		{Format: FormatVersion, Pivot: "intermediate", Records: recs},
		{Format: FormatVersion, Pivot: "named"},
	} {
		_, err := Read(writeSnapshot(t, snap))
		assert.ErrorIs(t, err, ErrIncompatible, "%+v", snap)
	}

	idx, err := Read(writeSnapshot(t, Snapshot{Format: "1.0", Pivot: "official", Records: recs}))
	require.NoError(t, err)
	assert.Equal(t, mappings.OfficialPivot, idx.Pivot())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json.lz4"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(dir, "garbage.json.lz4")
	require.NoError(t, os.WriteFile(garbage, []byte("not lz4"), 0o600))
	_, err = Load(garbage)
	assert.Error(t, err)
}
