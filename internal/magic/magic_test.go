package magic

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsZip(t *testing.T) {
	dir := t.TempDir()

	jar := filepath.Join(dir, "yarn.jar")
	f, err := os.Create(jar)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("mappings/mappings.tiny")
	require.NoError(t, err)
	_, err = w.Write([]byte("v1\tofficial\tintermediary\tnamed\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	ok, err := IsZip(jar)
	require.NoError(t, err)
	assert.True(t, ok)

	txt := filepath.Join(dir, "mappings.tiny")
	require.NoError(t, os.WriteFile(txt, []byte("v1\tofficial\tintermediary\tnamed\n"), 0o644))
	ok, err = IsZip(txt)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = IsZip(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestIsClass(t *testing.T) {
	dir := t.TempDir()
	cls := filepath.Join(dir, "Foo.class")
	require.NoError(t, os.WriteFile(cls, []byte{0xca, 0xfe, 0xba, 0xbe, 0, 0, 0, 52}, 0o644))

	ok, err := IsClass(cls)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.False(t, IsClassData([]byte{0xca, 0xfe}))
	assert.False(t, IsClassData([]byte("package foo;")))
}
