package locate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("name: x\n"), 0644))
}

func TestResolver_Locate_SearchOrder(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "first")
	second := filepath.Join(root, "second")
	touch(t, filepath.Join(first, "corlib.smod"))
	touch(t, filepath.Join(second, "corlib.yaml"))
	touch(t, filepath.Join(second, "extra.yml"))

	r := NewResolver([]string{first, second})

	path, err := r.Locate("corlib")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(first, "corlib.smod"), path, "earlier directory wins")

	path, err = r.Locate("extra")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(second, "extra.yml"), path)
}

func TestResolver_Locate_ExplicitPath(t *testing.T) {
	root := t.TempDir()
	image := filepath.Join(root, "proxies.yaml")
	touch(t, image)

	path, err := NewResolver(nil).Locate(image)
	require.NoError(t, err)
	assert.Equal(t, image, path)
}

func TestResolver_Locate_NotFound(t *testing.T) {
	root := t.TempDir()
	r := NewResolver([]string{root})

	_, err := r.Locate("missing")
	require.Error(t, err)

	var notFound *ModuleNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "missing", notFound.Name)
	assert.Len(t, notFound.Tried, 4)

	_, err = NewResolver(nil).Locate("missing")
	assert.Contains(t, err.Error(), "no search directories")
}

func TestResolver_DedupAndMissing(t *testing.T) {
	root := t.TempDir()
	absent := filepath.Join(root, "absent")

	r := NewResolver([]string{root, root + "/", absent})
	assert.Equal(t, []string{root, absent}, r.SearchDirectories())
	assert.Equal(t, []string{absent}, r.Missing())
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, ConfigFile))
	deep := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(deep, 0755))

	assert.Equal(t, filepath.Join(root, ConfigFile), FindConfig(deep))
	assert.Equal(t, filepath.Join(root, ConfigFile), FindConfig(filepath.Join(root, ConfigFile)))
}

func TestFindConfig_NonExistentPath(t *testing.T) {
	assert.Empty(t, FindConfig("/nonexistent/path/that/does/not/exist"))
}
