package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRoot(t *testing.T) {
	baseDir := t.TempDir()
	vaultDir := filepath.Join(baseDir, "vault")
	nestedDir := filepath.Join(vaultDir, "assets", "img")
	emptyDir := filepath.Join(baseDir, "empty")

	require.NoError(t, os.MkdirAll(filepath.Join(vaultDir, "boards"), 0755))
	require.NoError(t, os.MkdirAll(nestedDir, 0755))
	require.NoError(t, os.MkdirAll(emptyDir, 0755))

	got, err := FindRoot(vaultDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(vaultDir), filepath.Clean(got))

	got, err = FindRoot(nestedDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(vaultDir), filepath.Clean(got), "found from nested dir")

	_, err = FindRoot(emptyDir)
	assert.Error(t, err)
}

func TestFindRootMarkerFile(t *testing.T) {
	baseDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, "corkboard.json"), []byte("{}"), 0644))

	sub := filepath.Join(baseDir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))

	got, err := FindRoot(sub)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(baseDir), filepath.Clean(got))
}
