package filex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyIntoDir(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	src := filepath.Join(srcDir, "photo.jpg")
	require.NoError(t, os.WriteFile(src, []byte("jpeg"), 0o600))

	dst, err := CopyIntoDir(src, dstDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dstDir, "photo.jpg"), dst)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
}

func TestCopyIntoDir_MissingSource(t *testing.T) {
	_, err := CopyIntoDir(filepath.Join(t.TempDir(), "nope.bin"), t.TempDir())
	assert.Error(t, err)
}

func TestEnsureSubDir(t *testing.T) {
	base := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(base))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	dir, err := EnsureSubDir("media")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// idempotent
	again, err := EnsureSubDir("media")
	require.NoError(t, err)
	assert.Equal(t, dir, again)
}
