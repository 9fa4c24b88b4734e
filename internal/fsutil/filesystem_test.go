package fsutil

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_RoundTrip(t *testing.T) {
	t.Parallel()
	var fsys FileSystem = OSFileSystem{}
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "smoothed.csv")

	assert.False(t, fsys.Exists(path))

	w, err := CreateAll(fsys, path)
	require.NoError(t, err)
	_, err = io.WriteString(w, "t_index,x_index\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.True(t, fsys.Exists(path))
	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "t_index,x_index\n", string(data))

	f, err := fsys.Open(path)
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(16), info.Size())
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	t.Parallel()
	m := NewMemoryFileSystem()
	require.NoError(t, m.WriteFile("a/b.txt", []byte("hello"), 0o644))

	got, err := m.ReadFile("a/./b.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	// ReadFile hands out a copy.
	got[0] = 'j'
	again, _ := m.ReadFile("a/b.txt")
	assert.Equal(t, "hello", string(again))

	_, err = m.ReadFile("missing.txt")
	assert.Error(t, err)
	_, err = m.Open("missing.txt")
	assert.Error(t, err)
}

func TestMemoryFileSystem_CreateAll(t *testing.T) {
	t.Parallel()
	m := NewMemoryFileSystem()
	w, err := CreateAll(m, "runs/r1/traj.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("1,2\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("3,4\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.True(t, m.Exists("runs"))
	assert.True(t, m.Exists("runs/r1"))
	assert.True(t, m.Exists("runs/r1/traj.csv"))

	f, err := m.Open("runs/r1/traj.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "1,2\n3,4\n", string(data))
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, "traj.csv", info.Name())
	assert.False(t, info.IsDir())
}
