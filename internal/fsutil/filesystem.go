// Package fsutil lets table and report writers run against the real disk or
// an in-memory tree in tests.
package fsutil

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing/fstest"
)

// FileSystem is the subset of file operations the pipeline needs.
type FileSystem interface {
	Open(name string) (fs.File, error)
	// Create truncates or creates name for writing.
	Create(name string) (io.WriteCloser, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	// Exists reports whether name is a file or directory.
	Exists(name string) bool
}

// CreateAll creates name after making sure its parent directory exists.
func CreateAll(fsys FileSystem, name string) (io.WriteCloser, error) {
	if dir := filepath.Dir(name); dir != "." && dir != "" {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return fsys.Create(name)
}

// OSFileSystem is backed by the os package.
type OSFileSystem struct{}

func (OSFileSystem) Open(name string) (fs.File, error)           { return os.Open(name) }
func (OSFileSystem) Create(name string) (io.WriteCloser, error)  { return os.Create(name) }
func (OSFileSystem) ReadFile(name string) ([]byte, error)        { return os.ReadFile(name) }
func (OSFileSystem) MkdirAll(dir string, perm os.FileMode) error { return os.MkdirAll(dir, perm) }

func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFileSystem) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// MemoryFileSystem keeps files in an fstest.MapFS. Paths are slash-cleaned
// and treated as relative to the tree root. Safe for concurrent use.
type MemoryFileSystem struct {
	mu   sync.RWMutex
	tree fstest.MapFS
}

func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{tree: fstest.MapFS{}}
}

func memPath(name string) string {
	p := strings.TrimPrefix(path.Clean(filepath.ToSlash(name)), "/")
	if p == "" {
		return "."
	}
	return p
}

func (m *MemoryFileSystem) Open(name string) (fs.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Open(memPath(name))
}

func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.ReadFile(memPath(name))
}

func (m *MemoryFileSystem) put(name string, data []byte, perm os.FileMode) {
	m.mu.Lock()
	m.tree[memPath(name)] = &fstest.MapFile{Data: data, Mode: perm}
	m.mu.Unlock()
}

func (m *MemoryFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	m.put(name, bytes.Clone(data), perm)
	return nil
}

// Create truncates name immediately; written bytes become visible on Close.
func (m *MemoryFileSystem) Create(name string) (io.WriteCloser, error) {
	m.put(name, nil, 0o644)
	return &memWriter{fs: m, name: name}, nil
}

func (m *MemoryFileSystem) MkdirAll(dir string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := memPath(dir); p != "."; p = path.Dir(p) {
		if _, ok := m.tree[p]; ok {
			break
		}
		m.tree[p] = &fstest.MapFile{Mode: fs.ModeDir | perm}
	}
	return nil
}

func (m *MemoryFileSystem) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := fs.Stat(m.tree, memPath(name))
	return err == nil
}

type memWriter struct {
	fs   *MemoryFileSystem
	name string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	w.fs.put(w.name, w.buf.Bytes(), 0o644)
	return nil
}
