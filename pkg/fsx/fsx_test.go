// SPDX-License-Identifier: Apache-2.0

package fsx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathExists(t *testing.T) {
	m := NewManager()
	dir := t.TempDir()

	_, exists, err := m.PathExists(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.False(t, exists)

	file := filepath.Join(dir, "a.txt")
	require.NoError(t, m.WriteFile(file, []byte("hello")))

	fi, exists, err := m.PathExists(file)
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, int64(5), fi.Size())
}

func TestCreateDirectory(t *testing.T) {
	m := NewManager()
	dir := t.TempDir()

	nested := filepath.Join(dir, "a", "b", "c")
	require.Error(t, m.CreateDirectory(nested, false))
	require.NoError(t, m.CreateDirectory(nested, true))

	// existing directory is not an error
	require.NoError(t, m.CreateDirectory(nested, false))

	// existing file at the path is an error
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, m.WriteFile(file, []byte("x")))
	err := m.CreateDirectory(file, false)
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, FileSystemError))
}

func TestReadFile(t *testing.T) {
	m := NewManager()
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, m.WriteFile(file, []byte("hello")))

	payload, err := m.ReadFile(file, -1)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(payload))

	_, err = m.ReadFile(file, 2)
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, FileTooLargeError))

	_, err = m.ReadFile(filepath.Join(dir, "missing"), -1)
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, NotFoundError))
}

func TestWriteFileAtomic(t *testing.T) {
	m := NewManager()
	dir := t.TempDir()
	file := filepath.Join(dir, "marker")

	require.NoError(t, m.WriteFileAtomic(file, []byte("2.6")))
	payload, err := m.ReadFile(file, -1)
	require.NoError(t, err)
	assert.Equal(t, "2.6", string(payload))

	// overwrite keeps the file readable and leaves no temp files behind
	require.NoError(t, m.WriteFileAtomic(file, []byte("2.7")))
	payload, err = m.ReadFile(file, -1)
	require.NoError(t, err)
	assert.Equal(t, "2.7", string(payload))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "leftover temp file: %s", e.Name())
	}
}

func TestRemoveAll(t *testing.T) {
	m := NewManager()
	dir := t.TempDir()
	target := filepath.Join(dir, "cache")
	require.NoError(t, m.CreateDirectory(filepath.Join(target, "sub"), true))

	require.NoError(t, m.RemoveAll(target))
	_, exists, err := m.PathExists(target)
	require.NoError(t, err)
	assert.False(t, exists)

	// removing a missing path is a no-op
	require.NoError(t, m.RemoveAll(target))
}
