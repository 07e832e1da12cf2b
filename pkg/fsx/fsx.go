// SPDX-License-Identifier: Apache-2.0

// Package fsx provides a small filesystem manager interface so that code
// touching the disk can be exercised against a real directory in tests and
// mocked where needed.
package fsx

import (
	"os"
	"path/filepath"
)

const (
	defaultFileMode      = 0644
	defaultDirectoryMode = 0755
)

// Manager is an operating system independent interface for the file and
// directory operations the bootstrap engine needs.
type Manager interface {
	// PathExists determines if the path exists. It does not follow symlinks.
	PathExists(path string) (os.FileInfo, bool, error)

	// CreateDirectory creates a directory at the given path. An existing
	// directory is not an error. With recursive set, missing parents are
	// created as well.
	CreateDirectory(path string, recursive bool) error

	// ReadFile reads the whole file as long as its size does not exceed
	// maxFileSize. A negative maxFileSize disables the size check.
	ReadFile(path string, maxFileSize int64) ([]byte, error)

	// WriteFile writes payload to the file at path, replacing any previous
	// contents.
	WriteFile(path string, payload []byte) error

	// WriteFileAtomic writes payload to a temporary file in the target's
	// directory and renames it over the target, so a crash never leaves a
	// half-written file behind.
	WriteFileAtomic(path string, payload []byte) error

	// Rename moves oldPath to newPath.
	Rename(oldPath, newPath string) error

	// RemoveAll removes the path and its contents. A missing path is not an
	// error.
	RemoveAll(path string) error
}

type osManager struct{}

// NewManager returns a Manager backed by the local filesystem.
func NewManager() Manager {
	return &osManager{}
}

func (m *osManager) PathExists(path string) (os.FileInfo, bool, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, FileSystemError.Wrap(err, "failed to stat path: %s", path)
	}

	return fi, true, nil
}

func (m *osManager) CreateDirectory(path string, recursive bool) error {
	fi, exists, err := m.PathExists(path)
	if err != nil {
		return err
	}

	if exists {
		if fi.IsDir() {
			return nil
		}
		return FileSystemError.New("path exists and is not a directory: %s", path)
	}

	if recursive {
		err = os.MkdirAll(path, defaultDirectoryMode)
	} else {
		err = os.Mkdir(path, defaultDirectoryMode)
	}
	if err != nil {
		return FileSystemError.Wrap(err, "failed to create directory: %s", path)
	}

	return nil
}

func (m *osManager) ReadFile(path string, maxFileSize int64) ([]byte, error) {
	fi, exists, err := m.PathExists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, NotFoundError.New("file not found: %s", path)
	}

	if maxFileSize >= 0 && fi.Size() > maxFileSize {
		return nil, FileTooLargeError.New("file %s is %d bytes, limit is %d", path, fi.Size(), maxFileSize)
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, FileSystemError.Wrap(err, "failed to read file: %s", path)
	}

	return payload, nil
}

func (m *osManager) WriteFile(path string, payload []byte) error {
	if err := os.WriteFile(path, payload, defaultFileMode); err != nil {
		return FileSystemError.Wrap(err, "failed to write file: %s", path)
	}

	return nil
}

func (m *osManager) WriteFileAtomic(path string, payload []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return FileSystemError.Wrap(err, "failed to create temp file in: %s", dir)
	}
	tmpName := tmp.Name()

	if _, err = tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return FileSystemError.Wrap(err, "failed to write temp file: %s", tmpName)
	}

	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return FileSystemError.Wrap(err, "failed to sync temp file: %s", tmpName)
	}

	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return FileSystemError.Wrap(err, "failed to close temp file: %s", tmpName)
	}

	if err = os.Chmod(tmpName, defaultFileMode); err != nil {
		_ = os.Remove(tmpName)
		return FileSystemError.Wrap(err, "failed to chmod temp file: %s", tmpName)
	}

	if err = os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return FileSystemError.Wrap(err, "failed to rename %s to %s", tmpName, path)
	}

	return nil
}

func (m *osManager) Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return FileSystemError.Wrap(err, "failed to rename %s to %s", oldPath, newPath)
	}

	return nil
}

func (m *osManager) RemoveAll(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return FileSystemError.Wrap(err, "failed to remove path: %s", path)
	}

	return nil
}
