// SPDX-License-Identifier: Apache-2.0

// Package sanity validates user-provided paths and names before they reach
// the filesystem or the database layer.
package sanity

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joomcode/errorx"
)

var (
	ErrInvalidName = errorx.IllegalArgument.New("invalid name")
)

var (
	// shellMetachars matches shell metacharacters that must never appear in a path
	shellMetachars = regexp.MustCompile("[;&|$\\x60<>(){}\\[\\]*?~]")

	// validPathChars allows alphanumeric, forward slash, dash, underscore and dot
	validPathChars = regexp.MustCompile(`^[a-zA-Z0-9/_.\-]+$`)
)

// Name sanitizes the input string into a safe file or identifier name.
// Only alphanumeric characters, underscore and dash survive. It returns an
// error if nothing survives the sanitization.
func Name(s string) (string, error) {
	sb := []byte(s)
	j := 0
	for _, b := range sb {
		if ('a' <= b && b <= 'z') ||
			('A' <= b && b <= 'Z') ||
			('0' <= b && b <= '9') ||
			b == '_' ||
			b == '-' {
			sb[j] = b
			j++
		}
	}

	if j == 0 {
		return "", ErrInvalidName
	}

	return string(sb[:j]), nil
}

// SanitizePath validates and normalizes the given path.
//
// It rejects empty and relative paths, ".." segments, shell metacharacters
// and any character outside the safe set, then returns the cleaned path.
func SanitizePath(path string) (string, error) {
	if path == "" {
		return "", errorx.IllegalArgument.New("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		return "", errorx.IllegalArgument.New("path must be absolute: %s", path)
	}

	// traversal check runs on the raw input so cleaning cannot mask it
	for _, segment := range strings.Split(path, "/") {
		if segment == ".." {
			return "", errorx.IllegalArgument.New("path cannot contain '..' segments: %s", path)
		}
	}

	if shellMetachars.MatchString(path) {
		return "", errorx.IllegalArgument.New("path contains shell metacharacters: %s", path)
	}

	if !validPathChars.MatchString(path) {
		return "", errorx.IllegalArgument.New("path contains invalid characters: %s", path)
	}

	return filepath.Clean(path), nil
}
