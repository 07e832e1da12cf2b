// SPDX-License-Identifier: Apache-2.0

package fsx

import "github.com/joomcode/errorx"

var (
	ErrNamespace = errorx.NewNamespace("fsx")

	// NotFoundError indicates the requested path does not exist.
	NotFoundError = ErrNamespace.NewType("not_found", errorx.NotFound())

	// FileSystemError indicates an underlying filesystem operation failed.
	FileSystemError = ErrNamespace.NewType("filesystem_error")

	// FileTooLargeError indicates a read was refused because the file exceeds the caller's limit.
	FileTooLargeError = ErrNamespace.NewType("file_too_large")
)
