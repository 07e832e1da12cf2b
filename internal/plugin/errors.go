// SPDX-License-Identifier: Apache-2.0

package plugin

import "github.com/joomcode/errorx"

var (
	ErrNamespace = errorx.NewNamespace("plugin")

	// SubsystemInitFailureError indicates the plugin runtime failed to come
	// up. It is fatal to the subsystem and must be surfaced to the owning
	// process; a half-initialized plugin runtime must never be left running.
	SubsystemInitFailureError = ErrNamespace.NewType("init_failure")

	// DuplicatePluginError indicates two plugins were registered under the
	// same name.
	DuplicatePluginError = ErrNamespace.NewType("duplicate_plugin", errorx.Duplicate())
)
