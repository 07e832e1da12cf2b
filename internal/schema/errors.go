// SPDX-License-Identifier: Apache-2.0

package schema

import "github.com/joomcode/errorx"

var (
	ErrNamespace = errorx.NewNamespace("schema")

	// IllegalPersistedVersionError indicates the persisted marker parsed to a
	// version that no catalog entry matches. The migration run is skipped; it
	// is never fatal to startup.
	IllegalPersistedVersionError = ErrNamespace.NewType("illegal_persisted_version")

	// StepFailureError indicates a migration step failed. The version it
	// failed at is attached as PropertyVersion.
	StepFailureError = ErrNamespace.NewType("step_failure")

	// PropertyVersion carries the schema version a failure relates to.
	PropertyVersion = errorx.RegisterProperty("schema_version")
)

// FailedVersion extracts the schema version attached to a step failure.
func FailedVersion(err error) (Version, bool) {
	v, ok := errorx.ExtractProperty(err, PropertyVersion)
	if !ok {
		return Version{}, false
	}

	version, ok := v.(Version)
	return version, ok
}
