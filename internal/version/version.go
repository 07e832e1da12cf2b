// SPDX-License-Identifier: Apache-2.0

package version

import (
	"github.com/Masterminds/semver/v3"
	"github.com/joomcode/errorx"
)

// Semver parses the embedded version number as a semantic version.
func Semver() (*semver.Version, error) {
	v, err := semver.NewVersion(Number())
	if err != nil {
		return nil, errorx.IllegalFormat.Wrap(err, "failed to parse version %q", Number())
	}
	return v, nil
}

// CheckMinVersionRequirement checks if a version meets the minimum version requirement.
// Both inputs are semantic version strings.
func CheckMinVersionRequirement(progVersion string, minimum string) error {
	pVer, err := semver.NewVersion(progVersion)
	if err != nil {
		return errorx.IllegalFormat.Wrap(err, "failed to parse program's version string %q", progVersion)
	}

	minVer, err := semver.NewVersion(minimum)
	if err != nil {
		return errorx.IllegalFormat.Wrap(err, "failed to parse minimum version requirement %q", minimum)
	}

	if pVer.LessThan(minVer) {
		return errorx.IllegalState.New("program version %q is less than minimum required version %q",
			progVersion, minimum)
	}

	return nil
}
