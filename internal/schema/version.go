// SPDX-License-Identifier: Apache-2.0

// Package schema owns the startup-time schema migration of the forgeview
// database: the catalog of known schema versions, the persisted version
// marker, and the engine that upgrades the persisted state to what the
// running binary expects.
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joomcode/errorx"
)

// Version identifies a schema/data state as a (major, minor) integer pair.
// The zero value (0,0) is the oldest known state, the one a fresh data
// directory is in before any migration ran.
type Version struct {
	Major int
	Minor int
}

// Unknown is the sentinel returned for a marker that exists but cannot be
// parsed. It never matches any catalog entry, so the engine treats it as an
// illegal persisted version rather than silently assuming (0,0).
var Unknown = Version{Major: -1, Minor: -1}

// V is a shorthand constructor used by the catalog definitions.
func V(major, minor int) Version {
	return Version{Major: major, Minor: minor}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// IsUnknown reports whether v is the unparsable-marker sentinel.
func (v Version) IsUnknown() bool {
	return v == Unknown
}

// scriptName is the conventional name of the declarative resource attached
// to a version.
func (v Version) scriptName() string {
	return fmt.Sprintf("%d_%d.sql", v.Major, v.Minor)
}

// ParseVersion parses the literal "<major>.<minor>" form used by the
// persisted marker. Surrounding whitespace is trimmed; anything else is an
// error.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)

	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return Version{}, errorx.IllegalFormat.New("version must be of the form <major>.<minor>: %q", s)
	}

	ma, err := strconv.Atoi(major)
	if err != nil || ma < 0 {
		return Version{}, errorx.IllegalFormat.New("invalid major version in %q", s)
	}

	mi, err := strconv.Atoi(minor)
	if err != nil || mi < 0 {
		return Version{}, errorx.IllegalFormat.New("invalid minor version in %q", s)
	}

	return Version{Major: ma, Minor: mi}, nil
}
