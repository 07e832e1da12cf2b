// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"github.com/joomcode/errorx"
)

// Entry is one catalog row: a version plus the extra imperative actions that
// run after the version's declarative script. Most versions carry no extra
// actions.
type Entry struct {
	Version Version
	Extra   []Action
}

// Catalog is the ordered list of schema versions this binary knows about,
// newest first. It is append-only across the application's history: published
// entries never move or change their pair, new releases are prepended.
type Catalog struct {
	entries []Entry
	index   map[Version]int
}

// NewCatalog builds a catalog from entries given newest-first. It rejects
// duplicate version pairs and empty catalogs.
func NewCatalog(entries ...Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, errorx.IllegalArgument.New("catalog cannot be empty")
	}

	index := make(map[Version]int, len(entries))
	for i, e := range entries {
		if e.Version.IsUnknown() {
			return nil, errorx.IllegalArgument.New("catalog cannot contain the unknown version sentinel")
		}
		if _, dup := index[e.Version]; dup {
			return nil, errorx.IllegalArgument.New("duplicate catalog entry for version %s", e.Version)
		}
		index[e.Version] = i
	}

	return &Catalog{entries: entries, index: index}, nil
}

// MustCatalog is NewCatalog for the process-wide constant catalog, where a
// bad definition is a programming error.
func MustCatalog(entries ...Entry) *Catalog {
	c, err := NewCatalog(entries...)
	if err != nil {
		panic(err)
	}
	return c
}

// Head returns the newest entry's version, i.e. the version this binary
// expects the persisted data to be at.
func (c *Catalog) Head() Version {
	return c.entries[0].Version
}

// Contains reports whether the catalog has an entry with the exact pair.
func (c *Catalog) Contains(v Version) bool {
	_, ok := c.index[v]
	return ok
}

// PendingFrom returns every entry strictly newer than current in
// oldest-to-newest application order: the catalog prefix before current,
// reversed. If current is the head it returns an empty slice.
//
// The caller must have verified Contains(current) first.
func (c *Catalog) PendingFrom(current Version) []Entry {
	i := c.index[current]

	pending := make([]Entry, 0, i)
	for j := i - 1; j >= 0; j-- {
		pending = append(pending, c.entries[j])
	}

	return pending
}

// Versions returns all catalog versions newest-first.
func (c *Catalog) Versions() []Version {
	versions := make([]Version, len(c.entries))
	for i, e := range c.entries {
		versions[i] = e.Version
	}
	return versions
}
