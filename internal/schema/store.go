// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"github.com/automa-saga/logx"
	"github.com/joomcode/errorx"

	"github.com/forgeview/forgeview/pkg/fsx"
)

// MarkerFileName is the file inside the data directory that records the
// version the persisted data was last fully migrated to.
const MarkerFileName = "schema.version"

// maxMarkerSize bounds the marker read; a healthy marker is a few bytes.
const maxMarkerSize = 64

// Store reads and writes the persisted version marker. The marker holds the
// literal text "<major>.<minor>" with no decoration.
type Store struct {
	path  string
	files fsx.Manager
}

// NewStore returns a Store for the marker file at path.
func NewStore(path string, files fsx.Manager) *Store {
	return &Store{path: path, files: files}
}

// Read returns the persisted version. A missing marker means the oldest
// known state (0,0). A marker that exists but does not parse yields the
// Unknown sentinel, not (0,0): the engine must be able to tell "no marker"
// from "bad marker".
func (s *Store) Read() (Version, error) {
	_, exists, err := s.files.PathExists(s.path)
	if err != nil {
		return Version{}, errorx.IllegalState.Wrap(err, "failed to stat version marker %s", s.path)
	}
	if !exists {
		return Version{}, nil
	}

	payload, err := s.files.ReadFile(s.path, maxMarkerSize)
	if err != nil {
		// anything beyond maxMarkerSize cannot hold a valid marker, so it
		// gets the same treatment as unparsable content
		if errorx.IsOfType(err, fsx.FileTooLargeError) {
			logx.As().Warn().
				Err(err).
				Str("marker", s.path).
				Msg("Version marker is oversized")
			return Unknown, nil
		}
		return Version{}, errorx.IllegalState.Wrap(err, "failed to read version marker %s", s.path)
	}

	v, err := ParseVersion(string(payload))
	if err != nil {
		logx.As().Warn().
			Err(err).
			Str("marker", s.path).
			Msg("Version marker is unparsable")
		return Unknown, nil
	}

	return v, nil
}

// Write overwrites the marker atomically so a crash never leaves a
// half-written marker behind.
func (s *Store) Write(v Version) error {
	if err := s.files.WriteFileAtomic(s.path, []byte(v.String())); err != nil {
		return errorx.IllegalState.Wrap(err, "failed to write version marker %s", s.path)
	}

	return nil
}
