// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"

	"github.com/automa-saga/logx"
	"github.com/joomcode/errorx"
	"golang.org/x/text/encoding/unicode"
)

// Action is an imperative piece of a migration step. It runs against the
// same transaction as the step's declarative script. Actions that touch the
// filesystem are not covered by the transaction and must be idempotent: if
// the run rolls back, a retry will execute them again.
type Action func(ctx context.Context, tx *sql.Tx) error

// Step is the unit of work attached to one catalog entry. Its default
// behavior executes the version's declarative script if one exists (absence
// is a no-op); the extra actions then run in order. Composition keeps the
// default behavior in front of every override.
type Step struct {
	version Version
	scripts fs.FS
	extra   []Action
}

// NewStep builds the step for a version using the given script filesystem.
func NewStep(version Version, scripts fs.FS, extra ...Action) Step {
	return Step{version: version, scripts: scripts, extra: extra}
}

// Apply runs the declarative script (if present) and then every extra action
// against tx. Any failure is reported as a StepFailureError carrying the
// step's version; the caller decides what to do with the transaction.
func (s Step) Apply(ctx context.Context, tx *sql.Tx) error {
	text, ok, err := s.loadScript()
	if err != nil {
		return StepFailureError.Wrap(err, "failed to load script for version %s", s.version).
			WithProperty(PropertyVersion, s.version)
	}

	if ok {
		logx.As().Debug().
			Str("version", s.version.String()).
			Str("script", s.version.scriptName()).
			Msg("Executing schema script")

		if _, err := tx.ExecContext(ctx, text); err != nil {
			return StepFailureError.Wrap(err, "script for version %s failed", s.version).
				WithProperty(PropertyVersion, s.version)
		}
	} else {
		logx.As().Debug().
			Str("version", s.version.String()).
			Msg("No schema script for version, skipping declarative step")
	}

	for _, act := range s.extra {
		if err := act(ctx, tx); err != nil {
			return StepFailureError.Wrap(err, "migration action for version %s failed", s.version).
				WithProperty(PropertyVersion, s.version)
		}
	}

	return nil
}

// loadScript reads the full text of the version's conventional script.
// A missing script is not an error.
func (s Step) loadScript() (string, bool, error) {
	if s.scripts == nil {
		return "", false, nil
	}

	payload, err := fs.ReadFile(s.scripts, s.version.scriptName())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}

	// validate that the script is UTF-8 before casting into string
	text, err := unicode.UTF8.NewDecoder().Bytes(payload)
	if err != nil {
		return "", false, errorx.IllegalFormat.Wrap(err, "script %s is not valid UTF-8", s.version.scriptName())
	}

	return string(text), true, nil
}
