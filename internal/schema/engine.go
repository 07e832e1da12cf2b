// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"context"
	"database/sql"
	"io/fs"

	"github.com/automa-saga/logx"
	"github.com/joomcode/errorx"
)

// Outcome classifies the result of a migration run.
type Outcome string

const (
	// OutcomeUpToDate means the persisted marker already equals the catalog
	// head; no transaction was opened.
	OutcomeUpToDate Outcome = "up-to-date"

	// OutcomeUpgraded means every pending step succeeded and the marker now
	// records the catalog head.
	OutcomeUpgraded Outcome = "upgraded"

	// OutcomeSkippedIllegalVersion means the marker exists but matches no
	// catalog entry. The run is skipped and the marker left untouched; the
	// engine never guesses a safe fallback version.
	OutcomeSkippedIllegalVersion Outcome = "skipped-illegal-version"

	// OutcomeFailed means a step failed; the transaction was rolled back and
	// the marker left untouched.
	OutcomeFailed Outcome = "failed"
)

// Result reports what a migration run did. From is always the version read
// from the marker; To is set on upgrade, FailedAt on failure. Err carries the
// cause for the skipped and failed outcomes.
type Result struct {
	Outcome  Outcome
	From     Version
	To       Version
	FailedAt Version
	Err      error
}

// Engine detects the persisted schema version at process start and, if it is
// behind the catalog head, applies the pending upgrade steps in order inside
// one transaction, persisting the new version only on success.
//
// The run is strictly single-threaded and synchronous: it is part of process
// bootstrap and holds its transaction for the whole run. A crash mid-run
// never advances the marker, so a retry resumes from the same version and
// replays the full pending sequence.
type Engine struct {
	db      *sql.DB
	catalog *Catalog
	store   *Store
	scripts fs.FS
}

// NewEngine wires the engine to the hosting application's database handle,
// the process-wide catalog, the marker store, and the script filesystem.
func NewEngine(db *sql.DB, catalog *Catalog, store *Store, scripts fs.FS) *Engine {
	return &Engine{db: db, catalog: catalog, store: store, scripts: scripts}
}

// Plan reads the marker and returns the current version together with the
// versions a run would apply, oldest first. It opens no transaction. An
// unknown or foreign marker is an IllegalPersistedVersionError.
func (e *Engine) Plan() (Version, []Version, error) {
	current, err := e.store.Read()
	if err != nil {
		return Version{}, nil, err
	}

	if current == e.catalog.Head() {
		return current, nil, nil
	}

	if !e.catalog.Contains(current) {
		return current, nil, IllegalPersistedVersionError.
			New("persisted version %s matches no known schema version", current).
			WithProperty(PropertyVersion, current)
	}

	pending := e.catalog.PendingFrom(current)
	versions := make([]Version, len(pending))
	for i, entry := range pending {
		versions[i] = entry.Version
	}

	return current, versions, nil
}

// Run performs the migration. It never panics on a bad marker and never
// advances the marker on partial success; inspect the Result for the
// outcome. Startup policy on failure belongs to the caller.
func (e *Engine) Run(ctx context.Context) Result {
	head := e.catalog.Head()

	current, err := e.store.Read()
	if err != nil {
		return e.failed(current, Version{}, err)
	}

	if current == head {
		logx.As().Info().
			Str("version", current.String()).
			Msg("Schema is up to date")
		return Result{Outcome: OutcomeUpToDate, From: current, To: head}
	}

	if !e.catalog.Contains(current) {
		err := IllegalPersistedVersionError.
			New("persisted version %s matches no known schema version", current).
			WithProperty(PropertyVersion, current)
		logx.As().Warn().
			Str("persisted", current.String()).
			Str("expected", head.String()).
			Msg("Unrecognized schema version marker, skipping migration")
		return Result{Outcome: OutcomeSkippedIllegalVersion, From: current, Err: err}
	}

	pending := e.catalog.PendingFrom(current)
	logx.As().Info().
		Str("from", current.String()).
		Str("to", head.String()).
		Int("steps", len(pending)).
		Msg("Upgrading schema")

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return e.failed(current, Version{}, errorx.IllegalState.Wrap(err, "failed to open migration transaction"))
	}

	for _, entry := range pending {
		step := NewStep(entry.Version, e.scripts, entry.Extra...)
		if err := step.Apply(ctx, tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logx.As().Error().Err(rbErr).Msg("Failed to roll back migration transaction")
			}
			return e.failed(current, entry.Version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return e.failed(current, Version{}, errorx.IllegalState.Wrap(err, "failed to commit migration transaction"))
	}

	// The marker advances only after the commit. If this write fails the
	// marker still names the old version and the next start replays the
	// sequence, which is why non-transactional side effects must tolerate
	// at-least-once application.
	if err := e.store.Write(head); err != nil {
		return e.failed(current, Version{}, err)
	}

	logx.As().Info().
		Str("from", current.String()).
		Str("to", head.String()).
		Msg("Schema upgraded")

	return Result{Outcome: OutcomeUpgraded, From: current, To: head}
}

func (e *Engine) failed(from, failedAt Version, err error) Result {
	logx.As().Error().
		Err(err).
		Str("from", from.String()).
		Str("failedAt", failedAt.String()).
		Msg("Schema migration failed, version marker left untouched")

	return Result{Outcome: OutcomeFailed, From: from, FailedAt: failedAt, Err: err}
}
