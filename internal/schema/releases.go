// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/automa-saga/logx"
	"github.com/joomcode/errorx"

	"github.com/forgeview/forgeview/internal/tomlx"
	"github.com/forgeview/forgeview/pkg/fsx"
	"github.com/forgeview/forgeview/pkg/sanity"
)

//go:embed scripts/*.sql
var scriptFS embed.FS

// Scripts returns the embedded declarative scripts, keyed by the
// "<major>_<minor>.sql" convention.
func Scripts() fs.FS {
	sub, err := fs.Sub(scriptFS, "scripts")
	if err != nil {
		panic(err)
	}
	return sub
}

// Releases is the catalog of every schema version forgeview has shipped,
// newest first. Entries are append-only: once a release is published its pair
// and position never change, new releases are prepended.
//
// dataDir is the server's data directory (caches, marker), reposDir the root
// of the repository store; both are captured by the imperative actions of the
// composite entries.
func Releases(dataDir, reposDir string, files fsx.Manager) *Catalog {
	return MustCatalog(
		Entry{Version: V(2, 6)},
		Entry{Version: V(2, 5), Extra: []Action{backfillRepositorySlugs()}},
		Entry{Version: V(2, 4)},
		Entry{Version: V(2, 3), Extra: []Action{removeLegacyRenderCache(dataDir, files)}},
		Entry{Version: V(2, 2)},
		Entry{Version: V(2, 1)},
		Entry{Version: V(2, 0), Extra: []Action{rewriteRepositoryConfigs(reposDir, files)}},
		Entry{Version: V(1, 1)},
		Entry{Version: V(1, 0)},
		Entry{Version: V(0, 0)},
	)
}

// removeLegacyRenderCache deletes the pre-2.3 markdown render cache; 2.3
// moved rendering results into the database. Removal is check-before-act so
// a replayed run after a rollback stays harmless.
func removeLegacyRenderCache(dataDir string, files fsx.Manager) Action {
	return func(ctx context.Context, tx *sql.Tx) error {
		cacheDir := filepath.Join(dataDir, "cache", "render")

		_, exists, err := files.PathExists(cacheDir)
		if err != nil {
			return err
		}
		if !exists {
			return nil
		}

		logx.As().Info().Str("dir", cacheDir).Msg("Removing legacy render cache")
		return files.RemoveAll(cacheDir)
	}
}

// rewriteRepositoryConfigs upgrades every repository's local forgeview.toml
// to the 2.0 storage format marker. Repositories already carrying the marker
// are left alone, so the rewrite tolerates at-least-once application. User
// keys in the sidecar survive the rewrite.
func rewriteRepositoryConfigs(reposDir string, files fsx.Manager) Action {
	return func(ctx context.Context, tx *sql.Tx) error {
		_, exists, err := files.PathExists(reposDir)
		if err != nil {
			return err
		}
		if !exists {
			return nil
		}

		entries, err := os.ReadDir(reposDir)
		if err != nil {
			return errorx.IllegalState.Wrap(err, "failed to list repository store %s", reposDir)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			cfgPath := filepath.Join(reposDir, entry.Name(), "forgeview.toml")
			_, exists, err := files.PathExists(cfgPath)
			if err != nil {
				return err
			}
			if !exists {
				continue
			}

			cfg, err := tomlx.Load(files, cfgPath)
			if err != nil {
				return err
			}

			if format, ok := tomlx.GetString(cfg, "storage.format"); ok && format == "bare-v2" {
				continue
			}

			err = tomlx.UpdateFile(files, cfgPath, map[string]any{
				"storage": map[string]any{"format": "bare-v2"},
			})
			if err != nil {
				return err
			}

			logx.As().Debug().
				Str("repository", entry.Name()).
				Msg("Rewrote repository config for 2.0 storage format")
		}

		return nil
	}
}

// backfillRepositorySlugs fills the slug column added in 2.5 from the
// repository names, using parameterized statements on the run's transaction.
func backfillRepositorySlugs() Action {
	return func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, name FROM repository WHERE slug = ''`)
		if err != nil {
			return errorx.IllegalState.Wrap(err, "failed to query repositories for slug backfill")
		}

		type repo struct {
			id   int64
			name string
		}

		var repos []repo
		for rows.Next() {
			var r repo
			if err := rows.Scan(&r.id, &r.name); err != nil {
				_ = rows.Close()
				return errorx.IllegalState.Wrap(err, "failed to scan repository row")
			}
			repos = append(repos, r)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return errorx.IllegalState.Wrap(err, "failed to iterate repository rows")
		}
		if err := rows.Close(); err != nil {
			return errorx.IllegalState.Wrap(err, "failed to close repository rows")
		}

		for _, r := range repos {
			slug, err := sanity.Name(strings.ToLower(r.name))
			if err != nil {
				return errorx.IllegalState.Wrap(err, "repository %d has no usable slug source: %q", r.id, r.name)
			}

			if _, err := tx.ExecContext(ctx, `UPDATE repository SET slug = ? WHERE id = ?`, slug, r.id); err != nil {
				return errorx.IllegalState.Wrap(err, "failed to backfill slug for repository %d", r.id)
			}
		}

		if len(repos) > 0 {
			logx.As().Info().Int("repositories", len(repos)).Msg("Backfilled repository slugs")
		}

		return nil
	}
}
