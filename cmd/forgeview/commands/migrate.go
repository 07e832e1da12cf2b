// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/automa-saga/logx"
	"github.com/forgeview/forgeview/internal/config"
	"github.com/forgeview/forgeview/internal/doctor"
	"github.com/forgeview/forgeview/internal/schema"
	"github.com/forgeview/forgeview/internal/version"
	"github.com/forgeview/forgeview/pkg/fsx"
	"github.com/gofrs/flock"
	"github.com/joomcode/errorx"
	"github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
)

// minSQLiteVersion is the oldest SQLite library release the schema upgrades
// are exercised against.
const minSQLiteVersion = "3.31.0"

var (
	flagDryRun bool

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade the database schema to the current release",
		Long: "Detect the persisted schema version and apply any pending upgrade " +
			"steps in a single transaction. Safe to run repeatedly; an up-to-date " +
			"database is left untouched.",
		Run: func(cmd *cobra.Command, args []string) {
			runMigrate(cmd.Context())
		},
	}
)

func init() {
	migrateCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Show pending upgrades without applying them")
}

// bootstrapLock guards the data directory against concurrent bootstrap runs.
// The lock is advisory; it protects against a second forgeview process, not
// against other tools writing the database.
func bootstrapLock(dataDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errorx.ExternalError.Wrap(err, "failed to create data dir: %s", dataDir)
	}

	lock := flock.New(filepath.Join(dataDir, "forgeview.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errorx.ExternalError.Wrap(err, "failed to acquire bootstrap lock: %s", lock.Path())
	}
	if !locked {
		return nil, errorx.IllegalState.New("another forgeview process holds the bootstrap lock: %s", lock.Path())
	}

	return lock, nil
}

// checkSQLiteRuntime refuses to touch the database through a SQLite library
// older than the schema upgrades were written for.
func checkSQLiteRuntime() error {
	libVersion, _, _ := sqlite3.Version()
	if err := version.CheckMinVersionRequirement(libVersion, minSQLiteVersion); err != nil {
		return errorx.IllegalState.Wrap(err, "SQLite library %s does not meet the minimum requirement", libVersion)
	}
	return nil
}

func newEngine(cfg config.Config, files fsx.Manager) (*schema.Engine, *sql.DB, error) {
	if err := checkSQLiteRuntime(); err != nil {
		return nil, nil, err
	}

	db, err := sql.Open("sqlite3", cfg.Database.Path)
	if err != nil {
		return nil, nil, errorx.ExternalError.Wrap(err, "failed to open database: %s", cfg.Database.Path)
	}

	catalog := schema.Releases(cfg.Data.Dir, cfg.Data.ReposDir, files)
	store := schema.NewStore(filepath.Join(cfg.Data.Dir, schema.MarkerFileName), files)

	return schema.NewEngine(db, catalog, store, schema.Scripts()), db, nil
}

func runMigrate(ctx context.Context) {
	cfg := config.Get()
	files := fsx.NewManager()

	lock, err := bootstrapLock(cfg.Data.Dir)
	if err != nil {
		doctor.CheckErr(ctx, err)
	}
	defer func() { _ = lock.Unlock() }()

	engine, db, err := newEngine(cfg, files)
	if err != nil {
		doctor.CheckErr(ctx, err)
	}
	defer db.Close()

	if flagDryRun {
		current, pending, err := engine.Plan()
		if err != nil {
			doctor.CheckErr(ctx, err)
		}

		fmt.Printf("current: %s\n", current)
		if len(pending) == 0 {
			fmt.Println("pending: none")
			return
		}
		for _, v := range pending {
			fmt.Printf("pending: %s\n", v)
		}
		return
	}

	result := engine.Run(ctx)
	switch result.Outcome {
	case schema.OutcomeUpToDate:
		logx.As().Info().
			Str("version", result.From.String()).
			Msg("Database schema is up to date")
	case schema.OutcomeUpgraded:
		logx.As().Info().
			Str("from", result.From.String()).
			Str("to", result.To.String()).
			Msg("Database schema upgraded")
	case schema.OutcomeSkippedIllegalVersion:
		logx.As().Warn().
			Str("version", result.From.String()).
			Msg("Database schema version is not known to this release, no changes made")
	case schema.OutcomeFailed:
		doctor.CheckErr(ctx, result.Err)
	}
}
