// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"
	"time"

	"github.com/automa-saga/logx"
	"github.com/forgeview/forgeview/internal/config"
	"github.com/forgeview/forgeview/internal/doctor"
	"github.com/forgeview/forgeview/internal/plugin"
	"github.com/forgeview/forgeview/internal/schema"
	"github.com/forgeview/forgeview/internal/version"
	"github.com/forgeview/forgeview/pkg/fsx"
	"github.com/joomcode/errorx"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the server startup sequence and keep it running",
	Long: "Upgrade the database schema, start the plugin runtime, and run " +
		"until interrupted. The schema upgrade is the same one `forgeview " +
		"migrate` performs.",
	Run: func(cmd *cobra.Command, args []string) {
		runServe(cmd.Context())
	},
}

// renderCacheTTL is how long a rendered markdown row may sit unused before
// the pruner drops it.
const renderCacheTTL = 24 * time.Hour

// registerPlugins populates the registry with the plugins this build ships.
// Plugins hosted by the web and Git layers register here as they land.
func registerPlugins(registry *plugin.Registry, db *sql.DB) error {
	return registry.Register(plugin.NewRenderCachePlugin(db, renderCacheTTL))
}

func runServe(ctx context.Context) {
	// a build whose embedded version does not parse is misassembled; catch
	// that before touching any persisted state
	semVer, err := version.Semver()
	if err != nil {
		doctor.CheckErr(ctx, err)
	}
	logx.As().Info().
		Str("version", semVer.String()).
		Str("commit", version.Commit()).
		Msg("Starting forgeview")

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
		// Serving on a schema this binary does not understand is unsafe,
		// unlike a standalone migrate run which just reports and exits.
		doctor.CheckErr(ctx, errorx.IllegalState.Wrap(result.Err,
			"refusing to serve: database schema version %s is not known to this release", result.From))
	case schema.OutcomeFailed:
		doctor.CheckErr(ctx, result.Err)
	}

	registry := plugin.NewRegistry()
	if err := registerPlugins(registry, db); err != nil {
		doctor.CheckErr(ctx, err)
	}

	bootstrap := plugin.NewBootstrap(registry, cfg.Plugins.RefreshInterval)
	report, err := bootstrap.MaybeStart(ctx, cfg.Plugins.Enabled)
	if err != nil {
		// the failed step may carry operator instructions in its metadata
		doctor.CheckErr(ctx, err, doctor.GetInstructionsFromReport(report))
	}
	defer bootstrap.Shutdown()

	logx.As().Info().Msg("Server started")

	waitCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-waitCtx.Done()

	logx.As().Info().Msg("Shutting down")
}
