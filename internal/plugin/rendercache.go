// SPDX-License-Identifier: Apache-2.0

package plugin

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/automa-saga/logx"
	"github.com/joomcode/errorx"
)

// RenderCachePlugin prunes stale rows from the render_cache table. Rendered
// markdown is cheap to regenerate, so rows older than the TTL are simply
// dropped; the next page view repopulates them.
type RenderCachePlugin struct {
	db  *sql.DB
	ttl time.Duration
}

// NewRenderCachePlugin returns a pruner for the given database handle. Rows
// whose rendered_at is older than ttl are removed on each refresh.
func NewRenderCachePlugin(db *sql.DB, ttl time.Duration) *RenderCachePlugin {
	return &RenderCachePlugin{db: db, ttl: ttl}
}

func (p *RenderCachePlugin) Name() string { return "render-cache" }

// Init verifies the cache table is reachable. The schema upgrade runs before
// the plugin bootstrap, so a missing table means a broken deployment, not a
// pending migration.
func (p *RenderCachePlugin) Init(ctx context.Context) error {
	if p.ttl <= 0 {
		return errorx.IllegalArgument.New("render cache ttl must be positive, got %s", p.ttl)
	}

	var n int
	row := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM render_cache`)
	if err := row.Scan(&n); err != nil {
		return errorx.ExternalError.Wrap(err, "render_cache table is not reachable")
	}

	logx.As().Debug().Int("rows", n).Msg("Render cache plugin initialized")
	return nil
}

// Refresh drops cache rows older than the TTL.
func (p *RenderCachePlugin) Refresh(ctx context.Context) error {
	cutoff := fmt.Sprintf("-%d seconds", int64(p.ttl.Seconds()))

	res, err := p.db.ExecContext(ctx,
		`DELETE FROM render_cache WHERE rendered_at < datetime('now', ?)`, cutoff)
	if err != nil {
		return errorx.ExternalError.Wrap(err, "failed to prune render cache")
	}

	if pruned, err := res.RowsAffected(); err == nil && pruned > 0 {
		logx.As().Debug().Int64("pruned", pruned).Msg("Pruned stale render cache rows")
	}

	return nil
}
