// SPDX-License-Identifier: Apache-2.0

package plugin

import (
	"context"
	"time"

	"github.com/automa-saga/logx"
	"github.com/google/uuid"
)

// refreshJob is the recurring job the bootstrap registers with the
// scheduler. Each firing refreshes every registered plugin; a plugin that
// fails to refresh is logged and skipped so one bad plugin cannot starve the
// rest. Overlapping firings are skipped by the scheduler's job chain, never
// queued.
type refreshJob struct {
	registry *Registry
	timeout  time.Duration
}

func newRefreshJob(registry *Registry, timeout time.Duration) *refreshJob {
	return &refreshJob{registry: registry, timeout: timeout}
}

// Run implements cron.Job.
func (j *refreshJob) Run() {
	runId := uuid.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	logx.As().Debug().
		Str("runId", runId).
		Int("plugins", j.registry.Len()).
		Msg("Refreshing plugin caches")

	for _, p := range j.registry.Plugins() {
		if err := p.Refresh(ctx); err != nil {
			logx.As().Warn().
				Err(err).
				Str("runId", runId).
				Str("plugin", p.Name()).
				Msg("Plugin refresh failed")
		}
	}
}
