// SPDX-License-Identifier: Apache-2.0

package plugin

import (
	"context"
	"fmt"
	"time"

	"github.com/automa-saga/automa"
	"github.com/automa-saga/logx"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	initRegistryStepId   = "init-plugin-registry"
	startSchedulerStepId = "start-plugin-scheduler"
	registerJobStepId    = "register-refresh-job"
)

// Bootstrap brings the plugin runtime up at process start and tears it down
// at process stop. The scheduler it starts runs on its own goroutines after
// bootstrap completes; the migration run has already finished by then.
type Bootstrap struct {
	registry       *Registry
	interval       time.Duration
	refreshTimeout time.Duration
	stopTimeout    time.Duration
	logger         *zerolog.Logger

	cron *cron.Cron
}

// Option configures a Bootstrap.
type Option func(*Bootstrap)

// WithRefreshTimeout bounds a single refresh-job firing.
func WithRefreshTimeout(d time.Duration) Option {
	return func(b *Bootstrap) { b.refreshTimeout = d }
}

// WithStopTimeout bounds how long Shutdown waits for an in-flight job.
func WithStopTimeout(d time.Duration) Option {
	return func(b *Bootstrap) { b.stopTimeout = d }
}

// WithLogger overrides the process-wide logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(b *Bootstrap) { b.logger = logger }
}

// NewBootstrap creates a bootstrap for the given registry. interval is the
// period of the recurring refresh job.
func NewBootstrap(registry *Registry, interval time.Duration, opts ...Option) *Bootstrap {
	b := &Bootstrap{
		registry:       registry,
		interval:       interval,
		refreshTimeout: time.Minute,
		stopTimeout:    10 * time.Second,
		logger:         logx.As(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// MaybeStart starts the plugin runtime if enabled; when disabled it is a
// no-op. A failure anywhere in the bootstrap rolls the already-started
// pieces back and is returned as a SubsystemInitFailureError: a
// half-initialized plugin runtime must never be left running. The workflow
// report comes back alongside the error so callers can surface operator
// instructions from the failed step's metadata.
func (b *Bootstrap) MaybeStart(ctx context.Context, enabled bool) (*automa.Report, error) {
	if !enabled {
		b.logger.Info().Msg("Plugin subsystem disabled, skipping bootstrap")
		return nil, nil
	}

	wb, err := b.workflow().Build()
	if err != nil {
		return nil, SubsystemInitFailureError.Wrap(err, "failed to build plugin bootstrap workflow")
	}

	report := wb.Execute(ctx)
	if report.Error != nil {
		b.Shutdown()
		return report, SubsystemInitFailureError.Wrap(report.Error, "plugin subsystem bootstrap failed")
	}

	b.logger.Info().
		Int("plugins", b.registry.Len()).
		Dur("refreshInterval", b.interval).
		Msg("Plugin subsystem started")

	return report, nil
}

// Shutdown stops the scheduler, waiting up to the stop timeout for an
// in-flight job firing. It is idempotent and safe to call even if MaybeStart
// never ran or failed partway.
func (b *Bootstrap) Shutdown() {
	if b.cron == nil {
		return
	}

	stopCtx := b.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(b.stopTimeout):
		b.logger.Warn().
			Dur("timeout", b.stopTimeout).
			Msg("Timed out waiting for in-flight plugin job, abandoning it")
	}

	b.cron = nil
	b.logger.Info().Msg("Plugin scheduler stopped")
}

func (b *Bootstrap) workflow() *automa.WorkflowBuilder {
	return automa.NewWorkflowBuilder().
		WithId("plugin-bootstrap").
		Steps(
			b.initRegistryStep(),
			b.startSchedulerStep(),
			b.registerJobStep(),
		)
}

func (b *Bootstrap) initRegistryStep() automa.Builder {
	return automa.NewStepBuilder().WithId(initRegistryStepId).
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			for _, p := range b.registry.Plugins() {
				if err := p.Init(ctx); err != nil {
					meta := map[string]string{
						"instructions": fmt.Sprintf("Plugin %q failed to initialize; inspect the error above.\n"+
							"To start without the plugin runtime, set plugins.enabled to false and restart.", p.Name()),
					}
					return automa.FailureReport(stp,
						automa.WithError(SubsystemInitFailureError.Wrap(err, "failed to initialize plugin %q", p.Name())),
						automa.WithMetadata(meta))
				}

				b.logger.Debug().Str("plugin", p.Name()).Msg("Plugin initialized")
			}

			return automa.SuccessReport(stp)
		}).
		WithOnFailure(func(ctx context.Context, stp automa.Step, rpt *automa.Report) {
			b.logger.Error().Err(rpt.Error).Msg("Plugin registry initialization failed")
		})
}

func (b *Bootstrap) startSchedulerStep() automa.Builder {
	return automa.NewStepBuilder().WithId(startSchedulerStepId).
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			b.cron = cron.New(cron.WithChain(
				cron.Recover(cron.PrintfLogger(b.logger)),
				cron.SkipIfStillRunning(cron.PrintfLogger(b.logger)),
			))
			b.cron.Start()

			return automa.SuccessReport(stp)
		}).
		WithRollback(func(ctx context.Context, stp automa.Step) *automa.Report {
			if b.cron != nil {
				<-b.cron.Stop().Done()
				b.cron = nil
			}
			return automa.SuccessReport(stp)
		})
}

func (b *Bootstrap) registerJobStep() automa.Builder {
	return automa.NewStepBuilder().WithId(registerJobStepId).
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			if b.interval <= 0 {
				meta := map[string]string{
					"instructions": "Set plugins.refreshInterval to a positive duration, e.g. 15m.",
				}
				return automa.FailureReport(stp,
					automa.WithError(SubsystemInitFailureError.New("refresh interval must be positive, got %s", b.interval)),
					automa.WithMetadata(meta))
			}

			b.cron.Schedule(cron.Every(b.interval), newRefreshJob(b.registry, b.refreshTimeout))
			return automa.SuccessReport(stp)
		}).
		WithOnFailure(func(ctx context.Context, stp automa.Step, rpt *automa.Report) {
			b.logger.Error().Err(rpt.Error).Msg("Failed to register plugin refresh job")
		})
}
