// Package health aggregates per-backend probes into one gateway report.
package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/telemetry"
	"github.com/adliye/lexgate/sources"
)

// DefaultProbeTimeout bounds each backend probe. Probes are trivial queries;
// a backend that cannot answer one inside this window is not healthy.
const DefaultProbeTimeout = 10 * time.Second

type (
	// Report is the aggregate outcome of probing every registered backend.
	Report struct {
		Status    legal.HealthStatus   `json:"status"`
		CheckedAt time.Time            `json:"checked_at"`
		Backends  []legal.HealthSample `json:"backends"`
	}

	// Prober fans a probe out over the adapter set.
	Prober struct {
		set     *sources.Set
		timeout time.Duration
		logger  telemetry.Logger
	}
)

// New constructs a prober. A zero timeout uses DefaultProbeTimeout.
func New(set *sources.Set, timeout time.Duration, logger telemetry.Logger) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Prober{set: set, timeout: timeout, logger: logger}
}

// Check probes every backend concurrently and folds the samples into one
// aggregate status: healthy only when every backend is, degraded when some
// but not all are, unhealthy when none are.
func (p *Prober) Check(ctx context.Context) *Report {
	adapters := p.set.All()
	samples := make([]legal.HealthSample, len(adapters))

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range adapters {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(gctx, p.timeout)
			defer cancel()
			samples[i] = a.Health(probeCtx)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{
		Status:    aggregate(samples),
		CheckedAt: time.Now().UTC(),
		Backends:  samples,
	}
	for _, s := range samples {
		if s.Status != legal.HealthHealthy {
			p.logger.Warn(ctx, "backend probe not healthy",
				"source", string(s.Source), "status", string(s.Status), "reason", s.Reason)
		}
	}
	return report
}

func aggregate(samples []legal.HealthSample) legal.HealthStatus {
	if len(samples) == 0 {
		return legal.HealthUnhealthy
	}
	healthy := 0
	for _, s := range samples {
		if s.Status == legal.HealthHealthy {
			healthy++
		}
	}
	switch {
	case healthy == len(samples):
		return legal.HealthHealthy
	case healthy == 0:
		return legal.HealthUnhealthy
	default:
		return legal.HealthDegraded
	}
}
