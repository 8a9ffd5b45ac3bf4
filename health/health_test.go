package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/sources"
)

// fakeAdapter probes to a canned sample; the search and fetch capabilities
// are never exercised here.
type fakeAdapter struct {
	id     legal.SourceID
	status legal.HealthStatus
	reason string
	delay  time.Duration
}

func (f *fakeAdapter) ID() legal.SourceID { return f.id }

func (f *fakeAdapter) Search(context.Context, legal.SearchQuery) (*legal.SearchResultPage, error) {
	panic("not exercised")
}

func (f *fakeAdapter) Fetch(context.Context, legal.DocumentHandle, int) (*legal.NormalizedDocument, error) {
	panic("not exercised")
}

func (f *fakeAdapter) Health(ctx context.Context) legal.HealthSample {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return legal.HealthSample{Source: f.id, Status: legal.HealthUnhealthy, Reason: ctx.Err().Error()}
		}
	}
	return legal.HealthSample{Source: f.id, Status: f.status, Reason: f.reason}
}

func TestCheckAllHealthy(t *testing.T) {
	set := sources.NewSet(
		&fakeAdapter{id: legal.SourceYargitay, status: legal.HealthHealthy},
		&fakeAdapter{id: legal.SourceDanistay, status: legal.HealthHealthy},
	)
	report := New(set, time.Second, nil).Check(context.Background())
	assert.Equal(t, legal.HealthHealthy, report.Status)
	require.Len(t, report.Backends, 2)
}

func TestCheckOneUnreachableBackendDegradesTheAggregate(t *testing.T) {
	set := sources.NewSet(
		&fakeAdapter{id: legal.SourceYargitay, status: legal.HealthHealthy},
		&fakeAdapter{id: legal.SourceEmsal, status: legal.HealthUnhealthy, reason: "connection refused"},
	)
	report := New(set, time.Second, nil).Check(context.Background())
	assert.Equal(t, legal.HealthDegraded, report.Status)

	var emsal *legal.HealthSample
	for i := range report.Backends {
		if report.Backends[i].Source == legal.SourceEmsal {
			emsal = &report.Backends[i]
		}
	}
	require.NotNil(t, emsal)
	assert.Equal(t, legal.HealthUnhealthy, emsal.Status)
	assert.NotEmpty(t, emsal.Reason)
}

func TestCheckAllUnhealthy(t *testing.T) {
	set := sources.NewSet(
		&fakeAdapter{id: legal.SourceBDDK, status: legal.HealthUnhealthy, reason: "down"},
		&fakeAdapter{id: legal.SourceKVKK, status: legal.HealthUnhealthy, reason: "down"},
	)
	report := New(set, time.Second, nil).Check(context.Background())
	assert.Equal(t, legal.HealthUnhealthy, report.Status)
}

func TestCheckNoHealthyBackendIsUnhealthy(t *testing.T) {
	set := sources.NewSet(
		&fakeAdapter{id: legal.SourceRekabet, status: legal.HealthDegraded, reason: "probe query returned no records"},
		&fakeAdapter{id: legal.SourceEmsal, status: legal.HealthUnhealthy, reason: "connection refused"},
	)
	report := New(set, time.Second, nil).Check(context.Background())
	assert.Equal(t, legal.HealthUnhealthy, report.Status, "degraded backends alone cannot hold the aggregate at degraded")

	set = sources.NewSet(
		&fakeAdapter{id: legal.SourceBDDK, status: legal.HealthDegraded, reason: "probe query returned no records"},
		&fakeAdapter{id: legal.SourceKVKK, status: legal.HealthDegraded, reason: "probe query returned no records"},
	)
	report = New(set, time.Second, nil).Check(context.Background())
	assert.Equal(t, legal.HealthUnhealthy, report.Status)
}

func TestCheckDegradedCountsAsMiddle(t *testing.T) {
	set := sources.NewSet(
		&fakeAdapter{id: legal.SourceYargitay, status: legal.HealthHealthy},
		&fakeAdapter{id: legal.SourceRekabet, status: legal.HealthDegraded, reason: "probe query returned no records"},
	)
	report := New(set, time.Second, nil).Check(context.Background())
	assert.Equal(t, legal.HealthDegraded, report.Status)
}

func TestCheckBoundsSlowProbes(t *testing.T) {
	set := sources.NewSet(
		&fakeAdapter{id: legal.SourceYargitay, status: legal.HealthHealthy},
		&fakeAdapter{id: legal.SourceSayistay, status: legal.HealthHealthy, delay: 5 * time.Second},
	)
	start := time.Now()
	report := New(set, 50*time.Millisecond, nil).Check(context.Background())
	require.Less(t, time.Since(start), 2*time.Second, "slow probes are cut off by the per-probe timeout")
	assert.Equal(t, legal.HealthDegraded, report.Status)
}

func TestCheckRunsProbesConcurrently(t *testing.T) {
	adapters := make([]sources.Adapter, 6)
	for i := range adapters {
		adapters[i] = &fakeAdapter{
			id:     legal.SourceID(string(rune('a' + i))),
			status: legal.HealthHealthy,
			delay:  100 * time.Millisecond,
		}
	}
	set := sources.NewSet(adapters...)
	start := time.Now()
	report := New(set, time.Second, nil).Check(context.Background())
	assert.Less(t, time.Since(start), 400*time.Millisecond, "probes fan out, not run serially")
	assert.Equal(t, legal.HealthHealthy, report.Status)
}
