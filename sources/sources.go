// Package sources defines the backend adapter contract and the fixed set of
// adapters the gateway dispatches to. One adapter per backend; subtype
// dispatch happens inside the adapter, never in the dispatcher.
package sources

import (
	"context"
	"sort"
	"time"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/normalize"
)

type (
	// Adapter is the capability set every backend implements.
	Adapter interface {
		// ID names the backend.
		ID() legal.SourceID
		// Search translates the canonical query into the backend's private
		// request shape and maps the response to canonical entries.
		Search(ctx context.Context, q legal.SearchQuery) (*legal.SearchResultPage, error)
		// Fetch retrieves the decision behind handle in its native container
		// and returns the requested Markdown chunk.
		Fetch(ctx context.Context, h legal.DocumentHandle, chunkIndex int) (*legal.NormalizedDocument, error)
		// Health probes a representative endpoint with a trivial query.
		Health(ctx context.Context) legal.HealthSample
	}

	// Set is the immutable adapter table, keyed by source.
	Set struct {
		byID map[legal.SourceID]Adapter
	}
)

// NewSet freezes the adapter table. Later registrations are not possible.
func NewSet(adapters ...Adapter) *Set {
	s := &Set{byID: make(map[legal.SourceID]Adapter, len(adapters))}
	for _, a := range adapters {
		s.byID[a.ID()] = a
	}
	return s
}

// Get returns the adapter for source.
func (s *Set) Get(source legal.SourceID) (Adapter, bool) {
	a, ok := s.byID[source]
	return a, ok
}

// All returns the adapters ordered by source id.
func (s *Set) All() []Adapter {
	out := make([]Adapter, 0, len(s.byID))
	for _, a := range s.byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// RenderDocument is the shared tail of every fetch path: native bytes in,
// one clamped Markdown chunk out.
func RenderDocument(n *normalize.Normalizer, h legal.DocumentHandle, sourceURL string, body []byte, container normalize.Container, withTables bool, chunkIndex int) (*legal.NormalizedDocument, error) {
	res, err := n.Render(body, container, withTables)
	if err != nil {
		return nil, err
	}
	return n.Paginate(h, sourceURL, res.Markdown, chunkIndex), nil
}

// Probe times op and folds the outcome into a health sample. Healthy
// requires op to succeed and report a positive record count: several
// backends serve 200 with an error payload.
func Probe(ctx context.Context, source legal.SourceID, op func(context.Context) (int64, error)) legal.HealthSample {
	start := time.Now()
	count, err := op(ctx)
	sample := legal.HealthSample{
		Source:    source,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	switch {
	case err != nil:
		sample.Status = legal.HealthUnhealthy
		sample.Reason = legal.AsFault(err).Message
	case count <= 0:
		sample.Status = legal.HealthDegraded
		sample.Reason = "probe query returned no records"
	default:
		sample.Status = legal.HealthHealthy
	}
	return sample
}
