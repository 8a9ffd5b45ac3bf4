// Package kvkk adapts the data protection authority's published decision
// summaries (kvkk.gov.tr). Like bddk, the site exposes no search endpoint;
// queries run through the external web-search API pinned to the authority's
// domain plus the exact phrase every decision summary page carries.
package kvkk

import (
	"context"
	"strings"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/normalize"
	"github.com/adliye/lexgate/runtime/session"
	"github.com/adliye/lexgate/runtime/telemetry"
	"github.com/adliye/lexgate/runtime/websearch"
	"github.com/adliye/lexgate/sources"
)

const (
	defaultBaseURL = "https://www.kvkk.gov.tr"

	siteDomain = "kvkk.gov.tr"

	// Every published decision summary page carries this phrase; pinning it
	// keeps guidance documents and press releases out of the results.
	summaryMarker = `"karar özeti"`
)

type (
	// Adapter implements the kvkk capability set.
	Adapter struct {
		pool    *session.Pool
		search  *websearch.Client
		norm    *normalize.Normalizer
		logger  telemetry.Logger
		baseURL string
	}

	Option func(*Adapter)
)

// WithBaseURL points document fetches at a different origin, used by tests.
func WithBaseURL(u string) Option {
	return func(a *Adapter) { a.baseURL = strings.TrimRight(u, "/") }
}

// New constructs the adapter over a pool with a registered kvkk entry and a
// configured web-search client.
func New(pool *session.Pool, search *websearch.Client, norm *normalize.Normalizer, logger telemetry.Logger, opts ...Option) *Adapter {
	a := &Adapter{pool: pool, search: search, norm: norm, logger: logger, baseURL: defaultBaseURL}
	if a.logger == nil {
		a.logger = telemetry.NewNoopLogger()
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID implements sources.Adapter.
func (a *Adapter) ID() legal.SourceID { return legal.SourceKVKK }

// Search implements sources.Adapter.
func (a *Adapter) Search(ctx context.Context, q legal.SearchQuery) (*legal.SearchResultPage, error) {
	if err := q.Validate(websearch.MaxResults); err != nil {
		return nil, err
	}
	if q.Phrase == "" {
		return nil, legal.Invalidf("phrase", "kvkk search requires a phrase")
	}

	s, err := a.pool.Borrow(ctx, legal.SourceKVKK)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	query := q.Phrase + " site:" + siteDomain + " " + summaryMarker
	hits, err := a.search.Search(ctx, s, query, q.Offset()+q.PageSize)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceKVKK, "search")
	}

	page := &legal.SearchResultPage{
		Source:    legal.SourceKVKK,
		PageIndex: q.PageIndex,
		PageSize:  q.PageSize,
	}
	entries := websearch.Entries(hits, legal.SourceKVKK, siteDomain)
	page.Entries = websearch.Window(entries, q.Offset(), q.PageSize)
	return page, nil
}

// Fetch implements sources.Adapter.
func (a *Adapter) Fetch(ctx context.Context, h legal.DocumentHandle, chunkIndex int) (*legal.NormalizedDocument, error) {
	docURL := h.LandingURL
	if docURL == "" {
		if h.NativeID == "" {
			return nil, legal.NotFoundf("handle carries no document path")
		}
		docURL = a.baseURL + h.NativeID
	}

	s, err := a.pool.Borrow(ctx, legal.SourceKVKK)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	raw, err := s.GetBytes(ctx, docURL)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceKVKK, "fetch")
	}
	return sources.RenderDocument(a.norm, h, docURL, raw, normalize.ContainerHTMLPage, true, chunkIndex)
}

// Health implements sources.Adapter.
func (a *Adapter) Health(ctx context.Context) legal.HealthSample {
	return sources.Probe(ctx, legal.SourceKVKK, func(ctx context.Context) (int64, error) {
		page, err := a.Search(ctx, legal.SearchQuery{
			Source:    legal.SourceKVKK,
			Phrase:    "veri ihlali",
			PageIndex: 1,
			PageSize:  5,
		})
		if err != nil {
			return 0, err
		}
		return int64(len(page.Entries)), nil
	})
}
