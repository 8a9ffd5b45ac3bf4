// Package bddk adapts the banking regulator's decision corpus
// (bddk.gov.tr). The site exposes no search endpoint, so queries go through
// the external web-search API constrained to the regulator's domain; hits
// outside the domain are dropped. Documents are plain pages fetched over
// HTTP and rendered by the normalizer.
package bddk

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
	defaultBaseURL = "https://www.bddk.gov.tr"

	siteDomain = "bddk.gov.tr"
)

type (
	// Adapter implements the bddk capability set.
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

// New constructs the adapter over a pool with a registered bddk entry and a
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
func (a *Adapter) ID() legal.SourceID { return legal.SourceBDDK }

// Search implements sources.Adapter. The web-search API ranks but does not
// page, so pagination is a window over one ranked result list; TotalRecords
// stays nil because no count exists.
func (a *Adapter) Search(ctx context.Context, q legal.SearchQuery) (*legal.SearchResultPage, error) {
	if err := q.Validate(websearch.MaxResults); err != nil {
		return nil, err
	}
	if q.Phrase == "" {
		return nil, legal.Invalidf("phrase", "bddk search requires a phrase")
	}

	s, err := a.pool.Borrow(ctx, legal.SourceBDDK)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	query := q.Phrase + " site:" + siteDomain
	hits, err := a.search.Search(ctx, s, query, q.Offset()+q.PageSize)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceBDDK, "search")
	}

	page := &legal.SearchResultPage{
		Source:    legal.SourceBDDK,
		PageIndex: q.PageIndex,
		PageSize:  q.PageSize,
	}
	entries := websearch.Entries(hits, legal.SourceBDDK, siteDomain)
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

	s, err := a.pool.Borrow(ctx, legal.SourceBDDK)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	raw, err := s.GetBytes(ctx, docURL)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceBDDK, "fetch")
	}
	return sources.RenderDocument(a.norm, h, docURL, raw, normalize.ContainerHTMLPage, true, chunkIndex)
}

// Health implements sources.Adapter.
func (a *Adapter) Health(ctx context.Context) legal.HealthSample {
	return sources.Probe(ctx, legal.SourceBDDK, func(ctx context.Context) (int64, error) {
		page, err := a.Search(ctx, legal.SearchQuery{
			Source:    legal.SourceBDDK,
			Phrase:    "kurul kararı",
			PageIndex: 1,
			PageSize:  5,
		})
		if err != nil {
			return 0, err
		}
		return int64(len(page.Entries)), nil
	})
}
