// Package uyusmazlik adapts the Court of Jurisdictional Disputes search
// (kararlar.uyusmazlik.gov.tr). The backend speaks URL-encoded form POSTs
// and answers with server-rendered HTML result tables; documents are full
// HTML pages addressed by a stable path.
package uyusmazlik

import (
	"bytes"
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/normalize"
	"github.com/adliye/lexgate/runtime/session"
	"github.com/adliye/lexgate/runtime/telemetry"
	"github.com/adliye/lexgate/sources"
)

const (
	defaultBaseURL = "https://kararlar.uyusmazlik.gov.tr"
	searchPath     = "/Arama/Search"

	// The results view is server-paginated and tops out well below the
	// shared ceiling.
	maxOffset = 2000
)

type (
	// Adapter implements the uyusmazlik capability set.
	Adapter struct {
		pool    *session.Pool
		norm    *normalize.Normalizer
		logger  telemetry.Logger
		baseURL string
	}

	Option func(*Adapter)
)

// WithBaseURL points the adapter at a different origin, used by tests.
func WithBaseURL(u string) Option {
	return func(a *Adapter) { a.baseURL = strings.TrimRight(u, "/") }
}

// New constructs the adapter over a pool with a registered uyusmazlik entry.
func New(pool *session.Pool, norm *normalize.Normalizer, logger telemetry.Logger, opts ...Option) *Adapter {
	a := &Adapter{pool: pool, norm: norm, logger: logger, baseURL: defaultBaseURL}
	if a.logger == nil {
		a.logger = telemetry.NewNoopLogger()
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID implements sources.Adapter.
func (a *Adapter) ID() legal.SourceID { return legal.SourceUyusmazlik }

// Search implements sources.Adapter.
func (a *Adapter) Search(ctx context.Context, q legal.SearchQuery) (*legal.SearchResultPage, error) {
	if err := q.Validate(maxOffset); err != nil {
		return nil, err
	}
	form, err := buildForm(q)
	if err != nil {
		return nil, err
	}

	s, err := a.pool.Borrow(ctx, legal.SourceUyusmazlik)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	raw, err := s.PostForm(ctx, a.baseURL+searchPath, form)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceUyusmazlik, "search")
	}
	return a.parseResults(raw, q)
}

func buildForm(q legal.SearchQuery) (url.Values, error) {
	form := url.Values{}
	form.Set("TumMetin", q.Phrase)
	if q.Subject != "" {
		form.Set("BolumId", q.Subject)
	}
	if q.CaseYear != 0 {
		form.Set("EsasYil", strconv.Itoa(q.CaseYear))
	}
	if q.CaseSeq != 0 {
		form.Set("EsasSayisi", strconv.Itoa(q.CaseSeq))
	}
	if q.DecisionYear != 0 {
		form.Set("KararYil", strconv.Itoa(q.DecisionYear))
	}
	if q.DecisionSeq != 0 {
		form.Set("KararSayisi", strconv.Itoa(q.DecisionSeq))
	}
	if q.DateStart != "" || q.DateEnd != "" {
		if err := legal.ValidateDateRange(q.DateStart, q.DateEnd); err != nil {
			return nil, err
		}
		lo, err := legal.DateDotted(q.DateStart)
		if err != nil {
			return nil, err
		}
		hi, err := legal.DateDotted(q.DateEnd)
		if err != nil {
			return nil, err
		}
		if lo != "" {
			form.Set("KararTarihiBaslangic", lo)
		}
		if hi != "" {
			form.Set("KararTarihiBitis", hi)
		}
	}
	form.Set("PageNumber", strconv.Itoa(q.PageIndex))
	form.Set("PageSize", strconv.Itoa(q.PageSize))
	return form, nil
}

// parseResults extracts entries from the server-rendered results table. Each
// row links to the decision page; the row cells carry section, case number,
// decision number and date.
func (a *Adapter) parseResults(raw []byte, q legal.SearchQuery) (*legal.SearchResultPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, legal.ParseFailuref("html_page", err, "uyusmazlik results page is not parseable HTML")
	}

	page := &legal.SearchResultPage{
		Source:    legal.SourceUyusmazlik,
		PageIndex: q.PageIndex,
		PageSize:  q.PageSize,
	}

	doc.Find("table.search-results tbody tr, table#kararlar tbody tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a[href]").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		cells := row.Find("td").Map(func(_ int, c *goquery.Selection) string {
			return strings.TrimSpace(c.Text())
		})
		e := legal.Entry{
			Handle: legal.DocumentHandle{
				Source:     legal.SourceUyusmazlik,
				NativeID:   href,
				LandingURL: a.baseURL + href,
			},
			Title: strings.TrimSpace(link.Text()),
		}
		// Conventional cell order: section, esas, karar, date.
		if len(cells) >= 4 {
			e.Chamber = cells[0]
			e.CaseNo = cells[1]
			e.DecisionNo = cells[2]
			e.DecisionDate = legal.NormalizeBackendDate(cells[3])
		}
		if e.Title == "" {
			parts := make([]string, 0, 3)
			if e.Chamber != "" {
				parts = append(parts, e.Chamber)
			}
			if e.CaseNo != "" {
				parts = append(parts, "E. "+e.CaseNo)
			}
			if e.DecisionNo != "" {
				parts = append(parts, "K. "+e.DecisionNo)
			}
			e.Title = strings.Join(parts, ", ")
		}
		page.Entries = append(page.Entries, e)
	})

	// The backend renders the hit count in a dedicated element when any
	// results exist; absent element means an unknown total.
	if countText := strings.TrimSpace(doc.Find("#toplam-sonuc, .result-count").First().Text()); countText != "" {
		digits := strings.Builder{}
		for _, r := range countText {
			if r >= '0' && r <= '9' {
				digits.WriteRune(r)
			}
		}
		if n, err := strconv.ParseInt(digits.String(), 10, 64); err == nil {
			page.TotalRecords = &n
		}
	}
	return page, nil
}

// Fetch implements sources.Adapter. The native id is the decision page path;
// the decision body is a full HTML page with tabular headers, so the table
// plugin is enabled.
func (a *Adapter) Fetch(ctx context.Context, h legal.DocumentHandle, chunkIndex int) (*legal.NormalizedDocument, error) {
	if h.NativeID == "" {
		return nil, legal.NotFoundf("handle carries no document path")
	}
	s, err := a.pool.Borrow(ctx, legal.SourceUyusmazlik)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	docURL := h.LandingURL
	if docURL == "" {
		docURL = a.baseURL + h.NativeID
	}
	raw, err := s.GetBytes(ctx, docURL)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceUyusmazlik, "fetch")
	}
	return sources.RenderDocument(a.norm, h, docURL, raw, normalize.ContainerHTMLPage, true, chunkIndex)
}

// Health implements sources.Adapter.
func (a *Adapter) Health(ctx context.Context) legal.HealthSample {
	return sources.Probe(ctx, legal.SourceUyusmazlik, func(ctx context.Context) (int64, error) {
		page, err := a.Search(ctx, legal.SearchQuery{
			Source:    legal.SourceUyusmazlik,
			Phrase:    "görev",
			PageIndex: 1,
			PageSize:  1,
		})
		if err != nil {
			return 0, err
		}
		if page.TotalRecords != nil {
			return *page.TotalRecords, nil
		}
		return int64(len(page.Entries)), nil
	})
}
