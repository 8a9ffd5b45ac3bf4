// Package anayasa adapts the Constitutional Court decision banks. Two
// distinct corpora live on two subdomains: norm-control review
// (normkararlarbankasi) and individual applications
// (kararlarbilgibankasi). Both are server-rendered HTML scraped with
// goquery; the handle subtype picks the subdomain on fetch.
package anayasa

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
	defaultNormBaseURL     = "https://normkararlarbankasi.anayasa.gov.tr"
	defaultBireyselBaseURL = "https://kararlarbilgibankasi.anayasa.gov.tr"

	searchPath = "/Ara"

	// Both banks hard-cap the reachable result window.
	maxOffset = 1000
)

type (
	// Adapter implements the anayasa capability set.
	Adapter struct {
		pool         *session.Pool
		norm         *normalize.Normalizer
		logger       telemetry.Logger
		normBase     string
		bireyselBase string
	}

	Option func(*Adapter)
)

// WithNormBaseURL overrides the norm-control subdomain, used by tests.
func WithNormBaseURL(u string) Option {
	return func(a *Adapter) { a.normBase = strings.TrimRight(u, "/") }
}

// WithBireyselBaseURL overrides the individual-applications subdomain.
func WithBireyselBaseURL(u string) Option {
	return func(a *Adapter) { a.bireyselBase = strings.TrimRight(u, "/") }
}

// New constructs the adapter over a pool with a registered anayasa entry.
func New(pool *session.Pool, norm *normalize.Normalizer, logger telemetry.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		pool:         pool,
		norm:         norm,
		logger:       logger,
		normBase:     defaultNormBaseURL,
		bireyselBase: defaultBireyselBaseURL,
	}
	if a.logger == nil {
		a.logger = telemetry.NewNoopLogger()
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID implements sources.Adapter.
func (a *Adapter) ID() legal.SourceID { return legal.SourceAnayasa }

func (a *Adapter) base(subtype legal.Subtype) (string, error) {
	switch subtype {
	case legal.SubtypeNormDenetimi:
		return a.normBase, nil
	case legal.SubtypeBireyselBasvuru:
		return a.bireyselBase, nil
	default:
		return "", legal.Invalidf("subtype", "anayasa requires subtype %q or %q, got %q",
			legal.SubtypeNormDenetimi, legal.SubtypeBireyselBasvuru, subtype)
	}
}

// Search implements sources.Adapter.
func (a *Adapter) Search(ctx context.Context, q legal.SearchQuery) (*legal.SearchResultPage, error) {
	base, err := a.base(q.Subtype)
	if err != nil {
		return nil, err
	}
	if err := q.Validate(maxOffset); err != nil {
		return nil, err
	}

	params := url.Values{}
	if q.Phrase != "" {
		params.Add("KelimeAra[]", q.Phrase)
	}
	params.Set("page", strconv.Itoa(q.PageIndex))
	if q.CaseYear != 0 {
		params.Set("BasvuruYil", strconv.Itoa(q.CaseYear))
	}
	if q.CaseSeq != 0 {
		params.Set("BasvuruNo", strconv.Itoa(q.CaseSeq))
	}
	if q.DateStart != "" || q.DateEnd != "" {
		if err := legal.ValidateDateRange(q.DateStart, q.DateEnd); err != nil {
			return nil, err
		}
		lo, err := legal.DateSlashed(q.DateStart)
		if err != nil {
			return nil, err
		}
		hi, err := legal.DateSlashed(q.DateEnd)
		if err != nil {
			return nil, err
		}
		if lo != "" {
			params.Set("KararBaslangicTarihi", lo)
		}
		if hi != "" {
			params.Set("KararBitisTarihi", hi)
		}
	}

	s, err := a.pool.Borrow(ctx, legal.SourceAnayasa)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	raw, err := s.GetBytes(ctx, base+searchPath+"?"+params.Encode())
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceAnayasa, "search")
	}
	return a.parseResults(raw, base, q)
}

// parseResults walks the result cards. Each card links to the decision page
// and lists application/decision metadata in labeled rows.
func (a *Adapter) parseResults(raw []byte, base string, q legal.SearchQuery) (*legal.SearchResultPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, legal.ParseFailuref("html_page", err, "anayasa results page is not parseable HTML")
	}

	page := &legal.SearchResultPage{
		Source:    legal.SourceAnayasa,
		Subtype:   q.Subtype,
		PageIndex: q.PageIndex,
		PageSize:  q.PageSize,
	}

	doc.Find("div.birim-karar, div.karar-card").Each(func(_ int, card *goquery.Selection) {
		link := card.Find("a[href]").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		e := legal.Entry{
			Handle: legal.DocumentHandle{
				Source:     legal.SourceAnayasa,
				Subtype:    q.Subtype,
				NativeID:   href,
				LandingURL: base + href,
			},
			Title: strings.TrimSpace(link.Text()),
		}
		card.Find("span.etiket, .karar-meta span").Each(func(_ int, meta *goquery.Selection) {
			text := strings.TrimSpace(meta.Text())
			switch {
			case strings.HasPrefix(text, "Başvuru Numarası:"):
				e.CaseNo = strings.TrimSpace(strings.TrimPrefix(text, "Başvuru Numarası:"))
			case strings.HasPrefix(text, "Esas Sayısı:"):
				e.CaseNo = strings.TrimSpace(strings.TrimPrefix(text, "Esas Sayısı:"))
			case strings.HasPrefix(text, "Karar Sayısı:"):
				e.DecisionNo = strings.TrimSpace(strings.TrimPrefix(text, "Karar Sayısı:"))
			case strings.HasPrefix(text, "Karar Tarihi:"):
				e.DecisionDate = legal.NormalizeBackendDate(strings.TrimSpace(strings.TrimPrefix(text, "Karar Tarihi:")))
			case strings.HasPrefix(text, "Başvurucu:"):
				e.Applicant = strings.TrimSpace(strings.TrimPrefix(text, "Başvurucu:"))
			}
		})
		page.Entries = append(page.Entries, e)
	})

	if countText := strings.TrimSpace(doc.Find(".sonuc-sayisi, #toplamSonuc").First().Text()); countText != "" {
		var digits strings.Builder
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

// Fetch implements sources.Adapter. The subtype on the handle decides which
// subdomain serves the decision; the body is a long full HTML page, so
// pagination matters here more than anywhere else.
func (a *Adapter) Fetch(ctx context.Context, h legal.DocumentHandle, chunkIndex int) (*legal.NormalizedDocument, error) {
	base, err := a.base(h.Subtype)
	if err != nil {
		return nil, err
	}
	if h.NativeID == "" {
		return nil, legal.NotFoundf("handle carries no document path")
	}

	s, err := a.pool.Borrow(ctx, legal.SourceAnayasa)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	docURL := base + h.NativeID
	raw, err := s.GetBytes(ctx, docURL)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceAnayasa, "fetch")
	}
	return sources.RenderDocument(a.norm, h, docURL, raw, normalize.ContainerHTMLPage, false, chunkIndex)
}

// Health implements sources.Adapter. The individual-applications bank is the
// busier corpus, so it serves as the representative probe.
func (a *Adapter) Health(ctx context.Context) legal.HealthSample {
	return sources.Probe(ctx, legal.SourceAnayasa, func(ctx context.Context) (int64, error) {
		page, err := a.Search(ctx, legal.SearchQuery{
			Source:    legal.SourceAnayasa,
			Subtype:   legal.SubtypeBireyselBasvuru,
			Phrase:    "hak",
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
