// Package yargitay adapts the Court of Cassation decision search
// (karararama.yargitay.gov.tr). JSON-over-HTTP family: a nested JSON search
// payload, a numeric document id and an HTML fragment wrapped in a {data}
// envelope.
package yargitay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/normalize"
	"github.com/adliye/lexgate/runtime/session"
	"github.com/adliye/lexgate/runtime/telemetry"
	"github.com/adliye/lexgate/sources"
)

const (
	defaultBaseURL = "https://karararama.yargitay.gov.tr"
	searchPath     = "/aramadetaylist"
	documentPath   = "/getDokuman"

	// The backend rejects offsets past this point with an opaque error, so
	// the adapter refuses them up front.
	maxOffset = 10000
)

type (
	// Adapter implements the yargitay capability set.
	Adapter struct {
		pool    *session.Pool
		norm    *normalize.Normalizer
		logger  telemetry.Logger
		baseURL string
	}

	// Option configures the adapter.
	Option func(*Adapter)
)

// WithBaseURL points the adapter at a different origin. Tests use this to
// target an httptest server.
func WithBaseURL(u string) Option {
	return func(a *Adapter) { a.baseURL = strings.TrimRight(u, "/") }
}

// New constructs the adapter. The session pool must have a registered
// yargitay entry.
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
func (a *Adapter) ID() legal.SourceID { return legal.SourceYargitay }

// searchRequest is the backend's nested payload. Field order and casing are
// part of the wire contract.
type searchRequest struct {
	Data searchData `json:"data"`
}

type searchData struct {
	Aranan       string `json:"aranan"`
	ArananKelime string `json:"arananKelime"`
	Birim        string `json:"birimYrgKurulDaire"`
	EsasYil      string `json:"esasYil"`
	EsasIlkSira  string `json:"esasIlkSiraNo"`
	EsasSonSira  string `json:"esasSonSiraNo"`
	KararYil     string `json:"kararYil"`
	KararIlkSira string `json:"kararIlkSiraNo"`
	KararSonSira string `json:"kararSonSiraNo"`
	Baslangic    string `json:"baslangicTarihi"`
	Bitis        string `json:"bitisTarihi"`
	Siralama     string `json:"siralama"`
	SiralamaYonu string `json:"siralamaDirection"`
	PageSize     int    `json:"pageSize"`
	PageNumber   int    `json:"pageNumber"`
}

type searchResponse struct {
	Data struct {
		RecordsTotal int64             `json:"recordsTotal"`
		Rows         []searchResultRow `json:"data"`
	} `json:"data"`
}

type searchResultRow struct {
	ID          json.Number `json:"id"`
	Daire       string      `json:"daire"`
	EsasNo      string      `json:"esasNo"`
	KararNo     string      `json:"kararNo"`
	KararTarihi string      `json:"kararTarihi"`
}

type documentResponse struct {
	Data string `json:"data"`
}

// Search implements sources.Adapter.
func (a *Adapter) Search(ctx context.Context, q legal.SearchQuery) (*legal.SearchResultPage, error) {
	if err := q.Validate(maxOffset); err != nil {
		return nil, err
	}
	if q.Chamber != "" && !q.Chamber.Valid() {
		return nil, legal.Invalidf("chamber", "unknown chamber code %q", q.Chamber)
	}
	body, err := a.buildSearch(q)
	if err != nil {
		return nil, err
	}

	s, err := a.pool.Borrow(ctx, legal.SourceYargitay)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	raw, err := s.PostJSON(ctx, a.baseURL+searchPath, body)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceYargitay, "search")
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, legal.ParseFailuref("json", err, "yargitay search response is not the expected shape")
	}

	page := &legal.SearchResultPage{
		Source:       legal.SourceYargitay,
		TotalRecords: &resp.Data.RecordsTotal,
		PageIndex:    q.PageIndex,
		PageSize:     q.PageSize,
	}
	for _, row := range resp.Data.Rows {
		page.Entries = append(page.Entries, legal.Entry{
			Handle: legal.DocumentHandle{
				Source:   legal.SourceYargitay,
				NativeID: row.ID.String(),
			},
			Title:        entryTitle(row),
			Chamber:      row.Daire,
			CaseNo:       row.EsasNo,
			DecisionNo:   row.KararNo,
			DecisionDate: legal.NormalizeBackendDate(row.KararTarihi),
		})
	}
	return page, nil
}

func (a *Adapter) buildSearch(q legal.SearchQuery) ([]byte, error) {
	req := searchRequest{Data: searchData{
		Aranan:       q.Phrase,
		ArananKelime: q.Phrase,
		Siralama:     "3", // decision date
		SiralamaYonu: "desc",
		PageSize:     q.PageSize,
		PageNumber:   q.PageIndex,
	}}
	if q.Chamber != "" && q.Chamber != legal.ChamberAll {
		req.Data.Birim = q.Chamber.Label()
	}
	if q.CaseYear != 0 {
		req.Data.EsasYil = fmt.Sprintf("%d", q.CaseYear)
	}
	if q.CaseSeq != 0 {
		seq := fmt.Sprintf("%d", q.CaseSeq)
		req.Data.EsasIlkSira = seq
		req.Data.EsasSonSira = seq
	}
	if q.DecisionYear != 0 {
		req.Data.KararYil = fmt.Sprintf("%d", q.DecisionYear)
	}
	if q.DecisionSeq != 0 {
		seq := fmt.Sprintf("%d", q.DecisionSeq)
		req.Data.KararIlkSira = seq
		req.Data.KararSonSira = seq
	}
	if q.DateStart != "" || q.DateEnd != "" {
		if err := legal.ValidateDateRange(q.DateStart, q.DateEnd); err != nil {
			return nil, err
		}
		if q.DateStart != "" {
			d, err := legal.DateDotted(q.DateStart)
			if err != nil {
				return nil, err
			}
			req.Data.Baslangic = d
		}
		if q.DateEnd != "" {
			d, err := legal.DateDotted(q.DateEnd)
			if err != nil {
				return nil, err
			}
			req.Data.Bitis = d
		}
	}
	return json.Marshal(req)
}

func entryTitle(row searchResultRow) string {
	parts := make([]string, 0, 4)
	if row.Daire != "" {
		parts = append(parts, row.Daire)
	}
	if row.EsasNo != "" {
		parts = append(parts, "E. "+row.EsasNo)
	}
	if row.KararNo != "" {
		parts = append(parts, "K. "+row.KararNo)
	}
	if row.KararTarihi != "" {
		parts = append(parts, "T. "+row.KararTarihi)
	}
	return strings.Join(parts, ", ")
}

// Fetch implements sources.Adapter. The document endpoint returns the
// decision body as an HTML fragment inside a {data} envelope.
func (a *Adapter) Fetch(ctx context.Context, h legal.DocumentHandle, chunkIndex int) (*legal.NormalizedDocument, error) {
	if h.NativeID == "" {
		return nil, legal.NotFoundf("handle carries no document id")
	}
	s, err := a.pool.Borrow(ctx, legal.SourceYargitay)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	docURL := a.baseURL + documentPath + "?id=" + url.QueryEscape(h.NativeID)
	raw, err := s.GetBytes(ctx, docURL)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceYargitay, "fetch")
	}

	var doc documentResponse
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, legal.ParseFailuref("json", err, "yargitay document envelope is not the expected shape")
	}
	if strings.TrimSpace(doc.Data) == "" {
		return nil, legal.NotFoundf("no document with id %s", h.NativeID)
	}
	return sources.RenderDocument(a.norm, h, docURL, []byte(doc.Data), normalize.ContainerHTMLFragment, false, chunkIndex)
}

// Health implements sources.Adapter.
func (a *Adapter) Health(ctx context.Context) legal.HealthSample {
	return sources.Probe(ctx, legal.SourceYargitay, func(ctx context.Context) (int64, error) {
		page, err := a.Search(ctx, legal.SearchQuery{
			Source:    legal.SourceYargitay,
			Phrase:    "karar",
			PageIndex: 1,
			PageSize:  1,
		})
		if err != nil {
			return 0, err
		}
		if page.TotalRecords == nil {
			return int64(len(page.Entries)), nil
		}
		return *page.TotalRecords, nil
	})
}
