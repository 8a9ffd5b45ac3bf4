// Package emsal adapts the UYAP precedent index (emsal.uyap.gov.tr), the
// first-instance and regional court decision corpus. JSON-over-HTTP family,
// same envelope conventions as the high-court backends.
package emsal

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
	defaultBaseURL = "https://emsal.uyap.gov.tr"
	searchPath     = "/aramadetaylist"
	documentPath   = "/getDokuman"

	maxOffset = 10000
)

type (
	// Adapter implements the emsal capability set.
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

// New constructs the adapter over a pool with a registered emsal entry.
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
func (a *Adapter) ID() legal.SourceID { return legal.SourceEmsal }

type searchRequest struct {
	Data searchData `json:"data"`
}

type searchData struct {
	Aranan       string `json:"aranan"`
	ArananKelime string `json:"arananKelime"`
	Birim        string `json:"birimHukukMah"`
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
		RecordsTotal int64 `json:"recordsTotal"`
		Rows         []struct {
			ID          json.Number `json:"id"`
			Daire       string      `json:"daire"`
			EsasNo      string      `json:"esasNo"`
			KararNo     string      `json:"kararNo"`
			KararTarihi string      `json:"kararTarihi"`
			Durum       string      `json:"durum"`
		} `json:"data"`
	} `json:"data"`
}

type documentResponse struct {
	Data string `json:"data"`
}

// Search implements sources.Adapter.
func (a *Adapter) Search(ctx context.Context, q legal.SearchQuery) (*legal.SearchResultPage, error) {
	if err := q.Validate(maxOffset); err != nil {
		return nil, err
	}

	req := searchRequest{Data: searchData{
		Aranan:       q.Phrase,
		ArananKelime: q.Phrase,
		Siralama:     "3",
		SiralamaYonu: "desc",
		PageSize:     q.PageSize,
		PageNumber:   q.PageIndex,
	}}
	// The precedent index filters by court name, not by the high-court
	// chamber set; the canonical chamber filter is forwarded as a label.
	if q.Chamber != "" && q.Chamber != legal.ChamberAll {
		if !q.Chamber.Valid() {
			return nil, legal.Invalidf("chamber", "unknown chamber code %q", q.Chamber)
		}
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
		var err error
		if req.Data.Baslangic, err = legal.DateDotted(q.DateStart); err != nil {
			return nil, err
		}
		if req.Data.Bitis, err = legal.DateDotted(q.DateEnd); err != nil {
			return nil, err
		}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, legal.ParseFailuref("json", err, "marshal emsal search request")
	}

	s, err := a.pool.Borrow(ctx, legal.SourceEmsal)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	raw, err := s.PostJSON(ctx, a.baseURL+searchPath, body)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceEmsal, "search")
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, legal.ParseFailuref("json", err, "emsal search response is not the expected shape")
	}

	page := &legal.SearchResultPage{
		Source:       legal.SourceEmsal,
		TotalRecords: &resp.Data.RecordsTotal,
		PageIndex:    q.PageIndex,
		PageSize:     q.PageSize,
	}
	for _, row := range resp.Data.Rows {
		title := make([]string, 0, 4)
		if row.Daire != "" {
			title = append(title, row.Daire)
		}
		if row.EsasNo != "" {
			title = append(title, "E. "+row.EsasNo)
		}
		if row.KararNo != "" {
			title = append(title, "K. "+row.KararNo)
		}
		if row.KararTarihi != "" {
			title = append(title, "T. "+row.KararTarihi)
		}
		page.Entries = append(page.Entries, legal.Entry{
			Handle: legal.DocumentHandle{
				Source:   legal.SourceEmsal,
				NativeID: row.ID.String(),
			},
			Title:        strings.Join(title, ", "),
			Chamber:      row.Daire,
			CaseNo:       row.EsasNo,
			DecisionNo:   row.KararNo,
			DecisionDate: legal.NormalizeBackendDate(row.KararTarihi),
			Outcome:      row.Durum,
		})
	}
	return page, nil
}

// Fetch implements sources.Adapter.
func (a *Adapter) Fetch(ctx context.Context, h legal.DocumentHandle, chunkIndex int) (*legal.NormalizedDocument, error) {
	if h.NativeID == "" {
		return nil, legal.NotFoundf("handle carries no document id")
	}
	s, err := a.pool.Borrow(ctx, legal.SourceEmsal)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	docURL := a.baseURL + documentPath + "?id=" + url.QueryEscape(h.NativeID)
	raw, err := s.GetBytes(ctx, docURL)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceEmsal, "fetch")
	}

	var doc documentResponse
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, legal.ParseFailuref("json", err, "emsal document envelope is not the expected shape")
	}
	if strings.TrimSpace(doc.Data) == "" {
		return nil, legal.NotFoundf("no document with id %s", h.NativeID)
	}
	return sources.RenderDocument(a.norm, h, docURL, []byte(doc.Data), normalize.ContainerHTMLFragment, false, chunkIndex)
}

// Health implements sources.Adapter.
func (a *Adapter) Health(ctx context.Context) legal.HealthSample {
	return sources.Probe(ctx, legal.SourceEmsal, func(ctx context.Context) (int64, error) {
		page, err := a.Search(ctx, legal.SearchQuery{
			Source:    legal.SourceEmsal,
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
