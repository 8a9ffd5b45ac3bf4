// Package danistay adapts the Council of State decision search
// (karararama.danistay.gov.tr). Same JSON-over-HTTP family as yargitay but
// with two search modes: a keyword list endpoint and a detailed filter
// endpoint. The adapter dispatches on the query subtype.
package danistay

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
	defaultBaseURL = "https://karararama.danistay.gov.tr"
	keywordPath    = "/aramalist"
	detailedPath   = "/aramadetaylist"
	documentPath   = "/getDokuman"

	maxOffset = 10000
)

type (
	// Adapter implements the danistay capability set.
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

// New constructs the adapter over a pool with a registered danistay entry.
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
func (a *Adapter) ID() legal.SourceID { return legal.SourceDanistay }

// keywordRequest is the /aramalist payload: the phrase travels as a
// one-element AND list, operator parsing is the backend's concern.
type keywordRequest struct {
	Data keywordData `json:"data"`
}

type keywordData struct {
	AndKelimeler    []string `json:"andKelimeler"`
	OrKelimeler     []string `json:"orKelimeler"`
	NotAndKelimeler []string `json:"notAndKelimeler"`
	NotOrKelimeler  []string `json:"notOrKelimeler"`
	PageSize        int      `json:"pageSize"`
	PageNumber      int      `json:"pageNumber"`
}

// detailedRequest is the /aramadetaylist payload.
type detailedRequest struct {
	Data detailedData `json:"data"`
}

type detailedData struct {
	Daire        string `json:"daire"`
	EsasYil      string `json:"esasYil"`
	EsasIlkSira  string `json:"esasIlkSiraNo"`
	EsasSonSira  string `json:"esasSonSiraNo"`
	KararYil     string `json:"kararYil"`
	KararIlkSira string `json:"kararIlkSiraNo"`
	KararSonSira string `json:"kararSonSiraNo"`
	Baslangic    string `json:"baslangicTarihi"`
	Bitis        string `json:"bitisTarihi"`
	Mevzuat      string `json:"mevzuat"`
	Aranan       string `json:"aranan"`
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
		} `json:"data"`
	} `json:"data"`
}

type documentResponse struct {
	Data string `json:"data"`
}

// Search implements sources.Adapter. The keyword subtype hits /aramalist;
// detailed (and the empty subtype) hits /aramadetaylist.
func (a *Adapter) Search(ctx context.Context, q legal.SearchQuery) (*legal.SearchResultPage, error) {
	if err := q.Validate(maxOffset); err != nil {
		return nil, err
	}
	if q.Chamber != "" && !q.Chamber.Valid() {
		return nil, legal.Invalidf("chamber", "unknown chamber code %q", q.Chamber)
	}

	var (
		path string
		body []byte
		err  error
	)
	switch q.Subtype {
	case legal.SubtypeKeyword:
		if q.Phrase == "" {
			return nil, legal.Invalidf("phrase", "keyword search requires a phrase")
		}
		path = keywordPath
		body, err = json.Marshal(keywordRequest{Data: keywordData{
			AndKelimeler:    []string{q.Phrase},
			OrKelimeler:     []string{},
			NotAndKelimeler: []string{},
			NotOrKelimeler:  []string{},
			PageSize:        q.PageSize,
			PageNumber:      q.PageIndex,
		}})
	case legal.SubtypeDetailed, "":
		path = detailedPath
		body, err = a.buildDetailed(q)
	default:
		return nil, legal.Invalidf("subtype", "danistay has no subtype %q", q.Subtype)
	}
	if err != nil {
		return nil, err
	}

	s, err := a.pool.Borrow(ctx, legal.SourceDanistay)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	raw, err := s.PostJSON(ctx, a.baseURL+path, body)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceDanistay, "search")
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, legal.ParseFailuref("json", err, "danistay search response is not the expected shape")
	}

	page := &legal.SearchResultPage{
		Source:       legal.SourceDanistay,
		Subtype:      q.Subtype,
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
				Source:   legal.SourceDanistay,
				NativeID: row.ID.String(),
			},
			Title:        strings.Join(title, ", "),
			Chamber:      row.Daire,
			CaseNo:       row.EsasNo,
			DecisionNo:   row.KararNo,
			DecisionDate: legal.NormalizeBackendDate(row.KararTarihi),
		})
	}
	return page, nil
}

func (a *Adapter) buildDetailed(q legal.SearchQuery) ([]byte, error) {
	req := detailedRequest{Data: detailedData{
		Aranan:       q.Phrase,
		Siralama:     "3",
		SiralamaYonu: "desc",
		PageSize:     q.PageSize,
		PageNumber:   q.PageIndex,
	}}
	if q.Chamber != "" && q.Chamber != legal.ChamberAll {
		req.Data.Daire = q.Chamber.Label()
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
	if q.Subject != "" {
		req.Data.Mevzuat = q.Subject
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
	return json.Marshal(req)
}

// Fetch implements sources.Adapter.
func (a *Adapter) Fetch(ctx context.Context, h legal.DocumentHandle, chunkIndex int) (*legal.NormalizedDocument, error) {
	if h.NativeID == "" {
		return nil, legal.NotFoundf("handle carries no document id")
	}
	s, err := a.pool.Borrow(ctx, legal.SourceDanistay)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	docURL := a.baseURL + documentPath + "?id=" + url.QueryEscape(h.NativeID)
	raw, err := s.GetBytes(ctx, docURL)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceDanistay, "fetch")
	}

	var doc documentResponse
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, legal.ParseFailuref("json", err, "danistay document envelope is not the expected shape")
	}
	if strings.TrimSpace(doc.Data) == "" {
		return nil, legal.NotFoundf("no document with id %s", h.NativeID)
	}
	return sources.RenderDocument(a.norm, h, docURL, []byte(doc.Data), normalize.ContainerHTMLFragment, false, chunkIndex)
}

// Health implements sources.Adapter.
func (a *Adapter) Health(ctx context.Context) legal.HealthSample {
	return sources.Probe(ctx, legal.SourceDanistay, func(ctx context.Context) (int64, error) {
		page, err := a.Search(ctx, legal.SearchQuery{
			Source:    legal.SourceDanistay,
			Subtype:   legal.SubtypeKeyword,
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
