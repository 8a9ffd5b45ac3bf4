// Package kik adapts the Public Procurement Authority board decisions
// (ekap.kik.gov.tr). Two generations of the site coexist: a JSON API on the
// v2 platform and the legacy WebForms flow that only renders results
// client-side, driven through the headless browser pool. Document handles
// key decisions by (board, decision number) so a fetch can re-drive either
// flow without the original search.
package kik

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/browser"
	"github.com/adliye/lexgate/runtime/normalize"
	"github.com/adliye/lexgate/runtime/session"
	"github.com/adliye/lexgate/runtime/telemetry"
	"github.com/adliye/lexgate/sources"
)

const (
	defaultBaseURL   = "https://ekap.kik.gov.tr"
	defaultV2BaseURL = "https://ekapv2.kik.gov.tr"

	v2SearchPath = "/b_ihalearaclari/api/KurulKararlari/Search"
	v2GetURLPath = "/b_ihalearaclari/api/KurulKararlari/GetKararUrl"

	legacySearchPage = "/EKAP/Vatandas/kurulkararsorgu.aspx"
	// Known-good at the time of writing; undocumented upstream.
	legacyDocumentPath = "/EKAP/Vatandas/KurulKararGoster.aspx"

	maxOffset = 1000
)

// boards maps canonical subtypes to the v2 API's decision-type literals.
var boards = map[legal.Subtype]string{
	legal.SubtypeKIKUyusmazlik:  "rbUyusmazlik",
	legal.SubtypeKIKDuzenleyici: "rbDuzenleyici",
	legal.SubtypeKIKMahkeme:     "rbMahkeme",
}

type (
	// Adapter implements the kik capability set.
	Adapter struct {
		pool     *session.Pool
		browsers *browser.Pool
		norm     *normalize.Normalizer
		logger   telemetry.Logger
		baseURL  string
		v2URL    string
	}

	Option func(*Adapter)
)

// WithBaseURL overrides the legacy origin, used by tests.
func WithBaseURL(u string) Option {
	return func(a *Adapter) { a.baseURL = strings.TrimRight(u, "/") }
}

// WithV2BaseURL overrides the v2 origin, used by tests.
func WithV2BaseURL(u string) Option {
	return func(a *Adapter) { a.v2URL = strings.TrimRight(u, "/") }
}

// New constructs the adapter. browsers may be nil when only the v2 API is
// exercised; the legacy flow then reports BackendFailure.
func New(pool *session.Pool, browsers *browser.Pool, norm *normalize.Normalizer, logger telemetry.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		pool:     pool,
		browsers: browsers,
		norm:     norm,
		logger:   logger,
		baseURL:  defaultBaseURL,
		v2URL:    defaultV2BaseURL,
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
func (a *Adapter) ID() legal.SourceID { return legal.SourceKIK }

// EncodeKey packs a (board, decision number) pair into the URL-safe native
// id carried by kik handles.
func EncodeKey(subtype legal.Subtype, decisionNo string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(string(subtype) + "|" + decisionNo))
}

// DecodeKey unpacks a native id produced by EncodeKey.
func DecodeKey(nativeID string) (legal.Subtype, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(nativeID)
	if err != nil {
		return "", "", legal.NotFoundf("kik handle key is not valid base64")
	}
	subtype, decisionNo, ok := strings.Cut(string(raw), "|")
	if !ok || decisionNo == "" {
		return "", "", legal.NotFoundf("kik handle key is missing its decision number")
	}
	return legal.Subtype(subtype), decisionNo, nil
}

type v2SearchRequest struct {
	KararTipi  string `json:"kararTipi"`
	Keyword    string `json:"keyword"`
	KararNo    string `json:"kararNo"`
	BasTarih   string `json:"baslangicTarihi"`
	BitisTarih string `json:"bitisTarihi"`
	PageNumber int    `json:"pageNumber"`
	PageSize   int    `json:"pageSize"`
}

type v2SearchResponse struct {
	Total int64 `json:"total"`
	Items []struct {
		KararNo     string `json:"kararNo"`
		KararTarihi string `json:"kararTarihi"`
		Konu        string `json:"konu"`
		Basvuran    string `json:"basvuran"`
	} `json:"items"`
}

type v2GetURLResponse struct {
	URL string `json:"url"`
}

// Search implements sources.Adapter against the v2 JSON API.
func (a *Adapter) Search(ctx context.Context, q legal.SearchQuery) (*legal.SearchResultPage, error) {
	board, ok := boards[q.Subtype]
	if !ok {
		return nil, legal.Invalidf("subtype", "kik has no board %q", q.Subtype)
	}
	if err := q.Validate(maxOffset); err != nil {
		return nil, err
	}

	req := v2SearchRequest{
		KararTipi:  board,
		Keyword:    q.Phrase,
		KararNo:    legal.CaseNumber(q.DecisionYear, q.DecisionSeq),
		PageNumber: q.PageIndex,
		PageSize:   q.PageSize,
	}
	if q.DateStart != "" || q.DateEnd != "" {
		if err := legal.ValidateDateRange(q.DateStart, q.DateEnd); err != nil {
			return nil, err
		}
		var err error
		if req.BasTarih, err = legal.DateDotted(q.DateStart); err != nil {
			return nil, err
		}
		if req.BitisTarih, err = legal.DateDotted(q.DateEnd); err != nil {
			return nil, err
		}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, legal.ParseFailuref("json", err, "marshal kik v2 search request")
	}

	s, err := a.pool.Borrow(ctx, legal.SourceKIK)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	raw, err := s.PostJSON(ctx, a.v2URL+v2SearchPath, body)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceKIK, "search")
	}

	var resp v2SearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, legal.ParseFailuref("json", err, "kik v2 search response is not the expected shape")
	}

	page := &legal.SearchResultPage{
		Source:       legal.SourceKIK,
		Subtype:      q.Subtype,
		TotalRecords: &resp.Total,
		PageIndex:    q.PageIndex,
		PageSize:     q.PageSize,
	}
	for _, item := range resp.Items {
		page.Entries = append(page.Entries, legal.Entry{
			Handle: legal.DocumentHandle{
				Source:   legal.SourceKIK,
				Subtype:  q.Subtype,
				NativeID: EncodeKey(q.Subtype, item.KararNo),
			},
			Title:        "Kurul Kararı " + item.KararNo,
			DecisionNo:   item.KararNo,
			DecisionDate: legal.NormalizeBackendDate(item.KararTarihi),
			Subject:      item.Konu,
			Applicant:    item.Basvuran,
		})
	}
	return page, nil
}

// Fetch implements sources.Adapter. The v2 get-URL endpoint is authoritative
// when it works; the legacy document page is the fallback and its use is
// logged prominently because the path is undocumented upstream.
func (a *Adapter) Fetch(ctx context.Context, h legal.DocumentHandle, chunkIndex int) (*legal.NormalizedDocument, error) {
	subtype, decisionNo, err := DecodeKey(h.NativeID)
	if err != nil {
		return nil, err
	}
	if _, ok := boards[subtype]; !ok {
		return nil, legal.NotFoundf("kik handle names unknown board %q", subtype)
	}

	s, err := a.pool.Borrow(ctx, legal.SourceKIK)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	docURL, err := a.resolveDocumentURL(ctx, s, decisionNo)
	if err != nil {
		a.logger.Warn(ctx, "kik get-url endpoint failed, falling back to the legacy flow",
			"decision_no", decisionNo, "error", legal.AsFault(err).Message)
		docURL = ""
		if a.browsers != nil {
			docURL, err = a.locateLegacyDocument(ctx, subtype, decisionNo)
			if err != nil {
				a.logger.Warn(ctx, "kik legacy preview re-drive failed, using the hardcoded document page",
					"decision_no", decisionNo, "error", legal.AsFault(err).Message)
				docURL = ""
			}
		}
		if docURL == "" {
			docURL = a.baseURL + legacyDocumentPath + "?KararNo=" + url.QueryEscape(decisionNo)
		}
	}

	raw, err := s.GetBytes(ctx, docURL)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceKIK, "fetch")
	}
	return sources.RenderDocument(a.norm, h, docURL, raw, normalize.ContainerHTMLPage, true, chunkIndex)
}

func (a *Adapter) resolveDocumentURL(ctx context.Context, s *session.Session, decisionNo string) (string, error) {
	body, err := json.Marshal(map[string]string{"kararNo": decisionNo})
	if err != nil {
		return "", legal.ParseFailuref("json", err, "marshal kik get-url request")
	}
	raw, err := s.PostJSON(ctx, a.v2URL+v2GetURLPath, body)
	if err != nil {
		return "", err
	}
	var resp v2GetURLResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", legal.ParseFailuref("json", err, "kik get-url response is not the expected shape")
	}
	if resp.URL == "" {
		return "", legal.NotFoundf("kik get-url endpoint returned no document url")
	}
	return resp.URL, nil
}

// Health implements sources.Adapter.
func (a *Adapter) Health(ctx context.Context) legal.HealthSample {
	return sources.Probe(ctx, legal.SourceKIK, func(ctx context.Context) (int64, error) {
		page, err := a.Search(ctx, legal.SearchQuery{
			Source:    legal.SourceKIK,
			Subtype:   legal.SubtypeKIKUyusmazlik,
			Phrase:    "ihale",
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
