// Package rekabet adapts the Competition Authority decision index
// (rekabet.gov.tr). Searches follow DataTables conventions over GET;
// decisions are published as PDFs whose URL pattern has changed across site
// revisions, so retrieval walks the known patterns in order.
package rekabet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/normalize"
	"github.com/adliye/lexgate/runtime/session"
	"github.com/adliye/lexgate/runtime/telemetry"
	"github.com/adliye/lexgate/sources"
)

const (
	defaultBaseURL = "https://www.rekabet.gov.tr"
	searchPath     = "/tr/Kararlar"

	maxOffset = 5000
)

// pdfPathPatterns are the document URL shapes observed across the site's
// revisions, tried in order. First response that is both 2xx and an actual
// PDF wins; a 2xx HTML error page does not.
var pdfPathPatterns = []string{
	"/Karar?kararId=%s",
	"/Dosya/karar/%s.pdf",
	"/KararDosya/%s",
}

type (
	// Adapter implements the rekabet capability set.
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

// New constructs the adapter over a pool with a registered rekabet entry.
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
func (a *Adapter) ID() legal.SourceID { return legal.SourceRekabet }

// decisionKinds maps canonical subtypes to the backend's category labels.
var decisionKinds = map[legal.Subtype]string{
	legal.SubtypeRekabetIhlal:    "İhlal",
	legal.SubtypeRekabetBirlesme: "Birleşme ve Devralma",
	legal.SubtypeRekabetMuafiyet: "Muafiyet",
}

type searchResponse struct {
	RecordsTotal int64 `json:"recordsTotal"`
	Rows         []struct {
		KararID     string `json:"kararId"`
		Baslik      string `json:"baslik"`
		KararNo     string `json:"kararNo"`
		KararTarihi string `json:"kararTarihi"`
		KararTuru   string `json:"kararTuru"`
	} `json:"data"`
}

// Search implements sources.Adapter.
func (a *Adapter) Search(ctx context.Context, q legal.SearchQuery) (*legal.SearchResultPage, error) {
	if err := q.Validate(maxOffset); err != nil {
		return nil, err
	}
	kind := ""
	if q.Subtype != "" {
		var ok bool
		if kind, ok = decisionKinds[q.Subtype]; !ok {
			return nil, legal.Invalidf("subtype", "rekabet has no decision kind %q", q.Subtype)
		}
	}

	params := url.Values{}
	params.Set("draw", "1")
	params.Set("start", strconv.Itoa(q.Offset()))
	params.Set("length", strconv.Itoa(q.PageSize))
	params.Set("metin", q.Phrase)
	if kind != "" {
		params.Set("kararTuru", kind)
	}
	if q.DecisionYear != 0 && q.DecisionSeq != 0 {
		params.Set("kararNo", legal.CaseNumber(q.DecisionYear, q.DecisionSeq))
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
			params.Set("baslangicTarihi", lo)
		}
		if hi != "" {
			params.Set("bitisTarihi", hi)
		}
	}

	s, err := a.pool.Borrow(ctx, legal.SourceRekabet)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	raw, err := s.GetBytes(ctx, a.baseURL+searchPath+"?"+params.Encode())
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceRekabet, "search")
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, legal.ParseFailuref("json", err, "rekabet search response is not the expected shape")
	}

	page := &legal.SearchResultPage{
		Source:       legal.SourceRekabet,
		Subtype:      q.Subtype,
		TotalRecords: &resp.RecordsTotal,
		PageIndex:    q.PageIndex,
		PageSize:     q.PageSize,
	}
	for _, row := range resp.Rows {
		title := row.Baslik
		if title == "" {
			title = fmt.Sprintf("Rekabet Kurulu Kararı %s", row.KararNo)
		}
		page.Entries = append(page.Entries, legal.Entry{
			Handle: legal.DocumentHandle{
				Source:   legal.SourceRekabet,
				Subtype:  q.Subtype,
				NativeID: row.KararID,
			},
			Title:        title,
			DecisionNo:   row.KararNo,
			DecisionDate: legal.NormalizeBackendDate(row.KararTarihi),
			Subject:      row.KararTuru,
		})
	}
	return page, nil
}

// Fetch implements sources.Adapter. The decision PDF is tried at each known
// URL pattern; a 2xx response without the PDF magic header is treated as the
// site's HTML error page and the walk continues.
func (a *Adapter) Fetch(ctx context.Context, h legal.DocumentHandle, chunkIndex int) (*legal.NormalizedDocument, error) {
	if h.NativeID == "" {
		return nil, legal.NotFoundf("handle carries no decision id")
	}
	s, err := a.pool.Borrow(ctx, legal.SourceRekabet)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	var lastErr error
	for _, pattern := range pdfPathPatterns {
		docURL := a.baseURL + fmt.Sprintf(pattern, url.QueryEscape(h.NativeID))
		raw, err := s.GetBytes(ctx, docURL)
		if err != nil {
			lastErr = err
			continue
		}
		if !normalize.IsPDF(raw) {
			a.logger.Debug(ctx, "rekabet url pattern served non-pdf content, trying next",
				"url_pattern", pattern)
			lastErr = legal.BackendFailuref(200, "", "decision url served non-PDF content")
			continue
		}
		return sources.RenderDocument(a.norm, h, docURL, raw, normalize.ContainerPDF, false, chunkIndex)
	}
	if lastErr == nil {
		lastErr = legal.NotFoundf("no decision PDF behind id %s", h.NativeID)
	}
	return nil, legal.Annotate(lastErr, legal.SourceRekabet, "fetch")
}

// Health implements sources.Adapter.
func (a *Adapter) Health(ctx context.Context) legal.HealthSample {
	return sources.Probe(ctx, legal.SourceRekabet, func(ctx context.Context) (int64, error) {
		page, err := a.Search(ctx, legal.SearchQuery{
			Source:    legal.SourceRekabet,
			Phrase:    "rekabet",
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
