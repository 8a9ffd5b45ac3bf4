// Package bedesten adapts the Ministry of Justice federated decision index
// (bedesten.adalet.gov.tr), which serves several court corpora behind one
// JSON API. Searches may be restricted to named corpora via court types;
// documents come back base64-packed with a declared MIME type that decides
// whether the HTML or the PDF pipeline renders them.
package bedesten

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/normalize"
	"github.com/adliye/lexgate/runtime/session"
	"github.com/adliye/lexgate/runtime/telemetry"
	"github.com/adliye/lexgate/sources"
)

const (
	defaultBaseURL = "https://bedesten.adalet.gov.tr"

	searchPath   = "/emsal-karar/searchDocuments"
	documentPath = "/emsal-karar/getDocumentContent"

	applicationName = "UyapMevzuat"

	maxOffset = 10000
)

// courtNames maps the index's item-type literals to display court names.
// The key set doubles as the closed court_types vocabulary.
var courtNames = map[string]string{
	"YARGITAYKARARI": "Yargıtay",
	"DANISTAYKARAR":  "Danıştay",
	"YERELHUKUK":     "Yerel Hukuk Mahkemesi",
	"ISTINAFHUKUK":   "İstinaf Hukuk Mahkemesi",
	"KYB":            "Kanun Yararına Bozma",
}

type (
	// Adapter implements the bedesten capability set.
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

// New constructs the adapter over a pool with a registered bedesten entry.
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
func (a *Adapter) ID() legal.SourceID { return legal.SourceBedesten }

type searchRequest struct {
	Data            searchData `json:"data"`
	ApplicationName string     `json:"applicationName"`
	Paging          bool       `json:"paging"`
}

type searchData struct {
	PageSize     int      `json:"pageSize"`
	PageNumber   int      `json:"pageNumber"`
	ItemTypeList []string `json:"itemTypeList"`
	Phrase       string   `json:"phrase"`
	BirimAdi     string   `json:"birimAdi,omitempty"`
	DateStart    string   `json:"kararTarihiStart,omitempty"`
	DateEnd      string   `json:"kararTarihiEnd,omitempty"`
}

type searchResponse struct {
	Data struct {
		Total int64 `json:"total"`
		Rows  []struct {
			DocumentID string `json:"documentId"`
			ItemType   struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			} `json:"itemType"`
			BirimAdi    string      `json:"birimAdi"`
			EsasYil     json.Number `json:"esasNoYil"`
			EsasSira    json.Number `json:"esasNoSira"`
			KararYil    json.Number `json:"kararNoYil"`
			KararSira   json.Number `json:"kararNoSira"`
			KararTarihi string      `json:"kararTarihiStr"`
		} `json:"emsalKararList"`
	} `json:"data"`
}

type documentRequest struct {
	Data            documentData `json:"data"`
	ApplicationName string       `json:"applicationName"`
}

type documentData struct {
	DocumentID string `json:"documentId"`
}

type documentResponse struct {
	Data struct {
		Content  string `json:"content"`
		MimeType string `json:"mimeType"`
	} `json:"data"`
}

// Search implements sources.Adapter.
func (a *Adapter) Search(ctx context.Context, q legal.SearchQuery) (*legal.SearchResultPage, error) {
	if err := q.Validate(maxOffset); err != nil {
		return nil, err
	}
	if q.Phrase == "" {
		return nil, legal.Invalidf("phrase", "the federated index requires a search phrase")
	}
	for _, ct := range q.CourtTypes {
		if _, ok := courtNames[ct]; !ok {
			return nil, legal.Invalidf("court_types", "unknown court type %q", ct)
		}
	}

	req := searchRequest{
		ApplicationName: applicationName,
		Paging:          true,
		Data: searchData{
			PageSize:     q.PageSize,
			PageNumber:   q.PageIndex,
			ItemTypeList: q.CourtTypes,
			Phrase:       q.Phrase,
			BirimAdi:     q.Subject,
		},
	}
	if req.Data.ItemTypeList == nil {
		req.Data.ItemTypeList = []string{}
	}
	if q.DateStart != "" || q.DateEnd != "" {
		if err := legal.ValidateDateRange(q.DateStart, q.DateEnd); err != nil {
			return nil, err
		}
		var err error
		if req.Data.DateStart, req.Data.DateEnd, err = legal.DateRangeISO(q.DateStart, q.DateEnd); err != nil {
			return nil, err
		}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, legal.ParseFailuref("json", err, "marshal bedesten search request")
	}

	s, err := a.pool.Borrow(ctx, legal.SourceBedesten)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	raw, err := s.PostJSON(ctx, a.baseURL+searchPath, body)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceBedesten, "search")
	}
	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, legal.ParseFailuref("json", err, "bedesten search response is not the expected shape")
	}

	page := &legal.SearchResultPage{
		Source:       legal.SourceBedesten,
		TotalRecords: &resp.Data.Total,
		PageIndex:    q.PageIndex,
		PageSize:     q.PageSize,
	}
	for _, row := range resp.Data.Rows {
		court := courtNames[row.ItemType.Name]
		if court == "" {
			court = row.ItemType.Description
		}
		caseNo := caseNumber(row.EsasYil, row.EsasSira)
		decisionNo := caseNumber(row.KararYil, row.KararSira)
		title := make([]string, 0, 4)
		if row.BirimAdi != "" {
			title = append(title, row.BirimAdi)
		} else if court != "" {
			title = append(title, court)
		}
		if caseNo != "" {
			title = append(title, "E. "+caseNo)
		}
		if decisionNo != "" {
			title = append(title, "K. "+decisionNo)
		}
		if row.KararTarihi != "" {
			title = append(title, "T. "+row.KararTarihi)
		}
		page.Entries = append(page.Entries, legal.Entry{
			Handle: legal.DocumentHandle{
				Source:   legal.SourceBedesten,
				NativeID: row.DocumentID,
			},
			Title:        strings.Join(title, ", "),
			Chamber:      row.BirimAdi,
			CaseNo:       caseNo,
			DecisionNo:   decisionNo,
			DecisionDate: legal.NormalizeBackendDate(row.KararTarihi),
			Court:        court,
		})
	}
	return page, nil
}

func caseNumber(year, seq json.Number) string {
	y, _ := year.Int64()
	n, _ := seq.Int64()
	return legal.CaseNumber(int(y), int(n))
}

// Fetch implements sources.Adapter. The index wraps documents as base64 in a
// JSON envelope; the declared MIME type picks the rendering pipeline, with a
// byte sniff as the tie-breaker for backends that mislabel PDFs.
func (a *Adapter) Fetch(ctx context.Context, h legal.DocumentHandle, chunkIndex int) (*legal.NormalizedDocument, error) {
	if h.NativeID == "" {
		return nil, legal.NotFoundf("handle carries no document id")
	}
	body, err := json.Marshal(documentRequest{
		ApplicationName: applicationName,
		Data:            documentData{DocumentID: h.NativeID},
	})
	if err != nil {
		return nil, legal.ParseFailuref("json", err, "marshal bedesten document request")
	}

	s, err := a.pool.Borrow(ctx, legal.SourceBedesten)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	docURL := a.baseURL + documentPath
	raw, err := s.PostJSON(ctx, docURL, body)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceBedesten, "fetch")
	}
	var resp documentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, legal.ParseFailuref("json", err, "bedesten document response is not the expected shape")
	}
	if resp.Data.Content == "" {
		return nil, legal.Annotate(legal.NotFoundf("the index returned no content for document %s", h.NativeID), legal.SourceBedesten, "fetch")
	}
	decoded, err := base64.StdEncoding.DecodeString(resp.Data.Content)
	if err != nil {
		return nil, legal.ParseFailuref("base64", err, "bedesten document content is not valid base64")
	}

	container := normalize.ContainerHTMLFragment
	if strings.Contains(resp.Data.MimeType, "pdf") || normalize.IsPDF(decoded) {
		container = normalize.ContainerPDF
	}
	return sources.RenderDocument(a.norm, h, docURL, decoded, container, false, chunkIndex)
}

// Health implements sources.Adapter.
func (a *Adapter) Health(ctx context.Context) legal.HealthSample {
	return sources.Probe(ctx, legal.SourceBedesten, func(ctx context.Context) (int64, error) {
		page, err := a.Search(ctx, legal.SearchQuery{
			Source:    legal.SourceBedesten,
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
