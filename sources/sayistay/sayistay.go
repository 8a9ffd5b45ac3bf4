// Package sayistay adapts the Court of Accounts decision banks
// (sayistay.gov.tr). WebForms family: three sub-sites (general assembly,
// appeals board, chamber), each with its own landing page, anti-forgery
// token, DataTables list endpoint and column vocabulary. Token warm-up and
// the 403/419 retry-once policy live in the session layer; this adapter
// declares the per-subtype wiring.
package sayistay

import (
	"bytes"
	"context"
	"encoding/json"
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
	defaultBaseURL = "https://www.sayistay.gov.tr"

	tokenField = "__RequestVerificationToken"

	maxOffset = 5000
)

// endpoints wires one decision subtype to its sub-site.
type endpoints struct {
	landing string
	list    string
	detail  string
}

var subtypeEndpoints = map[legal.Subtype]endpoints{
	legal.SubtypeGenelKurul: {
		landing: "/KararlarGenelKurul",
		list:    "/KararlarGenelKurul/DataTablesList",
		detail:  "/KararlarGenelKurul/Detay/",
	},
	legal.SubtypeTemyizKurulu: {
		landing: "/KararlarTemyiz",
		list:    "/KararlarTemyiz/DataTablesList",
		detail:  "/KararlarTemyiz/Detay/",
	},
	legal.SubtypeDaire: {
		landing: "/KararlarDaire",
		list:    "/KararlarDaire/DataTablesList",
		detail:  "/KararlarDaire/Detay/",
	},
}

type (
	// Adapter implements the sayistay capability set.
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

// New constructs the adapter over a pool with a registered sayistay entry.
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
func (a *Adapter) ID() legal.SourceID { return legal.SourceSayistay }

// listResponse is the DataTables reply shared by the three sub-sites. Row
// columns differ per subtype; the superset below covers all three.
type listResponse struct {
	RecordsTotal int64 `json:"recordsTotal"`
	Rows         []struct {
		ID          json.Number `json:"id"`
		KararNo     string      `json:"kararNo"`
		TutanakNo   string      `json:"tutanakNo"`
		KararTarih  string      `json:"kararTarih"`
		TutanakTari string      `json:"tutanakTarih"`
		DaireNo     string      `json:"daireNo"`
		KararOzeti  string      `json:"kararOzeti"`
	} `json:"data"`
}

// Search implements sources.Adapter.
func (a *Adapter) Search(ctx context.Context, q legal.SearchQuery) (*legal.SearchResultPage, error) {
	eps, ok := subtypeEndpoints[q.Subtype]
	if !ok {
		return nil, legal.Invalidf("subtype", "sayistay has no decision subtype %q", q.Subtype)
	}
	if err := q.Validate(maxOffset); err != nil {
		return nil, err
	}
	form, err := buildForm(q)
	if err != nil {
		return nil, err
	}

	s, err := a.pool.Borrow(ctx, legal.SourceSayistay)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	var resp listResponse
	sub := string(q.Subtype)
	err = s.WithAuthRetry(ctx, sub, func(ctx context.Context) error {
		token, err := s.CSRFToken(ctx, sub, a.tokenFetcher(s, eps.landing))
		if err != nil {
			return err
		}
		form.Set(tokenField, token)
		raw, err := s.PostForm(ctx, a.baseURL+eps.list, form)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &resp); err != nil {
			return legal.ParseFailuref("json", err, "sayistay list response is not the expected shape")
		}
		return nil
	})
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceSayistay, "search")
	}

	page := &legal.SearchResultPage{
		Source:       legal.SourceSayistay,
		Subtype:      q.Subtype,
		TotalRecords: &resp.RecordsTotal,
		PageIndex:    q.PageIndex,
		PageSize:     q.PageSize,
	}
	for _, row := range resp.Rows {
		date := row.KararTarih
		if date == "" {
			date = row.TutanakTari
		}
		no := row.KararNo
		if no == "" {
			no = row.TutanakNo
		}
		title := make([]string, 0, 3)
		if row.DaireNo != "" {
			title = append(title, row.DaireNo+". Daire")
		}
		if no != "" {
			title = append(title, "Karar No. "+no)
		}
		if date != "" {
			title = append(title, "T. "+date)
		}
		page.Entries = append(page.Entries, legal.Entry{
			Handle: legal.DocumentHandle{
				Source:   legal.SourceSayistay,
				Subtype:  q.Subtype,
				NativeID: row.ID.String(),
			},
			Title:        strings.Join(title, ", "),
			Chamber:      row.DaireNo,
			DecisionNo:   no,
			DecisionDate: legal.NormalizeBackendDate(date),
			Subject:      row.KararOzeti,
		})
	}
	return page, nil
}

func buildForm(q legal.SearchQuery) (url.Values, error) {
	form := url.Values{}
	form.Set("draw", "1")
	form.Set("start", strconv.Itoa(q.Offset()))
	form.Set("length", strconv.Itoa(q.PageSize))
	form.Set("search[value]", q.Phrase)
	if q.DecisionSeq != 0 {
		form.Set("KararNo", strconv.Itoa(q.DecisionSeq))
	}
	if q.DecisionYear != 0 {
		form.Set("KararYil", strconv.Itoa(q.DecisionYear))
	}
	// The chamber sub-site filters by chamber number carried in Subject.
	if q.Subject != "" {
		form.Set("DaireNo", q.Subject)
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
			form.Set("KararTarihBaslangic", lo)
		}
		if hi != "" {
			form.Set("KararTarihBitis", hi)
		}
	}
	return form, nil
}

// tokenFetcher loads the sub-site landing page and harvests the hidden
// anti-forgery field.
func (a *Adapter) tokenFetcher(s *session.Session, landing string) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		raw, err := s.GetBytes(ctx, a.baseURL+landing)
		if err != nil {
			return "", err
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
		if err != nil {
			return "", legal.ParseFailuref("html_page", err, "sayistay landing page is not parseable HTML")
		}
		token, ok := doc.Find(`input[name="` + tokenField + `"]`).First().Attr("value")
		if !ok || token == "" {
			return "", legal.ParseFailuref("html_page", nil, "sayistay landing page carries no anti-forgery token")
		}
		return token, nil
	}
}

// Fetch implements sources.Adapter. Decision detail pages are HTML
// fragments with the findings in tables, so the table plugin is enabled.
func (a *Adapter) Fetch(ctx context.Context, h legal.DocumentHandle, chunkIndex int) (*legal.NormalizedDocument, error) {
	eps, ok := subtypeEndpoints[h.Subtype]
	if !ok {
		return nil, legal.Invalidf("subtype", "sayistay has no decision subtype %q", h.Subtype)
	}
	if h.NativeID == "" {
		return nil, legal.NotFoundf("handle carries no decision id")
	}

	s, err := a.pool.Borrow(ctx, legal.SourceSayistay)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	docURL := a.baseURL + eps.detail + url.PathEscape(h.NativeID)
	raw, err := s.GetBytes(ctx, docURL)
	if err != nil {
		return nil, legal.Annotate(err, legal.SourceSayistay, "fetch")
	}
	return sources.RenderDocument(a.norm, h, docURL, raw, normalize.ContainerHTMLFragment, true, chunkIndex)
}

// Health implements sources.Adapter.
func (a *Adapter) Health(ctx context.Context) legal.HealthSample {
	return sources.Probe(ctx, legal.SourceSayistay, func(ctx context.Context) (int64, error) {
		page, err := a.Search(ctx, legal.SearchQuery{
			Source:    legal.SourceSayistay,
			Subtype:   legal.SubtypeGenelKurul,
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
