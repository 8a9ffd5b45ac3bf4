package tools

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/toolkit"
)

const (
	defaultPageSize = 10
)

// searchArgs is the shared search vocabulary. Tools with a backend-native
// vocabulary (sayistay, anayasa, bedesten) declare their own argument types.
type searchArgs struct {
	Phrase       string `json:"phrase"`
	DecisionType string `json:"decision_type"`
	Chamber      string `json:"chamber"`
	DateStart    string `json:"date_start"`
	DateEnd      string `json:"date_end"`
	CaseYear     int    `json:"case_year"`
	CaseSeq      int    `json:"case_seq"`
	DecisionYear int    `json:"decision_year"`
	DecisionSeq  int    `json:"decision_seq"`
	Subject      string `json:"subject"`
	PageIndex    int    `json:"page_index"`
	PageSize     int    `json:"page_size"`
}

func (a searchArgs) query(source legal.SourceID, subtype legal.Subtype) legal.SearchQuery {
	if a.DecisionType != "" {
		subtype = legal.Subtype(a.DecisionType)
	}
	q := legal.SearchQuery{
		Source:       source,
		Subtype:      subtype,
		Phrase:       a.Phrase,
		Chamber:      legal.ChamberCode(a.Chamber),
		DateStart:    a.DateStart,
		DateEnd:      a.DateEnd,
		CaseYear:     a.CaseYear,
		CaseSeq:      a.CaseSeq,
		DecisionYear: a.DecisionYear,
		DecisionSeq:  a.DecisionSeq,
		Subject:      a.Subject,
		PageIndex:    a.PageIndex,
		PageSize:     a.PageSize,
	}
	if q.PageIndex == 0 {
		q.PageIndex = 1
	}
	if q.PageSize == 0 {
		q.PageSize = defaultPageSize
	}
	return q
}

// searchHandler adapts the shared vocabulary to one backend capability.
func (c *Catalog) searchHandler(source legal.SourceID, subtype legal.Subtype) toolkit.Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var a searchArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, legal.Invalidf("", "arguments are not a JSON object: %v", err)
		}
		adapter, ok := c.set.Get(source)
		if !ok {
			return nil, legal.NotFoundf("backend %s is not enabled", source)
		}
		return adapter.Search(ctx, a.query(source, subtype))
	}
}

// legacySearcher is the extra capability of the procurement adapter: the
// browser-driven flow over the corpus not yet migrated to the v2 API.
type legacySearcher interface {
	SearchLegacy(ctx context.Context, q legal.SearchQuery) (*legal.SearchResultPage, error)
}

func (c *Catalog) kikLegacyHandler() toolkit.Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var a searchArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, legal.Invalidf("", "arguments are not a JSON object: %v", err)
		}
		adapter, ok := c.set.Get(legal.SourceKIK)
		if !ok {
			return nil, legal.NotFoundf("backend kik is not enabled")
		}
		legacy, ok := adapter.(legacySearcher)
		if !ok {
			return nil, legal.BackendFailuref(0, "", "kik legacy search is not available")
		}
		return legacy.SearchLegacy(ctx, a.query(legal.SourceKIK, legal.SubtypeKIKUyusmazlik))
	}
}

// anayasaArgs is the constitutional court's native vocabulary: a keyword
// list rather than a single phrase, and page_to_fetch for pagination.
type anayasaArgs struct {
	DecisionType    string   `json:"decision_type"`
	Keywords        []string `json:"keywords"`
	DateStart       string   `json:"date_start"`
	DateEnd         string   `json:"date_end"`
	ApplicationYear int      `json:"application_year"`
	ApplicationNo   int      `json:"application_no"`
	PageToFetch     int      `json:"page_to_fetch"`
	PageSize        int      `json:"page_size"`
}

func (c *Catalog) anayasaHandler() toolkit.Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var a anayasaArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, legal.Invalidf("", "arguments are not a JSON object: %v", err)
		}
		adapter, ok := c.set.Get(legal.SourceAnayasa)
		if !ok {
			return nil, legal.NotFoundf("backend anayasa is not enabled")
		}
		q := legal.SearchQuery{
			Source:    legal.SourceAnayasa,
			Subtype:   legal.Subtype(a.DecisionType),
			Phrase:    strings.Join(a.Keywords, " "),
			DateStart: a.DateStart,
			DateEnd:   a.DateEnd,
			CaseYear:  a.ApplicationYear,
			CaseSeq:   a.ApplicationNo,
			PageIndex: a.PageToFetch,
			PageSize:  a.PageSize,
		}
		if q.PageIndex == 0 {
			q.PageIndex = 1
		}
		if q.PageSize == 0 {
			q.PageSize = defaultPageSize
		}
		return adapter.Search(ctx, q)
	}
}

// sayistayArgs is the audit court's DataTables-flavored vocabulary: a
// 0-based record offset and a page length instead of page numbers.
type sayistayArgs struct {
	DecisionType string `json:"decision_type"`
	Phrase       string `json:"phrase"`
	KararNo      string `json:"karar_no"`
	KararYil     int    `json:"karar_yil"`
	Daire        string `json:"daire"`
	Start        int    `json:"start"`
	Length       int    `json:"length"`
	DateStart    string `json:"date_start"`
	DateEnd      string `json:"date_end"`
}

func (c *Catalog) sayistayHandler() toolkit.Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var a sayistayArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, legal.Invalidf("", "arguments are not a JSON object: %v", err)
		}
		adapter, ok := c.set.Get(legal.SourceSayistay)
		if !ok {
			return nil, legal.NotFoundf("backend sayistay is not enabled")
		}
		if a.Length == 0 {
			a.Length = defaultPageSize
		}
		if a.Start%a.Length != 0 {
			return nil, legal.Invalidf("start", "start must be a multiple of length, got start=%d length=%d", a.Start, a.Length)
		}
		year, seq, err := splitDecisionNo(a.KararNo)
		if err != nil {
			return nil, err
		}
		if year == 0 {
			year = a.KararYil
		}
		q := legal.SearchQuery{
			Source:       legal.SourceSayistay,
			Subtype:      legal.Subtype(a.DecisionType),
			Phrase:       a.Phrase,
			DecisionYear: year,
			DecisionSeq:  seq,
			Subject:      a.Daire,
			DateStart:    a.DateStart,
			DateEnd:      a.DateEnd,
			PageIndex:    a.Start/a.Length + 1,
			PageSize:     a.Length,
		}
		return adapter.Search(ctx, q)
	}
}

// splitDecisionNo parses "5415" and "2023/5415" forms.
func splitDecisionNo(s string) (year, seq int, err error) {
	if s == "" {
		return 0, 0, nil
	}
	if y, rest, ok := strings.Cut(s, "/"); ok {
		year, err = strconv.Atoi(y)
		if err == nil {
			seq, err = strconv.Atoi(rest)
		}
		if err != nil {
			return 0, 0, legal.Invalidf("karar_no", "%q is not in N or YYYY/N form", s)
		}
		return year, seq, nil
	}
	seq, err = strconv.Atoi(s)
	if err != nil {
		return 0, 0, legal.Invalidf("karar_no", "%q is not in N or YYYY/N form", s)
	}
	return 0, seq, nil
}

// bedestenArgs is the federated index's vocabulary; pageNumber/pageSize
// casing follows the upstream API.
type bedestenArgs struct {
	Phrase     string   `json:"phrase"`
	CourtTypes []string `json:"court_types"`
	BirimAdi   string   `json:"birim_adi"`
	DateStart  string   `json:"date_start"`
	DateEnd    string   `json:"date_end"`
	PageNumber int      `json:"pageNumber"`
	PageSize   int      `json:"pageSize"`
}

func (c *Catalog) bedestenHandler() toolkit.Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var a bedestenArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, legal.Invalidf("", "arguments are not a JSON object: %v", err)
		}
		adapter, ok := c.set.Get(legal.SourceBedesten)
		if !ok {
			return nil, legal.NotFoundf("backend bedesten is not enabled")
		}
		q := legal.SearchQuery{
			Source:     legal.SourceBedesten,
			Phrase:     a.Phrase,
			CourtTypes: a.CourtTypes,
			Subject:    a.BirimAdi,
			DateStart:  a.DateStart,
			DateEnd:    a.DateEnd,
			PageIndex:  a.PageNumber,
			PageSize:   a.PageSize,
		}
		if q.PageIndex == 0 {
			q.PageIndex = 1
		}
		if q.PageSize == 0 {
			q.PageSize = defaultPageSize
		}
		return adapter.Search(ctx, q)
	}
}
