// Package websearch is a thin client for the external web-search API used
// by the regulator backends that expose no search endpoint of their own.
// Queries are constrained to the regulator's domain by the calling adapter;
// this package only speaks the API's wire shape.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/session"
)

// DefaultEndpoint is the hosted search API.
const DefaultEndpoint = "https://api.tavily.com/search"

// MaxResults caps a single API call; the API rejects larger values.
const MaxResults = 20

type (
	// Config carries the API coordinates. Token is required; the gateway
	// refuses to start a regulator backend without one.
	Config struct {
		Endpoint string
		Token    string
	}

	// Client issues domain-scoped queries through a borrowed session so the
	// per-source rate limits and fault classification apply.
	Client struct {
		endpoint string
		token    string
	}

	// Hit is one search result.
	Hit struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"content"`
	}
)

// New constructs a client. An empty endpoint falls back to the default.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &Client{endpoint: cfg.Endpoint, token: cfg.Token}
}

type searchRequest struct {
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
}

type searchResponse struct {
	Results []Hit `json:"results"`
}

// Search runs query and returns up to maxResults hits in API ranking order.
func (c *Client) Search(ctx context.Context, s *session.Session, query string, maxResults int) ([]Hit, error) {
	if c.token == "" {
		return nil, legal.AuthExpiredf("web-search API token is not configured")
	}
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > MaxResults {
		maxResults = MaxResults
	}
	body, err := json.Marshal(searchRequest{
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, legal.ParseFailuref("json", err, "marshal web-search request")
	}

	req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, legal.Invalidf("url", "bad web-search endpoint: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := s.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, legal.BackendFailuref(resp.StatusCode, "", "reading web-search response: %v", err)
	}
	if err := session.ClassifyStatus(resp.StatusCode, raw); err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, legal.ParseFailuref("json", err, "web-search response is not the expected shape")
	}
	return parsed.Results, nil
}

// Entries maps ranked hits to canonical entries, dropping anything the API
// returned from outside the regulator's domain. The handle's native id is
// the document's URL path so equal documents yield equal handles across
// searches.
func Entries(hits []Hit, source legal.SourceID, domain string) []legal.Entry {
	entries := make([]legal.Entry, 0, len(hits))
	for _, hit := range hits {
		u, err := url.Parse(hit.URL)
		if err != nil || !onDomain(u.Host, domain) {
			continue
		}
		path := u.Path
		if u.RawQuery != "" {
			path += "?" + u.RawQuery
		}
		entries = append(entries, legal.Entry{
			Handle: legal.DocumentHandle{
				Source:     source,
				NativeID:   path,
				LandingURL: hit.URL,
			},
			Title:   hit.Title,
			Subject: hit.Snippet,
		})
	}
	return entries
}

func onDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Window slices one ranked result list into the requested page. The API
// ranks but does not page, so callers over-fetch and slice.
func Window(entries []legal.Entry, offset, size int) []legal.Entry {
	if offset >= len(entries) {
		return nil
	}
	end := offset + size
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end]
}
