package websearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/session"
)

func borrow(t *testing.T) *session.Session {
	t.Helper()
	pool := session.NewPool(nil)
	pool.Register(legal.SourceBDDK, session.Config{})
	t.Cleanup(pool.Shutdown)
	s, err := pool.Borrow(context.Background(), legal.SourceBDDK)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s
}

func TestSearchSendsBearerTokenAndQuery(t *testing.T) {
	var captured searchRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"results":[{"title":"Kurul Kararı","url":"https://www.bddk.gov.tr/Mevzuat/1","content":"özet"}]}`))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, Token: "tvly-secret"})
	hits, err := c.Search(context.Background(), borrow(t), "faiz site:bddk.gov.tr", 10)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tvly-secret", auth)
	assert.Equal(t, "faiz site:bddk.gov.tr", captured.Query)
	assert.Equal(t, 10, captured.MaxResults)
	require.Len(t, hits, 1)
	assert.Equal(t, "Kurul Kararı", hits[0].Title)
	assert.Equal(t, "özet", hits[0].Snippet)
}

func TestSearchClampsMaxResults(t *testing.T) {
	var captured searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, Token: "t"})
	_, err := c.Search(context.Background(), borrow(t), "x", 500)
	require.NoError(t, err)
	assert.Equal(t, MaxResults, captured.MaxResults)
}

func TestSearchWithoutTokenFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("a missing token must not reach the API")
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL})
	_, err := c.Search(context.Background(), borrow(t), "x", 5)
	assert.Equal(t, legal.KindAuthExpired, legal.KindOf(err))
}

func TestEntriesDropOffDomainHits(t *testing.T) {
	hits := []Hit{
		{Title: "Karar 1", URL: "https://www.kvkk.gov.tr/Icerik/7154/2021-1187", Snippet: "özet 1"},
		{Title: "Haber", URL: "https://example.com/kvkk-karari", Snippet: "off-domain"},
		{Title: "Karar 2", URL: "https://kvkk.gov.tr/Icerik/7200/2022-23?dil=tr", Snippet: "özet 2"},
		{Title: "Bozuk", URL: "://not-a-url", Snippet: ""},
	}
	entries := Entries(hits, legal.SourceKVKK, "kvkk.gov.tr")
	require.Len(t, entries, 2)
	assert.Equal(t, "/Icerik/7154/2021-1187", entries[0].Handle.NativeID)
	assert.Equal(t, "https://www.kvkk.gov.tr/Icerik/7154/2021-1187", entries[0].Handle.LandingURL)
	assert.Equal(t, "/Icerik/7200/2022-23?dil=tr", entries[1].Handle.NativeID)
}

func TestWindow(t *testing.T) {
	entries := make([]legal.Entry, 7)
	assert.Len(t, Window(entries, 0, 5), 5)
	assert.Len(t, Window(entries, 5, 5), 2)
	assert.Nil(t, Window(entries, 10, 5))
}
