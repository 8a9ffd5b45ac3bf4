package kvkk

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
	"github.com/adliye/lexgate/runtime/normalize"
	"github.com/adliye/lexgate/runtime/session"
	"github.com/adliye/lexgate/runtime/websearch"
)

func newAdapter(t *testing.T, api http.Handler) *Adapter {
	t.Helper()
	apiSrv := httptest.NewServer(api)
	t.Cleanup(apiSrv.Close)
	pool := session.NewPool(nil)
	pool.Register(legal.SourceKVKK, session.Config{})
	t.Cleanup(pool.Shutdown)
	client := websearch.New(websearch.Config{Endpoint: apiSrv.URL, Token: "tvly-test"})
	return New(pool, client, normalize.New(), nil)
}

func TestSearchPinsSummaryMarker(t *testing.T) {
	var query string
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		query = req["query"].(string)
		_, _ = w.Write([]byte(`{"results":[
			{"title":"2021/1187 Sayılı Karar Özeti","url":"https://www.kvkk.gov.tr/Icerik/7154/2021-1187","content":"veri ihlali bildirimi"}
		]}`))
	}))

	page, err := a.Search(context.Background(), legal.SearchQuery{
		Source: legal.SourceKVKK, Phrase: "veri ihlali", PageIndex: 1, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, `veri ihlali site:kvkk.gov.tr "karar özeti"`, query)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "/Icerik/7154/2021-1187", page.Entries[0].Handle.NativeID)
	assert.Equal(t, "veri ihlali bildirimi", page.Entries[0].Subject)
}

func TestSearchRequiresPhrase(t *testing.T) {
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("an empty phrase must not reach the API")
	}))
	_, err := a.Search(context.Background(), legal.SearchQuery{
		Source: legal.SourceKVKK, DateStart: "2023-01-01", PageIndex: 1, PageSize: 10,
	})
	assert.Equal(t, legal.KindInvalidArgument, legal.KindOf(err))
}

func TestFetchRendersSummaryPage(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/Icerik/7154/2021-1187", r.URL.Path)
		_, _ = w.Write([]byte(`<html><body><h1>Karar Özeti</h1><p>Veri sorumlusu hakkında idari para cezası uygulanmasına karar verilmiştir.</p></body></html>`))
	}))
	defer site.Close()
	a := newAdapter(t, http.NotFoundHandler())

	h := legal.DocumentHandle{
		Source:     legal.SourceKVKK,
		NativeID:   "/Icerik/7154/2021-1187",
		LandingURL: site.URL + "/Icerik/7154/2021-1187",
	}
	doc, err := a.Fetch(context.Background(), h, 1)
	require.NoError(t, err)
	assert.Contains(t, doc.ChunkText, "idari para cezası")
}

func TestHandlesAreStableAcrossSearches(t *testing.T) {
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"title":"K","url":"https://www.kvkk.gov.tr/Icerik/7154/2021-1187"}]}`))
	}))
	q := legal.SearchQuery{Source: legal.SourceKVKK, Phrase: "çerez", PageIndex: 1, PageSize: 5}

	first, err := a.Search(context.Background(), q)
	require.NoError(t, err)
	second, err := a.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, first.Entries[0].Handle.String(), second.Entries[0].Handle.String())
}
