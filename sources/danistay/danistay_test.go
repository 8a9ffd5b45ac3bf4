package danistay

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
)

func newAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	pool := session.NewPool(nil)
	pool.Register(legal.SourceDanistay, session.Config{})
	t.Cleanup(pool.Shutdown)
	return New(pool, normalize.New(), nil, WithBaseURL(srv.URL))
}

const resultPage = `{"data":{"recordsTotal":1,"data":[
	{"id":555,"daire":"10. Daire","esasNo":"2020/100","kararNo":"2023/42","kararTarihi":"10.01.2023"}
]}}`

func TestKeywordSearchHitsKeywordEndpoint(t *testing.T) {
	var gotPath string
	var captured map[string]any
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		captured = req["data"].(map[string]any)
		_, _ = w.Write([]byte(resultPage))
	}))

	page, err := a.Search(context.Background(), legal.SearchQuery{
		Source:    legal.SourceDanistay,
		Subtype:   legal.SubtypeKeyword,
		Phrase:    "imar planı",
		PageIndex: 1,
		PageSize:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, keywordPath, gotPath)
	assert.Equal(t, []any{"imar planı"}, captured["andKelimeler"])
	assert.Equal(t, []any{}, captured["orKelimeler"], "empty lists must be present, not null")
	require.Len(t, page.Entries, 1)
	assert.Equal(t, legal.SubtypeKeyword, page.Subtype)
	assert.Equal(t, "2023-01-10", page.Entries[0].DecisionDate)
}

func TestDetailedSearchHitsDetailedEndpoint(t *testing.T) {
	var gotPath string
	var captured map[string]any
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		captured = req["data"].(map[string]any)
		_, _ = w.Write([]byte(resultPage))
	}))

	_, err := a.Search(context.Background(), legal.SearchQuery{
		Source:    legal.SourceDanistay,
		Subtype:   legal.SubtypeDetailed,
		Phrase:    "iptal",
		Chamber:   legal.DanistayChamber(10),
		CaseYear:  2020,
		CaseSeq:   100,
		PageIndex: 1,
		PageSize:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, detailedPath, gotPath)
	assert.Equal(t, "10. Daire", captured["daire"])
	assert.Equal(t, "2020", captured["esasYil"])
	assert.Equal(t, "100", captured["esasIlkSiraNo"])
}

func TestKeywordSearchRequiresPhrase(t *testing.T) {
	var hits int
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ }))
	_, err := a.Search(context.Background(), legal.SearchQuery{
		Source:    legal.SourceDanistay,
		Subtype:   legal.SubtypeKeyword,
		CaseYear:  2020,
		CaseSeq:   1,
		PageIndex: 1,
		PageSize:  10,
	})
	assert.Equal(t, legal.KindInvalidArgument, legal.KindOf(err))
	assert.Zero(t, hits)
}

func TestUnknownSubtypeRejected(t *testing.T) {
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	_, err := a.Search(context.Background(), legal.SearchQuery{
		Source:    legal.SourceDanistay,
		Subtype:   "appeals",
		Phrase:    "x",
		PageIndex: 1,
		PageSize:  10,
	})
	assert.Equal(t, legal.KindInvalidArgument, legal.KindOf(err))
}

func TestFetchDocument(t *testing.T) {
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "555", r.URL.Query().Get("id"))
		_ = json.NewEncoder(w).Encode(map[string]string{"data": "<p>Dava konusu işlemin iptali istenilmektedir.</p>"})
	}))
	doc, err := a.Fetch(context.Background(), legal.DocumentHandle{Source: legal.SourceDanistay, NativeID: "555"}, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.ChunkIndex, "out-of-range chunk clamps down")
	assert.Contains(t, doc.ChunkText, "iptali istenilmektedir")
}
