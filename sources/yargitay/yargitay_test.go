package yargitay

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
	pool.Register(legal.SourceYargitay, session.Config{})
	t.Cleanup(pool.Shutdown)
	return New(pool, normalize.New(), nil, WithBaseURL(srv.URL))
}

func TestSearchBuildsBackendPayload(t *testing.T) {
	var captured map[string]any
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, searchPath, r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		captured = req["data"].(map[string]any)
		_, _ = w.Write([]byte(`{"data":{"recordsTotal":2,"data":[
			{"id":100123,"daire":"1. Hukuk Dairesi","esasNo":"2023/100","kararNo":"2024/55","kararTarihi":"12.03.2024"},
			{"id":100124,"daire":"Hukuk Genel Kurulu","esasNo":"2022/7","kararNo":"2023/3","kararTarihi":"01.02.2023"}
		]}}`))
	}))

	page, err := a.Search(context.Background(), legal.SearchQuery{
		Source:    legal.SourceYargitay,
		Phrase:    `"mülkiyet hakkı" +tapu`,
		Chamber:   legal.CivilChamber(1),
		DateStart: "2023-01-01",
		DateEnd:   "2024-12-31",
		PageIndex: 1,
		PageSize:  10,
	})
	require.NoError(t, err)

	assert.Equal(t, `"mülkiyet hakkı" +tapu`, captured["arananKelime"])
	assert.Equal(t, "1. Hukuk Dairesi", captured["birimYrgKurulDaire"])
	assert.Equal(t, "01.01.2023", captured["baslangicTarihi"])
	assert.Equal(t, "31.12.2024", captured["bitisTarihi"])
	assert.Equal(t, "desc", captured["siralamaDirection"])

	require.NotNil(t, page.TotalRecords)
	assert.EqualValues(t, 2, *page.TotalRecords)
	require.Len(t, page.Entries, 2)
	e := page.Entries[0]
	assert.Equal(t, "100123", e.Handle.NativeID)
	assert.Equal(t, legal.SourceYargitay, e.Handle.Source)
	assert.Equal(t, "2023/100", e.CaseNo)
	assert.Equal(t, "2024-03-12", e.DecisionDate)
	assert.Contains(t, e.Title, "E. 2023/100")
}

func TestSearchHandleStability(t *testing.T) {
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"recordsTotal":1,"data":[{"id":42,"daire":"3. Hukuk Dairesi","esasNo":"2021/9","kararNo":"2022/1","kararTarihi":"05.05.2022"}]}}`))
	}))
	q := legal.SearchQuery{Source: legal.SourceYargitay, Phrase: "kira", PageIndex: 1, PageSize: 10}
	first, err := a.Search(context.Background(), q)
	require.NoError(t, err)
	second, err := a.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, first.Entries[0].Handle.String(), second.Entries[0].Handle.String())
}

func TestSearchRejectsBadArgumentsBeforeNetwork(t *testing.T) {
	var hits int
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))

	cases := []legal.SearchQuery{
		{Source: legal.SourceYargitay, Phrase: "x", PageIndex: 0, PageSize: 10},
		{Source: legal.SourceYargitay, Phrase: "x", PageIndex: 1, PageSize: 500},
		{Source: legal.SourceYargitay, Phrase: "x", PageIndex: 2000, PageSize: 100},
		{Source: legal.SourceYargitay, Phrase: "", PageIndex: 1, PageSize: 10},
		{Source: legal.SourceYargitay, Phrase: "x", Chamber: "H99", PageIndex: 1, PageSize: 10},
	}
	for _, q := range cases {
		_, err := a.Search(context.Background(), q)
		assert.Equal(t, legal.KindInvalidArgument, legal.KindOf(err), "query %+v", q)
	}
	assert.Zero(t, hits, "invalid arguments must not reach the backend")
}

func TestSearchEmptyPhraseWithFilterIsAllowed(t *testing.T) {
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"recordsTotal":0,"data":[]}}`))
	}))
	_, err := a.Search(context.Background(), legal.SearchQuery{
		Source: legal.SourceYargitay, CaseYear: 2023, CaseSeq: 100, PageIndex: 1, PageSize: 10,
	})
	assert.NoError(t, err)
}

func TestFetchUnwrapsEnvelopeAndChunks(t *testing.T) {
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, documentPath, r.URL.Path)
		require.Equal(t, "100123", r.URL.Query().Get("id"))
		env := map[string]string{"data": "<h2>T.C. YARGITAY</h2><p>Taraflar arasındaki dava...</p>"}
		_ = json.NewEncoder(w).Encode(env)
	}))

	h := legal.DocumentHandle{Source: legal.SourceYargitay, NativeID: "100123"}
	doc, err := a.Fetch(context.Background(), h, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.ChunkIndex)
	assert.Equal(t, 1, doc.TotalChunks)
	assert.False(t, doc.IsPaginated)
	assert.Contains(t, doc.ChunkText, "T.C. YARGITAY")
	assert.Contains(t, doc.ChunkText, "Taraflar arasındaki dava")
}

func TestFetchEmptyDocumentIsNotFound(t *testing.T) {
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":""}`))
	}))
	_, err := a.Fetch(context.Background(), legal.DocumentHandle{Source: legal.SourceYargitay, NativeID: "7"}, 1)
	assert.Equal(t, legal.KindNotFound, legal.KindOf(err))
}

func TestFetchBackendErrorClassified(t *testing.T) {
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	_, err := a.Fetch(context.Background(), legal.DocumentHandle{Source: legal.SourceYargitay, NativeID: "7"}, 1)
	f := legal.AsFault(err)
	assert.Equal(t, legal.KindBackendFailure, f.Kind)
	assert.Equal(t, legal.SourceYargitay, f.Source)
}

func TestHealthUsesTrivialSearch(t *testing.T) {
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"recordsTotal":123456,"data":[{"id":1,"daire":"","esasNo":"","kararNo":"","kararTarihi":""}]}}`))
	}))
	sample := a.Health(context.Background())
	assert.Equal(t, legal.HealthHealthy, sample.Status)
	assert.Empty(t, sample.Reason)
}

func TestHealthZeroRecordsIsDegraded(t *testing.T) {
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"recordsTotal":0,"data":[]}}`))
	}))
	sample := a.Health(context.Background())
	assert.Equal(t, legal.HealthDegraded, sample.Status)
	assert.NotEmpty(t, sample.Reason)
}
