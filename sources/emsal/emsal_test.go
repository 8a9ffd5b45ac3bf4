package emsal

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
	pool.Register(legal.SourceEmsal, session.Config{})
	t.Cleanup(pool.Shutdown)
	return New(pool, normalize.New(), nil, WithBaseURL(srv.URL))
}

func TestSearchMapsRowsToEntries(t *testing.T) {
	var captured map[string]any
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		captured = req["data"].(map[string]any)
		_, _ = w.Write([]byte(`{"data":{"recordsTotal":7,"data":[
			{"id":9001,"daire":"İstanbul BAM 4. Hukuk Dairesi","esasNo":"2023/55","kararNo":"2023/891","kararTarihi":"21.11.2023","durum":"KESİNLEŞTİ"}
		]}}`))
	}))

	page, err := a.Search(context.Background(), legal.SearchQuery{
		Source:       legal.SourceEmsal,
		Phrase:       "kira tespiti",
		DecisionYear: 2023,
		DecisionSeq:  891,
		PageIndex:    1,
		PageSize:     20,
	})
	require.NoError(t, err)

	assert.Equal(t, "kira tespiti", captured["arananKelime"])
	assert.Equal(t, "2023", captured["kararYil"])
	assert.Equal(t, "891", captured["kararIlkSiraNo"])

	require.Len(t, page.Entries, 1)
	e := page.Entries[0]
	assert.Equal(t, "9001", e.Handle.NativeID)
	assert.Equal(t, "KESİNLEŞTİ", e.Outcome)
	assert.Equal(t, "2023-11-21", e.DecisionDate)
}

func TestSearchOffsetCeiling(t *testing.T) {
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("offset violations must not reach the backend")
	}))
	_, err := a.Search(context.Background(), legal.SearchQuery{
		Source: legal.SourceEmsal, Phrase: "x", PageIndex: 101, PageSize: 100,
	})
	assert.Equal(t, legal.KindInvalidArgument, legal.KindOf(err))
}

func TestFetchPaginatesLongDocuments(t *testing.T) {
	long := filler(12000)
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"data": "<p>" + long + "</p>"})
	}))
	doc, err := a.Fetch(context.Background(), legal.DocumentHandle{Source: legal.SourceEmsal, NativeID: "9001"}, 2)
	require.NoError(t, err)
	assert.True(t, doc.IsPaginated)
	assert.Equal(t, 2, doc.ChunkIndex)
	assert.Equal(t, 3, doc.TotalChunks)
	assert.NotEmpty(t, doc.ChunkText)
}

// filler builds a filler body of n ASCII characters.
func filler(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a' + byte(i%26)
	}
	return string(b)
}
