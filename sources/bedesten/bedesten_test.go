package bedesten

import (
	"context"
	"encoding/base64"
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

func newAdapter(t *testing.T, h http.Handler) *Adapter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	pool := session.NewPool(nil)
	pool.Register(legal.SourceBedesten, session.Config{})
	t.Cleanup(pool.Shutdown)
	return New(pool, normalize.New(), nil, WithBaseURL(srv.URL))
}

func TestSearchBuildsFederatedPayload(t *testing.T) {
	var captured searchRequest
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, searchPath, r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"data":{"total":42,"emsalKararList":[
			{"documentId":"doc-001","itemType":{"name":"YARGITAYKARARI"},"birimAdi":"1. Hukuk Dairesi",
			 "esasNoYil":2022,"esasNoSira":100,"kararNoYil":2023,"kararNoSira":55,"kararTarihiStr":"12.04.2023"},
			{"documentId":"doc-002","itemType":{"name":"DANISTAYKARAR"},"birimAdi":"",
			 "kararTarihiStr":"2023-05-01T00:00:00.000Z"}
		]}}`))
	}))

	page, err := a.Search(context.Background(), legal.SearchQuery{
		Source:     legal.SourceBedesten,
		Phrase:     "mülkiyet hakkı",
		CourtTypes: []string{"YARGITAYKARARI", "DANISTAYKARAR"},
		DateStart:  "2023-01-01",
		DateEnd:    "2023-12-31",
		PageIndex:  1,
		PageSize:   10,
	})
	require.NoError(t, err)

	assert.Equal(t, applicationName, captured.ApplicationName)
	assert.True(t, captured.Paging)
	assert.Equal(t, "mülkiyet hakkı", captured.Data.Phrase)
	assert.Equal(t, []string{"YARGITAYKARARI", "DANISTAYKARAR"}, captured.Data.ItemTypeList)
	assert.Equal(t, "2023-01-01T00:00:00.000Z", captured.Data.DateStart)
	assert.Equal(t, "2023-12-31T23:59:59.999Z", captured.Data.DateEnd)

	require.NotNil(t, page.TotalRecords)
	assert.EqualValues(t, 42, *page.TotalRecords)
	require.Len(t, page.Entries, 2)

	first := page.Entries[0]
	assert.Equal(t, "Yargıtay", first.Court)
	assert.Equal(t, "2022/100", first.CaseNo)
	assert.Equal(t, "2023/55", first.DecisionNo)
	assert.Equal(t, "2023-04-12", first.DecisionDate)
	assert.Equal(t, "doc-001", first.Handle.NativeID)

	second := page.Entries[1]
	assert.Equal(t, "Danıştay", second.Court)
	assert.Equal(t, "2023-05-01", second.DecisionDate)
	assert.Empty(t, second.CaseNo, "absent case numbers stay empty, not 0/0")
}

func TestSearchWithoutCourtFilterSendsEmptyList(t *testing.T) {
	var captured map[string]any
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"data":{"total":0,"emsalKararList":[]}}`))
	}))
	_, err := a.Search(context.Background(), legal.SearchQuery{
		Source: legal.SourceBedesten, Phrase: "tazminat", PageIndex: 1, PageSize: 10,
	})
	require.NoError(t, err)
	data := captured["data"].(map[string]any)
	list, present := data["itemTypeList"]
	require.True(t, present, "the index rejects payloads missing itemTypeList")
	assert.Equal(t, []any{}, list)
}

func TestSearchRejectsUnknownCourtType(t *testing.T) {
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("invalid court type must not reach the backend")
	}))
	_, err := a.Search(context.Background(), legal.SearchQuery{
		Source:     legal.SourceBedesten,
		Phrase:     "x",
		CourtTypes: []string{"SULHCEZA"},
		PageIndex:  1,
		PageSize:   10,
	})
	require.Equal(t, legal.KindInvalidArgument, legal.KindOf(err))
	assert.Equal(t, "court_types", legal.AsFault(err).Field)
}

func TestSearchRequiresPhrase(t *testing.T) {
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("an empty phrase must not reach the backend")
	}))
	_, err := a.Search(context.Background(), legal.SearchQuery{
		Source:     legal.SourceBedesten,
		CourtTypes: []string{"KYB"},
		PageIndex:  1,
		PageSize:   10,
	})
	assert.Equal(t, legal.KindInvalidArgument, legal.KindOf(err))
}

func TestFetchDecodesHTMLContent(t *testing.T) {
	html := `<html><body><h2>T.C. YARGITAY 1. Hukuk Dairesi</h2><p>Davanın kabulüne karar verildi.</p></body></html>`
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, documentPath, r.URL.Path)
		var req documentRequest
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, "doc-001", req.Data.DocumentID)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{
			"content":  base64.StdEncoding.EncodeToString([]byte(html)),
			"mimeType": "text/html",
		}})
	}))

	h := legal.DocumentHandle{Source: legal.SourceBedesten, NativeID: "doc-001"}
	doc, err := a.Fetch(context.Background(), h, 1)
	require.NoError(t, err)
	assert.Contains(t, doc.ChunkText, "YARGITAY 1. Hukuk Dairesi")
	assert.Contains(t, doc.ChunkText, "Davanın kabulüne")
	assert.Equal(t, 1, doc.TotalChunks)
}

func TestFetchRoutesPDFContentByMimeType(t *testing.T) {
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{
			"content":  base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 truncated")),
			"mimeType": "application/pdf",
		}})
	}))

	h := legal.DocumentHandle{Source: legal.SourceBedesten, NativeID: "doc-002"}
	_, err := a.Fetch(context.Background(), h, 1)
	// A body this short cannot be a real PDF; the point is that it reached
	// the PDF pipeline instead of being treated as HTML.
	assert.Equal(t, legal.KindParseFailure, legal.KindOf(err))
}

func TestFetchEmptyContentIsNotFound(t *testing.T) {
	a := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"content":"","mimeType":""}}`))
	}))
	h := legal.DocumentHandle{Source: legal.SourceBedesten, NativeID: "gone"}
	_, err := a.Fetch(context.Background(), h, 1)
	require.Equal(t, legal.KindNotFound, legal.KindOf(err))
	assert.Equal(t, legal.SourceBedesten, legal.AsFault(err).Source)
}
