package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docgate/docgate/internal/search"
)

type searchResponse struct {
	Query   string       `json:"query"`
	Total   int64        `json:"total"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
	TookMS  int64        `json:"took_ms"`
	Source  string       `json:"source"`
	Results []search.Hit `json:"results"`
}

// indexNow pushes the document straight into the engine, standing in for
// the async pipeline.
func (a *testApp) indexNow(t *testing.T, tenantID, id, title, content string) {
	t.Helper()
	require.NoError(t, a.engine.Index(context.Background(), search.IndexDoc{
		ID: id, TenantID: tenantID, Title: title, Content: content, CreatedAt: time.Now(),
	}))
}

func TestSearchReturnsEngineResults(t *testing.T) {
	app := newTestApp(t)
	tn, key := app.newTenant(t, "acme", 10, 100)

	app.indexNow(t, tn.ID, "d1", "billing guide", "how invoices are produced")
	app.indexNow(t, tn.ID, "d2", "travel policy", "book flights early")

	w := app.do(t, http.MethodGet, "/api/v1/search?q=invoices", key, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp searchResponse
	decode(t, w, &resp)
	assert.Equal(t, "invoices", resp.Query)
	assert.Equal(t, int64(1), resp.Total)
	assert.Equal(t, "engine", resp.Source)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "d1", resp.Results[0].ID)
}

func TestSearchRequiresQuery(t *testing.T) {
	app := newTestApp(t)
	_, key := app.newTenant(t, "acme", 10, 100)

	w := app.do(t, http.MethodGet, "/api/v1/search", key, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/search?q=%20%20", key, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchClampsPagination(t *testing.T) {
	app := newTestApp(t)
	tn, key := app.newTenant(t, "acme", 10, 100)
	app.indexNow(t, tn.ID, "d1", "solo", "only hit")

	// malformed page falls back to 1, oversized per_page is capped
	w := app.do(t, http.MethodGet, "/api/v1/search?q=solo&page=abc&per_page=500", key, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp searchResponse
	decode(t, w, &resp)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 100, resp.PerPage)
}

func TestSearchIsTenantScoped(t *testing.T) {
	app := newTestApp(t)
	tnA, keyA := app.newTenant(t, "alpha", 10, 100)
	_, keyB := app.newTenant(t, "beta", 10, 100)

	app.indexNow(t, tnA.ID, "d1", "alpha doc", "alpha secret plans")

	w := app.do(t, http.MethodGet, "/api/v1/search?q=secret", keyA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp searchResponse
	decode(t, w, &resp)
	assert.Equal(t, int64(1), resp.Total)

	w = app.do(t, http.MethodGet, "/api/v1/search?q=secret", keyB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Zero(t, resp.Total)
}

func TestSearchFallsBackToStore(t *testing.T) {
	app := newTestApp(t)
	_, key := app.newTenant(t, "acme", 10, 100)

	// stored but never indexed; only the substring fallback can find it
	w := app.do(t, http.MethodPost, "/api/v1/documents", key, map[string]any{
		"title": "unindexed", "content": "fallback findable text",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// closing the engine forces every query onto the fallback path
	require.NoError(t, app.engine.Close())

	w = app.do(t, http.MethodGet, "/api/v1/search?q=findable", key, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp searchResponse
	decode(t, w, &resp)
	assert.Equal(t, "fallback", resp.Source)
	assert.Equal(t, int64(1), resp.Total)
}

func TestHealthAndReady(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSwaggerDocServed(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/search")
}
