package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docgate/docgate/internal/document"
)

func TestDocumentCreateAndGet(t *testing.T) {
	app := newTestApp(t)
	_, key := app.newTenant(t, "acme", 10, 100)

	w := app.do(t, http.MethodPost, "/api/v1/documents", key, map[string]any{
		"title":    "Incident playbook",
		"content":  "page the on-call first",
		"metadata": map[string]string{"team": "sre"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created document.Document
	decode(t, w, &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Incident playbook", created.Title)

	w = app.do(t, http.MethodGet, "/api/v1/documents/"+created.ID, key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got document.Document
	decode(t, w, &got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "sre", got.Metadata["team"])

	// create published an index intent
	assert.Equal(t, []string{created.ID}, app.pub.indexed)
}

func TestDocumentCreateRequiresAuth(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/v1/documents", "", map[string]any{
		"title": "x", "content": "y",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDocumentCreateEnforcesQuota(t *testing.T) {
	app := newTestApp(t)
	_, key := app.newTenant(t, "tiny", 1, 100)

	w := app.do(t, http.MethodPost, "/api/v1/documents", key, map[string]any{
		"title": "first", "content": "fits",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/documents", key, map[string]any{
		"title": "second", "content": "does not fit",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDocumentValidation(t *testing.T) {
	app := newTestApp(t)
	_, key := app.newTenant(t, "acme", 10, 100)

	w := app.do(t, http.MethodPost, "/api/v1/documents", key, map[string]any{
		"title": "no content",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentUpdatePublishesReindex(t *testing.T) {
	app := newTestApp(t)
	_, key := app.newTenant(t, "acme", 10, 100)

	w := app.do(t, http.MethodPost, "/api/v1/documents", key, map[string]any{
		"title": "v1", "content": "original",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created document.Document
	decode(t, w, &created)

	newTitle := "v2"
	w = app.do(t, http.MethodPut, "/api/v1/documents/"+created.ID, key, map[string]any{
		"title": newTitle, "content": "revised",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var updated document.Document
	decode(t, w, &updated)
	assert.Equal(t, "v2", updated.Title)

	assert.Equal(t, []string{created.ID, created.ID}, app.pub.indexed)
}

func TestDocumentDeletePublishesDelete(t *testing.T) {
	app := newTestApp(t)
	_, key := app.newTenant(t, "acme", 10, 100)

	w := app.do(t, http.MethodPost, "/api/v1/documents", key, map[string]any{
		"title": "bye", "content": "soon gone",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created document.Document
	decode(t, w, &created)

	w = app.do(t, http.MethodDelete, "/api/v1/documents/"+created.ID, key, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{created.ID}, app.pub.deleted)

	w = app.do(t, http.MethodGet, "/api/v1/documents/"+created.ID, key, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentsAreTenantScoped(t *testing.T) {
	app := newTestApp(t)
	_, keyA := app.newTenant(t, "alpha", 10, 100)
	_, keyB := app.newTenant(t, "beta", 10, 100)

	w := app.do(t, http.MethodPost, "/api/v1/documents", keyA, map[string]any{
		"title": "private", "content": "alpha only",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created document.Document
	decode(t, w, &created)

	w = app.do(t, http.MethodGet, "/api/v1/documents/"+created.ID, keyB, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentListPaging(t *testing.T) {
	app := newTestApp(t)
	_, key := app.newTenant(t, "acme", 10, 100)

	for _, title := range []string{"a", "b", "c"} {
		w := app.do(t, http.MethodPost, "/api/v1/documents", key, map[string]any{
			"title": title, "content": "body " + title,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := app.do(t, http.MethodGet, "/api/v1/documents?limit=2", key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Documents []document.Document `json:"documents"`
	}
	decode(t, w, &resp)
	assert.Len(t, resp.Documents, 2)
}

func TestRateLimitAppliesToDocumentRoutes(t *testing.T) {
	app := newTestApp(t)
	_, key := app.newTenant(t, "throttled", 10, 2)

	for i := 0; i < 2; i++ {
		w := app.do(t, http.MethodGet, "/api/v1/documents", key, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := app.do(t, http.MethodGet, "/api/v1/documents", key, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}
