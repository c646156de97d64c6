package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *BleveEngine {
	t.Helper()
	eng, err := NewBleveEngine("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func seedDoc(t *testing.T, eng *BleveEngine, tenant, id, title, content string) {
	t.Helper()
	err := eng.Index(context.Background(), IndexDoc{
		ID:        id,
		TenantID:  tenant,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
}

func TestBleveEngineIndexAndQuery(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	seedDoc(t, eng, "t1", "d1", "Payment gateway runbook", "How to restart the payment gateway")
	seedDoc(t, eng, "t1", "d2", "Onboarding checklist", "Steps for onboarding a new hire")

	res, err := eng.Query(ctx, "t1", "payment", 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Total)
	assert.Equal(t, "d1", res.Hits[0].ID)
	assert.Equal(t, "Payment gateway runbook", res.Hits[0].Title)
	assert.NotEmpty(t, res.Hits[0].Snippet)
}

func TestBleveEngineTenantIsolation(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	seedDoc(t, eng, "t1", "d1", "shared term", "alpha beta")
	seedDoc(t, eng, "t2", "d1", "shared term", "alpha beta")

	res, err := eng.Query(ctx, "t1", "alpha", 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Total)
	assert.Equal(t, "d1", res.Hits[0].ID)

	res, err = eng.Query(ctx, "t3", "alpha", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}

func TestBleveEngineDeleteIsTenantScoped(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	seedDoc(t, eng, "t1", "d1", "doc one", "hello world")
	seedDoc(t, eng, "t2", "d1", "doc one", "hello world")

	require.NoError(t, eng.Delete(ctx, "d1", "t1"))

	res, err := eng.Query(ctx, "t1", "hello", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, res.Total)

	res, err = eng.Query(ctx, "t2", "hello", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
}

func TestBleveEngineReindexOverwrites(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	seedDoc(t, eng, "t1", "d1", "before", "original content")
	seedDoc(t, eng, "t1", "d1", "after", "replacement content")

	res, err := eng.Query(ctx, "t1", "original", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, res.Total)

	res, err = eng.Query(ctx, "t1", "replacement", 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Total)
	assert.Equal(t, "after", res.Hits[0].Title)
}

func TestBleveEngineMetadataSearchable(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	err := eng.Index(ctx, IndexDoc{
		ID:       "d1",
		TenantID: "t1",
		Title:    "untitled",
		Content:  "nothing here",
		Metadata: map[string]string{"team": "platform", "region": "eu-west"},
	})
	require.NoError(t, err)

	res, err := eng.Query(ctx, "t1", "platform", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
}

func TestBleveEnginePaging(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		seedDoc(t, eng, "t1", id, "common title", "common body "+id)
	}

	first, err := eng.Query(ctx, "t1", "common", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), first.Total)
	assert.Len(t, first.Hits, 2)

	last, err := eng.Query(ctx, "t1", "common", 2, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), last.Total)
	assert.Len(t, last.Hits, 1)
}
