package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIndexed(t *testing.T) {
	t0 := time.Now()
	t1 := t0.Add(time.Second)
	t2 := t1.Add(time.Second)

	// never indexed
	d := &Document{UpdatedAt: t0}
	require.False(t, d.Indexed())

	// indexed after the last update
	d.IndexedAt = &t1
	require.True(t, d.Indexed())

	// updated after indexing: stale again
	d.UpdatedAt = t2
	require.False(t, d.Indexed())

	// indexed_at == updated_at counts as stale
	d.IndexedAt = &t2
	require.False(t, d.Indexed())
}
