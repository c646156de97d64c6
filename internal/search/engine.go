package search

import (
	"context"
	"fmt"
	"time"
)

// IndexDoc carries the indexable fields of a document.
type IndexDoc struct {
	ID        string
	TenantID  string
	Title     string
	Content   string
	CreatedAt time.Time
	Metadata  map[string]string
}

// EngineHit is one match returned by the engine.
type EngineHit struct {
	ID        string
	Title     string
	Score     float64
	Snippet   string
	CreatedAt time.Time
}

// QueryResult is the engine's answer for one page.
type QueryResult struct {
	Hits  []EngineHit
	Total int64
}

// Engine is the search backend capability boundary. Implementations are
// selected once at startup; callers never switch backends per call.
type Engine interface {
	// EnsureSchema idempotently prepares the target collection/mapping.
	EnsureSchema(ctx context.Context) error
	// Index writes (or overwrites) one document.
	Index(ctx context.Context, doc IndexDoc) error
	// Delete removes one document, scoped to the owning tenant.
	Delete(ctx context.Context, docID, tenantID string) error
	// Query returns one page of matches, strictly filtered to the tenant.
	Query(ctx context.Context, tenantID, query string, limit, offset int) (*QueryResult, error)
	Close() error
}

// NewEngine builds the configured backend. Only "bleve" is built in; the
// switch is the seam for alternative engines.
func NewEngine(kind, indexPath string) (Engine, error) {
	switch kind {
	case "", "bleve":
		return NewBleveEngine(indexPath)
	default:
		return nil, fmt.Errorf("unknown search engine %q", kind)
	}
}
