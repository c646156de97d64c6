package jobs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/docgate/docgate/internal/breaker"
	"github.com/docgate/docgate/internal/document"
	"github.com/docgate/docgate/internal/document/repository"
	"github.com/docgate/docgate/internal/search"
	"github.com/docgate/docgate/pkg/logger"
)

// DocumentLoader fetches documents for indexing regardless of which tenant
// owns them; ownership is verified against the message afterwards.
type DocumentLoader interface {
	Get(ctx context.Context, id string) (*document.Document, error)
	MarkIndexed(ctx context.Context, id string, at time.Time) error
}

// Invalidator drops cached search pages after the index changes.
type Invalidator interface {
	InvalidateTenant(ctx context.Context, tenantID string) error
}

// Indexer executes one indexing or deletion pass against the search engine.
// Engine calls run through the breaker so a sick engine backs jobs off into
// retries instead of hammering it.
type Indexer struct {
	docs  DocumentLoader
	eng   search.Engine
	brk   *breaker.Breaker
	cache Invalidator
}

func NewIndexer(docs DocumentLoader, eng search.Engine, brk *breaker.Breaker, cache Invalidator) *Indexer {
	return &Indexer{docs: docs, eng: eng, brk: brk, cache: cache}
}

// Index loads the document and writes it to the engine. A vanished document
// is not an error: the deletion that follows in the stream supersedes this
// job. A tenant mismatch means the message lied about ownership and the job
// is discarded loudly.
func (ix *Indexer) Index(ctx context.Context, docID, tenantID string) error {
	d, err := ix.docs.Get(ctx, docID)
	if errors.Is(err, repository.ErrNotFound) {
		logger.L().Warn("document gone before indexing, skipping",
			zap.String("document_id", docID), zap.String("tenant_id", tenantID))
		return nil
	}
	if err != nil {
		return err
	}
	if d.TenantID != tenantID {
		logger.L().Error("indexing message tenant does not own the document, dropping",
			zap.String("document_id", docID),
			zap.String("message_tenant", tenantID),
			zap.String("owner_tenant", d.TenantID))
		return nil
	}

	if err := ix.brk.Do(ctx, func(ctx context.Context) error {
		if serr := ix.eng.EnsureSchema(ctx); serr != nil {
			return serr
		}
		return ix.eng.Index(ctx, search.IndexDoc{
			ID:        d.ID,
			TenantID:  d.TenantID,
			Title:     d.Title,
			Content:   d.Content,
			CreatedAt: d.CreatedAt,
			Metadata:  d.Metadata,
		})
	}); err != nil {
		return err
	}

	if err := ix.docs.MarkIndexed(ctx, d.ID, time.Now().UTC()); err != nil {
		logger.Warnf("failed to record indexed_at for %s: %v", d.ID, err)
	}
	ix.invalidate(ctx, tenantID)
	return nil
}

// Delete removes the document from the engine. No load step: the row is
// usually already gone by the time this runs.
func (ix *Indexer) Delete(ctx context.Context, docID, tenantID string) error {
	if err := ix.brk.Do(ctx, func(ctx context.Context) error {
		return ix.eng.Delete(ctx, docID, tenantID)
	}); err != nil {
		return err
	}
	ix.invalidate(ctx, tenantID)
	return nil
}

func (ix *Indexer) invalidate(ctx context.Context, tenantID string) {
	if ix.cache == nil {
		return
	}
	if err := ix.cache.InvalidateTenant(ctx, tenantID); err != nil {
		logger.Warnf("cache invalidation failed for tenant %s: %v", tenantID, err)
	}
}
