package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docgate/docgate/internal/breaker"
	"github.com/docgate/docgate/internal/document"
	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/metrics"
)

var ErrEmptyQuery = errors.New("search query must not be empty")

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Hit is one search result as surfaced to API clients.
type Hit struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet,omitempty"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Result is one page of search results.
type Result struct {
	Hits    []Hit  `json:"hits"`
	Total   int64  `json:"total"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	TookMS  int64  `json:"took_ms"`
	Source  string `json:"source"`
}

// FallbackStore answers searches when the engine is unavailable. The gateway
// only needs the substring scan from the document repository.
type FallbackStore interface {
	SubstringSearch(ctx context.Context, tenantID, query string, limit, offset int) ([]*document.Document, int64, error)
}

// Recorder receives one analytics event per completed search.
type Recorder interface {
	Record(ev Event)
}

// Gateway is the read side of search. Order of preference per request:
// cached page, live engine query through the breaker, relational substring
// scan. A request fails only when all three are unavailable.
type Gateway struct {
	engine   Engine
	cache    *Cache
	fallback FallbackStore
	brk      *breaker.Breaker
	rec      Recorder
}

func NewGateway(engine Engine, cache *Cache, fallback FallbackStore, brk *breaker.Breaker, rec Recorder) *Gateway {
	if rec == nil {
		rec = NopRecorder{}
	}
	return &Gateway{engine: engine, cache: cache, fallback: fallback, brk: brk, rec: rec}
}

// Search runs one tenant-scoped query. Page and perPage are clamped rather
// than rejected; only a blank query is an input error.
func (g *Gateway) Search(ctx context.Context, tenantID, query string, page, perPage int) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	start := time.Now()

	if g.cache != nil {
		cached, err := g.cache.Get(ctx, tenantID, query, page, perPage)
		if err != nil {
			// cache trouble never fails a search
			logger.Warnf("search cache read failed: %v", err)
		} else if cached != nil {
			cached.TookMS = time.Since(start).Milliseconds()
			cached.Source = "cache"
			g.record(tenantID, query, cached, start)
			return cached, nil
		}
	}

	offset := (page - 1) * perPage

	var engineRes *QueryResult
	err := g.brk.Do(ctx, func(ctx context.Context) error {
		var qerr error
		engineRes, qerr = g.engine.Query(ctx, tenantID, query, perPage, offset)
		return qerr
	})
	if err == nil {
		res := &Result{
			Hits:    make([]Hit, 0, len(engineRes.Hits)),
			Total:   engineRes.Total,
			Page:    page,
			PerPage: perPage,
			TookMS:  time.Since(start).Milliseconds(),
			Source:  "engine",
		}
		for _, h := range engineRes.Hits {
			res.Hits = append(res.Hits, Hit{
				ID:        h.ID,
				Title:     h.Title,
				Snippet:   h.Snippet,
				Score:     h.Score,
				CreatedAt: h.CreatedAt,
			})
		}
		if g.cache != nil {
			if cerr := g.cache.Set(ctx, tenantID, query, page, perPage, res); cerr != nil {
				logger.Warnf("search cache write failed: %v", cerr)
			}
		}
		g.record(tenantID, query, res, start)
		return res, nil
	}

	if !errors.Is(err, breaker.ErrOpen) {
		logger.L().Warn("search engine query failed, falling back",
			zap.String("tenant_id", tenantID), zap.Error(err))
	}

	metrics.SearchFallbacks.Inc()
	docs, total, ferr := g.fallback.SubstringSearch(ctx, tenantID, query, perPage, offset)
	if ferr != nil {
		return nil, ferr
	}
	res := &Result{
		Hits:    make([]Hit, 0, len(docs)),
		Total:   total,
		Page:    page,
		PerPage: perPage,
		TookMS:  time.Since(start).Milliseconds(),
		Source:  "fallback",
	}
	for _, d := range docs {
		res.Hits = append(res.Hits, Hit{
			ID:        d.ID,
			Title:     d.Title,
			Snippet:   excerpt(d.Content, query),
			CreatedAt: d.CreatedAt,
		})
	}
	// fallback pages are not cached; they would shadow engine results
	// after recovery for a full TTL
	g.record(tenantID, query, res, start)
	return res, nil
}

func (g *Gateway) record(tenantID, query string, res *Result, start time.Time) {
	g.rec.Record(Event{
		TenantID:  tenantID,
		Query:     query,
		Total:     res.Total,
		Page:      res.Page,
		Source:    res.Source,
		TookMS:    res.TookMS,
		Timestamp: start.UTC(),
	})
}

// excerpt returns a short window of content around the first match, used for
// fallback hits where no highlighter ran.
func excerpt(content, query string) string {
	const window = 80
	idx := strings.Index(strings.ToLower(content), strings.ToLower(query))
	if idx < 0 {
		if len(content) <= window {
			return content
		}
		return content[:window] + "…"
	}
	from := idx - window/2
	if from < 0 {
		from = 0
	}
	to := idx + len(query) + window/2
	if to > len(content) {
		to = len(content)
	}
	out := content[from:to]
	if from > 0 {
		out = "…" + out
	}
	if to < len(content) {
		out += "…"
	}
	return out
}
