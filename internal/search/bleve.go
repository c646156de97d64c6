package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
)

// bleveDoc is the shape stored in the bleve index. Metadata values are
// flattened into one searchable text field.
type bleveDoc struct {
	TenantID  string `json:"tenant_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Meta      string `json:"meta"`
	CreatedAt string `json:"created_at"`
}

// BleveEngine is the embedded search backend. Index keys are
// "<tenant>:<doc-id>" so deletes and hits are tenant-scoped by
// construction, on top of the mandatory tenant term filter at query time.
type BleveEngine struct {
	mu    sync.RWMutex
	index bleve.Index
	path  string
}

func NewBleveEngine(path string) (*BleveEngine, error) {
	var idx bleve.Index
	var err error
	if path == "" {
		// in-memory index, used by tests
		idx, err = bleve.NewMemOnly(indexMapping())
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("create index dir: %w", mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}
	return &BleveEngine{index: idx, path: path}, nil
}

func indexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()

	tenantField := bleve.NewTextFieldMapping()
	tenantField.Analyzer = keyword.Name
	tenantField.Store = false
	doc.AddFieldMappingsAt("tenant_id", tenantField)

	titleField := bleve.NewTextFieldMapping()
	titleField.Store = true
	doc.AddFieldMappingsAt("title", titleField)

	contentField := bleve.NewTextFieldMapping()
	contentField.Store = true
	doc.AddFieldMappingsAt("content", contentField)

	metaField := bleve.NewTextFieldMapping()
	metaField.Store = false
	doc.AddFieldMappingsAt("meta", metaField)

	createdField := bleve.NewTextFieldMapping()
	createdField.Analyzer = keyword.Name
	createdField.Store = true
	createdField.Index = false
	doc.AddFieldMappingsAt("created_at", createdField)

	im.DefaultMapping = doc
	return im
}

func engineKey(tenantID, docID string) string {
	return tenantID + ":" + docID
}

// EnsureSchema is satisfied at open time for an embedded index; kept so the
// engine boundary matches remote backends that create collections lazily.
func (e *BleveEngine) EnsureSchema(context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index == nil {
		return fmt.Errorf("bleve index not open")
	}
	return nil
}

func (e *BleveEngine) Index(_ context.Context, d IndexDoc) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.index.Index(engineKey(d.TenantID, d.ID), bleveDoc{
		TenantID:  d.TenantID,
		Title:     d.Title,
		Content:   d.Content,
		Meta:      flattenMeta(d.Metadata),
		CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func (e *BleveEngine) Delete(_ context.Context, docID, tenantID string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index.Delete(engineKey(tenantID, docID))
}

func (e *BleveEngine) Query(ctx context.Context, tenantID, query string, limit, offset int) (*QueryResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tenantQ := bleve.NewTermQuery(tenantID)
	tenantQ.SetField("tenant_id")

	titleQ := bleve.NewMatchQuery(query)
	titleQ.SetField("title")
	contentQ := bleve.NewMatchQuery(query)
	contentQ.SetField("content")
	metaQ := bleve.NewMatchQuery(query)
	metaQ.SetField("meta")
	text := bleve.NewDisjunctionQuery(titleQ, contentQ, metaQ)

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(tenantQ, text), limit, offset, false)
	req.Fields = []string{"title", "created_at"}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("content")

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve query: %w", err)
	}

	out := &QueryResult{Total: int64(res.Total)}
	for _, hit := range res.Hits {
		h := EngineHit{
			// strip the tenant prefix back off the composite key
			ID:    strings.TrimPrefix(hit.ID, tenantID+":"),
			Score: hit.Score,
		}
		if title, ok := hit.Fields["title"].(string); ok {
			h.Title = title
		}
		if created, ok := hit.Fields["created_at"].(string); ok {
			if ts, perr := time.Parse(time.RFC3339Nano, created); perr == nil {
				h.CreatedAt = ts
			}
		}
		if frags, ok := hit.Fragments["content"]; ok && len(frags) > 0 {
			h.Snippet = frags[0]
		}
		out.Hits = append(out.Hits, h)
	}
	return out, nil
}

func (e *BleveEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.Close()
}

func flattenMeta(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	vals := make([]string, 0, len(meta))
	for _, v := range meta {
		vals = append(vals, v)
	}
	sort.Strings(vals)
	return strings.Join(vals, " ")
}
