package service

import (
	"context"
	"errors"
	"strings"

	"github.com/docgate/docgate/internal/document"
	"github.com/docgate/docgate/internal/document/repository"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrQuotaExceeded = errors.New("document quota exceeded")
	ErrInvalidInput  = errors.New("invalid document")
)

const maxTitleLen = 512

// Publisher hands indexing intents to the queue. Implemented by
// queue.Producer; injected as an interface so the service stays
// broker-agnostic and testable.
type Publisher interface {
	PublishIndex(ctx context.Context, docID, tenantID string)
	PublishDelete(ctx context.Context, docID, tenantID string)
}

// Repo is the persistence surface the service needs.
type Repo interface {
	Create(ctx context.Context, doc *document.Document) (string, error)
	GetForTenant(ctx context.Context, tenantID, id string) (*document.Document, error)
	List(ctx context.Context, tenantID string, limit, offset int) ([]*document.Document, error)
	Update(ctx context.Context, tenantID, id string, title *string, content string, metadata map[string]string) (*document.Document, error)
	Delete(ctx context.Context, tenantID, id string) error
	CountByTenant(ctx context.Context, tenantID string) (int64, error)
}

// Service implements document CRUD with quota enforcement. Every mutation
// publishes the matching indexing intent so the search engine converges.
type Service struct {
	repo      Repo
	publisher Publisher
}

func New(repo Repo, publisher Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

// Create stores a new document for the tenant, enforcing its quota, and
// publishes an index intent.
func (s *Service) Create(ctx context.Context, tenantID string, quota int64, title, content string, metadata map[string]string) (*document.Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrInvalidInput
	}
	if len(title) > maxTitleLen {
		return nil, ErrInvalidInput
	}

	n, err := s.repo.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if n >= quota {
		return nil, ErrQuotaExceeded
	}

	d := &document.Document{
		TenantID: tenantID,
		Title:    title,
		Content:  content,
		Metadata: metadata,
	}
	if _, err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	s.publisher.PublishIndex(ctx, d.ID, tenantID)
	return d, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (*document.Document, error) {
	d, err := s.repo.GetForTenant(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *Service) List(ctx context.Context, tenantID string, limit, offset int) ([]*document.Document, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, tenantID, limit, offset)
}

// Update replaces content (and optionally title/metadata), which makes the
// document stale until re-indexed, then publishes a fresh index intent.
func (s *Service) Update(ctx context.Context, tenantID, id string, title *string, content string, metadata map[string]string) (*document.Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrInvalidInput
	}
	if title != nil && len(*title) > maxTitleLen {
		return nil, ErrInvalidInput
	}

	d, err := s.repo.Update(ctx, tenantID, id, title, content, metadata)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.publisher.PublishIndex(ctx, d.ID, tenantID)
	return d, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	err := s.repo.Delete(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	s.publisher.PublishDelete(ctx, id, tenantID)
	return nil
}
