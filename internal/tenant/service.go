package tenant

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/docgate/docgate/pkg/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid tenant credentials")
	ErrInvalidInput       = errors.New("invalid tenant")
)

// DocumentStore is the slice of the document layer the tenant service needs
// for cascading destruction.
type DocumentStore interface {
	DeleteAllForTenant(ctx context.Context, tenantID string) ([]string, error)
}

// Publisher reconciles the search index when documents disappear.
type Publisher interface {
	PublishDelete(ctx context.Context, docID, tenantID string)
}

// CounterResetter clears per-tenant rate-limit counters.
type CounterResetter interface {
	Reset(ctx context.Context, tenantID string) error
}

// CacheInvalidator drops a tenant's cached search results.
type CacheInvalidator interface {
	InvalidateTenant(ctx context.Context, tenantID string) error
}

// Service owns the tenant lifecycle. Destroying a tenant cascades: documents
// are removed, a delete intent is published per document so the engine
// converges, and the tenant's counters and cached searches are cleared.
type Service struct {
	repo      *Repository
	docs      DocumentStore
	publisher Publisher
	limiter   CounterResetter
	cache     CacheInvalidator
}

func NewService(repo *Repository, docs DocumentStore, publisher Publisher, limiter CounterResetter, cache CacheInvalidator) *Service {
	return &Service{repo: repo, docs: docs, publisher: publisher, limiter: limiter, cache: cache}
}

// Create provisions a tenant and returns the plaintext API key. The key is
// shown exactly once; only its bcrypt hash is persisted.
func (s *Service) Create(ctx context.Context, name string, quota, rateLimit int64) (*Tenant, string, error) {
	if strings.TrimSpace(name) == "" || quota <= 0 || rateLimit <= 0 {
		return nil, "", ErrInvalidInput
	}

	secret, err := newSecret()
	if err != nil {
		return nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	t := &Tenant{
		ID:                 uuid.NewString(),
		Name:               name,
		DocumentQuota:      quota,
		RateLimitPerMinute: rateLimit,
		SecretHash:         string(hash),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, "", err
	}
	logger.Infof("tenant %s created (quota=%d rate=%d/min)", t.ID, quota, rateLimit)
	return t, t.ID + "." + secret, nil
}

// Authenticate resolves an API key of the form "<tenant-id>.<secret>".
func (s *Service) Authenticate(ctx context.Context, apiKey string) (*Tenant, error) {
	id, secret, ok := strings.Cut(apiKey, ".")
	if !ok || id == "" || secret == "" {
		return nil, ErrInvalidCredentials
	}
	t, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(t.SecretHash), []byte(secret)) != nil {
		return nil, ErrInvalidCredentials
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Tenant, error) {
	return s.repo.Get(ctx, id)
}

// Delete destroys the tenant and everything it owns.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}

	ids, err := s.docs.DeleteAllForTenant(ctx, id)
	if err != nil {
		return fmt.Errorf("cascade documents: %w", err)
	}
	for _, docID := range ids {
		s.publisher.PublishDelete(ctx, docID, id)
	}

	if err := s.limiter.Reset(ctx, id); err != nil {
		logger.Warnf("tenant %s: rate-limit reset failed: %v", id, err)
	}
	if err := s.cache.InvalidateTenant(ctx, id); err != nil {
		logger.Warnf("tenant %s: cache invalidation failed: %v", id, err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Infof("tenant %s destroyed (%d documents queued for de-indexing)", id, len(ids))
	return nil
}

func newSecret() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
