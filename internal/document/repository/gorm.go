package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docgate/docgate/internal/document"
)

var (
	ErrNotFound = errors.New("document not found")
)

// GormRepo persists documents in the relational store. Tenant scoping is
// enforced here, not in callers: every query that takes a tenant id filters
// on it.
type GormRepo struct {
	db *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{db: db}
}

// Migrate creates the documents table.
func (r *GormRepo) Migrate() error {
	return r.db.AutoMigrate(&document.Document{})
}

func (r *GormRepo) Create(ctx context.Context, doc *document.Document) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return "", err
	}
	return doc.ID, nil
}

// Get loads a document by id without tenant scoping. The indexing job uses
// this and then verifies tenant ownership itself.
func (r *GormRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	var d document.Document
	err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *GormRepo) GetForTenant(ctx context.Context, tenantID, id string) (*document.Document, error) {
	var d document.Document
	err := r.db.WithContext(ctx).First(&d, "id = ? AND tenant_id = ?", id, tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *GormRepo) List(ctx context.Context, tenantID string, limit, offset int) ([]*document.Document, error) {
	var out []*document.Document
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("updated_at DESC").
		Limit(limit).Offset(offset).
		Find(&out).Error
	return out, err
}

func (r *GormRepo) Update(ctx context.Context, tenantID, id string, title *string, content string, metadata map[string]string) (*document.Document, error) {
	d, err := r.GetForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if title != nil {
		d.Title = *title
	}
	d.Content = content
	if metadata != nil {
		d.Metadata = metadata
	}
	d.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (r *GormRepo) Delete(ctx context.Context, tenantID, id string) error {
	res := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Delete(&document.Document{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllForTenant removes every document owned by the tenant and returns
// the ids that were removed so their indexed state can be reconciled.
func (r *GormRepo) DeleteAllForTenant(ctx context.Context, tenantID string) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&document.Document{}).
		Where("tenant_id = ?", tenantID).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Delete(&document.Document{}).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *GormRepo) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&document.Document{}).
		Where("tenant_id = ?", tenantID).Count(&n).Error
	return n, err
}

// MarkIndexed records a successful indexing pass as a direct column update.
// Touching only indexed_at keeps updated_at stable and cannot re-trigger
// the publish-on-save path.
func (r *GormRepo) MarkIndexed(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&document.Document{}).
		Where("id = ?", id).
		UpdateColumn("indexed_at", at).Error
}

// SubstringSearch is the degraded search path used when the engine is
// unavailable: case-insensitive substring match over title and content,
// tenant-scoped, newest first. No relevance score, no highlighting.
func (r *GormRepo) SubstringSearch(ctx context.Context, tenantID, query string, limit, offset int) ([]*document.Document, int64, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	scope := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&document.Document{}).
			Where("tenant_id = ?", tenantID).
			Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []*document.Document
	err := scope().Order("updated_at DESC").Limit(limit).Offset(offset).Find(&out).Error
	return out, total, err
}
