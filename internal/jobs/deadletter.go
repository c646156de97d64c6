package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeadLetter is a job that exhausted its retries, parked for operator review.
type DeadLetter struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Kind       string    `gorm:"size:16;not null" json:"kind"`
	DocumentID string    `gorm:"size:36;index;not null" json:"document_id"`
	TenantID   string    `gorm:"size:36;index;not null" json:"tenant_id"`
	Attempts   int       `gorm:"not null" json:"attempts"`
	LastError  string    `gorm:"type:text" json:"last_error"`
	CreatedAt  time.Time `json:"created_at"`
}

type DeadLetterStore struct {
	db *gorm.DB
}

func NewDeadLetterStore(db *gorm.DB) *DeadLetterStore {
	return &DeadLetterStore{db: db}
}

func (s *DeadLetterStore) Migrate() error {
	return s.db.AutoMigrate(&DeadLetter{})
}

func (s *DeadLetterStore) Record(ctx context.Context, kind, docID, tenantID string, attempts int, lastErr error) error {
	msg := ""
	if lastErr != nil {
		msg = lastErr.Error()
	}
	return s.db.WithContext(ctx).Create(&DeadLetter{
		ID:         uuid.NewString(),
		Kind:       kind,
		DocumentID: docID,
		TenantID:   tenantID,
		Attempts:   attempts,
		LastError:  msg,
		CreatedAt:  time.Now().UTC(),
	}).Error
}

// List returns the newest parked jobs, optionally filtered to one tenant.
func (s *DeadLetterStore) List(ctx context.Context, tenantID string, limit int) ([]*DeadLetter, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Model(&DeadLetter{}).Order("created_at DESC").Limit(limit)
	if tenantID != "" {
		q = q.Where("tenant_id = ?", tenantID)
	}
	var out []*DeadLetter
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
