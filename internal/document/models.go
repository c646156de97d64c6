package document

import "time"

// Document is a content unit owned by exactly one tenant. The tenant id is
// immutable after creation; every read and write path is tenant-scoped.
type Document struct {
	ID        string            `json:"id" gorm:"primaryKey;size:36"`
	TenantID  string            `json:"tenant_id" gorm:"size:36;not null;index"`
	Title     string            `json:"title" gorm:"size:512"`
	Content   string            `json:"content" gorm:"not null"`
	Metadata  map[string]string `json:"metadata,omitempty" gorm:"serializer:json"`
	IndexedAt *time.Time        `json:"indexed_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Indexed reports whether the document has been (re)indexed since its last
// content change. indexed_at is set only by a successful indexing job, so
// any update flips this back to false until the job catches up.
func (d *Document) Indexed() bool {
	return d.IndexedAt != nil && d.IndexedAt.After(d.UpdatedAt)
}
