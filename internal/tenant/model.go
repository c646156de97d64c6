package tenant

import "time"

// Tenant is the identity boundary: every document, quota and rate limit
// hangs off one tenant id. The credential secret is never stored, only its
// bcrypt hash.
type Tenant struct {
	ID                 string    `json:"id" gorm:"primaryKey;size:36"`
	Name               string    `json:"name" gorm:"size:255;uniqueIndex;not null"`
	DocumentQuota      int64     `json:"document_quota" gorm:"not null"`
	RateLimitPerMinute int64     `json:"rate_limit_per_minute" gorm:"not null"`
	SecretHash         string    `json:"-" gorm:"size:128;not null"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
