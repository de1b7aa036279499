package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	FeedbackNegative int16 = -1
	FeedbackNeutral  int16 = 0
	FeedbackPositive int16 = 1
)

// QueryRecord is one historical end-user interaction.
type QueryRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index:idx_query_record_tenant_created,priority:1" json:"tenant_id"`
	QueryText string    `gorm:"column:query_text;type:text;not null" json:"query_text"`
	Locale    string    `gorm:"column:locale" json:"locale,omitempty"`
	LatencyMs *int64    `gorm:"column:latency_ms" json:"latency_ms,omitempty"`
	Feedback  *int16    `gorm:"column:feedback" json:"feedback,omitempty"`
	CreatedAt time.Time `gorm:"not null;index:idx_query_record_tenant_created,priority:2" json:"created_at"`
}

func (QueryRecord) TableName() string { return "query_record" }

func (q *QueryRecord) BeforeCreate(*gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	return nil
}
