package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EmbeddingKind records where a stored vector came from.
type EmbeddingKind string

const (
	EmbeddingKindNone     EmbeddingKind = ""
	EmbeddingKindProvider EmbeddingKind = "provider"
	EmbeddingKindFallback EmbeddingKind = "fallback"
)

type Document struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	SourceURI string         `gorm:"column:source_uri" json:"source_uri,omitempty"`
	Metadata  datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`

	Passages []*Passage `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"passages,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Document) TableName() string { return "document" }

func (d *Document) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Passage is an independently searchable segment of a document. Content is
// immutable once written; edits replace the whole row.
type Passage struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_passage_document_ordinal,priority:1" json:"document_id"`
	Ordinal    int       `gorm:"column:ordinal;not null;uniqueIndex:idx_passage_document_ordinal,priority:2" json:"ordinal"`

	Content  string         `gorm:"column:content;type:text;not null" json:"content"`
	Metadata datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`

	Embedding     *pgvector.Vector `gorm:"type:vector(1536);column:embedding" json:"-"`
	EmbeddingKind EmbeddingKind    `gorm:"column:embedding_kind" json:"embedding_kind,omitempty"`
	ExternalRef   *string          `gorm:"column:external_ref;index" json:"external_ref,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Passage) TableName() string { return "passage" }

func (p *Passage) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// SearchCandidate is produced during a search call and never persisted.
// A nil score means the passage did not come back from that index.
type SearchCandidate struct {
	PassageID      uuid.UUID `json:"passage_id"`
	LexicalScore   *float64  `json:"lexical_score,omitempty"`
	VectorDistance *float64  `json:"vector_distance,omitempty"`
	Rank           float64   `json:"rank"`
}
