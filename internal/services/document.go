package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"

	"github.com/yungbote/tenantsearch-backend/internal/data/repos"
	"github.com/yungbote/tenantsearch-backend/internal/data/tenantdb"
	"github.com/yungbote/tenantsearch-backend/internal/domain"
	"github.com/yungbote/tenantsearch-backend/internal/modules/embedding"
	"github.com/yungbote/tenantsearch-backend/internal/modules/ingest"
	"github.com/yungbote/tenantsearch-backend/internal/modules/search/index"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

type IngestInput struct {
	Title     string         `json:"title"`
	SourceURI string         `json:"source_uri,omitempty"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type IngestResult struct {
	Document      *domain.Document     `json:"document"`
	Passages      int                  `json:"passages"`
	EmbeddingKind domain.EmbeddingKind `json:"embedding_kind"`
	// Indexed counts passages whose vectors reached the vector index.
	Indexed int `json:"indexed"`
}

type DocumentService interface {
	Ingest(ctx context.Context, tenantID uuid.UUID, in IngestInput) (IngestResult, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.Document, error)
	Delete(ctx context.Context, tenantID, documentID uuid.UUID) error
	PurgeTenant(ctx context.Context, tenantID uuid.UUID) error
}

type DocumentServiceConfig struct {
	// StoreEmbeddings writes provider vectors into passage.embedding for the
	// pgvector backend.
	StoreEmbeddings bool
}

type documentService struct {
	log      *logger.Logger
	binder   *tenantdb.Binder
	repos    repos.Set
	chunker  *ingest.SentenceChunker
	embedder *embedding.Adapter
	vectors  index.VectorWriter
	cfg      DocumentServiceConfig
}

// NewDocumentService wires ingestion. vectors may be nil when passage rows
// are the vector index.
func NewDocumentService(
	baseLog *logger.Logger,
	binder *tenantdb.Binder,
	repoSet repos.Set,
	chunker *ingest.SentenceChunker,
	embedder *embedding.Adapter,
	vectors index.VectorWriter,
	cfg DocumentServiceConfig,
) DocumentService {
	if chunker == nil {
		chunker = ingest.NewSentenceChunker(0, ingest.DefaultOverlapSentences, 0)
	}
	return &documentService{
		log:      baseLog.With("service", "DocumentService"),
		binder:   binder,
		repos:    repoSet,
		chunker:  chunker,
		embedder: embedder,
		vectors:  vectors,
		cfg:      cfg,
	}
}

func (s *documentService) Ingest(ctx context.Context, tenantID uuid.UUID, in IngestInput) (IngestResult, error) {
	const op = "DocumentService.Ingest"
	var res IngestResult
	if tenantID == uuid.Nil {
		return res, domain.IsolationViolation(op, "tenant id is required")
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return res, domain.Validation(op, "title is required")
	}
	chunks := s.chunker.Chunk(in.Content)
	if len(chunks) == 0 {
		return res, domain.Validation(op, "content is empty")
	}

	embs, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return res, err
	}
	kind := domain.EmbeddingKindProvider
	if len(embs) > 0 && embs[0].IsFallback() {
		// Hash vectors carry no meaning; keep them out of vector search.
		kind = domain.EmbeddingKindFallback
	}

	doc := &domain.Document{ID: uuid.New(), TenantID: tenantID, Title: in.Title, SourceURI: strings.TrimSpace(in.SourceURI)}
	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return res, domain.Validation(op, "metadata is not valid json")
		}
		doc.Metadata = datatypes.JSON(raw)
	}
	passages := make([]*domain.Passage, 0, len(chunks))
	for i, text := range chunks {
		p := &domain.Passage{ID: uuid.New(), DocumentID: doc.ID, Ordinal: i, Content: text, EmbeddingKind: kind}
		if kind == domain.EmbeddingKindProvider && s.cfg.StoreEmbeddings {
			v := pgvector.NewVector(embs[i].Vector)
			p.Embedding = &v
		}
		passages = append(passages, p)
	}

	err = s.binder.InTx(ctx, tenantID, func(sc *tenantdb.Scope) error {
		if _, err := s.repos.Documents.Create(sc, doc); err != nil {
			return err
		}
		_, err := s.repos.Passages.Create(sc, passages)
		return err
	})
	if err != nil {
		return res, domain.Wrap(domain.CodeStorage, op, err)
	}
	res.Document = doc
	res.Passages = len(passages)
	res.EmbeddingKind = kind

	if s.vectors != nil && kind == domain.EmbeddingKindProvider {
		docs := make([]index.VectorDoc, 0, len(passages))
		for i, p := range passages {
			docs = append(docs, index.VectorDoc{PassageID: p.ID, Vector: embs[i].Vector, Content: p.Content})
		}
		if err := s.vectors.UpsertVectors(ctx, tenantID, docs); err != nil {
			// Rows stay; lexical search still finds them and a re-ingest repairs.
			s.log.Warn("vector upsert failed", "tenant_id", tenantID, "document_id", doc.ID, "error", err)
			return res, nil
		}
		err := s.binder.InTx(ctx, tenantID, func(sc *tenantdb.Scope) error {
			for _, p := range passages {
				if err := s.repos.Passages.SetExternalRef(sc, p.ID, p.ID.String()); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			s.log.Warn("external ref update failed", "document_id", doc.ID, "error", err)
		}
		res.Indexed = len(docs)
	} else if s.cfg.StoreEmbeddings && kind == domain.EmbeddingKindProvider {
		res.Indexed = len(passages)
	}
	s.log.Info("document ingested",
		"tenant_id", tenantID,
		"document_id", doc.ID,
		"passages", res.Passages,
		"embedding_kind", string(kind),
	)
	return res, nil
}

func (s *documentService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.Document, error) {
	const op = "DocumentService.List"
	if tenantID == uuid.Nil {
		return nil, domain.IsolationViolation(op, "tenant id is required")
	}
	var docs []*domain.Document
	err := s.binder.Acquire(ctx, tenantID, func(sc *tenantdb.Scope) error {
		var err error
		docs, err = s.repos.Documents.List(sc, limit, offset)
		return err
	})
	if err != nil {
		return nil, domain.Wrap(domain.CodeStorage, op, err)
	}
	if docs == nil {
		docs = []*domain.Document{}
	}
	return docs, nil
}

func (s *documentService) Delete(ctx context.Context, tenantID, documentID uuid.UUID) error {
	const op = "DocumentService.Delete"
	if tenantID == uuid.Nil {
		return domain.IsolationViolation(op, "tenant id is required")
	}
	var ids []uuid.UUID
	var found bool
	err := s.binder.InTx(ctx, tenantID, func(sc *tenantdb.Scope) error {
		passages, err := s.repos.Passages.ListByDocument(sc, documentID)
		if err != nil {
			return err
		}
		for _, p := range passages {
			ids = append(ids, p.ID)
		}
		if err := s.repos.Passages.FullDeleteByDocument(sc, documentID); err != nil {
			return err
		}
		found, err = s.repos.Documents.FullDeleteByID(sc, documentID)
		return err
	})
	if err != nil {
		return domain.Wrap(domain.CodeStorage, op, err)
	}
	if !found {
		return domain.NewError(domain.CodeNotFound, op, "document not found", nil)
	}
	if s.vectors != nil && len(ids) > 0 {
		if err := s.vectors.DeleteVectors(ctx, tenantID, ids); err != nil {
			s.log.Warn("vector delete failed", "document_id", documentID, "error", err)
		}
	}
	return nil
}

func (s *documentService) PurgeTenant(ctx context.Context, tenantID uuid.UUID) error {
	const op = "DocumentService.PurgeTenant"
	if tenantID == uuid.Nil {
		return domain.IsolationViolation(op, "tenant id is required")
	}
	err := s.binder.InTx(ctx, tenantID, func(sc *tenantdb.Scope) error {
		if err := s.repos.Passages.FullDeleteByTenant(sc); err != nil {
			return err
		}
		return s.repos.Documents.FullDeleteByTenant(sc)
	})
	if err != nil {
		return domain.Wrap(domain.CodeStorage, op, err)
	}
	if s.vectors != nil {
		if err := s.vectors.DeleteTenant(ctx, tenantID); err != nil {
			return err
		}
	}
	s.log.Warn("tenant documents purged", "tenant_id", tenantID)
	return nil
}
