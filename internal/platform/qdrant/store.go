package qdrant

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	qc "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

const (
	payloadTenantKey  = "tenant_id"
	payloadPassageKey = "passage_id"
)

// PointsAPI is the subset of *qdrant.Client the store uses.
type PointsAPI interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qc.CreateCollection) error
	CreateFieldIndex(ctx context.Context, req *qc.CreateFieldIndexCollection) (*qc.UpdateResult, error)
	Upsert(ctx context.Context, req *qc.UpsertPoints) (*qc.UpdateResult, error)
	Query(ctx context.Context, req *qc.QueryPoints) ([]*qc.ScoredPoint, error)
	Delete(ctx context.Context, req *qc.DeletePoints) (*qc.UpdateResult, error)
	Close() error
}

type Point struct {
	PassageID uuid.UUID
	Vector    []float32
}

type Hit struct {
	PassageID uuid.UUID
	Distance  float64
}

// Store keeps every tenant in one Euclid collection and isolates by a
// tenant_id payload filter that is applied to every read and delete.
type Store struct {
	log *logger.Logger
	cfg Config
	api PointsAPI
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	client, err := qc.NewClient(&qc.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
				grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, classify("connect", err)
	}
	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(hctx); err != nil {
		_ = client.Close()
		return nil, classify("health_check", err)
	}
	if !cfg.UseTLS {
		log.Warn("Qdrant gRPC using plaintext (TLS disabled)", "host", cfg.Host)
	}
	return NewWithAPI(log, cfg, client)
}

func NewWithAPI(log *logger.Logger, cfg Config, api PointsAPI) (*Store, error) {
	cfg = cfg.withDefaults()
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if api == nil {
		return nil, fmt.Errorf("qdrant api required")
	}
	s := &Store{log: log.With("service", "QdrantStore"), cfg: cfg, api: api}
	s.log.Info("Qdrant vector store selected",
		"host", cfg.Host,
		"collection", cfg.Collection,
		"vector_dim", cfg.VectorDim,
	)
	return s, nil
}

func (s *Store) Dim() int { return s.cfg.VectorDim }

func (s *Store) Close() error { return s.api.Close() }

// EnsureCollection creates the collection and its tenant_id keyword index.
func (s *Store) EnsureCollection(ctx context.Context) error {
	const op = "ensure_collection"
	exists, err := s.api.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return classify(op, err)
	}
	if exists {
		return nil
	}
	if err := s.api.CreateCollection(ctx, &qc.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
			Size:     uint64(s.cfg.VectorDim),
			Distance: qc.Distance_Euclid,
		}),
	}); err != nil {
		return classify(op, err)
	}
	if _, err := s.api.CreateFieldIndex(ctx, &qc.CreateFieldIndexCollection{
		CollectionName: s.cfg.Collection,
		FieldName:      payloadTenantKey,
		FieldType:      qc.FieldType_FieldTypeKeyword.Enum(),
	}); err != nil {
		return classify(op, err)
	}
	s.log.Info("Qdrant collection created", "collection", s.cfg.Collection)
	return nil
}

func (s *Store) Upsert(ctx context.Context, tenantID uuid.UUID, points []Point) error {
	const op = "upsert"
	if tenantID == uuid.Nil {
		return opErr(op, OperationErrorValidation, "tenant id is required", nil)
	}
	if len(points) == 0 {
		return nil
	}
	out := make([]*qc.PointStruct, 0, len(points))
	for _, p := range points {
		if p.PassageID == uuid.Nil {
			return opErr(op, OperationErrorValidation, "passage id is required", nil)
		}
		if len(p.Vector) != s.cfg.VectorDim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("passage %s dimension mismatch: expected=%d got=%d", p.PassageID, s.cfg.VectorDim, len(p.Vector)), nil)
		}
		out = append(out, &qc.PointStruct{
			Id:      qc.NewIDUUID(p.PassageID.String()),
			Vectors: qc.NewVectors(p.Vector...),
			Payload: qc.NewValueMap(map[string]any{
				payloadTenantKey:  tenantID.String(),
				payloadPassageKey: p.PassageID.String(),
			}),
		})
	}
	_, err := s.api.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Wait:           qc.PtrOf(true),
		Points:         out,
	})
	return classify(op, err)
}

// Search returns up to limit passages of tenantID ordered by (distance, id).
func (s *Store) Search(ctx context.Context, tenantID uuid.UUID, vector []float32, limit int) ([]Hit, error) {
	const op = "search"
	if tenantID == uuid.Nil || limit <= 0 {
		return []Hit{}, nil
	}
	if len(vector) != s.cfg.VectorDim {
		return nil, opErr(op, OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(vector)), nil)
	}
	points, err := s.api.Query(ctx, &qc.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qc.NewQuery(vector...),
		Limit:          qc.PtrOf(uint64(limit)),
		Filter:         tenantFilter(tenantID),
		WithPayload:    qc.NewWithPayload(true),
	})
	if err != nil {
		return nil, classify(op, err)
	}
	out := make([]Hit, 0, len(points))
	for _, p := range points {
		// The filter is authoritative; the payload check guards against a
		// misconfigured collection returning foreign points.
		if payloadString(p.GetPayload(), payloadTenantKey) != tenantID.String() {
			s.log.Error("Qdrant returned a point outside the tenant filter", "tenant_id", tenantID)
			continue
		}
		id, err := uuid.Parse(strings.TrimSpace(p.GetId().GetUuid()))
		if err != nil {
			continue
		}
		out = append(out, Hit{PassageID: id, Distance: float64(p.GetScore())})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].PassageID.String() < out[j].PassageID.String()
	})
	return out, nil
}

func (s *Store) DeletePassages(ctx context.Context, tenantID uuid.UUID, passageIDs []uuid.UUID) error {
	const op = "delete_passages"
	if tenantID == uuid.Nil {
		return opErr(op, OperationErrorValidation, "tenant id is required", nil)
	}
	if len(passageIDs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(passageIDs))
	for _, id := range passageIDs {
		ids = append(ids, id.String())
	}
	filter := tenantFilter(tenantID)
	filter.Must = append(filter.Must, qc.NewMatchKeywords(payloadPassageKey, ids...))
	_, err := s.api.Delete(ctx, &qc.DeletePoints{
		CollectionName: s.cfg.Collection,
		Wait:           qc.PtrOf(true),
		Points:         qc.NewPointsSelectorFilter(filter),
	})
	return classify(op, err)
}

func (s *Store) DeleteTenant(ctx context.Context, tenantID uuid.UUID) error {
	const op = "delete_tenant"
	if tenantID == uuid.Nil {
		return opErr(op, OperationErrorValidation, "tenant id is required", nil)
	}
	_, err := s.api.Delete(ctx, &qc.DeletePoints{
		CollectionName: s.cfg.Collection,
		Wait:           qc.PtrOf(true),
		Points:         qc.NewPointsSelectorFilter(tenantFilter(tenantID)),
	})
	return classify(op, err)
}

func tenantFilter(tenantID uuid.UUID) *qc.Filter {
	return &qc.Filter{Must: []*qc.Condition{qc.NewMatch(payloadTenantKey, tenantID.String())}}
}

func payloadString(payload map[string]*qc.Value, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	return v.GetStringValue()
}
