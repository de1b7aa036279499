package index

import (
	"context"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

type memoryEntry struct {
	content  string
	trigrams []string
	vector   []float32
}

// Memory is an in-process LexicalIndex and VectorIndex. It scores with the
// same trigram rules as pg_trgm and brute-forces L2 distance. Used by tests
// and by the CLI when no database is configured.
type Memory struct {
	mu            sync.RWMutex
	dim           int
	minSimilarity float64
	tenants       map[uuid.UUID]map[uuid.UUID]*memoryEntry
}

func NewMemory(dim int, minSimilarity float64) *Memory {
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}
	return &Memory{
		dim:           dim,
		minSimilarity: minSimilarity,
		tenants:       map[uuid.UUID]map[uuid.UUID]*memoryEntry{},
	}
}

func (m *Memory) Dim() int { return m.dim }

// Put adds or replaces a passage. A nil vector keeps the passage out of
// vector results.
func (m *Memory) Put(tenantID, passageID uuid.UUID, content string, vector []float32) error {
	const op = "index.Memory.Put"
	if tenantID == uuid.Nil {
		return domain.IsolationViolation(op, "tenant id is required")
	}
	if vector != nil {
		if err := checkDim(op, m.dim, vector); err != nil {
			return err
		}
		vector = append([]float32(nil), vector...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tenants[tenantID]
	if rows == nil {
		rows = map[uuid.UUID]*memoryEntry{}
		m.tenants[tenantID] = rows
	}
	rows[passageID] = &memoryEntry{content: content, trigrams: Trigrams(content), vector: vector}
	return nil
}

func (m *Memory) FuzzyMatch(ctx context.Context, tenantID uuid.UUID, text string, limit int) ([]LexicalHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tenantID == uuid.Nil || limit <= 0 {
		return []LexicalHit{}, nil
	}
	query := trigramSet(Trigrams(text))
	if len(query) == 0 {
		return []LexicalHit{}, nil
	}
	m.mu.RLock()
	hits := make([]LexicalHit, 0)
	for id, e := range m.tenants[tenantID] {
		score := wordSimilarity(query, e.trigrams)
		if score >= m.minSimilarity {
			hits = append(hits, LexicalHit{PassageID: id, Score: score})
		}
	}
	m.mu.RUnlock()
	sortLexical(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *Memory) Nearest(ctx context.Context, tenantID uuid.UUID, vector []float32, limit int) ([]VectorHit, error) {
	const op = "index.Memory.Nearest"
	if err := checkDim(op, m.dim, vector); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tenantID == uuid.Nil || limit <= 0 {
		return []VectorHit{}, nil
	}
	m.mu.RLock()
	hits := make([]VectorHit, 0)
	for id, e := range m.tenants[tenantID] {
		if e.vector == nil {
			continue
		}
		hits = append(hits, VectorHit{PassageID: id, Distance: l2(vector, e.vector)})
	}
	m.mu.RUnlock()
	sortVector(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *Memory) UpsertVectors(_ context.Context, tenantID uuid.UUID, docs []VectorDoc) error {
	const op = "index.Memory.UpsertVectors"
	if tenantID == uuid.Nil {
		return domain.IsolationViolation(op, "tenant id is required")
	}
	for _, d := range docs {
		if err := checkDim(op, m.dim, d.Vector); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tenants[tenantID]
	if rows == nil {
		rows = map[uuid.UUID]*memoryEntry{}
		m.tenants[tenantID] = rows
	}
	for _, d := range docs {
		e := rows[d.PassageID]
		if e == nil {
			e = &memoryEntry{}
			rows[d.PassageID] = e
		}
		e.vector = append([]float32(nil), d.Vector...)
		if d.Content != "" {
			e.content = d.Content
			e.trigrams = Trigrams(d.Content)
		}
	}
	return nil
}

func (m *Memory) DeleteVectors(_ context.Context, tenantID uuid.UUID, passageIDs []uuid.UUID) error {
	if tenantID == uuid.Nil {
		return domain.IsolationViolation("index.Memory.DeleteVectors", "tenant id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range passageIDs {
		delete(m.tenants[tenantID], id)
	}
	return nil
}

func (m *Memory) DeleteTenant(_ context.Context, tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return domain.IsolationViolation("index.Memory.DeleteTenant", "tenant id is required")
	}
	m.mu.Lock()
	delete(m.tenants, tenantID)
	m.mu.Unlock()
	return nil
}

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
