package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Memory is an in-process Index for development and tests.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]Point
}

func NewMemory(dimension int) *Memory {
	return &Memory{
		dimension: dimension,
		points:    make(map[string]Point),
	}
}

func (m *Memory) EnsureCollection(ctx context.Context) error {
	if m.dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrDimensionMismatch)
	}
	return nil
}

func (m *Memory) Upsert(ctx context.Context, points []Point) error {
	if err := checkDimensions(points, m.dimension); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		p.Vector = vec
		m.points[p.ID] = p
	}
	return nil
}

func (m *Memory) Search(ctx context.Context, req SearchRequest) ([]ScoredPoint, error) {
	if req.Filter.IsEmpty() {
		return nil, ErrEmptyFilter
	}
	if len(req.Vector) != m.dimension {
		return nil, fmt.Errorf("%w: query has %d, index expects %d", ErrDimensionMismatch, len(req.Vector), m.dimension)
	}

	m.mu.RLock()
	results := make([]ScoredPoint, 0)
	for _, p := range m.points {
		if !req.Filter.Matches(p.Payload) {
			continue
		}
		results = append(results, ScoredPoint{
			ID:      p.ID,
			Score:   cosine(req.Vector, p.Vector),
			Payload: p.Payload,
		})
	}
	m.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].Payload.ChunkIndex < results[j].Payload.ChunkIndex
		}
		return results[i].Score > results[j].Score
	})

	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}
	return results, nil
}

func (m *Memory) DeleteByFilter(ctx context.Context, filter Filter) error {
	if filter.IsEmpty() {
		return ErrEmptyFilter
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.points {
		if filter.Matches(p.Payload) {
			delete(m.points, id)
		}
	}
	return nil
}

// Len returns the number of stored points.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
