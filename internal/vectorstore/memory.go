package vectorstore

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"sync"

	"lillith/internal/apperrors"
	"lillith/models"
)

const providerMemory = "memory"

type memCollection struct {
	dim    int
	points []models.Point
}

// MemoryStore is an in-process Store using brute-force cosine similarity.
// It backs tests and VECTOR_STORE=memory development runs.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	embedder    QueryEmbedder
}

// NewMemoryStore creates an empty store. embedder may be nil if Search is never called.
func NewMemoryStore(embedder QueryEmbedder) *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection), embedder: embedder}
}

func (s *MemoryStore) EnsureCollection(_ context.Context, collection string, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid dimension %d for collection %q", dim, collection)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[collection]; ok {
		if c.dim != dim {
			return &apperrors.DimensionMismatchError{Collection: collection, Want: dim, Got: c.dim}
		}
		return nil
	}
	s.collections[collection] = &memCollection{dim: dim}
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, collection string, points []models.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return &apperrors.ProviderError{Provider: providerMemory, Op: "upsert", Err: apperrors.ErrCollectionNotFound}
	}
	for _, p := range points {
		if len(p.Vector) != c.dim {
			return &apperrors.ProviderError{
				Provider: providerMemory,
				Op:       "upsert",
				Err:      &apperrors.DimensionMismatchError{Collection: collection, Want: c.dim, Got: len(p.Vector)},
			}
		}
	}
	for _, p := range points {
		p.Payload = maps.Clone(p.Payload)
		c.points = append(c.points, p)
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, collection, query string, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	s.mu.RLock()
	_, ok := s.collections[collection]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrCollectionNotFound, collection)
	}

	if s.embedder == nil {
		return nil, fmt.Errorf("memory store has no query embedder")
	}
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrCollectionNotFound, collection)
	}
	if len(vec) != c.dim {
		return nil, &apperrors.DimensionMismatchError{Collection: collection, Want: c.dim, Got: len(vec)}
	}

	type scored struct {
		idx   int
		score float32
	}
	ranked := make([]scored, len(c.points))
	for i, p := range c.points {
		ranked[i] = scored{idx: i, score: cosine(vec, p.Vector)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if k > len(ranked) {
		k = len(ranked)
	}
	results := make([]models.SearchResult, 0, k)
	for _, r := range ranked[:k] {
		text, meta := splitPayload(c.points[r.idx].Payload)
		results = append(results, models.SearchResult{Text: text, Metadata: meta, Score: r.score})
	}
	return results, nil
}

func (s *MemoryStore) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return 0, fmt.Errorf("%w: %s", apperrors.ErrCollectionNotFound, collection)
	}
	return len(c.points), nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

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
