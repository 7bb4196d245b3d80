package vectorstore

import (
	"context"
	"fmt"
	"testing"

	"lillith/internal/apperrors"
	"lillith/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapEmbedder map[string][]float32

func (m mapEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	v, ok := m[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func point(id, text string, vec ...float32) models.Point {
	return models.Point{
		ID:     id,
		Vector: vec,
		Payload: map[string]any{
			models.PayloadText:     text,
			models.PayloadChunkNum: int64(0),
			"collection":           "Hadith",
		},
	}
}

func TestMemoryStore_EnsureCollectionIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	require.NoError(t, s.EnsureCollection(ctx, "Hadith", 3))
	require.NoError(t, s.EnsureCollection(ctx, "Hadith", 3))

	n, err := s.Count(ctx, "Hadith")
	require.NoError(t, err)
	assert.Zero(t, n)

	err = s.EnsureCollection(ctx, "Hadith", 4)
	var mismatch *apperrors.DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 4, mismatch.Want)
	assert.Equal(t, 3, mismatch.Got)
}

func TestMemoryStore_SearchOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(mapEmbedder{"prayer": {1, 0, 0}})
	require.NoError(t, s.EnsureCollection(ctx, "Hadith", 3))

	points := []models.Point{
		point("a", "far", 0, 1, 0),
		point("b", "closest", 1, 0, 0),
		point("c", "close", 0.9, 0.1, 0),
		point("d", "opposite", -1, 0, 0),
		point("e", "mid", 0.5, 0.5, 0),
		point("f", "mid-far", 0.2, 0.8, 0),
		point("g", "side", 0, 0, 1),
	}
	require.NoError(t, s.Upsert(ctx, "Hadith", points))

	results, err := s.Search(ctx, "Hadith", "prayer", 0)
	require.NoError(t, err)
	require.Len(t, results, DefaultTopK)

	assert.Equal(t, "closest", results[0].Text)
	assert.Equal(t, "close", results[1].Text)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.Equal(t, "Hadith", results[0].Metadata["collection"])
	assert.NotContains(t, results[0].Metadata, models.PayloadText)
}

func TestMemoryStore_SearchFewerThanK(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(mapEmbedder{"q": {1, 0}})
	require.NoError(t, s.EnsureCollection(ctx, "Tafseer", 2))
	require.NoError(t, s.Upsert(ctx, "Tafseer", []models.Point{point("a", "only", 1, 1)}))

	results, err := s.Search(ctx, "Tafseer", "q", 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMemoryStore_MissingCollection(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(mapEmbedder{"q": {1, 0}})

	_, err := s.Search(ctx, "Nope", "q", 5)
	assert.ErrorIs(t, err, apperrors.ErrCollectionNotFound)

	err = s.Upsert(ctx, "Nope", []models.Point{point("a", "x", 1, 0)})
	var perr *apperrors.ProviderError
	assert.ErrorAs(t, err, &perr)

	_, err = s.Count(ctx, "Nope")
	assert.ErrorIs(t, err, apperrors.ErrCollectionNotFound)
}

func TestMemoryStore_UpsertRejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	require.NoError(t, s.EnsureCollection(ctx, "Hadith", 3))

	err := s.Upsert(ctx, "Hadith", []models.Point{point("a", "ok", 1, 0, 0), point("b", "bad", 1, 0)})
	require.Error(t, err)

	n, err := s.Count(ctx, "Hadith")
	require.NoError(t, err)
	assert.Zero(t, n, "a rejected batch stores nothing")
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 1}))
}
