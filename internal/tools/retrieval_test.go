package tools

import (
	"context"
	"testing"

	"lillith/internal/apperrors"
	"lillith/internal/vectorstore"
	"lillith/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constEmbedder []float32

func (c constEmbedder) EmbedQuery(context.Context, string) ([]float32, error) { return c, nil }

func seededRetriever(t *testing.T) *Retriever {
	t.Helper()
	ctx := context.Background()

	store := vectorstore.NewMemoryStore(constEmbedder{1, 0})
	require.NoError(t, store.EnsureCollection(ctx, "Hadith", 2))
	require.NoError(t, store.EnsureCollection(ctx, "Tafseer", 2))

	var points []models.Point
	for i, v := range [][]float32{{1, 0}, {0.8, 0.2}, {0.5, 0.5}, {0.2, 0.8}, {0, 1}, {-1, 0}, {0.9, 0.1}} {
		points = append(points, models.Point{
			ID:      string(rune('a' + i)),
			Vector:  v,
			Payload: map[string]any{models.PayloadText: "fasting passage", "collection": "Hadith"},
		})
	}
	require.NoError(t, store.Upsert(ctx, "Hadith", points))

	return NewRetriever(store, []string{"Hadith", "Tafseer"}, vectorstore.DefaultTopK, nil)
}

func TestRetriever_Retrieve(t *testing.T) {
	r := seededRetriever(t)

	results, err := r.Retrieve(context.Background(), "Hadith", "fasting rules", 0)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.Equal(t, "fasting passage", results[0].Text)
}

func TestRetriever_CollectionRules(t *testing.T) {
	r := seededRetriever(t)

	got, err := r.ResolveCollection("")
	require.NoError(t, err)
	assert.Equal(t, "Hadith", got)

	got, err = r.ResolveCollection("tafseer")
	require.NoError(t, err)
	assert.Equal(t, "Tafseer", got)

	_, err = r.Retrieve(context.Background(), "Fiqh", "zakat", 3)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedCollection)

	_, err = r.Retrieve(context.Background(), "Hadith", "  ", 3)
	assert.Error(t, err)
}

func TestRetriever_EmptyCollection(t *testing.T) {
	r := seededRetriever(t)

	results, err := r.Retrieve(context.Background(), "Tafseer", "prayer", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIslamicTool_Call(t *testing.T) {
	tool := NewIslamicTool(seededRetriever(t))

	decl := tool.Declaration()
	assert.Equal(t, "islamicGPT", decl.Name)
	assert.Equal(t, []string{"Hadith", "Tafseer"}, decl.Parameters.Properties["collectionName"].Enum)

	out, err := tool.Call(context.Background(), map[string]any{"query": "fasting rules"})
	require.NoError(t, err)
	results, ok := out["results"].([]any)
	require.True(t, ok)
	assert.Len(t, results, 5)
}
