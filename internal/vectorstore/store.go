// Package vectorstore persists embedded chunks and answers similarity queries.
package vectorstore

import (
	"context"

	"lillith/models"
)

// DefaultTopK is used when a search asks for k <= 0.
const DefaultTopK = 5

// Store is a collection-partitioned vector database.
type Store interface {
	// EnsureCollection creates the collection with cosine distance if it is
	// absent. It is a no-op when the collection exists with dim, and returns
	// *apperrors.DimensionMismatchError when it exists with another size.
	EnsureCollection(ctx context.Context, collection string, dim int) error

	// Upsert commits points synchronously; on success they are searchable.
	Upsert(ctx context.Context, collection string, points []models.Point) error

	// Search embeds query and returns at most k results by descending score.
	Search(ctx context.Context, collection, query string, k int) ([]models.SearchResult, error)

	// Count returns the number of points stored in the collection.
	Count(ctx context.Context, collection string) (int, error)

	Ping(ctx context.Context) error
	Close() error
}

// QueryEmbedder turns search text into a query vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// splitPayload separates the chunk text from the remaining payload fields.
func splitPayload(payload map[string]any) (string, map[string]any) {
	meta := make(map[string]any, len(payload))
	var text string
	for k, v := range payload {
		if k == models.PayloadText {
			text, _ = v.(string)
			continue
		}
		meta[k] = v
	}
	return text, meta
}
