// Package tools implements the functions the chat model can call.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lillith/internal/apperrors"
	"lillith/internal/telemetry"
	"lillith/internal/vectorstore"
	"lillith/models"

	"github.com/google/generative-ai-go/genai"
)

// DefaultCollection is searched when the caller does not name one.
const DefaultCollection = "Hadith"

// Retriever runs similarity searches over the searchable collections.
type Retriever struct {
	store       vectorstore.Store
	collections []string
	topK        int
	metrics     *telemetry.Metrics
}

// NewRetriever limits searches to collections. topK <= 0 uses the store default.
func NewRetriever(store vectorstore.Store, collections []string, topK int, metrics *telemetry.Metrics) *Retriever {
	return &Retriever{store: store, collections: collections, topK: topK, metrics: metrics}
}

// Collections lists the searchable collection names.
func (r *Retriever) Collections() []string { return r.collections }

// ResolveCollection maps a requested name (case-insensitive, empty for the
// default) to a configured collection.
func (r *Retriever) ResolveCollection(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultCollection
	}
	for _, c := range r.collections {
		if strings.EqualFold(c, name) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of %s)", apperrors.ErrUnsupportedCollection, name, strings.Join(r.collections, ", "))
}

// Retrieve returns up to k passages relevant to query. k <= 0 uses the
// configured default.
func (r *Retriever) Retrieve(ctx context.Context, collection, query string, k int) ([]models.SearchResult, error) {
	collection, err := r.ResolveCollection(collection)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is required")
	}
	if k <= 0 {
		k = r.topK
	}

	start := time.Now()
	results, err := r.store.Search(ctx, collection, query, k)
	r.metrics.RecordSearch(ctx, collection, time.Since(start).Seconds(), err == nil)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// IslamicTool exposes the retriever to the chat model.
type IslamicTool struct {
	retriever *Retriever
}

func NewIslamicTool(r *Retriever) *IslamicTool {
	return &IslamicTool{retriever: r}
}

func (t *IslamicTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name: "islamicGPT",
		Description: "Search Islamic passages from Hadith and Tafseer. The collection defaults to Hadith; " +
			"use Tafseer only when the user asks about Quran commentary. Only one collection per call.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"collectionName": {
					Type:        genai.TypeString,
					Enum:        t.retriever.Collections(),
					Description: "The collection to search. Defaults to Hadith.",
				},
				"query": {
					Type:        genai.TypeString,
					Description: "Query to search in the Hadiths and Tafseer.",
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *IslamicTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	collection := stringArg(args, "collectionName")
	query := stringArg(args, "query")

	results, err := t.retriever.Retrieve(ctx, collection, query, 0)
	if err != nil {
		return nil, err
	}

	passages := make([]any, 0, len(results))
	for _, r := range results {
		passages = append(passages, map[string]any{
			"text":     r.Text,
			"metadata": r.Metadata,
			"score":    r.Score,
		})
	}
	return map[string]any{"results": passages}, nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}
