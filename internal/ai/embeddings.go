package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"lillith/internal/apperrors"
	"lillith/internal/logger"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const providerGemini = "gemini"

// EmbeddingProvider embeds a batch of texts with one credential. It does not
// retry; callers rotate credentials on transient errors.
type EmbeddingProvider interface {
	EmbedBatch(ctx context.Context, texts []string, cred Credential) ([][]float32, error)
}

// QueryProvider embeds a single search query with one credential.
type QueryProvider interface {
	EmbedQuery(ctx context.Context, text string, cred Credential) ([]float32, error)
}

type clientFactory func(ctx context.Context, key string) (*genai.Client, error)

func newGenaiClient(ctx context.Context, key string) (*genai.Client, error) {
	return genai.NewClient(ctx, option.WithAPIKey(key))
}

// clientCache keeps one genai client per credential for the process lifetime.
type clientCache struct {
	mu      sync.Mutex
	clients map[int]*genai.Client
	factory clientFactory
}

func newClientCache() *clientCache {
	return &clientCache{clients: make(map[int]*genai.Client), factory: newGenaiClient}
}

func (c *clientCache) get(ctx context.Context, cred Credential) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[cred.Index]; ok {
		return client, nil
	}
	// The client outlives the request that created it.
	client, err := c.factory(context.WithoutCancel(ctx), cred.Key)
	if err != nil {
		return nil, err
	}
	c.clients[cred.Index] = client
	return client, nil
}

func (c *clientCache) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for idx, client := range c.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.clients, idx)
	}
	return errors.Join(errs...)
}

// GeminiEmbedder calls the Gemini embedding API.
type GeminiEmbedder struct {
	model   string
	clients *clientCache
}

// NewGeminiEmbedder creates an embedder for the given model, e.g. "text-embedding-004".
func NewGeminiEmbedder(model string) *GeminiEmbedder {
	return &GeminiEmbedder{model: model, clients: newClientCache()}
}

// EmbedBatch returns one vector per text in input order. If the provider
// returns fewer embeddings than inputs, the missing positions are nil so the
// caller drops those chunks instead of misaligning vectors.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string, cred Credential) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	client, err := e.clients.get(ctx, cred)
	if err != nil {
		return nil, &apperrors.ProviderError{Provider: providerGemini, Op: "connect", Err: err}
	}

	em := client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, &apperrors.ProviderError{Provider: providerGemini, Op: "batch_embed", Err: err}
	}

	vectors := make([][]float32, len(texts))
	if len(resp.Embeddings) != len(texts) {
		logger.Warn("Embedding count mismatch",
			"expected", len(texts),
			"received", len(resp.Embeddings),
			"credential", cred.String(),
		)
	}
	for i, emb := range resp.Embeddings {
		if i >= len(vectors) {
			break
		}
		if emb != nil {
			vectors[i] = emb.Values
		}
	}
	return vectors, nil
}

// EmbedQuery embeds a search query with the retrieval-query task type.
func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string, cred Credential) ([]float32, error) {
	client, err := e.clients.get(ctx, cred)
	if err != nil {
		return nil, &apperrors.ProviderError{Provider: providerGemini, Op: "connect", Err: err}
	}

	em := client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalQuery

	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, &apperrors.ProviderError{Provider: providerGemini, Op: "embed", Err: err}
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("query embedding: %w", apperrors.ErrEmptyResult)
	}
	return resp.Embedding.Values, nil
}

// Close releases every cached client.
func (e *GeminiEmbedder) Close() error {
	return e.clients.close()
}

// RotatingQueryEmbedder embeds search queries, moving to the next credential
// on transient errors. Each credential is tried at most once per query, and
// successive queries start on different keys to spread load.
type RotatingQueryEmbedder struct {
	pool     *CredentialPool
	provider QueryProvider
	next     atomic.Uint64
}

// NewRotatingQueryEmbedder wires a pool to a query provider.
func NewRotatingQueryEmbedder(pool *CredentialPool, provider QueryProvider) *RotatingQueryEmbedder {
	return &RotatingQueryEmbedder{pool: pool, provider: provider}
}

// EmbedQuery returns the query vector or ErrCredentialsExhausted when every
// key failed transiently.
func (r *RotatingQueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := int(r.next.Add(1) - 1)

	var lastErr error
	for attempt := 0; attempt < r.pool.Len(); attempt++ {
		cred := r.pool.At(start + attempt)

		vec, err := r.provider.EmbedQuery(ctx, text, cred)
		if err == nil {
			return vec, nil
		}
		if ClassifyProviderError(err) != ClassTransient {
			return nil, err
		}

		logger.Warn("Query embedding rate limited, rotating key", "credential", cred.String(), "error", err)
		lastErr = &apperrors.RateLimitedError{Credential: cred.Index, Err: err}
	}
	return nil, fmt.Errorf("%w: %w", apperrors.ErrCredentialsExhausted, lastErr)
}
