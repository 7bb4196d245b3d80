// Package app wires the retrieval stack from configuration. The API server,
// the worker and the CLI share it.
package app

import (
	"errors"
	"fmt"

	"lillith/internal/ai"
	"lillith/internal/config"
	"lillith/internal/ingest"
	"lillith/internal/logger"
	"lillith/internal/telemetry"
	"lillith/internal/tools"
	"lillith/internal/vectorstore"
	"lillith/models"
	"lillith/services"
)

// RAG holds the long-lived components built from one Config.
type RAG struct {
	Config    *config.Config
	Pool      *ai.CredentialPool
	Embedder  *ai.GeminiEmbedder
	Queries   *ai.RotatingQueryEmbedder
	Store     vectorstore.Store
	Retriever *tools.Retriever
	Pipeline  *ingest.Pipeline
}

// NewRAG builds the credential pool, embedder, vector store, retriever and
// ingestion pipeline. metrics may be nil.
func NewRAG(cfg *config.Config, metrics *telemetry.Metrics) (*RAG, error) {
	pool, err := ai.NewCredentialPool(cfg.GeminiAPIKeys)
	if err != nil {
		return nil, err
	}

	embedder := ai.NewGeminiEmbedder(cfg.GoogleEmbeddingsModel)
	queries := ai.NewRotatingQueryEmbedder(pool, embedder)

	store, err := NewStore(cfg, queries)
	if err != nil {
		embedder.Close()
		return nil, err
	}

	chunker, err := services.NewChunkingService(models.ChunkingConfig{
		MaxChunkSize: cfg.MaxChunkSize,
		Overlap:      cfg.ChunkOverlap,
		MinChunkSize: cfg.MinChunkLength,
	})
	if err != nil {
		return nil, errors.Join(err, store.Close(), embedder.Close())
	}

	pipeline, err := ingest.NewPipeline(pool, embedder, store, services.NewPDFExtractor(), chunker, ingest.Options{
		Dimensions:       cfg.VectorDimensions,
		BatchSize:        cfg.BatchSize,
		BatchDelay:       cfg.BatchDelay,
		RetryBackoff:     cfg.RetryBackoff,
		DefaultSourceTag: cfg.DefaultSourceTag,
	}, metrics)
	if err != nil {
		return nil, errors.Join(err, store.Close(), embedder.Close())
	}

	logger.Info("Retrieval stack ready",
		"vector_store", cfg.VectorStore,
		"embedding_model", cfg.GoogleEmbeddingsModel,
		"dimensions", cfg.VectorDimensions,
		"keys", pool.Len(),
		"collections", cfg.SearchCollections,
	)

	return &RAG{
		Config:    cfg,
		Pool:      pool,
		Embedder:  embedder,
		Queries:   queries,
		Store:     store,
		Retriever: tools.NewRetriever(store, cfg.SearchCollections, cfg.SearchTopK, metrics),
		Pipeline:  pipeline,
	}, nil
}

// NewStore opens the vector store selected by VECTOR_STORE.
func NewStore(cfg *config.Config, queries vectorstore.QueryEmbedder) (vectorstore.Store, error) {
	switch cfg.VectorStore {
	case "qdrant":
		return vectorstore.NewQdrantStore(vectorstore.QdrantConfig{URL: cfg.QdrantURL, APIKey: cfg.QdrantAPIKey}, queries)
	case "memory":
		logger.Warn("Using in-memory vector store; points are lost on exit")
		return vectorstore.NewMemoryStore(queries), nil
	default:
		return nil, fmt.Errorf("unknown VECTOR_STORE: %s", cfg.VectorStore)
	}
}

// NewChatClient builds the chat agent over the default tools.
func (r *RAG) NewChatClient(metrics *telemetry.Metrics) *ai.ChatClient {
	return ai.NewChatClient(r.Pool, tools.Default(r.Config, r.Retriever), ai.ChatOptions{
		DefaultModel: r.Config.ChatModel,
		MaxSteps:     r.Config.ChatMaxSteps,
		Tier:         r.Config.GeminiTier,
		Metrics:      metrics,
	})
}

func (r *RAG) Close() error {
	return errors.Join(r.Store.Close(), r.Embedder.Close())
}
