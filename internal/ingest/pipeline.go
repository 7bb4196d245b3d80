// Package ingest turns source documents into stored vector points.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lillith/internal/ai"
	"lillith/internal/apperrors"
	"lillith/internal/logger"
	"lillith/internal/telemetry"
	"lillith/internal/vectorstore"
	"lillith/models"
	"lillith/services"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Options tune batching and pacing.
type Options struct {
	Dimensions       int
	BatchSize        int
	BatchDelay       time.Duration
	RetryBackoff     time.Duration
	DefaultSourceTag string
}

// Pipeline loads, chunks, embeds and stores documents. Documents and batches
// are processed strictly one after another.
type Pipeline struct {
	pool     *ai.CredentialPool
	embedder ai.EmbeddingProvider
	store    vectorstore.Store
	loader   services.DocumentLoader
	chunker  *services.ChunkingService
	opts     Options
	metrics  *telemetry.Metrics

	sleep func(ctx context.Context, d time.Duration) error
	newID func() string
}

// NewPipeline wires a pipeline. metrics may be nil.
func NewPipeline(
	pool *ai.CredentialPool,
	embedder ai.EmbeddingProvider,
	store vectorstore.Store,
	loader services.DocumentLoader,
	chunker *services.ChunkingService,
	opts Options,
	metrics *telemetry.Metrics,
) (*Pipeline, error) {
	if pool == nil {
		return nil, apperrors.ErrNoCredentials
	}
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("vector dimensions must be positive, got %d", opts.Dimensions)
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}
	if opts.DefaultSourceTag == "" {
		opts.DefaultSourceTag = "General"
	}

	return &Pipeline{
		pool:     pool,
		embedder: embedder,
		store:    store,
		loader:   loader,
		chunker:  chunker,
		opts:     opts,
		metrics:  metrics,
		sleep:    sleepContext,
		newID:    uuid.NewString,
	}, nil
}

// run is the mutable state of a single Ingest call.
type run struct {
	cursor     *ai.Cursor
	collection string
	stats      models.IngestStats
	batches    int
}

// Ingest processes a file or directory into meta.Collection. The collection
// is only created once at least one document has been found. The returned
// stats are valid even when an error is returned and describe the work done
// before the failure.
func (p *Pipeline) Ingest(ctx context.Context, sourcePath string, meta models.Metadata) (*models.IngestStats, error) {
	if meta.Collection == "" {
		return nil, errors.New("metadata collection is required")
	}

	r := &run{cursor: p.pool.Cursor(), collection: meta.Collection}

	sources, err := ResolveSources(sourcePath, meta, p.opts.DefaultSourceTag)
	if err != nil {
		return &r.stats, err
	}
	if len(sources) == 0 {
		logger.Warn("No documents found to ingest", "source", sourcePath)
		return &r.stats, nil
	}

	if err := p.store.EnsureCollection(ctx, meta.Collection, p.opts.Dimensions); err != nil {
		return &r.stats, err
	}

	for _, src := range sources {
		if err := p.ingestDocument(ctx, r, src); err != nil {
			return &r.stats, err
		}
	}

	logger.Info("Ingestion finished",
		"source", sourcePath,
		"collection", meta.Collection,
		"documents", r.stats.DocumentsProcessed,
		"chunks", r.stats.ChunksProcessed,
		"stored", r.stats.PointsStored,
		"dropped", r.stats.ChunksDropped,
	)
	return &r.stats, nil
}

func (p *Pipeline) ingestDocument(ctx context.Context, r *run, src Source) error {
	doc, err := p.loader.Load(ctx, src.Path)
	if err != nil {
		return fmt.Errorf("load %s: %w", src.Path, err)
	}

	r.stats.DocumentsProcessed++
	p.metrics.RecordDocument(ctx, r.collection)
	logger.Info("Document loaded", "file", src.Path, "pages", doc.Pages, "title", src.Metadata.Title)

	for batchIndex, batch := range services.Batches(p.chunker.ChunkDocument(doc, src.Metadata), p.opts.BatchSize) {
		if r.batches > 0 {
			if err := p.sleep(ctx, p.opts.BatchDelay); err != nil {
				return err
			}
		}
		r.batches++
		r.stats.ChunksProcessed += len(batch)

		if err := p.processBatch(ctx, r, src.Path, batchIndex, batch); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) processBatch(ctx context.Context, r *run, source string, batchIndex int, batch []models.Chunk) error {
	ctx, span := otel.Tracer("ingest-pipeline").Start(ctx, "ingest.batch")
	defer span.End()
	span.SetAttributes(
		attribute.String("ingest.source", source),
		attribute.String("ingest.collection", r.collection),
		attribute.Int("ingest.batch_index", batchIndex),
		attribute.Int("ingest.batch_size", len(batch)),
	)
	start := time.Now()

	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := p.embedWithRotation(ctx, r.cursor, source, batchIndex, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return err
	}

	points := make([]models.Point, 0, len(batch))
	dropped := 0
	for i, c := range batch {
		var vec []float32
		if i < len(vectors) {
			vec = vectors[i]
		}
		if len(vec) != p.opts.Dimensions {
			dropped++
			var reason error = &apperrors.DimensionMismatchError{Want: p.opts.Dimensions, Got: len(vec)}
			if len(vec) == 0 {
				reason = apperrors.ErrEmptyResult
			}
			logger.Warn("Dropping chunk with unusable embedding",
				"file", source,
				"chunk", c.SequenceIndex,
				"batch", batchIndex,
				"reason", reason.Error(),
			)
			continue
		}

		payload := c.Metadata.Payload()
		payload[models.PayloadText] = c.Text
		payload[models.PayloadFilePath] = source
		payload[models.PayloadChunkNum] = int64(c.SequenceIndex)

		points = append(points, models.Point{ID: p.newID(), Vector: vec, Payload: payload})
	}

	if len(points) > 0 {
		if err := p.store.Upsert(ctx, r.collection, points); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "upsert failed")
			return err
		}
	}

	r.stats.PointsStored += len(points)
	r.stats.ChunksDropped += dropped
	p.metrics.RecordBatch(ctx, r.collection, len(points), dropped, time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("ingest.points_stored", len(points)), attribute.Int("ingest.chunks_dropped", dropped))

	logger.Debug("Batch stored", "file", source, "batch", batchIndex, "stored", len(points), "dropped", dropped)
	return nil
}

// embedWithRotation tries every credential at most once for this batch,
// rotating on transient errors. The cursor position carries over to the
// next batch.
func (p *Pipeline) embedWithRotation(ctx context.Context, cursor *ai.Cursor, source string, batchIndex int, texts []string) ([][]float32, error) {
	var lastErr error
	attempts := cursor.Len()

	for attempt := 1; attempt <= attempts; attempt++ {
		cred := cursor.Current()

		vectors, err := p.embedder.EmbedBatch(ctx, texts, cred)
		if err == nil {
			return vectors, nil
		}

		if ai.ClassifyProviderError(err) != ai.ClassTransient {
			var perr *apperrors.ProviderError
			if errors.As(err, &perr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, &apperrors.ProviderError{Provider: "gemini", Op: "batch_embed", Err: err}
		}

		lastErr = &apperrors.RateLimitedError{Credential: cred.Index, Err: err}
		next := cursor.Rotate()
		p.metrics.RecordKeyRotation(ctx, "ingest")
		logger.Warn("Embedding rate limited, rotating key",
			"file", source,
			"batch", batchIndex,
			"attempt", attempt,
			"failed", cred.String(),
			"next", next.String(),
			"error", err,
		)

		if attempt < attempts {
			if err := p.sleep(ctx, p.opts.RetryBackoff); err != nil {
				return nil, err
			}
		}
	}

	return nil, &apperrors.BatchExhaustedError{
		Source:     source,
		BatchIndex: batchIndex,
		Attempts:   attempts,
		Err:        lastErr,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
