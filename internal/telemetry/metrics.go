package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics. A nil *Metrics is valid and records
// nothing, so components can run without telemetry in tests and the CLI.
type Metrics struct {
	RequestCount        metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	DocumentsIngested   metric.Int64Counter
	PointsStored        metric.Int64Counter
	ChunksDropped       metric.Int64Counter
	KeyRotations        metric.Int64Counter
	BatchDuration       metric.Float64Histogram
	SearchDuration      metric.Float64Histogram
	TokensUsed          metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
	DatabaseOperations  metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("lillith")

	requestCount, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	documentsIngested, err := meter.Int64Counter(
		"ingest.documents.total",
		metric.WithDescription("Documents loaded and chunked by the ingestion pipeline"),
	)
	if err != nil {
		return nil, err
	}

	pointsStored, err := meter.Int64Counter(
		"ingest.points.stored",
		metric.WithDescription("Points upserted into the vector store"),
	)
	if err != nil {
		return nil, err
	}

	chunksDropped, err := meter.Int64Counter(
		"ingest.chunks.dropped",
		metric.WithDescription("Chunks dropped for missing or malformed embeddings"),
	)
	if err != nil {
		return nil, err
	}

	keyRotations, err := meter.Int64Counter(
		"gemini.key.rotations",
		metric.WithDescription("Credential rotations after transient provider errors"),
	)
	if err != nil {
		return nil, err
	}

	batchDuration, err := meter.Float64Histogram(
		"ingest.batch.duration",
		metric.WithDescription("Embed and upsert duration per batch in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	searchDuration, err := meter.Float64Histogram(
		"vectorstore.search.duration",
		metric.WithDescription("Similarity search duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"gemini.tokens.used",
		metric.WithDescription("Total Gemini tokens used"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	databaseOperations, err := meter.Int64Counter(
		"database.operations.total",
		metric.WithDescription("Total database operations"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCount:        requestCount,
		RequestDuration:     requestDuration,
		DocumentsIngested:   documentsIngested,
		PointsStored:        pointsStored,
		ChunksDropped:       chunksDropped,
		KeyRotations:        keyRotations,
		BatchDuration:       batchDuration,
		SearchDuration:      searchDuration,
		TokensUsed:          tokensUsed,
		CircuitBreakerState: circuitBreakerState,
		DatabaseOperations:  databaseOperations,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(ctx context.Context, method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.String("http.status", status),
	)

	m.RequestCount.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, seconds, attrs)
}

// RecordDocument records one processed document for a collection
func (m *Metrics) RecordDocument(ctx context.Context, collection string) {
	if m == nil {
		return
	}
	m.DocumentsIngested.Add(ctx, 1, metric.WithAttributes(attribute.String("collection", collection)))
}

// RecordBatch records the outcome of one embed+upsert batch
func (m *Metrics) RecordBatch(ctx context.Context, collection string, stored, dropped int, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("collection", collection))

	m.PointsStored.Add(ctx, int64(stored), attrs)
	m.ChunksDropped.Add(ctx, int64(dropped), attrs)
	m.BatchDuration.Record(ctx, seconds, attrs)
}

// RecordKeyRotation records a credential rotation
func (m *Metrics) RecordKeyRotation(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.KeyRotations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordSearch records similarity search latency
func (m *Metrics) RecordSearch(ctx context.Context, collection string, seconds float64, success bool) {
	if m == nil {
		return
	}
	m.SearchDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("collection", collection),
		attribute.Bool("success", success),
	))
}

// RecordTokensUsed records Gemini token usage
func (m *Metrics) RecordTokensUsed(ctx context.Context, tokens int64, model string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("gemini.model", model),
		attribute.String("service", "gemini"),
	}

	m.TokensUsed.Add(ctx, tokens, metric.WithAttributes(attrs...))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordDatabaseOperation records database operation metrics
func (m *Metrics) RecordDatabaseOperation(ctx context.Context, operation, collection string, success bool) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.String("db.collection", collection),
		attribute.Bool("db.success", success),
	}

	m.DatabaseOperations.Add(ctx, 1, metric.WithAttributes(attrs...))
}
