package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"lillith/internal/apperrors"
	"lillith/models"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	providerQdrant  = "qdrant"
	defaultGRPCPort = 6334
)

// QdrantConfig addresses a Qdrant instance over gRPC.
type QdrantConfig struct {
	URL    string // e.g. http://localhost:6334 or https://xyz.cloud.qdrant.io:6334
	APIKey string
}

// qdrantClient is the subset of *qdrant.Client used by QdrantStore.
type qdrantClient interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	GetCollectionInfo(ctx context.Context, collectionName string) (*qdrant.CollectionInfo, error)
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error)
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	Close() error
}

// QdrantStore is a Store backed by Qdrant. One gRPC connection is shared by
// every caller.
type QdrantStore struct {
	client   qdrantClient
	embedder QueryEmbedder
}

// NewQdrantStore dials Qdrant. embedder is used to vectorise search queries.
func NewQdrantStore(cfg QdrantConfig, embedder QueryEmbedder) (*QdrantStore, error) {
	host, port, useTLS, err := parseQdrantURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, &apperrors.ProviderError{Provider: providerQdrant, Op: "connect", Err: err}
	}
	return &QdrantStore{client: client, embedder: embedder}, nil
}

func parseQdrantURL(raw string) (host string, port int, useTLS bool, err error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid QDRANT_URL %q: %w", raw, err)
	}
	if u.Hostname() == "" {
		return "", 0, false, fmt.Errorf("invalid QDRANT_URL %q: missing host", raw)
	}

	port = defaultGRPCPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, false, fmt.Errorf("invalid QDRANT_URL port %q: %w", p, err)
		}
	}
	return u.Hostname(), port, u.Scheme == "https", nil
}

func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid dimension %d for collection %q", dim, collection)
	}

	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return &apperrors.ProviderError{Provider: providerQdrant, Op: "collection_exists", Err: err}
	}

	if !exists {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err == nil {
			return nil
		}
		// Another writer may have created it between the check and the create;
		// Qdrant reports that as InvalidArgument, so re-read the collection.
		createErr := err
		info, err := s.client.GetCollectionInfo(ctx, collection)
		if err != nil {
			return &apperrors.ProviderError{Provider: providerQdrant, Op: "create_collection", Err: createErr}
		}
		return checkDimension(collection, dim, info)
	}

	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return &apperrors.ProviderError{Provider: providerQdrant, Op: "collection_info", Err: err}
	}
	return checkDimension(collection, dim, info)
}

func checkDimension(collection string, dim int, info *qdrant.CollectionInfo) error {
	got := int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
	if got != dim {
		return &apperrors.DimensionMismatchError{Collection: collection, Want: dim, Got: got}
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []models.Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		payload, err := qdrant.TryValueMap(p.Payload)
		if err != nil {
			return fmt.Errorf("point %s payload: %w", p.ID, err)
		}
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	if err != nil {
		return &apperrors.ProviderError{Provider: providerQdrant, Op: "upsert", Err: err}
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, collection, query string, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrCollectionNotFound, collection)
		}
		return nil, &apperrors.ProviderError{Provider: providerQdrant, Op: "query", Err: err}
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, h := range hits {
		text, meta := splitPayload(fromValueMap(h.GetPayload()))
		results = append(results, models.SearchResult{Text: text, Metadata: meta, Score: h.GetScore()})
	}
	return results, nil
}

func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, fmt.Errorf("%w: %s", apperrors.ErrCollectionNotFound, collection)
		}
		return 0, &apperrors.ProviderError{Provider: providerQdrant, Op: "count", Err: err}
	}
	return int(n), nil
}

func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return &apperrors.ProviderError{Provider: providerQdrant, Op: "health", Err: err}
	}
	return nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func fromValueMap(in map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = fromValue(v)
	}
	return out
}

func fromValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = fromValue(item)
		}
		return out
	case *qdrant.Value_StructValue:
		return fromValueMap(kind.StructValue.GetFields())
	default:
		return nil
	}
}
