package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"vantagebuild/proposal-engine/internal/models"
)

// Embedder turns text into a vector for benchmark retrieval.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

type BenchmarkHit struct {
	ID      string
	Score   float32
	Text    string
	Segment string
}

// BenchmarkIndex is the vector index of ingested market benchmark
// documents, segmented by advisor type.
type BenchmarkIndex interface {
	InitCollection() error
	UpsertBenchmark(ctx context.Context, docID, segment, text string, embedding []float32) error
	SearchBenchmarks(ctx context.Context, queryEmbedding []float32, segment string, limit int) ([]BenchmarkHit, error)
}

type benchmarkIndex struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
}

func NewBenchmarkIndex(urlStr, apiKey, collectionName string) (BenchmarkIndex, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port by default
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &benchmarkIndex{
		client:         client,
		collectionName: collectionName,
		vectorSize:     768,
	}, nil
}

// InitCollection implements BenchmarkIndex.
func (b *benchmarkIndex) InitCollection() error {
	ctx := context.Background()

	exists, err := b.client.CollectionExists(ctx, b.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = b.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: b.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     b.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// UpsertBenchmark implements BenchmarkIndex.
func (b *benchmarkIndex) UpsertBenchmark(ctx context.Context, docID, segment, text string, embedding []float32) error {
	pointID := uuid.New()

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDNum(uint64(pointID.ID())),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(map[string]interface{}{
			"doc_id":  docID,
			"segment": segment,
			"text":    text,
		}),
	}

	_, err := b.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: b.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert benchmark: %w", err)
	}
	return nil
}

// SearchBenchmarks implements BenchmarkIndex.
func (b *benchmarkIndex) SearchBenchmarks(ctx context.Context, queryEmbedding []float32, segment string, limit int) ([]BenchmarkHit, error) {
	var filter *qdrant.Filter
	if segment != "" {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("segment", segment),
			},
		}
	}

	points, err := b.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: b.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search benchmarks: %w", err)
	}

	var hits []BenchmarkHit
	for _, point := range points {
		hit := BenchmarkHit{Score: point.Score}
		if v, ok := point.Payload["doc_id"]; ok {
			if s, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
				hit.ID = s.StringValue
			}
		}
		if v, ok := point.Payload["text"]; ok {
			if s, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
				hit.Text = s.StringValue
			}
		}
		if v, ok := point.Payload["segment"]; ok {
			if s, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
				hit.Segment = s.StringValue
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// MarketContextService produces the optional market-context note attached
// to compare-mode summaries. Retrieval failures are reported to the caller,
// who treats them as non-fatal.
type MarketContextService interface {
	BenchmarkNote(ctx context.Context, project models.Project, advisorType string) (string, error)
}

type marketContextService struct {
	index    BenchmarkIndex
	embedder Embedder
}

func NewMarketContextService(index BenchmarkIndex, embedder Embedder) MarketContextService {
	return &marketContextService{index: index, embedder: embedder}
}

// BenchmarkNote implements MarketContextService.
func (s *marketContextService) BenchmarkNote(ctx context.Context, project models.Project, advisorType string) (string, error) {
	query := fmt.Sprintf("fee benchmarks for %s services on %s projects in %s",
		advisorType, project.Type, project.Location)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to embed benchmark query: %w", err)
	}

	hits, err := s.index.SearchBenchmarks(ctx, embedding, advisorType, 3)
	if err != nil {
		return "", fmt.Errorf("failed to search benchmarks: %w", err)
	}
	if len(hits) == 0 {
		return "", nil
	}

	var parts []string
	for _, hit := range hits {
		parts = append(parts, strings.TrimSpace(hit.Text))
	}
	return strings.Join(parts, "\n\n"), nil
}
