package resolution

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// scoredPoint is the narrow shape the client needs out of a query
// result: a payload map and the similarity score that produced it,
// logged but never otherwise acted on per spec §4.3.
type scoredPoint struct {
	payload map[string]*qdrant.Value
	score   float32
}

// vectorStore is the seam over the ANN backend so tests can substitute
// a fake instead of a live Qdrant instance.
type vectorStore interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, dim uint64) error
	Query(ctx context.Context, collection string, vector []float32, limit uint64, scoreThreshold float32) ([]scoredPoint, error)
	Upsert(ctx context.Context, collection string, id string, vector []float32, payload map[string]*qdrant.Value) error
	Retrieve(ctx context.Context, collection string, id string) (map[string]*qdrant.Value, bool, error)
}

// qdrantStore adapts the official Qdrant Go client to vectorStore.
type qdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore connects to a Qdrant instance at host:port, optionally
// authenticating with apiKey and TLS as required by managed deployments.
func NewQdrantStore(host string, port int, apiKey string, useTLS bool) (*qdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrIndexUnavailable, err)
	}
	return &qdrantStore{client: client}, nil
}

func (s *qdrantStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	ok, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("%w: collection exists: %v", ErrIndexUnavailable, err)
	}
	return ok, nil
}

func (s *qdrantStore) CreateCollection(ctx context.Context, name string, dim uint64) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: create collection: %v", ErrIndexUnavailable, err)
	}
	return nil
}

func (s *qdrantStore) Query(ctx context.Context, collection string, vector []float32, limit uint64, scoreThreshold float32) ([]scoredPoint, error) {
	result, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: qdrant.PtrOf(scoreThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrIndexUnavailable, err)
	}

	points := make([]scoredPoint, 0, len(result))
	for _, p := range result {
		points = append(points, scoredPoint{payload: p.GetPayload(), score: p.GetScore()})
	}
	return points, nil
}

func (s *qdrantStore) Retrieve(ctx context.Context, collection string, id string) (map[string]*qdrant.Value, bool, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: retrieve: %v", ErrIndexUnavailable, err)
	}
	if len(points) == 0 {
		return nil, false, nil
	}
	return points[0].GetPayload(), true, nil
}

func (s *qdrantStore) Upsert(ctx context.Context, collection string, id string, vector []float32, payload map[string]*qdrant.Value) error {
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: payload,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", ErrIndexUnavailable, err)
	}
	return nil
}
