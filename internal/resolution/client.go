package resolution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultTimeout = 30 * time.Second

// Config fixes the parameters named in spec §4.3: collection name,
// embedding dimension, and the cosine-score floor a query match must
// clear to be returned at all.
type Config struct {
	CollectionName string
	Dim            uint64
	ScoreThreshold float32
}

// DefaultConfig matches the original source's hard-coded constants:
// collection "cherry_pick_resolutions", dim 1536 (text-embedding-3-small),
// score threshold 0.85.
func DefaultConfig() Config {
	return Config{
		CollectionName: "cherry_pick_resolutions",
		Dim:            1536,
		ScoreThreshold: 0.85,
	}
}

// Client is the Resolution Index Client: it embeds conflict signatures,
// queries the ANN store, and upserts learned patterns. It is a dumb
// store with respect to learning policy — callers supply the intended
// counters; Upsert never increments them itself (spec §4.3 Idempotence).
type Client struct {
	store    vectorStore
	embedder Embedder
	cfg      Config
}

// NewClient wires a vector store and an embedder behind the configured
// collection parameters.
func NewClient(store vectorStore, embedder Embedder, cfg Config) *Client {
	return &Client{store: store, embedder: embedder, cfg: cfg}
}

// NewDefaultClient is the production wiring: a live Qdrant store and an
// OpenAI embedder, both reached over the network with a bounded
// deadline per call. embeddingModel selects the OpenAI model; an empty
// string defaults to text-embedding-3-small.
func NewDefaultClient(qdrantHost string, qdrantPort int, qdrantAPIKey string, qdrantTLS bool, openAIAPIKey, embeddingModel string, cfg Config) (*Client, error) {
	store, err := NewQdrantStore(qdrantHost, qdrantPort, qdrantAPIKey, qdrantTLS)
	if err != nil {
		return nil, err
	}
	embedder := NewOpenAIEmbedder(openAIAPIKey, openai.EmbeddingModel(embeddingModel))
	return NewClient(store, embedder, cfg), nil
}

// EnsureCollection creates the configured collection if it does not
// already exist, with the configured dimension and cosine distance.
func (c *Client) EnsureCollection(ctx context.Context) error {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	exists, err := c.store.CollectionExists(ctx, c.cfg.CollectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return c.store.CreateCollection(ctx, c.cfg.CollectionName, c.cfg.Dim)
}

// Embed generates the vector for text via the configured embedder.
// Any embedder error is returned wrapped in ErrEmbeddingFailed.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	vector, err := c.embedder.Embed(ctx, text)
	if err != nil && !errors.Is(err, ErrEmbeddingFailed) {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vector, err
}

// Query embeds signature and searches top-1 for a match clearing the
// configured score threshold. It returns (Pattern{}, false, nil) when
// no point clears the threshold, never a nil/ok ambiguity.
func (c *Client) Query(ctx context.Context, signature string) (Pattern, bool, error) {
	vector, err := c.Embed(ctx, signature)
	if err != nil {
		return Pattern{}, false, err
	}

	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	points, err := c.store.Query(ctx, c.cfg.CollectionName, vector, 1, c.cfg.ScoreThreshold)
	if err != nil {
		return Pattern{}, false, err
	}
	if len(points) == 0 {
		return Pattern{}, false, nil
	}

	pattern, err := decodePayload(points[0].payload)
	if err != nil {
		return Pattern{}, false, err
	}
	slog.Info("resolution.query.match", "pattern_id", pattern.ID, "score", points[0].score)
	return pattern, true, nil
}

// GetByID retrieves a pattern directly by its identifier, bypassing
// similarity search. Used for rollback accounting where the caller
// already knows which pattern to penalize.
func (c *Client) GetByID(ctx context.Context, id string) (Pattern, bool, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	payload, found, err := c.store.Retrieve(ctx, c.cfg.CollectionName, id)
	if err != nil {
		return Pattern{}, false, err
	}
	if !found {
		return Pattern{}, false, nil
	}

	pattern, err := decodePayload(payload)
	if err != nil {
		return Pattern{}, false, err
	}
	return pattern, true, nil
}

// Upsert writes pattern's embedding and full payload, keyed by
// pattern.ID, waiting for durable acknowledgment before returning.
func (c *Client) Upsert(ctx context.Context, pattern Pattern) error {
	vector, err := c.Embed(ctx, pattern.ConflictSignature)
	if err != nil {
		return err
	}

	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	return c.store.Upsert(ctx, c.cfg.CollectionName, pattern.ID, vector, encodePayload(pattern))
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, defaultTimeout)
}
