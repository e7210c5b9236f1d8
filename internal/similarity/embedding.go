package similarity

import (
	"context"
	"fmt"
	"math"

	"google.golang.org/genai"
)

// DefaultEmbeddingModel is the Gemini embedding model used when none
// is configured.
const DefaultEmbeddingModel = "gemini-embedding-001"

// embeddingClient is the slice of the genai API the oracle needs,
// extracted so tests can stub the service.
type embeddingClient interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, req *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// EmbeddingOracle scores similarity as the cosine between Gemini
// embedding vectors. One API call embeds both texts.
type EmbeddingOracle struct {
	client embeddingClient
	model  string
}

// Compile-time check that EmbeddingOracle implements Oracle
var _ Oracle = (*EmbeddingOracle)(nil)

// NewEmbeddingOracle creates an embedding-backed similarity oracle.
// apiKey is required; model falls back to DefaultEmbeddingModel.
func NewEmbeddingOracle(ctx context.Context, apiKey, model string) (*EmbeddingOracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &EmbeddingOracle{client: client.Models, model: model}, nil
}

// Compare implements Oracle. Errors from the embedding service come
// back wrapped in ErrOracleUnavailable so callers can fail open.
func (o *EmbeddingOracle) Compare(ctx context.Context, a, b string) (float64, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(a, genai.RoleUser),
		genai.NewContentFromText(b, genai.RoleUser),
	}

	result, err := o.client.EmbedContent(ctx, o.model, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return 0, fmt.Errorf("%w: embed failed: %v", ErrOracleUnavailable, err)
	}
	if len(result.Embeddings) < 2 {
		return 0, fmt.Errorf("%w: expected 2 embeddings, got %d", ErrOracleUnavailable, len(result.Embeddings))
	}

	sim, err := cosineSimilarity(result.Embeddings[0].Values, result.Embeddings[1].Values)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	return sim, nil
}

// cosineSimilarity computes the cosine of the angle between two
// vectors, clamped into [0,1]. Raw cosine can be slightly negative for
// unrelated embedding vectors; the oracle contract is [0,1].
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d != %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("empty embedding vectors")
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0, fmt.Errorf("zero magnitude embedding vector")
	}

	sim := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return sim, nil
}
