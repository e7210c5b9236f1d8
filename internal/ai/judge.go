// Package ai provides an Anthropic-backed similarity judge for the
// deduplication engine. The judge asks the model whether two comment
// threads are near-duplicate feedback and returns a calibrated
// similarity score, wrapped behind the similarity.Oracle boundary so
// pipeline logic never talks to the API directly.
package ai

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/redlinehq/redline/internal/similarity"
)

// Similarity checks are simple enough for the cheap model tier.
// REDLINE_MODEL overrides the default.
const (
	// ModelDefault is the cost-efficient model used for similarity verdicts
	ModelDefault = "claude-3-5-haiku-20241022"
)

// GetModel returns the model to use, checking REDLINE_MODEL first
func GetModel() string {
	if model := os.Getenv("REDLINE_MODEL"); model != "" {
		return model
	}
	return ModelDefault
}

// Judge makes similarity determinations via the Anthropic API
type Judge struct {
	client  *anthropic.Client
	model   string
	retry   RetryConfig
	breaker *CircuitBreaker
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// Compile-time check that Judge implements similarity.Oracle
var _ similarity.Oracle = (*Judge)(nil)

// Config holds judge configuration
type Config struct {
	APIKey string      // Anthropic API key (if empty, reads ANTHROPIC_API_KEY)
	Model  string      // Model to use (default: GetModel())
	Retry  RetryConfig // Retry configuration (defaults if zero)
}

// NewJudge creates a similarity judge
func NewJudge(cfg *Config) (*Judge, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = GetModel()
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	j := &Judge{
		client: &client,
		model:  model,
		retry:  retry,
	}
	if retry.CircuitBreakerEnabled {
		j.breaker = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
	}
	if retry.MaxConcurrentCalls > 0 {
		j.sem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}
	if retry.RequestsPerSecond > 0 {
		j.limiter = rate.NewLimiter(rate.Limit(retry.RequestsPerSecond), 1)
	}

	return j, nil
}

// SimilarityVerdict is the model's judgment of two comment threads
type SimilarityVerdict struct {
	Similarity float64 `json:"similarity"` // 0.0 (unrelated) to 1.0 (same request)
	Reasoning  string  `json:"reasoning"`  // Explanation of the determination
}

// Compare implements similarity.Oracle. API failures are wrapped in
// similarity.ErrOracleUnavailable so the deduplication engine can fail
// open at a single boundary.
func (j *Judge) Compare(ctx context.Context, a, b string) (float64, error) {
	verdict, err := j.CheckNearDuplicate(ctx, a, b)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", similarity.ErrOracleUnavailable, err)
	}
	return verdict.Similarity, nil
}

// CheckNearDuplicate asks the model whether two comment threads are
// asking for the same change.
func (j *Judge) CheckNearDuplicate(ctx context.Context, a, b string) (*SimilarityVerdict, error) {
	prompt := buildSimilarityPrompt(a, b)

	var responseText string
	err := j.retryWithBackoff(ctx, "similarity_check", func(attemptCtx context.Context) error {
		resp, apiErr := j.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(j.model),
			MaxTokens: 500,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		responseText = ""
		for _, block := range resp.Content {
			if block.Type == "text" {
				responseText += block.Text
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("similarity check failed: %w", err)
	}

	verdict, err := parseResponse[SimilarityVerdict](responseText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse similarity verdict: %w (response: %s)", err, truncate(responseText, 200))
	}
	if verdict.Similarity < 0.0 || verdict.Similarity > 1.0 {
		return nil, fmt.Errorf("invalid similarity score: %.2f (must be 0.0-1.0)", verdict.Similarity)
	}

	return &verdict, nil
}

func buildSimilarityPrompt(a, b string) string {
	return fmt.Sprintf(`You are judging whether two pieces of document review feedback are near-duplicates: do they ask for the same change to the same thing?

Feedback A:
%s

Feedback B:
%s

Consider semantic meaning, not wording. "Fix the typo in paragraph 2" and "Please correct the typo in second paragraph" are near-duplicates. Feedback about different parts of the document, or asking for different changes, is not.

Respond with JSON only:
{"similarity": <0.0-1.0>, "reasoning": "<one sentence>"}`, truncate(a, 2000), truncate(b, 2000))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
