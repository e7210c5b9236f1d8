package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{
			name:  "clean JSON",
			input: `{"similarity": 0.9, "reasoning": "same typo"}`,
			want:  0.9,
		},
		{
			name:  "code fenced",
			input: "```json\n{\"similarity\": 0.85, \"reasoning\": \"close\"}\n```",
			want:  0.85,
		},
		{
			name:  "code fence without language tag",
			input: "```\n{\"similarity\": 0.5, \"reasoning\": \"maybe\"}\n```",
			want:  0.5,
		},
		{
			name:  "trailing comma",
			input: `{"similarity": 0.7, "reasoning": "close",}`,
			want:  0.7,
		},
		{
			name:  "surrounded by prose",
			input: "Here is my analysis:\n{\"similarity\": 0.3, \"reasoning\": \"different\"}\nHope that helps!",
			want:  0.3,
		},
		{
			name:    "empty response",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "no JSON at all",
			input:   "I cannot determine the similarity.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := parseResponse[SimilarityVerdict](tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, verdict.Similarity, 1e-9)
		})
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, 2, time.Minute)

	require.NoError(t, cb.Allow())
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.True(t, errors.Is(cb.Allow(), ErrCircuitOpen))
}

func TestCircuitBreakerRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	cb.RecordFailure()
	require.Equal(t, CircuitOpen, cb.State())

	// After the cooldown the breaker probes in half-open state.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, CircuitHalfOpen, cb.State())
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)
	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(2, 1, time.Minute)
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestIsRetriable(t *testing.T) {
	assert.False(t, isRetriable(nil))
	assert.False(t, isRetriable(context.Canceled))
	assert.False(t, isRetriable(context.DeadlineExceeded))
	assert.False(t, isRetriable(errors.New("authentication failed")))
	assert.False(t, isRetriable(errors.New("invalid API key")))
	assert.True(t, isRetriable(errors.New("overloaded_error: try again")))
	assert.True(t, isRetriable(errors.New("connection reset by peer")))
}

func TestRetryWithBackoffGivesUp(t *testing.T) {
	j := &Judge{retry: RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1.0,
		Timeout:           time.Second,
	}}

	calls := 0
	err := j.retryWithBackoff(context.Background(), "test_op", func(ctx context.Context) error {
		calls++
		return errors.New("transient failure")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetryWithBackoffStopsOnNonRetriable(t *testing.T) {
	j := &Judge{retry: RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1.0,
		Timeout:           time.Second,
	}}

	calls := 0
	err := j.retryWithBackoff(context.Background(), "test_op", func(ctx context.Context) error {
		calls++
		return errors.New("authentication failed")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoffSucceedsAfterRetry(t *testing.T) {
	j := &Judge{retry: RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1.0,
		Timeout:           time.Second,
	}}

	calls := 0
	err := j.retryWithBackoff(context.Background(), "test_op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient failure")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestNewJudgeRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewJudge(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestGetModelEnvOverride(t *testing.T) {
	t.Setenv("REDLINE_MODEL", "")
	assert.Equal(t, ModelDefault, GetModel())
	t.Setenv("REDLINE_MODEL", "claude-sonnet-4-5-20250929")
	assert.Equal(t, "claude-sonnet-4-5-20250929", GetModel())
}
