package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// RetryConfig holds retry and protection settings for similarity API calls
type RetryConfig struct {
	MaxRetries        int           // Maximum number of retries (default: 3)
	InitialBackoff    time.Duration // Initial backoff duration (default: 1s)
	MaxBackoff        time.Duration // Maximum backoff duration (default: 30s)
	BackoffMultiplier float64       // Backoff multiplier (default: 2.0)
	Timeout           time.Duration // Per-request timeout (default: 30s)

	// Circuit breaker settings
	CircuitBreakerEnabled bool          // Enable circuit breaker (default: true)
	FailureThreshold      int           // Failures before opening circuit (default: 5)
	SuccessThreshold      int           // Successes in half-open before closing (default: 2)
	OpenTimeout           time.Duration // How long to keep circuit open (default: 30s)

	// Concurrency and rate limits. Similarity checks run in parallel
	// across clusters; these keep a big review from hammering the API.
	MaxConcurrentCalls int     // Maximum concurrent API calls (default: 3, 0 = unlimited)
	RequestsPerSecond  float64 // API call rate limit (default: 5, 0 = unlimited)
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:            3,
		InitialBackoff:        1 * time.Second,
		MaxBackoff:            30 * time.Second,
		BackoffMultiplier:     2.0,
		Timeout:               30 * time.Second,
		CircuitBreakerEnabled: true,
		FailureThreshold:      5,
		SuccessThreshold:      2,
		OpenTimeout:           30 * time.Second,
		MaxConcurrentCalls:    3,
		RequestsPerSecond:     5,
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation, requests pass through
	CircuitOpen                         // Too many failures, block requests (fail fast)
	CircuitHalfOpen                     // Testing recovery, allow limited requests
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker prevents cascading failures when the similarity API
// degrades: after enough consecutive failures it fails fast for a
// cooldown period, then probes for recovery.
type CircuitBreaker struct {
	mu sync.Mutex

	state            CircuitState
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
}

// NewCircuitBreaker creates a circuit breaker with the given thresholds
func NewCircuitBreaker(failureThreshold, successThreshold int, openTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            CircuitClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		openTimeout:      openTimeout,
	}
}

// Allow checks if a request may proceed. Returns ErrCircuitOpen while
// the circuit is open and the cooldown has not elapsed.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return nil
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) > cb.openTimeout {
			cb.setState(CircuitHalfOpen)
			return nil
		}
		return ErrCircuitOpen
	default:
		return ErrCircuitOpen
	}
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failureCount = 0
	case CircuitHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.setState(CircuitClosed)
			cb.failureCount = 0
		}
	}
}

// RecordFailure records a failed request
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = time.Now()

	switch cb.state {
	case CircuitClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.setState(CircuitOpen)
		}
	case CircuitHalfOpen:
		// Any failure while probing reopens the circuit.
		cb.setState(CircuitOpen)
	}
}

// State returns the current state (for tests and monitoring)
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// setState transitions state; must be called with the lock held
func (cb *CircuitBreaker) setState(next CircuitState) {
	if cb.state == next {
		return
	}
	log.Printf("[AI] circuit breaker %s -> %s (failures=%d)", cb.state, next, cb.failureCount)
	cb.state = next
	cb.successCount = 0
}

// retryWithBackoff executes fn with exponential backoff, honoring the
// circuit breaker, concurrency semaphore, and rate limiter.
func (j *Judge) retryWithBackoff(ctx context.Context, operation string, fn func(context.Context) error) error {
	if j.sem != nil {
		if err := j.sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("failed to acquire concurrency slot for %s: %w", operation, err)
		}
		defer j.sem.Release(1)
	}

	var lastErr error
	backoff := j.retry.InitialBackoff

	for attempt := 0; attempt <= j.retry.MaxRetries; attempt++ {
		if j.breaker != nil {
			if err := j.breaker.Allow(); err != nil {
				return fmt.Errorf("%s blocked: %w", operation, err)
			}
		}
		if j.limiter != nil {
			if err := j.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("%s rate limit wait failed: %w", operation, err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, j.retry.Timeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			if j.breaker != nil {
				j.breaker.RecordSuccess()
			}
			if attempt > 0 {
				log.Printf("[AI] %s succeeded after %d retries", operation, attempt)
			}
			return nil
		}
		lastErr = err

		if j.breaker != nil && isRetriable(err) {
			j.breaker.RecordFailure()
		}
		if !isRetriable(err) || attempt == j.retry.MaxRetries {
			break
		}

		log.Printf("[AI] %s attempt %d failed: %v (retrying in %v)", operation, attempt+1, err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * j.retry.BackoffMultiplier)
		if backoff > j.retry.MaxBackoff {
			backoff = j.retry.MaxBackoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, j.retry.MaxRetries+1, lastErr)
}

// isRetriable reports whether an error is transient. Context
// cancellation and auth failures are not worth retrying.
func isRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "authentication") || strings.Contains(msg, "invalid api key") ||
		strings.Contains(msg, "permission") {
		return false
	}
	return true
}
