// Package similarity defines the text-similarity oracle boundary used
// by the deduplication engine, plus a deterministic lexical fallback
// and an embedding-backed implementation.
//
// The pipeline treats similarity as an opaque [0,1] score from an
// injected capability so the deduplication logic stays deterministic
// and testable with a stub oracle.
package similarity

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrOracleUnavailable indicates the oracle's backing service cannot
// be reached. Callers are expected to fail open on it.
var ErrOracleUnavailable = errors.New("similarity oracle unavailable")

// Oracle scores the semantic similarity of two texts in [0,1].
type Oracle interface {
	// Compare returns a similarity score between 0.0 (unrelated) and
	// 1.0 (same meaning). Implementations backed by remote services
	// should honor ctx cancellation and deadlines.
	Compare(ctx context.Context, a, b string) (float64, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, a, b string) (float64, error)

// Compare implements Oracle
func (f Func) Compare(ctx context.Context, a, b string) (float64, error) {
	return f(ctx, a, b)
}

var tokenRegex = regexp.MustCompile(`[a-z0-9']+`)

// Lexical is a pure, offline oracle using token-overlap (Dice
// coefficient) over lower-cased word sets. It is the default when no
// AI backend is configured, and the stub of choice in tests. It
// underestimates paraphrase similarity compared to an embedding
// oracle, which is the conservative direction for deduplication.
type Lexical struct{}

// Compare implements Oracle. Never returns an error.
func (Lexical) Compare(_ context.Context, a, b string) (float64, error) {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1.0, nil
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0, nil
	}
	overlap := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			overlap++
		}
	}
	return 2.0 * float64(overlap) / float64(len(ta)+len(tb)), nil
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenRegex.FindAllString(strings.ToLower(text), -1) {
		set[tok] = struct{}{}
	}
	return set
}
