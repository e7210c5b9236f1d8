// Package synthesize turns a (possibly merged) annotation thread into
// a canonical ChangeRequest: a concrete suggested edit, a confidence
// score, and an audit trail of who asked for what.
package synthesize

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redlinehq/redline/internal/classify"
	"github.com/redlinehq/redline/internal/priorities"
	"github.com/redlinehq/redline/internal/types"
)

// Explicit-suggestion phrases, in extraction priority order. Each
// captures the proposed replacement text. A couple of filler words are
// tolerated between the verb and its preposition so that "change this
// to X" extracts X just like "change to X" does.
var suggestionRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)change\b(?:\s+\S+){0,2}?\s+to\s+(.+)`),
	regexp.MustCompile(`(?i)should\s+be\s+(.+)`),
	regexp.MustCompile(`(?i)replace\b(?:\s+\S+){0,2}?\s+with\s+(.+)`),
}

// Action verbs that raise confidence that the thread wants a concrete
// change. Deliberately narrower than the classifier's action list.
var confidenceVerbRegex = regexp.MustCompile(`\b(change|fix|replace|remove|add)\b`)

// Request assembles the canonical change request for an annotation.
// Kind and priority are computed from the same annotation, so a merged
// annotation is classified and scored over its full combined thread.
func Request(a *types.Annotation, sourceIDs []string) *types.ChangeRequest {
	suggestion, explicit := extractSuggestion(a)

	reasoning := make([]string, len(a.Comments))
	for i, c := range a.Comments {
		reasoning[i] = fmt.Sprintf("%s: %s", c.AuthorName, c.Text)
	}

	var excerpt string
	if a.Location.Text != nil {
		excerpt = a.Location.Text.Excerpt
	}

	return &types.ChangeRequest{
		ID:                  uuid.NewString(),
		Kind:                classify.Classify(a),
		Priority:            priorities.Score(a),
		Location:            a.Location,
		OriginalExcerpt:     excerpt,
		SuggestedChange:     suggestion,
		Reasoning:           reasoning,
		SourceAnnotationIDs: sourceIDs,
		Status:              types.StatusPending,
		ClusterKey:          a.ID,
		ContentFingerprint:  Fingerprint(suggestion),
		Confidence:          confidence(a, explicit),
		CreatedAt:           time.Now().UTC(),
	}
}

// extractSuggestion scans comments in thread order for the first
// explicit-suggestion phrase and returns the text following it. When
// no comment contains one, the whole thread is joined as the
// suggestion and explicit is false.
//
// The patterns match case-insensitively against the original text, so
// the capture keeps the author's casing and multi-byte characters
// earlier in the comment cannot skew the capture offsets.
func extractSuggestion(a *types.Annotation) (suggestion string, explicit bool) {
	for _, c := range a.Comments {
		for _, re := range suggestionRegexes {
			match := re.FindStringSubmatch(c.Text)
			if match == nil {
				continue
			}
			return strings.TrimSpace(match[1]), true
		}
	}
	return a.JoinedCommentText(), false
}

// confidence starts at 0.5 and rises with signals that the thread
// describes a concrete, actionable edit. Clamped to 1.0.
func confidence(a *types.Annotation, explicit bool) float64 {
	c := 0.5
	if confidenceVerbRegex.MatchString(strings.ToLower(a.JoinedCommentText())) {
		c += 0.2
	}
	if explicit {
		c += 0.2
	}
	if len(a.Comments) >= 3 {
		c += 0.1
	}
	if c > 1.0 {
		c = 1.0
	}
	return c
}

// Fingerprint produces a stable 16-hex-character digest of a suggested
// change, normalized to lower case and trimmed. Used only for
// cross-run duplicate tracking, so a non-cryptographic hash is fine.
func Fingerprint(suggestedChange string) string {
	h := fnv.New64a()
	h.Write([]byte(strings.TrimSpace(strings.ToLower(suggestedChange))))
	return fmt.Sprintf("%016x", h.Sum64())
}
