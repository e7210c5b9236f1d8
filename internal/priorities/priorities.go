// Package priorities assigns priority tiers to annotations from
// comment volume, urgency language, and participant count.
package priorities

import (
	"strings"

	"github.com/redlinehq/redline/internal/types"
)

// Urgency keywords that bump an annotation's score regardless of
// comment volume.
var urgentKeywords = []string{
	"urgent", "asap", "critical", "must fix", "broken",
	"immediately", "blocker", "high priority",
}

// Score calculates the priority tier for an annotation.
//
// An explicit reviewer override always wins with no further
// computation. Otherwise the tier comes from an additive score:
//   - comment volume: +3 for >= 5 comments, +2 for >= 3, else +1
//   - urgent language anywhere in the thread: +3
//   - more than two distinct participants: +1
//
// Score >= 6 maps to high, >= 3 to medium, anything lower to low.
// Pure and deterministic: identical input always yields the same tier.
func Score(a *types.Annotation) types.Priority {
	if a.ExplicitPriority != types.PriorityUnset {
		return a.ExplicitPriority
	}

	score := 0

	switch {
	case len(a.Comments) >= 5:
		score += 3
	case len(a.Comments) >= 3:
		score += 2
	default:
		score++
	}

	text := strings.ToLower(a.JoinedCommentText())
	for _, kw := range urgentKeywords {
		if strings.Contains(text, kw) {
			score += 3
			break
		}
	}

	if a.ParticipantCount() > 2 {
		score++
	}

	switch {
	case score >= 6:
		return types.PriorityHigh
	case score >= 3:
		return types.PriorityMedium
	default:
		return types.PriorityLow
	}
}
