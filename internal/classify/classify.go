// Package classify labels annotations with the kind of change request
// their comment threads are asking for. Classification is a pure
// keyword heuristic; no AI call is involved, so results are stable and
// free to compute for every annotation in a batch.
package classify

import (
	"regexp"
	"strings"

	"github.com/redlinehq/redline/internal/types"
)

// Keyword patterns, checked in fixed priority order: image revision,
// then approval, then question, then text edit. First match wins and
// anything unmatched falls back to question (non-actionable).
var (
	imageRegex    = regexp.MustCompile(`\b(images?|photos?|pictures?|visuals?|graphics?|illustrations?)\b`)
	approvalRegex = regexp.MustCompile(`\b(looks good|approved|lgtm|ship it|ready to go)\b`)
	questionRegex = regexp.MustCompile(`\b(why|how|what if|should we|can we)\b`)
	actionRegex   = regexp.MustCompile(`\b(change|fix|update|revise|rewrite|edit|remove|add|replace|modify|correct|adjust|should be|make it|instead of)\b`)
)

// Classify determines the request kind for an annotation from its full
// comment thread text.
func Classify(a *types.Annotation) types.ChangeKind {
	text := strings.ToLower(a.JoinedCommentText())

	switch {
	case imageRegex.MatchString(text):
		return types.KindImageRevision
	case approvalRegex.MatchString(text):
		return types.KindApproval
	case strings.Contains(text, "?") || questionRegex.MatchString(text):
		return types.KindQuestion
	case actionRegex.MatchString(text):
		return types.KindTextEdit
	default:
		return types.KindQuestion
	}
}
