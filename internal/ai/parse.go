package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Pre-compiled patterns for cleaning up model output. LLMs wrap JSON
// in code fences, leave trailing commas, and pad responses with prose;
// all three show up often enough to handle here instead of retrying.
var (
	codeFenceRegex     = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?([\\s\\S]*?)\\n?```")
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
	jsonObjectRegex    = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
)

// parseResponse parses JSON from a model response, tolerating common
// formatting quirks. Strategies, in order: direct parse, code-fence
// extraction, trailing-comma cleanup, then bare-object extraction from
// mixed prose.
func parseResponse[T any](text string) (T, error) {
	var result T

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return result, fmt.Errorf("empty response")
	}

	if err := json.Unmarshal([]byte(trimmed), &result); err == nil {
		return result, nil
	}

	if m := codeFenceRegex.FindStringSubmatch(trimmed); m != nil {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &result); err == nil {
			return result, nil
		}
		trimmed = strings.TrimSpace(m[1])
	}

	cleaned := trailingCommaRegex.ReplaceAllString(trimmed, "$1")
	if err := json.Unmarshal([]byte(cleaned), &result); err == nil {
		return result, nil
	}

	if m := jsonObjectRegex.FindString(cleaned); m != "" {
		if err := json.Unmarshal([]byte(m), &result); err == nil {
			return result, nil
		}
	}

	return result, fmt.Errorf("no parseable JSON found")
}
