package types

import (
	"fmt"
	"strings"
	"time"
)

// Annotation represents a single comment thread anchored to a location
// in a document under review.
type Annotation struct {
	ID               string    `json:"id"`
	Location         Location  `json:"location"`
	Comments         []Comment `json:"comments"`
	ExplicitPriority Priority  `json:"explicit_priority,omitempty"` // optional reviewer override
	Resolved         bool      `json:"resolved"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Validate checks if the annotation has valid field values.
// An annotation with no comments or an ambiguous location is malformed
// and must be excluded before entering the pipeline.
func (a *Annotation) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("id is required")
	}
	if err := a.Location.Validate(); err != nil {
		return fmt.Errorf("invalid location: %w", err)
	}
	if len(a.Comments) == 0 {
		return fmt.Errorf("comments cannot be empty")
	}
	for i, c := range a.Comments {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid comment at index %d: %w", i, err)
		}
	}
	if a.ExplicitPriority != PriorityUnset && !a.ExplicitPriority.IsValid() {
		return fmt.Errorf("invalid explicit priority: %s", a.ExplicitPriority)
	}
	return nil
}

// JoinedCommentText returns all comment texts space-joined in thread order.
// This is the representative string used for classification, urgency
// detection, and semantic similarity comparison.
func (a *Annotation) JoinedCommentText() string {
	parts := make([]string, len(a.Comments))
	for i, c := range a.Comments {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}

// ParticipantCount returns the number of distinct comment authors.
func (a *Annotation) ParticipantCount() int {
	seen := make(map[string]struct{}, len(a.Comments))
	for _, c := range a.Comments {
		seen[c.AuthorID] = struct{}{}
	}
	return len(seen)
}

// Comment is a single message within an annotation thread.
// Slice order within Annotation.Comments is chronological.
type Comment struct {
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks if the comment has valid field values
func (c *Comment) Validate() error {
	if c.AuthorID == "" {
		return fmt.Errorf("author_id is required")
	}
	if c.Text == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}

// LocationKind identifies which variant of the Location union is populated
type LocationKind string

const (
	// LocationText anchors to a linear offset range in a text document
	LocationText LocationKind = "text_span"
	// LocationCanvas anchors to a 2D point in a diagram/canvas document
	LocationCanvas LocationKind = "canvas_point"
)

// Location is a tagged union: exactly one of Text or Canvas is set.
type Location struct {
	Text   *TextSpan    `json:"text,omitempty"`
	Canvas *CanvasPoint `json:"canvas,omitempty"`
}

// Kind returns which variant is populated. Only meaningful on a
// validated Location.
func (l Location) Kind() LocationKind {
	if l.Canvas != nil {
		return LocationCanvas
	}
	return LocationText
}

// Validate checks the exactly-one-variant invariant
func (l Location) Validate() error {
	if l.Text != nil && l.Canvas != nil {
		return fmt.Errorf("location cannot have both text and canvas variants")
	}
	if l.Text == nil && l.Canvas == nil {
		return fmt.Errorf("location must have either a text or canvas variant")
	}
	if l.Text != nil {
		if l.Text.Start < 0 {
			return fmt.Errorf("text span start cannot be negative (got %d)", l.Text.Start)
		}
		if l.Text.End < l.Text.Start {
			return fmt.Errorf("text span end (%d) cannot precede start (%d)", l.Text.End, l.Text.Start)
		}
	}
	return nil
}

// TextSpan is a linear offset range in a text document
type TextSpan struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Excerpt string `json:"excerpt,omitempty"`
}

// CanvasPoint is a 2D point in a diagram or canvas document.
// NodeID/EdgeID optionally pin the point to a diagram element.
type CanvasPoint struct {
	NodeID string  `json:"node_id,omitempty"`
	EdgeID string  `json:"edge_id,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Priority represents the urgency tier of an annotation or change request
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	// PriorityUnset means no explicit reviewer override was given
	PriorityUnset Priority = ""
)

// IsValid checks if the priority value is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank maps priorities to sortable integers (high sorts first).
// Invalid priorities rank last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}
