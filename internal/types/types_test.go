package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textAnnotation(id string, start int, texts ...string) *Annotation {
	comments := make([]Comment, len(texts))
	for i, text := range texts {
		comments[i] = Comment{
			AuthorID:   "u1",
			AuthorName: "Alice",
			Text:       text,
			CreatedAt:  time.Now(),
		}
	}
	return &Annotation{
		ID:       id,
		Location: Location{Text: &TextSpan{Start: start, End: start + 10}},
		Comments: comments,
	}
}

func TestAnnotationValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Annotation)
		expectError string
	}{
		{
			name:   "valid annotation",
			mutate: func(a *Annotation) {},
		},
		{
			name:        "missing id",
			mutate:      func(a *Annotation) { a.ID = "" },
			expectError: "id is required",
		},
		{
			name:        "no comments",
			mutate:      func(a *Annotation) { a.Comments = nil },
			expectError: "comments cannot be empty",
		},
		{
			name: "both location variants",
			mutate: func(a *Annotation) {
				a.Location.Canvas = &CanvasPoint{X: 1, Y: 2}
			},
			expectError: "both text and canvas",
		},
		{
			name: "neither location variant",
			mutate: func(a *Annotation) {
				a.Location = Location{}
			},
			expectError: "either a text or canvas",
		},
		{
			name: "negative span start",
			mutate: func(a *Annotation) {
				a.Location.Text.Start = -1
			},
			expectError: "cannot be negative",
		},
		{
			name: "span end before start",
			mutate: func(a *Annotation) {
				a.Location.Text.End = 2
			},
			expectError: "cannot precede start",
		},
		{
			name: "comment missing author",
			mutate: func(a *Annotation) {
				a.Comments[0].AuthorID = ""
			},
			expectError: "author_id is required",
		},
		{
			name: "bogus explicit priority",
			mutate: func(a *Annotation) {
				a.ExplicitPriority = Priority("urgent")
			},
			expectError: "invalid explicit priority",
		},
		{
			name: "unset explicit priority is valid",
			mutate: func(a *Annotation) {
				a.ExplicitPriority = PriorityUnset
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := textAnnotation("ann-1", 10, "Fix the typo")
			tt.mutate(a)
			err := a.Validate()
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestJoinedCommentText(t *testing.T) {
	a := textAnnotation("ann-1", 0, "first", "second", "third")
	assert.Equal(t, "first second third", a.JoinedCommentText())
}

func TestParticipantCount(t *testing.T) {
	a := textAnnotation("ann-1", 0, "one", "two")
	a.Comments[1].AuthorID = "u2"
	a.Comments = append(a.Comments, Comment{AuthorID: "u1", AuthorName: "Alice", Text: "again"})
	assert.Equal(t, 2, a.ParticipantCount())
}

func TestLocationKind(t *testing.T) {
	text := Location{Text: &TextSpan{Start: 0, End: 5}}
	canvas := Location{Canvas: &CanvasPoint{X: 10, Y: 20}}
	assert.Equal(t, LocationText, text.Kind())
	assert.Equal(t, LocationCanvas, canvas.Kind())
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Greater(t, Priority("bogus").Rank(), PriorityLow.Rank())
}

func TestChangeKindActionable(t *testing.T) {
	assert.True(t, KindTextEdit.Actionable())
	assert.True(t, KindImageRevision.Actionable())
	assert.False(t, KindApproval.Actionable())
	assert.False(t, KindQuestion.Actionable())
}

func TestChangeRequestValidate(t *testing.T) {
	valid := func() *ChangeRequest {
		return &ChangeRequest{
			ID:                  "cr-1",
			Kind:                KindTextEdit,
			Priority:            PriorityMedium,
			Location:            Location{Text: &TextSpan{Start: 0, End: 5}},
			SuggestedChange:     "Welcome",
			Reasoning:           []string{"Alice: change to Welcome"},
			SourceAnnotationIDs: []string{"ann-1"},
			Status:              StatusPending,
			ClusterKey:          "ann-1",
			ContentFingerprint:  "deadbeefdeadbeef",
			Confidence:          0.9,
			CreatedAt:           time.Now(),
		}
	}

	tests := []struct {
		name        string
		mutate      func(*ChangeRequest)
		expectError string
	}{
		{name: "valid request", mutate: func(r *ChangeRequest) {}},
		{
			name:        "missing id",
			mutate:      func(r *ChangeRequest) { r.ID = "" },
			expectError: "id is required",
		},
		{
			name:        "invalid kind",
			mutate:      func(r *ChangeRequest) { r.Kind = "refactor" },
			expectError: "invalid kind",
		},
		{
			name:        "invalid priority",
			mutate:      func(r *ChangeRequest) { r.Priority = PriorityUnset },
			expectError: "invalid priority",
		},
		{
			name:        "no source annotations",
			mutate:      func(r *ChangeRequest) { r.SourceAnnotationIDs = nil },
			expectError: "source_annotation_ids cannot be empty",
		},
		{
			name:        "invalid status",
			mutate:      func(r *ChangeRequest) { r.Status = "done" },
			expectError: "invalid status",
		},
		{
			name:        "confidence above one",
			mutate:      func(r *ChangeRequest) { r.Confidence = 1.2 },
			expectError: "confidence must be between",
		},
		{
			name:        "negative confidence",
			mutate:      func(r *ChangeRequest) { r.Confidence = -0.1 },
			expectError: "confidence must be between",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			err := r.Validate()
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
