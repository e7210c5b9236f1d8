package types

import (
	"fmt"
	"time"
)

// ChangeKind categorizes what kind of action a change request asks for
type ChangeKind string

const (
	// KindTextEdit is a concrete edit to document text
	KindTextEdit ChangeKind = "text_edit"
	// KindImageRevision is a revision to an image or other visual asset
	KindImageRevision ChangeKind = "image_revision"
	// KindApproval is sign-off language with no action required
	KindApproval ChangeKind = "approval"
	// KindQuestion is a question or unclassifiable feedback (non-actionable)
	KindQuestion ChangeKind = "question"
)

// IsValid checks if the change kind value is valid
func (k ChangeKind) IsValid() bool {
	switch k {
	case KindTextEdit, KindImageRevision, KindApproval, KindQuestion:
		return true
	}
	return false
}

// Actionable reports whether this kind of request requires work.
// Approvals and questions are dropped by the pipeline before synthesis.
func (k ChangeKind) Actionable() bool {
	return k == KindTextEdit || k == KindImageRevision
}

// RequestStatus represents the lifecycle state of a change request.
// The pipeline always emits requests as pending; downstream consumers
// own all later transitions.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
	StatusApplied  RequestStatus = "applied"
)

// IsValid checks if the request status value is valid
func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusApplied:
		return true
	}
	return false
}

// ChangeRequest is the canonical output record of the pipeline: one
// prioritized, deduplicated, actionable piece of feedback. It is never
// mutated by the pipeline after creation.
type ChangeRequest struct {
	ID                  string        `json:"id"`
	Kind                ChangeKind    `json:"kind"`
	Priority            Priority      `json:"priority"`
	Location            Location      `json:"location"`
	OriginalExcerpt     string        `json:"original_excerpt,omitempty"`
	SuggestedChange     string        `json:"suggested_change"`
	Reasoning           []string      `json:"reasoning"`
	SourceAnnotationIDs []string      `json:"source_annotation_ids"`
	Status              RequestStatus `json:"status"`
	ClusterKey          string        `json:"cluster_key"`
	ContentFingerprint  string        `json:"content_fingerprint"`
	Confidence          float64       `json:"confidence"`
	CreatedAt           time.Time     `json:"created_at"`
}

// RequestFilter narrows a change request listing. Nil pointer fields
// mean "any value".
type RequestFilter struct {
	Status   *RequestStatus
	Priority *Priority
	Kind     *ChangeKind
	Limit    int
}

// Validate checks if the change request has valid field values
func (r *ChangeRequest) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("invalid kind: %s", r.Kind)
	}
	if !r.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", r.Priority)
	}
	if err := r.Location.Validate(); err != nil {
		return fmt.Errorf("invalid location: %w", err)
	}
	if len(r.SourceAnnotationIDs) == 0 {
		return fmt.Errorf("source_annotation_ids cannot be empty")
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", r.Status)
	}
	if r.Confidence < 0.0 || r.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0 (got %.2f)", r.Confidence)
	}
	return nil
}
