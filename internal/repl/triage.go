package repl

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/redlinehq/redline/internal/types"
)

// priorityColor picks a sprint function for a priority tier
func priorityColor(p types.Priority) func(a ...interface{}) string {
	switch p {
	case types.PriorityHigh:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case types.PriorityMedium:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgGreen).SprintFunc()
	}
}

// cmdList lists change requests, optionally filtered by status
func (r *REPL) cmdList(args []string) error {
	filter := types.RequestFilter{Limit: 50}
	if len(args) > 0 {
		status := types.RequestStatus(args[0])
		if !status.IsValid() {
			return fmt.Errorf("invalid status %q (want pending, accepted, rejected, or applied)", args[0])
		}
		filter.Status = &status
	}

	requests, err := r.store.ListRequests(r.ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list requests: %w", err)
	}

	if len(requests) == 0 {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("\n%s No change requests found.\n\n", yellow("ℹ"))
		return nil
	}

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("\n%s\n", cyan("Change Requests"))
	fmt.Println()

	for i, req := range requests {
		fmt.Printf("%2d. [%s] %s %s (%s, %s)\n",
			i+1,
			priorityColor(req.Priority)(req.Priority),
			green(shortID(req.ID)),
			truncate(req.SuggestedChange, 60),
			req.Kind,
			req.Status,
		)
	}
	fmt.Println()

	return nil
}

// cmdShow shows one change request in full, with its audit trail
func (r *REPL) cmdShow(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: show <id>")
	}

	req, err := r.findRequest(args[0])
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s %s\n", cyan("Request"), req.ID)
	fmt.Println()
	fmt.Printf("  Kind:        %s\n", req.Kind)
	fmt.Printf("  Priority:    %s\n", priorityColor(req.Priority)(req.Priority))
	fmt.Printf("  Status:      %s\n", req.Status)
	fmt.Printf("  Confidence:  %.2f\n", req.Confidence)
	fmt.Printf("  Location:    %s\n", formatLocation(req.Location))
	if req.OriginalExcerpt != "" {
		fmt.Printf("  Excerpt:     %q\n", req.OriginalExcerpt)
	}
	fmt.Printf("  Suggested:   %s\n", req.SuggestedChange)
	fmt.Printf("  Sources:     %v\n", req.SourceAnnotationIDs)
	fmt.Printf("  Fingerprint: %s\n", req.ContentFingerprint)

	if len(req.Reasoning) > 0 {
		fmt.Println()
		fmt.Println("  Reasoning:")
		for _, line := range req.Reasoning {
			fmt.Printf("    %s %s\n", gray("·"), line)
		}
	}

	// Earlier runs that produced the same suggestion.
	dupes, err := r.store.FindByFingerprint(r.ctx, req.ContentFingerprint)
	if err == nil && len(dupes) > 1 {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Println()
		fmt.Printf("  %s Seen %d times across runs\n", yellow("⚠"), len(dupes))
	}

	events, err := r.store.GetEvents(r.ctx, req.ID, 10)
	if err == nil && len(events) > 0 {
		fmt.Println()
		fmt.Println("  History:")
		for _, e := range events {
			fmt.Printf("    %s %s by %s at %s\n",
				gray("·"), e.EventType, e.Actor, e.CreatedAt.Format("2006-01-02 15:04"))
		}
	}
	fmt.Println()

	return nil
}

// cmdAccept accepts a change request
func (r *REPL) cmdAccept(args []string) error {
	return r.transition(args, "accept", types.StatusAccepted)
}

// cmdReject rejects a change request
func (r *REPL) cmdReject(args []string) error {
	return r.transition(args, "reject", types.StatusRejected)
}

func (r *REPL) transition(args []string, verb string, status types.RequestStatus) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s <id>", verb)
	}

	req, err := r.findRequest(args[0])
	if err != nil {
		return err
	}

	if err := r.store.UpdateStatus(r.ctx, req.ID, status, r.actor); err != nil {
		return fmt.Errorf("failed to %s request: %w", verb, err)
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s %s %sed\n", green("✓"), shortID(req.ID), verb)
	return nil
}

// cmdStats summarizes stored requests
func (r *REPL) cmdStats(args []string) error {
	stats, err := r.store.GetStatistics(r.ctx)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n", cyan("Statistics"))
	fmt.Println()
	fmt.Printf("  Total: %d\n", stats.Total)
	fmt.Println()
	fmt.Println("  By status:")
	for _, status := range []types.RequestStatus{types.StatusPending, types.StatusAccepted, types.StatusRejected, types.StatusApplied} {
		if n := stats.ByStatus[string(status)]; n > 0 {
			fmt.Printf("    %-10s %d\n", status, n)
		}
	}
	fmt.Println()
	fmt.Println("  By priority:")
	for _, p := range []types.Priority{types.PriorityHigh, types.PriorityMedium, types.PriorityLow} {
		if n := stats.ByPriority[string(p)]; n > 0 {
			fmt.Printf("    %-10s %d\n", priorityColor(p)(p), n)
		}
	}
	fmt.Println()

	return nil
}

// findRequest resolves a possibly-shortened request ID. Exact match is
// tried first, then unique prefix match over the stored requests.
func (r *REPL) findRequest(id string) (*types.ChangeRequest, error) {
	req, err := r.store.GetRequest(r.ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if req != nil {
		return req, nil
	}

	all, err := r.store.ListRequests(r.ctx, types.RequestFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	var matches []*types.ChangeRequest
	for _, candidate := range all {
		if len(id) > 0 && len(candidate.ID) >= len(id) && candidate.ID[:len(id)] == id {
			matches = append(matches, candidate)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("request %s not found", id)
	default:
		return nil, fmt.Errorf("request prefix %s is ambiguous (%d matches)", id, len(matches))
	}
}

// shortID trims a UUID to its first group for display
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func formatLocation(loc types.Location) string {
	switch {
	case loc.Text != nil:
		return fmt.Sprintf("text %d-%d", loc.Text.Start, loc.Text.End)
	case loc.Canvas != nil:
		where := ""
		if loc.Canvas.NodeID != "" {
			where = " node " + loc.Canvas.NodeID
		} else if loc.Canvas.EdgeID != "" {
			where = " edge " + loc.Canvas.EdgeID
		}
		return fmt.Sprintf("canvas (%.0f, %.0f)%s", loc.Canvas.X, loc.Canvas.Y, where)
	default:
		return "unknown"
	}
}
