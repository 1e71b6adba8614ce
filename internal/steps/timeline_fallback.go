package steps

import (
	"context"
	"log"
	"sort"

	"github.com/google/go-github/v60/github"

	"github.com/issuegate/issuegate/internal/core/pipeline"
)

// timelineAPI is the slice of the GitHub client this step consumes.
type timelineAPI interface {
	ListIssueTimeline(ctx context.Context, org, repo string, number int) ([]*github.Timeline, error)
}

// TimelineFallback reconstructs the current issue-link state from timeline
// events. It runs only when the closing-refs query itself failed.
type TimelineFallback struct {
	api timelineAPI
}

// NewTimelineFallback creates a new timeline fallback step.
func NewTimelineFallback(deps *pipeline.Dependencies) *TimelineFallback {
	s := &TimelineFallback{}
	if deps.GitHub != nil {
		s.api = deps.GitHub
	}
	return s
}

// Name returns the step name.
func (s *TimelineFallback) Name() string {
	return "timeline_fallback"
}

// Run folds connected/disconnected timeline events into a per-issue connection
// state and marks the PR linked if any issue is currently connected. This path
// updates only the linked flag, not the issue-number set.
func (s *TimelineFallback) Run(ctx *pipeline.Context) error {
	if _, failed := ctx.Metadata[metaClosingRefsError]; !failed {
		log.Printf("[timeline_fallback] Closing-refs query succeeded, fallback not needed")
		return nil
	}

	if s.api == nil {
		log.Printf("[timeline_fallback] No GitHub client available, giving up")
		return nil
	}

	ctx.Result.FallbackUsed = true

	events, err := s.api.ListIssueTimeline(ctx.Ctx, ctx.PR.Org, ctx.PR.Repo, ctx.PR.Number)
	if err != nil {
		// Terminal fallback: log and proceed with whatever the text scanner found.
		log.Printf("[timeline_fallback] Warning: Failed to fetch timeline for PR #%d: %v", ctx.PR.Number, err)
		ctx.RecordError(err)
		return nil
	}

	state := FoldConnectionState(events)

	connected := 0
	for _, isConnected := range state {
		if isConnected {
			connected++
		}
	}

	if connected > 0 {
		ctx.Result.Linked = true
	}

	log.Printf("[timeline_fallback] PR #%d: %d issue(s) currently connected (from %d timeline events)",
		ctx.PR.Number, connected, len(events))
	return nil
}

// FoldConnectionState derives the current connection state from timeline events.
// Events are filtered to connected/disconnected, stably sorted ascending by
// creation time, and folded so the last event per source issue id wins.
// Events without a source issue id are ignored.
func FoldConnectionState(events []*github.Timeline) map[int64]bool {
	filtered := make([]*github.Timeline, 0, len(events))
	for _, ev := range events {
		switch ev.GetEvent() {
		case "connected", "disconnected":
			filtered = append(filtered, ev)
		}
	}

	// Stable sort: events with equal timestamps keep their original order.
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].GetCreatedAt().Time.Before(filtered[j].GetCreatedAt().Time)
	})

	state := make(map[int64]bool)
	for _, ev := range filtered {
		source := ev.GetSource()
		if source == nil || source.GetIssue() == nil || source.GetIssue().ID == nil {
			continue
		}
		state[source.GetIssue().GetID()] = ev.GetEvent() == "connected"
	}

	return state
}
