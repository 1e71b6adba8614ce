package steps

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/go-github/v60/github"

	"github.com/issuegate/issuegate/internal/core/pipeline"
)

// FailureMessage is the check's user-facing failure text. It is the same
// regardless of why no linked issue was found.
const FailureMessage = `❌ This pull request must be linked to an issue.

Please link this PR to an issue by:
1. Adding "Fixes #<issue-number>" or "Closes #<issue-number>" to the PR description
2. Using GitHub's UI to link the PR to an existing issue
3. Referencing the issue number with #<issue-number> in the PR title or description

Example: "Fixes #123" or "Closes #456"`

// commentMarker identifies the gate's own comment so re-runs on an unchanged
// PR do not stack duplicates.
const commentMarker = "<!-- issuegate:link-check -->"

// failureComment is the explainer comment posted on the PR when the check fails.
const failureComment = commentMarker + `
## ⚠️ Missing linked issue

This pull request is not linked to any issue. Every pull request must reference the issue it addresses before it can be merged.

You can link an issue in one of three ways:

1. Add a closing keyword to the PR description, e.g. ` + "`Fixes #123`" + ` or ` + "`Closes #456`" + `
2. Use the "Development" section in the GitHub sidebar to link an existing issue
3. Mention the issue number with ` + "`#<issue-number>`" + ` in the PR title or description

> Tip: closing keywords (` + "`Fixes`, `Closes`, `Resolves`" + `) automatically close the linked issue when this PR is merged.`

// commentAPI is the slice of the GitHub client this step consumes.
type commentAPI interface {
	CreateComment(ctx context.Context, org, repo string, number int, body string) error
	ListComments(ctx context.Context, org, repo string, number int) ([]*github.IssueComment, error)
}

// Reporter aggregates detection findings into the check outcome and posts the
// explainer comment on failure.
type Reporter struct {
	api    commentAPI
	dryRun bool
}

// NewReporter creates a new reporter step.
func NewReporter(deps *pipeline.Dependencies) *Reporter {
	s := &Reporter{dryRun: deps.DryRun}
	if deps.GitHub != nil {
		s.api = deps.GitHub
	}
	return s
}

// Name returns the step name.
func (s *Reporter) Name() string {
	return "reporter"
}

// Run records the outcome message. On failure it posts the explainer comment;
// the check outcome is recorded before the comment attempt, so a comment error
// is fatal for this step only and never changes the verdict.
func (s *Reporter) Run(ctx *pipeline.Context) error {
	if ctx.Result.Linked {
		ctx.Result.Message = successNotice(ctx.Result.IssueNumbers)
		log.Printf("[reporter] PR #%d passed: %s", ctx.PR.Number, ctx.Result.Message)
		return nil
	}

	ctx.Result.Message = FailureMessage
	log.Printf("[reporter] PR #%d failed the linked-issue check", ctx.PR.Number)

	if s.dryRun {
		log.Printf("[reporter] Dry-run mode, not posting comment")
		return nil
	}
	if ctx.Config.Defaults.SkipComment {
		log.Printf("[reporter] Comment posting disabled by config")
		return nil
	}
	if s.api == nil {
		return fmt.Errorf("no GitHub client available to post comment")
	}

	// Best-effort dedup: if the gate already commented, don't repeat itself.
	if comments, err := s.api.ListComments(ctx.Ctx, ctx.PR.Org, ctx.PR.Repo, ctx.PR.Number); err != nil {
		log.Printf("[reporter] Warning: Failed to list comments for dedup: %v", err)
	} else {
		for _, c := range comments {
			if strings.Contains(c.GetBody(), commentMarker) {
				log.Printf("[reporter] Explainer comment already present on PR #%d", ctx.PR.Number)
				return nil
			}
		}
	}

	if err := s.api.CreateComment(ctx.Ctx, ctx.PR.Org, ctx.PR.Repo, ctx.PR.Number, failureComment); err != nil {
		return fmt.Errorf("failed to post explainer comment: %w", err)
	}

	ctx.Result.CommentPosted = true
	log.Printf("[reporter] Posted explainer comment on PR #%d", ctx.PR.Number)
	return nil
}

// successNotice builds the pass message listing all known linked issue numbers.
// The timeline fallback path can leave the list empty while the flag is true.
func successNotice(numbers []string) string {
	if len(numbers) == 0 {
		return "✅ Pull request is linked to an issue."
	}

	refs := make([]string, len(numbers))
	for i, n := range numbers {
		refs[i] = "#" + n
	}
	return fmt.Sprintf("✅ Pull request is linked to issue(s): %s", strings.Join(refs, ", "))
}
