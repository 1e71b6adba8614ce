package steps

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/issuegate/issuegate/internal/core/pipeline"
	gategithub "github.com/issuegate/issuegate/internal/integrations/github"
)

// metaClosingRefsError marks that the closing-refs query itself failed,
// which arms the timeline fallback. An empty query result does not set it.
const metaClosingRefsError = "closing_refs_error"

// closingRefsAPI is the slice of the GitHub client this step consumes.
type closingRefsAPI interface {
	ClosingIssueReferences(ctx context.Context, org, repo string, number, limit int) ([]gategithub.ClosingIssueRef, error)
}

// ClosingRefs queries the GraphQL API for issues the PR is declared to close.
type ClosingRefs struct {
	api closingRefsAPI
}

// NewClosingRefs creates a new closing-refs step.
func NewClosingRefs(deps *pipeline.Dependencies) *ClosingRefs {
	s := &ClosingRefs{}
	if deps.GitHub != nil {
		s.api = deps.GitHub
	}
	return s
}

// Name returns the step name.
func (s *ClosingRefs) Name() string {
	return "closing_refs"
}

// Run queries closing issue references and unions them into the linked set.
// Query failures are recorded, never surfaced: the timeline fallback takes over.
func (s *ClosingRefs) Run(ctx *pipeline.Context) error {
	if s.api == nil {
		err := fmt.Errorf("no GitHub client available")
		log.Printf("[closing_refs] Warning: Cannot query closing issue references: %v", err)
		ctx.RecordError(err)
		ctx.Metadata[metaClosingRefsError] = err
		return nil
	}

	limit := ctx.Config.Defaults.MaxClosingRefs
	if limit <= 0 {
		limit = 10
	}

	refs, err := s.api.ClosingIssueReferences(ctx.Ctx, ctx.PR.Org, ctx.PR.Repo, ctx.PR.Number, limit)
	if err != nil {
		log.Printf("[closing_refs] Warning: Query failed for PR #%d: %v", ctx.PR.Number, err)
		ctx.RecordError(err)
		ctx.Metadata[metaClosingRefsError] = err
		return nil
	}

	for _, ref := range refs {
		ctx.AddLinkedIssue(strconv.Itoa(ref.Number))
	}

	if len(refs) > 0 {
		ctx.Result.Linked = true
	}

	log.Printf("[closing_refs] PR #%d declares %d closing issue reference(s)", ctx.PR.Number, len(refs))
	return nil
}
