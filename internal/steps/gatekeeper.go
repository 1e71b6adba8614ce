// Package steps contains the modular pipeline steps for the linked-issue gate.
// Each step implements the pipeline.Step interface.
package steps

import (
	"log"
	"strings"

	"github.com/issuegate/issuegate/internal/core/config"
	"github.com/issuegate/issuegate/internal/core/pipeline"
)

// prLifecycleActions are the pull request event actions the gate runs for.
var prLifecycleActions = map[string]bool{
	"opened":      true,
	"edited":      true,
	"synchronize": true,
	"reopened":    true,
}

// Gatekeeper checks that the triggering event is in scope and the repository is enabled.
type Gatekeeper struct{}

// NewGatekeeper creates a new gatekeeper step.
func NewGatekeeper(deps *pipeline.Dependencies) *Gatekeeper {
	return &Gatekeeper{}
}

// Name returns the step name.
func (s *Gatekeeper) Name() string {
	return "gatekeeper"
}

// Run checks event action, author, and repository configuration.
func (s *Gatekeeper) Run(ctx *pipeline.Context) error {
	log.Printf("[gatekeeper] PR #%d, EventAction=%q, Repo=%s/%s",
		ctx.PR.Number, ctx.PR.EventAction, ctx.PR.Org, ctx.PR.Repo)

	// An empty action means the PR was loaded directly (manual run), not from an event.
	if ctx.PR.EventAction != "" && !prLifecycleActions[ctx.PR.EventAction] {
		log.Printf("[gatekeeper] Ignoring event action %q", ctx.PR.EventAction)
		ctx.Result.Skipped = true
		ctx.Result.SkipReason = "event action not in scope"
		return pipeline.ErrSkipPipeline
	}

	// Skip PRs opened by exempt bot authors to avoid gating automated updates.
	if ctx.PR.Author != "" && isBotAuthor(ctx.PR.Author, ctx.Config.BotUsers) {
		log.Printf("[gatekeeper] Skipping PR from bot author %q", ctx.PR.Author)
		ctx.Result.Skipped = true
		ctx.Result.SkipReason = "pull request authored by bot"
		return pipeline.ErrSkipPipeline
	}

	// If repositories list is empty, allow all (single-repo mode)
	if len(ctx.Config.Repositories) == 0 {
		log.Printf("[gatekeeper] No repositories configured, allowing all (single-repo mode)")
		return nil
	}

	// Check if the repository is configured
	repoConfig := findRepoConfig(ctx)
	if repoConfig == nil {
		ctx.Result.Skipped = true
		ctx.Result.SkipReason = "repository not configured"
		return pipeline.ErrSkipPipeline
	}

	// Check if the gate is enabled for this repo
	if !repoConfig.Enabled {
		ctx.Result.Skipped = true
		ctx.Result.SkipReason = "repository gate disabled"
		return pipeline.ErrSkipPipeline
	}

	log.Printf("[gatekeeper] Repository %s/%s is enabled, proceeding", ctx.PR.Org, ctx.PR.Repo)
	return nil
}

// isBotAuthor returns true if the given username matches a known bot pattern
// or is in the user-configured bot_users list.
func isBotAuthor(author string, configBotUsers []string) bool {
	// Built-in heuristic
	if strings.HasSuffix(author, "[bot]") {
		return true
	}
	// User-configured bot users
	for _, u := range configBotUsers {
		if strings.EqualFold(author, u) {
			return true
		}
	}
	return false
}

// findRepoConfig looks up the repository configuration.
func findRepoConfig(ctx *pipeline.Context) *config.RepositoryConfig {
	for i := range ctx.Config.Repositories {
		repo := &ctx.Config.Repositories[i]
		if repo.Org == ctx.PR.Org && repo.Repo == ctx.PR.Repo {
			return repo
		}
	}
	return nil
}
