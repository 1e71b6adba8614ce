// Package pipeline provides the core pipeline engine for Issuegate.
// It defines the Step interface and Context structure used by all pipeline steps.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/issuegate/issuegate/internal/core/config"
)

// ErrSkipPipeline indicates that the pipeline should stop gracefully.
// This is not an error condition, just an early exit (e.g., ignored event action, disabled repo).
var ErrSkipPipeline = errors.New("skip remaining pipeline steps")

// Step defines the interface that all pipeline steps must implement.
type Step interface {
	// Name returns the unique identifier for this step.
	Name() string

	// Run executes the step's logic.
	// It should return ErrSkipPipeline to stop the pipeline gracefully,
	// or any other error to indicate failure.
	Run(ctx *Context) error
}

// PullRequest represents a GitHub pull request being checked.
type PullRequest struct {
	Org         string `json:"org"`
	Repo        string `json:"repo"`
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	State       string `json:"state,omitempty"` // "open" or "closed"
	Author      string `json:"author,omitempty"`
	URL         string `json:"url,omitempty"`
	EventAction string `json:"event_action,omitempty"` // "opened", "edited", "synchronize", "reopened"
}

// Result holds the accumulated results from pipeline execution.
type Result struct {
	RunID         string   `json:"run_id"`
	PRNumber      int      `json:"pr_number"`
	Linked        bool     `json:"linked"`
	IssueNumbers  []string `json:"issue_numbers"`
	FallbackUsed  bool     `json:"fallback_used"`
	CommentPosted bool     `json:"comment_posted"`
	Skipped       bool     `json:"skipped"`
	SkipReason    string   `json:"skip_reason,omitempty"`
	Message       string   `json:"message,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

// Context carries data through the pipeline steps.
type Context struct {
	// Ctx is the Go context for cancellation and timeouts.
	Ctx context.Context

	// PR is the pull request being checked.
	PR *PullRequest

	// Config is the loaded configuration.
	Config *config.Config

	// Result accumulates the processing results.
	Result *Result

	// Metadata allows steps to pass arbitrary data to subsequent steps.
	Metadata map[string]interface{}

	linked map[string]struct{}
}

// NewContext creates a new pipeline context for a pull request.
func NewContext(ctx context.Context, pr *PullRequest, cfg *config.Config) *Context {
	return &Context{
		Ctx:      ctx,
		PR:       pr,
		Config:   cfg,
		Result:   &Result{RunID: uuid.NewString(), PRNumber: pr.Number},
		Metadata: make(map[string]interface{}),
		linked:   make(map[string]struct{}),
	}
}

// AddLinkedIssue records a detected issue number. Duplicates are ignored;
// first-discovery order is preserved in Result.IssueNumbers.
func (c *Context) AddLinkedIssue(number string) {
	if c.linked == nil {
		c.linked = make(map[string]struct{})
	}
	if _, ok := c.linked[number]; ok {
		return
	}
	c.linked[number] = struct{}{}
	c.Result.IssueNumbers = append(c.Result.IssueNumbers, number)
}

// LinkedIssueCount returns the number of distinct issue numbers recorded so far.
func (c *Context) LinkedIssueCount() int {
	return len(c.linked)
}

// RecordError appends a non-fatal error to the result for reporting.
func (c *Context) RecordError(err error) {
	if err == nil {
		return
	}
	c.Result.Errors = append(c.Result.Errors, err.Error())
}

// Pipeline executes a sequence of steps.
type Pipeline struct {
	steps []Step
}

// New creates a new pipeline with the given steps.
func New(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Run executes all steps in order.
// Stops on the first error (unless it's ErrSkipPipeline, which is graceful).
func (p *Pipeline) Run(ctx *Context) error {
	for _, step := range p.steps {
		if err := step.Run(ctx); err != nil {
			if errors.Is(err, ErrSkipPipeline) {
				// Graceful early exit
				return nil
			}
			return fmt.Errorf("step '%s' failed: %w", step.Name(), err)
		}
	}
	return nil
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// Steps returns the list of steps (for introspection).
func (p *Pipeline) Steps() []Step {
	return p.steps
}
