package commands

import (
	"context"
	"encoding/json"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/issuegate/issuegate/internal/core/config"
	"github.com/issuegate/issuegate/internal/core/pipeline"
	"github.com/issuegate/issuegate/internal/steps"
	"github.com/issuegate/issuegate/internal/tui"
)

// Wrapper step to send status updates
type statusReportingStep struct {
	inner      pipeline.Step
	statusChan chan<- tui.PipelineStatusMsg
}

func (s *statusReportingStep) Name() string {
	return s.inner.Name()
}

func (s *statusReportingStep) Run(ctx *pipeline.Context) error {
	s.statusChan <- tui.PipelineStatusMsg{Step: s.Name(), Status: "started", Message: "Starting..."}
	time.Sleep(100 * time.Millisecond) // Artificial delay for visual effect

	err := s.inner.Run(ctx)

	if err != nil {
		if err == pipeline.ErrSkipPipeline {
			s.statusChan <- tui.PipelineStatusMsg{Step: s.Name(), Status: "skipped", Message: ctx.Result.SkipReason}
			return err
		}
		s.statusChan <- tui.PipelineStatusMsg{Step: s.Name(), Status: "error", Message: err.Error()}
		return err
	}

	s.statusChan <- tui.PipelineStatusMsg{Step: s.Name(), Status: "success", Message: "Completed"}
	return nil
}

// ExecutePipeline builds the named steps and runs them against one pull request.
func ExecutePipeline(ctx context.Context, pr *pipeline.PullRequest, cfg *config.Config, deps *pipeline.Dependencies, stepNames []string) (*pipeline.Result, error) {
	pCtx := pipeline.NewContext(ctx, pr, cfg)

	registry := pipeline.NewRegistry()
	steps.RegisterAll(registry)

	p, err := registry.BuildFromNames(stepNames, deps)
	if err != nil {
		return nil, err
	}

	err = p.Run(pCtx)
	return pCtx.Result, err
}

// drainStatus consumes remaining status updates once the TUI stops reading,
// so the pipeline goroutine can finish its sends and close the channel.
// Without this, a user quitting the TUI mid-run leaves the pipeline blocked
// on an unbuffered send forever.
func drainStatus(statusChan <-chan tui.PipelineStatusMsg) {
	go func() {
		for range statusChan {
		}
	}()
}

// runPipeline executes the pipeline with TUI status reporting.
func runPipeline(p *tea.Program, deps *pipeline.Dependencies, stepNames []string, pr *pipeline.PullRequest, cfg *config.Config, statusChan chan tui.PipelineStatusMsg) *pipeline.Result {
	defer close(statusChan)

	ctx := context.Background()
	pCtx := pipeline.NewContext(ctx, pr, cfg)

	registry := pipeline.NewRegistry()
	steps.RegisterAll(registry)

	builtSteps, err := registry.BuildFromNames(stepNames, deps)
	if err != nil {
		statusChan <- tui.PipelineStatusMsg{Step: "init", Status: "error", Message: err.Error()}
		if p != nil {
			p.Send(tui.ResultMsg{Success: false, Output: err.Error()})
		}
		return pCtx.Result
	}

	// Wrap steps with status reporting
	var wrappedSteps []pipeline.Step
	for _, step := range builtSteps.Steps() {
		wrappedSteps = append(wrappedSteps, &statusReportingStep{inner: step, statusChan: statusChan})
	}

	finalPipeline := pipeline.New(wrappedSteps...)

	if err := finalPipeline.Run(pCtx); err != nil {
		if p != nil {
			p.Send(tui.ResultMsg{Success: false, Output: err.Error()})
		}
		return pCtx.Result
	}

	// Marshal result to JSON
	resultBytes, _ := json.MarshalIndent(pCtx.Result, "", "  ")
	if p != nil {
		p.Send(tui.ResultMsg{Success: pCtx.Result.Linked || pCtx.Result.Skipped, Output: string(resultBytes)})
	}
	return pCtx.Result
}
