package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/issuegate/issuegate/internal/core/config"
	"github.com/issuegate/issuegate/internal/core/pipeline"
	"github.com/issuegate/issuegate/internal/integrations/github"
	"github.com/issuegate/issuegate/internal/tui"
)

var (
	checkRepo      string
	checkNumber    int
	checkToken     string
	checkEventFile string
	checkWorkflow  string
	checkDryRun    bool
	checkJSON      bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the linked-issue gate for a single pull request",
	Long: `Run the linked-issue gate for one pull request.

The PR can come from a GitHub Actions event payload (--event-file, defaults
to $GITHUB_EVENT_PATH) or be fetched from the API via --repo and --number.
The command exits 1 when the pull request is not linked to any issue.`,
	Run: func(cmd *cobra.Command, args []string) {
		runCheck()
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkRepo, "repo", "", "Target repository (owner/name)")
	checkCmd.Flags().IntVar(&checkNumber, "number", 0, "Pull request number")
	checkCmd.Flags().StringVar(&checkToken, "token", "", "GitHub token (optional, defaults to GITHUB_TOKEN env var)")
	checkCmd.Flags().StringVar(&checkEventFile, "event-file", "", "Path to GitHub Actions event payload JSON")
	checkCmd.Flags().StringVar(&checkWorkflow, "workflow", "pr-link-check", "Workflow preset to run")
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false, "Run in dry-run mode (no comments posted)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output the result as JSON")
}

func runCheck() {
	ctx := context.Background()

	token := checkToken
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}

	cfg := loadGateConfig(token)

	// 1. Build the pull request from the event payload and/or flags
	pr := &pipeline.PullRequest{}

	eventFile := checkEventFile
	if eventFile == "" {
		eventFile = os.Getenv("GITHUB_EVENT_PATH")
	}
	if eventFile != "" {
		if err := loadEventPayload(eventFile, pr); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading event payload: %v\n", err)
			os.Exit(1)
		}
	}

	// Flag overrides
	if checkRepo != "" {
		parts := strings.Split(checkRepo, "/")
		if len(parts) != 2 {
			fmt.Fprintf(os.Stderr, "Invalid repo format: %s (expected owner/name)\n", checkRepo)
			os.Exit(1)
		}
		pr.Org, pr.Repo = parts[0], parts[1]
	}
	if checkNumber != 0 {
		pr.Number = checkNumber
	}

	if pr.Org == "" || pr.Repo == "" || pr.Number == 0 {
		fmt.Fprintln(os.Stderr, "Pull request identity required (use --event-file or --repo and --number)")
		os.Exit(1)
	}

	// 2. Initialize dependencies
	deps := &pipeline.Dependencies{DryRun: checkDryRun}
	if token != "" {
		deps.GitHub = github.NewClient(ctx, token)
	} else {
		fmt.Fprintln(os.Stderr, "Warning: No GitHub token found; API-backed detection is limited to text scanning")
	}
	defer deps.Close()

	// Manual runs have no event payload; fetch title/body from the API.
	if pr.Title == "" && pr.Body == "" && deps.GitHub != nil {
		fetched, err := deps.GitHub.GetPullRequest(ctx, pr.Org, pr.Repo, pr.Number)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching pull request: %v\n", err)
			os.Exit(1)
		}
		pr.Title = fetched.GetTitle()
		pr.Body = fetched.GetBody()
		pr.State = fetched.GetState()
		pr.Author = fetched.GetUser().GetLogin()
		pr.URL = fetched.GetHTMLURL()
	}

	// 3. Run the pipeline
	stepNames := pipeline.ResolveSteps(cfg.Steps, checkWorkflow)

	isCI := os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"

	var result *pipeline.Result
	if isCI || checkJSON {
		printRunMode()
		var err error
		result, err = ExecutePipeline(ctx, pr, cfg, deps, stepNames)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: pipeline error: %v\n", err)
		}
	} else {
		statusChan := make(chan tui.PipelineStatusMsg)
		model := tui.NewModel(stepNames, statusChan)
		p := tea.NewProgram(model)

		done := make(chan *pipeline.Result, 1)
		go func() {
			done <- runPipeline(p, deps, stepNames, pr, cfg, statusChan)
		}()

		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
			os.Exit(1)
		}
		// The TUI has exited, possibly quit mid-run; keep the channel flowing
		// so the pipeline goroutine can finish before we collect its result.
		drainStatus(statusChan)
		result = <-done
	}

	// 4. Report the outcome
	if checkJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling result: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	}

	if result == nil {
		os.Exit(1)
	}
	if result.Skipped {
		fmt.Printf("Check skipped: %s\n", result.SkipReason)
		return
	}
	if !result.Linked {
		fmt.Fprintln(os.Stderr, result.Message)
		os.Exit(1)
	}
	if !checkJSON {
		fmt.Println(result.Message)
	}
}

// printRunMode notes the headless execution mode on stderr so stdout stays
// clean for piped --json output.
func printRunMode() {
	fmt.Fprintln(os.Stderr, "[issuegate] Running in CI mode (no TUI)")
}

// loadGateConfig loads the configuration, resolving remote inheritance when a
// token is available. Missing or broken config degrades to defaults.
func loadGateConfig(token string) *config.Config {
	fetcher := func(ref string) ([]byte, error) {
		org, repo, branch, path, err := config.ParseExtendsRef(ref)
		if err != nil {
			return nil, err
		}
		if token == "" {
			return nil, fmt.Errorf("GITHUB_TOKEN required to fetch remote config %s", ref)
		}
		ghClient := github.NewClient(context.Background(), token)
		return ghClient.GetFileContent(context.Background(), org, repo, path, branch)
	}

	actualCfgPath := cfgFile
	if actualCfgPath == "" {
		actualCfgPath = config.FindConfigPath("")
	}

	if actualCfgPath == "" {
		if verbose {
			fmt.Println("No configuration file found. Using defaults and environment variables.")
		}
		cfg := &config.Config{}
		return cfg
	}

	cfg, err := config.LoadWithInheritance(actualCfgPath, fetcher)
	if err != nil {
		fmt.Printf("Warning: Failed to load config from %s: %v. Proceeding with defaults.\n", actualCfgPath, err)
		return &config.Config{}
	}
	if verbose {
		fmt.Printf("Loaded config from %s\n", actualCfgPath)
	}
	return cfg
}

// loadEventPayload reads a GitHub Actions event payload file into the PR.
func loadEventPayload(path string, pr *pipeline.PullRequest) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read event file: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse event JSON: %w", err)
	}

	enrichPullRequestFromEvent(pr, raw)
	return nil
}

// enrichPullRequestFromEvent fills PR fields from a pull_request event payload.
func enrichPullRequestFromEvent(pr *pipeline.PullRequest, raw map[string]interface{}) {
	if action, ok := raw["action"].(string); ok {
		pr.EventAction = action
	}

	if prRaw, ok := raw["pull_request"].(map[string]interface{}); ok {
		if num, ok := prRaw["number"].(float64); ok {
			pr.Number = int(num)
		}
		if title, ok := prRaw["title"].(string); ok {
			pr.Title = title
		}
		if body, ok := prRaw["body"].(string); ok {
			pr.Body = body
		}
		if state, ok := prRaw["state"].(string); ok {
			pr.State = state
		}
		if url, ok := prRaw["html_url"].(string); ok {
			pr.URL = url
		}
		if user, ok := prRaw["user"].(map[string]interface{}); ok {
			if login, ok := user["login"].(string); ok {
				pr.Author = login
			}
		}
	}

	if repoRaw, ok := raw["repository"].(map[string]interface{}); ok {
		if name, ok := repoRaw["name"].(string); ok {
			pr.Repo = name
		}
		if owner, ok := repoRaw["owner"].(map[string]interface{}); ok {
			if login, ok := owner["login"].(string); ok {
				pr.Org = login
			}
		}
	}
}
