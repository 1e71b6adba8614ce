package commands

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/issuegate/issuegate/internal/core/config"
	"github.com/issuegate/issuegate/internal/core/pipeline"
	"github.com/issuegate/issuegate/internal/integrations/github"
)

var (
	batchFile     string
	batchOutFile  string
	batchFormat   string
	batchWorkers  int
	batchWorkflow string
)

// BatchJob represents a job to process in the worker pool
type BatchJob struct {
	Index int
	PR    pipeline.PullRequest
}

// BatchResult represents the result of checking a single pull request
type BatchResult struct {
	Index  int
	PR     pipeline.PullRequest
	Result *pipeline.Result
	Error  error
}

// JSONOutput represents the JSON output structure
type JSONOutput struct {
	ProcessedAt time.Time     `json:"processed_at"`
	TotalPRs    int           `json:"total_prs"`
	Linked      int           `json:"linked"`
	Unlinked    int           `json:"unlinked"`
	Failed      int           `json:"failed"`
	Results     []ResultEntry `json:"results"`
}

// ResultEntry represents a single result entry in JSON output
type ResultEntry struct {
	PR     pipeline.PullRequest `json:"pr"`
	Result *pipeline.Result     `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Check multiple pull requests from a JSON file",
	Long: `Check multiple pull requests through the pipeline in batch mode.
This command reads pull requests from a JSON file, runs each through the full
detection pipeline with dry-run mode enabled (no GitHub writes), and outputs
the results in JSON or CSV format.

Use cases:
- Audit historical pull requests for missing issue links without commenting
- Generate compliance reports before turning the check on for a repository
- Tune the detection patterns against real PR text`,
	Run: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchFile, "file", "", "Path to JSON file containing array of pull requests (required)")
	batchCmd.Flags().StringVar(&batchOutFile, "out-file", "", "Output file path (stdout if not specified)")
	batchCmd.Flags().StringVar(&batchFormat, "format", "", "Output format: json or csv (inferred from --out-file extension when unset, json otherwise)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 1, "Number of concurrent workers")
	batchCmd.Flags().StringVar(&batchWorkflow, "workflow", "pr-link-check", "Workflow preset to run")

	if err := batchCmd.MarkFlagRequired("file"); err != nil {
		fmt.Printf("Warning: Failed to mark file flag as required: %v\n", err)
	}
}

func runBatch(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	// 1. Load pull requests from JSON file
	if verbose {
		fmt.Printf("Loading pull requests from %s...\n", batchFile)
	}
	prs, err := loadPullRequests(batchFile)
	if err != nil {
		fmt.Printf("❌ Error loading pull requests: %v\n", err)
		os.Exit(1)
	}
	if verbose {
		fmt.Printf("Loaded %d pull requests\n", len(prs))
	}

	// 2. Load configuration
	token := os.Getenv("GITHUB_TOKEN")
	cfg := loadGateConfig(token)

	// 3. Determine steps
	stepNames := pipeline.ResolveSteps(cfg.Steps, batchWorkflow)
	if verbose {
		fmt.Printf("Pipeline steps: %v\n", stepNames)
	}

	// 4. Initialize dependencies
	deps := &pipeline.Dependencies{}
	if token != "" {
		deps.GitHub = github.NewClient(ctx, token)
		if verbose {
			fmt.Println("✓ Initialized GitHub client")
		}
	} else if verbose {
		fmt.Println("ℹ No GitHub token found (detection is limited to text scanning)")
	}
	defer deps.Close()

	// CRITICAL: Force dry-run mode to prevent any GitHub writes
	deps.DryRun = true
	if verbose {
		fmt.Println("✓ Dry-run mode enabled (no GitHub writes will be performed)")
	}

	// 5. Process batch
	fmt.Printf("Checking %d pull requests with %d workers...\n", len(prs), batchWorkers)
	results := processBatch(ctx, prs, cfg, deps, stepNames)

	// 6. Output results
	if err := outputResults(results); err != nil {
		fmt.Printf("❌ Error outputting results: %v\n", err)
		os.Exit(1)
	}

	// 7. Print summary
	linked := 0
	unlinked := 0
	failed := 0
	for _, r := range results {
		switch {
		case r.Error != nil:
			failed++
		case r.Result != nil && r.Result.Linked:
			linked++
		default:
			unlinked++
		}
	}
	fmt.Printf("\n✓ Batch check completed: %d linked, %d unlinked, %d failed\n", linked, unlinked, failed)
}

// loadPullRequests reads and parses a JSON file containing an array of pull requests
func loadPullRequests(filePath string) ([]pipeline.PullRequest, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var prs []pipeline.PullRequest
	if err := json.Unmarshal(data, &prs); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(prs) == 0 {
		return nil, fmt.Errorf("no pull requests found in file")
	}

	// Validate required fields
	for i, pr := range prs {
		if pr.Org == "" || pr.Repo == "" || pr.Number == 0 {
			return nil, fmt.Errorf("pull request at index %d missing required fields (org, repo, number)", i)
		}
	}

	return prs, nil
}

// processBatch checks all pull requests using a worker pool pattern
func processBatch(ctx context.Context, prs []pipeline.PullRequest, cfg *config.Config, deps *pipeline.Dependencies, stepNames []string) []BatchResult {
	jobs := make(chan BatchJob, batchWorkers)
	results := make(chan BatchResult, batchWorkers)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < batchWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobs {
				if verbose {
					fmt.Printf("[Worker %d] Checking PR #%d (%s/%s)\n", workerID, job.PR.Number, job.PR.Org, job.PR.Repo)
				}

				pr := job.PR
				result, err := ExecutePipeline(ctx, &pr, cfg, deps, stepNames)

				results <- BatchResult{
					Index:  job.Index,
					PR:     job.PR,
					Result: result,
					Error:  err,
				}

				if verbose {
					if err != nil {
						fmt.Printf("[Worker %d] ❌ PR #%d failed: %v\n", workerID, job.PR.Number, err)
					} else {
						fmt.Printf("[Worker %d] ✓ PR #%d completed\n", workerID, job.PR.Number)
					}
				}
			}
		}(i)
	}

	// Send jobs
	go func() {
		for i, pr := range prs {
			jobs <- BatchJob{Index: i, PR: pr}
		}
		close(jobs)
	}()

	// Collect results
	go func() {
		wg.Wait()
		close(results)
	}()

	// Gather results in order
	resultMap := make(map[int]BatchResult)
	for result := range results {
		resultMap[result.Index] = result
	}

	orderedResults := make([]BatchResult, len(prs))
	for i := range prs {
		orderedResults[i] = resultMap[i]
	}

	return orderedResults
}

// outputResults formats and writes results to the specified output
func outputResults(results []BatchResult) error {
	var data []byte
	var err error

	// Determine format
	format := batchFormat
	if format == "" && batchOutFile != "" {
		// Infer from file extension
		ext := strings.ToLower(filepath.Ext(batchOutFile))
		if ext == ".csv" {
			format = "csv"
		} else {
			format = "json"
		}
	}
	if format == "" {
		format = "json"
	}

	// Format output
	switch format {
	case "csv":
		data, err = formatCSV(results)
	case "json":
		data, err = formatJSON(results)
	default:
		return fmt.Errorf("unsupported format: %s (use json or csv)", format)
	}

	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	// Write output
	if batchOutFile != "" {
		if err := os.WriteFile(batchOutFile, data, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Printf("✓ Results written to %s\n", batchOutFile)
	} else {
		fmt.Println("\n=== Batch Results ===")
		fmt.Println(string(data))
	}

	return nil
}

// formatJSON formats results as JSON
func formatJSON(results []BatchResult) ([]byte, error) {
	linked := 0
	unlinked := 0
	failed := 0
	entries := make([]ResultEntry, len(results))

	for i, r := range results {
		entry := ResultEntry{
			PR:     r.PR,
			Result: r.Result,
		}
		switch {
		case r.Error != nil:
			entry.Error = r.Error.Error()
			failed++
		case r.Result != nil && r.Result.Linked:
			linked++
		default:
			unlinked++
		}
		entries[i] = entry
	}

	output := JSONOutput{
		ProcessedAt: time.Now(),
		TotalPRs:    len(results),
		Linked:      linked,
		Unlinked:    unlinked,
		Failed:      failed,
		Results:     entries,
	}

	return json.MarshalIndent(output, "", "  ")
}

// formatCSV formats results as CSV
func formatCSV(results []BatchResult) ([]byte, error) {
	var buf strings.Builder
	writer := csv.NewWriter(&buf)

	// Write header
	header := []string{
		"pr_number",
		"org",
		"repo",
		"title",
		"author",
		"state",
		"skipped",
		"skip_reason",
		"linked",
		"issue_numbers",
		"fallback_used",
		"error",
	}
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	// Write rows
	for _, r := range results {
		row := make([]string, len(header))
		row[0] = strconv.Itoa(r.PR.Number)
		row[1] = r.PR.Org
		row[2] = r.PR.Repo
		row[3] = r.PR.Title
		row[4] = r.PR.Author
		row[5] = r.PR.State

		if r.Error != nil {
			row[11] = r.Error.Error()
		} else if r.Result != nil {
			row[6] = strconv.FormatBool(r.Result.Skipped)
			row[7] = r.Result.SkipReason
			row[8] = strconv.FormatBool(r.Result.Linked)
			row[9] = strings.Join(r.Result.IssueNumbers, ";")
			row[10] = strconv.FormatBool(r.Result.FallbackUsed)
		}

		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return []byte(buf.String()), nil
}
