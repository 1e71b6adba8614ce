package steps

import (
	"log"
	"regexp"

	"github.com/issuegate/issuegate/internal/core/pipeline"
)

// issueRefPatterns are applied in order against the combined title+body blob.
// All four run on every scan; their captures are unioned.
var issueRefPatterns = []*regexp.Regexp{
	// Closing keyword + bare #N
	regexp.MustCompile(`(?i)\b(?:close[sd]?|fix(?:e[sd])?|resolve[sd]?)\s+#(\d+)\b`),
	// Closing keyword + full issue URL
	regexp.MustCompile(`(?i)\b(?:close[sd]?|fix(?:e[sd])?|resolve[sd]?)\s+https?://github\.com/[^/\s]+/[^/\s]+/issues/(\d+)\b`),
	// Bare #N anywhere. Known over-matching: an unrelated "#N" mention with no
	// closing keyword still counts as a link.
	regexp.MustCompile(`#(\d+)\b`),
	// "issue 5", "issues #5"
	regexp.MustCompile(`(?i)\bissues?\s*#?\s*(\d+)\b`),
}

// ScanForIssueRefs scans PR title and body for referenced issue numbers.
// Numbers are returned as strings, deduplicated, in first-discovery order.
// There is no validation that a captured number refers to an existing issue.
func ScanForIssueRefs(title, body string) []string {
	blob := title + " " + body

	seen := make(map[string]struct{})
	var refs []string
	for _, re := range issueRefPatterns {
		for _, match := range re.FindAllStringSubmatch(blob, -1) {
			if len(match) < 2 {
				continue
			}
			num := match[1]
			if _, ok := seen[num]; ok {
				continue
			}
			seen[num] = struct{}{}
			refs = append(refs, num)
		}
	}

	return refs
}

// TextScanner scans the PR title and body for issue-reference patterns.
type TextScanner struct{}

// NewTextScanner creates a new text scanner step.
func NewTextScanner(deps *pipeline.Dependencies) *TextScanner {
	return &TextScanner{}
}

// Name returns the step name.
func (s *TextScanner) Name() string {
	return "text_scanner"
}

// Run scans the PR text and records any referenced issue numbers.
func (s *TextScanner) Run(ctx *pipeline.Context) error {
	refs := ScanForIssueRefs(ctx.PR.Title, ctx.PR.Body)
	for _, num := range refs {
		ctx.AddLinkedIssue(num)
	}

	if len(refs) > 0 {
		ctx.Result.Linked = true
	}

	log.Printf("[text_scanner] Found %d issue reference(s) in PR #%d text", len(refs), ctx.PR.Number)
	return nil
}
