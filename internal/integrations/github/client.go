package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v60/github"
)

// Client wraps the GitHub REST and GraphQL API clients.
type Client struct {
	client  *github.Client
	graphql *GraphQLClient
}

// GetPullRequest fetches pull request details.
func (c *Client) GetPullRequest(ctx context.Context, org, repo string, number int) (*github.PullRequest, error) {
	pr, _, err := c.client.PullRequests.Get(ctx, org, repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pull request: %w", err)
	}

	return pr, nil
}

// CreateComment posts a comment on an issue or pull request.
func (c *Client) CreateComment(ctx context.Context, org, repo string, number int, body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("comment body cannot be empty")
	}

	comment := &github.IssueComment{
		Body: github.String(body),
	}
	_, _, err := c.client.Issues.CreateComment(ctx, org, repo, number, comment)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ListComments fetches all comments on an issue or pull request.
func (c *Client) ListComments(ctx context.Context, org, repo string, number int) ([]*github.IssueComment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var all []*github.IssueComment
	for {
		comments, resp, err := c.client.Issues.ListComments(ctx, org, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list comments: %w", err)
		}
		all = append(all, comments...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// ListIssueTimeline fetches the full chronological timeline for an issue or
// pull request (the events API treats PRs as issues).
func (c *Client) ListIssueTimeline(ctx context.Context, org, repo string, number int) ([]*github.Timeline, error) {
	opts := &github.ListOptions{PerPage: 100}

	var all []*github.Timeline
	for {
		events, resp, err := c.client.Issues.ListIssueTimeline(ctx, org, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list timeline events: %w", err)
		}
		all = append(all, events...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// ClosingIssueReferences queries the issues that merging the pull request
// would automatically close. Requires an authenticated GraphQL client.
func (c *Client) ClosingIssueReferences(ctx context.Context, org, repo string, number, limit int) ([]ClosingIssueRef, error) {
	if c.graphql == nil {
		return nil, fmt.Errorf("closing issue references require authenticated GraphQL client")
	}
	return c.graphql.ClosingIssueReferences(ctx, org, repo, number, limit)
}

// GetFileContent retrieves a file's raw content from a repository at the given ref.
func (c *Client) GetFileContent(ctx context.Context, org, repo, path, ref string) ([]byte, error) {
	fileContent, _, _, err := c.client.Repositories.GetContents(ctx, org, repo, path, &github.RepositoryContentGetOptions{
		Ref: ref,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch file %s: %w", path, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("path %s is not a file", path)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode file %s: %w", path, err)
	}

	return []byte(content), nil
}
