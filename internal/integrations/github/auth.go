package github

import (
	"context"
	"net/http"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

// NewClient creates a new GitHub client using the provided token.
// If token is empty, it returns an unauthenticated client without GraphQL support.
func NewClient(ctx context.Context, token string) *Client {
	var tc *http.Client
	var gql *GraphQLClient

	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc = oauth2.NewClient(ctx, ts)
		gql = NewGraphQLClient(tc, token)
	}

	client := github.NewClient(tc)

	return &Client{
		client:  client,
		graphql: gql,
	}
}
