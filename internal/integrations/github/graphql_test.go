package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestGraphQLClient returns a GraphQLClient pointed at a test server.
func newTestGraphQLClient(t *testing.T, handler http.HandlerFunc) *GraphQLClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewGraphQLClient(srv.Client(), "test-token")
	client.endpoint = srv.URL
	return client
}

func TestClosingIssueReferences(t *testing.T) {
	client := newTestGraphQLClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode GraphQL request: %v", err)
		}
		if req.Variables["owner"] != "acme" || req.Variables["repo"] != "widgets" {
			t.Errorf("Unexpected variables: %+v", req.Variables)
		}
		fmt.Fprint(w, `{"data":{"repository":{"pullRequest":{"closingIssuesReferences":{"nodes":[{"number":42,"title":"x"},{"number":7,"title":"y"}]}}}}}`)
	})

	refs, err := client.ClosingIssueReferences(context.Background(), "acme", "widgets", 12, 10)
	if err != nil {
		t.Fatalf("ClosingIssueReferences failed: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("Expected 2 refs, got %d", len(refs))
	}
	if refs[0].Number != 42 || refs[0].Title != "x" {
		t.Errorf("Unexpected first ref: %+v", refs[0])
	}
}

func TestClosingIssueReferencesEmpty(t *testing.T) {
	client := newTestGraphQLClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"repository":{"pullRequest":{"closingIssuesReferences":{"nodes":[]}}}}}`)
	})

	refs, err := client.ClosingIssueReferences(context.Background(), "acme", "widgets", 12, 10)
	if err != nil {
		t.Fatalf("Expected empty result without error, got: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("Expected 0 refs, got %d", len(refs))
	}
}

func TestClosingIssueReferencesGraphQLError(t *testing.T) {
	client := newTestGraphQLClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"message":"Resource not accessible by integration"}]}`)
	})

	_, err := client.ClosingIssueReferences(context.Background(), "acme", "widgets", 12, 10)
	if err == nil {
		t.Fatal("Expected error from GraphQL errors array")
	}
}

func TestClosingIssueReferencesHTTPError(t *testing.T) {
	client := newTestGraphQLClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := client.ClosingIssueReferences(context.Background(), "acme", "widgets", 12, 10)
	if err == nil {
		t.Fatal("Expected error for non-200 response")
	}
}

func TestClosingIssueReferencesMissingPR(t *testing.T) {
	client := newTestGraphQLClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"repository":{"pullRequest":null}}}`)
	})

	_, err := client.ClosingIssueReferences(context.Background(), "acme", "widgets", 999, 10)
	if err == nil {
		t.Fatal("Expected error for missing pull request")
	}
}
