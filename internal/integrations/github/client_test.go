package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	gogithub "github.com/google/go-github/v60/github"
)

// newTestClient returns a Client whose REST calls hit the given test server.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gh := gogithub.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("Failed to parse test server URL: %v", err)
	}
	gh.BaseURL = base

	return &Client{client: gh}, srv
}

func TestCreateCommentValidation(t *testing.T) {
	// Test that CreateComment rejects empty body
	client := &Client{client: nil} // nil client for validation testing

	err := client.CreateComment(context.Background(), "org", "repo", 1, "")
	if err == nil {
		t.Error("Expected error for empty comment body")
	}

	err = client.CreateComment(context.Background(), "org", "repo", 1, "   ")
	if err == nil {
		t.Error("Expected error for whitespace-only comment body")
	}
}

func TestClosingIssueReferencesRequiresGraphQL(t *testing.T) {
	client := &Client{client: nil, graphql: nil}

	_, err := client.ClosingIssueReferences(context.Background(), "org", "repo", 1, 10)
	if err == nil {
		t.Fatal("Expected error when GraphQL client is missing")
	}
}

func TestListIssueTimelinePagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/issues/7/timeline", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s?page=2>; rel="next"`, "http://"+r.Host+r.URL.Path))
			fmt.Fprint(w, `[{"event":"connected","created_at":"2026-01-01T10:00:00Z","source":{"issue":{"id":101}}}]`)
		case "2":
			fmt.Fprint(w, `[{"event":"disconnected","created_at":"2026-01-02T10:00:00Z","source":{"issue":{"id":101}}}]`)
		default:
			http.NotFound(w, r)
		}
	})

	client, _ := newTestClient(t, mux)

	events, err := client.ListIssueTimeline(context.Background(), "acme", "widgets", 7)
	if err != nil {
		t.Fatalf("ListIssueTimeline failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events across pages, got %d", len(events))
	}
	if events[0].GetEvent() != "connected" || events[1].GetEvent() != "disconnected" {
		t.Errorf("Unexpected event kinds: %q, %q", events[0].GetEvent(), events[1].GetEvent())
	}
	if events[0].GetSource().GetIssue().GetID() != 101 {
		t.Errorf("Expected source issue id 101, got %d", events[0].GetSource().GetIssue().GetID())
	}
}

func TestCreateCommentPostsBody(t *testing.T) {
	var got string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		var payload struct {
			Body string `json:"body"`
		}
		if err := jsonDecode(r, &payload); err != nil {
			t.Fatalf("Failed to decode comment payload: %v", err)
		}
		got = payload.Body
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":1}`)
	})

	client, _ := newTestClient(t, mux)

	if err := client.CreateComment(context.Background(), "acme", "widgets", 7, "hello"); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("Expected comment body 'hello', got %q", got)
	}
}

func jsonDecode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
