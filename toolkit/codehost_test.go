package toolkit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCodeHostClient struct {
	commits []Commit
	prs     []PullRequest

	lastCommitQuery CommitQuery
	lastPRQuery     PullRequestQuery
}

func (f *fakeCodeHostClient) Commits(ctx context.Context, q CommitQuery) ([]Commit, error) {
	f.lastCommitQuery = q
	return f.commits, nil
}

func (f *fakeCodeHostClient) PullRequests(ctx context.Context, q PullRequestQuery) ([]PullRequest, error) {
	f.lastPRQuery = q
	return f.prs, nil
}

func TestCommitsToolStoresCommits(t *testing.T) {
	client := &fakeCodeHostClient{commits: []Commit{
		{SHA: "abc1234def", Message: "fix parser"},
	}}

	commitsTool := NewCommitsTool(client)
	tc := newToolContext(t)

	result, err := commitsTool.Call(tc, map[string]any{
		"repo":  "acme/widget",
		"since": "2024-01-01T00:00:00Z",
		"limit": float64(5),
	})
	require.NoError(t, err)

	assert.Equal(t, "acme/widget", client.lastCommitQuery.Repo)
	assert.Equal(t, "2024-01-01T00:00:00Z", client.lastCommitQuery.Since)
	assert.Equal(t, 5, client.lastCommitQuery.Limit)

	assert.Contains(t, result.(string), "codehost_commits.call1")

	stored, ok := tc.GetState("codehost_commits.call1")
	require.True(t, ok)
	assert.Equal(t, client.commits, stored)
}

func TestPullRequestsToolStoresPRs(t *testing.T) {
	client := &fakeCodeHostClient{prs: []PullRequest{
		{Number: 42, Title: "Add caching"},
	}}

	prTool := NewPullRequestsTool(client)
	tc := newToolContext(t)

	result, err := prTool.Call(tc, map[string]any{"repo": "acme/widget", "state": "open"})
	require.NoError(t, err)

	assert.Equal(t, "open", client.lastPRQuery.State)
	assert.Contains(t, result.(string), "codehost_prs.call1")

	stored, ok := tc.GetState("codehost_prs.call1")
	require.True(t, ok)
	assert.Equal(t, client.prs, stored)
}

func TestHTTPCodeHostClientCommits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widget/commits", r.URL.Path)
		assert.Equal(t, "dev", r.URL.Query().Get("author"))
		assert.Equal(t, "10", r.URL.Query().Get("per_page"))

		_, _ = w.Write([]byte(`[{
			"sha": "abc1234def5678",
			"html_url": "https://example.com/c/abc1234",
			"commit": {
				"message": "fix parser",
				"author": {"name": "Dev One", "date": "2024-04-01T12:00:00Z"}
			},
			"stats": {"additions": 10, "deletions": 2}
		}]`))
	}))
	defer srv.Close()

	client := NewHTTPCodeHostClient("", func(o *HTTPCodeHostClientOptions) {
		o.BaseURL = srv.URL
	})

	commits, err := client.Commits(context.Background(), CommitQuery{Repo: "acme/widget", Author: "dev", Limit: 10})
	require.NoError(t, err)

	require.Len(t, commits, 1)
	assert.Equal(t, "abc1234def5678", commits[0].SHA)
	assert.Equal(t, "fix parser", commits[0].Message)
	assert.Equal(t, "Dev One", commits[0].Author)
	assert.Equal(t, 10, commits[0].Additions)
}

func TestHTTPCodeHostClientPullRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widget/pulls", r.URL.Path)
		assert.Equal(t, "closed", r.URL.Query().Get("state"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`[{
			"number": 42,
			"title": "Add caching",
			"body": "speeds things up",
			"state": "closed",
			"html_url": "https://example.com/pr/42",
			"user": {"login": "dev"},
			"created_at": "2024-03-01T00:00:00Z",
			"merged_at": "2024-03-02T00:00:00Z",
			"head": {"ref": "cache"},
			"base": {"ref": "main"},
			"labels": [{"name": "performance"}]
		}]`))
	}))
	defer srv.Close()

	client := NewHTTPCodeHostClient("tok", func(o *HTTPCodeHostClientOptions) {
		o.BaseURL = srv.URL
	})

	prs, err := client.PullRequests(context.Background(), PullRequestQuery{Repo: "acme/widget", State: "closed"})
	require.NoError(t, err)

	require.Len(t, prs, 1)
	pr := prs[0]
	assert.Equal(t, 42, pr.Number)
	assert.True(t, pr.Merged, "a merged_at timestamp implies merged")
	assert.Equal(t, "dev", pr.Author)
	assert.Equal(t, []string{"performance"}, pr.Labels)
}

func TestCommitUnitAndPullRequestUnit(t *testing.T) {
	commit := CommitUnit(Commit{SHA: "abc1234def5678", Message: "fix parser", Author: "Dev", Additions: 3, Deletions: 1})
	assert.Contains(t, commit.Content, "Commit SHA: abc1234def5678")
	assert.Contains(t, commit.Content, "Changes: +3 -1")
	assert.Equal(t, "abc1234d", commit.Metadata["key"])

	pr := PullRequestUnit(PullRequest{Number: 7, Title: "Refactor", State: "closed", Merged: true, HeadRef: "refactor", BaseRef: "main"})
	assert.Contains(t, pr.Content, "Pull Request #7")
	assert.Contains(t, pr.Content, "closed (merged)")
	assert.Contains(t, pr.Content, "refactor -> main")
	assert.Equal(t, "#7", pr.Metadata["key"])
}
