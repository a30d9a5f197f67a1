package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/taskmesh/aggregate"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/tool"
)

// Commit is one code-host commit, flattened for analysis.
type Commit struct {
	SHA       string `json:"sha"`
	Message   string `json:"message"`
	Author    string `json:"author"`
	Date      string `json:"date"`
	URL       string `json:"url"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// PullRequest is one code-host pull request, flattened for analysis.
type PullRequest struct {
	Number       int      `json:"number"`
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	State        string   `json:"state"`
	Merged       bool     `json:"merged"`
	Author       string   `json:"author"`
	CreatedAt    string   `json:"created_at"`
	MergedAt     string   `json:"merged_at,omitempty"`
	HeadRef      string   `json:"head_ref"`
	BaseRef      string   `json:"base_ref"`
	ChangedFiles int      `json:"changed_files"`
	Additions    int      `json:"additions"`
	Deletions    int      `json:"deletions"`
	Labels       []string `json:"labels,omitempty"`
	URL          string   `json:"url"`
}

// CommitQuery filters a commit listing.
type CommitQuery struct {
	Repo   string
	Since  string
	Until  string
	Author string
	Path   string
	Limit  int
}

// PullRequestQuery filters a pull-request listing.
type PullRequestQuery struct {
	Repo  string
	State string
	Limit int
}

// CodeHostClient retrieves commits and pull requests from a code host.
type CodeHostClient interface {
	Commits(ctx context.Context, q CommitQuery) ([]Commit, error)
	PullRequests(ctx context.Context, q PullRequestQuery) ([]PullRequest, error)
}

// HTTPCodeHostClientOptions configures an HTTPCodeHostClient.
type HTTPCodeHostClientOptions struct {
	// BaseURL is the API root. Defaults to the public GitHub API.
	BaseURL string

	// HTTPClient is the client used for requests. Defaults to one with a 30s
	// timeout.
	HTTPClient *http.Client
}

// HTTPCodeHostClient talks to a GitHub-compatible REST API. An empty token
// falls back to unauthenticated, rate-limited access.
type HTTPCodeHostClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPCodeHostClient creates a code-host client authenticating with token.
func NewHTTPCodeHostClient(token string, optFns ...func(o *HTTPCodeHostClientOptions)) *HTTPCodeHostClient {
	opts := HTTPCodeHostClientOptions{
		BaseURL:    "https://api.github.com",
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &HTTPCodeHostClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   token,
		client:  opts.HTTPClient,
	}
}

// Commits lists commits of a repository, newest first.
func (c *HTTPCodeHostClient) Commits(ctx context.Context, q CommitQuery) ([]Commit, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 30
	}

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(limit))
	if q.Since != "" {
		params.Set("since", q.Since)
	}
	if q.Until != "" {
		params.Set("until", q.Until)
	}
	if q.Author != "" {
		params.Set("author", q.Author)
	}
	if q.Path != "" {
		params.Set("path", q.Path)
	}

	var wire []struct {
		SHA    string `json:"sha"`
		URL    string `json:"html_url"`
		Commit struct {
			Message string `json:"message"`
			Author  struct {
				Name string `json:"name"`
				Date string `json:"date"`
			} `json:"author"`
		} `json:"commit"`
		Stats struct {
			Additions int `json:"additions"`
			Deletions int `json:"deletions"`
		} `json:"stats"`
	}

	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/commits?%s", q.Repo, params.Encode()), &wire); err != nil {
		return nil, err
	}

	commits := make([]Commit, 0, len(wire))
	for _, w := range wire {
		commits = append(commits, Commit{
			SHA:       w.SHA,
			Message:   w.Commit.Message,
			Author:    w.Commit.Author.Name,
			Date:      w.Commit.Author.Date,
			URL:       w.URL,
			Additions: w.Stats.Additions,
			Deletions: w.Stats.Deletions,
		})
	}

	return commits, nil
}

// PullRequests lists pull requests of a repository, most recently updated
// first.
func (c *HTTPCodeHostClient) PullRequests(ctx context.Context, q PullRequestQuery) ([]PullRequest, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 30
	}

	state := q.State
	if state == "" {
		state = "all"
	}

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(limit))
	params.Set("state", state)
	params.Set("sort", "updated")
	params.Set("direction", "desc")

	var wire []struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		Body   string `json:"body"`
		State  string `json:"state"`
		URL    string `json:"html_url"`
		User   struct {
			Login string `json:"login"`
		} `json:"user"`
		CreatedAt string `json:"created_at"`
		MergedAt  string `json:"merged_at"`
		Head      struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
		ChangedFiles int `json:"changed_files"`
		Additions    int `json:"additions"`
		Deletions    int `json:"deletions"`
		Labels       []struct {
			Name string `json:"name"`
		} `json:"labels"`
	}

	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/pulls?%s", q.Repo, params.Encode()), &wire); err != nil {
		return nil, err
	}

	prs := make([]PullRequest, 0, len(wire))
	for _, w := range wire {
		pr := PullRequest{
			Number:       w.Number,
			Title:        w.Title,
			Body:         w.Body,
			State:        w.State,
			Merged:       w.MergedAt != "",
			Author:       w.User.Login,
			CreatedAt:    w.CreatedAt,
			MergedAt:     w.MergedAt,
			HeadRef:      w.Head.Ref,
			BaseRef:      w.Base.Ref,
			ChangedFiles: w.ChangedFiles,
			Additions:    w.Additions,
			Deletions:    w.Deletions,
			URL:          w.URL,
		}
		for _, l := range w.Labels {
			pr.Labels = append(pr.Labels, l.Name)
		}
		prs = append(prs, pr)
	}

	return prs, nil
}

func (c *HTTPCodeHostClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("code host request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("code host request: unexpected status %d: %s", resp.StatusCode, raw)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode code host response: %w", err)
	}

	return nil
}

type commitsArgs struct {
	Repo   string  `json:"repo" description:"Repository in owner/repo format"`
	Since  *string `json:"since,omitempty" description:"ISO 8601 date to start from"`
	Until  *string `json:"until,omitempty" description:"ISO 8601 date to end at"`
	Author *string `json:"author,omitempty" description:"Filter by author username"`
	Path   *string `json:"path,omitempty" description:"Filter commits touching this file path"`
	Limit  *int    `json:"limit,omitempty" description:"Maximum number of commits to return"`
}

// NewCommitsTool returns the commit-retrieval tool. Results are stored in
// shared memory; the model receives the memory key.
func NewCommitsTool(client CodeHostClient) tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"get_commits",
		"Fetch commits from a repository. Stores commit data in shared memory for the analysis and summary tools and returns the memory key of the result.",
		commitsArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			q := CommitQuery{Repo: args["repo"].(string)}
			if v, ok := args["since"].(string); ok {
				q.Since = v
			}
			if v, ok := args["until"].(string); ok {
				q.Until = v
			}
			if v, ok := args["author"].(string); ok {
				q.Author = v
			}
			if v, ok := args["path"].(string); ok {
				q.Path = v
			}
			if v, ok := args["limit"].(float64); ok {
				q.Limit = int(v)
			}

			commits, err := client.Commits(tc.Context(), q)
			if err != nil {
				return nil, err
			}

			key := tc.StateKey("codehost_commits")
			tc.SetState(key, commits)
			tc.Notify("get_commits", fmt.Sprintf("Retrieved %d commits from %s.", len(commits), q.Repo))

			return fmt.Sprintf("Retrieved %d commits from %s. The memory key is %s", len(commits), q.Repo, key), nil
		},
	)
}

type pullRequestsArgs struct {
	Repo  string  `json:"repo" description:"Repository in owner/repo format"`
	State *string `json:"state,omitempty" description:"Filter by state: open, closed or all"`
	Limit *int    `json:"limit,omitempty" description:"Maximum number of pull requests to return"`
}

// NewPullRequestsTool returns the pull-request-retrieval tool. Results are
// stored in shared memory; the model receives the memory key.
func NewPullRequestsTool(client CodeHostClient) tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"get_pull_requests",
		"Fetch pull requests from a repository. Stores pull request data in shared memory for the analysis and summary tools and returns the memory key of the result.",
		pullRequestsArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			q := PullRequestQuery{Repo: args["repo"].(string)}
			if v, ok := args["state"].(string); ok {
				q.State = v
			}
			if v, ok := args["limit"].(float64); ok {
				q.Limit = int(v)
			}

			prs, err := client.PullRequests(tc.Context(), q)
			if err != nil {
				return nil, err
			}

			key := tc.StateKey("codehost_prs")
			tc.SetState(key, prs)
			tc.Notify("get_pull_requests", fmt.Sprintf("Retrieved %d pull requests from %s.", len(prs), q.Repo))

			return fmt.Sprintf("Retrieved %d pull requests from %s. The memory key is %s", len(prs), q.Repo, key), nil
		},
	)
}

// CommitUnit renders a commit for the aggregator.
func CommitUnit(c Commit) aggregate.Unit {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Commit SHA: %s\n", c.SHA)
	fmt.Fprintf(&sb, "Message: %s\n", orNA(c.Message))
	fmt.Fprintf(&sb, "Author: %s\n", orNA(c.Author))
	fmt.Fprintf(&sb, "Date: %s\n", orNA(c.Date))

	if c.Additions != 0 || c.Deletions != 0 {
		fmt.Fprintf(&sb, "Changes: +%d -%d\n", c.Additions, c.Deletions)
	}
	if c.URL != "" {
		fmt.Fprintf(&sb, "URL: %s\n", c.URL)
	}

	return aggregate.Unit{
		Content: sb.String(),
		Metadata: map[string]string{
			"key":    shortSHA(c.SHA),
			"author": orNA(c.Author),
			"type":   "commit",
		},
	}
}

// PullRequestUnit renders a pull request for the aggregator.
func PullRequestUnit(pr PullRequest) aggregate.Unit {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Pull Request #%d\n", pr.Number)
	fmt.Fprintf(&sb, "Title: %s\n", orNA(pr.Title))

	state := pr.State
	if pr.Merged {
		state += " (merged)"
	}
	fmt.Fprintf(&sb, "State: %s\n", orNA(state))
	fmt.Fprintf(&sb, "Author: %s\n", orNA(pr.Author))
	fmt.Fprintf(&sb, "Created: %s\n", orNA(pr.CreatedAt))

	if pr.MergedAt != "" {
		fmt.Fprintf(&sb, "Merged: %s\n", pr.MergedAt)
	}
	if pr.HeadRef != "" || pr.BaseRef != "" {
		fmt.Fprintf(&sb, "Branches: %s -> %s\n", pr.HeadRef, pr.BaseRef)
	}
	if pr.Body != "" {
		fmt.Fprintf(&sb, "Description:\n%s\n", pr.Body)
	}

	fmt.Fprintf(&sb, "Changes: %d files, +%d -%d\n", pr.ChangedFiles, pr.Additions, pr.Deletions)

	if len(pr.Labels) > 0 {
		fmt.Fprintf(&sb, "Labels: %s\n", strings.Join(pr.Labels, ", "))
	}
	if pr.URL != "" {
		fmt.Fprintf(&sb, "URL: %s\n", pr.URL)
	}

	return aggregate.Unit{
		Content: sb.String(),
		Metadata: map[string]string{
			"key":    fmt.Sprintf("#%d", pr.Number),
			"author": orNA(pr.Author),
			"type":   "pull_request",
		},
	}
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
