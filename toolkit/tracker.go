package toolkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/taskmesh/aggregate"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/tool"
)

// Comment is one comment on a tracker item.
type Comment struct {
	Author string `json:"author"`
	Body   string `json:"body"`
}

// Item is one issue-tracker item, flattened from the tracker's wire format to
// the fields the analysis and summary tools care about.
type Item struct {
	Key             string    `json:"key"`
	Summary         string    `json:"summary"`
	Status          string    `json:"status"`
	Priority        string    `json:"priority"`
	Description     string    `json:"description"`
	Comments        []Comment `json:"comments,omitempty"`
	Labels          []string  `json:"labels,omitempty"`
	Components      []string  `json:"components,omitempty"`
	AffectsVersions []string  `json:"affects_versions,omitempty"`
	IssueType       string    `json:"issue_type"`
	Updated         string    `json:"updated"`
}

// TrackerClient searches an issue tracker with a JQL-style query.
type TrackerClient interface {
	Search(ctx context.Context, query string, start, limit int) ([]Item, error)
}

// HTTPTrackerClientOptions configures an HTTPTrackerClient.
type HTTPTrackerClientOptions struct {
	// HTTPClient is the client used for requests. Defaults to one with a 30s
	// timeout.
	HTTPClient *http.Client
}

// HTTPTrackerClient talks to a Jira-compatible search endpoint.
type HTTPTrackerClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPTrackerClient creates a tracker client for the given base URL,
// authenticating with a bearer token.
func NewHTTPTrackerClient(baseURL, token string, optFns ...func(o *HTTPTrackerClientOptions)) *HTTPTrackerClient {
	opts := HTTPTrackerClientOptions{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &HTTPTrackerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  opts.HTTPClient,
	}
}

// Search runs a JQL query against the tracker's search API.
func (c *HTTPTrackerClient) Search(ctx context.Context, query string, start, limit int) ([]Item, error) {
	payload := map[string]any{
		"jql":        query,
		"startAt":    start,
		"maxResults": limit,
		"fields": []string{
			"summary", "status", "priority", "description", "comment",
			"labels", "components", "versions", "issuetype", "updated",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode search payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/api/2/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tracker search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("tracker search: unexpected status %d: %s", resp.StatusCode, raw)
	}

	var wire struct {
		Issues []struct {
			Key    string `json:"key"`
			Fields struct {
				Summary     string `json:"summary"`
				Description string `json:"description"`
				Updated     string `json:"updated"`
				Status      struct {
					Name string `json:"name"`
				} `json:"status"`
				Priority struct {
					Name string `json:"name"`
				} `json:"priority"`
				IssueType struct {
					Name string `json:"name"`
				} `json:"issuetype"`
				Labels  []string `json:"labels"`
				Comment struct {
					Comments []struct {
						Author struct {
							DisplayName string `json:"displayName"`
						} `json:"author"`
						Body string `json:"body"`
					} `json:"comments"`
				} `json:"comment"`
				Components []struct {
					Name string `json:"name"`
				} `json:"components"`
				Versions []struct {
					Name string `json:"name"`
				} `json:"versions"`
			} `json:"fields"`
		} `json:"issues"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode tracker response: %w", err)
	}

	items := make([]Item, 0, len(wire.Issues))

	for _, issue := range wire.Issues {
		item := Item{
			Key:         issue.Key,
			Summary:     issue.Fields.Summary,
			Status:      issue.Fields.Status.Name,
			Priority:    issue.Fields.Priority.Name,
			Description: issue.Fields.Description,
			Labels:      issue.Fields.Labels,
			IssueType:   issue.Fields.IssueType.Name,
			Updated:     issue.Fields.Updated,
		}

		for _, c := range issue.Fields.Comment.Comments {
			item.Comments = append(item.Comments, Comment{Author: c.Author.DisplayName, Body: c.Body})
		}
		for _, c := range issue.Fields.Components {
			item.Components = append(item.Components, c.Name)
		}
		for _, v := range issue.Fields.Versions {
			item.AffectsVersions = append(item.AffectsVersions, v.Name)
		}

		items = append(items, item)
	}

	return items, nil
}

type trackerSearchArgs struct {
	Query string `json:"query" description:"The JQL query string to execute"`
	Start *int   `json:"start,omitempty" description:"Starting index for pagination, 0-based"`
	Limit *int   `json:"limit,omitempty" description:"Maximum number of items to return; fetch only as many as you need"`
}

// NewTrackerSearchTool returns the tracker search tool. Results are stored in
// shared memory under the tool's producer key; the model receives only the
// memory key, never the raw items.
func NewTrackerSearchTool(client TrackerClient) tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"tracker_search",
		"Execute a JQL-style query to search for issue-tracker items. Stores structured item data in shared memory for the analysis and summary tools and returns the memory key of the result. Use the limit parameter to fetch only as many items as you need.",
		trackerSearchArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			query := args["query"].(string)

			start, limit := 0, 50
			if v, ok := args["start"].(float64); ok {
				start = int(v)
			}
			if v, ok := args["limit"].(float64); ok {
				limit = int(v)
			}

			items, err := client.Search(tc.Context(), query, start, limit)
			if err != nil {
				return nil, err
			}

			key := tc.StateKey("tracker_search")
			tc.SetState(key, items)
			tc.Notify("tracker_search", fmt.Sprintf("Retrieved %d items.", len(items)))

			return fmt.Sprintf("Found %d items. The memory key for this list of items is %s", len(items), key), nil
		},
	)
}

// ItemUnit renders a tracker item for the aggregator, keeping the fields that
// carry analytical signal: description, comments, labels, components,
// versions, type and recency.
func ItemUnit(item Item) aggregate.Unit {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Key: %s\n", item.Key)
	fmt.Fprintf(&sb, "Summary: %s\n", orNA(item.Summary))
	fmt.Fprintf(&sb, "Status: %s\n", orNA(item.Status))
	fmt.Fprintf(&sb, "Priority: %s\n", orNA(item.Priority))

	if item.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", item.Description)
	}

	if len(item.Comments) > 0 {
		fmt.Fprintf(&sb, "Comments (%d):\n", len(item.Comments))
		for _, c := range item.Comments {
			author := c.Author
			if author == "" {
				author = "Unknown"
			}
			fmt.Fprintf(&sb, "  - %s: %s\n", author, c.Body)
		}
	}

	if len(item.Labels) > 0 {
		fmt.Fprintf(&sb, "Labels: %s\n", strings.Join(item.Labels, ", "))
	}
	if len(item.Components) > 0 {
		fmt.Fprintf(&sb, "Components: %s\n", strings.Join(item.Components, ", "))
	}
	if len(item.AffectsVersions) > 0 {
		fmt.Fprintf(&sb, "Affects Versions: %s\n", strings.Join(item.AffectsVersions, ", "))
	}
	if item.IssueType != "" {
		fmt.Fprintf(&sb, "Issue Type: %s\n", item.IssueType)
	}
	if item.Updated != "" {
		fmt.Fprintf(&sb, "Updated: %s\n", item.Updated)
	}

	return aggregate.Unit{
		Content: sb.String(),
		Metadata: map[string]string{
			"key":        item.Key,
			"status":     orNA(item.Status),
			"priority":   orNA(item.Priority),
			"issue_type": orNA(item.IssueType),
		},
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
