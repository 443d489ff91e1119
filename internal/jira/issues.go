package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Issue represents a Jira issue.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// IssueFields contains the field data the sync needs. Raw keeps every
// field of the payload keyed by field id, so story points and configured
// date fields can be read without compile-time knowledge of their ids.
type IssueFields struct {
	Summary   string                     `json:"summary"`
	Status    *IssueStatus               `json:"status,omitempty"`
	IssueType *IssueType                 `json:"issuetype,omitempty"`
	Parent    *ParentRef                 `json:"parent,omitempty"`
	Subtasks  []Issue                    `json:"subtasks,omitempty"`
	Raw       map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the typed fields and captures the full field map.
func (f *IssueFields) UnmarshalJSON(data []byte) error {
	type alias IssueFields
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &a.Raw); err != nil {
		return err
	}
	*f = IssueFields(a)
	return nil
}

// IssueStatus is an issue's workflow status with its category.
type IssueStatus struct {
	Name     string          `json:"name"`
	Category *StatusCategory `json:"statusCategory,omitempty"`
}

// StatusCategory is the three-state taxonomy Jira keeps stable across
// custom workflows: new / indeterminate / done.
type StatusCategory struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// IssueType identifies the kind of issue.
type IssueType struct {
	Name    string `json:"name"`
	Subtask bool   `json:"subtask"`
}

// ParentRef is a back-reference to an issue's parent.
type ParentRef struct {
	Key string `json:"key"`
}

// SearchResult contains JQL search results.
type SearchResult struct {
	Total      int     `json:"total"`
	MaxResults int     `json:"maxResults"`
	StartAt    int     `json:"startAt"`
	Issues     []Issue `json:"issues"`
}

// StoryPoints returns the issue's point estimate from the first matching
// estimate field. Missing, malformed, or negative values are treated as
// absent, never as an error.
func (i Issue) StoryPoints(fieldIDs []string) *float64 {
	for _, id := range fieldIDs {
		raw, ok := i.Fields.Raw[id]
		if !ok || string(raw) == "null" {
			continue
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			if n < 0 {
				continue
			}
			return &n
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if v, perr := strconv.ParseFloat(strings.TrimSpace(s), 64); perr == nil && v >= 0 {
				return &v
			}
		}
	}
	return nil
}

// StringField returns a field's value as a string, or empty when the field
// is missing, null, or not a string.
func (i Issue) StringField(fieldID string) string {
	raw, ok := i.Fields.Raw[fieldID]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// GetIssue fetches an issue by key, restricted to the given fields.
func (c *Client) GetIssue(ctx context.Context, issueKey string, fields []string) (*Issue, error) {
	path := fmt.Sprintf("/rest/api/3/issue/%s", url.PathEscape(issueKey))
	if len(fields) > 0 {
		path += "?fields=" + url.QueryEscape(strings.Join(fields, ","))
	}
	resp, err := c.do(ctx, "GET", path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting issue %s: %w", issueKey, err)
	}

	var issue Issue
	if err := decodeResponse(resp, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// SearchIssues runs a JQL query and returns all matching issues, following
// pagination to the end.
func (c *Client) SearchIssues(ctx context.Context, jql string, fields []string) ([]Issue, error) {
	const pageSize = 100

	var issues []Issue
	startAt := 0
	for {
		body, err := json.Marshal(map[string]interface{}{
			"jql":        jql,
			"startAt":    startAt,
			"maxResults": pageSize,
			"fields":     fields,
		})
		if err != nil {
			return nil, fmt.Errorf("marshaling search: %w", err)
		}

		resp, err := c.do(ctx, "POST", "/rest/api/3/search", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("searching issues: %w", err)
		}

		var page SearchResult
		if err := decodeResponse(resp, &page); err != nil {
			return nil, err
		}

		issues = append(issues, page.Issues...)
		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			return issues, nil
		}
	}
}

// UpdateIssueFields writes field values on an issue. A nil value clears
// the field.
func (c *Client) UpdateIssueFields(ctx context.Context, issueKey string, fields map[string]interface{}) error {
	body, err := json.Marshal(map[string]interface{}{"fields": fields})
	if err != nil {
		return fmt.Errorf("marshaling update: %w", err)
	}

	resp, err := c.do(ctx, "PUT", fmt.Sprintf("/rest/api/3/issue/%s", url.PathEscape(issueKey)), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("updating issue %s: %w", issueKey, err)
	}
	resp.Body.Close()
	return nil
}
