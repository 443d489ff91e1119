package jira

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/progress-sync/internal/engine"
	"github.com/p-blackswan/progress-sync/internal/retry"
)

// SourceConfig names the configured schedule fields, by display name or id.
type SourceConfig struct {
	StartField string
	EndField   string
}

// Source adapts the Jira client to the engine's Source interface. Field ids
// are resolved once at construction; schedule fields that resolve to
// nothing are disabled for the process lifetime and logged.
type Source struct {
	client   *Client
	retryCfg retry.Config
	logger   zerolog.Logger

	fieldIDs   FieldIDs
	startField string
	endField   string
}

// NewSource builds a Source, resolving estimate and date field ids against
// the instance's field metadata.
func NewSource(ctx context.Context, client *Client, cfg SourceConfig, logger zerolog.Logger) (*Source, error) {
	s := &Source{
		client:   client,
		retryCfg: retry.DefaultConfig(),
		logger:   logger.With().Str("component", "jira_source").Logger(),
	}

	var fields []Field
	err := retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		var ferr error
		fields, ferr = client.Fields(ctx)
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("resolving jira fields: %w", err)
	}

	s.fieldIDs = ResolveFieldIDs(fields)
	s.startField = ResolveDateField(fields, cfg.StartField)
	s.endField = ResolveDateField(fields, cfg.EndField)

	s.logger.Info().
		Strs("story_point_fields", s.fieldIDs.StoryPoints).
		Str("epic_link_field", s.fieldIDs.EpicLink).
		Str("start_field", s.startField).
		Str("end_field", s.endField).
		Msg("jira fields resolved")

	if s.startField == "" && cfg.StartField != "" {
		s.logger.Warn().Str("ref", cfg.StartField).Msg("start date field not found, start dates disabled")
	}
	if s.endField == "" && cfg.EndField != "" {
		s.logger.Warn().Str("ref", cfg.EndField).Msg("end date field not found, end dates disabled")
	}

	return s, nil
}

// issueFields is the field list requested for single-issue reads.
func (s *Source) issueFields() []string {
	fields := []string{"summary", "status", "issuetype", "parent"}
	fields = append(fields, s.fieldIDs.StoryPoints...)
	return fields
}

// WorkItem implements engine.Source.
func (s *Source) WorkItem(ctx context.Context, key string) (engine.WorkItem, error) {
	var issue *Issue
	err := retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		var gerr error
		issue, gerr = s.client.GetIssue(ctx, key, s.issueFields())
		return gerr
	})
	if err != nil {
		return engine.WorkItem{}, err
	}
	return s.toWorkItem(*issue), nil
}

// Children implements engine.Source. Current Jira resolves epic membership
// through parentEpic; older sites still use the Epic Link custom field, so
// an empty result falls through to the legacy clause.
func (s *Source) Children(ctx context.Context, epicKey string) ([]engine.WorkItem, error) {
	clauses := []string{
		fmt.Sprintf(`parentEpic = %q AND issuetype in standardIssueTypes()`, epicKey),
		fmt.Sprintf(`"Epic Link" = %q AND issuetype in standardIssueTypes()`, epicKey),
	}

	for _, jql := range clauses {
		var issues []Issue
		err := retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
			var serr error
			issues, serr = s.client.SearchIssues(ctx, jql, s.issueFields())
			return serr
		})
		if err != nil {
			// The legacy clause fails outright on sites without the field.
			if strings.Contains(jql, "Epic Link") {
				break
			}
			return nil, err
		}
		if len(issues) > 0 {
			items := make([]engine.WorkItem, 0, len(issues))
			for _, issue := range issues {
				items = append(items, s.toWorkItem(issue))
			}
			return items, nil
		}
	}
	return nil, nil
}

// Subtasks implements engine.Source. Subtask stubs embedded in the parent
// issue carry their status, which is all the progress math needs.
func (s *Source) Subtasks(ctx context.Context, key string) ([]engine.WorkItem, error) {
	var issue *Issue
	err := retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		var gerr error
		issue, gerr = s.client.GetIssue(ctx, key, []string{"subtasks"})
		return gerr
	})
	if err != nil {
		return nil, err
	}

	items := make([]engine.WorkItem, 0, len(issue.Fields.Subtasks))
	for _, sub := range issue.Fields.Subtasks {
		items = append(items, s.toWorkItem(sub))
	}
	return items, nil
}

// IssueDates implements engine.Source.
func (s *Source) IssueDates(ctx context.Context, key string) (engine.DatePair, error) {
	if s.startField == "" && s.endField == "" {
		return engine.DatePair{}, nil
	}

	fields := make([]string, 0, 2)
	if s.startField != "" {
		fields = append(fields, s.startField)
	}
	if s.endField != "" {
		fields = append(fields, s.endField)
	}

	var issue *Issue
	err := retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		var gerr error
		issue, gerr = s.client.GetIssue(ctx, key, fields)
		return gerr
	})
	if err != nil {
		return engine.DatePair{}, err
	}

	var dates engine.DatePair
	if s.startField != "" {
		dates.Start = engine.NormalizeDate(issue.StringField(s.startField))
	}
	if s.endField != "" {
		dates.End = engine.NormalizeDate(issue.StringField(s.endField))
	}
	return dates, nil
}

// WriteDates implements engine.Source. An empty component clears the
// corresponding field. Disabled fields are left alone.
func (s *Source) WriteDates(ctx context.Context, key string, dates engine.DatePair) error {
	fields := make(map[string]interface{})
	if s.startField != "" {
		fields[s.startField] = nullableDate(dates.Start)
	}
	if s.endField != "" {
		fields[s.endField] = nullableDate(dates.End)
	}
	if len(fields) == 0 {
		return nil
	}

	return retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		return s.client.UpdateIssueFields(ctx, key, fields)
	})
}

// DateFields implements engine.Source. A configured field that did not
// resolve against the instance's metadata reports false and is left alone.
func (s *Source) DateFields() (start, end bool) {
	return s.startField != "", s.endField != ""
}

func nullableDate(date string) interface{} {
	if date == "" {
		return nil
	}
	return date
}

func (s *Source) toWorkItem(issue Issue) engine.WorkItem {
	item := engine.WorkItem{
		Key:    issue.Key,
		Kind:   engine.KindStandard,
		Points: issue.StoryPoints(s.fieldIDs.StoryPoints),
	}

	if it := issue.Fields.IssueType; it != nil {
		switch {
		case it.Subtask:
			item.Kind = engine.KindSubtask
		case strings.EqualFold(it.Name, "epic"):
			item.Kind = engine.KindEpic
		}
	}

	item.Category = engine.CategoryToDo
	if st := issue.Fields.Status; st != nil && st.Category != nil {
		switch strings.ToLower(st.Category.Key) {
		case "done":
			item.Category = engine.CategoryDone
		case "indeterminate":
			item.Category = engine.CategoryInProgress
		}
	}

	if p := issue.Fields.Parent; p != nil {
		item.ParentKey = p.Key
	}
	return item
}
