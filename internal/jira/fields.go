package jira

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Field is an entry of the instance's field metadata.
type Field struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FieldIDs holds the discovered estimate and hierarchy field ids.
type FieldIDs struct {
	StoryPoints []string // candidate estimate fields, in discovery order
	EpicLink    string   // legacy "Epic Link" field, empty on newer sites
}

var customFieldPattern = regexp.MustCompile(`^customfield_\d+$`)

// storyPointNames are the field labels Jira uses for point estimates,
// depending on project type.
var storyPointNames = map[string]bool{
	"story points":         true,
	"story point estimate": true,
}

// Fields fetches the instance's field metadata.
func (c *Client) Fields(ctx context.Context) ([]Field, error) {
	resp, err := c.do(ctx, "GET", "/rest/api/3/field", nil)
	if err != nil {
		return nil, fmt.Errorf("listing fields: %w", err)
	}

	var fields []Field
	if err := decodeResponse(resp, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// ResolveFieldIDs discovers the story-point estimate fields and the legacy
// Epic Link field from field metadata.
func ResolveFieldIDs(fields []Field) FieldIDs {
	var ids FieldIDs
	for _, f := range fields {
		name := strings.ToLower(strings.TrimSpace(f.Name))
		if storyPointNames[name] {
			ids.StoryPoints = append(ids.StoryPoints, f.ID)
		}
		if name == "epic link" {
			ids.EpicLink = f.ID
		}
	}
	return ids
}

// ResolveDateField turns a configured date field reference into a field id.
// The reference is either already an id (a built-in like "duedate" or a
// "customfield_NNNNN") or a display name looked up case-insensitively in
// the field metadata. Returns empty when the name matches nothing; callers
// treat that as the field being disabled.
func ResolveDateField(fields []Field, nameOrID string) string {
	ref := strings.TrimSpace(nameOrID)
	if ref == "" {
		return ""
	}
	if customFieldPattern.MatchString(ref) {
		return ref
	}
	lower := strings.ToLower(ref)
	for _, f := range fields {
		if strings.ToLower(strings.TrimSpace(f.Name)) == lower {
			return f.ID
		}
		if f.ID == ref {
			return f.ID
		}
	}
	// A bare builtin id like "duedate" has itself as both id and answer.
	if !strings.Contains(ref, " ") && lower == ref {
		return ref
	}
	return ""
}
