// Package engine implements the reconciliation logic between the Jira
// work-item hierarchy and the Smartsheet dashboard: progress and status
// computation, date normalization, overwrite protection, and the per-run
// coordinator that ties them together. It performs no I/O itself; both
// stores are reached through the Source and Dashboard interfaces.
package engine

import "context"

// Kind classifies a work item within the hierarchy.
type Kind string

const (
	KindEpic     Kind = "epic"
	KindStandard Kind = "standard"
	KindSubtask  Kind = "subtask"
)

// Category is the three-state completion taxonomy on the Jira side.
type Category string

const (
	CategoryToDo       Category = "todo"
	CategoryInProgress Category = "inprogress"
	CategoryDone       Category = "done"
)

// WorkItem is a read-only view of a Jira issue as the engine needs it.
type WorkItem struct {
	Key       string
	Kind      Kind
	Category  Category
	Points    *float64 // story point estimate, nil when unset or malformed
	ParentKey string
}

// IsDone reports whether the item's status category is Done.
func (w WorkItem) IsDone() bool {
	return w.Category == CategoryDone
}

// TrackedRow is a dashboard row at the start of its reconciliation. It is
// the baseline every protection decision compares against.
type TrackedRow struct {
	RowID    int64
	IssueKey string   // empty when the row has no resolvable Jira key
	Progress *float64 // fraction in [0,1], nil when the cell is empty
	Status   string   // empty when the cell is empty
	Start    string   // canonical YYYY-MM-DD, empty when absent
	End      string
}

// DatePair carries the start/end schedule dates of one issue or row.
// Empty string means absent.
type DatePair struct {
	Start string
	End   string
}

// RowUpdate names the dashboard fields to write for one row. Nil pointers
// leave the field untouched; a pointer to the empty string clears it.
type RowUpdate struct {
	RowID    int64
	Progress *float64
	Status   *string
	Start    *string
	End      *string
}

// IsEmpty reports whether the update would touch nothing.
func (u RowUpdate) IsEmpty() bool {
	return u.Progress == nil && u.Status == nil && u.Start == nil && u.End == nil
}

// DashboardFields flags which optional dashboard fields are backed by a
// real column. A disabled field gets no decision and no write; progress and
// the issue key are always required.
type DashboardFields struct {
	Status bool
	Start  bool
	End    bool
}

// Source is the authoritative-store collaborator (Jira transport).
type Source interface {
	// WorkItem fetches a single issue. Returns errors.ErrNotFound when the
	// key does not resolve.
	WorkItem(ctx context.Context, key string) (WorkItem, error)

	// Children returns the non-subtask children of an epic, in a stable
	// order. Empty slice when the epic has none.
	Children(ctx context.Context, epicKey string) ([]WorkItem, error)

	// Subtasks returns the subtasks of a story, in a stable order.
	Subtasks(ctx context.Context, key string) ([]WorkItem, error)

	// IssueDates reads the issue's schedule dates from the configured
	// start/end fields, already normalized to YYYY-MM-DD.
	IssueDates(ctx context.Context, key string) (DatePair, error)

	// WriteDates writes the schedule dates back to the issue. An empty
	// component clears the corresponding field.
	WriteDates(ctx context.Context, key string, dates DatePair) error

	// DateFields reports which schedule date fields resolved on the issue
	// store. A date component whose field is disabled is never written back.
	DateFields() (start, end bool)
}

// Dashboard is the dashboard-store collaborator (Smartsheet transport).
type Dashboard interface {
	// Rows returns all tracked rows in sheet order.
	Rows(ctx context.Context) ([]TrackedRow, error)

	// UpdateRow writes the given fields to one row.
	UpdateRow(ctx context.Context, update RowUpdate) error

	// Fields reports which optional columns resolved on the sheet. Valid
	// after Rows has run.
	Fields() DashboardFields
}
