package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	serrors "github.com/p-blackswan/progress-sync/internal/errors"
)

// progressEpsilon bounds the float comparison that decides whether a
// percent cell actually changed. Keeps repeated runs from rewriting cells
// over rounding noise.
const progressEpsilon = 1e-6

// Config holds the behavior switches for a run.
type Config struct {
	Options
	DryRun bool
}

// Summary aggregates the per-row outcomes of one run.
type Summary struct {
	RunID      string       `json:"run_id"`
	DryRun     bool         `json:"dry_run"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Rows       int          `json:"rows"`
	Applied    int          `json:"applied"`
	Unchanged  int          `json:"unchanged"`
	Reported   int          `json:"reported"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	Protected  int          `json:"protected"`
	WriteFails int          `json:"write_failures"`
	Outcomes   []RowOutcome `json:"outcomes"`
}

// Duration returns the wall-clock length of the run.
func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Coordinator drives one reconciliation run: it iterates tracked rows in
// sheet order, reconciles each, and applies or reports the resulting
// diffs. Rows are processed one at a time; a fresh ChildCache and
// Reconciler are constructed per run so nothing leaks between runs.
type Coordinator struct {
	source    Source
	dashboard Dashboard
	cfg       Config
	logger    zerolog.Logger
}

// NewCoordinator wires a coordinator over the two store collaborators.
func NewCoordinator(source Source, dashboard Dashboard, cfg Config, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		source:    source,
		dashboard: dashboard,
		cfg:       cfg,
		logger:    logger.With().Str("component", "coordinator").Logger(),
	}
}

// Run executes a full reconciliation pass. Per-row failures are recorded
// in the summary and do not stop the run; the only fatal condition is
// being unable to fetch the tracked rows at all.
func (c *Coordinator) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.NewString(),
		DryRun:    c.cfg.DryRun,
		StartedAt: time.Now(),
	}
	logger := c.logger.With().Str("run_id", summary.RunID).Logger()

	rows, err := c.dashboard.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching tracked rows: %w", err)
	}
	summary.Rows = len(rows)
	logger.Info().Int("rows", len(rows)).Bool("dry_run", c.cfg.DryRun).Msg("run started")

	cache := NewChildCache(c.source)
	reconciler := NewReconciler(c.source, cache, c.cfg.Options, c.dashboard.Fields(), logger)
	wbStart, wbEnd := c.source.DateFields()

	for _, row := range rows {
		outcome := reconciler.Reconcile(ctx, row)

		switch outcome.State {
		case RowSkipped:
			summary.Skipped++
		case RowFailed:
			summary.Failed++
			logger.Error().Str("key", row.IssueKey).Str("error", outcome.Err).Msg("row failed")
		case RowDecided:
			if outcome.ProgressProtected() {
				summary.Protected++
			}
			c.finish(ctx, row, &outcome, summary, wbStart, wbEnd, logger)
		}

		summary.Outcomes = append(summary.Outcomes, outcome)
	}

	summary.FinishedAt = time.Now()
	logger.Info().
		Int("applied", summary.Applied).
		Int("unchanged", summary.Unchanged).
		Int("reported", summary.Reported).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("protected", summary.Protected).
		Int("write_failures", summary.WriteFails).
		Dur("duration", summary.Duration()).
		Msg("run finished")

	return summary, nil
}

// finish applies or reports a decided row. wbStart and wbEnd gate the
// Jira-side date write-back to the fields that actually resolved.
func (c *Coordinator) finish(ctx context.Context, row TrackedRow, outcome *RowOutcome, summary *Summary, wbStart, wbEnd bool, logger zerolog.Logger) {
	update := buildRowUpdate(row, *outcome)
	dates, datesChanged := buildDateWriteBack(*outcome, wbStart, wbEnd)

	if c.cfg.DryRun {
		outcome.State = RowReported
		summary.Reported++
		return
	}

	if update.IsEmpty() && !datesChanged {
		outcome.State = RowUnchanged
		summary.Unchanged++
		return
	}

	wrote := false
	if !update.IsEmpty() {
		if err := c.dashboard.UpdateRow(ctx, update); err != nil {
			outcome.WriteErrors = append(outcome.WriteErrors, fmt.Sprintf("dashboard: %v", err))
			summary.WriteFails++
			logger.Error().Err(err).Str("key", outcome.Key).Int64("row_id", row.RowID).Msg("dashboard write failed")
		} else {
			wrote = true
		}
	}
	if datesChanged {
		if err := c.source.WriteDates(ctx, outcome.Key, dates); err != nil {
			outcome.WriteErrors = append(outcome.WriteErrors, fmt.Sprintf("issue dates: %v", err))
			summary.WriteFails++
			logger.Error().Err(err).Str("key", outcome.Key).Msg("issue date write failed")
		} else {
			wrote = true
		}
	}

	if wrote {
		outcome.State = RowApplied
		summary.Applied++
	} else {
		outcome.State = RowFailed
		outcome.Err = serrors.ErrWriteFailed.Error()
		summary.Failed++
	}
}

// buildRowUpdate collects the dashboard fields whose final value differs
// from what the row already holds. Equal values produce no write, which is
// what makes back-to-back runs idempotent.
func buildRowUpdate(row TrackedRow, o RowOutcome) RowUpdate {
	update := RowUpdate{RowID: row.RowID}

	if o.Progress != nil {
		if row.Progress == nil || math.Abs(*row.Progress-o.Progress.Final) > progressEpsilon {
			v := o.Progress.Final
			update.Progress = &v
		}
	}
	if o.Status != nil && o.Status.Final != "" && o.Status.Final != row.Status {
		v := o.Status.Final
		update.Status = &v
	}
	if o.Start != nil && o.Start.Final != row.Start {
		v := o.Start.Final
		update.Start = &v
	}
	if o.End != nil && o.End.Final != row.End {
		v := o.End.Final
		update.End = &v
	}
	return update
}

// buildDateWriteBack decides whether the final dates need pushing to the
// issue's own schedule fields. A component with no resolved Jira field, or
// no dashboard decision, can never differ; counting it would mark in-sync
// rows applied on every run.
func buildDateWriteBack(o RowOutcome, startEnabled, endEnabled bool) (DatePair, bool) {
	dates := o.IssueDates
	changed := false
	if startEnabled && o.Start != nil && o.Start.Final != o.IssueDates.Start {
		dates.Start = o.Start.Final
		changed = true
	}
	if endEnabled && o.End != nil && o.End.Final != o.IssueDates.End {
		dates.End = o.End.Final
		changed = true
	}
	return dates, changed
}
