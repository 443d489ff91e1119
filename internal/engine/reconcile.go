package engine

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	syncerrors "github.com/p-blackswan/progress-sync/internal/errors"
)

// RowState is the terminal state of one row's reconciliation.
type RowState string

const (
	// RowDecided: candidates computed and protection applied; the
	// coordinator turns this into Applied, Unchanged, or Reported.
	RowDecided RowState = "decided"
	// RowApplied: at least one field was written to a store.
	RowApplied RowState = "applied"
	// RowUnchanged: every final value already matched; nothing written.
	RowUnchanged RowState = "unchanged"
	// RowReported: dry run; the diff was computed but not written.
	RowReported RowState = "reported"
	// RowSkipped: no resolvable issue key, or the issue no longer exists.
	RowSkipped RowState = "skipped"
	// RowFailed: a collaborator call failed mid-row.
	RowFailed RowState = "failed"
)

// RowOutcome is the full per-row reconciliation record: every resolved
// value (old, computed, final) whether or not it changed, plus any write
// errors recorded against the row.
type RowOutcome struct {
	RowID int64
	Key   string
	Kind  Kind
	State RowState

	// SkipReason or Err explain Skipped/Failed states.
	SkipReason string
	Err        string

	// Progress is nil when progress is undefined for the row (an epic with
	// no children); the remaining fields still reconcile.
	Progress *ProgressDecision
	Result   ProgressResult
	Status   *StatusDecision
	Start    *DateDecision
	End      *DateDecision

	// IssueDates are the issue's own schedule dates, the baseline for the
	// Jira-side write-back.
	IssueDates DatePair

	WriteErrors []string
}

// ProgressProtected reports whether progress protection fired for the row.
func (o RowOutcome) ProgressProtected() bool {
	return o.Progress != nil && o.Progress.Protected()
}

// Options control the reconciliation rules for one run.
type Options struct {
	IncludeSubtasks bool
	ProtectProgress bool
	ProtectDates    bool
}

type epicComputation struct {
	result ProgressResult
	ok     bool
	status Status
}

// Reconciler produces a RowOutcome for each tracked row. It owns the
// per-run lookup caches, so a key appearing in several rows is computed
// once. Like the ChildCache it must not outlive the run that created it.
type Reconciler struct {
	source Source
	cache  *ChildCache
	opts   Options
	dash   DashboardFields
	logger zerolog.Logger

	items map[string]WorkItem
	epics map[string]epicComputation
}

// NewReconciler creates a reconciler for one run over the given source.
// Fields disabled in dash produce no decision, so they can never show up
// in a diff.
func NewReconciler(source Source, cache *ChildCache, opts Options, dash DashboardFields, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		source: source,
		cache:  cache,
		opts:   opts,
		dash:   dash,
		logger: logger.With().Str("component", "reconciler").Logger(),
		items:  make(map[string]WorkItem),
		epics:  make(map[string]epicComputation),
	}
}

// Reconcile runs one row through fetch, compute, and decide. Collaborator
// failures land in the outcome, never abort the caller's loop.
func (r *Reconciler) Reconcile(ctx context.Context, row TrackedRow) RowOutcome {
	outcome := RowOutcome{RowID: row.RowID, Key: row.IssueKey}

	if row.IssueKey == "" {
		outcome.State = RowSkipped
		outcome.SkipReason = "no issue key"
		return outcome
	}

	item, err := r.workItem(ctx, row.IssueKey)
	if err != nil {
		if errors.Is(err, syncerrors.ErrNotFound) {
			r.logger.Warn().Str("key", row.IssueKey).Msg("issue not found, skipping row")
			outcome.State = RowSkipped
			outcome.SkipReason = "issue not found"
			return outcome
		}
		outcome.State = RowFailed
		outcome.Err = err.Error()
		return outcome
	}
	outcome.Kind = item.Kind

	var computedStatus Status
	if item.Kind == KindEpic {
		comp, err := r.epicComputation(ctx, item.Key)
		if err != nil {
			outcome.State = RowFailed
			outcome.Err = err.Error()
			return outcome
		}
		computedStatus = comp.status
		if comp.ok {
			d := DecideProgress(row.Progress, comp.result.Fraction, r.opts.ProtectProgress)
			outcome.Progress = &d
			outcome.Result = comp.result
		}
		// No children: progress stays undefined, status and dates proceed.
	} else {
		var subtasks []WorkItem
		if r.opts.IncludeSubtasks {
			subtasks, err = r.source.Subtasks(ctx, item.Key)
			if err != nil {
				outcome.State = RowFailed
				outcome.Err = err.Error()
				return outcome
			}
		}
		result := StoryProgress(item, subtasks, r.opts.IncludeSubtasks)
		d := DecideProgress(row.Progress, result.Fraction, r.opts.ProtectProgress)
		outcome.Progress = &d
		outcome.Result = result
		computedStatus = StatusOf(item)
	}

	if r.dash.Status {
		statusDecision := DecideStatus(row.Status, computedStatus, outcome.ProgressProtected())
		outcome.Status = &statusDecision
	}

	if r.dash.Start || r.dash.End {
		issueDates, err := r.source.IssueDates(ctx, item.Key)
		if err != nil {
			outcome.State = RowFailed
			outcome.Err = err.Error()
			return outcome
		}
		outcome.IssueDates = issueDates

		// The dashboard is authoritative for dates: the row's cell is the
		// candidate, the issue's own date fills in the baseline when the
		// cell is blank.
		if r.dash.Start {
			startDecision := DecideDate(fallback(row.Start, issueDates.Start), row.Start, r.opts.ProtectDates)
			outcome.Start = &startDecision
		}
		if r.dash.End {
			endDecision := DecideDate(fallback(row.End, issueDates.End), row.End, r.opts.ProtectDates)
			outcome.End = &endDecision
		}
	}

	outcome.State = RowDecided

	r.logger.Debug().
		Str("key", item.Key).
		Str("kind", string(item.Kind)).
		Str("basis", string(outcome.Result.Basis)).
		Str("status", string(computedStatus)).
		Bool("progress_protected", outcome.ProgressProtected()).
		Msg("row decided")

	return outcome
}

func (r *Reconciler) workItem(ctx context.Context, key string) (WorkItem, error) {
	if item, ok := r.items[key]; ok {
		return item, nil
	}
	item, err := r.source.WorkItem(ctx, key)
	if err != nil {
		return WorkItem{}, err
	}
	r.items[key] = item
	return item, nil
}

func (r *Reconciler) epicComputation(ctx context.Context, key string) (epicComputation, error) {
	if comp, ok := r.epics[key]; ok {
		return comp, nil
	}
	children, err := r.cache.ChildrenOf(ctx, key)
	if err != nil {
		return epicComputation{}, err
	}
	result, ok := EpicProgress(children)
	comp := epicComputation{result: result, ok: ok, status: AggregateStatus(children)}
	r.epics[key] = comp
	return comp, nil
}

func fallback(primary, secondary string) string {
	if primary != "" {
		return primary
	}
	return secondary
}
