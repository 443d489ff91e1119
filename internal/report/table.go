// Package report renders run summaries for the CLI.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/p-blackswan/progress-sync/internal/engine"
)

// WriteTable renders the per-row report: every resolved value (existing,
// computed, final) for progress and status, with the protection flag. Rows
// are sorted by kind then key so diff review is stable across runs.
func WriteTable(w io.Writer, sum *engine.Summary) {
	outcomes := make([]engine.RowOutcome, 0, len(sum.Outcomes))
	for _, o := range sum.Outcomes {
		if o.State == engine.RowSkipped || o.State == engine.RowFailed {
			continue
		}
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool {
		if outcomes[i].Kind != outcomes[j].Kind {
			return outcomes[i].Kind < outcomes[j].Kind
		}
		return outcomes[i].Key < outcomes[j].Key
	})

	fmt.Fprintf(w, "\nRows (existing -> new -> final), run %s:\n", sum.RunID)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ISSUE\tKIND\tBASIS\tDONE\tTOTAL\tEXISTING\tNEW\tFINAL\tPROTECTED\tSTATUS")
	for _, o := range outcomes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%v\t%s\n",
			o.Key,
			o.Kind,
			o.Result.Basis,
			formatAmount(o.Result.Basis, o.Result.Completed),
			formatAmount(o.Result.Basis, o.Result.Total),
			formatExisting(o.Progress),
			formatPercentDecision(o.Progress, func(d *engine.ProgressDecision) float64 { return d.Computed }),
			formatPercentDecision(o.Progress, func(d *engine.ProgressDecision) float64 { return d.Final }),
			o.ProgressProtected(),
			formatStatus(o.Status),
		)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d rows: %d applied, %d unchanged, %d reported, %d skipped, %d failed\n",
		sum.Rows, sum.Applied, sum.Unchanged, sum.Reported, sum.Skipped, sum.Failed)
}

func formatAmount(basis engine.Basis, v float64) string {
	if basis == engine.BasisStoryPoints {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%d", int(v))
}

func formatExisting(d *engine.ProgressDecision) string {
	if d == nil || d.Old == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *d.Old*100)
}

func formatPercentDecision(d *engine.ProgressDecision, get func(*engine.ProgressDecision) float64) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", get(d)*100)
}

func formatStatus(d *engine.StatusDecision) string {
	if d == nil {
		return "-"
	}
	if d.Final == string(d.Computed) {
		return d.Final
	}
	return fmt.Sprintf("%s (kept %q)", d.Computed, d.Old)
}
