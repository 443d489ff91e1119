package smartsheet

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/progress-sync/internal/engine"
	"github.com/p-blackswan/progress-sync/internal/retry"
)

// Columns names the sheet columns the sync reads and writes. Jira and
// Progress are required; the rest are optional and simply disable their
// field when the sheet has no such column.
type Columns struct {
	Jira     string
	Progress string
	Status   string
	Start    string
	End      string
}

// columnIDs holds resolved column ids; zero means absent or disabled.
type columnIDs struct {
	jira     int64
	progress int64
	status   int64
	start    int64
	end      int64
}

// Dashboard adapts one sheet to the engine's Dashboard interface. Column
// ids are resolved on each Rows call, so a run always works against the
// sheet's current layout.
type Dashboard struct {
	client   *Client
	sheetID  int64
	titles   Columns
	retryCfg retry.Config
	logger   zerolog.Logger

	cols columnIDs
}

// NewDashboard creates a dashboard adapter over the given sheet.
func NewDashboard(client *Client, sheetID int64, titles Columns, logger zerolog.Logger) *Dashboard {
	return &Dashboard{
		client:   client,
		sheetID:  sheetID,
		titles:   titles,
		retryCfg: retry.DefaultConfig(),
		logger:   logger.With().Str("component", "dashboard").Int64("sheet_id", sheetID).Logger(),
	}
}

// Rows implements engine.Dashboard. Rows come back in sheet order; rows
// without a resolvable issue key are included with an empty key so the
// engine can count them as skipped.
func (d *Dashboard) Rows(ctx context.Context) ([]engine.TrackedRow, error) {
	var sheet *Sheet
	err := retry.Do(ctx, d.retryCfg, func(ctx context.Context) error {
		var gerr error
		sheet, gerr = d.client.GetSheet(ctx, d.sheetID)
		return gerr
	})
	if err != nil {
		return nil, err
	}

	if err := d.resolveColumns(sheet); err != nil {
		return nil, err
	}

	rows := make([]engine.TrackedRow, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		tracked := engine.TrackedRow{
			RowID:    row.ID,
			IssueKey: ExtractIssueKey(CellForColumn(row, d.cols.jira)),
			Progress: ParsePercent(CellForColumn(row, d.cols.progress)),
		}
		if d.cols.status != 0 {
			tracked.Status = TextValue(CellForColumn(row, d.cols.status))
		}
		if d.cols.start != 0 {
			tracked.Start = DateValue(CellForColumn(row, d.cols.start))
		}
		if d.cols.end != 0 {
			tracked.End = DateValue(CellForColumn(row, d.cols.end))
		}
		rows = append(rows, tracked)
	}
	return rows, nil
}

// UpdateRow implements engine.Dashboard. Fields whose column is absent are
// dropped from the write.
func (d *Dashboard) UpdateRow(ctx context.Context, update engine.RowUpdate) error {
	var cells []Cell
	if update.Progress != nil && d.cols.progress != 0 {
		cells = append(cells, Cell{ColumnID: d.cols.progress, Value: *update.Progress})
	}
	if update.Status != nil && d.cols.status != 0 {
		cells = append(cells, Cell{ColumnID: d.cols.status, Value: *update.Status})
	}
	if update.Start != nil && d.cols.start != 0 {
		cells = append(cells, Cell{ColumnID: d.cols.start, Value: *update.Start})
	}
	if update.End != nil && d.cols.end != 0 {
		cells = append(cells, Cell{ColumnID: d.cols.end, Value: *update.End})
	}
	if len(cells) == 0 {
		return nil
	}

	return retry.Do(ctx, d.retryCfg, func(ctx context.Context) error {
		return d.client.UpdateRows(ctx, d.sheetID, []RowUpdate{{ID: update.RowID, Cells: cells}})
	})
}

// Fields implements engine.Dashboard. Reflects the column resolution of
// the most recent Rows call.
func (d *Dashboard) Fields() engine.DashboardFields {
	return engine.DashboardFields{
		Status: d.cols.status != 0,
		Start:  d.cols.start != 0,
		End:    d.cols.end != 0,
	}
}

func (d *Dashboard) resolveColumns(sheet *Sheet) error {
	var ok bool
	if d.cols.jira, ok = ColumnIDByTitle(sheet, d.titles.Jira); !ok {
		return fmt.Errorf("required column %q not found in sheet %d", d.titles.Jira, d.sheetID)
	}
	if d.cols.progress, ok = ColumnIDByTitle(sheet, d.titles.Progress); !ok {
		return fmt.Errorf("required column %q not found in sheet %d", d.titles.Progress, d.sheetID)
	}

	optional := func(title string, dst *int64, field string) {
		id, found := ColumnIDByTitle(sheet, title)
		if !found && title != "" {
			d.logger.Info().Str("column", title).Str("field", field).Msg("column not found, field disabled")
		}
		*dst = id
	}
	optional(d.titles.Status, &d.cols.status, "status")
	optional(d.titles.Start, &d.cols.start, "start")
	optional(d.titles.End, &d.cols.end, "end")
	return nil
}
