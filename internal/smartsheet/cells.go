package smartsheet

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/p-blackswan/progress-sync/internal/engine"
)

// issueKeyPattern matches a Jira issue key like "PLAT-123".
var issueKeyPattern = regexp.MustCompile(`\b([A-Z][A-Z0-9]+-\d+)\b`)

// ColumnIDByTitle finds a column by title, case-insensitively.
func ColumnIDByTitle(sheet *Sheet, title string) (int64, bool) {
	want := strings.ToLower(strings.TrimSpace(title))
	for _, col := range sheet.Columns {
		if strings.ToLower(strings.TrimSpace(col.Title)) == want {
			return col.ID, true
		}
	}
	return 0, false
}

// CellForColumn returns the row's cell in the given column, or nil.
func CellForColumn(row Row, columnID int64) *Cell {
	for i := range row.Cells {
		if row.Cells[i].ColumnID == columnID {
			return &row.Cells[i]
		}
	}
	return nil
}

// ExtractIssueKey pulls a Jira key out of a cell, preferring the hyperlink
// URL over the displayed text. Returns empty when no key is present.
func ExtractIssueKey(cell *Cell) string {
	if cell == nil {
		return ""
	}
	if cell.Hyperlink != nil {
		if m := issueKeyPattern.FindStringSubmatch(cell.Hyperlink.URL); m != nil {
			return m[1]
		}
	}
	if s, ok := cell.Value.(string); ok {
		if m := issueKeyPattern.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	if m := issueKeyPattern.FindStringSubmatch(cell.DisplayValue); m != nil {
		return m[1]
	}
	return ""
}

// ParsePercent converts a percent cell into a [0,1] fraction. Percent
// columns store fractions as numbers; the display fallback handles sheets
// where the column is plain text like "25%". Nil when the cell is empty or
// unreadable.
func ParsePercent(cell *Cell) *float64 {
	if cell == nil {
		return nil
	}
	if n, ok := cell.Value.(float64); ok {
		return &n
	}
	dv := strings.TrimSpace(cell.DisplayValue)
	if strings.HasSuffix(dv, "%") {
		raw := strings.TrimSpace(strings.TrimSuffix(dv, "%"))
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			f := v / 100.0
			return &f
		}
	}
	return nil
}

// TextValue returns a cell's text, preferring the stored value over the
// display value. Empty when the cell is blank.
func TextValue(cell *Cell) string {
	if cell == nil {
		return ""
	}
	if s, ok := cell.Value.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	if strings.TrimSpace(cell.DisplayValue) != "" {
		return cell.DisplayValue
	}
	return ""
}

// DateValue returns a date cell in canonical YYYY-MM-DD form, empty when
// the cell is blank or unparseable.
func DateValue(cell *Cell) string {
	if cell == nil {
		return ""
	}
	if s, ok := cell.Value.(string); ok {
		if d := engine.NormalizeDate(s); d != "" {
			return d
		}
	}
	return engine.NormalizeDate(cell.DisplayValue)
}
