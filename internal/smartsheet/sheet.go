package smartsheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Sheet is a fetched sheet with its columns and rows.
type Sheet struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Column describes one sheet column.
type Column struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// Row is one sheet row. Rows arrive in sheet order.
type Row struct {
	ID        int64  `json:"id"`
	RowNumber int    `json:"rowNumber"`
	Cells     []Cell `json:"cells"`
}

// Cell is a single cell. Value is a number for percent columns and a
// string otherwise; DisplayValue is what the sheet renders.
type Cell struct {
	ColumnID     int64       `json:"columnId"`
	Value        interface{} `json:"value,omitempty"`
	DisplayValue string      `json:"displayValue,omitempty"`
	Hyperlink    *Hyperlink  `json:"hyperlink,omitempty"`
}

// Hyperlink is a cell's link target.
type Hyperlink struct {
	URL string `json:"url"`
}

// RowUpdate is the write payload for one row.
type RowUpdate struct {
	ID    int64  `json:"id"`
	Cells []Cell `json:"cells"`
}

// updateBatchSize is the Smartsheet bulk-update limit the sync stays under.
const updateBatchSize = 400

// GetSheet fetches a full sheet by id.
func (c *Client) GetSheet(ctx context.Context, sheetID int64) (*Sheet, error) {
	resp, err := c.do(ctx, "GET", fmt.Sprintf("/sheets/%d", sheetID), nil)
	if err != nil {
		return nil, fmt.Errorf("getting sheet %d: %w", sheetID, err)
	}

	var sheet Sheet
	if err := decodeResponse(resp, &sheet); err != nil {
		return nil, err
	}
	return &sheet, nil
}

// UpdateRows writes row updates in batches.
func (c *Client) UpdateRows(ctx context.Context, sheetID int64, updates []RowUpdate) error {
	for _, batch := range chunk(updates, updateBatchSize) {
		body, err := json.Marshal(batch)
		if err != nil {
			return fmt.Errorf("marshaling row updates: %w", err)
		}

		resp, err := c.do(ctx, "PUT", fmt.Sprintf("/sheets/%d/rows", sheetID), bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("updating rows in sheet %d: %w", sheetID, err)
		}
		resp.Body.Close()
	}
	return nil
}

// chunk splits updates into fixed-size batches; the last may be smaller.
func chunk(updates []RowUpdate, size int) [][]RowUpdate {
	if len(updates) == 0 {
		return nil
	}
	batches := make([][]RowUpdate, 0, (len(updates)+size-1)/size)
	for size < len(updates) {
		batches = append(batches, updates[:size])
		updates = updates[size:]
	}
	return append(batches, updates)
}
