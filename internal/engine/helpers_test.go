package engine

import (
	"context"
	"fmt"

	serrors "github.com/p-blackswan/progress-sync/internal/errors"
)

// fakeSource is an in-memory Source with call accounting.
type fakeSource struct {
	items    map[string]WorkItem
	children map[string][]WorkItem
	subtasks map[string][]WorkItem
	dates    map[string]DatePair

	childrenCalls map[string]int
	itemCalls     map[string]int

	writtenDates  map[string]DatePair
	writeDatesErr error
	childrenErr   error

	startFieldOff bool
	endFieldOff   bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		items:         make(map[string]WorkItem),
		children:      make(map[string][]WorkItem),
		subtasks:      make(map[string][]WorkItem),
		dates:         make(map[string]DatePair),
		childrenCalls: make(map[string]int),
		itemCalls:     make(map[string]int),
		writtenDates:  make(map[string]DatePair),
	}
}

func (f *fakeSource) WorkItem(_ context.Context, key string) (WorkItem, error) {
	f.itemCalls[key]++
	item, ok := f.items[key]
	if !ok {
		return WorkItem{}, fmt.Errorf("issue %s: %w", key, serrors.ErrNotFound)
	}
	return item, nil
}

func (f *fakeSource) Children(_ context.Context, epicKey string) ([]WorkItem, error) {
	f.childrenCalls[epicKey]++
	if f.childrenErr != nil {
		return nil, f.childrenErr
	}
	return f.children[epicKey], nil
}

func (f *fakeSource) Subtasks(_ context.Context, key string) ([]WorkItem, error) {
	return f.subtasks[key], nil
}

func (f *fakeSource) IssueDates(_ context.Context, key string) (DatePair, error) {
	return f.dates[key], nil
}

func (f *fakeSource) WriteDates(_ context.Context, key string, dates DatePair) error {
	if f.writeDatesErr != nil {
		return f.writeDatesErr
	}
	f.writtenDates[key] = dates
	f.dates[key] = dates
	return nil
}

func (f *fakeSource) DateFields() (start, end bool) {
	return !f.startFieldOff, !f.endFieldOff
}

// fakeDashboard is an in-memory Dashboard that records updates and can
// optionally fold them back into its rows to simulate a real store.
type fakeDashboard struct {
	rows      []TrackedRow
	updates   []RowUpdate
	rowsErr   error
	updateErr error

	// fields overrides the all-enabled default.
	fields *DashboardFields
}

func (f *fakeDashboard) Rows(_ context.Context) ([]TrackedRow, error) {
	if f.rowsErr != nil {
		return nil, f.rowsErr
	}
	out := make([]TrackedRow, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeDashboard) UpdateRow(_ context.Context, update RowUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, update)
	for i := range f.rows {
		if f.rows[i].RowID != update.RowID {
			continue
		}
		if update.Progress != nil {
			v := *update.Progress
			f.rows[i].Progress = &v
		}
		if update.Status != nil {
			f.rows[i].Status = *update.Status
		}
		if update.Start != nil {
			f.rows[i].Start = *update.Start
		}
		if update.End != nil {
			f.rows[i].End = *update.End
		}
	}
	return nil
}

func (f *fakeDashboard) Fields() DashboardFields {
	if f.fields != nil {
		return *f.fields
	}
	return DashboardFields{Status: true, Start: true, End: true}
}

func ptr(v float64) *float64 { return &v }

func item(key string, kind Kind, cat Category, points *float64) WorkItem {
	return WorkItem{Key: key, Kind: kind, Category: cat, Points: points}
}
