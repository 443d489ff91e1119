package engine

import "context"

// ChildCache memoizes children-of-epic lookups for the lifetime of one run.
// It guarantees at most one Source fetch per distinct epic key and filters
// out subtasks, which count toward story-level progress only, never toward
// epic-level progress.
//
// A cache belongs to exactly one run. Jira state can change between runs,
// so a new cache must be constructed for every run; it is not safe for
// concurrent use.
type ChildCache struct {
	source   Source
	children map[string][]WorkItem
}

// NewChildCache creates an empty cache backed by the given source.
func NewChildCache(source Source) *ChildCache {
	return &ChildCache{
		source:   source,
		children: make(map[string][]WorkItem),
	}
}

// ChildrenOf returns the memoized non-subtask children of an epic, fetching
// from the source on first use. Fetch errors are not cached; a later call
// for the same key retries.
func (c *ChildCache) ChildrenOf(ctx context.Context, epicKey string) ([]WorkItem, error) {
	if cached, ok := c.children[epicKey]; ok {
		return cached, nil
	}

	fetched, err := c.source.Children(ctx, epicKey)
	if err != nil {
		return nil, err
	}

	filtered := make([]WorkItem, 0, len(fetched))
	for _, item := range fetched {
		if item.Kind == KindSubtask {
			continue
		}
		filtered = append(filtered, item)
	}

	c.children[epicKey] = filtered
	return filtered, nil
}

// Len returns the number of distinct epics cached so far.
func (c *ChildCache) Len() int {
	return len(c.children)
}
