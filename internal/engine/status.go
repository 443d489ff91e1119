package engine

// Status is the dashboard-facing status label.
type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusComplete   Status = "Complete"
)

// StatusOf maps a single item's status category to a dashboard label.
func StatusOf(item WorkItem) Status {
	switch item.Category {
	case CategoryDone:
		return StatusComplete
	case CategoryInProgress:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

// AggregateStatus derives an epic's label from its children: Complete when
// every child is Done, InProgress when any child is Done or InProgress,
// NotStarted otherwise. An epic with no children is NotStarted.
func AggregateStatus(children []WorkItem) Status {
	if len(children) == 0 {
		return StatusNotStarted
	}

	allDone := true
	anyStarted := false
	for _, child := range children {
		switch child.Category {
		case CategoryDone:
			anyStarted = true
		case CategoryInProgress:
			allDone = false
			anyStarted = true
		default:
			allDone = false
		}
	}

	if allDone {
		return StatusComplete
	}
	if anyStarted {
		return StatusInProgress
	}
	return StatusNotStarted
}
