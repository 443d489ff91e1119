package engine

// Basis records how a progress fraction was derived.
type Basis string

const (
	// BasisStoryPoints: done-estimate-sum over total-estimate-sum across
	// an epic's estimated children.
	BasisStoryPoints Basis = "points"
	// BasisCount: done-child count over total-child count.
	BasisCount Basis = "count"
	// BasisBinary: a story's own status category, 1.0 or 0.0.
	BasisBinary Basis = "story"
	// BasisSubtasks: done-subtask count over total-subtask count.
	BasisSubtasks Basis = "subtasks"
)

// ProgressResult is a computed progress fraction with its provenance.
// Completed and Total carry the numerator and denominator for reporting;
// for BasisStoryPoints they are point sums, otherwise item counts.
type ProgressResult struct {
	Fraction  float64
	Basis     Basis
	Completed float64
	Total     float64
}

// EpicProgress aggregates progress over an epic's children.
//
// When at least one child carries a point estimate and the estimates sum to
// more than zero, the fraction is the Done-items' estimate sum over the
// total estimate sum. A Done child always counts as done, including with a
// zero estimate. When no child is estimated, or all estimates are zero, it
// falls back to the Done-count over the child count. An epic with no
// children has undefined progress and ok is false.
func EpicProgress(children []WorkItem) (ProgressResult, bool) {
	if len(children) == 0 {
		return ProgressResult{}, false
	}

	var totalPoints, donePoints float64
	estimated := false
	doneCount := 0
	for _, child := range children {
		if child.Points != nil {
			estimated = true
			totalPoints += *child.Points
			if child.IsDone() {
				donePoints += *child.Points
			}
		}
		if child.IsDone() {
			doneCount++
		}
	}

	if estimated && totalPoints > 0 {
		return ProgressResult{
			Fraction:  clampFraction(donePoints / totalPoints),
			Basis:     BasisStoryPoints,
			Completed: donePoints,
			Total:     totalPoints,
		}, true
	}

	return ProgressResult{
		Fraction:  clampFraction(float64(doneCount) / float64(len(children))),
		Basis:     BasisCount,
		Completed: float64(doneCount),
		Total:     float64(len(children)),
	}, true
}

// StoryProgress computes a non-epic item's progress.
//
// By default the result is binary on the item's own status category. When
// includeSubtasks is set and the item has subtasks, the fraction is the
// done-subtask share instead, irrespective of the item's own category; with
// no subtasks it falls back to binary.
func StoryProgress(item WorkItem, subtasks []WorkItem, includeSubtasks bool) ProgressResult {
	if !includeSubtasks || len(subtasks) == 0 {
		done := 0.0
		if item.IsDone() {
			done = 1.0
		}
		return ProgressResult{Fraction: done, Basis: BasisBinary, Completed: done, Total: 1}
	}

	done := 0
	for _, sub := range subtasks {
		if sub.IsDone() {
			done++
		}
	}
	return ProgressResult{
		Fraction:  clampFraction(float64(done) / float64(len(subtasks))),
		Basis:     BasisSubtasks,
		Completed: float64(done),
		Total:     float64(len(subtasks)),
	}
}

func clampFraction(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
