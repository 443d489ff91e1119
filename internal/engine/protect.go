package engine

import "strings"

// Protection rules. Each decision carries the baseline it compared against,
// the computed candidate, and the final value that holds the invariant
// final == computed when the write is allowed, final == baseline otherwise.

// ProgressDecision is the protection outcome for the progress field.
type ProgressDecision struct {
	Old          *float64
	Computed     float64
	WriteAllowed bool
	Final        float64
}

// Protected reports whether the policy suppressed the write.
func (d ProgressDecision) Protected() bool { return !d.WriteAllowed }

// DecideProgress applies progress protection: when enabled, a computed zero
// must not erase a non-zero fraction already on the dashboard. A transient
// or mis-synced zero from Jira is the classic cause.
func DecideProgress(old *float64, computed float64, protect bool) ProgressDecision {
	d := ProgressDecision{Old: old, Computed: computed, WriteAllowed: true, Final: computed}
	if protect && old != nil && *old > 0 && computed == 0 {
		d.WriteAllowed = false
		d.Final = *old
	}
	return d
}

// StatusDecision is the protection outcome for the status field.
type StatusDecision struct {
	Old          string
	Computed     Status
	WriteAllowed bool
	Final        string
}

// manualHold is a dashboard status set by hand that the sync must never
// remove, whatever the computed label says.
const manualHold = "blocked"

// DecideStatus applies status-downgrade protection. The rule is coupled to
// the progress decision for the same row: when progress protection fired,
// a computed NotStarted must not replace the existing label. An existing
// "Blocked" label is preserved unconditionally.
func DecideStatus(old string, computed Status, progressProtected bool) StatusDecision {
	d := StatusDecision{Old: old, Computed: computed, WriteAllowed: true, Final: string(computed)}
	trimmed := strings.TrimSpace(old)
	if strings.EqualFold(trimmed, manualHold) {
		d.WriteAllowed = false
		d.Final = old
		return d
	}
	if progressProtected && computed == StatusNotStarted && trimmed != "" {
		d.WriteAllowed = false
		d.Final = old
	}
	return d
}

// DateDecision is the protection outcome for one schedule date.
type DateDecision struct {
	Old          string
	Computed     string
	WriteAllowed bool
	Final        string
}

// DecideDate applies date protection: when enabled, an absent computed date
// must not blank a present one. A present computed date always overwrites;
// the rule guards against blanking, not against legitimate changes.
func DecideDate(old, computed string, protect bool) DateDecision {
	d := DateDecision{Old: old, Computed: computed, WriteAllowed: true, Final: computed}
	if protect && computed == "" && old != "" {
		d.WriteAllowed = false
		d.Final = old
	}
	return d
}
