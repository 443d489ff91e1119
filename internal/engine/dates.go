package engine

import (
	"strings"
	"time"
)

// canonicalDateLayout is the form both stores are reconciled in.
const canonicalDateLayout = "2006-01-02"

// dateLayouts are the accepted input forms, tried in order. Smartsheet
// yields ISO dates (sometimes with a time suffix); display values can be
// US-style slash dates, with or without a century.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
}

// NormalizeDate parses a raw date value into canonical YYYY-MM-DD form.
// Empty or unparseable input yields the empty string; absence is a valid,
// common case, never an error. A trailing time component (ISO "T..." or a
// space-separated clock) is stripped before parsing.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if i := strings.IndexAny(s, "T "); i > 0 {
		s = s[:i]
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(canonicalDateLayout)
		}
	}
	return ""
}
