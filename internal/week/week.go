// Package week classifies timestamps into Monday-start calendar weeks.
// The weekly cycle treats Monday 00:00 local time as the boundary:
// a week is the half-open interval [Monday 00:00, next Monday 00:00).
package week

import "time"

// StartOf returns the most recent Monday at 00:00 in t's location,
// at or before t.
func StartOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameWeek reports whether the RFC3339 timestamp falls in the same
// Monday-start week as now. A nil or unparsable timestamp is never in the
// current week (fails closed rather than erroring).
func SameWeek(iso *string, now time.Time) bool {
	if iso == nil {
		return false
	}
	ts, err := time.Parse(time.RFC3339, *iso)
	if err != nil {
		return false
	}
	return StartOf(ts.In(now.Location())).Equal(StartOf(now))
}
