package sheets

import "time"

// Window is an inclusive delivery-date range, held as canonical YYYY-MM-DD
// strings. Bounds are calendar dates in the caller's timezone, never UTC
// instants: an evening run must still consider today's own section in window.
type Window struct {
	From string
	To   string
}

// NewWindow builds the window [today, today+days] from today's local
// calendar date.
func NewWindow(today time.Time, days int) Window {
	return Window{
		From: today.Format("2006-01-02"),
		To:   today.AddDate(0, 0, days).Format("2006-01-02"),
	}
}

// Contains reports whether an ISO date falls inside the window. Canonical
// YYYY-MM-DD strings order lexicographically, so the comparison is on the
// strings themselves.
func (w Window) Contains(iso string) bool {
	if _, err := ParseISO(iso); err != nil {
		return false
	}
	return iso >= w.From && iso <= w.To
}

// SelectDates picks the date headers whose date falls inside the window.
// When none qualify it falls back to the single most recently discovered
// header rather than returning nothing: a misconfigured window must not turn
// into a silent no-op. The second return reports whether the fallback fired.
func SelectDates(dates []DateHeader, w Window) ([]DateHeader, bool) {
	var selected []DateHeader
	for _, d := range dates {
		if w.Contains(d.ISODate) {
			selected = append(selected, d)
		}
	}
	if len(selected) > 0 {
		return selected, false
	}
	if len(dates) == 0 {
		return nil, false
	}
	return []DateHeader{dates[len(dates)-1]}, true
}
