package sheets

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// weekdayPrefix strips a leading weekday name from a date label, e.g.
// "Tuesday, September 2, 2025" or "tuesday September 2 2025".
var weekdayPrefix = regexp.MustCompile(`(?i)^(monday|tuesday|wednesday|thursday|friday|saturday|sunday)[,\s]+`)

// dateLayouts are the formats date labels appear in on the sheet, tried in
// order.
var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"2006-01-02",
}

// NormalizeDate parses a free-form date label into ISO form (YYYY-MM-DD).
// A leading weekday name is ignored.
func NormalizeDate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty date label")
	}
	s = strings.TrimSpace(weekdayPrefix.ReplaceAllString(s, ""))

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date label: %q", raw)
}

// ParseISO parses an ISO date string into a time.Time at midnight UTC.
func ParseISO(iso string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ISO date %q: %w", iso, err)
	}
	return t, nil
}
