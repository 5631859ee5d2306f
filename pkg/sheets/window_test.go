package sheets

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowContains(t *testing.T) {
	today := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	w := NewWindow(today, 7)

	assert.True(t, w.Contains("2025-09-01"), "start is inclusive")
	assert.True(t, w.Contains("2025-09-08"), "end is inclusive")
	assert.True(t, w.Contains("2025-09-04"))
	assert.False(t, w.Contains("2025-08-31"))
	assert.False(t, w.Contains("2025-09-09"))
	assert.False(t, w.Contains("not-a-date"))
}

// The window bounds are calendar dates in the caller's timezone. An evening
// run in a zone behind UTC must still see today's own date in window.
func TestWindowContains_LocalCalendarDate(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	w := NewWindow(time.Date(2026, 8, 31, 20, 0, 0, 0, est), 7)

	assert.Equal(t, "2026-08-31", w.From)
	assert.True(t, w.Contains("2026-08-31"))
	assert.True(t, w.Contains("2026-09-07"))
	assert.False(t, w.Contains("2026-09-08"))

	// Ahead of UTC the converse holds: early morning is still today.
	tokyo := time.FixedZone("JST", 9*60*60)
	w = NewWindow(time.Date(2026, 9, 1, 1, 0, 0, 0, tokyo), 7)
	assert.Equal(t, "2026-09-01", w.From)
	assert.False(t, w.Contains("2026-08-31"))
	assert.True(t, w.Contains("2026-09-01"))
}

func TestSelectDates(t *testing.T) {
	dates := []DateHeader{
		{Row: 3, Label: "September 2, 2025", ISODate: "2025-09-02"},
		{Row: 9, Label: "September 9, 2025", ISODate: "2025-09-09"},
		{Row: 15, Label: "September 16, 2025", ISODate: "2025-09-16"},
	}

	t.Run("keeps only dates inside the window", func(t *testing.T) {
		w := NewWindow(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), 10)
		selected, fallback := SelectDates(dates, w)
		require.Len(t, selected, 2)
		assert.False(t, fallback)
		assert.Equal(t, "2025-09-02", selected[0].ISODate)
		assert.Equal(t, "2025-09-09", selected[1].ISODate)
	})

	t.Run("falls back to the last discovered header", func(t *testing.T) {
		w := NewWindow(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 7)
		selected, fallback := SelectDates(dates, w)
		require.Len(t, selected, 1)
		assert.True(t, fallback)
		assert.Equal(t, "2025-09-16", selected[0].ISODate)
	})

	t.Run("empty input yields nothing", func(t *testing.T) {
		w := NewWindow(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), 7)
		selected, fallback := SelectDates(nil, w)
		assert.Empty(t, selected)
		assert.False(t, fallback)
	})
}

// As long as at least one date header exists, selection never comes back
// empty no matter where the window sits.
func TestSelectDates_NeverEmpty(t *testing.T) {
	dates := []DateHeader{
		{Row: 3, ISODate: "2025-09-02"},
		{Row: 9, ISODate: "2025-09-09"},
	}

	for offset := -30; offset <= 30; offset += 5 {
		today := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
		w := NewWindow(today, 7)
		selected, _ := SelectDates(dates, w)
		require.NotEmpty(t, selected, fmt.Sprintf("window starting %s", today.Format("2006-01-02")))
	}
}
