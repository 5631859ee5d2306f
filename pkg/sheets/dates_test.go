package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "long month", input: "September 2, 2025", want: "2025-09-02"},
		{name: "abbreviated month", input: "Sep 2, 2025", want: "2025-09-02"},
		{name: "no comma", input: "September 2 2025", want: "2025-09-02"},
		{name: "already canonical", input: "2025-09-02", want: "2025-09-02"},
		{name: "weekday prefix", input: "Tuesday, September 2, 2025", want: "2025-09-02"},
		{name: "lowercase weekday prefix", input: "friday September 5, 2025", want: "2025-09-05"},
		{name: "surrounding whitespace", input: "  September 2, 2025  ", want: "2025-09-02"},
		{name: "empty", input: "", wantErr: true},
		{name: "not a date", input: "One-Time Orders", wantErr: true},
		{name: "weekday only", input: "Tuesday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Formatting a canonical date through every supported human format and
// renormalizing must yield the canonical form back.
func TestNormalizeDate_RoundTrip(t *testing.T) {
	dates := []string{"2025-01-01", "2025-09-02", "2025-12-31", "2026-02-28"}

	for _, iso := range dates {
		day, err := time.Parse("2006-01-02", iso)
		require.NoError(t, err)

		for _, layout := range dateLayouts {
			formatted := day.Format(layout)
			got, err := NormalizeDate(formatted)
			require.NoError(t, err, "layout %q input %q", layout, formatted)
			assert.Equal(t, iso, got)

			// A weekday prefix must not change the result.
			prefixed := day.Format("Monday") + ", " + formatted
			got, err = NormalizeDate(prefixed)
			require.NoError(t, err, "prefixed input %q", prefixed)
			assert.Equal(t, iso, got)
		}
	}
}
