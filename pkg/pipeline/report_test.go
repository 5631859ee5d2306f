package pipeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/agent"
)

func TestSummarySuccess(t *testing.T) {
	s := &Summary{Sections: []SectionReport{{Success: true}, {Success: true}}}
	assert.True(t, s.Success())

	s.Sections = append(s.Sections, SectionReport{Success: false})
	assert.False(t, s.Success())

	empty := &Summary{}
	assert.True(t, empty.Success(), "no sections means nothing failed")
}

func TestSummaryRender(t *testing.T) {
	orderID := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000000")
	s := &Summary{Sections: []SectionReport{
		{
			Day:       "tuesday",
			DateLabel: "September 2, 2025",
			ISODate:   "2025-09-02",
			RowCount:  3,
			Turns:     4,
			Success:   true,
			Created: []agent.CreatedRecord{
				{Kind: "order", ID: orderID, Customer: "Cafe Sushi", DeliveryDate: "2025-09-02", LineCount: 2},
			},
			Skipped: []SkipRecord{{Customer: "Oleana", Rows: 1}},
		},
		{
			Day:          "wednesday",
			DateLabel:    "September 3, 2025",
			ISODate:      "2025-09-03",
			FallbackUsed: true,
			Errors:       []string{"create_order: quantity must be positive"},
		},
	}}

	out := s.Render()
	assert.Contains(t, out, "[tuesday] September 2, 2025 (2025-09-02) ok")
	assert.Contains(t, out, "+ order aaaaaaaa: Cafe Sushi 2025-09-02 (2 lines)")
	assert.Contains(t, out, "~ skipped Oleana (1 rows, existing order)")
	assert.Contains(t, out, "[wednesday] September 3, 2025 (2025-09-03) FAILED")
	assert.Contains(t, out, "fell back to most recent")
	assert.Contains(t, out, "! create_order: quantity must be positive")
	assert.Contains(t, out, "Totals: sections 2, created 1, skipped 1, errors 1")
}
