package pipeline

import (
	"fmt"
	"strings"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/agent"
)

// SectionReport accounts for one processed date section. Every input row
// ends up counted as created, skipped, or errored; nothing is silently
// dropped.
type SectionReport struct {
	Day          string
	DateLabel    string
	ISODate      string
	FallbackUsed bool
	RowCount     int
	Turns        int
	InputTokens  int
	OutputTokens int
	Created      []agent.CreatedRecord
	Skipped      []SkipRecord
	Errors       []string
	Success      bool
}

// Summary is the whole run's report.
type Summary struct {
	Sections []SectionReport
}

// Success reports whether every section succeeded.
func (s *Summary) Success() bool {
	for _, sec := range s.Sections {
		if !sec.Success {
			return false
		}
	}
	return true
}

// Render formats the summary as the run's textual exit report.
func (s *Summary) Render() string {
	var b strings.Builder
	b.WriteString("Order Sync Summary\n")
	b.WriteString("==================\n")

	var created, skipped, errors int
	for _, sec := range s.Sections {
		status := "ok"
		if !sec.Success {
			status = "FAILED"
		}
		b.WriteString(fmt.Sprintf("\n[%s] %s (%s) %s\n", sec.Day, sec.DateLabel, sec.ISODate, status))
		if sec.FallbackUsed {
			b.WriteString("  note: no section in window, fell back to most recent\n")
		}
		b.WriteString(fmt.Sprintf("  rows: %d  created: %d  skipped: %d  errors: %d  turns: %d  tokens: %d in / %d out\n",
			sec.RowCount, len(sec.Created), len(sec.Skipped), len(sec.Errors),
			sec.Turns, sec.InputTokens, sec.OutputTokens))

		for _, c := range sec.Created {
			detail := ""
			if c.Detail != "" {
				detail = " " + c.Detail
			}
			b.WriteString(fmt.Sprintf("  + %s %s%s: %s %s (%d lines)\n",
				c.Kind, shortID(c.ID.String()), detail, c.Customer, c.DeliveryDate, c.LineCount))
		}
		for _, sk := range sec.Skipped {
			b.WriteString(fmt.Sprintf("  ~ skipped %s (%d rows, existing order)\n", sk.Customer, sk.Rows))
		}
		for _, e := range sec.Errors {
			b.WriteString(fmt.Sprintf("  ! %s\n", e))
		}

		created += len(sec.Created)
		skipped += len(sec.Skipped)
		errors += len(sec.Errors)
	}

	b.WriteString(fmt.Sprintf("\nTotals: sections %d, created %d, skipped %d, errors %d\n",
		len(s.Sections), created, skipped, errors))
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
