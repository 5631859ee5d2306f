// Package pipeline wires the scanner, catalog, prefilter and agent loop into
// the two runnable flows: the ERP spreadsheet sync and free-form order
// intake.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/agent"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/apperrors"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/catalog"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/engine"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/models"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/repositories"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/sheets"
)

// SheetSync runs the spreadsheet-to-orders synchronization for one or more
// harvest days.
type SheetSync struct {
	scanner    *sheets.Scanner
	loop       *agent.Loop
	catalog    *catalog.Index
	orders     repositories.OrderRepository
	orgID      uuid.UUID
	windowDays int
	now        func() time.Time
	logger     *zap.Logger
}

// NewSheetSync creates the sheet synchronization flow.
func NewSheetSync(
	scanner *sheets.Scanner,
	loop *agent.Loop,
	cat *catalog.Index,
	orders repositories.OrderRepository,
	orgID uuid.UUID,
	windowDays int,
	logger *zap.Logger,
) *SheetSync {
	return &SheetSync{
		scanner:    scanner,
		loop:       loop,
		catalog:    cat,
		orders:     orders,
		orgID:      orgID,
		windowDays: windowDays,
		now:        time.Now,
		logger:     logger.Named("sheet-sync"),
	}
}

// Run processes each harvest day in order. A failed day section aborts only
// that day; sibling days still run. The returned Summary accounts for every
// processed section.
func (s *SheetSync) Run(ctx context.Context, days []string) (*Summary, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("no harvest days configured")
	}

	summary := &Summary{}
	today := s.now()
	window := sheets.NewWindow(today, s.windowDays)

	for _, day := range days {
		label := sectionLabel(day)
		s.logger.Info("scanning section", zap.String("day", day), zap.String("label", label))

		section, err := s.scanner.ScanSection(ctx, label)
		if err != nil {
			s.logger.Error("section scan failed", zap.String("day", day), zap.Error(err))
			summary.Sections = append(summary.Sections, SectionReport{
				Day:    day,
				Errors: []string{err.Error()},
			})
			continue
		}

		selected, fallback := sheets.SelectDates(section.Dates, window)
		for _, header := range selected {
			report := s.runDateSection(ctx, day, section, header, today)
			report.FallbackUsed = fallback
			summary.Sections = append(summary.Sections, report)
		}
	}

	return summary, nil
}

// runDateSection processes one date sub-section end to end: fetch rows,
// prefilter against existing orders, then drive the agent loop over what
// remains.
func (s *SheetSync) runDateSection(ctx context.Context, day string, section *sheets.Section, header sheets.DateHeader, today time.Time) SectionReport {
	report := SectionReport{
		Day:       day,
		DateLabel: header.Label,
		ISODate:   header.ISODate,
	}

	from, to := section.SpanFor(header)
	rows, err := s.scanner.FetchRows(ctx, from, to)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	report.RowCount = len(rows)

	if len(rows) == 0 {
		// Empty sections succeed without spending any engine turns.
		report.Success = true
		return report
	}

	taken, err := s.takenCustomerNames(ctx, header.ISODate)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return report
	}

	keep, skipped := Prefilter(rows, taken)
	report.Skipped = skipped
	if len(keep) == 0 {
		report.Success = true
		s.logger.Info("all rows pre-skipped",
			zap.String("date", header.ISODate),
			zap.Int("skipped", len(skipped)))
		return report
	}

	system := BuildSheetSystemPrompt(s.catalog, today)
	initial := engine.NewUserText(BuildSectionMessage(models.SheetSection{
		DateLabel: header.Label,
		ISODate:   header.ISODate,
		HeaderRow: header.Row,
		Rows:      keep,
	}))

	result, err := s.loop.Run(ctx, system, initial)
	if result != nil {
		report.Turns = result.Turns
		report.InputTokens = result.InputTokens
		report.OutputTokens = result.OutputTokens
		report.Created = result.Created
		report.Errors = append(report.Errors, result.Errors...)
	}
	switch {
	case err == nil:
		report.Success = true
	case errors.Is(err, apperrors.ErrMaxTurnsExceeded):
		// Partial progress is kept; the section is still a failure.
		report.Errors = append(report.Errors, err.Error())
	default:
		report.Errors = append(report.Errors, err.Error())
	}
	return report
}

// takenCustomerNames resolves the customers that already hold a live order
// for the date into a normalized-name set for the prefilter.
func (s *SheetSync) takenCustomerNames(ctx context.Context, isoDate string) (map[string]bool, error) {
	ids, err := s.orders.CustomerIDsWithOrders(ctx, s.orgID, isoDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing orders for %s: %w", isoDate, err)
	}
	taken := make(map[string]bool, len(ids))
	for _, id := range ids {
		if c, ok := s.catalog.CustomerByID(id); ok {
			taken[catalog.NormalizeName(c.Name)] = true
		}
	}
	return taken, nil
}

// sectionLabel builds the sheet's section header text for a harvest day,
// e.g. "tuesday" -> "Tuesday Harvests".
func sectionLabel(day string) string {
	day = strings.TrimSpace(strings.ToLower(day))
	if day == "" {
		return "Harvests"
	}
	return strings.ToUpper(day[:1]) + day[1:] + " Harvests"
}
