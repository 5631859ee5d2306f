// Package sheets streams the spreadsheet's harvest sections without ever
// materializing the full tab. The ORDERS tab grows past tens of thousands of
// rows; everything here works in fixed-size chunks over narrow column bands.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/apperrors"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/models"
)

// RangeFetcher fetches one contiguous A1 range from the backing spreadsheet.
// Use this interface for dependency injection to enable fixture-driven tests.
type RangeFetcher interface {
	FetchRange(ctx context.Context, rangeA1 string) ([][]string, error)
}

// Column bands and labels are data, not branching: tests drive the scanner
// through the same tables production uses.
const (
	defaultHeaderBand    = "C:E"
	defaultDataBand      = "D:G"
	defaultCategoryLabel = "harvests"

	// rowHeaderLabel and rowSkipLabel mark non-order rows inside a data span.
	rowHeaderLabel = "customer"
	rowSkipLabel   = "one-time orders"
)

// Section is the row range of one named harvest section. Rows are 1-based
// sheet rows; End is exclusive.
type Section struct {
	Start int
	End   int
	Dates []DateHeader
}

// DateHeader is one date sub-section header discovered inside a section.
type DateHeader struct {
	Row     int // 1-based sheet row of the header
	Label   string
	ISODate string
}

// Scanner locates named sections and extracts their date-labeled order rows.
type Scanner struct {
	fetcher       RangeFetcher
	tab           string
	chunkSize     int
	headerBand    string
	dataBand      string
	categoryLabel string
	logger        *zap.Logger
}

// NewScanner creates a scanner over one spreadsheet tab.
func NewScanner(fetcher RangeFetcher, tab string, chunkSize int, logger *zap.Logger) *Scanner {
	if chunkSize <= 0 {
		chunkSize = 10000
	}
	return &Scanner{
		fetcher:       fetcher,
		tab:           tab,
		chunkSize:     chunkSize,
		headerBand:    defaultHeaderBand,
		dataBand:      defaultDataBand,
		categoryLabel: defaultCategoryLabel,
		logger:        logger.Named("scanner"),
	}
}

// ScanSection finds the section whose header contains label (case-insensitive)
// and discovers the date sub-headers inside it.
//
// The scan reads successive chunks of the narrow header band. Section start is
// the first row containing the label; section end is the next row that
// mentions the parent category ("harvests") for a different label. A short
// chunk means end of data. Returns apperrors.ErrSectionNotFound when the label
// never appears, and apperrors.ErrNoDateSections when the section holds no
// recognizable date header.
func (s *Scanner) ScanSection(ctx context.Context, label string) (*Section, error) {
	target := strings.ToLower(strings.TrimSpace(label))

	var (
		inSection   bool
		section     Section
		sectionRows [][]string
		lastRow     int
	)

scan:
	for start := 1; ; start += s.chunkSize {
		end := start + s.chunkSize - 1
		rangeA1 := s.bandRange(s.headerBand, start, end)
		rows, err := s.fetcher.FetchRange(ctx, rangeA1)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", rangeA1, err)
		}

		for i, cells := range rows {
			row := start + i
			lastRow = row
			joined := strings.ToLower(strings.Join(cells, " "))

			if !inSection {
				if strings.Contains(joined, target) {
					inSection = true
					section.Start = row
					s.logger.Debug("section start found", zap.String("label", label), zap.Int("row", row))
				}
				continue
			}

			// A different section's category header closes this one.
			if strings.Contains(joined, s.categoryLabel) && !strings.Contains(joined, target) {
				section.End = row
				break scan
			}
			sectionRows = append(sectionRows, cells)
		}

		if len(rows) < s.chunkSize {
			break // end of data
		}
	}

	if !inSection {
		return nil, fmt.Errorf("section %q: %w", label, apperrors.ErrSectionNotFound)
	}
	if section.End == 0 {
		section.End = lastRow + 1
	}

	for i, cells := range sectionRows {
		if iso, raw, ok := dateFromRow(cells); ok {
			section.Dates = append(section.Dates, DateHeader{
				Row:     section.Start + 1 + i,
				Label:   raw,
				ISODate: iso,
			})
		}
	}
	if len(section.Dates) == 0 {
		return nil, fmt.Errorf("section %q: %w", label, apperrors.ErrNoDateSections)
	}

	s.logger.Info("section scanned",
		zap.String("label", label),
		zap.Int("start", section.Start),
		zap.Int("end", section.End),
		zap.Int("date_headers", len(section.Dates)))

	return &section, nil
}

// FetchRows reads the four-column data band for rows [from, to) and filters
// out non-order rows: blanks, rows too short to carry an item, rows without a
// customer cell, the column header row, and the one-time-orders divider.
func (s *Scanner) FetchRows(ctx context.Context, from, to int) ([]models.SheetRow, error) {
	if to <= from {
		return nil, nil
	}
	rangeA1 := s.bandRange(s.dataBand, from, to-1)
	rows, err := s.fetcher.FetchRange(ctx, rangeA1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rangeA1, err)
	}

	var out []models.SheetRow
	for _, cells := range rows {
		if len(cells) < 2 {
			continue
		}
		first := strings.ToLower(strings.TrimSpace(cell(cells, 0)))
		joined := strings.ToLower(strings.Join(cells, " "))
		if first == "" || first == rowHeaderLabel || strings.Contains(joined, rowSkipLabel) {
			continue
		}
		out = append(out, models.SheetRow{
			Customer: strings.TrimSpace(cell(cells, 0)),
			Product:  strings.TrimSpace(cell(cells, 1)),
			Size:     strings.TrimSpace(cell(cells, 2)),
			Quantity: strings.TrimSpace(cell(cells, 3)),
		})
	}
	return out, nil
}

// SpanFor returns the data row span for a date header: from the row after the
// header to the next header, or the section end for the last one.
func (sec *Section) SpanFor(h DateHeader) (from, to int) {
	from = h.Row + 1
	to = sec.End
	for _, d := range sec.Dates {
		if d.Row > h.Row && d.Row < to {
			to = d.Row
		}
	}
	return from, to
}

// ============================================================================
// Helpers
// ============================================================================

// bandRange builds an A1 range like "ORDERS!C11:E20" from a column band and a
// 1-based inclusive row range.
func (s *Scanner) bandRange(band string, from, to int) string {
	cols := strings.SplitN(band, ":", 2)
	return fmt.Sprintf("%s!%s%d:%s%d", s.tab, cols[0], from, cols[1], to)
}

// dateFromRow tries the whole-row join first, then individual cells in
// fallback order.
func dateFromRow(cells []string) (iso, raw string, ok bool) {
	joined := strings.TrimSpace(strings.Join(cells, " "))
	if iso, err := NormalizeDate(joined); err == nil {
		return iso, joined, true
	}
	for _, idx := range []int{1, 2} {
		c := strings.TrimSpace(cell(cells, idx))
		if c == "" {
			continue
		}
		if iso, err := NormalizeDate(c); err == nil {
			return iso, c, true
		}
	}
	return "", "", false
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}
