package pipeline

import (
	"github.com/William-Gao/frootful-sales-aggregation/pkg/catalog"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/models"
)

// SkipRecord is one deduplicated prefilter skip: a customer already holding a
// live order for the delivery date, with the number of sheet rows absorbed.
type SkipRecord struct {
	Customer string
	Rows     int
}

// Prefilter partitions sheet rows into (keep, skipped) before any engine
// turn. A row is skipped when its customer name matches, case-insensitive
// and trimmed, a customer who already holds a non-cancelled order for the
// date. Repeated rows for the same taken customer collapse into one skip
// record. Running it twice on the same input yields the same partition.
func Prefilter(rows []models.SheetRow, taken map[string]bool) ([]models.SheetRow, []SkipRecord) {
	var keep []models.SheetRow
	var skipped []SkipRecord
	skipIndex := make(map[string]int)

	for _, row := range rows {
		key := catalog.NormalizeName(row.Customer)
		if !taken[key] {
			keep = append(keep, row)
			continue
		}
		if i, ok := skipIndex[key]; ok {
			skipped[i].Rows++
			continue
		}
		skipIndex[key] = len(skipped)
		skipped = append(skipped, SkipRecord{Customer: row.Customer, Rows: 1})
	}

	return keep, skipped
}
