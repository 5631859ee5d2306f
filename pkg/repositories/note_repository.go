package repositories

import (
	"context"
	"fmt"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/database"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/models"
)

// CustomerItemNoteRepository provides read access to per-customer item notes.
type CustomerItemNoteRepository interface {
	ListAll(ctx context.Context) ([]*models.CustomerItemNote, error)
}

type customerItemNoteRepository struct {
	db *database.DB
}

// NewCustomerItemNoteRepository creates a new CustomerItemNoteRepository.
func NewCustomerItemNoteRepository(db *database.DB) CustomerItemNoteRepository {
	return &customerItemNoteRepository{db: db}
}

var _ CustomerItemNoteRepository = (*customerItemNoteRepository)(nil)

func (r *customerItemNoteRepository) ListAll(ctx context.Context) ([]*models.CustomerItemNote, error) {
	query := `
		SELECT id, customer_id, item_name, note
		FROM customer_item_notes
		ORDER BY customer_id, item_name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list customer item notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*models.CustomerItemNote, 0)
	for rows.Next() {
		var n models.CustomerItemNote
		if err := rows.Scan(&n.ID, &n.CustomerID, &n.ItemName, &n.Note); err != nil {
			return nil, fmt.Errorf("failed to scan customer item note: %w", err)
		}
		notes = append(notes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customer item notes: %w", err)
	}

	return notes, nil
}
