package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/database"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/models"
)

// CustomerRepository provides read access to the customer catalog.
type CustomerRepository interface {
	ListActive(ctx context.Context, orgID uuid.UUID) ([]*models.Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type customerRepository struct {
	db *database.DB
}

// NewCustomerRepository creates a new CustomerRepository.
func NewCustomerRepository(db *database.DB) CustomerRepository {
	return &customerRepository{db: db}
}

var _ CustomerRepository = (*customerRepository)(nil)

func (r *customerRepository) ListActive(ctx context.Context, orgID uuid.UUID) ([]*models.Customer, error) {
	query := `
		SELECT id, organization_id, name, email, phone, notes, active, created_at
		FROM customers
		WHERE organization_id = $1 AND active = TRUE
		ORDER BY name`

	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]*models.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}

	return customers, nil
}

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	query := `
		SELECT id, organization_id, name, email, phone, notes, active, created_at
		FROM customers
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	c, err := scanCustomerRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, err
	}
	return c, nil
}

// ============================================================================
// Helper Functions - Scan
// ============================================================================

func scanCustomer(rows pgx.Rows) (*models.Customer, error) {
	var c models.Customer
	var email, phone, notes *string

	err := rows.Scan(
		&c.ID, &c.OrganizationID, &c.Name, &email, &phone, &notes,
		&c.Active, &c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}

	if email != nil {
		c.Email = *email
	}
	if phone != nil {
		c.Phone = *phone
	}
	if notes != nil {
		c.Notes = *notes
	}

	return &c, nil
}

func scanCustomerRow(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	var email, phone, notes *string

	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.Name, &email, &phone, &notes,
		&c.Active, &c.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}

	if email != nil {
		c.Email = *email
	}
	if phone != nil {
		c.Phone = *phone
	}
	if notes != nil {
		c.Notes = *notes
	}

	return &c, nil
}
