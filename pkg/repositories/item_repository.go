package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/database"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/models"
)

// ItemRepository provides read access to the item catalog, nested variants
// included.
type ItemRepository interface {
	ListActive(ctx context.Context, orgID uuid.UUID) ([]*models.Item, error)
}

type itemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new ItemRepository.
func NewItemRepository(db *database.DB) ItemRepository {
	return &itemRepository{db: db}
}

var _ ItemRepository = (*itemRepository)(nil)

func (r *itemRepository) ListActive(ctx context.Context, orgID uuid.UUID) ([]*models.Item, error) {
	query := `
		SELECT id, organization_id, sku, name, description, active, created_at
		FROM items
		WHERE organization_id = $1 AND active = TRUE
		ORDER BY name`

	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Item, 0)
	byID := make(map[uuid.UUID]*models.Item)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		byID[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	if err := r.attachVariants(ctx, orgID, byID); err != nil {
		return nil, err
	}

	return items, nil
}

// attachVariants loads all variants for the organization's active items in a
// single query and attaches them to their parent items in variant_code order.
func (r *itemRepository) attachVariants(ctx context.Context, orgID uuid.UUID, byID map[uuid.UUID]*models.Item) error {
	query := `
		SELECT v.id, v.item_id, v.variant_code, v.variant_name, v.notes
		FROM item_variants v
		JOIN items i ON i.id = v.item_id
		WHERE i.organization_id = $1 AND i.active = TRUE
		ORDER BY v.item_id, v.variant_code`

	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return fmt.Errorf("failed to list item variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return err
		}
		if item, ok := byID[v.ItemID]; ok {
			item.Variants = append(item.Variants, *v)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating item variants: %w", err)
	}

	return nil
}

// ============================================================================
// Helper Functions - Scan
// ============================================================================

func scanItem(rows pgx.Rows) (*models.Item, error) {
	var item models.Item
	var description *string

	err := rows.Scan(
		&item.ID, &item.OrganizationID, &item.SKU, &item.Name, &description,
		&item.Active, &item.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}

	if description != nil {
		item.Description = *description
	}

	return &item, nil
}

func scanVariant(rows pgx.Rows) (*models.ItemVariant, error) {
	var v models.ItemVariant
	var notes *string

	err := rows.Scan(&v.ID, &v.ItemID, &v.VariantCode, &v.VariantName, &notes)
	if err != nil {
		return nil, fmt.Errorf("failed to scan item variant: %w", err)
	}

	if notes != nil {
		v.Notes = *notes
	}

	return &v, nil
}
