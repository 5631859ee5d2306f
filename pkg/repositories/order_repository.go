package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/apperrors"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/database"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/models"
)

// OpenOrdersFilter narrows ListOpen results. DeliveryDate is optional; when
// set it restricts to a single date instead of the >= FromDate range.
type OpenOrdersFilter struct {
	CustomerID   uuid.UUID
	FromDate     string // inclusive lower bound, YYYY-MM-DD
	DeliveryDate string // optional exact date
	Limit        int
}

// OrderRepository provides data access for orders, order lines and order
// events.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order, lines []models.OrderLine) error
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetLine(ctx context.Context, lineID uuid.UUID) (*models.OrderLine, error)
	// ListOpen returns non-cancelled orders for a customer ordered by
	// delivery date ascending, each with its line items.
	ListOpen(ctx context.Context, orgID uuid.UUID, filter OpenOrdersFilter) ([]*models.Order, error)
	// CustomerIDsWithOrders returns the customers that already hold a
	// non-cancelled order for the given delivery date.
	CustomerIDsWithOrders(ctx context.Context, orgID uuid.UUID, deliveryDate string) ([]uuid.UUID, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error
	InsertEvent(ctx context.Context, event *models.OrderEvent) error
}

type orderRepository struct {
	db *database.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *database.DB) OrderRepository {
	return &orderRepository{db: db}
}

var _ OrderRepository = (*orderRepository)(nil)

func (r *orderRepository) Create(ctx context.Context, order *models.Order, lines []models.OrderLine) error {
	now := time.Now()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = now
	order.UpdatedAt = now

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	orderQuery := `
		INSERT INTO orders (
			id, organization_id, customer_id, customer_name, delivery_date,
			status, source_channel, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = tx.Exec(ctx, orderQuery,
		order.ID, order.OrganizationID, order.CustomerID, order.CustomerName,
		order.DeliveryDate, order.Status, order.SourceChannel,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	lineQuery := `
		INSERT INTO order_lines (
			id, order_id, line_number, item_id, item_variant_id,
			product_name, quantity, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for i := range lines {
		line := &lines[i]
		if line.ID == uuid.Nil {
			line.ID = uuid.New()
		}
		line.OrderID = order.ID
		if line.Status == "" {
			line.Status = "active"
		}
		line.CreatedAt = now

		_, err = tx.Exec(ctx, lineQuery,
			line.ID, line.OrderID, line.LineNumber, line.ItemID,
			line.ItemVariantID, line.ProductName, line.Quantity,
			line.Status, line.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order line %d: %w", line.LineNumber, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	order.Lines = lines
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := `
		SELECT id, organization_id, customer_id, customer_name,
			to_char(delivery_date, 'YYYY-MM-DD'), status, source_channel,
			created_at, updated_at
		FROM orders
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	order, err := scanOrderRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetLine(ctx context.Context, lineID uuid.UUID) (*models.OrderLine, error) {
	query := `
		SELECT id, order_id, line_number, item_id, item_variant_id,
			product_name, quantity, status, created_at
		FROM order_lines
		WHERE id = $1`

	var line models.OrderLine
	err := r.db.QueryRow(ctx, query, lineID).Scan(
		&line.ID, &line.OrderID, &line.LineNumber, &line.ItemID,
		&line.ItemVariantID, &line.ProductName, &line.Quantity,
		&line.Status, &line.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan order line: %w", err)
	}
	return &line, nil
}

func (r *orderRepository) ListOpen(ctx context.Context, orgID uuid.UUID, filter OpenOrdersFilter) ([]*models.Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT id, organization_id, customer_id, customer_name,
			to_char(delivery_date, 'YYYY-MM-DD'), status, source_channel,
			created_at, updated_at
		FROM orders
		WHERE organization_id = $1
			AND customer_id = $2
			AND status <> 'cancelled'
			AND delivery_date >= $3`
	args := []any{orgID, filter.CustomerID, filter.FromDate}

	if filter.DeliveryDate != "" {
		query += ` AND delivery_date = $4`
		args = append(args, filter.DeliveryDate)
	}
	query += fmt.Sprintf(` ORDER BY delivery_date LIMIT %d`, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list open orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for _, order := range orders {
		lines, err := r.listLines(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Lines = lines
	}

	return orders, nil
}

func (r *orderRepository) CustomerIDsWithOrders(ctx context.Context, orgID uuid.UUID, deliveryDate string) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT customer_id
		FROM orders
		WHERE organization_id = $1
			AND delivery_date = $2
			AND status <> 'cancelled'`

	rows, err := r.db.Query(ctx, query, orgID, deliveryDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers with orders: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan customer id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customer ids: %w", err)
	}

	return ids, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *orderRepository) InsertEvent(ctx context.Context, event *models.OrderEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()

	query := `
		INSERT INTO order_events (id, order_id, type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		event.ID, event.OrderID, event.Type, event.Metadata, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order event: %w", err)
	}
	return nil
}

func (r *orderRepository) listLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error) {
	query := `
		SELECT id, order_id, line_number, item_id, item_variant_id,
			product_name, quantity, status, created_at
		FROM order_lines
		WHERE order_id = $1
		ORDER BY line_number`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]models.OrderLine, 0)
	for rows.Next() {
		var line models.OrderLine
		err := rows.Scan(
			&line.ID, &line.OrderID, &line.LineNumber, &line.ItemID,
			&line.ItemVariantID, &line.ProductName, &line.Quantity,
			&line.Status, &line.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order lines: %w", err)
	}

	return lines, nil
}

// ============================================================================
// Helper Functions - Scan
// ============================================================================

func scanOrder(rows pgx.Rows) (*models.Order, error) {
	var o models.Order
	var sourceChannel *string

	err := rows.Scan(
		&o.ID, &o.OrganizationID, &o.CustomerID, &o.CustomerName,
		&o.DeliveryDate, &o.Status, &sourceChannel, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	if sourceChannel != nil {
		o.SourceChannel = *sourceChannel
	}

	return &o, nil
}

func scanOrderRow(row pgx.Row) (*models.Order, error) {
	var o models.Order
	var sourceChannel *string

	err := row.Scan(
		&o.ID, &o.OrganizationID, &o.CustomerID, &o.CustomerName,
		&o.DeliveryDate, &o.Status, &sourceChannel, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	if sourceChannel != nil {
		o.SourceChannel = *sourceChannel
	}

	return &o, nil
}
