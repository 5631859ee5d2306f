package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Order Status
// ============================================================================

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusDraft         OrderStatus = "draft"
	OrderStatusReady         OrderStatus = "ready"
	OrderStatusPendingReview OrderStatus = "pending_review"
	OrderStatusCancelled     OrderStatus = "cancelled"
)

// ValidOrderStatuses contains all valid order status values.
var ValidOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusReady,
	OrderStatusPendingReview,
	OrderStatusCancelled,
}

// IsValidOrderStatus checks if the given status is valid.
func IsValidOrderStatus(s OrderStatus) bool {
	for _, v := range ValidOrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ============================================================================
// Order
// ============================================================================

// Order represents a customer order for a single delivery date.
// DeliveryDate is a calendar date in YYYY-MM-DD form; no time component is
// stored or compared.
type Order struct {
	ID             uuid.UUID   `json:"id"`
	OrganizationID uuid.UUID   `json:"organization_id"`
	CustomerID     uuid.UUID   `json:"customer_id"`
	CustomerName   string      `json:"customer_name"`
	DeliveryDate   string      `json:"delivery_date"`
	Status         OrderStatus `json:"status"`
	SourceChannel  string      `json:"source_channel,omitempty"`
	Lines          []OrderLine `json:"order_lines,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// IsCancelled returns true if the order has been cancelled.
func (o *Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

// OrderLine represents a single item line on an order.
// LineNumber is 1-based and contiguous within an insertion batch.
type OrderLine struct {
	ID            uuid.UUID `json:"id"`
	OrderID       uuid.UUID `json:"order_id"`
	LineNumber    int       `json:"line_number"`
	ItemID        uuid.UUID `json:"item_id"`
	ItemVariantID uuid.UUID `json:"item_variant_id"`
	ProductName   string    `json:"product_name"`
	Quantity      float64   `json:"quantity"`
	Status        string    `json:"status,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ============================================================================
// Order Events
// ============================================================================

// Order event types recorded alongside mutations.
const (
	OrderEventCreated        = "created"
	OrderEventChangeProposed = "change_proposed"
	OrderEventCancelProposed = "cancel_proposed"
)

// OrderEvent is an append-only domain event attached to an order.
type OrderEvent struct {
	ID        uuid.UUID      `json:"id"`
	OrderID   uuid.UUID      `json:"order_id"`
	Type      string         `json:"type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
