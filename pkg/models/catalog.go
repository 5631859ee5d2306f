package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a catalog entry loaded once per run. Immutable for the
// duration of a pipeline run.
type Customer struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

// Item is a sellable product with an ordered list of variants.
type Item struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID uuid.UUID     `json:"organization_id"`
	SKU            string        `json:"sku"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	Active         bool          `json:"active"`
	Variants       []ItemVariant `json:"item_variants,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// ItemVariant is a size/packaging variant of an item. Variant IDs are
// globally unique across items.
type ItemVariant struct {
	ID          uuid.UUID `json:"id"`
	ItemID      uuid.UUID `json:"item_id"`
	VariantCode string    `json:"variant_code"`
	VariantName string    `json:"variant_name"`
	Notes       string    `json:"notes,omitempty"`
}

// CustomerItemNote captures a per-customer preference for a specific item,
// surfaced to the decision engine in the system prompt.
type CustomerItemNote struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customer_id"`
	ItemName   string    `json:"item_name"`
	Note       string    `json:"note"`
}
