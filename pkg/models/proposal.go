package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Proposal Types
// ============================================================================

// ProposalType distinguishes what kind of mutation a proposal stages.
type ProposalType string

const (
	ProposalTypeNewOrder    ProposalType = "new_order"
	ProposalTypeChangeOrder ProposalType = "change_order"
	ProposalTypeCancelOrder ProposalType = "cancel_order"
)

// ValidProposalTypes contains all valid proposal type values.
var ValidProposalTypes = []ProposalType{
	ProposalTypeNewOrder,
	ProposalTypeChangeOrder,
	ProposalTypeCancelOrder,
}

// IsValidProposalType checks if the given type is valid.
func IsValidProposalType(t ProposalType) bool {
	for _, v := range ValidProposalTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ChangeType classifies a single proposal line.
type ChangeType string

const (
	ChangeTypeAdd    ChangeType = "add"
	ChangeTypeModify ChangeType = "modify"
	ChangeTypeRemove ChangeType = "remove"
)

// OrderFrequency tags a proposal as a one-time or standing-order change.
type OrderFrequency string

const (
	FrequencyOneTime   OrderFrequency = "one-time"
	FrequencyRecurring OrderFrequency = "recurring"
)

// ============================================================================
// Proposal
// ============================================================================

// Proposal is a staged, reviewable mutation intent. It is created once per
// engine tool call and never mutated afterward; a separate review step
// applies or rejects it.
type Proposal struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	OrderID        *uuid.UUID     `json:"order_id,omitempty"` // nil for new_order
	Type           ProposalType   `json:"type"`
	Status         string         `json:"status"` // always "pending" at creation
	Tags           map[string]any `json:"tags,omitempty"`
	Lines          []ProposalLine `json:"lines,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ProposedValues is the authoritative snapshot captured at proposal time.
// It survives later catalog changes unchanged.
type ProposedValues struct {
	Quantity       float64   `json:"quantity"`
	VariantCode    string    `json:"variant_code"`
	DeliveryDate   string    `json:"delivery_date"`
	CustomerID     uuid.UUID `json:"customer_id"`
	CustomerName   string    `json:"customer_name"`
	OrganizationID uuid.UUID `json:"organization_id"`
}

// ProposalLine is a single staged item change within a proposal.
// OrderLineID is required for modify/remove and absent for add.
type ProposalLine struct {
	ID            uuid.UUID      `json:"id"`
	ProposalID    uuid.UUID      `json:"proposal_id"`
	LineNumber    int            `json:"line_number"`
	ItemID        uuid.UUID      `json:"item_id"`
	ItemName      string         `json:"item_name"`
	ItemVariantID uuid.UUID      `json:"item_variant_id"`
	ChangeType    ChangeType     `json:"change_type"`
	OrderLineID   *uuid.UUID     `json:"order_line_id,omitempty"`
	Proposed      ProposedValues `json:"proposed_values"`
	CreatedAt     time.Time      `json:"created_at"`
}
