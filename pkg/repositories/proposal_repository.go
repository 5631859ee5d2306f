package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/database"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/models"
)

// ProposalRepository persists staged order-change proposals and their lines.
type ProposalRepository interface {
	Create(ctx context.Context, proposal *models.Proposal) error
	CreateLine(ctx context.Context, line *models.ProposalLine) error
}

type proposalRepository struct {
	db *database.DB
}

// NewProposalRepository creates a new ProposalRepository.
func NewProposalRepository(db *database.DB) ProposalRepository {
	return &proposalRepository{db: db}
}

var _ ProposalRepository = (*proposalRepository)(nil)

func (r *proposalRepository) Create(ctx context.Context, proposal *models.Proposal) error {
	if proposal.ID == uuid.Nil {
		proposal.ID = uuid.New()
	}
	if proposal.Status == "" {
		proposal.Status = "pending"
	}
	proposal.CreatedAt = time.Now()

	query := `
		INSERT INTO order_change_proposals (
			id, organization_id, order_id, type, status, tags, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		proposal.ID, proposal.OrganizationID, proposal.OrderID,
		proposal.Type, proposal.Status, proposal.Tags, proposal.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert proposal: %w", err)
	}
	return nil
}

func (r *proposalRepository) CreateLine(ctx context.Context, line *models.ProposalLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	line.CreatedAt = time.Now()

	proposed, err := json.Marshal(line.Proposed)
	if err != nil {
		return fmt.Errorf("failed to marshal proposed values: %w", err)
	}

	query := `
		INSERT INTO order_change_proposal_lines (
			id, proposal_id, line_number, item_id, item_name,
			item_variant_id, change_type, order_line_id, proposed_values,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.Exec(ctx, query,
		line.ID, line.ProposalID, line.LineNumber, line.ItemID, line.ItemName,
		line.ItemVariantID, line.ChangeType, line.OrderLineID, proposed,
		line.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert proposal line: %w", err)
	}
	return nil
}
