// Package mutation executes the order-mutation tools requested by the
// decision engine. Arguments arrive as raw JSON and are validated at this
// boundary; validation and lookup failures are serialized into the tool
// result so the engine can adjust, never raised out of the run.
package mutation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/agent"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/apperrors"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/catalog"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/engine"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/models"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/repositories"
)

// Mode selects how write operations land.
type Mode string

const (
	// ModeDirect persists orders immediately (trusted feed). Only the
	// read and create tools are offered.
	ModeDirect Mode = "direct"
	// ModeReview stages every write as a proposal for human review.
	ModeReview Mode = "review"
)

// Options configure a Mutator.
type Options struct {
	Mode         Mode
	Source       string // tagged onto proposals and events, e.g. "erp" or "intake"
	AgentVersion string
	Now          func() time.Time // defaults to time.Now
}

// Mutator dispatches the four order tools against the store.
type Mutator struct {
	orders    repositories.OrderRepository
	proposals repositories.ProposalRepository
	catalog   *catalog.Index
	orgID     uuid.UUID
	opts      Options
	logger    *zap.Logger
}

// NewMutator creates a Mutator for one organization and run mode.
func NewMutator(
	orders repositories.OrderRepository,
	proposals repositories.ProposalRepository,
	cat *catalog.Index,
	orgID uuid.UUID,
	opts Options,
	logger *zap.Logger,
) *Mutator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Mutator{
		orders:    orders,
		proposals: proposals,
		catalog:   cat,
		orgID:     orgID,
		opts:      opts,
		logger:    logger.Named("mutation"),
	}
}

// Tools implements agent.ToolDispatcher. Direct mode offers only the read
// and create tools; review mode offers the full set.
func (m *Mutator) Tools() []engine.ToolDefinition {
	review := m.opts.Mode == ModeReview
	tools := []engine.ToolDefinition{
		fetchOpenOrdersTool(),
		createOrderTool(review),
	}
	if review {
		tools = append(tools, modifyOrderTool(), cancelOrderTool())
	}
	return tools
}

// Dispatch implements agent.ToolDispatcher.
func (m *Mutator) Dispatch(ctx context.Context, call engine.ToolCall) agent.DispatchResult {
	payload, created, err := m.execute(ctx, call)
	if err != nil {
		m.logger.Warn("tool call failed",
			zap.String("tool", call.Name),
			zap.Error(err))
		content, _ := json.Marshal(map[string]string{"error": err.Error()})
		return agent.DispatchResult{
			Content: string(content),
			IsError: true,
			Errors:  []string{fmt.Sprintf("%s: %s", call.Name, err)},
		}
	}

	content, err := json.Marshal(payload)
	if err != nil {
		content = []byte(fmt.Sprintf(`{"error": %q}`, err.Error()))
		return agent.DispatchResult{Content: string(content), IsError: true, Errors: []string{err.Error()}}
	}
	return agent.DispatchResult{Content: string(content), Created: created}
}

func (m *Mutator) execute(ctx context.Context, call engine.ToolCall) (any, []agent.CreatedRecord, error) {
	switch call.Name {
	case ToolFetchOpenOrders:
		payload, err := m.fetchOpenOrders(ctx, call.Arguments)
		return payload, nil, err
	case ToolCreateOrder:
		return m.createOrder(ctx, call.Arguments)
	case ToolModifyOrder:
		if m.opts.Mode != ModeReview {
			return nil, nil, apperrors.NewValidationError("tool", "modify_order is only available in review mode")
		}
		return m.modifyOrder(ctx, call.Arguments)
	case ToolCancelOrder:
		if m.opts.Mode != ModeReview {
			return nil, nil, apperrors.NewValidationError("tool", "cancel_order is only available in review mode")
		}
		return m.cancelOrder(ctx, call.Arguments)
	default:
		return nil, nil, apperrors.NewValidationError("tool", fmt.Sprintf("unknown tool %q", call.Name))
	}
}

// ============================================================================
// fetch_open_orders
// ============================================================================

type fetchOpenOrdersArgs struct {
	CustomerID   string `json:"customer_id"`
	DeliveryDate string `json:"delivery_date,omitempty"`
}

type orderSummary struct {
	OrderID      string        `json:"order_id"`
	CustomerName string        `json:"customer_name"`
	DeliveryDate string        `json:"delivery_date"`
	Status       string        `json:"status"`
	Lines        []lineSummary `json:"lines"`
}

type lineSummary struct {
	OrderLineID string  `json:"order_line_id"`
	LineNumber  int     `json:"line_number"`
	ItemName    string  `json:"item_name"`
	VariantCode string  `json:"variant_code"`
	Quantity    float64 `json:"quantity"`
}

func (m *Mutator) fetchOpenOrders(ctx context.Context, arguments string) (any, error) {
	var args fetchOpenOrdersArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil, apperrors.NewValidationError("arguments", "not valid JSON")
	}
	customerID, err := parseUUID("customer_id", args.CustomerID)
	if err != nil {
		return nil, err
	}
	if args.DeliveryDate != "" {
		if err := validateISODate("delivery_date", args.DeliveryDate); err != nil {
			return nil, err
		}
	}

	orders, err := m.orders.ListOpen(ctx, m.orgID, repositories.OpenOrdersFilter{
		CustomerID:   customerID,
		FromDate:     m.opts.Now().Format("2006-01-02"),
		DeliveryDate: args.DeliveryDate,
		Limit:        5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list open orders: %w", err)
	}

	summaries := make([]orderSummary, 0, len(orders))
	for _, o := range orders {
		s := orderSummary{
			OrderID:      o.ID.String(),
			CustomerName: m.catalog.ResolveCustomerName(o.CustomerID),
			DeliveryDate: o.DeliveryDate,
			Status:       string(o.Status),
		}
		for _, line := range o.Lines {
			itemName, variantCode := m.catalog.ResolveItem(line.ItemID, line.ItemVariantID)
			s.Lines = append(s.Lines, lineSummary{
				OrderLineID: line.ID.String(),
				LineNumber:  line.LineNumber,
				ItemName:    itemName,
				VariantCode: variantCode,
				Quantity:    line.Quantity,
			})
		}
		summaries = append(summaries, s)
	}

	return map[string]any{"orders": summaries}, nil
}

// ============================================================================
// create_order
// ============================================================================

type createOrderArgs struct {
	CustomerID     string          `json:"customer_id"`
	DeliveryDate   string          `json:"delivery_date"`
	OrderFrequency string          `json:"order_frequency,omitempty"`
	Items          []orderItemArgs `json:"items"`
}

type orderItemArgs struct {
	ItemID        string   `json:"item_id"`
	ItemVariantID string   `json:"item_variant_id"`
	Quantity      *float64 `json:"quantity"`
}

func (m *Mutator) createOrder(ctx context.Context, arguments string) (any, []agent.CreatedRecord, error) {
	var args createOrderArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil, nil, apperrors.NewValidationError("arguments", "not valid JSON")
	}

	customerID, err := parseUUID("customer_id", args.CustomerID)
	if err != nil {
		return nil, nil, err
	}
	if err := validateISODate("delivery_date", args.DeliveryDate); err != nil {
		return nil, nil, err
	}
	if len(args.Items) == 0 {
		return nil, nil, apperrors.NewValidationError("items", "at least one item is required")
	}

	customerName := m.catalog.ResolveCustomerName(customerID)

	if m.opts.Mode == ModeReview {
		return m.createOrderProposal(ctx, customerID, customerName, args)
	}

	order := &models.Order{
		ID:             uuid.New(),
		OrganizationID: m.orgID,
		CustomerID:     customerID,
		CustomerName:   customerName,
		DeliveryDate:   args.DeliveryDate,
		Status:         models.OrderStatusReady,
		SourceChannel:  m.opts.Source,
	}

	lines := make([]models.OrderLine, 0, len(args.Items))
	for i, it := range args.Items {
		itemID, variantID, quantity, err := validateOrderItem(i, it)
		if err != nil {
			return nil, nil, err
		}
		itemName, _ := m.catalog.ResolveItem(itemID, variantID)
		lines = append(lines, models.OrderLine{
			ID:            uuid.New(),
			OrderID:       order.ID,
			LineNumber:    i + 1,
			ItemID:        itemID,
			ItemVariantID: variantID,
			ProductName:   itemName,
			Quantity:      quantity,
		})
	}

	if err := m.orders.Create(ctx, order, lines); err != nil {
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}
	if err := m.orders.InsertEvent(ctx, &models.OrderEvent{
		ID:      uuid.New(),
		OrderID: order.ID,
		Type:    models.OrderEventCreated,
		Metadata: map[string]any{
			"source":        m.opts.Source,
			"agent_version": m.opts.AgentVersion,
		},
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to record order event: %w", err)
	}

	m.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("customer", customerName),
		zap.String("delivery_date", order.DeliveryDate),
		zap.Int("lines", len(lines)))

	record := agent.CreatedRecord{
		Kind:         "order",
		ID:           order.ID,
		Customer:     customerName,
		DeliveryDate: order.DeliveryDate,
		LineCount:    len(lines),
	}
	payload := map[string]any{
		"type":          "order_created",
		"order_id":      order.ID.String(),
		"customer_name": customerName,
		"delivery_date": order.DeliveryDate,
		"line_count":    len(lines),
	}
	return payload, []agent.CreatedRecord{record}, nil
}

func (m *Mutator) createOrderProposal(ctx context.Context, customerID uuid.UUID, customerName string, args createOrderArgs) (any, []agent.CreatedRecord, error) {
	proposal := &models.Proposal{
		ID:             uuid.New(),
		OrganizationID: m.orgID,
		Type:           models.ProposalTypeNewOrder,
		Tags:           m.proposalTags(args.OrderFrequency),
	}

	lines := make([]*models.ProposalLine, 0, len(args.Items))
	for i, it := range args.Items {
		itemID, variantID, quantity, err := validateOrderItem(i, it)
		if err != nil {
			return nil, nil, err
		}
		itemName, variantCode := m.catalog.ResolveItem(itemID, variantID)
		lines = append(lines, &models.ProposalLine{
			ID:            uuid.New(),
			ProposalID:    proposal.ID,
			LineNumber:    i + 1,
			ItemID:        itemID,
			ItemName:      itemName,
			ItemVariantID: variantID,
			ChangeType:    models.ChangeTypeAdd,
			Proposed: models.ProposedValues{
				Quantity:       quantity,
				VariantCode:    variantCode,
				DeliveryDate:   args.DeliveryDate,
				CustomerID:     customerID,
				CustomerName:   customerName,
				OrganizationID: m.orgID,
			},
		})
	}

	if err := m.proposals.Create(ctx, proposal); err != nil {
		return nil, nil, fmt.Errorf("failed to create proposal: %w", err)
	}
	for _, line := range lines {
		if err := m.proposals.CreateLine(ctx, line); err != nil {
			return nil, nil, fmt.Errorf("failed to create proposal line: %w", err)
		}
	}

	m.logger.Info("new-order proposal created",
		zap.String("proposal_id", proposal.ID.String()),
		zap.String("customer", customerName),
		zap.Int("lines", len(lines)))

	record := agent.CreatedRecord{
		Kind:         "proposal",
		ID:           proposal.ID,
		Customer:     customerName,
		DeliveryDate: args.DeliveryDate,
		LineCount:    len(lines),
		Detail:       string(models.ProposalTypeNewOrder),
	}
	payload := map[string]any{
		"type":          "proposal_created",
		"proposal_type": models.ProposalTypeNewOrder,
		"proposal_id":   proposal.ID.String(),
		"customer_name": customerName,
		"delivery_date": args.DeliveryDate,
		"line_count":    len(lines),
	}
	return payload, []agent.CreatedRecord{record}, nil
}

// ============================================================================
// modify_order
// ============================================================================

type modifyOrderArgs struct {
	OrderID        string           `json:"order_id"`
	CustomerID     string           `json:"customer_id,omitempty"`
	DeliveryDate   string           `json:"delivery_date,omitempty"`
	OrderFrequency string           `json:"order_frequency,omitempty"`
	Items          []itemChangeArgs `json:"items,omitempty"`
}

type itemChangeArgs struct {
	Type          string   `json:"type"`
	OrderLineID   string   `json:"order_line_id,omitempty"`
	ItemID        string   `json:"item_id,omitempty"`
	ItemVariantID string   `json:"item_variant_id,omitempty"`
	Quantity      *float64 `json:"quantity,omitempty"`
}

// changeTypeFor maps the wire change kind onto the stored change type.
var changeTypeFor = map[string]models.ChangeType{
	"add":    models.ChangeTypeAdd,
	"update": models.ChangeTypeModify,
	"remove": models.ChangeTypeRemove,
}

func (m *Mutator) modifyOrder(ctx context.Context, arguments string) (any, []agent.CreatedRecord, error) {
	var args modifyOrderArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil, nil, apperrors.NewValidationError("arguments", "not valid JSON")
	}

	orderID, err := parseUUID("order_id", args.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if args.CustomerID == "" && args.DeliveryDate == "" && len(args.Items) == 0 {
		return nil, nil, apperrors.NewValidationError("arguments", "no changes requested")
	}
	if args.DeliveryDate != "" {
		if err := validateISODate("delivery_date", args.DeliveryDate); err != nil {
			return nil, nil, err
		}
	}

	order, err := m.getOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	// Header-level targets fall back to the persisted order.
	targetCustomerID := order.CustomerID
	if args.CustomerID != "" {
		if targetCustomerID, err = parseUUID("customer_id", args.CustomerID); err != nil {
			return nil, nil, err
		}
	}
	targetCustomerName := m.catalog.ResolveCustomerName(targetCustomerID)
	targetDate := order.DeliveryDate
	if args.DeliveryDate != "" {
		targetDate = args.DeliveryDate
	}

	proposal := &models.Proposal{
		ID:             uuid.New(),
		OrganizationID: m.orgID,
		OrderID:        &orderID,
		Type:           models.ProposalTypeChangeOrder,
		Tags:           m.proposalTags(args.OrderFrequency),
	}

	lines := make([]*models.ProposalLine, 0, len(args.Items))
	for i, change := range args.Items {
		line, err := m.buildChangeLine(ctx, proposal.ID, i, change, targetCustomerID, targetCustomerName, targetDate)
		if err != nil {
			return nil, nil, err
		}
		lines = append(lines, line)
	}

	if err := m.proposals.Create(ctx, proposal); err != nil {
		return nil, nil, fmt.Errorf("failed to create proposal: %w", err)
	}
	for _, line := range lines {
		if err := m.proposals.CreateLine(ctx, line); err != nil {
			return nil, nil, fmt.Errorf("failed to create proposal line: %w", err)
		}
	}
	if err := m.flagForReview(ctx, orderID, proposal.ID, models.OrderEventChangeProposed); err != nil {
		return nil, nil, err
	}

	m.logger.Info("change proposal created",
		zap.String("proposal_id", proposal.ID.String()),
		zap.String("order_id", orderID.String()),
		zap.Int("lines", len(lines)))

	record := agent.CreatedRecord{
		Kind:         "proposal",
		ID:           proposal.ID,
		Customer:     targetCustomerName,
		DeliveryDate: targetDate,
		LineCount:    len(lines),
		Detail:       string(models.ProposalTypeChangeOrder),
	}
	payload := map[string]any{
		"type":          "proposal_created",
		"proposal_type": models.ProposalTypeChangeOrder,
		"proposal_id":   proposal.ID.String(),
		"order_id":      orderID.String(),
		"line_count":    len(lines),
	}
	return payload, []agent.CreatedRecord{record}, nil
}

// buildChangeLine validates one item change and backfills omitted fields
// from the persisted order line for update and remove.
func (m *Mutator) buildChangeLine(
	ctx context.Context,
	proposalID uuid.UUID,
	index int,
	change itemChangeArgs,
	customerID uuid.UUID,
	customerName string,
	deliveryDate string,
) (*models.ProposalLine, error) {
	field := fmt.Sprintf("items[%d]", index)

	changeType, ok := changeTypeFor[change.Type]
	if !ok {
		return nil, apperrors.NewValidationError(field+".type", fmt.Sprintf("unknown change type %q", change.Type))
	}

	line := &models.ProposalLine{
		ID:         uuid.New(),
		ProposalID: proposalID,
		LineNumber: index + 1,
		ChangeType: changeType,
		Proposed: models.ProposedValues{
			DeliveryDate:   deliveryDate,
			CustomerID:     customerID,
			CustomerName:   customerName,
			OrganizationID: m.orgID,
		},
	}

	switch changeType {
	case models.ChangeTypeAdd:
		itemID, variantID, quantity, err := validateOrderItem(index, orderItemArgs{
			ItemID:        change.ItemID,
			ItemVariantID: change.ItemVariantID,
			Quantity:      change.Quantity,
		})
		if err != nil {
			return nil, err
		}
		line.ItemID = itemID
		line.ItemVariantID = variantID
		line.Proposed.Quantity = quantity

	case models.ChangeTypeModify, models.ChangeTypeRemove:
		if change.OrderLineID == "" {
			return nil, apperrors.NewValidationError(field+".order_line_id", "required for update and remove")
		}
		lineID, err := parseUUID(field+".order_line_id", change.OrderLineID)
		if err != nil {
			return nil, err
		}
		existing, err := m.getOrderLine(ctx, lineID)
		if err != nil {
			return nil, err
		}
		line.OrderLineID = &lineID
		line.ItemID = existing.ItemID
		line.ItemVariantID = existing.ItemVariantID
		line.Proposed.Quantity = existing.Quantity

		if changeType == models.ChangeTypeModify {
			// Any field the caller did supply overrides the persisted value.
			if change.ItemID != "" {
				if line.ItemID, err = parseUUID(field+".item_id", change.ItemID); err != nil {
					return nil, err
				}
			}
			if change.ItemVariantID != "" {
				if line.ItemVariantID, err = parseUUID(field+".item_variant_id", change.ItemVariantID); err != nil {
					return nil, err
				}
			}
			if change.Quantity != nil {
				if *change.Quantity <= 0 {
					return nil, apperrors.NewValidationError(field+".quantity", "must be positive")
				}
				line.Proposed.Quantity = *change.Quantity
			}
		}
	}

	itemName, variantCode := m.catalog.ResolveItem(line.ItemID, line.ItemVariantID)
	line.ItemName = itemName
	line.Proposed.VariantCode = variantCode
	return line, nil
}

// ============================================================================
// cancel_order
// ============================================================================

type cancelOrderArgs struct {
	OrderID        string `json:"order_id"`
	OrderFrequency string `json:"order_frequency,omitempty"`
}

func (m *Mutator) cancelOrder(ctx context.Context, arguments string) (any, []agent.CreatedRecord, error) {
	var args cancelOrderArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil, nil, apperrors.NewValidationError("arguments", "not valid JSON")
	}

	orderID, err := parseUUID("order_id", args.OrderID)
	if err != nil {
		return nil, nil, err
	}
	order, err := m.getOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	proposal := &models.Proposal{
		ID:             uuid.New(),
		OrganizationID: m.orgID,
		OrderID:        &orderID,
		Type:           models.ProposalTypeCancelOrder,
		Tags:           m.proposalTags(args.OrderFrequency),
	}
	if err := m.proposals.Create(ctx, proposal); err != nil {
		return nil, nil, fmt.Errorf("failed to create proposal: %w", err)
	}
	if err := m.flagForReview(ctx, orderID, proposal.ID, models.OrderEventCancelProposed); err != nil {
		return nil, nil, err
	}

	customerName := m.catalog.ResolveCustomerName(order.CustomerID)
	m.logger.Info("cancel proposal created",
		zap.String("proposal_id", proposal.ID.String()),
		zap.String("order_id", orderID.String()))

	record := agent.CreatedRecord{
		Kind:         "proposal",
		ID:           proposal.ID,
		Customer:     customerName,
		DeliveryDate: order.DeliveryDate,
		Detail:       string(models.ProposalTypeCancelOrder),
	}
	payload := map[string]any{
		"type":          "proposal_created",
		"proposal_type": models.ProposalTypeCancelOrder,
		"proposal_id":   proposal.ID.String(),
		"order_id":      orderID.String(),
	}
	return payload, []agent.CreatedRecord{record}, nil
}

// ============================================================================
// Helpers
// ============================================================================

func (m *Mutator) proposalTags(frequency string) map[string]any {
	tags := map[string]any{
		"source":        m.opts.Source,
		"agent_version": m.opts.AgentVersion,
	}
	if frequency != "" {
		tags["order_frequency"] = frequency
	}
	return tags
}

// flagForReview flips the order to pending review and records the event that
// points at the proposal.
func (m *Mutator) flagForReview(ctx context.Context, orderID, proposalID uuid.UUID, eventType string) error {
	if err := m.orders.UpdateStatus(ctx, orderID, models.OrderStatusPendingReview); err != nil {
		return fmt.Errorf("failed to flag order for review: %w", err)
	}
	if err := m.orders.InsertEvent(ctx, &models.OrderEvent{
		ID:      uuid.New(),
		OrderID: orderID,
		Type:    eventType,
		Metadata: map[string]any{
			"proposal_id":   proposalID.String(),
			"source":        m.opts.Source,
			"agent_version": m.opts.AgentVersion,
		},
	}); err != nil {
		return fmt.Errorf("failed to record order event: %w", err)
	}
	return nil
}

func (m *Mutator) getOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := m.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewDataReferenceError("order", id.String())
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

func (m *Mutator) getOrderLine(ctx context.Context, id uuid.UUID) (*models.OrderLine, error) {
	line, err := m.orders.GetLine(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewDataReferenceError("order line", id.String())
		}
		return nil, fmt.Errorf("failed to load order line: %w", err)
	}
	return line, nil
}

func validateOrderItem(index int, it orderItemArgs) (itemID, variantID uuid.UUID, quantity float64, err error) {
	field := fmt.Sprintf("items[%d]", index)
	if itemID, err = parseUUID(field+".item_id", it.ItemID); err != nil {
		return
	}
	if variantID, err = parseUUID(field+".item_variant_id", it.ItemVariantID); err != nil {
		return
	}
	if it.Quantity == nil {
		err = apperrors.NewValidationError(field+".quantity", "required")
		return
	}
	if *it.Quantity <= 0 {
		err = apperrors.NewValidationError(field+".quantity", "must be positive")
		return
	}
	quantity = *it.Quantity
	return
}

func parseUUID(field, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, apperrors.NewValidationError(field, "required")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError(field, "must be a UUID")
	}
	return id, nil
}

func validateISODate(field, value string) error {
	if value == "" {
		return apperrors.NewValidationError(field, "required")
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return apperrors.NewValidationError(field, "must be a YYYY-MM-DD date")
	}
	return nil
}

// Ensure Mutator implements agent.ToolDispatcher at compile time.
var _ agent.ToolDispatcher = (*Mutator)(nil)
