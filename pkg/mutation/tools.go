package mutation

import "github.com/William-Gao/frootful-sales-aggregation/pkg/engine"

// Tool names exposed to the decision engine.
const (
	ToolFetchOpenOrders = "fetch_open_orders"
	ToolCreateOrder     = "create_order"
	ToolModifyOrder     = "modify_order"
	ToolCancelOrder     = "cancel_order"
)

func fetchOpenOrdersTool() engine.ToolDefinition {
	return engine.ToolDefinition{
		Name:        ToolFetchOpenOrders,
		Description: "Fetch the customer's upcoming orders (up to 5, non-cancelled, delivery date today or later, soonest first), each with its line items. Use this before creating or changing an order to avoid duplicates.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"customer_id": map[string]any{
					"type":        "string",
					"description": "UUID of the customer",
				},
				"delivery_date": map[string]any{
					"type":        "string",
					"description": "Optional YYYY-MM-DD filter; restricts results to one delivery date",
				},
			},
			"required": []string{"customer_id"},
		},
	}
}

func createOrderTool(review bool) engine.ToolDefinition {
	desc := "Create a new order for a customer and delivery date with one line per (item, variant, quantity)."
	if review {
		desc = "Propose a new order for a customer and delivery date with one line per (item, variant, quantity). The proposal is staged for human review, not applied immediately."
	}
	return engine.ToolDefinition{
		Name:        ToolCreateOrder,
		Description: desc,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"customer_id": map[string]any{
					"type":        "string",
					"description": "UUID of the customer",
				},
				"delivery_date": map[string]any{
					"type":        "string",
					"description": "Delivery date in YYYY-MM-DD form; must be a future date",
				},
				"order_frequency": map[string]any{
					"type":        "string",
					"enum":        []string{"one-time", "recurring"},
					"description": "Whether this is a one-time order or a recurring standing order",
				},
				"items": map[string]any{
					"type":        "array",
					"description": "Order lines in presentation order",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"item_id":         map[string]any{"type": "string", "description": "UUID of the item"},
							"item_variant_id": map[string]any{"type": "string", "description": "UUID of the size variant"},
							"quantity":        map[string]any{"type": "number", "description": "Quantity, must be positive"},
						},
						"required": []string{"item_id", "item_variant_id", "quantity"},
					},
				},
			},
			"required": []string{"customer_id", "delivery_date", "items"},
		},
	}
}

func modifyOrderTool() engine.ToolDefinition {
	return engine.ToolDefinition{
		Name:        ToolModifyOrder,
		Description: "Propose changes to an existing order: reassign the customer, move the delivery date, and/or add, update or remove line items. Omitted fields on an update keep their current values. The proposal is staged for human review.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"order_id": map[string]any{
					"type":        "string",
					"description": "UUID of the order to change",
				},
				"customer_id": map[string]any{
					"type":        "string",
					"description": "Optional new customer UUID",
				},
				"delivery_date": map[string]any{
					"type":        "string",
					"description": "Optional new delivery date in YYYY-MM-DD form",
				},
				"order_frequency": map[string]any{
					"type": "string",
					"enum": []string{"one-time", "recurring"},
				},
				"items": map[string]any{
					"type":        "array",
					"description": "Item-level changes",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"type": map[string]any{
								"type":        "string",
								"enum":        []string{"add", "update", "remove"},
								"description": "Kind of change",
							},
							"order_line_id": map[string]any{
								"type":        "string",
								"description": "UUID of the existing line; required for update and remove",
							},
							"item_id":         map[string]any{"type": "string", "description": "UUID of the item; required for add"},
							"item_variant_id": map[string]any{"type": "string", "description": "UUID of the size variant; required for add"},
							"quantity":        map[string]any{"type": "number", "description": "Quantity; required for add"},
						},
						"required": []string{"type"},
					},
				},
			},
			"required": []string{"order_id"},
		},
	}
}

func cancelOrderTool() engine.ToolDefinition {
	return engine.ToolDefinition{
		Name:        ToolCancelOrder,
		Description: "Propose cancelling an existing order. The order is flagged for review, not deleted.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"order_id": map[string]any{
					"type":        "string",
					"description": "UUID of the order to cancel",
				},
				"order_frequency": map[string]any{
					"type": "string",
					"enum": []string{"one-time", "recurring"},
				},
			},
			"required": []string{"order_id"},
		},
	}
}
