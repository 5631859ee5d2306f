package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/catalog"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/models"
)

// renderCustomers formats the customer catalog for the system prompt, one
// line per customer with contact details and per-item notes.
func renderCustomers(cat *catalog.Index, withNotes bool) string {
	var b strings.Builder
	for _, c := range cat.Customers() {
		b.WriteString(fmt.Sprintf("  %s (id: %s)", c.Name, c.ID))
		if c.Email != "" {
			b.WriteString(" email: " + c.Email)
		}
		if c.Phone != "" {
			b.WriteString(" phone: " + c.Phone)
		}
		if c.Notes != "" {
			b.WriteString(" -- " + c.Notes)
		}
		if withNotes {
			if notes := cat.NotesForCustomer(c.ID); len(notes) > 0 {
				parts := make([]string, len(notes))
				for i, n := range notes {
					parts[i] = fmt.Sprintf("%s: %s", n.ItemName, n.Note)
				}
				b.WriteString("\n    Item notes: " + strings.Join(parts, "; "))
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderItems formats the item catalog with the variant legend per item.
func renderItems(cat *catalog.Index) string {
	var b strings.Builder
	for _, item := range cat.Items() {
		variants := make([]string, len(item.Variants))
		for i, v := range item.Variants {
			variants[i] = fmt.Sprintf("%s=%s (id:%s)", v.VariantCode, v.VariantName, v.ID)
		}
		b.WriteString(fmt.Sprintf("  %s [SKU: %s] (id: %s) -> variants: %s\n",
			item.Name, item.SKU, item.ID, strings.Join(variants, ", ")))
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildSheetSystemPrompt builds the system prompt for the ERP spreadsheet
// sync. Rows from the sheet are authoritative; orders are created directly.
func BuildSheetSystemPrompt(cat *catalog.Index, today time.Time) string {
	return fmt.Sprintf(`You are Frootful's order processing agent for Boston Microgreens.
You are processing orders from the ERP spreadsheet. The data contains rows with Customer, Product, Size, and Qty columns.

These are AUTHORITATIVE orders from the ERP -- create them directly (not as proposals).

CUSTOMERS:
%s

ITEMS & VARIANTS:
%s

YOUR WORKFLOW:
1. Read ALL the spreadsheet rows provided
2. Group rows by customer -- each customer's items for this delivery date form ONE order
3. For each customer:
   a. Match the customer name to the CUSTOMERS list above (fuzzy match is OK)
   b. Match each product to the ITEMS list above -- use exact item IDs and variant IDs
   c. Map the Size column to a variant: S = Small, L = Large, T20 = Tray 20
   d. Call fetch_open_orders to check if an order already exists for this customer and delivery date
   e. If an order ALREADY EXISTS -> SKIP this customer (do not create a duplicate)
   f. If NO existing order -> call create_order with ALL items for this customer
4. Continue until ALL customers have been processed

RULES:
- Variants: S = Small, L = Large, T20 = Tray 20
  "small" or "S" -> S variant, "large" or "L" -> L variant, "tray" or "T20" -> T20 variant
- If no size/variant is specified, default to S (Small)
- The delivery date is provided in the data header -- use it as-is (already in YYYY-MM-DD format)
- Process EVERY customer in the data. Do not skip any (unless they already have an order).
- If a customer name doesn't exactly match the list, use your best judgment to match it
- If a product doesn't exactly match, use your best judgment -- look at the item name and SKU
- Today's date is %s

Be concise. Match, check existing orders, create ALL new orders.`,
		renderCustomers(cat, true), renderItems(cat), today.Format("2006-01-02"))
}

// BuildIntakeSystemPrompt builds the system prompt for free-form order
// intake. Every mutation is staged as a proposal for review.
func BuildIntakeSystemPrompt(cat *catalog.Index, today time.Time) string {
	return fmt.Sprintf(`You are Frootful's order processing agent for Boston Microgreens.
You receive orders from restaurant customers via text messages, emails, PDFs, images, or spreadsheets.

CUSTOMERS:
%s

ITEMS & VARIANTS:
%s

YOUR WORKFLOW:
1. Read the order content (text, PDF, image, or spreadsheet)
2. Identify the customer (match against the customer list above)
3. Match each ordered item to the catalog above -- use the exact item IDs and variant IDs
4. Check if an existing order already exists for the delivery date (use fetch_open_orders)
5. Call the appropriate tool:
   - No existing order -> create_order
   - Existing order and the customer wants changes -> modify_order
   - Existing order and the customer wants to cancel -> cancel_order

RULES:
- Order frequency: determine if the order is "recurring" or "one-time":
  - "weekly", "every week", "standing order", "recurring", "regular", "same as usual" -> "recurring"
  - Otherwise -> "one-time"
- Variants: S = Small, L = Large, T20 = Tray 20
  "small" -> S, "large" -> L, "tray" or "tray of" -> T20
- If the customer doesn't specify a variant, default to S (Small)
- A single message may reference multiple delivery dates -- call the tool separately for each
- For modify_order: pass order_id and only what's changing:
  - customer_id -- if the order is being reassigned
  - delivery_date -- if the delivery date is changing
  - items -- array of item changes, each with a type:
    - type "add": new item -> requires item_id, item_variant_id, quantity
    - type "update": changing an existing line -> requires order_line_id, plus only the fields changing
    - type "remove": canceling a line -> requires only order_line_id
- Today's date is %s
- CRITICAL: All delivery dates MUST be in the future. When an order says "Tuesday" or "Friday", calculate the NEXT occurrence that is AFTER today. Do NOT create orders for past dates. Do NOT comment on dates being in the past -- just use the correct future date.

Be concise. Match, check existing orders, submit.`,
		renderCustomers(cat, false), renderItems(cat), today.Format("2006-01-02"))
}

// BuildSectionMessage renders one extracted date section as the initial user
// message for the sheet sync: the row table wrapped in per-run instructions.
// The rows arriving here already passed the existing-order prefilter, so the
// engine is told to create directly instead of re-checking each customer.
func BuildSectionMessage(sec models.SheetSection) string {
	return fmt.Sprintf(`Process ALL orders from this spreadsheet data. Create one order per customer.

%s
Instructions:
- The delivery date for all orders is: %s
- Process EVERY customer row. Do not skip any.
- For each customer, call create_order with ALL items for that customer.
- Group all items for the same customer into a single create_order call.
- These customers have been pre-verified to NOT have existing orders, so you can create orders directly without checking first.`,
		FormatSectionData(sec), sec.ISODate)
}

// FormatSectionData renders a date section's rows as a pipe table.
func FormatSectionData(sec models.SheetSection) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("DELIVERY DATE: %s (%s)\n\n", sec.DateLabel, sec.ISODate))
	b.WriteString("Customer | Product | Size | Qty\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	for _, row := range sec.Rows {
		b.WriteString(fmt.Sprintf("%s | %s | %s | %s\n", row.Customer, row.Product, row.Size, row.Quantity))
	}
	return b.String()
}
