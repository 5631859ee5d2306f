// Package catalog builds the per-run lookup index over customers, items and
// item variants. The index is an immutable value constructed once per
// pipeline run and passed explicitly to every component that resolves
// references.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/models"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/repositories"
)

// Placeholder values returned when a reference cannot be resolved. Unresolved
// references never fail a mutation; they degrade to these markers.
const (
	UnknownName        = "Unknown"
	UnknownVariantCode = "?"
)

// VariantRef is a variant with a back-reference to its parent item.
type VariantRef struct {
	models.ItemVariant
	ItemName string
}

// Index holds fast lookups for the loaded catalog.
type Index struct {
	customers       []*models.Customer
	items           []*models.Item
	customersByID   map[uuid.UUID]*models.Customer
	customersByName map[string]*models.Customer // lower-cased trimmed name
	itemsByID       map[uuid.UUID]*models.Item
	variantsByID    map[uuid.UUID]*VariantRef
	notesByCustomer map[uuid.UUID][]*models.CustomerItemNote
}

// NewIndex builds an Index from flat reference lists.
func NewIndex(customers []*models.Customer, items []*models.Item, notes []*models.CustomerItemNote) *Index {
	idx := &Index{
		customers:       customers,
		items:           items,
		customersByID:   make(map[uuid.UUID]*models.Customer, len(customers)),
		customersByName: make(map[string]*models.Customer, len(customers)),
		itemsByID:       make(map[uuid.UUID]*models.Item, len(items)),
		variantsByID:    make(map[uuid.UUID]*VariantRef),
		notesByCustomer: make(map[uuid.UUID][]*models.CustomerItemNote),
	}

	for _, c := range customers {
		idx.customersByID[c.ID] = c
		idx.customersByName[NormalizeName(c.Name)] = c
	}

	for _, item := range items {
		idx.itemsByID[item.ID] = item
		for i := range item.Variants {
			v := item.Variants[i]
			idx.variantsByID[v.ID] = &VariantRef{ItemVariant: v, ItemName: item.Name}
		}
	}

	for _, n := range notes {
		idx.notesByCustomer[n.CustomerID] = append(idx.notesByCustomer[n.CustomerID], n)
	}

	return idx
}

// Load reads the full catalog for an organization and builds the index.
func Load(
	ctx context.Context,
	orgID uuid.UUID,
	customerRepo repositories.CustomerRepository,
	itemRepo repositories.ItemRepository,
	noteRepo repositories.CustomerItemNoteRepository,
) (*Index, error) {
	customers, err := customerRepo.ListActive(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}

	items, err := itemRepo.ListActive(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	notes, err := noteRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer item notes: %w", err)
	}

	return NewIndex(customers, items, notes), nil
}

// NormalizeName lower-cases and trims a customer name for matching.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Customers returns all customers in load (name) order.
func (idx *Index) Customers() []*models.Customer {
	return idx.customers
}

// Items returns all items in load (name) order.
func (idx *Index) Items() []*models.Item {
	return idx.items
}

// CustomerByID looks up a customer by id.
func (idx *Index) CustomerByID(id uuid.UUID) (*models.Customer, bool) {
	c, ok := idx.customersByID[id]
	return c, ok
}

// CustomerByName looks up a customer by case-insensitive trimmed name.
func (idx *Index) CustomerByName(name string) (*models.Customer, bool) {
	c, ok := idx.customersByName[NormalizeName(name)]
	return c, ok
}

// ItemByID looks up an item by id.
func (idx *Index) ItemByID(id uuid.UUID) (*models.Item, bool) {
	item, ok := idx.itemsByID[id]
	return item, ok
}

// VariantByID looks up a variant (with parent item back-reference) by id.
func (idx *Index) VariantByID(id uuid.UUID) (*VariantRef, bool) {
	v, ok := idx.variantsByID[id]
	return v, ok
}

// NotesForCustomer returns the item notes recorded for a customer.
func (idx *Index) NotesForCustomer(id uuid.UUID) []*models.CustomerItemNote {
	return idx.notesByCustomer[id]
}

// ResolveCustomerName returns the customer's display name, or "Unknown" when
// the id is not in the catalog.
func (idx *Index) ResolveCustomerName(id uuid.UUID) string {
	if c, ok := idx.customersByID[id]; ok {
		return c.Name
	}
	return UnknownName
}

// ResolveItem returns the display name and variant code for an (item,
// variant) pair. Unresolved references degrade to placeholders rather than
// failing the caller.
func (idx *Index) ResolveItem(itemID, variantID uuid.UUID) (itemName, variantCode string) {
	itemName = UnknownName
	variantCode = UnknownVariantCode
	if item, ok := idx.itemsByID[itemID]; ok {
		itemName = item.Name
	}
	if v, ok := idx.variantsByID[variantID]; ok {
		variantCode = v.VariantCode
	}
	return itemName, variantCode
}
