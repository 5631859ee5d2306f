package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/models"
)

var (
	orgID     = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	sushiID   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	basilID   = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	largeID   = uuid.MustParse("44444444-4444-4444-4444-444444444444")
	smallID   = uuid.MustParse("55555555-5555-5555-5555-555555555555")
	unknownID = uuid.MustParse("99999999-9999-9999-9999-999999999999")
)

func fixtureIndex() *Index {
	customers := []*models.Customer{
		{ID: sushiID, OrganizationID: orgID, Name: "Cafe Sushi", Active: true},
	}
	items := []*models.Item{
		{ID: basilID, Name: "Basil", Variants: []models.ItemVariant{
			{ID: largeID, ItemID: basilID, VariantCode: "L", VariantName: "Large"},
			{ID: smallID, ItemID: basilID, VariantCode: "S", VariantName: "Small"},
		}},
	}
	notes := []*models.CustomerItemNote{
		{ID: uuid.New(), CustomerID: sushiID, ItemName: "Basil", Note: "tight bunches"},
	}
	return NewIndex(customers, items, notes)
}

func TestIndexLookups(t *testing.T) {
	idx := fixtureIndex()

	c, ok := idx.CustomerByID(sushiID)
	require.True(t, ok)
	assert.Equal(t, "Cafe Sushi", c.Name)

	_, ok = idx.CustomerByID(unknownID)
	assert.False(t, ok)

	item, ok := idx.ItemByID(basilID)
	require.True(t, ok)
	assert.Equal(t, "Basil", item.Name)

	v, ok := idx.VariantByID(largeID)
	require.True(t, ok)
	assert.Equal(t, "L", v.VariantCode)
	assert.Equal(t, "Basil", v.ItemName)

	notes := idx.NotesForCustomer(sushiID)
	require.Len(t, notes, 1)
	assert.Equal(t, "tight bunches", notes[0].Note)
	assert.Empty(t, idx.NotesForCustomer(unknownID))
}

func TestCustomerByName_NormalizesLookup(t *testing.T) {
	idx := fixtureIndex()

	for _, name := range []string{"Cafe Sushi", "cafe sushi", " CAFE SUSHI "} {
		c, ok := idx.CustomerByName(name)
		require.True(t, ok, "lookup %q", name)
		assert.Equal(t, sushiID, c.ID)
	}

	_, ok := idx.CustomerByName("Oleana")
	assert.False(t, ok)
}

func TestResolvePlaceholders(t *testing.T) {
	idx := fixtureIndex()

	assert.Equal(t, "Cafe Sushi", idx.ResolveCustomerName(sushiID))
	assert.Equal(t, UnknownName, idx.ResolveCustomerName(unknownID))

	name, code := idx.ResolveItem(basilID, smallID)
	assert.Equal(t, "Basil", name)
	assert.Equal(t, "S", code)

	// Each side degrades independently.
	name, code = idx.ResolveItem(unknownID, largeID)
	assert.Equal(t, UnknownName, name)
	assert.Equal(t, "L", code)

	name, code = idx.ResolveItem(basilID, unknownID)
	assert.Equal(t, "Basil", name)
	assert.Equal(t, UnknownVariantCode, code)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "cafe sushi", NormalizeName("  Cafe Sushi "))
	assert.Equal(t, "", NormalizeName("   "))
}

// ============================================================================
// Load
// ============================================================================

type stubCustomerRepo struct {
	customers []*models.Customer
	err       error
}

func (s *stubCustomerRepo) ListActive(ctx context.Context, orgID uuid.UUID) ([]*models.Customer, error) {
	return s.customers, s.err
}

func (s *stubCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	for _, c := range s.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, s.err
}

type stubItemRepo struct {
	items []*models.Item
	err   error
}

func (s *stubItemRepo) ListActive(ctx context.Context, orgID uuid.UUID) ([]*models.Item, error) {
	return s.items, s.err
}

type stubNoteRepo struct {
	notes []*models.CustomerItemNote
	err   error
}

func (s *stubNoteRepo) ListAll(ctx context.Context) ([]*models.CustomerItemNote, error) {
	return s.notes, s.err
}

func TestLoad(t *testing.T) {
	idx, err := Load(context.Background(), orgID,
		&stubCustomerRepo{customers: []*models.Customer{{ID: sushiID, Name: "Cafe Sushi"}}},
		&stubItemRepo{items: []*models.Item{{ID: basilID, Name: "Basil"}}},
		&stubNoteRepo{},
	)
	require.NoError(t, err)
	assert.Len(t, idx.Customers(), 1)
	assert.Len(t, idx.Items(), 1)
}

func TestLoad_PropagatesRepositoryErrors(t *testing.T) {
	boom := errors.New("connection refused")

	_, err := Load(context.Background(), orgID, &stubCustomerRepo{err: boom}, &stubItemRepo{}, &stubNoteRepo{})
	assert.ErrorIs(t, err, boom)

	_, err = Load(context.Background(), orgID, &stubCustomerRepo{}, &stubItemRepo{err: boom}, &stubNoteRepo{})
	assert.ErrorIs(t, err, boom)

	_, err = Load(context.Background(), orgID, &stubCustomerRepo{}, &stubItemRepo{}, &stubNoteRepo{err: boom})
	assert.ErrorIs(t, err, boom)
}
