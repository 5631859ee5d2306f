package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/agent"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/catalog"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/engine"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/models"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/repositories"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/sheets"
)

// ============================================================================
// Fakes
// ============================================================================

// fixtureFetcher serves A1 ranges out of an in-memory grid whose first column
// is spreadsheet column C.
type fixtureFetcher struct {
	grid [][]string
	err  error
}

var fetchRangePattern = regexp.MustCompile(`^.+!([A-Z])(\d+):([A-Z])(\d+)$`)

func (f *fixtureFetcher) FetchRange(ctx context.Context, rangeA1 string) ([][]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	m := fetchRangePattern.FindStringSubmatch(rangeA1)
	if m == nil {
		return nil, fmt.Errorf("bad range %q", rangeA1)
	}
	colFrom := int(m[1][0] - 'C')
	colTo := int(m[3][0] - 'C')
	rowFrom, _ := strconv.Atoi(m[2])
	rowTo, _ := strconv.Atoi(m[4])

	var out [][]string
	for row := rowFrom; row <= rowTo && row <= len(f.grid); row++ {
		cells := f.grid[row-1]
		band := make([]string, 0, colTo-colFrom+1)
		for col := colFrom; col <= colTo; col++ {
			if col < len(cells) {
				band = append(band, cells[col])
			} else {
				band = append(band, "")
			}
		}
		out = append(out, band)
	}
	return out, nil
}

// stubOrderRepo only answers the lookups the sync flow needs.
type stubOrderRepo struct {
	customersWithOrders []uuid.UUID
}

func (s *stubOrderRepo) Create(ctx context.Context, order *models.Order, lines []models.OrderLine) error {
	return nil
}

func (s *stubOrderRepo) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrderRepo) GetLine(ctx context.Context, lineID uuid.UUID) (*models.OrderLine, error) {
	return nil, nil
}

func (s *stubOrderRepo) ListOpen(ctx context.Context, orgID uuid.UUID, filter repositories.OpenOrdersFilter) ([]*models.Order, error) {
	return nil, nil
}

func (s *stubOrderRepo) CustomerIDsWithOrders(ctx context.Context, orgID uuid.UUID, deliveryDate string) ([]uuid.UUID, error) {
	return s.customersWithOrders, nil
}

func (s *stubOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	return nil
}

func (s *stubOrderRepo) InsertEvent(ctx context.Context, event *models.OrderEvent) error {
	return nil
}

// stubDispatcher acknowledges every tool call with a fixed created record.
type stubDispatcher struct {
	created agent.CreatedRecord
	calls   int
}

func (d *stubDispatcher) Tools() []engine.ToolDefinition {
	return []engine.ToolDefinition{{Name: "create_order"}}
}

func (d *stubDispatcher) Dispatch(ctx context.Context, call engine.ToolCall) agent.DispatchResult {
	d.calls++
	return agent.DispatchResult{Content: `{}`, Created: []agent.CreatedRecord{d.created}}
}

// ============================================================================
// Fixtures
// ============================================================================

var (
	syncOrgID   = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	sushiID     = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	oleanaID    = uuid.MustParse("99999999-9999-9999-9999-999999999999")
	syncBasilID = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

func syncCatalog() *catalog.Index {
	return catalog.NewIndex(
		[]*models.Customer{
			{ID: sushiID, Name: "Cafe Sushi", Email: "orders@cafesushi.example"},
			{ID: oleanaID, Name: "Oleana"},
		},
		[]*models.Item{
			{ID: syncBasilID, SKU: "BAS", Name: "Basil", Variants: []models.ItemVariant{
				{ID: uuid.New(), ItemID: syncBasilID, VariantCode: "L", VariantName: "Large"},
			}},
		},
		nil,
	)
}

// ordersGrid lays out one Tuesday section with a single date sub-section.
// Column index 0 is spreadsheet column C.
func ordersGrid() [][]string {
	return [][]string{
		{""},
		{"Tuesday Harvests"},
		{"", "September 2, 2025"},
		{"", "Customer", "Product", "Size", "Qty"},
		{"", "Cafe Sushi", "Basil", "L", "3"},
		{"", "Oleana", "Pea Shoots", "T20", "1"},
		{""},
		{"Wednesday Harvests"},
	}
}

func newTestSync(t *testing.T, fetcher sheets.RangeFetcher, eng engine.Engine, dispatcher agent.ToolDispatcher, orders repositories.OrderRepository) *SheetSync {
	t.Helper()
	logger := zap.NewNop()
	scanner := sheets.NewScanner(fetcher, "ORDERS", 10000, logger)
	loop := agent.NewLoop(eng, dispatcher, 10, 4096, logger)
	sync := NewSheetSync(scanner, loop, syncCatalog(), orders, syncOrgID, 7, logger)
	sync.now = func() time.Time { return time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC) }
	return sync
}

// ============================================================================
// Tests
// ============================================================================

func TestSheetSyncRun(t *testing.T) {
	eng := engine.NewMockEngine(
		engine.ToolUseTurn(engine.ToolCall{ID: "tu_1", Name: "create_order", Arguments: `{}`}),
		engine.TextTurn("both orders created", engine.StopReasonEndTurn),
	)
	dispatcher := &stubDispatcher{created: agent.CreatedRecord{
		Kind: "order", ID: uuid.New(), Customer: "Cafe Sushi", DeliveryDate: "2025-09-02", LineCount: 1,
	}}
	sync := newTestSync(t, &fixtureFetcher{grid: ordersGrid()}, eng, dispatcher, &stubOrderRepo{})

	summary, err := sync.Run(context.Background(), []string{"tuesday"})
	require.NoError(t, err)
	require.Len(t, summary.Sections, 1)

	sec := summary.Sections[0]
	assert.True(t, sec.Success)
	assert.Equal(t, "tuesday", sec.Day)
	assert.Equal(t, "2025-09-02", sec.ISODate)
	assert.False(t, sec.FallbackUsed)
	assert.Equal(t, 2, sec.RowCount, "header row is filtered out")
	assert.Equal(t, 2, sec.Turns)
	require.Len(t, sec.Created, 1)
	assert.True(t, summary.Success())

	// The engine saw the section rows rendered as the initial user message.
	require.NotEmpty(t, eng.Requests)
	first := eng.Requests[0]
	assert.Contains(t, first.System, "Cafe Sushi")
	assert.Contains(t, first.Messages[0].Blocks[0].Text, "DELIVERY DATE: September 2, 2025 (2025-09-02)")
	assert.Contains(t, first.Messages[0].Blocks[0].Text, "Cafe Sushi | Basil | L | 3")
	assert.Contains(t, first.Messages[0].Blocks[0].Text, "pre-verified to NOT have existing orders")
}

func TestSheetSyncRun_AllRowsPreSkipped(t *testing.T) {
	eng := engine.NewMockEngine()
	dispatcher := &stubDispatcher{}
	orders := &stubOrderRepo{customersWithOrders: []uuid.UUID{sushiID, oleanaID}}
	sync := newTestSync(t, &fixtureFetcher{grid: ordersGrid()}, eng, dispatcher, orders)

	summary, err := sync.Run(context.Background(), []string{"tuesday"})
	require.NoError(t, err)
	require.Len(t, summary.Sections, 1)

	sec := summary.Sections[0]
	assert.True(t, sec.Success)
	assert.Equal(t, 0, sec.Turns)
	assert.Len(t, sec.Skipped, 2)
	assert.Empty(t, eng.Requests, "no engine turns when every row is pre-skipped")
	assert.Equal(t, 0, dispatcher.calls)
}

func TestSheetSyncRun_WindowFallback(t *testing.T) {
	eng := engine.NewMockEngine(
		engine.TextTurn("nothing to do", engine.StopReasonEndTurn),
	)
	sync := newTestSync(t, &fixtureFetcher{grid: ordersGrid()}, eng, &stubDispatcher{}, &stubOrderRepo{})
	// A clock far past every section date forces the fallback.
	sync.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	summary, err := sync.Run(context.Background(), []string{"tuesday"})
	require.NoError(t, err)
	require.Len(t, summary.Sections, 1)
	assert.True(t, summary.Sections[0].FallbackUsed)
	assert.Equal(t, "2025-09-02", summary.Sections[0].ISODate)
}

func TestSheetSyncRun_ScanFailureDoesNotAbortSiblingDays(t *testing.T) {
	eng := engine.NewMockEngine(
		engine.TextTurn("done", engine.StopReasonEndTurn),
	)
	sync := newTestSync(t, &fixtureFetcher{grid: ordersGrid()}, eng, &stubDispatcher{}, &stubOrderRepo{})

	summary, err := sync.Run(context.Background(), []string{"friday", "tuesday"})
	require.NoError(t, err)
	require.Len(t, summary.Sections, 2)

	assert.False(t, summary.Sections[0].Success)
	require.Len(t, summary.Sections[0].Errors, 1)
	assert.Contains(t, summary.Sections[0].Errors[0], "Friday Harvests")

	assert.True(t, summary.Sections[1].Success)
	assert.False(t, summary.Success())
}

func TestSheetSyncRun_NoDaysConfigured(t *testing.T) {
	sync := newTestSync(t, &fixtureFetcher{}, engine.NewMockEngine(), &stubDispatcher{}, &stubOrderRepo{})
	_, err := sync.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestSectionLabel(t *testing.T) {
	assert.Equal(t, "Tuesday Harvests", sectionLabel("tuesday"))
	assert.Equal(t, "Tuesday Harvests", sectionLabel("  TUESDAY "))
	assert.Equal(t, "Harvests", sectionLabel(""))
}
