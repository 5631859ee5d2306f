package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// batchGetTool is the Google Sheets tool exposed by the Composio MCP server.
const batchGetTool = "GOOGLESHEETS_BATCH_GET"

// MCPFetcher reads spreadsheet ranges through a streamable-HTTP MCP server.
type MCPFetcher struct {
	client        *client.Client
	spreadsheetID string
	logger        *zap.Logger
}

// NewMCPFetcher connects to the MCP server and binds the fetcher to one
// spreadsheet. Close the fetcher when done.
func NewMCPFetcher(ctx context.Context, url, apiKey, spreadsheetID string, logger *zap.Logger) (*MCPFetcher, error) {
	if url == "" {
		return nil, fmt.Errorf("mcp url is required")
	}
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}

	var opts []transport.StreamableHTTPCOption
	if apiKey != "" {
		opts = append(opts, transport.WithHTTPHeaders(map[string]string{
			"x-api-key": apiKey,
		}))
	}
	httpTransport, err := transport.NewStreamableHTTP(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp transport: %w", err)
	}

	c := client.NewClient(httpTransport)
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start mcp client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "frootful-sales-aggregation",
		Version: "1.0.0",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize mcp session: %w", err)
	}

	return &MCPFetcher{
		client:        c,
		spreadsheetID: spreadsheetID,
		logger:        logger.Named("mcp-fetcher"),
	}, nil
}

// Close shuts down the MCP session.
func (f *MCPFetcher) Close() error {
	return f.client.Close()
}

// FetchRange implements RangeFetcher via the batch-get tool.
func (f *MCPFetcher) FetchRange(ctx context.Context, rangeA1 string) ([][]string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = batchGetTool
	req.Params.Arguments = map[string]any{
		"spreadsheet_id": f.spreadsheetID,
		"ranges":         []string{rangeA1},
	}

	result, err := f.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", batchGetTool, err)
	}
	if result.IsError {
		return nil, fmt.Errorf("%s returned error: %s", batchGetTool, firstText(result))
	}

	rows, err := decodeValues(firstText(result))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", batchGetTool, err)
	}

	f.logger.Debug("range fetched", zap.String("range", rangeA1), zap.Int("rows", len(rows)))
	return rows, nil
}

func firstText(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// ============================================================================
// Response decoding
// ============================================================================

// decodeValues extracts the cell grid from a batch-get response. The tool
// wraps the Sheets payload in varying envelopes, so decoding walks the known
// nestings before giving up: {data: {...}}, {valueRanges: [{values: ...}]},
// {values: ...}, or a bare grid.
func decodeValues(text string) ([][]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var payload any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}

	if grid, ok := findGrid(payload, 0); ok {
		return grid, nil
	}
	return nil, fmt.Errorf("no values grid in response")
}

// findGrid walks maps and arrays looking for a "values" grid. Depth-limited
// so a pathological payload cannot recurse forever.
func findGrid(node any, depth int) ([][]string, bool) {
	if depth > 6 {
		return nil, false
	}

	switch v := node.(type) {
	case map[string]any:
		if values, ok := v["values"]; ok {
			if grid, ok := toGrid(values); ok {
				return grid, true
			}
		}
		for _, key := range []string{"data", "response_data", "valueRanges", "value_ranges"} {
			if child, ok := v[key]; ok {
				if grid, ok := findGrid(child, depth+1); ok {
					return grid, true
				}
			}
		}
	case []any:
		for _, child := range v {
			if grid, ok := findGrid(child, depth+1); ok {
				return grid, true
			}
		}
	}
	return nil, false
}

// toGrid converts a decoded JSON grid into [][]string, stringifying scalar
// cells. Sheets returns numbers as JSON numbers for numeric cells.
func toGrid(values any) ([][]string, bool) {
	rows, ok := values.([]any)
	if !ok {
		return nil, false
	}
	grid := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells, ok := r.([]any)
		if !ok {
			return nil, false
		}
		row := make([]string, len(cells))
		for i, c := range cells {
			row[i] = stringifyCell(c)
		}
		grid = append(grid, row)
	}
	return grid, true
}

func stringifyCell(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case float64:
		// Whole numbers print without a trailing ".000000".
		if c == float64(int64(c)) {
			return fmt.Sprintf("%d", int64(c))
		}
		return fmt.Sprintf("%g", c)
	case bool:
		return fmt.Sprintf("%t", c)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", c)
	}
}

// Ensure MCPFetcher implements RangeFetcher at compile time.
var _ RangeFetcher = (*MCPFetcher)(nil)
