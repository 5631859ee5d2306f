package pipeline

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/agent"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/engine"
)

func newTestIntake(eng engine.Engine, dispatcher agent.ToolDispatcher) *Intake {
	logger := zap.NewNop()
	loop := agent.NewLoop(eng, dispatcher, 10, 4096, logger)
	in := NewIntake(loop, syncCatalog(), logger)
	in.now = func() time.Time { return time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC) }
	return in
}

func TestIntakeRun_Text(t *testing.T) {
	eng := engine.NewMockEngine(
		engine.ToolUseTurn(engine.ToolCall{ID: "tu_1", Name: "create_order", Arguments: `{}`}),
		engine.TextTurn("proposal staged", engine.StopReasonEndTurn),
	)
	dispatcher := &stubDispatcher{created: agent.CreatedRecord{Kind: "proposal", Customer: "Cafe Sushi"}}
	in := newTestIntake(eng, dispatcher)

	result, err := in.Run(context.Background(), Source{Text: "Cafe Sushi: 3 large basil for Tuesday"})
	require.NoError(t, err)

	assert.Equal(t, agent.StateDone, result.State)
	assert.Len(t, result.Created, 1)

	require.NotEmpty(t, eng.Requests)
	req := eng.Requests[0]
	assert.Contains(t, req.System, "Today's date is 2025-09-01")
	assert.Contains(t, req.Messages[0].Blocks[0].Text, "Process this order:")
	assert.Contains(t, req.Messages[0].Blocks[0].Text, "3 large basil")
}

func TestIntakeRun_NoSource(t *testing.T) {
	in := newTestIntake(engine.NewMockEngine(), &stubDispatcher{})
	_, err := in.Run(context.Background(), Source{})
	assert.Error(t, err)
}

func TestFileBlocks(t *testing.T) {
	dir := t.TempDir()
	in := newTestIntake(engine.NewMockEngine(), &stubDispatcher{})

	t.Run("txt becomes a text block", func(t *testing.T) {
		path := filepath.Join(dir, "order.txt")
		require.NoError(t, os.WriteFile(path, []byte("2 small arugula"), 0o644))

		blocks, desc, err := in.fileBlocks(path)
		require.NoError(t, err)
		assert.Equal(t, "order.txt", desc)
		require.Len(t, blocks, 1)
		assert.Equal(t, engine.BlockTypeText, blocks[0].Type)
		assert.Contains(t, blocks[0].Text, "2 small arugula")
	})

	t.Run("csv renders as a pipe table", func(t *testing.T) {
		path := filepath.Join(dir, "order.csv")
		require.NoError(t, os.WriteFile(path, []byte("Customer,Product,Qty\nCafe Sushi,Basil,3\n"), 0o644))

		blocks, _, err := in.fileBlocks(path)
		require.NoError(t, err)
		require.Len(t, blocks, 1)
		assert.Contains(t, blocks[0].Text, "Customer | Product | Qty")
		assert.Contains(t, blocks[0].Text, "Cafe Sushi | Basil | 3")
	})

	t.Run("png becomes an image attachment", func(t *testing.T) {
		raw := []byte{0x89, 'P', 'N', 'G'}
		path := filepath.Join(dir, "order.png")
		require.NoError(t, os.WriteFile(path, raw, 0o644))

		blocks, _, err := in.fileBlocks(path)
		require.NoError(t, err)
		require.Len(t, blocks, 2)
		assert.Equal(t, engine.BlockTypeImage, blocks[0].Type)
		assert.Equal(t, "image/png", blocks[0].Attachment.MediaType)
		assert.Equal(t, base64.StdEncoding.EncodeToString(raw), blocks[0].Attachment.Data)
		assert.Equal(t, engine.BlockTypeText, blocks[1].Type)
	})

	t.Run("pdf becomes a document attachment", func(t *testing.T) {
		path := filepath.Join(dir, "order.pdf")
		require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

		blocks, _, err := in.fileBlocks(path)
		require.NoError(t, err)
		require.Len(t, blocks, 2)
		assert.Equal(t, engine.BlockTypeDocument, blocks[0].Type)
		assert.Equal(t, "application/pdf", blocks[0].Attachment.MediaType)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, _, err := in.fileBlocks(filepath.Join(dir, "order.xlsx"))
		assert.Error(t, err)
	})
}

func TestURLBlocks(t *testing.T) {
	in := newTestIntake(engine.NewMockEngine(), &stubDispatcher{})

	t.Run("text body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("3 large basil for Cafe Sushi"))
		}))
		defer srv.Close()

		blocks, _, err := in.urlBlocks(context.Background(), srv.URL)
		require.NoError(t, err)
		require.Len(t, blocks, 1)
		assert.Contains(t, blocks[0].Text, "3 large basil")
	})

	t.Run("image body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte{0xFF, 0xD8})
		}))
		defer srv.Close()

		blocks, _, err := in.urlBlocks(context.Background(), srv.URL)
		require.NoError(t, err)
		require.Len(t, blocks, 2)
		assert.Equal(t, engine.BlockTypeImage, blocks[0].Type)
		assert.Equal(t, "image/jpeg", blocks[0].Attachment.MediaType)
	})

	t.Run("extension fallback when content type is generic", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte("%PDF-1.4"))
		}))
		defer srv.Close()

		blocks, _, err := in.urlBlocks(context.Background(), srv.URL+"/order.pdf?token=abc")
		require.NoError(t, err)
		assert.Equal(t, engine.BlockTypeDocument, blocks[0].Type)
	})

	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()

		_, _, err := in.urlBlocks(context.Background(), srv.URL)
		assert.Error(t, err)
	})
}

func TestMediaTypeFromURL(t *testing.T) {
	assert.Equal(t, "image/png", mediaTypeFromURL("https://example.com/a/order.png"))
	assert.Equal(t, "image/jpeg", mediaTypeFromURL("https://example.com/order.JPG?x=1"))
	assert.Equal(t, "application/pdf", mediaTypeFromURL("https://example.com/order.pdf"))
	assert.Equal(t, "", mediaTypeFromURL("https://example.com/order"))
}
