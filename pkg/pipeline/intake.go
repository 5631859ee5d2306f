package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/agent"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/catalog"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/engine"
)

// maxFetchBytes caps how much of a URL body is read.
const maxFetchBytes = 20 << 20

// imageMediaTypes maps supported image extensions to their media types.
var imageMediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Source is one intake input. Exactly one field should be set.
type Source struct {
	Text     string
	FilePath string
	URL      string
}

// Intake turns a free-form order source (text, file, or URL) into staged
// order proposals through the review-mode agent loop.
type Intake struct {
	loop    *agent.Loop
	catalog *catalog.Index
	client  *http.Client
	now     func() time.Time
	logger  *zap.Logger
}

// NewIntake creates the intake flow.
func NewIntake(loop *agent.Loop, cat *catalog.Index, logger *zap.Logger) *Intake {
	return &Intake{
		loop:    loop,
		catalog: cat,
		client:  &http.Client{Timeout: 60 * time.Second},
		now:     time.Now,
		logger:  logger.Named("intake"),
	}
}

// Run builds the initial message from the source and drives the loop.
// Partial results survive a turn-ceiling failure.
func (in *Intake) Run(ctx context.Context, src Source) (*agent.Result, error) {
	blocks, desc, err := in.contentBlocks(ctx, src)
	if err != nil {
		return nil, err
	}
	in.logger.Info("processing order source", zap.String("source", desc))

	system := BuildIntakeSystemPrompt(in.catalog, in.now())
	initial := engine.Message{Role: "user", Blocks: blocks}
	return in.loop.Run(ctx, system, initial)
}

// contentBlocks converts the source into engine content blocks.
func (in *Intake) contentBlocks(ctx context.Context, src Source) ([]engine.ContentBlock, string, error) {
	switch {
	case src.Text != "":
		return []engine.ContentBlock{
			{Type: engine.BlockTypeText, Text: "Process this order:\n\n" + src.Text},
		}, "text", nil
	case src.FilePath != "":
		return in.fileBlocks(src.FilePath)
	case src.URL != "":
		return in.urlBlocks(ctx, src.URL)
	default:
		return nil, "", fmt.Errorf("no order source provided")
	}
}

func (in *Intake) fileBlocks(path string) ([]engine.ContentBlock, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	desc := filepath.Base(path)

	if mediaType, ok := imageMediaTypes[ext]; ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return attachmentBlocks(engine.BlockTypeImage, mediaType, data,
			"This is an image of an order. Extract all order information from it."), desc, nil
	}

	switch ext {
	case ".pdf":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return attachmentBlocks(engine.BlockTypeDocument, "application/pdf", data,
			"This is a PDF order document. Extract all order information from it."), desc, nil
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return []engine.ContentBlock{
			{Type: engine.BlockTypeText, Text: "Process this order:\n\n" + string(data)},
		}, desc, nil
	case ".csv":
		table, err := renderCSV(path)
		if err != nil {
			return nil, "", err
		}
		return []engine.ContentBlock{
			{Type: engine.BlockTypeText, Text: "This is a spreadsheet of an order. Extract all order information from it.\n\n" + table},
		}, desc, nil
	default:
		return nil, "", fmt.Errorf("unsupported file type %q", ext)
	}
}

// urlBlocks downloads the URL and attaches it by detected content type.
func (in *Intake) urlBlocks(ctx context.Context, url string) ([]engine.ContentBlock, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid url %q: %w", url, err)
	}
	resp, err := in.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", url, err)
	}

	mediaType := strings.TrimSpace(strings.SplitN(resp.Header.Get("Content-Type"), ";", 2)[0])
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = mediaTypeFromURL(url)
	}

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return attachmentBlocks(engine.BlockTypeImage, mediaType, data,
			"This is an image of an order. Extract all order information from it."), url, nil
	case mediaType == "application/pdf":
		return attachmentBlocks(engine.BlockTypeDocument, mediaType, data,
			"This is a PDF order document. Extract all order information from it."), url, nil
	case strings.HasPrefix(mediaType, "text/"):
		return []engine.ContentBlock{
			{Type: engine.BlockTypeText, Text: "Process this order:\n\n" + string(data)},
		}, url, nil
	default:
		return nil, "", fmt.Errorf("unsupported content type %q at %s", mediaType, url)
	}
}

func attachmentBlocks(blockType, mediaType string, data []byte, instruction string) []engine.ContentBlock {
	return []engine.ContentBlock{
		{
			Type: blockType,
			Attachment: &engine.Attachment{
				MediaType: mediaType,
				Data:      base64.StdEncoding.EncodeToString(data),
			},
		},
		{Type: engine.BlockTypeText, Text: instruction},
	}
}

// mediaTypeFromURL guesses from the path extension, ignoring query params.
func mediaTypeFromURL(url string) string {
	path := strings.SplitN(url, "?", 2)[0]
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := imageMediaTypes[ext]; ok {
		return mt
	}
	if ext == ".pdf" {
		return "application/pdf"
	}
	return ""
}

// renderCSV reads a CSV file into a pipe-separated text table.
func renderCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var b strings.Builder
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", path, err)
		}
		b.WriteString(strings.Join(record, " | "))
		b.WriteString("\n")
	}
	return b.String(), nil
}
