package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/agent"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/catalog"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/config"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/database"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/engine"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/mutation"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/pipeline"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/repositories"
	"github.com/William-Gao/frootful-sales-aggregation/pkg/sheets"
)

// Version is set at build time via ldflags.
var Version = "dev"

const usage = `Usage:
  frootful sheet [--day tuesday] [--days 7] [--direct=true]
  frootful intake (--text "order text" | --url https://... | <file.txt|.csv|.pdf|image>)

Commands:
  sheet    Sync orders from the ERP spreadsheet (direct creation by default)
  intake   Process one free-form order source into review proposals
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	var exitCode int
	switch os.Args[1] {
	case "sheet":
		exitCode = runSheet(cfg, logger, os.Args[2:])
	case "intake":
		exitCode = runIntake(cfg, logger, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		exitCode = 2
	}
	os.Exit(exitCode)
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// bootstrap connects the store, runs migrations, loads the catalog and
// builds the agent loop for the requested mode.
func bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts mutation.Options) (*database.DB, *catalog.Index, *agent.Loop, repositories.OrderRepository, uuid.UUID, error) {
	orgID, err := uuid.Parse(cfg.OrganizationID)
	if err != nil {
		return nil, nil, nil, nil, uuid.Nil, fmt.Errorf("invalid ORGANIZATION_ID: %w", err)
	}

	connString := cfg.Database.ConnectionString()
	sqlDB, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, nil, nil, nil, uuid.Nil, fmt.Errorf("failed to open database for migrations: %w", err)
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		sqlDB.Close()
		return nil, nil, nil, nil, uuid.Nil, err
	}
	sqlDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connString,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return nil, nil, nil, nil, uuid.Nil, err
	}

	customerRepo := repositories.NewCustomerRepository(db)
	itemRepo := repositories.NewItemRepository(db)
	noteRepo := repositories.NewCustomerItemNoteRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	proposalRepo := repositories.NewProposalRepository(db)

	cat, err := catalog.Load(ctx, orgID, customerRepo, itemRepo, noteRepo)
	if err != nil {
		db.Close()
		return nil, nil, nil, nil, uuid.Nil, err
	}
	logger.Info("catalog loaded",
		zap.Int("customers", len(cat.Customers())),
		zap.Int("items", len(cat.Items())))

	eng, err := engine.New(&cfg.Engine, logger)
	if err != nil {
		db.Close()
		return nil, nil, nil, nil, uuid.Nil, err
	}
	eng = engine.NewRetrying(eng, nil)

	opts.AgentVersion = cfg.Version
	mutator := mutation.NewMutator(orderRepo, proposalRepo, cat, orgID, opts, logger)
	loop := agent.NewLoop(eng, mutator, cfg.Engine.MaxTurns, cfg.Engine.MaxTokens, logger)

	return db, cat, loop, orderRepo, orgID, nil
}

func runSheet(cfg *config.Config, logger *zap.Logger, args []string) int {
	fs := flag.NewFlagSet("sheet", flag.ExitOnError)
	day := fs.String("day", "", "process a single harvest day instead of all configured days")
	days := fs.Int("days", cfg.Sheets.WindowDays, "delivery-date window in days from today")
	direct := fs.Bool("direct", true, "create orders directly; false stages review proposals")
	fs.Parse(args) //nolint:errcheck

	mode := mutation.ModeDirect
	if !*direct {
		mode = mutation.ModeReview
	}

	ctx := context.Background()
	db, cat, loop, orderRepo, orgID, err := bootstrap(ctx, cfg, logger, mutation.Options{
		Mode:   mode,
		Source: "erp",
	})
	if err != nil {
		logger.Error("bootstrap failed", zap.Error(err))
		return 1
	}
	defer db.Close()

	fetcher, err := sheets.NewMCPFetcher(ctx, cfg.Sheets.MCPURL, cfg.Sheets.MCPAPIKey, cfg.Sheets.SpreadsheetID, logger)
	if err != nil {
		logger.Error("spreadsheet connection failed", zap.Error(err))
		return 1
	}
	defer fetcher.Close() //nolint:errcheck

	scanner := sheets.NewScanner(
		sheets.NewRetryingFetcher(fetcher, nil),
		cfg.Sheets.TabName,
		cfg.Sheets.ChunkSize,
		logger,
	)

	harvestDays := cfg.Sheets.HarvestDays
	if *day != "" {
		harvestDays = []string{strings.ToLower(*day)}
	}

	sync := pipeline.NewSheetSync(scanner, loop, cat, orderRepo, orgID, *days, logger)
	summary, err := sync.Run(ctx, harvestDays)
	if err != nil {
		logger.Error("sheet sync failed", zap.Error(err))
		return 1
	}

	fmt.Print(summary.Render())
	if !summary.Success() {
		return 1
	}
	return 0
}

func runIntake(cfg *config.Config, logger *zap.Logger, args []string) int {
	fs := flag.NewFlagSet("intake", flag.ExitOnError)
	text := fs.String("text", "", "order text to process")
	url := fs.String("url", "", "URL of an order image or PDF")
	fs.Parse(args) //nolint:errcheck

	src := pipeline.Source{Text: *text, URL: *url}
	if src.Text == "" && src.URL == "" {
		if fs.NArg() != 1 {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		src.FilePath = fs.Arg(0)
	}

	ctx := context.Background()
	db, cat, loop, _, _, err := bootstrap(ctx, cfg, logger, mutation.Options{
		Mode:   mutation.ModeReview,
		Source: "intake",
	})
	if err != nil {
		logger.Error("bootstrap failed", zap.Error(err))
		return 1
	}
	defer db.Close()

	intake := pipeline.NewIntake(loop, cat, logger)
	result, err := intake.Run(ctx, src)
	if err != nil && result == nil {
		logger.Error("intake failed", zap.Error(err))
		return 1
	}

	fmt.Printf("Turns: %d (tokens: %d in / %d out)\n", result.Turns, result.InputTokens, result.OutputTokens)
	for _, c := range result.Created {
		fmt.Printf("+ %s %s %s: %s %s (%d lines)\n", c.Kind, c.ID, c.Detail, c.Customer, c.DeliveryDate, c.LineCount)
	}
	for _, e := range result.Errors {
		fmt.Printf("! %s\n", e)
	}
	if result.FinalText != "" {
		fmt.Println(result.FinalText)
	}
	if err != nil {
		logger.Error("intake incomplete", zap.Error(err))
		return 1
	}
	return 0
}
