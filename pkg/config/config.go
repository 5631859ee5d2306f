package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the sales aggregation pipeline.
// Configuration can come from a YAML file (config.yaml) or environment
// variables; environment variables always override YAML values. Secrets
// (API keys, database password) must only come from environment variables.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"staging"`
	Version string `yaml:"-"` // Set at load time, not from config

	// OrganizationID scopes every catalog read and order write.
	OrganizationID string `yaml:"organization_id" env:"ORGANIZATION_ID"`

	Database DatabaseConfig `yaml:"database"`
	Engine   EngineConfig   `yaml:"engine"`
	Sheets   SheetsConfig   `yaml:"sheets"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"frootful"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"frootful"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// Supported engine providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// EngineConfig holds decision-engine (LLM) configuration.
type EngineConfig struct {
	// Provider selects the engine adapter: "anthropic" or "openai".
	Provider string `yaml:"provider" env:"ENGINE_PROVIDER" env-default:"anthropic"`
	Model    string `yaml:"model" env:"ENGINE_MODEL" env-default:"claude-sonnet-4-5-20250929"`
	// BaseURL overrides the provider endpoint (OpenAI-compatible gateways).
	BaseURL         string `yaml:"base_url" env:"ENGINE_BASE_URL" env-default:""`
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
	OpenAIAPIKey    string `yaml:"-" env:"OPENAI_API_KEY"`    // Secret - not in YAML
	MaxTokens       int    `yaml:"max_tokens" env:"ENGINE_MAX_TOKENS" env-default:"8192"`
	// MaxTurns is the hard ceiling on engine round-trips per section.
	MaxTurns int `yaml:"max_turns" env:"ENGINE_MAX_TURNS" env-default:"100"`
}

// SheetsConfig holds spreadsheet access and scan configuration.
// The spreadsheet is read through a Composio MCP server that exposes the
// Google Sheets batch-get tool.
type SheetsConfig struct {
	MCPURL        string `yaml:"mcp_url" env:"COMPOSIO_MCP_URL"`
	MCPAPIKey     string `yaml:"-" env:"COMPOSIO_API_KEY"` // Secret - not in YAML
	SpreadsheetID string `yaml:"spreadsheet_id" env:"SPREADSHEET_ID"`
	TabName       string `yaml:"tab_name" env:"SHEET_TAB_NAME" env-default:"ORDERS"`
	// ChunkSize is how many rows are fetched per scan request. The ORDERS
	// tab runs past 27k rows, so the scanner never materializes it whole.
	ChunkSize int `yaml:"chunk_size" env:"SHEET_CHUNK_SIZE" env-default:"10000"`
	// WindowDays is the default delivery-date window (today .. today+N).
	WindowDays int `yaml:"window_days" env:"SHEET_WINDOW_DAYS" env-default:"7"`
	// HarvestDaysStr is a comma-separated list of harvest day names.
	HarvestDaysStr string `yaml:"harvest_days" env:"SHEET_HARVEST_DAYS" env-default:"tuesday,wednesday,friday"`
	// HarvestDays is the parsed list from HarvestDaysStr (not from config file).
	HarvestDays []string `yaml:"-"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		// A missing config file is fine: env vars carry everything needed.
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read configuration: %w", err)
		}
	}

	cfg.Sheets.HarvestDays = parseHarvestDays(cfg.Sheets.HarvestDaysStr)
	return cfg, nil
}

// parseHarvestDays parses the harvest days string into a normalized list.
func parseHarvestDays(value string) []string {
	days := make([]string, 0, 3)
	for _, d := range strings.Split(value, ",") {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			days = append(days, d)
		}
	}
	return days
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
