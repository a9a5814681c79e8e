package config

import (
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/mbagrov/bimtally/internal/llm"
	"github.com/mbagrov/bimtally/internal/sheets"
)

// Settings is everything the engine and its collaborators need, resolved
// from the config file, BIMTALLY_* environment variables and defaults.
type Settings struct {
	// Revit host (pyRevit Routes).
	RevitHost string
	RevitPort int

	// Navisworks routes plugin.
	NavisworksHost string
	NavisworksPort int

	// Pattern table. Empty means the compiled-in defaults.
	PatternsPath string

	// Reconciliation red-flag threshold, percent.
	TolerancePct float64

	// AI match service. Unconfigured is a valid state; dependent features
	// degrade to the next fallback tier.
	AI llm.Config

	// Ollama embeddings. Empty host falls back to OLLAMA_HOST.
	EmbeddingHost  string
	EmbeddingModel string

	// SQLite match cache + run history.
	DatabasePath string

	// Default directory for generated .xlsx files.
	ExportDir string
}

// Load resolves settings from viper. Call after the config file and env
// bindings are set up (the root command does this in PersistentPreRunE).
func Load() Settings {
	viper.SetDefault("revit.host", "localhost")
	viper.SetDefault("revit.port", 48884)
	viper.SetDefault("navisworks.host", "localhost")
	viper.SetDefault("navisworks.port", 48885)
	viper.SetDefault("tolerance_pct", 3.0)
	viper.SetDefault("database.path", "~/.local/share/bimtally/bimtally.db")
	viper.SetDefault("ai.cache_ttl", "15m")
	viper.SetDefault("ai.rate_limit", 30)

	s := Settings{
		RevitHost:      viper.GetString("revit.host"),
		RevitPort:      viper.GetInt("revit.port"),
		NavisworksHost: viper.GetString("navisworks.host"),
		NavisworksPort: viper.GetInt("navisworks.port"),
		PatternsPath:   ExpandPath(viper.GetString("patterns.path")),
		TolerancePct:   viper.GetFloat64("tolerance_pct"),
		EmbeddingHost:  viper.GetString("embeddings.host"),
		EmbeddingModel: viper.GetString("embeddings.model"),
		DatabasePath:   ExpandPath(viper.GetString("database.path")),
		ExportDir:      ExpandPath(viper.GetString("export.dir")),
	}

	s.AI = llm.Config{
		BaseURL:   viper.GetString("ai.base_url"),
		Model:     viper.GetString("ai.model"),
		APIKey:    viper.GetString("ai.api_key"),
		RateLimit: viper.GetInt("ai.rate_limit"),
		CacheTTL:  viper.GetDuration("ai.cache_ttl"),
	}
	if s.AI.APIKey == "" {
		s.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if s.AI.CacheTTL == 0 {
		s.AI.CacheTTL = 15 * time.Minute
	}

	return s
}

// LoadSheetsConfig builds the Google Sheets adapter configuration with this
// precedence: viper keys (config file or BIMTALLY_ env), then the direct
// GOOGLE_SHEETS_* environment variables for anything still unset.
func LoadSheetsConfig() (*sheets.Config, error) {
	cfg := sheets.DefaultConfig()

	if v := viper.GetString("sheets.service_account_path"); v != "" {
		cfg.ServiceAccountPath = ExpandPath(v)
	}
	if v := viper.GetString("sheets.client_id"); v != "" {
		cfg.ClientID = v
	}
	if v := viper.GetString("sheets.client_secret"); v != "" {
		cfg.ClientSecret = v
	}
	if v := viper.GetString("sheets.refresh_token"); v != "" {
		cfg.RefreshToken = v
	}
	if v := viper.GetString("sheets.token_file"); v != "" {
		cfg.TokenFile = ExpandPath(v)
	}
	if v := viper.GetString("sheets.spreadsheet_id"); v != "" {
		cfg.SpreadsheetID = v
	}

	if cfg.ServiceAccountPath == "" {
		if v := os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"); v != "" {
			cfg.ServiceAccountPath = ExpandPath(v)
		}
	}
	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	}
	if cfg.RefreshToken == "" {
		cfg.RefreshToken = os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN")
	}
	if cfg.TokenFile == "" {
		if v := os.Getenv("GOOGLE_SHEETS_TOKEN_FILE"); v != "" {
			cfg.TokenFile = ExpandPath(v)
		}
	}
	if cfg.SpreadsheetID == "" {
		cfg.SpreadsheetID = os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
