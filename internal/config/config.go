package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string `env:"STOCKGAME_ADDR" envDefault:":8080"`
	DatabasePath   string `env:"STOCKGAME_DB_PATH" envDefault:"stockgame.db"`
	QuoteAPIURL    string `env:"STOCKGAME_QUOTE_API_URL"`
	QuoteAPIKey    string `env:"STOCKGAME_QUOTE_API_KEY"`
	UpdateCron     string `env:"STOCKGAME_UPDATE_CRON" envDefault:"*/15 * * * *"`
	WorkerRunOnce  bool   `env:"STOCKGAME_WORKER_RUN_ONCE" envDefault:"false"`
	DiscordToken   string `env:"STOCKGAME_DISCORD_TOKEN"`
	CommandPrefix  string `env:"STOCKGAME_COMMAND_PREFIX" envDefault:"$"`
	MarketTimezone string `env:"STOCKGAME_MARKET_TZ" envDefault:"America/New_York"`
}

type CLIConfig struct {
	APIBaseURL string `env:"STOCKGAME_API_URL" envDefault:"http://localhost:8080"`
}

// Load parses configuration from the environment, reading a .env file
// first when one is present.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if strings.TrimSpace(cfg.DatabasePath) == "" {
		return cfg, fmt.Errorf("STOCKGAME_DB_PATH is required")
	}
	return cfg, nil
}

func LoadCLI() (CLIConfig, error) {
	_ = godotenv.Load()
	var cfg CLIConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	return cfg, nil
}
