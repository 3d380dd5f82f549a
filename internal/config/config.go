package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr   string        `env:"LISTEN_ADDR" envDefault:":8080"`
	APIBaseURL   string        `env:"ECOSORT_API_URL" envDefault:"http://localhost:8000"`
	APITimeout   time.Duration `env:"API_TIMEOUT" envDefault:"15s"`
	DBPath       string        `env:"DB_PATH" envDefault:"/data/ecosort.db"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile      string        `env:"LOG_FILE"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	SessionSweep time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"10m"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
	// JWTSecret enables HS256 verification of access tokens. When empty the
	// claims are decoded for display only.
	JWTSecret string `env:"JWT_SECRET"`
	PageSize  int    `env:"PAGE_SIZE" envDefault:"5"`

	SSERetryAttempts uint          `env:"SSE_RETRY_ATTEMPTS" envDefault:"5"`
	SSERetryDelay    time.Duration `env:"SSE_RETRY_DELAY" envDefault:"5s"`
	FeedSize         int           `env:"FEED_SIZE" envDefault:"50"`
}

// Load reads an optional .env file from the working directory and then parses
// the process environment. Variables already set in the environment win over
// the file.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("PAGE_SIZE must be positive, got %d", cfg.PageSize)
	}
	if cfg.FeedSize <= 0 {
		return nil, fmt.Errorf("FEED_SIZE must be positive, got %d", cfg.FeedSize)
	}
	if cfg.SessionSweep <= 0 {
		return nil, fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive, got %s", cfg.SessionSweep)
	}
	if cfg.SSERetryAttempts == 0 {
		return nil, errors.New("SSE_RETRY_ATTEMPTS must be at least 1")
	}
	return cfg, nil
}
