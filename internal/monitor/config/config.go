package config

import (
	"fmt"
	"strings"
	"time"

	"tradesignal/internal/monitor/dto"
	"tradesignal/pkg/config"
)

// App holds application configuration.
type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

// Logger holds logger configuration.
type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// Database holds database configuration.
type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// Redis holds Redis configuration.
type Redis struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	StreamMaxLen int64  `mapstructure:"stream_max_len"`
}

// API holds the audit API server configuration.
type API struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Monitor holds the decision engine and scheduler configuration.
type Monitor struct {
	Assets               []string      `mapstructure:"assets"`
	Currency             string        `mapstructure:"currency"`
	CheckSchedule        string        `mapstructure:"check_schedule"`
	PriceChangeThreshold float64       `mapstructure:"price_change_threshold"`
	MaxRetries           int           `mapstructure:"max_retries"`
	RetryBackoffBase     time.Duration `mapstructure:"retry_backoff_base"`
	FeedbackHistoryLimit int           `mapstructure:"feedback_history_limit"`
	CycleTimeout         time.Duration `mapstructure:"cycle_timeout"`
	ShutdownGracePeriod  time.Duration `mapstructure:"shutdown_grace_period"`
}

// CoinGecko holds the configuration for the CoinGecko API.
type CoinGecko struct {
	BaseURL             string        `mapstructure:"base_url"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string        `mapstructure:"api_key"`
	Model               string        `mapstructure:"model"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// Telegram holds the configuration for the Telegram notifier.
type Telegram struct {
	BotToken   string `mapstructure:"bot_token"`
	ChatID     int64  `mapstructure:"chat_id"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// Config holds the full configuration for the monitor service.
type Config struct {
	App       App       `mapstructure:"app"`
	Logger    Logger    `mapstructure:"logger"`
	Database  Database  `mapstructure:"database"`
	Redis     Redis     `mapstructure:"redis"`
	API       API       `mapstructure:"api"`
	Monitor   Monitor   `mapstructure:"monitor"`
	CoinGecko CoinGecko `mapstructure:"coingecko"`
	Gemini    Gemini    `mapstructure:"gemini"`
	Telegram  Telegram  `mapstructure:"telegram"`
}

// Load loads the monitor configuration from the given path and applies
// defaults for optional settings.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Monitor.Currency == "" {
		c.Monitor.Currency = "usd"
	}
	if c.Monitor.CheckSchedule == "" {
		c.Monitor.CheckSchedule = "@every 10m"
	}
	if c.Monitor.PriceChangeThreshold == 0 {
		c.Monitor.PriceChangeThreshold = 3.0
	}
	if c.Monitor.MaxRetries == 0 {
		c.Monitor.MaxRetries = 3
	}
	if c.Monitor.RetryBackoffBase == 0 {
		c.Monitor.RetryBackoffBase = time.Second
	}
	if c.Monitor.FeedbackHistoryLimit == 0 {
		c.Monitor.FeedbackHistoryLimit = 10
	}
	if c.Monitor.CycleTimeout == 0 {
		c.Monitor.CycleTimeout = 5 * time.Minute
	}
	if c.Monitor.ShutdownGracePeriod == 0 {
		c.Monitor.ShutdownGracePeriod = 30 * time.Second
	}
	if c.CoinGecko.BaseURL == "" {
		c.CoinGecko.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if c.CoinGecko.MaxRequestPerMinute == 0 {
		c.CoinGecko.MaxRequestPerMinute = 30
	}
	if c.CoinGecko.Timeout == 0 {
		c.CoinGecko.Timeout = 10 * time.Second
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash-lite"
	}
	if c.Gemini.MaxRequestPerMinute == 0 {
		c.Gemini.MaxRequestPerMinute = 10
	}
	if c.Gemini.Timeout == 0 {
		c.Gemini.Timeout = 30 * time.Second
	}
	if c.Telegram.MaxRetries == 0 {
		c.Telegram.MaxRetries = 3
	}
}

// Validate checks that all required settings are present. Any failure is
// fatal at startup; the monitoring loop must never start with a broken
// configuration.
func (c *Config) Validate() error {
	var problems []string

	if len(c.Monitor.Assets) == 0 {
		problems = append(problems, "monitor.assets must list at least one asset")
	}
	if c.Monitor.PriceChangeThreshold <= 0 {
		problems = append(problems, "monitor.price_change_threshold must be positive")
	}
	if c.Monitor.MaxRetries < 1 {
		problems = append(problems, "monitor.max_retries must be at least 1")
	}
	if c.Gemini.APIKey == "" {
		problems = append(problems, "gemini.api_key is not set")
	}
	if c.Telegram.BotToken == "" {
		problems = append(problems, "telegram.bot_token is not set")
	}
	if c.Telegram.ChatID == 0 {
		problems = append(problems, "telegram.chat_id is not set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", dto.ErrConfigInvalid, strings.Join(problems, "; "))
	}
	return nil
}
