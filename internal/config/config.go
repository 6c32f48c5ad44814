// Package config loads and validates the bot configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/rewired-gh/polyflip/internal/models"
)

// Config represents the complete application configuration.
type Config struct {
	Market   MarketConfig       `mapstructure:"market"`
	Entry    []models.EntryRule `mapstructure:"entry"`
	Exchange ExchangeConfig     `mapstructure:"exchange"`
	Telegram TelegramConfig     `mapstructure:"telegram"`
	Storage  StorageConfig      `mapstructure:"storage"`
	Metrics  MetricsConfig      `mapstructure:"metrics"`
	Logging  LoggingConfig      `mapstructure:"logging"`
}

// MarketConfig selects the traded up/down market series.
type MarketConfig struct {
	Coin          string `mapstructure:"coin"`           // btc / eth / sol / xrp
	PeriodMinutes int    `mapstructure:"period_minutes"` // 5 / 15 / 60 / 240 / 1440
}

// ExchangeConfig holds Polymarket API endpoints and credentials.
type ExchangeConfig struct {
	GammaAPIURL    string        `mapstructure:"gamma_api_url"`
	ClobAPIURL     string        `mapstructure:"clob_api_url"`
	ClobWSURL      string        `mapstructure:"clob_ws_url"`
	RTDSWSURL      string        `mapstructure:"rtds_ws_url"`
	APIKey         string        `mapstructure:"api_key"`
	APISecret      string        `mapstructure:"api_secret"`
	APIPassphrase  string        `mapstructure:"api_passphrase"`
	MaxRetries     int           `mapstructure:"max_retries"`
	Timeout        time.Duration `mapstructure:"timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	Enabled  bool   `mapstructure:"enabled"`
}

// StorageConfig holds trade journal configuration.
type StorageConfig struct {
	DBPath      string `mapstructure:"db_path"`
	MaxSessions int    `mapstructure:"max_sessions"`
}

// MetricsConfig holds Prometheus exposition configuration.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("POLYFLIP")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("market.coin", "btc")
	v.SetDefault("market.period_minutes", 5)

	v.SetDefault("exchange.gamma_api_url", "https://gamma-api.polymarket.com")
	v.SetDefault("exchange.clob_api_url", "https://clob.polymarket.com")
	v.SetDefault("exchange.clob_ws_url", "wss://ws-subscriptions-clob.polymarket.com/ws/market")
	v.SetDefault("exchange.rtds_ws_url", "wss://ws-live-data.polymarket.com")
	v.SetDefault("exchange.max_retries", 3)
	v.SetDefault("exchange.timeout", "30s")
	v.SetDefault("exchange.connect_timeout", "10s")

	v.SetDefault("storage.db_path", "./data/polyflip.db")
	v.SetDefault("storage.max_sessions", 1000)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9190")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

var validCoins = map[string]bool{"btc": true, "eth": true, "sol": true, "xrp": true}
var validPeriods = map[int]bool{5: true, 15: true, 60: true, 240: true, 1440: true}

// Validate checks that all configuration values are valid.
func (c *Config) Validate() error {
	if !validCoins[c.Market.Coin] {
		return fmt.Errorf("market.coin must be one of: btc, eth, sol, xrp")
	}
	if !validPeriods[c.Market.PeriodMinutes] {
		return fmt.Errorf("market.period_minutes must be one of: 5, 15, 60, 240, 1440")
	}

	if len(c.Entry) == 0 {
		return fmt.Errorf("entry must contain at least one rule")
	}
	for i := range c.Entry {
		if err := c.Entry[i].Validate(); err != nil {
			return fmt.Errorf("entry[%d]: %w", i, err)
		}
	}

	if c.Exchange.GammaAPIURL == "" {
		return fmt.Errorf("exchange.gamma_api_url is required")
	}
	if c.Exchange.ClobAPIURL == "" {
		return fmt.Errorf("exchange.clob_api_url is required")
	}
	if c.Exchange.ClobWSURL == "" {
		return fmt.Errorf("exchange.clob_ws_url is required")
	}
	if c.Exchange.RTDSWSURL == "" {
		return fmt.Errorf("exchange.rtds_ws_url is required")
	}
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" || c.Exchange.APIPassphrase == "" {
		return fmt.Errorf("exchange credentials (api_key, api_secret, api_passphrase) are required")
	}
	if c.Exchange.MaxRetries < 0 {
		return fmt.Errorf("exchange.max_retries must not be negative")
	}
	if c.Exchange.Timeout < time.Second {
		return fmt.Errorf("exchange.timeout must be at least 1 second")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.MaxSessions < 1 {
		return fmt.Errorf("storage.max_sessions must be at least 1")
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics.listen_addr is required when metrics are enabled")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// Symbol returns the reference price feed symbol, e.g. "btc/usd".
func (c *Config) Symbol() string {
	return c.Market.Coin + "/usd"
}
