package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Screener ScreenerConfig `mapstructure:"screener"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ProviderConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	APIKey        string `mapstructure:"api_key"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
	RetryCount    int    `mapstructure:"retry_count"`
	RetryDelaySec int    `mapstructure:"retry_delay_sec"`
}

type ScreenerConfig struct {
	Symbols          []string `mapstructure:"symbols"`
	ResultCap        int      `mapstructure:"result_cap"`
	PriceCeiling     float64  `mapstructure:"price_ceiling"`
	PremiumFloor     float64  `mapstructure:"premium_floor"`
	NearTermMinDays  int      `mapstructure:"near_term_min_days"`
	NearTermMaxDays  int      `mapstructure:"near_term_max_days"`
	LongDatedMinDays int      `mapstructure:"long_dated_min_days"`
	RiskFreeRate     float64  `mapstructure:"risk_free_rate"`
	Workers          int      `mapstructure:"workers"`
}

type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Level     string `mapstructure:"level"`
}

// DefaultSymbols is the universe scanned when the config names none.
var DefaultSymbols = []string{
	"SPY", "QQQ", "IWM", "AAPL", "MSFT", "NVDA", "AMZN",
	"GOOG", "META", "TSLA", "AMD", "NFLX", "F", "PLTR", "SOFI",
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("provider.base_url", "https://api.optionscan.dev")
	v.SetDefault("provider.rate_per_second", 5)
	v.SetDefault("provider.timeout_sec", 30)
	v.SetDefault("provider.retry_count", 3)
	v.SetDefault("provider.retry_delay_sec", 2)
	v.SetDefault("screener.result_cap", 20)
	v.SetDefault("screener.price_ceiling", 0)
	v.SetDefault("screener.premium_floor", 0.05)
	v.SetDefault("screener.near_term_min_days", 14)
	v.SetDefault("screener.near_term_max_days", 45)
	v.SetDefault("screener.long_dated_min_days", 270)
	v.SetDefault("screener.risk_free_rate", 0.05)
	v.SetDefault("screener.workers", 2)
	v.SetDefault("logging.enabled", true)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")

	// Environment variable support
	v.SetEnvPrefix("OPTIONSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Explicitly bind nested keys to env vars
	_ = v.BindEnv("provider.api_key", "OPTIONSCAN_API_KEY")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if len(cfg.Screener.Symbols) == 0 {
		cfg.Screener.Symbols = DefaultSymbols
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("api_key is required (set OPTIONSCAN_API_KEY env var)")
	}
	if c.Provider.RatePerSecond < 1 {
		return fmt.Errorf("rate_per_second must be >= 1")
	}
	if c.Screener.Workers < 1 {
		return fmt.Errorf("workers must be >= 1")
	}
	if c.Screener.ResultCap < 1 {
		return fmt.Errorf("result_cap must be >= 1")
	}
	if c.Screener.PremiumFloor < 0 {
		return fmt.Errorf("premium_floor must be >= 0")
	}
	if c.Screener.NearTermMinDays < 1 || c.Screener.NearTermMaxDays <= c.Screener.NearTermMinDays {
		return fmt.Errorf("near-term band [%d, %d] is invalid", c.Screener.NearTermMinDays, c.Screener.NearTermMaxDays)
	}
	if c.Screener.LongDatedMinDays <= c.Screener.NearTermMaxDays {
		return fmt.Errorf("long_dated_min_days must be beyond the near-term band")
	}
	return nil
}
