// Package config exposes strongly typed bot configuration loaded from YAML,
// with API credentials taken from the environment (optionally a .env file).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"macdbot/internal/strategy"
)

// App captures process-wide runtime settings.
type App struct {
	Name          string `yaml:"name"`
	LogLevel      string `yaml:"log_level"`
	MetricsAddr   string `yaml:"metrics_addr"`
	DashboardAddr string `yaml:"dashboard_addr"`
}

// Exchange describes the signed REST endpoint orders are routed to.
type Exchange struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	APIKey         string `yaml:"-"`
	APISecret      string `yaml:"-"`
}

// Feed selects and configures the price-history provider.
type Feed struct {
	Provider        string `yaml:"provider"` // horus, alpaca, or stub
	BaseURL         string `yaml:"base_url"`
	IntervalMinutes int    `yaml:"interval_minutes"`
	Window          int    `yaml:"window"` // points fetched per tick
	APIKey          string `yaml:"-"`
	AlpacaKey       string `yaml:"-"`
	AlpacaSecret    string `yaml:"-"`
}

// Strategy groups the decision-engine tunables.
type Strategy struct {
	FastPeriod            int     `yaml:"fast_period"`
	SlowPeriod            int     `yaml:"slow_period"`
	SignalPeriod          int     `yaml:"signal_period"`
	TrendPeriod           int     `yaml:"trend_period"`
	StopLossPct           float64 `yaml:"stop_loss_pct"`
	TakeProfitPct         float64 `yaml:"take_profit_pct"`
	TrailingStopPct       float64 `yaml:"trailing_stop_pct"`
	TrailingActivationPct float64 `yaml:"trailing_activation_pct"`
	MaxPositionHours      int     `yaml:"max_position_hours"`
	MinTradeIntervalSecs  int     `yaml:"min_trade_interval_seconds"`
}

// Trading encodes execution-side guard rails and loop cadence.
type Trading struct {
	Pairs               []string `yaml:"pairs"`
	PollIntervalSeconds int      `yaml:"poll_interval_seconds"`
	MaxPositionSize     float64  `yaml:"max_position_size"` // fraction of cash per BUY
	MinTradeValue       float64  `yaml:"min_trade_value"`
	DailyTradeLimit     int      `yaml:"daily_trade_limit"`
	MaxConcentration    float64  `yaml:"max_concentration"`
	KillSwitch          bool     `yaml:"kill_switch"`
	DecisionsPath       string   `yaml:"decisions_path"`
	StatePath           string   `yaml:"state_path"`
}

// Config collects every configuration leaf.
type Config struct {
	App      App      `yaml:"app"`
	Exchange Exchange `yaml:"exchange"`
	Feed     Feed     `yaml:"feed"`
	Strategy Strategy `yaml:"strategy"`
	Trading  Trading  `yaml:"trading"`
}

// Load reads the YAML file, merges environment credentials, applies
// defaults, and validates. A missing .env file is not an error, and a
// missing config file means defaults plus environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	file, err := os.Open(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("open config: %w", err)
	}
	if err == nil {
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	}

	cfg.Exchange.APIKey = os.Getenv("ROOSTOO_API_KEY")
	cfg.Exchange.APISecret = os.Getenv("ROOSTOO_SECRET")
	cfg.Feed.APIKey = os.Getenv("HORUS_API_KEY")
	cfg.Feed.AlpacaKey = os.Getenv("APCA_API_KEY_ID")
	cfg.Feed.AlpacaSecret = os.Getenv("APCA_API_SECRET_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() Config {
	return Config{
		App: App{
			Name:          "macdbot",
			LogLevel:      "info",
			MetricsAddr:   ":9091",
			DashboardAddr: ":8050",
		},
		Exchange: Exchange{
			BaseURL:        "https://api.roostoo.com",
			TimeoutSeconds: 10,
		},
		Feed: Feed{
			Provider:        "horus",
			BaseURL:         "https://api-horus.com",
			IntervalMinutes: 15,
			Window:          240,
		},
		Strategy: Strategy{
			FastPeriod:            12,
			SlowPeriod:            26,
			SignalPeriod:          9,
			TrendPeriod:           200,
			StopLossPct:           0.03,
			TakeProfitPct:         0.03,
			TrailingStopPct:       0.015,
			TrailingActivationPct: 0.02,
			MaxPositionHours:      48,
			MinTradeIntervalSecs:  3600,
		},
		Trading: Trading{
			Pairs:               []string{"BTC/USD"},
			PollIntervalSeconds: 60,
			MaxPositionSize:     0.1,
			MinTradeValue:       1.0,
			DailyTradeLimit:     24,
			MaxConcentration:    0.85,
			DecisionsPath:       "decisions.ndjson",
			StatePath:           "macdbot.db",
		},
	}
}

// Validate fails fast on configuration that cannot produce a working bot.
func (c *Config) Validate() error {
	if err := c.StrategyConfig().Validate(); err != nil {
		return err
	}
	if len(c.Trading.Pairs) == 0 {
		return fmt.Errorf("at least one trading pair is required")
	}
	if c.Trading.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll_interval_seconds must be > 0")
	}
	if c.Trading.MaxPositionSize <= 0 || c.Trading.MaxPositionSize > 1 {
		return fmt.Errorf("max_position_size must be in (0, 1]")
	}
	if c.Trading.MinTradeValue < 0 {
		return fmt.Errorf("min_trade_value must be >= 0")
	}
	if c.Trading.DailyTradeLimit <= 0 {
		return fmt.Errorf("daily_trade_limit must be > 0")
	}
	if c.Trading.MaxConcentration <= 0 || c.Trading.MaxConcentration > 1 {
		return fmt.Errorf("max_concentration must be in (0, 1]")
	}
	if c.Feed.Window < c.Strategy.SlowPeriod+c.Strategy.SignalPeriod {
		return fmt.Errorf("feed window %d is below the strategy minimum history %d",
			c.Feed.Window, c.Strategy.SlowPeriod+c.Strategy.SignalPeriod)
	}
	switch c.Feed.Provider {
	case "horus", "alpaca", "stub":
	default:
		return fmt.Errorf("unknown feed provider: %s", c.Feed.Provider)
	}
	if c.Exchange.TimeoutSeconds <= 0 {
		return fmt.Errorf("exchange timeout_seconds must be > 0")
	}
	return nil
}

// StrategyConfig maps the YAML section onto the decision-engine config.
func (c *Config) StrategyConfig() strategy.Config {
	return strategy.Config{
		FastPeriod:            c.Strategy.FastPeriod,
		SlowPeriod:            c.Strategy.SlowPeriod,
		SignalPeriod:          c.Strategy.SignalPeriod,
		TrendPeriod:           c.Strategy.TrendPeriod,
		StopLossPct:           c.Strategy.StopLossPct,
		TakeProfitPct:         c.Strategy.TakeProfitPct,
		TrailingStopPct:       c.Strategy.TrailingStopPct,
		TrailingActivationPct: c.Strategy.TrailingActivationPct,
		MaxPositionAge:        time.Duration(c.Strategy.MaxPositionHours) * time.Hour,
		MinTradeInterval:      time.Duration(c.Strategy.MinTradeIntervalSecs) * time.Second,
	}
}

// PollInterval is the pause between evaluation ticks.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Trading.PollIntervalSeconds) * time.Second
}
