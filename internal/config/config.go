package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"github.com/svandell/allokera/internal/core"
	"github.com/svandell/allokera/internal/market"
)

type Config struct {
	Portfolio PortfolioConfig `mapstructure:"portfolio"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Market    MarketConfig    `mapstructure:"market"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Metric    MetricConfig    `mapstructure:"metric"`
	Store     StoreConfig     `mapstructure:"store"`
	Report    ReportConfig    `mapstructure:"report"`
}

type PortfolioConfig struct {
	ID               string  `mapstructure:"id"`
	Currency         string  `mapstructure:"currency"`
	InitCash         float64 `mapstructure:"init_cash"`
	Benchmark        string  `mapstructure:"benchmark"`
	CommissionScheme string  `mapstructure:"commission_scheme"`
}

type StrategyConfig struct {
	Type    string             `mapstructure:"type"`
	Period  string             `mapstructure:"period"`
	Weights map[string]float64 `mapstructure:"weights"`
}

type MarketConfig struct {
	Path       string `mapstructure:"path"`
	FillMethod string `mapstructure:"fill_method"`
}

type BacktestConfig struct {
	StartDate string `mapstructure:"start_date"`
	EndDate   string `mapstructure:"end_date"`
}

type MetricConfig struct {
	RollingSharpeWindow int     `mapstructure:"rolling_sharpe_window"`
	RollingBetaWindow   int     `mapstructure:"rolling_beta_window"`
	Annualization       float64 `mapstructure:"annualization"`
}

// StoreConfig enables SQLite persistence of finished runs.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ReportConfig selects the result archive backend, "localfs" or "s3".
type ReportConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"`
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Portfolio: PortfolioConfig{
			Currency: "SEK",
			InitCash: 100000,
		},
		Strategy: StrategyConfig{
			Type:   "rebalance",
			Period: "som",
		},
		Market: MarketConfig{
			FillMethod: market.FillForward,
		},
		Metric: MetricConfig{
			RollingSharpeWindow: 126,
			RollingBetaWindow:   126,
			Annualization:       252,
		},
		Report: ReportConfig{
			Type: "localfs",
			Path: "reports",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Portfolio.InitCash <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("init_cash must be positive, got %f", c.Portfolio.InitCash))
	}

	if c.Market.Path == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("market data path is required"))
	}
	switch c.Market.FillMethod {
	case market.FillNone, market.FillForward, market.FillBackward, market.FillInterpolate:
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown fill_method %q", c.Market.FillMethod))
	}

	if c.Backtest.StartDate != "" && !core.ValidDate(c.Backtest.StartDate) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("start_date %q is not an ISO date", c.Backtest.StartDate))
	}
	if c.Backtest.EndDate != "" && !core.ValidDate(c.Backtest.EndDate) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("end_date %q is not an ISO date", c.Backtest.EndDate))
	}

	for name, w := range c.Strategy.Weights {
		if w < 0 || w > 1 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("weight for %s must be between 0 and 1, got %f", name, w))
		}
	}

	if c.Metric.RollingSharpeWindow < 2 || c.Metric.RollingBetaWindow < 2 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rolling windows must be at least 2"))
	}
	if c.Metric.Annualization <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("annualization must be positive, got %f", c.Metric.Annualization))
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("store path required when store is enabled"))
	}

	if c.Report.Enabled {
		switch c.Report.Type {
		case "localfs":
			if c.Report.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("report path required for localfs archive"))
			}
		case "s3":
			if c.Report.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("s3 bucket required for s3 archive"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown report type %q", c.Report.Type))
		}
	}

	return nil
}
