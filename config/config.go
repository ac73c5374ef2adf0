// Package config loads and validates the runtime configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/fxbot/market"
	"github.com/rustyeddy/fxbot/risk"
	"github.com/rustyeddy/fxbot/strategies"
)

// Config is the complete runtime configuration.
type Config struct {
	Account     AccountConfig    `json:"account" yaml:"account"`
	Risk        RiskConfig       `json:"risk" yaml:"risk"`
	Strategies  []StrategyConfig `json:"strategies" yaml:"strategies"`
	Instruments []string         `json:"instruments" yaml:"instruments"`
	Engine      EngineConfig     `json:"engine" yaml:"engine"`
	Journal     JournalConfig    `json:"journal" yaml:"journal"`
	LogLevel    string           `json:"log_level" yaml:"log_level"`
}

type AccountConfig struct {
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

type RiskConfig struct {
	MinConfidence   float64 `json:"min_confidence" yaml:"min_confidence"`
	RiskPerTrade    float64 `json:"risk_per_trade" yaml:"risk_per_trade"`
	MaxPositionPct  float64 `json:"max_position_pct" yaml:"max_position_pct"`
	MaxDailyLossPct float64 `json:"max_daily_loss_pct" yaml:"max_daily_loss_pct"`
	MaxExposurePct  float64 `json:"max_exposure_pct" yaml:"max_exposure_pct"`
	MinLotUnits     float64 `json:"min_lot_units" yaml:"min_lot_units"`
	AllowPyramiding bool    `json:"allow_pyramiding" yaml:"allow_pyramiding"`
}

// StrategyConfig enables one strategy. List order is priority order: when two
// strategies propose the same direction for an instrument in one cycle, the
// earlier entry wins.
type StrategyConfig struct {
	ID        string  `json:"id" yaml:"id"`
	StopPct   float64 `json:"stop_pct,omitempty" yaml:"stop_pct,omitempty"`
	TargetPct float64 `json:"target_pct,omitempty" yaml:"target_pct,omitempty"`
}

// EngineConfig holds cadences and timeouts as duration strings ("5m", "30s").
type EngineConfig struct {
	DecisionInterval string `json:"decision_interval" yaml:"decision_interval"`
	MonitorInterval  string `json:"monitor_interval" yaml:"monitor_interval"`
	FillPollInterval string `json:"fill_poll_interval" yaml:"fill_poll_interval"`
	PendingTimeout   string `json:"pending_timeout" yaml:"pending_timeout"`
	WindowSize       int    `json:"window_size" yaml:"window_size"`
	Timeframe        string `json:"timeframe" yaml:"timeframe"`
}

type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "sqlite" or "memory"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(fmt.Sprintf("config: bad duration %q after validation", s))
	}
	return d
}

// Validated accessors; call only after Validate succeeds.

func (e EngineConfig) Decision() time.Duration { return mustDuration(e.DecisionInterval) }
func (e EngineConfig) Monitor() time.Duration  { return mustDuration(e.MonitorInterval) }
func (e EngineConfig) FillPoll() time.Duration { return mustDuration(e.FillPollInterval) }
func (e EngineConfig) Pending() time.Duration  { return mustDuration(e.PendingTimeout) }

// LoadFromFile loads YAML (with JSON fallback) configuration.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, YAML or JSON by extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}

	r := c.Risk
	if r.MinConfidence < 0 || r.MinConfidence > 1 {
		return fmt.Errorf("risk.min_confidence must be in [0,1]")
	}
	if r.RiskPerTrade <= 0 || r.RiskPerTrade > 1 {
		return fmt.Errorf("risk.risk_per_trade must be in (0,1]")
	}
	if r.MaxPositionPct <= 0 || r.MaxPositionPct > 1 {
		return fmt.Errorf("risk.max_position_pct must be in (0,1]")
	}
	if r.MaxDailyLossPct <= 0 || r.MaxDailyLossPct > 1 {
		return fmt.Errorf("risk.max_daily_loss_pct must be in (0,1]")
	}
	if r.MaxExposurePct <= 0 || r.MaxExposurePct > 1 {
		return fmt.Errorf("risk.max_exposure_pct must be in (0,1]")
	}

	if len(c.Strategies) == 0 {
		return fmt.Errorf("at least one strategy is required")
	}
	seen := map[string]bool{}
	for _, s := range c.Strategies {
		if !strategies.Known(s.ID) {
			return fmt.Errorf("unknown strategy: %s", s.ID)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate strategy: %s", s.ID)
		}
		seen[s.ID] = true
	}

	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	for _, name := range c.Instruments {
		if !market.Supported(name) {
			return fmt.Errorf("unknown instrument: %s", name)
		}
	}

	for name, v := range map[string]string{
		"engine.decision_interval":  c.Engine.DecisionInterval,
		"engine.monitor_interval":   c.Engine.MonitorInterval,
		"engine.fill_poll_interval": c.Engine.FillPollInterval,
		"engine.pending_timeout":    c.Engine.PendingTimeout,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Engine.WindowSize < 2 {
		return fmt.Errorf("engine.window_size must be at least 2")
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite")
		}
	case "memory":
	default:
		return fmt.Errorf("journal.type must be 'sqlite' or 'memory'")
	}

	return nil
}

// RiskPolicy converts the risk section to a gate policy.
func (c *Config) RiskPolicy() risk.Policy {
	return risk.Policy{
		MinConfidence:   c.Risk.MinConfidence,
		RiskPerTrade:    c.Risk.RiskPerTrade,
		MaxPositionPct:  c.Risk.MaxPositionPct,
		MaxDailyLossPct: c.Risk.MaxDailyLossPct,
		MaxExposurePct:  c.Risk.MaxExposurePct,
		MinLotUnits:     c.Risk.MinLotUnits,
		AllowPyramiding: c.Risk.AllowPyramiding,
	}
}

// BuildStrategies instantiates the configured strategies in priority order.
func (c *Config) BuildStrategies() []strategies.Strategy {
	out := make([]strategies.Strategy, 0, len(c.Strategies))
	for _, s := range c.Strategies {
		strat := strategies.New(s.ID, strategies.StrategyParams{
			StopPct:   s.StopPct,
			TargetPct: s.TargetPct,
		})
		if strat != nil {
			out = append(out, strat)
		}
	}
	return out
}

// Default returns a runnable demo configuration.
func Default() *Config {
	return &Config{
		Account: AccountConfig{Currency: "USD", Balance: 10000},
		Risk: RiskConfig{
			MinConfidence:   0.6,
			RiskPerTrade:    0.02,
			MaxPositionPct:  0.10,
			MaxDailyLossPct: 0.05,
			MaxExposurePct:  0.30,
			MinLotUnits:     1000,
		},
		Strategies: []StrategyConfig{
			{ID: strategies.TrendFollowingID, StopPct: 0.02, TargetPct: 0.04},
			{ID: strategies.MeanReversionID, StopPct: 0.03},
			{ID: strategies.BreakoutID},
		},
		Instruments: []string{
			"EUR_USD", "GBP_USD", "USD_JPY", "USD_CHF",
			"AUD_USD", "USD_CAD", "NZD_USD",
		},
		Engine: EngineConfig{
			DecisionInterval: "5m",
			MonitorInterval:  "1m",
			FillPollInterval: "15s",
			PendingTimeout:   "2m",
			WindowSize:       50,
			Timeframe:        "H1",
		},
		Journal:  JournalConfig{Type: "sqlite", DBPath: "./fxbot.sqlite"},
		LogLevel: "info",
	}
}
