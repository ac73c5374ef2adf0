package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/fxbot/strategies"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Default().Validate())
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no currency", func(c *Config) { c.Account.Currency = "" }},
		{"zero balance", func(c *Config) { c.Account.Balance = 0 }},
		{"bad confidence", func(c *Config) { c.Risk.MinConfidence = 1.5 }},
		{"zero risk per trade", func(c *Config) { c.Risk.RiskPerTrade = 0 }},
		{"no strategies", func(c *Config) { c.Strategies = nil }},
		{"unknown strategy", func(c *Config) { c.Strategies = []StrategyConfig{{ID: "martingale"}} }},
		{"duplicate strategy", func(c *Config) {
			c.Strategies = append(c.Strategies, c.Strategies[0])
		}},
		{"no instruments", func(c *Config) { c.Instruments = nil }},
		{"unknown instrument", func(c *Config) { c.Instruments = []string{"DOGE_MOON"} }},
		{"bad interval", func(c *Config) { c.Engine.DecisionInterval = "five minutes" }},
		{"negative interval", func(c *Config) { c.Engine.MonitorInterval = "-1m" }},
		{"tiny window", func(c *Config) { c.Engine.WindowSize = 1 }},
		{"bad journal type", func(c *Config) { c.Journal.Type = "carrier-pigeon" }},
		{"sqlite without path", func(c *Config) { c.Journal.DBPath = "" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRoundTripYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	orig := Default()
	orig.Journal = JournalConfig{Type: "memory"}
	require.NoError(t, orig.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, orig, loaded)
	assert.Equal(t, 5*time.Minute, loaded.Engine.Decision())
}

func TestBuildStrategiesPreservesOrder(t *testing.T) {
	t.Parallel()

	built := Default().BuildStrategies()
	require.Len(t, built, 3)
	assert.Equal(t, strategies.TrendFollowingID, built[0].Name())
	assert.Equal(t, strategies.MeanReversionID, built[1].Name())
	assert.Equal(t, strategies.BreakoutID, built[2].Name())
}

func TestRiskPolicyConversion(t *testing.T) {
	t.Parallel()

	p := Default().RiskPolicy()
	assert.Equal(t, 0.6, p.MinConfidence)
	assert.Equal(t, 0.02, p.RiskPerTrade)
	assert.Equal(t, 0.10, p.MaxPositionPct)
	assert.Equal(t, 0.05, p.MaxDailyLossPct)
}
