package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"portfoliosim/internal/engine"
	"portfoliosim/internal/risk"
	"portfoliosim/strategies/donchian"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Data.PricesPath = "prices.csv"
	cfg.Data.SignalsPath = "signals.csv"
	return cfg
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFileYAML(t *testing.T) {
	path := writeFile(t, "sim.yaml", `
simulation:
  initial_capital: 250000
  horizon_days: 60
  start_date: "2024-01-02"
  cash_reserve: "0.1"
  weighting: score
  commission:
    rate: 0.0005
    min: 1.70
    max: 39
risk:
  limits:
    max_position_weight: 0.25
data:
  source: csv
  prices_path: prices.csv
  signals_path: signals.csv
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.True(t, cfg.Simulation.InitialCapital.Equal(decimal.NewFromInt(250000)))
	assert.Equal(t, 60, cfg.Simulation.HorizonDays)
	assert.True(t, cfg.Simulation.CashReserve.Equal(decimal.RequireFromString("0.1")))
	assert.Equal(t, "score", cfg.Simulation.Weighting)
	assert.True(t, cfg.Risk.Limits.MaxPositionWeight.Equal(decimal.RequireFromString("0.25")))
	// unset fields keep their defaults
	assert.True(t, cfg.Risk.Limits.MaxSectorWeight.Equal(decimal.RequireFromString("0.4")))
	assert.Equal(t, 10, cfg.Simulation.MaxPositions)
	assert.True(t, cfg.Simulation.AutoReduce)

	ec := cfg.EngineConfig()
	assert.Equal(t, engine.WeightScore, ec.Weighting)
	fee, ok := ec.Commission.(donchian.IBKRFixed)
	require.True(t, ok)
	assert.True(t, fee.Max.Equal(decimal.NewFromInt(39)))

	params, err := cfg.StartParams(nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), params.StartDate)
	assert.Equal(t, 60, params.HorizonDays)
}

func TestLoadFromFileJSON(t *testing.T) {
	path := writeFile(t, "sim.json", `{
  "simulation": {"initial_capital": 5000, "horizon_days": 5},
  "data": {"source": "postgres", "database_url": "postgres://localhost/sim"}
}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Simulation.InitialCapital.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, SourcePostgres, cfg.Data.Source)
	assert.True(t, cfg.CommissionModel().Commission(decimal.NewFromInt(10000)).IsZero())
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeFile(t, "bad.yaml", "simulation: [unterminated")
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "parse config")

	path = writeFile(t, "invalid.yaml", "data:\n  source: csv\n")
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "invalid config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"capital", func(c *Config) { c.Simulation.InitialCapital = decimal.Zero }, "initial_capital"},
		{"horizon", func(c *Config) { c.Simulation.HorizonDays = 0 }, "horizon_days"},
		{"start date", func(c *Config) { c.Simulation.StartDate = "02/01/2024" }, "start_date"},
		{"reserve", func(c *Config) { c.Simulation.CashReserve = decimal.NewFromInt(1) }, "cash_reserve"},
		{"weighting", func(c *Config) { c.Simulation.Weighting = "random" }, "weighting"},
		{"commission", func(c *Config) {
			c.Simulation.Commission = CommissionConfig{Min: decimal.NewFromInt(5), Max: decimal.NewFromInt(1)}
		}, "commission.max"},
		{"source", func(c *Config) { c.Data.Source = "s3" }, "data.source"},
		{"postgres url", func(c *Config) { c.Data.Source = SourcePostgres }, "database_url"},
		{"donchian lookback", func(c *Config) {
			c.Data.Source = SourceDonchian
			c.Data.Lookback = 1
		}, "lookback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}

	cfg := validConfig()
	cfg.Risk.Limits.MaxDrawdown = decimal.NewFromInt(2)
	assert.ErrorIs(t, cfg.Validate(), risk.ErrInvalidLimits)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "postgres://env/sim")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvAPIAddr, ":9999")
	t.Setenv(EnvJournalPath, "/tmp/journal.db")

	cfg := validConfig()
	cfg.ApplyEnv()

	assert.Equal(t, "postgres://env/sim", cfg.Data.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9999", cfg.API.Addr)
	assert.Equal(t, "/tmp/journal.db", cfg.Journal.Path)
}

func TestSaveToFileRoundTrip(t *testing.T) {
	for _, name := range []string{"out.yaml", "out.json"} {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Simulation.CashReserve = decimal.RequireFromString("0.125")
			cfg.Simulation.StartDate = "2024-06-03"
			cfg.Risk.Limits.MaxDailyLoss = decimal.RequireFromString("0.07")

			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, cfg.SaveToFile(path))

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.True(t, loaded.Simulation.CashReserve.Equal(cfg.Simulation.CashReserve))
			assert.Equal(t, "2024-06-03", loaded.Simulation.StartDate)
			assert.True(t, loaded.Risk.Limits.MaxDailyLoss.Equal(decimal.RequireFromString("0.07")))
		})
	}
}

func TestParseParam(t *testing.T) {
	p, err := ParseParam("cash_reserve=0.05, 0.1")
	require.NoError(t, err)
	assert.Equal(t, "cash_reserve", p.Key)
	assert.Equal(t, []string{"0.05", "0.1"}, p.Values)

	_, err = ParseParam("cash_reserve")
	assert.Error(t, err)
	_, err = ParseParam("=1")
	assert.Error(t, err)
}

func TestExpand(t *testing.T) {
	base := validConfig()
	configs, err := base.Expand([]Param{
		{Key: "cash_reserve", Values: []string{"0.05", "0.1"}},
		{Key: "max_drawdown", Values: []string{"0.1", "0.2", "0.3"}},
	})
	require.NoError(t, err)
	require.Len(t, configs, 6)

	assert.Equal(t, "cash_reserve=0.05 max_drawdown=0.1", configs[0].Simulation.Label)
	assert.True(t, configs[5].Simulation.CashReserve.Equal(decimal.RequireFromString("0.1")))
	assert.True(t, configs[5].Risk.Limits.MaxDrawdown.Equal(decimal.RequireFromString("0.3")))
	// the base is untouched
	assert.True(t, base.Simulation.CashReserve.Equal(decimal.RequireFromString("0.05")))
	assert.Empty(t, base.Simulation.Label)

	_, err = base.Expand([]Param{{Key: "leverage", Values: []string{"2"}}})
	assert.ErrorIs(t, err, ErrUnknownParam)

	_, err = base.Expand([]Param{{Key: "cash_reserve", Values: []string{"1.5"}}})
	assert.ErrorContains(t, err, "invalid config")
}
