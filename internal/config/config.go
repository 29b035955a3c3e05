package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"portfoliosim/internal/engine"
	"portfoliosim/internal/logger"
	"portfoliosim/internal/risk"
	"portfoliosim/strategies/donchian"
	"portfoliosim/types"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
	SourceDonchian = "donchian"
)

// Environment variables that override the config file.
const (
	EnvDatabaseURL = "PORTFOLIOSIM_DATABASE_URL"
	EnvLogLevel    = "PORTFOLIOSIM_LOG_LEVEL"
	EnvAPIAddr     = "PORTFOLIOSIM_API_ADDR"
	EnvJournalPath = "PORTFOLIOSIM_JOURNAL_PATH"
)

// Config is the complete configuration of a simulation run.
type Config struct {
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Risk       RiskConfig       `json:"risk" yaml:"risk"`
	Data       DataConfig       `json:"data" yaml:"data"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Log        logger.Config    `json:"log" yaml:"log"`
	API        APIConfig        `json:"api" yaml:"api"`
}

type SimulationConfig struct {
	Label          string           `json:"label,omitempty" yaml:"label,omitempty"`
	InitialCapital decimal.Decimal  `json:"initial_capital" yaml:"initial_capital"`
	HorizonDays    int              `json:"horizon_days" yaml:"horizon_days"`
	StartDate      string           `json:"start_date" yaml:"start_date"` // YYYY-MM-DD
	SkipWeekends   bool             `json:"skip_weekends" yaml:"skip_weekends"`
	CashReserve    decimal.Decimal  `json:"cash_reserve" yaml:"cash_reserve"`
	MaxPositions   int              `json:"max_positions" yaml:"max_positions"`
	Weighting      string           `json:"weighting" yaml:"weighting"` // equal or score
	MinConfidence  decimal.Decimal  `json:"min_confidence" yaml:"min_confidence"`
	EntryScore     decimal.Decimal  `json:"entry_score" yaml:"entry_score"`
	ExitScore      decimal.Decimal  `json:"exit_score" yaml:"exit_score"`
	AutoReduce     bool             `json:"auto_reduce" yaml:"auto_reduce"`
	RiskFreeRate   decimal.Decimal  `json:"risk_free_rate" yaml:"risk_free_rate"`
	Commission     CommissionConfig `json:"commission" yaml:"commission"`
}

// CommissionConfig describes a rate-of-value commission with a per-order
// minimum and an optional cap (0 = none).
type CommissionConfig struct {
	Rate decimal.Decimal `json:"rate" yaml:"rate"`
	Min  decimal.Decimal `json:"min" yaml:"min"`
	Max  decimal.Decimal `json:"max" yaml:"max"`
}

type RiskConfig struct {
	Limits     types.RiskLimits      `json:"limits" yaml:"limits"`
	Thresholds types.AlertThresholds `json:"thresholds" yaml:"thresholds"`
}

type DataConfig struct {
	Source      string `json:"source" yaml:"source"` // csv, postgres or donchian
	PricesPath  string `json:"prices_path,omitempty" yaml:"prices_path,omitempty"`
	SignalsPath string `json:"signals_path,omitempty" yaml:"signals_path,omitempty"`
	SectorsPath string `json:"sectors_path,omitempty" yaml:"sectors_path,omitempty"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	// Lookback is the channel length of the donchian signal source.
	Lookback int `json:"lookback,omitempty" yaml:"lookback,omitempty"`
}

type JournalConfig struct {
	Path          string `json:"path,omitempty" yaml:"path,omitempty"`
	CheckpointDir string `json:"checkpoint_dir,omitempty" yaml:"checkpoint_dir,omitempty"`
	ReportDir     string `json:"report_dir,omitempty" yaml:"report_dir,omitempty"`
}

type APIConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Default mirrors engine.DefaultSimulationConfig and the default risk limits.
func Default() *Config {
	sim := engine.DefaultSimulationConfig()
	return &Config{
		Simulation: SimulationConfig{
			InitialCapital: decimal.NewFromInt(100000),
			HorizonDays:    252,
			SkipWeekends:   sim.SkipWeekends,
			CashReserve:    sim.CashReserve,
			MaxPositions:   sim.MaxPositions,
			Weighting:      string(sim.Weighting),
			MinConfidence:  sim.MinConfidence,
			EntryScore:     sim.EntryScore,
			ExitScore:      sim.ExitScore,
			AutoReduce:     sim.AutoReduce,
			RiskFreeRate:   sim.RiskFreeRate,
		},
		Risk: RiskConfig{
			Limits:     types.DefaultRiskLimits(),
			Thresholds: types.DefaultAlertThresholds(),
		},
		Data: DataConfig{
			Source:   SourceCSV,
			Lookback: 20,
		},
		Log: logger.Config{Level: "info"},
		API: APIConfig{Addr: ":8080"},
	}
}

// Load reads an optional .env file, then the config file at path (defaults
// only when path is empty), then the environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration on top of the defaults from a JSON or YAML
// file. The environment is not consulted.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.readFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// JSON files use the json tags; anything else tries YAML first, then JSON
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		if jerr := json.Unmarshal(data, c); jerr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
		}
	}
	return nil
}

// ApplyEnv overrides settings from the process environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Data.DatabaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvAPIAddr); v != "" {
		c.API.Addr = v
	}
	if v := os.Getenv(EnvJournalPath); v != "" {
		c.Journal.Path = v
	}
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
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

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	s := c.Simulation
	if !s.InitialCapital.IsPositive() {
		return fmt.Errorf("simulation.initial_capital must be positive")
	}
	if s.HorizonDays < 1 {
		return fmt.Errorf("simulation.horizon_days must be at least 1")
	}
	if s.StartDate != "" {
		if _, err := time.Parse(time.DateOnly, s.StartDate); err != nil {
			return fmt.Errorf("simulation.start_date must be YYYY-MM-DD: %w", err)
		}
	}
	if s.CashReserve.IsNegative() || !s.CashReserve.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("simulation.cash_reserve must be in [0, 1)")
	}
	if s.MaxPositions < 1 {
		return fmt.Errorf("simulation.max_positions must be at least 1")
	}
	if s.Weighting != string(engine.WeightEqual) && s.Weighting != string(engine.WeightScore) {
		return fmt.Errorf("simulation.weighting must be 'equal' or 'score'")
	}
	if s.MinConfidence.IsNegative() || s.MinConfidence.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("simulation.min_confidence must be between 0 and 1")
	}
	if s.Commission.Rate.IsNegative() || s.Commission.Min.IsNegative() || s.Commission.Max.IsNegative() {
		return fmt.Errorf("simulation.commission values must not be negative")
	}
	if s.Commission.Max.IsPositive() && s.Commission.Max.LessThan(s.Commission.Min) {
		return fmt.Errorf("simulation.commission.max must not be below min")
	}

	if _, err := risk.NewGate(c.Risk.Limits, c.Risk.Thresholds); err != nil {
		return err
	}

	switch c.Data.Source {
	case SourceCSV:
		if c.Data.PricesPath == "" || c.Data.SignalsPath == "" {
			return fmt.Errorf("data.prices_path and data.signals_path required for csv source")
		}
	case SourcePostgres:
		if c.Data.DatabaseURL == "" {
			return fmt.Errorf("data.database_url required for postgres source")
		}
	case SourceDonchian:
		if c.Data.PricesPath == "" && c.Data.DatabaseURL == "" {
			return fmt.Errorf("data.prices_path or data.database_url required for donchian source")
		}
		if c.Data.Lookback < 2 {
			return fmt.Errorf("data.lookback must be at least 2")
		}
	default:
		return fmt.Errorf("data.source must be 'csv', 'postgres' or 'donchian'")
	}
	return nil
}


// CommissionModel returns the engine commission model; a zero rate and
// minimum means no commission.
func (c *Config) CommissionModel() engine.CommissionModel {
	cc := c.Simulation.Commission
	if cc.Rate.IsZero() && cc.Min.IsZero() {
		return engine.ZeroCommission
	}
	return donchian.IBKRFixed{Rate: cc.Rate, Min: cc.Min, Max: cc.Max}
}

// EngineConfig converts the simulation section into the engine's allocation policy.
func (c *Config) EngineConfig() *engine.SimulationConfig {
	s := c.Simulation
	return &engine.SimulationConfig{
		SkipWeekends:  s.SkipWeekends,
		CashReserve:   s.CashReserve,
		MaxPositions:  s.MaxPositions,
		Weighting:     engine.Weighting(s.Weighting),
		MinConfidence: s.MinConfidence,
		EntryScore:    s.EntryScore,
		ExitScore:     s.ExitScore,
		AutoReduce:    s.AutoReduce,
		RiskFreeRate:  s.RiskFreeRate,
		Commission:    c.CommissionModel(),
	}
}

// StartParams builds session parameters. An empty start date means today.
func (c *Config) StartParams(sectors types.SectorMap) (engine.StartParams, error) {
	start := time.Now().UTC()
	if c.Simulation.StartDate != "" {
		var err error
		start, err = time.Parse(time.DateOnly, c.Simulation.StartDate)
		if err != nil {
			return engine.StartParams{}, fmt.Errorf("invalid config: simulation.start_date: %w", err)
		}
	}
	return engine.StartParams{
		Label:          c.Simulation.Label,
		InitialCapital: c.Simulation.InitialCapital,
		HorizonDays:    c.Simulation.HorizonDays,
		StartDate:      start,
		Limits:         c.Risk.Limits,
		Thresholds:     c.Risk.Thresholds,
		Sectors:        sectors,
	}, nil
}
