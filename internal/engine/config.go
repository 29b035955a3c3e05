package engine

import (
	"time"

	"portfoliosim/types"

	"github.com/shopspring/decimal"
)

type Weighting string

const (
	WeightEqual Weighting = "equal"
	WeightScore Weighting = "score"
)

// SimulationConfig holds the allocation policy shared by every session an
// engine runs.
type SimulationConfig struct {
	SkipWeekends bool
	// CashReserve is the fraction of portfolio value never deployed into new buys.
	CashReserve  decimal.Decimal
	MaxPositions int
	Weighting    Weighting

	MinConfidence decimal.Decimal
	EntryScore    decimal.Decimal
	// Held symbols whose score falls below ExitScore are liquidated.
	ExitScore decimal.Decimal

	// AutoReduce shrinks oversized buys to the quantity the risk gate suggests.
	// When false such buys are skipped.
	AutoReduce   bool
	RiskFreeRate decimal.Decimal
	Commission   CommissionModel
}

func DefaultSimulationConfig() *SimulationConfig {
	return &SimulationConfig{
		SkipWeekends:  true,
		CashReserve:   decimal.RequireFromString("0.05"),
		MaxPositions:  10,
		Weighting:     WeightEqual,
		MinConfidence: decimal.RequireFromString("0.5"),
		EntryScore:    decimal.Zero,
		ExitScore:     decimal.Zero,
		AutoReduce:    true,
		RiskFreeRate:  decimal.Zero,
		Commission:    ZeroCommission,
	}
}

func (c *SimulationConfig) commission(notional decimal.Decimal) decimal.Decimal {
	if c.Commission == nil {
		return decimal.Zero
	}
	return c.Commission.Commission(notional)
}

// StartParams describe a single session.
type StartParams struct {
	Label          string
	InitialCapital decimal.Decimal
	// HorizonDays counts trading days, not calendar days.
	HorizonDays int
	StartDate   time.Time
	Limits      types.RiskLimits
	Thresholds  types.AlertThresholds
	Sectors     types.SectorMap
}
