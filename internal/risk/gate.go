// Package risk evaluates trades and portfolio snapshots against a fixed set of
// risk limits. It never mutates a ledger; callers act on its verdicts.
package risk

import (
	"errors"
	"fmt"
	"time"

	"portfoliosim/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrRiskLimitExceeded   = errors.New("risk limit exceeded")
	ErrInsufficientHistory = errors.New("not enough return history")
	ErrInvalidLimits       = errors.New("invalid risk limits")
	ErrInvalidConfidence   = errors.New("confidence must be between 0 and 1")
)

var (
	one = decimal.NewFromInt(1)
)

type Gate struct {
	limits         types.RiskLimits
	thresholds     types.AlertThresholds
	quantityPlaces int32
	now            func() time.Time
	newID          func() string
}

type Option func(*Gate)

// WithQuantityPlaces sets the number of decimal places suggested quantities are
// rounded down to. The default of 0 suggests whole shares.
func WithQuantityPlaces(places int32) Option {
	return func(g *Gate) {
		g.quantityPlaces = places
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

func NewGate(limits types.RiskLimits, thresholds types.AlertThresholds, opts ...Option) (*Gate, error) {
	if err := ValidateLimits(limits); err != nil {
		return nil, err
	}
	if err := validateThresholds(thresholds); err != nil {
		return nil, err
	}
	g := &Gate{
		limits:     limits,
		thresholds: thresholds,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Gate) Limits() types.RiskLimits {
	return g.limits
}

func (g *Gate) Thresholds() types.AlertThresholds {
	return g.thresholds
}

// ValidateLimits checks that every weight and threshold is a usable fraction.
func ValidateLimits(l types.RiskLimits) error {
	fractions := []struct {
		name  string
		value decimal.Decimal
	}{
		{"max_position_weight", l.MaxPositionWeight},
		{"max_sector_weight", l.MaxSectorWeight},
		{"max_drawdown", l.MaxDrawdown},
		{"max_daily_loss", l.MaxDailyLoss},
		{"max_var_pct", l.MaxVaRPct},
	}
	for _, f := range fractions {
		if !f.value.IsPositive() || f.value.GreaterThan(one) {
			return fmt.Errorf("%w: %s must be in (0, 1], got %s", ErrInvalidLimits, f.name, f.value)
		}
	}
	if !l.VaRConfidence.IsPositive() || !l.VaRConfidence.LessThan(one) {
		return fmt.Errorf("%w: var_confidence must be in (0, 1), got %s", ErrInvalidLimits, l.VaRConfidence)
	}
	return nil
}

func validateThresholds(t types.AlertThresholds) error {
	if !t.WarningFraction.IsPositive() || t.WarningFraction.GreaterThan(one) {
		return fmt.Errorf("%w: warning_fraction must be in (0, 1], got %s", ErrInvalidLimits, t.WarningFraction)
	}
	if t.VaRLookback < 1 {
		return fmt.Errorf("%w: var_lookback must be at least 1, got %d", ErrInvalidLimits, t.VaRLookback)
	}
	return nil
}
