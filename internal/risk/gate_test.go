package risk

import (
	"testing"
	"time"

	"portfoliosim/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestGate(t *testing.T, limits types.RiskLimits) *Gate {
	t.Helper()
	g, err := NewGate(limits, types.DefaultAlertThresholds(), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return g
}

func view(cash string, positions ...types.PositionSnapshot) types.PortfolioView {
	v := types.PortfolioView{
		Cash:      d(cash),
		Positions: make(map[string]types.PositionSnapshot),
	}
	for _, p := range positions {
		v.Positions[p.Symbol] = p
	}
	return v
}

func pos(symbol, qty, price string) types.PositionSnapshot {
	return types.PositionSnapshot{Symbol: symbol, Quantity: d(qty), AvgCost: d(price), LastPrice: d(price)}
}

func TestNewGateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.RiskLimits, *types.AlertThresholds)
	}{
		{"zero position weight", func(l *types.RiskLimits, _ *types.AlertThresholds) { l.MaxPositionWeight = decimal.Zero }},
		{"sector weight above one", func(l *types.RiskLimits, _ *types.AlertThresholds) { l.MaxSectorWeight = d("1.5") }},
		{"negative drawdown", func(l *types.RiskLimits, _ *types.AlertThresholds) { l.MaxDrawdown = d("-0.1") }},
		{"confidence of one", func(l *types.RiskLimits, _ *types.AlertThresholds) { l.VaRConfidence = d("1") }},
		{"zero warning fraction", func(_ *types.RiskLimits, th *types.AlertThresholds) { th.WarningFraction = decimal.Zero }},
		{"zero lookback", func(_ *types.RiskLimits, th *types.AlertThresholds) { th.VaRLookback = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := types.DefaultRiskLimits()
			thresholds := types.DefaultAlertThresholds()
			tt.mutate(&limits, &thresholds)
			_, err := NewGate(limits, thresholds)
			assert.ErrorIs(t, err, ErrInvalidLimits)
		})
	}

	g, err := NewGate(types.DefaultRiskLimits(), types.DefaultAlertThresholds())
	require.NoError(t, err)
	assert.True(t, g.Limits().MaxPositionWeight.Equal(d("0.2")))
	assert.Equal(t, 60, g.Thresholds().VaRLookback)
}
