package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskLimits is fixed for the lifetime of a session. All weights and thresholds are
// fractions of portfolio value (0.2 = 20%).
type RiskLimits struct {
	MaxPositionWeight decimal.Decimal `json:"maxPositionWeight" yaml:"max_position_weight"`
	MaxSectorWeight   decimal.Decimal `json:"maxSectorWeight" yaml:"max_sector_weight"`
	MaxDrawdown       decimal.Decimal `json:"maxDrawdown" yaml:"max_drawdown"`
	MaxDailyLoss      decimal.Decimal `json:"maxDailyLoss" yaml:"max_daily_loss"`
	VaRConfidence     decimal.Decimal `json:"varConfidence" yaml:"var_confidence"`
	MaxVaRPct         decimal.Decimal `json:"maxVarPct" yaml:"max_var_pct"`
}

// AlertThresholds decide how close to a limit a metric must be before it is reported.
type AlertThresholds struct {
	WarningFraction decimal.Decimal `json:"warningFraction" yaml:"warning_fraction"`
	VaRLookback     int             `json:"varLookback" yaml:"var_lookback"`
}

func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxPositionWeight: decimal.RequireFromString("0.2"),
		MaxSectorWeight:   decimal.RequireFromString("0.4"),
		MaxDrawdown:       decimal.RequireFromString("0.2"),
		MaxDailyLoss:      decimal.RequireFromString("0.05"),
		VaRConfidence:     decimal.RequireFromString("0.95"),
		MaxVaRPct:         decimal.RequireFromString("0.03"),
	}
}

func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		WarningFraction: decimal.RequireFromString("0.8"),
		VaRLookback:     60,
	}
}

type RiskAlert struct {
	ID            string          `json:"id"`
	Severity      Severity        `json:"severity"`
	Metric        Metric          `json:"metric"`
	Value         decimal.Decimal `json:"value"`
	Threshold     decimal.Decimal `json:"threshold"`
	Symbols       []string        `json:"symbols,omitempty"`
	Actions       []string        `json:"actions,omitempty"`
	Message       string          `json:"message"`
	LowConfidence bool            `json:"lowConfidence,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// SectorMap maps a symbol to its sector id.
type SectorMap map[string]string

const UnknownSector = "UNKNOWN"

func (m SectorMap) SectorOf(symbol string) string {
	if s, ok := m[symbol]; ok && s != "" {
		return s
	}
	return UnknownSector
}
