package types

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type PortfolioView struct {
	ID             string
	Cash           decimal.Decimal
	InitialCapital decimal.Decimal
	Positions      map[string]PositionSnapshot
	Time           time.Time
}

type PositionSnapshot struct {
	Symbol    string
	Quantity  decimal.Decimal
	AvgCost   decimal.Decimal
	LastPrice decimal.Decimal
}

func (p PositionSnapshot) MarketValue() decimal.Decimal {
	return p.Quantity.Mul(p.LastPrice)
}

func (p PositionSnapshot) UnrealizedPnL() decimal.Decimal {
	return p.LastPrice.Sub(p.AvgCost).Mul(p.Quantity)
}

// TotalValue is cash plus the market value of every position.
func (v PortfolioView) TotalValue() decimal.Decimal {
	value := v.Cash
	for _, pos := range v.Positions {
		value = value.Add(pos.MarketValue())
	}
	return value
}

// Symbols returns the held symbols in lexical order.
func (v PortfolioView) Symbols() []string {
	out := make([]string, 0, len(v.Positions))
	for sym := range v.Positions {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
