package risk

import (
	"sort"

	"portfoliosim/types"

	"github.com/shopspring/decimal"
)

type ConcentrationReport struct {
	MaxPositionPct decimal.Decimal
	LargestSymbol  string
	Top5Pct        decimal.Decimal
	SectorPct      map[string]decimal.Decimal
	RiskLevel      types.RiskLevel
	// Breaches lists symbols whose position or sector is at or above the warning level.
	Breaches []string
}

type weight struct {
	symbol string
	pct    decimal.Decimal
}

// Concentration measures how much of the portfolio sits in single names and
// sectors. Symbols without a sector are reported under types.UnknownSector but
// never count against the sector limit.
func (g *Gate) Concentration(view types.PortfolioView, sectors types.SectorMap) ConcentrationReport {
	report := ConcentrationReport{
		MaxPositionPct: decimal.Zero,
		Top5Pct:        decimal.Zero,
		SectorPct:      make(map[string]decimal.Decimal),
		RiskLevel:      types.RiskLevelLow,
	}
	value := view.TotalValue()
	if !value.IsPositive() || len(view.Positions) == 0 {
		return report
	}

	weights := make([]weight, 0, len(view.Positions))
	for _, sym := range view.Symbols() {
		pos := view.Positions[sym]
		w := pos.MarketValue().Div(value)
		weights = append(weights, weight{symbol: sym, pct: w})
		sector := sectors.SectorOf(sym)
		report.SectorPct[sector] = report.SectorPct[sector].Add(w)
	}
	sort.SliceStable(weights, func(i, j int) bool { return weights[i].pct.GreaterThan(weights[j].pct) })

	report.MaxPositionPct = weights[0].pct
	report.LargestSymbol = weights[0].symbol
	for i := 0; i < len(weights) && i < 5; i++ {
		report.Top5Pct = report.Top5Pct.Add(weights[i].pct)
	}

	warnPos := g.limits.MaxPositionWeight.Mul(g.thresholds.WarningFraction)
	warnSector := g.limits.MaxSectorWeight.Mul(g.thresholds.WarningFraction)
	level := types.RiskLevelLow
	raise := func(l types.RiskLevel) {
		if l == types.RiskLevelHigh || (l == types.RiskLevelMedium && level == types.RiskLevelLow) {
			level = l
		}
	}

	for _, w := range weights {
		switch {
		case w.pct.GreaterThan(g.limits.MaxPositionWeight):
			raise(types.RiskLevelHigh)
			report.Breaches = append(report.Breaches, w.symbol)
		case w.pct.GreaterThanOrEqual(warnPos):
			raise(types.RiskLevelMedium)
			report.Breaches = append(report.Breaches, w.symbol)
		}
	}

	for _, w := range weights {
		sector := sectors.SectorOf(w.symbol)
		if sector == types.UnknownSector {
			continue
		}
		sp := report.SectorPct[sector]
		switch {
		case sp.GreaterThan(g.limits.MaxSectorWeight):
			raise(types.RiskLevelHigh)
		case sp.GreaterThanOrEqual(warnSector):
			raise(types.RiskLevelMedium)
		default:
			continue
		}
		if !contains(report.Breaches, w.symbol) {
			report.Breaches = append(report.Breaches, w.symbol)
		}
	}

	report.RiskLevel = level
	return report
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
