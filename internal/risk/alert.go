package risk

import (
	"fmt"

	"portfoliosim/types"

	"github.com/shopspring/decimal"
)

// GenerateAlert evaluates drawdown, daily loss, VaR and concentration together
// and returns the most severe issue, or nil when every check passes.
// recentReturns is the full daily return path of the portfolio, oldest first.
func (g *Gate) GenerateAlert(view types.PortfolioView, recentReturns []decimal.Decimal, sectors types.SectorMap) *types.RiskAlert {
	var worst *types.RiskAlert
	consider := func(a *types.RiskAlert) {
		if a == nil {
			return
		}
		if worst == nil || a.Severity.Rank() > worst.Severity.Rank() {
			worst = a
		}
	}

	consider(g.drawdownAlert(view, recentReturns))
	consider(g.dailyLossAlert(view, recentReturns))
	consider(g.varAlert(view, recentReturns))
	consider(g.concentrationAlert(view, sectors))

	if worst == nil {
		return nil
	}
	worst.ID = g.newID()
	worst.CreatedAt = g.now()
	worst.Actions = SuggestMitigation(*worst)
	return worst
}

// severity grades value against limit: at or over the limit is breach, at or
// over the warning fraction of the limit is near.
func (g *Gate) severity(value, limit decimal.Decimal, breach, near types.Severity) types.Severity {
	switch {
	case value.GreaterThanOrEqual(limit):
		return breach
	case value.GreaterThanOrEqual(limit.Mul(g.thresholds.WarningFraction)):
		return near
	}
	return ""
}

func (g *Gate) drawdownAlert(view types.PortfolioView, returns []decimal.Decimal) *types.RiskAlert {
	if len(returns) == 0 {
		return nil
	}
	var t DrawdownTracker
	for _, v := range pathFromReturns(returns) {
		t.Observe(v)
	}
	dd := t.Current()
	sev := g.severity(dd, g.limits.MaxDrawdown, types.SeverityCritical, types.SeverityWarning)
	if sev == "" {
		return nil
	}
	return &types.RiskAlert{
		Severity:  sev,
		Metric:    types.MetricDrawdown,
		Value:     dd,
		Threshold: g.limits.MaxDrawdown,
		Symbols:   view.Symbols(),
		Message:   fmt.Sprintf("drawdown %s against limit %s", pct(dd), pct(g.limits.MaxDrawdown)),
	}
}

func (g *Gate) dailyLossAlert(view types.PortfolioView, returns []decimal.Decimal) *types.RiskAlert {
	if len(returns) == 0 {
		return nil
	}
	last := returns[len(returns)-1]
	if !last.IsNegative() {
		return nil
	}
	loss := last.Neg()
	sev := g.severity(loss, g.limits.MaxDailyLoss, types.SeverityCritical, types.SeverityWarning)
	if sev == "" {
		return nil
	}
	return &types.RiskAlert{
		Severity:  sev,
		Metric:    types.MetricDailyLoss,
		Value:     loss,
		Threshold: g.limits.MaxDailyLoss,
		Symbols:   view.Symbols(),
		Message:   fmt.Sprintf("daily loss %s against limit %s", pct(loss), pct(g.limits.MaxDailyLoss)),
	}
}

func (g *Gate) varAlert(view types.PortfolioView, returns []decimal.Decimal) *types.RiskAlert {
	if len(returns) == 0 {
		return nil
	}
	window := returns
	if len(window) > g.thresholds.VaRLookback {
		window = window[len(window)-g.thresholds.VaRLookback:]
	}
	value := view.TotalValue()
	if !value.IsPositive() {
		return nil
	}
	v, err := ValueAtRisk(window, value, g.limits.VaRConfidence)
	if err != nil {
		return nil
	}
	lossPct := v.Return.Neg()
	sev := g.severity(lossPct, g.limits.MaxVaRPct, types.SeverityWarning, types.SeverityInfo)
	if sev == "" {
		return nil
	}
	return &types.RiskAlert{
		Severity:      sev,
		Metric:        types.MetricVaR,
		Value:         lossPct,
		Threshold:     g.limits.MaxVaRPct,
		Symbols:       view.Symbols(),
		LowConfidence: v.LowConfidence,
		Message: fmt.Sprintf("%s VaR %s (%s of value) against limit %s",
			pct(g.limits.VaRConfidence), v.Value.StringFixed(2), pct(lossPct), pct(g.limits.MaxVaRPct)),
	}
}

func (g *Gate) concentrationAlert(view types.PortfolioView, sectors types.SectorMap) *types.RiskAlert {
	c := g.Concentration(view, sectors)
	var sev types.Severity
	switch c.RiskLevel {
	case types.RiskLevelHigh:
		sev = types.SeverityWarning
	case types.RiskLevelMedium:
		sev = types.SeverityInfo
	default:
		return nil
	}
	return &types.RiskAlert{
		Severity:  sev,
		Metric:    types.MetricConcentration,
		Value:     c.MaxPositionPct,
		Threshold: g.limits.MaxPositionWeight,
		Symbols:   c.Breaches,
		Message: fmt.Sprintf("largest position %s at %s, top 5 at %s",
			c.LargestSymbol, pct(c.MaxPositionPct), pct(c.Top5Pct)),
	}
}

// SuggestMitigation maps an alert to the actions a trader would take.
func SuggestMitigation(alert types.RiskAlert) []string {
	switch alert.Metric {
	case types.MetricDrawdown:
		actions := []string{
			"reduce gross exposure",
			"tighten stop-loss levels on open positions",
		}
		if alert.Severity == types.SeverityCritical {
			actions = append(actions, "suspend new entries until drawdown recovers")
		}
		return actions
	case types.MetricDailyLoss:
		return []string{
			"halt new entries for the rest of the day",
			"review positions with the largest losses",
		}
	case types.MetricVaR:
		return []string{
			"reduce position sizes",
			"diversify into lower-correlation holdings",
		}
	case types.MetricConcentration:
		actions := []string{"rebalance toward target weights"}
		if len(alert.Symbols) > 0 {
			actions = append(actions, fmt.Sprintf("trim %v", alert.Symbols))
		}
		return actions
	}
	return nil
}
