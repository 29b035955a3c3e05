package engine

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"portfoliosim/internal/risk"
	"portfoliosim/types"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

const tradingDaysPerYear = 252

type Report struct {
	SessionID string              `json:"sessionId"`
	Label     string              `json:"label,omitempty"`
	Status    types.SessionStatus `json:"status"`
	Reason    string              `json:"reason,omitempty"`

	// Meta / period info
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	TradingDays int       `json:"tradingDays"`

	// Absolute performance
	InitialCapital decimal.Decimal `json:"initialCapital"`
	FinalValue     decimal.Decimal `json:"finalValue"`
	TotalReturn    decimal.Decimal `json:"totalReturn"`
	AnnualReturn   decimal.Decimal `json:"annualReturn"`

	// Risk-adjusted metrics
	Volatility  decimal.Decimal `json:"volatility"`
	SharpeRatio decimal.Decimal `json:"sharpeRatio"`
	MaxDrawdown decimal.Decimal `json:"maxDrawdown"`
	WinRate     decimal.Decimal `json:"winRate"`

	// Tail risk of the daily return series, at the session's VaR confidence
	VaR              decimal.Decimal `json:"var"`
	CVaR             decimal.Decimal `json:"cvar"`
	VaRLowConfidence bool            `json:"varLowConfidence,omitempty"`

	// Trade-level metrics
	TradeCount           int             `json:"tradeCount"`
	BuyCount             int             `json:"buyCount"`
	SellCount            int             `json:"sellCount"`
	TradeWinRate         decimal.Decimal `json:"tradeWinRate"`
	AvgWin               decimal.Decimal `json:"avgWin"`
	AvgLoss              decimal.Decimal `json:"avgLoss"`
	ProfitFactor         decimal.Decimal `json:"profitFactor"`
	MaxConsecutiveLosses int             `json:"maxConsecutiveLosses"`
	RealizedPnL          decimal.Decimal `json:"realizedPnl"`

	// Costs
	TotalCommission decimal.Decimal `json:"totalCommission"`

	Alerts int `json:"alerts"`
}

// Summarize reduces a session's history into its performance report. It does
// not modify the session. A running session is summarized up to its last
// closed day; trades booked on a day without a snapshot are left out.
func Summarize(session *Session, riskFreeRate decimal.Decimal) (*Report, error) {
	snapshots := session.Snapshots()
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("%w: session %s", ErrEmptyHistory, session.ID())
	}
	trades := tradesThrough(session.Trades(), snapshots[len(snapshots)-1].Date)
	params := session.Params()
	initial := params.InitialCapital
	final := snapshots[len(snapshots)-1].Value

	returns := make([]decimal.Decimal, len(snapshots))
	for i, snap := range snapshots {
		returns[i] = snap.DailyReturn
	}

	report := &Report{
		SessionID:      session.ID(),
		Label:          params.Label,
		Status:         session.Status(),
		Reason:         session.Reason(),
		StartDate:      snapshots[0].Date,
		EndDate:        snapshots[len(snapshots)-1].Date,
		TradingDays:    len(snapshots),
		InitialCapital: initial,
		FinalValue:     final,
		Alerts:         len(session.Alerts()),
	}

	var wg sync.WaitGroup
	wg.Add(6)
	go func() {
		report.TotalReturn, report.AnnualReturn = calcReturns(initial, final, len(snapshots), &wg)
	}()
	go func() {
		report.Volatility, report.SharpeRatio = calcVolatilityAndSharpe(returns, riskFreeRate, &wg)
	}()
	go func() {
		report.MaxDrawdown = calcMaxDrawdown(initial, snapshots, &wg)
	}()
	go func() {
		report.WinRate = calcWinRate(returns, &wg)
	}()
	go func() {
		report.VaR, report.CVaR, report.VaRLowConfidence = calcTailRisk(returns, final, params.Limits.VaRConfidence, &wg)
	}()
	go func() {
		calcTradeStats(trades, report, &wg)
	}()
	wg.Wait()

	return report, nil
}

// tradesThrough cuts the date-ordered trade log after the last trade on or
// before date.
func tradesThrough(trades []types.Trade, date time.Time) []types.Trade {
	n := sort.Search(len(trades), func(i int) bool { return trades[i].Time.After(date) })
	return trades[:n]
}

func calcReturns(initial, final decimal.Decimal, days int, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal) {
	defer wg.Done()
	if !initial.IsPositive() || days == 0 {
		return decimal.Zero, decimal.Zero
	}
	total := final.Div(initial).Sub(decimal.NewFromInt(1))

	growth := 1 + total.InexactFloat64()
	if growth <= 0 {
		return total, decimal.NewFromInt(-1)
	}
	annual := math.Pow(growth, float64(tradingDaysPerYear)/float64(days)) - 1
	return total, decimal.NewFromFloat(annual)
}

func calcVolatilityAndSharpe(returns []decimal.Decimal, annualRiskFree decimal.Decimal, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal) {
	defer wg.Done()
	if len(returns) < 2 {
		return decimal.Zero, decimal.Zero
	}

	xs := make([]float64, len(returns))
	for i, r := range returns {
		xs[i] = r.InexactFloat64()
	}
	mean := stat.Mean(xs, nil)
	std := stat.StdDev(xs, nil)
	vol := std * math.Sqrt(tradingDaysPerYear)
	if vol == 0 {
		return decimal.Zero, decimal.Zero
	}

	sharpe := (mean*tradingDaysPerYear - annualRiskFree.InexactFloat64()) / vol
	return decimal.NewFromFloat(vol), decimal.NewFromFloat(sharpe)
}

// calcMaxDrawdown measures from the initial capital so a first-day loss counts.
func calcMaxDrawdown(initial decimal.Decimal, snapshots []types.DailySnapshot, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	values := make([]decimal.Decimal, 0, len(snapshots)+1)
	values = append(values, initial)
	for _, snap := range snapshots {
		values = append(values, snap.Value)
	}
	return risk.MaxDrawdown(values)
}

// calcWinRate is the share of up days among days that moved.
func calcWinRate(returns []decimal.Decimal, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	wins, moved := 0, 0
	for _, r := range returns {
		if r.IsZero() {
			continue
		}
		moved++
		if r.IsPositive() {
			wins++
		}
	}
	if moved == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(moved)))
}

func calcTailRisk(returns []decimal.Decimal, value, confidence decimal.Decimal, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal, bool) {
	defer wg.Done()
	v, err := risk.ValueAtRisk(returns, value, confidence)
	if err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	cvar, err := risk.ConditionalVaR(returns, value, confidence)
	if err != nil {
		return v.Value, decimal.Zero, v.LowConfidence
	}
	return v.Value, cvar.Value, v.LowConfidence
}

// calcTradeStats fills the trade-level fields. Only sells realize P&L, so the
// win/loss statistics are over closing trades.
func calcTradeStats(trades []types.Trade, report *Report, wg *sync.WaitGroup) {
	defer wg.Done()

	report.TradeCount = len(trades)
	report.TotalCommission = decimal.Zero
	report.RealizedPnL = decimal.Zero

	sumWins := decimal.Zero
	sumLosses := decimal.Zero // store absolute loss amounts
	winCount, lossCount := 0, 0
	currentStreak := 0

	for _, tr := range trades {
		report.TotalCommission = report.TotalCommission.Add(tr.Commission)

		if tr.Side == types.SideTypeBuy {
			report.BuyCount++
			continue
		}
		report.SellCount++
		report.RealizedPnL = report.RealizedPnL.Add(tr.RealizedPnL)

		switch {
		case tr.RealizedPnL.IsPositive():
			sumWins = sumWins.Add(tr.RealizedPnL)
			winCount++
			currentStreak = 0
		case tr.RealizedPnL.IsNegative():
			sumLosses = sumLosses.Add(tr.RealizedPnL.Abs())
			lossCount++
			currentStreak++
			if currentStreak > report.MaxConsecutiveLosses {
				report.MaxConsecutiveLosses = currentStreak
			}
		}
	}

	report.TradeWinRate = decimal.Zero
	report.AvgWin = decimal.Zero
	report.AvgLoss = decimal.Zero
	report.ProfitFactor = decimal.Zero
	if winCount+lossCount > 0 {
		report.TradeWinRate = decimal.NewFromInt(int64(winCount)).Div(decimal.NewFromInt(int64(winCount + lossCount)))
	}
	if winCount > 0 {
		report.AvgWin = sumWins.Div(decimal.NewFromInt(int64(winCount)))
	}
	if lossCount > 0 {
		report.AvgLoss = sumLosses.Div(decimal.NewFromInt(int64(lossCount)))
		report.ProfitFactor = sumWins.Div(sumLosses)
	}
}

func PrintReport(w io.Writer, report *Report) {
	fmt.Fprintln(w, "===== Simulation Report =====")
	fmt.Fprintf(w, "Session:               %s %s\n", report.SessionID, report.Label)
	fmt.Fprintf(w, "Status:                %s %s\n", report.Status, report.Reason)
	fmt.Fprintf(w, "Period:                %s - %s\n", report.StartDate.Format(time.DateOnly), report.EndDate.Format(time.DateOnly))
	fmt.Fprintf(w, "Trading Days:          %d\n", report.TradingDays)

	fmt.Fprintln(w, "\n-- Absolute Performance --")
	fmt.Fprintf(w, "Initial Capital:       %s\n", report.InitialCapital.StringFixed(2))
	fmt.Fprintf(w, "Final Value:           %s\n", report.FinalValue.StringFixed(2))
	fmt.Fprintf(w, "Total Return:          %s%%\n", percent(report.TotalReturn))
	fmt.Fprintf(w, "Annual Return:         %s%%\n", percent(report.AnnualReturn))

	fmt.Fprintln(w, "\n-- Risk-Adjusted Metrics --")
	fmt.Fprintf(w, "Volatility:            %s%%\n", percent(report.Volatility))
	fmt.Fprintf(w, "Sharpe Ratio:          %s\n", report.SharpeRatio.StringFixed(3))
	fmt.Fprintf(w, "Max Drawdown:          %s%%\n", percent(report.MaxDrawdown))
	fmt.Fprintf(w, "Win Rate (days):       %s%%\n", percent(report.WinRate))
	fmt.Fprintf(w, "VaR:                   %s\n", report.VaR.StringFixed(2))
	fmt.Fprintf(w, "CVaR:                  %s\n", report.CVaR.StringFixed(2))
	if report.VaRLowConfidence {
		fmt.Fprintln(w, "                       (fewer than 20 observations)")
	}

	fmt.Fprintln(w, "\n-- Trade-Level Metrics --")
	fmt.Fprintf(w, "Total Trades:          %d (%d buys, %d sells)\n", report.TradeCount, report.BuyCount, report.SellCount)
	fmt.Fprintf(w, "Win Rate (trades):     %s%%\n", percent(report.TradeWinRate))
	fmt.Fprintf(w, "Avg Win:               %s\n", report.AvgWin.StringFixed(2))
	fmt.Fprintf(w, "Avg Loss:              %s\n", report.AvgLoss.StringFixed(2))
	fmt.Fprintf(w, "Profit Factor:         %s\n", report.ProfitFactor.StringFixed(2))
	fmt.Fprintf(w, "Max Consecutive Losses:%d\n", report.MaxConsecutiveLosses)
	fmt.Fprintf(w, "Realized P&L:          %s\n", report.RealizedPnL.StringFixed(2))

	fmt.Fprintln(w, "\n-- Costs --")
	fmt.Fprintf(w, "Total Commission:      %s\n", report.TotalCommission.StringFixed(2))
	fmt.Fprintf(w, "Risk Alerts:           %d\n", report.Alerts)

	fmt.Fprintln(w, "=============================")
}

func percent(d decimal.Decimal) string {
	return d.Mul(decimal.NewFromInt(100)).StringFixed(2)
}
