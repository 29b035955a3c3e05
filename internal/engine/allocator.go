package engine

import (
	"sort"

	"portfoliosim/internal/risk"
	"portfoliosim/types"

	"github.com/shopspring/decimal"
)

// longOnlyAllocator turns a day's signals into candidate trades. It never
// shorts and never adds to an existing position.
type longOnlyAllocator struct {
	cfg *SimulationConfig
}

func newLongOnlyAllocator(cfg *SimulationConfig) *longOnlyAllocator {
	return &longOnlyAllocator{cfg: cfg}
}

// signalsBySymbol drops symbols that received more than one signal on the same
// day; a conflicting double signal is treated as no signal.
func signalsBySymbol(signals []types.Signal) map[string]types.Signal {
	counts := make(map[string]int, len(signals))
	for _, sig := range signals {
		counts[sig.Symbol]++
	}
	out := make(map[string]types.Signal, len(signals))
	for _, sig := range signals {
		if counts[sig.Symbol] == 1 {
			out[sig.Symbol] = sig
		}
	}
	return out
}

// Sells liquidates held symbols whose signal turned to SELL, degraded below the
// exit thresholds or disappeared from a non-empty signal list.
func (a *longOnlyAllocator) Sells(signals []types.Signal, view types.PortfolioView) []risk.Candidate {
	if len(signals) == 0 {
		return nil
	}
	bySymbol := signalsBySymbol(signals)

	var out []risk.Candidate
	for _, sym := range view.Symbols() {
		pos := view.Positions[sym]
		sig, ok := bySymbol[sym]
		if ok && !a.shouldExit(sig) {
			continue
		}
		// Repeated signals for a held symbol keep it.
		if !ok && a.repeated(signals, sym) {
			continue
		}
		out = append(out, risk.Candidate{
			Symbol:     sym,
			Side:       types.SideTypeSell,
			Quantity:   pos.Quantity,
			Price:      pos.LastPrice,
			Commission: a.cfg.commission(pos.Quantity.Mul(pos.LastPrice)),
		})
	}
	return out
}

func (a *longOnlyAllocator) repeated(signals []types.Signal, symbol string) bool {
	for _, sig := range signals {
		if sig.Symbol == symbol {
			return true
		}
	}
	return false
}

func (a *longOnlyAllocator) shouldExit(sig types.Signal) bool {
	return sig.Action == types.ActionSell ||
		sig.Score.LessThan(a.cfg.ExitScore) ||
		sig.Confidence.LessThan(a.cfg.MinConfidence)
}

func (a *longOnlyAllocator) qualifies(sig types.Signal, view types.PortfolioView, prices map[string]decimal.Decimal) bool {
	if sig.Action != types.ActionBuy {
		return false
	}
	if sig.Confidence.LessThan(a.cfg.MinConfidence) || sig.Score.LessThan(a.cfg.EntryScore) {
		return false
	}
	if _, held := view.Positions[sig.Symbol]; held {
		return false
	}
	price, ok := prices[sig.Symbol]
	return ok && price.IsPositive()
}

// Buys sizes new positions out of deployable cash. The view must already
// reflect the day's sells.
func (a *longOnlyAllocator) Buys(signals []types.Signal, view types.PortfolioView, prices map[string]decimal.Decimal) []risk.Candidate {
	bySymbol := signalsBySymbol(signals)

	picks := make([]types.Signal, 0, len(bySymbol))
	for _, sig := range bySymbol {
		if a.qualifies(sig, view, prices) {
			picks = append(picks, sig)
		}
	}
	sort.Slice(picks, func(i, j int) bool {
		if !picks[i].Score.Equal(picks[j].Score) {
			return picks[i].Score.GreaterThan(picks[j].Score)
		}
		return picks[i].Symbol < picks[j].Symbol
	})

	slots := len(picks)
	if a.cfg.MaxPositions > 0 {
		slots = a.cfg.MaxPositions - len(view.Positions)
	}
	if slots <= 0 || len(picks) == 0 {
		return nil
	}
	if len(picks) > slots {
		picks = picks[:slots]
	}

	deployable := view.Cash.Sub(a.cfg.CashReserve.Mul(view.TotalValue()))
	if !deployable.IsPositive() {
		return nil
	}

	allocations := a.weights(picks, deployable)
	out := make([]risk.Candidate, 0, len(picks))
	for i, sig := range picks {
		price := prices[sig.Symbol]
		qty := getQuantityForPrice(price, allocations[i], a.cfg.commission)
		if qty.IsZero() {
			continue
		}
		out = append(out, risk.Candidate{
			Symbol:     sig.Symbol,
			Side:       types.SideTypeBuy,
			Quantity:   qty,
			Price:      price,
			Commission: a.cfg.commission(qty.Mul(price)),
		})
	}
	return out
}

func (a *longOnlyAllocator) weights(picks []types.Signal, deployable decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(picks))
	if a.cfg.Weighting == WeightScore {
		total := decimal.Zero
		for _, sig := range picks {
			if sig.Score.IsPositive() {
				total = total.Add(sig.Score)
			}
		}
		if total.IsPositive() {
			for i, sig := range picks {
				out[i] = decimal.Zero
				if sig.Score.IsPositive() {
					out[i] = deployable.Mul(sig.Score).Div(total)
				}
			}
			return out
		}
	}
	each := deployable.Div(decimal.NewFromInt(int64(len(picks))))
	for i := range out {
		out[i] = each
	}
	return out
}

// getQuantityForPrice is the largest whole-share quantity whose cost including
// commission fits in capitalToUse.
func getQuantityForPrice(stockPrice, capitalToUse decimal.Decimal, commission func(decimal.Decimal) decimal.Decimal) decimal.Decimal {
	if !stockPrice.IsPositive() || !capitalToUse.IsPositive() {
		return decimal.Zero
	}
	qty := capitalToUse.Div(stockPrice).Floor()
	for qty.IsPositive() && qty.Mul(stockPrice).Add(commission(qty.Mul(stockPrice))).GreaterThan(capitalToUse) {
		qty = qty.Sub(decimal.NewFromInt(1))
	}
	return qty
}
