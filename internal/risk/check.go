package risk

import (
	"fmt"

	"portfoliosim/types"

	"github.com/shopspring/decimal"
)

const (
	CodePositionWeight = "POSITION_WEIGHT"
	CodeSectorWeight   = "SECTOR_WEIGHT"
	CodeNoValue        = "NO_PORTFOLIO_VALUE"
)

// Candidate is a trade the caller would like to place.
type Candidate struct {
	Symbol     string
	Side       types.Side
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Commission decimal.Decimal
}

type Violation struct {
	Code string
	Msg  string
}

// TradeCheck is the verdict on a candidate. When the candidate is accepted
// SuggestedQuantity equals the requested quantity.
type TradeCheck struct {
	Accepted          bool
	Violations        []Violation
	SuggestedQuantity decimal.Decimal

	PositionWeight decimal.Decimal
	SectorWeight   decimal.Decimal
}

func (c *TradeCheck) add(code, msg string) {
	c.Violations = append(c.Violations, Violation{Code: code, Msg: msg})
	c.Accepted = false
}

// CheckTrade computes the position and sector weights the portfolio would have
// after the candidate and compares them with the limits. The traded symbol is
// valued at the candidate price, and the commission is taken out of the
// post-trade value.
func (g *Gate) CheckTrade(view types.PortfolioView, c Candidate, sectors types.SectorMap) TradeCheck {
	check := TradeCheck{Accepted: true, SuggestedQuantity: c.Quantity}

	held := decimal.Zero
	if pos, ok := view.Positions[c.Symbol]; ok {
		held = pos.Quantity
	}

	sector := sectors.SectorOf(c.Symbol)
	value := view.Cash
	sectorValue := decimal.Zero
	for sym, pos := range view.Positions {
		mv := pos.MarketValue()
		if sym == c.Symbol {
			mv = pos.Quantity.Mul(c.Price)
		}
		value = value.Add(mv)
		if sector != types.UnknownSector && sectors.SectorOf(sym) == sector {
			sectorValue = sectorValue.Add(mv)
		}
	}
	postValue := value.Sub(c.Commission)

	if c.Side == types.SideTypeSell {
		if postValue.IsPositive() {
			remaining := decimal.Max(held.Sub(c.Quantity), decimal.Zero)
			check.PositionWeight = remaining.Mul(c.Price).Div(postValue)
		}
		return check
	}

	if !postValue.IsPositive() || !c.Price.IsPositive() {
		check.add(CodeNoValue, fmt.Sprintf("portfolio value %s leaves no room for %s", postValue, c.Symbol))
		check.SuggestedQuantity = decimal.Zero
		return check
	}

	notional := c.Quantity.Mul(c.Price)
	check.PositionWeight = held.Add(c.Quantity).Mul(c.Price).Div(postValue)
	maxQty := g.limits.MaxPositionWeight.Mul(postValue).Div(c.Price).Sub(held)

	if check.PositionWeight.GreaterThan(g.limits.MaxPositionWeight) {
		check.add(CodePositionWeight, fmt.Sprintf("%s weight %s exceeds max %s",
			c.Symbol, pct(check.PositionWeight), pct(g.limits.MaxPositionWeight)))
	}

	if sector != types.UnknownSector {
		check.SectorWeight = sectorValue.Add(notional).Div(postValue)
		sectorQty := g.limits.MaxSectorWeight.Mul(postValue).Sub(sectorValue).Div(c.Price)
		maxQty = decimal.Min(maxQty, sectorQty)

		if check.SectorWeight.GreaterThan(g.limits.MaxSectorWeight) {
			check.add(CodeSectorWeight, fmt.Sprintf("sector %s weight %s exceeds max %s",
				sector, pct(check.SectorWeight), pct(g.limits.MaxSectorWeight)))
		}
	}

	if !check.Accepted {
		suggested := maxQty.RoundDown(g.quantityPlaces)
		if suggested.IsNegative() {
			suggested = decimal.Zero
		}
		check.SuggestedQuantity = decimal.Min(suggested, c.Quantity)
	}
	return check
}

// Enforce is CheckTrade for callers that do not want quantities reduced
// automatically: any violation is returned as ErrRiskLimitExceeded.
func (g *Gate) Enforce(view types.PortfolioView, c Candidate, sectors types.SectorMap) error {
	check := g.CheckTrade(view, c, sectors)
	if check.Accepted {
		return nil
	}
	v := check.Violations[0]
	return fmt.Errorf("%w: %s %s %s: %s", ErrRiskLimitExceeded, c.Side, c.Quantity, c.Symbol, v.Msg)
}

func pct(d decimal.Decimal) string {
	return d.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}
