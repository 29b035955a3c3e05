package engine

import (
	"fmt"
	"sync"
	"time"

	"portfoliosim/internal/id"
	"portfoliosim/types"

	"github.com/shopspring/decimal"
)

// Portfolio is the cash and position ledger of a single simulated account.
// Value and P&L are always derived from cash, positions and last prices.
type Portfolio struct {
	mu sync.RWMutex

	id             string
	cash           decimal.Decimal
	initialCapital decimal.Decimal
	positions      map[string]*Position
	trades         []types.Trade
	ids            *id.Generator
}

type Position struct {
	Symbol    string
	Quantity  decimal.Decimal
	AvgCost   decimal.Decimal
	LastPrice decimal.Decimal
}

func NewPortfolio(portfolioID string, initialCapital decimal.Decimal) (*Portfolio, error) {
	if !initialCapital.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidCapital, initialCapital)
	}
	return &Portfolio{
		id:             portfolioID,
		cash:           initialCapital,
		initialCapital: initialCapital,
		positions:      make(map[string]*Position),
		ids:            id.NewGenerator(),
	}, nil
}

// ApplyTrade validates and books a single trade. On any error the portfolio is
// left exactly as it was.
func (p *Portfolio) ApplyTrade(
	t time.Time,
	symbol string,
	quantity, price decimal.Decimal,
	side types.Side,
	commission decimal.Decimal,
) (types.Trade, error) {
	if symbol == "" {
		return types.Trade{}, fmt.Errorf("%w: empty symbol", ErrInvalidTradeParameter)
	}
	if !quantity.IsPositive() {
		return types.Trade{}, fmt.Errorf("%w: quantity %s", ErrInvalidTradeParameter, quantity)
	}
	if !price.IsPositive() {
		return types.Trade{}, fmt.Errorf("%w: price %s", ErrInvalidTradeParameter, price)
	}
	if commission.IsNegative() {
		return types.Trade{}, fmt.Errorf("%w: commission %s", ErrInvalidTradeParameter, commission)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	notional := quantity.Mul(price)
	trade := types.Trade{
		Time:        t,
		Symbol:      symbol,
		Side:        side,
		Quantity:    quantity,
		Price:       price,
		Commission:  commission,
		RealizedPnL: decimal.Zero,
	}

	var pos *Position
	switch side {
	case types.SideTypeBuy:
		required := notional.Add(commission)
		if required.GreaterThan(p.cash) {
			return types.Trade{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientCash, required, p.cash)
		}
		trade.CashDelta = required.Neg()

	case types.SideTypeSell:
		pos = p.positions[symbol]
		held := decimal.Zero
		if pos != nil {
			held = pos.Quantity
		}
		if quantity.GreaterThan(held) {
			return types.Trade{}, fmt.Errorf("%w: sell %s %s, hold %s", ErrInsufficientShares, quantity, symbol, held)
		}
		proceeds := notional.Sub(commission)
		if p.cash.Add(proceeds).IsNegative() {
			return types.Trade{}, fmt.Errorf("%w: commission %s exceeds proceeds", ErrInsufficientCash, commission)
		}
		trade.CashDelta = proceeds
		trade.RealizedPnL = price.Sub(pos.AvgCost).Mul(quantity).Sub(commission)

	default:
		return types.Trade{}, fmt.Errorf("%w: %q", ErrUnknownSide, side)
	}

	tradeID, err := p.ids.At(t)
	if err != nil {
		return types.Trade{}, fmt.Errorf("%w: %v", ErrInvalidTradeParameter, err)
	}
	trade.ID = tradeID

	// Every check has passed; nothing below can fail.
	p.cash = p.cash.Add(trade.CashDelta)
	if side == types.SideTypeBuy {
		pos = p.positions[symbol]
		if pos == nil {
			pos = &Position{Symbol: symbol, Quantity: decimal.Zero, AvgCost: decimal.Zero}
			p.positions[symbol] = pos
		}
		pos.AvgCost = weightedAvg(pos.AvgCost, pos.Quantity, price, quantity)
		pos.Quantity = pos.Quantity.Add(quantity)
		if pos.LastPrice.IsZero() {
			pos.LastPrice = price
		}
	} else {
		pos.Quantity = pos.Quantity.Sub(quantity)
		if pos.Quantity.IsZero() {
			delete(p.positions, symbol)
		}
	}

	p.trades = append(p.trades, trade)
	return trade, nil
}

// UpdatePrices overwrites the last price of held symbols. Symbols that are not
// held and non-positive prices are ignored.
func (p *Portfolio) UpdatePrices(prices map[string]decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for sym, pos := range p.positions {
		price, ok := prices[sym]
		if !ok || !price.IsPositive() {
			continue
		}
		pos.LastPrice = price
	}
}

func (p *Portfolio) SnapshotValue() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.valueLocked()
}

func (p *Portfolio) valueLocked() decimal.Decimal {
	value := p.cash
	for _, pos := range p.positions {
		value = value.Add(pos.Quantity.Mul(pos.LastPrice))
	}
	return value
}

// MarketValue is quantity times last price of a held symbol, zero otherwise.
func (p *Portfolio) MarketValue(symbol string) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pos, ok := p.positions[symbol]
	if !ok {
		return decimal.Zero
	}
	return pos.Quantity.Mul(pos.LastPrice)
}

func (p *Portfolio) UnrealizedPnL() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pnl := decimal.Zero
	for _, pos := range p.positions {
		pnl = pnl.Add(pos.LastPrice.Sub(pos.AvgCost).Mul(pos.Quantity))
	}
	return pnl
}

// View returns a point-in-time copy that risk checks and reports can read
// without holding the ledger lock.
func (p *Portfolio) View(curTime time.Time) types.PortfolioView {
	p.mu.RLock()
	defer p.mu.RUnlock()

	view := types.PortfolioView{
		ID:             p.id,
		Cash:           p.cash,
		InitialCapital: p.initialCapital,
		Positions:      make(map[string]types.PositionSnapshot, len(p.positions)),
		Time:           curTime,
	}
	for sym, pos := range p.positions {
		view.Positions[sym] = types.PositionSnapshot{
			Symbol:    pos.Symbol,
			Quantity:  pos.Quantity,
			AvgCost:   pos.AvgCost,
			LastPrice: pos.LastPrice,
		}
	}
	return view
}

func (p *Portfolio) Position(symbol string) (Position, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pos, ok := p.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

func (p *Portfolio) Trades() []types.Trade {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]types.Trade(nil), p.trades...)
}

func (p *Portfolio) Cash() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cash
}

func (p *Portfolio) ID() string {
	return p.id
}

func (p *Portfolio) InitialCapital() decimal.Decimal {
	return p.initialCapital
}

func weightedAvg(existingAvgPrice, existingQty, newPrice, newQty decimal.Decimal) decimal.Decimal {
	if existingQty.IsZero() {
		return newPrice
	}
	if newQty.IsZero() {
		return existingAvgPrice
	}
	return existingAvgPrice.Mul(existingQty).
		Add(newPrice.Mul(newQty)).
		Div(existingQty.Add(newQty))
}
