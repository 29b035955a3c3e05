package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an immutable ledger record. CashDelta is negative for buys.
type Trade struct {
	ID          string          `json:"id"`
	Time        time.Time       `json:"time"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Commission  decimal.Decimal `json:"commission"`
	CashDelta   decimal.Decimal `json:"cashDelta"`
	RealizedPnL decimal.Decimal `json:"realizedPnl"`
}

// Notional is quantity times price, excluding commission.
func (t Trade) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}
