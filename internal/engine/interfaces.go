package engine

import (
	"context"
	"time"

	"portfoliosim/types"

	"github.com/shopspring/decimal"
)

// PriceSource returns the closing price of every symbol that traded on date.
type PriceSource interface {
	GetPrices(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error)
}

// SignalSource returns the signals published for date.
type SignalSource interface {
	GetSignals(ctx context.Context, date time.Time) ([]types.Signal, error)
}

// CommissionModel prices a single fill from its notional value.
type CommissionModel interface {
	Commission(notional decimal.Decimal) decimal.Decimal
}

type PriceSourceFunc func(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error)

func (f PriceSourceFunc) GetPrices(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error) {
	return f(ctx, date)
}

type SignalSourceFunc func(ctx context.Context, date time.Time) ([]types.Signal, error)

func (f SignalSourceFunc) GetSignals(ctx context.Context, date time.Time) ([]types.Signal, error) {
	return f(ctx, date)
}

type CommissionFunc func(notional decimal.Decimal) decimal.Decimal

func (f CommissionFunc) Commission(notional decimal.Decimal) decimal.Decimal {
	return f(notional)
}

// ZeroCommission charges nothing.
var ZeroCommission = CommissionFunc(func(decimal.Decimal) decimal.Decimal { return decimal.Zero })

// FlatCommission charges the same fee on every fill.
func FlatCommission(fee decimal.Decimal) CommissionModel {
	return CommissionFunc(func(notional decimal.Decimal) decimal.Decimal {
		if !notional.IsPositive() {
			return decimal.Zero
		}
		return fee
	})
}
