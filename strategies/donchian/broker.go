package donchian

import (
	"portfoliosim/internal/engine"

	"github.com/shopspring/decimal"
)

var _ engine.CommissionModel = IBKRFixed{}

// IBKRFixed is a percentage-of-value commission with a per-order floor and an
// optional cap, the shape of IBKR "Fixed" pricing. A zero Max means no cap.
type IBKRFixed struct {
	Rate decimal.Decimal
	Min  decimal.Decimal
	Max  decimal.Decimal
}

// NewIBKRNetherlands is IBKR Fixed SmartRouting for USD-denominated
// Netherlands stocks:
//   - 0.05% of trade value
//   - Minimum per order: USD 1.70
//   - Maximum per order: USD 39.00
func NewIBKRNetherlands() IBKRFixed {
	return IBKRFixed{
		Rate: decimal.RequireFromString("0.0005"),
		Min:  decimal.RequireFromString("1.70"),
		Max:  decimal.RequireFromString("39"),
	}
}

// NewIBKRForexTier1 is 0.20 basis points with a USD 2.00 minimum and no cap.
func NewIBKRForexTier1() IBKRFixed {
	return IBKRFixed{
		Rate: decimal.RequireFromString("0.00002"),
		Min:  decimal.RequireFromString("2.00"),
	}
}

func (f IBKRFixed) Commission(tradeValue decimal.Decimal) decimal.Decimal {
	if tradeValue.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	fee := tradeValue.Mul(f.Rate)
	if fee.LessThan(f.Min) {
		fee = f.Min
	}
	if f.Max.IsPositive() && fee.GreaterThan(f.Max) {
		fee = f.Max
	}
	return fee
}
