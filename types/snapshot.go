package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailySnapshot is appended once per simulated trading day.
type DailySnapshot struct {
	Date        time.Time       `json:"date"`
	Value       decimal.Decimal `json:"value"`
	Cash        decimal.Decimal `json:"cash"`
	DailyReturn decimal.Decimal `json:"dailyReturn"`
	Drawdown    decimal.Decimal `json:"drawdown"`
	TradeCount  int             `json:"tradeCount"`
}
