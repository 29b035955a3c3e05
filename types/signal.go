package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal is a per-symbol recommendation produced outside the simulator. Score and
// Confidence are only used for ranking and filtering.
type Signal struct {
	Symbol     string
	Action     Action
	Score      decimal.Decimal
	Confidence decimal.Decimal
	Date       time.Time
}

func NewSignal(
	symbol string,
	action Action,
	score decimal.Decimal,
	confidence decimal.Decimal,
	date time.Time,
) Signal {
	return Signal{
		Symbol:     symbol,
		Action:     action,
		Score:      score,
		Confidence: confidence,
		Date:       date,
	}
}
