package risk

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// MinReliableObservations is the sample size below which a historical VaR is
// flagged as low confidence.
const MinReliableObservations = 20

type VaR struct {
	// Value is the loss threshold in currency units, positive for a loss.
	Value decimal.Decimal
	// Return is the historical return the threshold was read from.
	Return        decimal.Decimal
	Index         int
	Observations  int
	LowConfidence bool
}

// ValueAtRisk is the historical-simulation VaR: returns are sorted ascending and
// the loss is read at index floor((1-confidence)*n).
func ValueAtRisk(returns []decimal.Decimal, value, confidence decimal.Decimal) (VaR, error) {
	sorted, k, err := tail(returns, confidence)
	if err != nil {
		return VaR{}, err
	}
	return VaR{
		Value:         sorted[k].Neg().Mul(value),
		Return:        sorted[k],
		Index:         k,
		Observations:  len(sorted),
		LowConfidence: len(sorted) < MinReliableObservations,
	}, nil
}

// ConditionalVaR is the expected loss in the tail at or beyond the VaR index.
func ConditionalVaR(returns []decimal.Decimal, value, confidence decimal.Decimal) (VaR, error) {
	sorted, k, err := tail(returns, confidence)
	if err != nil {
		return VaR{}, err
	}
	mean := decimal.Avg(sorted[0], sorted[1:k+1]...)
	return VaR{
		Value:         mean.Neg().Mul(value),
		Return:        mean,
		Index:         k,
		Observations:  len(sorted),
		LowConfidence: len(sorted) < MinReliableObservations,
	}, nil
}

func tail(returns []decimal.Decimal, confidence decimal.Decimal) ([]decimal.Decimal, int, error) {
	if len(returns) == 0 {
		return nil, 0, fmt.Errorf("%w: value at risk needs at least one return", ErrInsufficientHistory)
	}
	if !confidence.IsPositive() || !confidence.LessThan(one) {
		return nil, 0, fmt.Errorf("%w: got %s", ErrInvalidConfidence, confidence)
	}

	sorted := append([]decimal.Decimal(nil), returns...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	n := len(sorted)
	k := int(one.Sub(confidence).Mul(decimal.NewFromInt(int64(n))).Floor().IntPart())
	if k > n-1 {
		k = n - 1
	}
	return sorted, k, nil
}
