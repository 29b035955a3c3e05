package risk

import "github.com/shopspring/decimal"

// MaxDrawdown returns the largest peak-to-trough decline of the series as a
// fraction of the running peak.
func MaxDrawdown(values []decimal.Decimal) decimal.Decimal {
	var t DrawdownTracker
	for _, v := range values {
		t.Observe(v)
	}
	return t.Max()
}

// DrawdownTracker keeps the running peak so drawdown can be updated one value
// at a time without replaying history.
type DrawdownTracker struct {
	peak    decimal.Decimal
	maxDD   decimal.Decimal
	current decimal.Decimal
	seen    bool
}

func NewDrawdownTracker(start decimal.Decimal) *DrawdownTracker {
	t := &DrawdownTracker{}
	t.Observe(start)
	return t
}

// Observe records the next value and returns the drawdown at that value and
// the maximum drawdown so far.
func (t *DrawdownTracker) Observe(v decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if !t.seen || v.GreaterThan(t.peak) {
		t.peak = v
		t.seen = true
	}
	t.current = decimal.Zero
	if t.peak.IsPositive() {
		t.current = t.peak.Sub(v).Div(t.peak)
	}
	if t.current.GreaterThan(t.maxDD) {
		t.maxDD = t.current
	}
	return t.current, t.maxDD
}

func (t *DrawdownTracker) Peak() decimal.Decimal {
	return t.peak
}

func (t *DrawdownTracker) Current() decimal.Decimal {
	return t.current
}

func (t *DrawdownTracker) Max() decimal.Decimal {
	return t.maxDD
}

// pathFromReturns rebuilds a value path that starts at 1 from a return series.
func pathFromReturns(returns []decimal.Decimal) []decimal.Decimal {
	path := make([]decimal.Decimal, 0, len(returns)+1)
	v := one
	path = append(path, v)
	for _, r := range returns {
		v = v.Mul(one.Add(r)).Round(16)
		path = append(path, v)
	}
	return path
}
