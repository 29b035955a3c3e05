// Package feed provides in-memory price and signal sources, loadable from CSV.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"portfoliosim/types"

	"github.com/shopspring/decimal"
)

var (
	ErrNoData    = errors.New("no data for date")
	ErrBadRecord = errors.New("malformed record")
)

func dayKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StaticPrices serves closes from memory, keyed by calendar day.
type StaticPrices struct {
	byDate map[time.Time]map[string]decimal.Decimal
	// strict makes a day with no closes an error instead of an empty map.
	strict bool
}

type PricesOption func(*StaticPrices)

// Strict makes GetPrices fail with ErrNoData for days with no closes.
func Strict() PricesOption {
	return func(p *StaticPrices) {
		p.strict = true
	}
}

func NewStaticPrices(opts ...PricesOption) *StaticPrices {
	p := &StaticPrices{byDate: make(map[time.Time]map[string]decimal.Decimal)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *StaticPrices) Set(date time.Time, symbol string, price decimal.Decimal) {
	key := dayKey(date)
	day := p.byDate[key]
	if day == nil {
		day = make(map[string]decimal.Decimal)
		p.byDate[key] = day
	}
	day[symbol] = price
}

func (p *StaticPrices) GetPrices(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	day := p.byDate[dayKey(date)]
	if len(day) == 0 && p.strict {
		return nil, fmt.Errorf("%w: prices %s", ErrNoData, date.Format(time.DateOnly))
	}
	out := make(map[string]decimal.Decimal, len(day))
	for sym, px := range day {
		out[sym] = px
	}
	return out, nil
}

// Dates lists every day with at least one close, ascending.
func (p *StaticPrices) Dates() []time.Time {
	out := make([]time.Time, 0, len(p.byDate))
	for d := range p.byDate {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// StaticSignals serves signals from memory, keyed by calendar day. A day with
// no entry yields an empty list.
type StaticSignals struct {
	byDate map[time.Time][]types.Signal
}

func NewStaticSignals() *StaticSignals {
	return &StaticSignals{byDate: make(map[time.Time][]types.Signal)}
}

func (s *StaticSignals) Add(sig types.Signal) {
	key := dayKey(sig.Date)
	s.byDate[key] = append(s.byDate[key], sig)
}

func (s *StaticSignals) GetSignals(ctx context.Context, date time.Time) ([]types.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]types.Signal(nil), s.byDate[dayKey(date)]...), nil
}
