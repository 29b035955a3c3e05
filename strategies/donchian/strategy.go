package donchian

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"portfoliosim/internal/engine"
	"portfoliosim/types"

	"github.com/shopspring/decimal"
)

// SignalSource is a daily Donchian channel breakout model. A close above the
// highest close of the preceding lookback days is a BUY, a close below the
// lowest is a SELL, anything in between is a HOLD.
//
// Closes are fetched from the price source as dates are requested and cached,
// so one SignalSource can serve concurrent sessions over the same calendar.
type SignalSource struct {
	prices   engine.PriceSource
	lookback int

	mu      sync.Mutex
	closes  map[time.Time]map[string]decimal.Decimal
	signals map[time.Time][]types.Signal
}

func NewSignalSource(prices engine.PriceSource, lookback int) (*SignalSource, error) {
	if lookback < 2 {
		return nil, fmt.Errorf("donchian lookback must be at least 2, got %d", lookback)
	}
	return &SignalSource{
		prices:   prices,
		lookback: lookback,
		closes:   make(map[time.Time]map[string]decimal.Decimal),
		signals:  make(map[time.Time][]types.Signal),
	}, nil
}

// Prime loads closes for dates before a session starts so the channel is
// complete on the first simulated day.
func (s *SignalSource) Prime(ctx context.Context, dates ...time.Time) error {
	for _, d := range dates {
		if _, err := s.load(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (s *SignalSource) load(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error) {
	date = dayOf(date)
	s.mu.Lock()
	day, ok := s.closes[date]
	s.mu.Unlock()
	if ok {
		return day, nil
	}

	day, err := s.prices.GetPrices(ctx, date)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.closes[date] = day
	s.mu.Unlock()
	return day, nil
}

func (s *SignalSource) GetSignals(ctx context.Context, date time.Time) ([]types.Signal, error) {
	date = dayOf(date)
	s.mu.Lock()
	cached, ok := s.signals[date]
	s.mu.Unlock()
	if ok {
		return append([]types.Signal(nil), cached...), nil
	}

	today, err := s.load(ctx, date)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	symbols := make([]string, 0, len(today))
	for sym := range today {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	signals := make([]types.Signal, 0, len(symbols))
	for _, sym := range symbols {
		hist := s.historyLocked(sym, date)
		signals = append(signals, s.evaluate(sym, today[sym], hist, date))
	}
	s.signals[date] = signals
	return append([]types.Signal(nil), signals...), nil
}

// historyLocked returns up to lookback closes of symbol strictly before date.
func (s *SignalSource) historyLocked(symbol string, date time.Time) []decimal.Decimal {
	dates := make([]time.Time, 0, len(s.closes))
	for d := range s.closes {
		if d.Before(date) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var hist []decimal.Decimal
	for i := len(dates) - 1; i >= 0 && len(hist) < s.lookback; i-- {
		if px, ok := s.closes[dates[i]][symbol]; ok {
			hist = append(hist, px)
		}
	}
	return hist
}

func (s *SignalSource) evaluate(symbol string, last decimal.Decimal, hist []decimal.Decimal, date time.Time) types.Signal {
	confidence := decimal.NewFromInt(int64(len(hist))).Div(decimal.NewFromInt(int64(s.lookback)))
	if len(hist) < 2 {
		return types.NewSignal(symbol, types.ActionHold, decimal.Zero, confidence, date)
	}

	highest, lowest := donchianHighLow(hist)
	width := highest.Sub(lowest)
	score := func(level decimal.Decimal) decimal.Decimal {
		if width.IsZero() {
			return decimal.Zero
		}
		return last.Sub(level).Div(width)
	}

	switch {
	case last.GreaterThan(highest):
		return types.NewSignal(symbol, types.ActionBuy, score(highest), confidence, date)
	case last.LessThan(lowest):
		return types.NewSignal(symbol, types.ActionSell, score(lowest), confidence, date)
	default:
		// Position inside the channel, 0 at the low and 1 at the high.
		return types.NewSignal(symbol, types.ActionHold, score(lowest), confidence, date)
	}
}

var _ engine.SignalSource = (*SignalSource)(nil)

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Utility: Donchian Channel High/Low
func donchianHighLow(closes []decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if len(closes) == 0 {
		return decimal.Zero, decimal.Zero
	}
	return decimal.Max(closes[0], closes[1:]...), decimal.Min(closes[0], closes[1:]...)
}
