package donchian

import (
	"context"
	"testing"
	"time"

	"portfoliosim/internal/engine"
	"portfoliosim/types"

	"github.com/shopspring/decimal"
)

func closesSource(closes map[time.Time]string, calls *int) engine.PriceSource {
	return engine.PriceSourceFunc(func(_ context.Context, date time.Time) (map[string]decimal.Decimal, error) {
		*calls++
		c, ok := closes[date]
		if !ok {
			return map[string]decimal.Decimal{}, nil
		}
		return map[string]decimal.Decimal{"ASML": decimal.RequireFromString(c)}, nil
	})
}

func day(n int) time.Time {
	return time.Date(2024, time.January, n, 0, 0, 0, 0, time.UTC)
}

func TestSignalSource_GetSignals(t *testing.T) {
	calls := 0
	closes := map[time.Time]string{
		day(1): "10", day(2): "11", day(3): "12", day(4): "13", day(5): "9", day(6): "12",
	}
	src, err := NewSignalSource(closesSource(closes, &calls), 3)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		date       time.Time
		action     types.Action
		score      string
		confidence string
	}{
		{day(1), types.ActionHold, "0", "0"},
		{day(2), types.ActionHold, "0", "0.3333333333333333"},
		{day(3), types.ActionBuy, "1", "0.6666666666666667"},
		{day(4), types.ActionBuy, "0.5", "1"},
		{day(5), types.ActionSell, "-1", "1"},
		{day(6), types.ActionHold, "0.75", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.date.Format(time.DateOnly), func(t *testing.T) {
			got, err := src.GetSignals(context.Background(), tt.date)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 {
				t.Fatalf("GetSignals() len = %d, want 1", len(got))
			}
			sig := got[0]
			if sig.Action != tt.action {
				t.Errorf("action = %s, want %s", sig.Action, tt.action)
			}
			if !sig.Score.Equal(decimal.RequireFromString(tt.score)) {
				t.Errorf("score = %s, want %s", sig.Score, tt.score)
			}
			if !sig.Confidence.Equal(decimal.RequireFromString(tt.confidence)) {
				t.Errorf("confidence = %s, want %s", sig.Confidence, tt.confidence)
			}
		})
	}

	before := calls
	if _, err := src.GetSignals(context.Background(), day(4).Add(10*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if calls != before {
		t.Errorf("cached day fetched again: %d calls, want %d", calls, before)
	}
}

func TestSignalSource_Prime(t *testing.T) {
	calls := 0
	closes := map[time.Time]string{day(1): "10", day(2): "11", day(3): "12", day(4): "13"}
	src, err := NewSignalSource(closesSource(closes, &calls), 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Prime(context.Background(), day(1), day(2), day(3)); err != nil {
		t.Fatal(err)
	}

	got, err := src.GetSignals(context.Background(), day(4))
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Action != types.ActionBuy || !got[0].Confidence.Equal(decimal.NewFromInt(1)) {
		t.Errorf("primed signal = %+v, want full-confidence BUY", got[0])
	}
}

func TestNewSignalSource_InvalidLookback(t *testing.T) {
	if _, err := NewSignalSource(nil, 1); err == nil {
		t.Error("NewSignalSource() with lookback 1 should fail")
	}
}

func TestDonchianHighLow(t *testing.T) {
	high, low := donchianHighLow([]decimal.Decimal{
		decimal.RequireFromString("3"), decimal.RequireFromString("7.5"), decimal.RequireFromString("-1"),
	})
	if !high.Equal(decimal.RequireFromString("7.5")) || !low.Equal(decimal.RequireFromString("-1")) {
		t.Errorf("donchianHighLow() = %s, %s", high, low)
	}
	high, low = donchianHighLow(nil)
	if !high.IsZero() || !low.IsZero() {
		t.Errorf("donchianHighLow(nil) = %s, %s", high, low)
	}
}
