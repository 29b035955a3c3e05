package feed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"portfoliosim/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jan8 = time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	jan9 = time.Date(2024, time.January, 9, 0, 0, 0, 0, time.UTC)
)

const pricesCSV = `date,symbol,close
2024-01-08,AAPL,185.56
2024-01-08,MSFT,374.69
# holiday feed gap below
2024-01-09,AAPL,185.14
`

func TestReadPricesCSV(t *testing.T) {
	p, err := ReadPricesCSV(strings.NewReader(pricesCSV))
	require.NoError(t, err)

	day, err := p.GetPrices(context.Background(), jan8.Add(15*time.Hour))
	require.NoError(t, err)
	assert.Len(t, day, 2)
	assert.True(t, day["MSFT"].Equal(decimal.RequireFromString("374.69")))

	empty, err := p.GetPrices(context.Background(), jan8.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.Equal(t, []time.Time{jan8, jan9}, p.Dates())
}

func TestStaticPricesStrict(t *testing.T) {
	p, err := ReadPricesCSV(strings.NewReader(pricesCSV), Strict())
	require.NoError(t, err)

	_, err = p.GetPrices(context.Background(), jan8.AddDate(0, 0, 5))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestStaticPricesReturnsCopy(t *testing.T) {
	p := NewStaticPrices()
	p.Set(jan8, "AAPL", decimal.NewFromInt(100))

	day, err := p.GetPrices(context.Background(), jan8)
	require.NoError(t, err)
	day["AAPL"] = decimal.NewFromInt(1)

	again, err := p.GetPrices(context.Background(), jan8)
	require.NoError(t, err)
	assert.True(t, again["AAPL"].Equal(decimal.NewFromInt(100)))
}

func TestReadPricesCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"wrong header", "day,ticker,px\n2024-01-08,AAPL,1\n"},
		{"bad date", "date,symbol,close\n08/01/2024,AAPL,1\n"},
		{"bad close", "date,symbol,close\n2024-01-08,AAPL,abc\n"},
		{"non-positive close", "date,symbol,close\n2024-01-08,AAPL,0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPricesCSV(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, ErrBadRecord)
		})
	}
}

func TestReadSignalsCSV(t *testing.T) {
	in := `date,symbol,action,score,confidence
2024-01-08,AAPL,buy,0.82,0.71
2024-01-08,MSFT,HOLD,0.10,0.55
2024-01-09,AAPL,sell,-0.30,0.64
`
	s, err := ReadSignalsCSV(strings.NewReader(in))
	require.NoError(t, err)

	day, err := s.GetSignals(context.Background(), jan8)
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, types.ActionBuy, day[0].Action)
	assert.True(t, day[0].Confidence.Equal(decimal.RequireFromString("0.71")))
	assert.Equal(t, types.ActionHold, day[1].Action)

	next, err := s.GetSignals(context.Background(), jan9)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, types.ActionSell, next[0].Action)

	none, err := s.GetSignals(context.Background(), jan9.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = ReadSignalsCSV(strings.NewReader("date,symbol,action,score,confidence\n2024-01-08,AAPL,short,1,1\n"))
	assert.ErrorIs(t, err, ErrBadRecord)
}

func TestLoadSectorsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectors.csv")
	require.NoError(t, os.WriteFile(path, []byte("symbol,sector\nAAPL,tech\nXOM, energy\n"), 0o644))

	m, err := LoadSectorsCSV(path)
	require.NoError(t, err)
	assert.Equal(t, "energy", m.SectorOf("XOM"))
	assert.Equal(t, types.UnknownSector, m.SectorOf("TSLA"))

	_, err = LoadSectorsCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStaticPrices().GetPrices(ctx, jan8)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = NewStaticSignals().GetSignals(ctx, jan8)
	assert.ErrorIs(t, err, context.Canceled)
}
