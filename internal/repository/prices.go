package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfoliosim/types"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// GetPrices returns the closes stored for date.
func (db *Database) GetPrices(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error) {
	closes, err := db.prices.ListCloses(ctx, date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %w", date.Format(time.DateOnly), ErrNoPrices)
		}
		return nil, err
	}
	if len(closes) == 0 {
		return nil, fmt.Errorf("%s %w", date.Format(time.DateOnly), ErrNoPrices)
	}
	out := make(map[string]decimal.Decimal, len(closes))
	for _, c := range closes {
		out[c.Symbol] = c.Close
	}
	return out, nil
}

// GetSignals returns the signals stored for date, highest score first. An empty
// result is not an error: it means no model output for the day.
func (db *Database) GetSignals(ctx context.Context, date time.Time) ([]types.Signal, error) {
	rows, err := db.signals.ListSignals(ctx, date)
	if err != nil {
		return nil, err
	}
	return convertSignals(rows)
}

func convertSignals(rows []SignalRow) ([]types.Signal, error) {
	signals := make([]types.Signal, 0, len(rows))
	for _, row := range rows {
		action, ok := types.ConvertAction[row.Action]
		if !ok {
			return nil, fmt.Errorf("%w: %s action %q", ErrInvalidSignal, row.Symbol, row.Action)
		}
		signals = append(signals, types.NewSignal(row.Symbol, action, row.Score, row.Confidence, row.SignalDate))
	}
	return signals, nil
}
