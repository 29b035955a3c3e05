package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const Schema = `
CREATE TABLE IF NOT EXISTS assets (
    ticker TEXT PRIMARY KEY,
    name   TEXT NOT NULL DEFAULT '',
    sector TEXT
);

CREATE TABLE IF NOT EXISTS daily_closes (
    symbol     TEXT    NOT NULL,
    trade_date DATE    NOT NULL,
    close      NUMERIC NOT NULL,
    PRIMARY KEY (symbol, trade_date)
);

CREATE TABLE IF NOT EXISTS model_signals (
    symbol      TEXT    NOT NULL,
    signal_date DATE    NOT NULL,
    action      TEXT    NOT NULL,
    score       NUMERIC NOT NULL,
    confidence  NUMERIC NOT NULL,
    PRIMARY KEY (symbol, signal_date)
);
`

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Queries holds the hand-written statements the repository runs.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type AssetRow struct {
	Ticker string
	Name   string
	Sector *string
}

type CloseRow struct {
	Symbol string
	Close  decimal.Decimal
}

type SignalRow struct {
	Symbol     string
	SignalDate time.Time
	Action     string
	Score      decimal.Decimal
	Confidence decimal.Decimal
}

const getAssetByTicker = `-- name: GetAssetByTicker :one
SELECT ticker, name, sector FROM assets
WHERE ticker = $1
`

func (q *Queries) GetAssetByTicker(ctx context.Context, ticker string) (AssetRow, error) {
	row := q.db.QueryRow(ctx, getAssetByTicker, ticker)
	var i AssetRow
	err := row.Scan(&i.Ticker, &i.Name, &i.Sector)
	return i, err
}

const listAssets = `-- name: ListAssets :many
SELECT ticker, name, sector FROM assets
ORDER BY ticker
`

func (q *Queries) ListAssets(ctx context.Context) ([]AssetRow, error) {
	rows, err := q.db.Query(ctx, listAssets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AssetRow
	for rows.Next() {
		var i AssetRow
		if err := rows.Scan(&i.Ticker, &i.Name, &i.Sector); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listCloses = `-- name: ListCloses :many
SELECT symbol, close FROM daily_closes
WHERE trade_date = $1
ORDER BY symbol
`

func (q *Queries) ListCloses(ctx context.Context, tradeDate time.Time) ([]CloseRow, error) {
	rows, err := q.db.Query(ctx, listCloses, tradeDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CloseRow
	for rows.Next() {
		var i CloseRow
		if err := rows.Scan(&i.Symbol, &i.Close); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listSignals = `-- name: ListSignals :many
SELECT symbol, signal_date, action, score, confidence FROM model_signals
WHERE signal_date = $1
ORDER BY score DESC, symbol
`

func (q *Queries) ListSignals(ctx context.Context, signalDate time.Time) ([]SignalRow, error) {
	rows, err := q.db.Query(ctx, listSignals, signalDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SignalRow
	for rows.Next() {
		var i SignalRow
		if err := rows.Scan(&i.Symbol, &i.SignalDate, &i.Action, &i.Score, &i.Confidence); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
