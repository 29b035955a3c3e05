package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Global error declarations.
var (
	ErrAssetNotFound = errors.New("not found in datasource")
	ErrNoPrices      = errors.New("no prices found in datasource")
	ErrInvalidSignal = errors.New("invalid signal row")
)

type assetsRepository interface {
	GetAssetByTicker(ctx context.Context, ticker string) (AssetRow, error)
	ListAssets(ctx context.Context) ([]AssetRow, error)
}

type pricesRepository interface {
	ListCloses(ctx context.Context, tradeDate time.Time) ([]CloseRow, error)
}

type signalsRepository interface {
	ListSignals(ctx context.Context, signalDate time.Time) ([]SignalRow, error)
}

// Database implements the engine's price and signal sources on top of Postgres.
type Database struct {
	assets  assetsRepository
	prices  pricesRepository
	signals signalsRepository
	conn    *pgxpool.Pool
}

// NewDatabase creates a new Database instance and verifies connectivity.
func NewDatabase(ctx context.Context, dbURL string) (*Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	// Ensure the connection is established.
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	queries := New(conn)
	return &Database{
		assets:  queries,
		prices:  queries,
		signals: queries,
		conn:    conn,
	}, nil
}

// Migrate creates the tables the repository reads from if they do not exist.
func (db *Database) Migrate(ctx context.Context) error {
	if _, err := db.conn.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}
