// Package journal persists finished simulation sessions to SQLite and writes
// msgpack checkpoints of running ones.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"portfoliosim/internal/engine"
	"portfoliosim/types"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

var ErrSessionNotFound = errors.New("session not found in journal")

type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// SessionRecord is one row of the sessions table.
type SessionRecord struct {
	ID             string              `json:"id"`
	Label          string              `json:"label"`
	Status         types.SessionStatus `json:"status"`
	Reason         string              `json:"reason,omitempty"`
	StartDate      time.Time           `json:"startDate"`
	EndDate        time.Time           `json:"endDate"`
	TradingDays    int                 `json:"tradingDays"`
	InitialCapital decimal.Decimal     `json:"initialCapital"`
	FinalValue     decimal.Decimal     `json:"finalValue"`
	TotalReturn    decimal.Decimal     `json:"totalReturn"`
	MaxDrawdown    decimal.Decimal     `json:"maxDrawdown"`
	SharpeRatio    decimal.Decimal     `json:"sharpeRatio"`
	TradeCount     int                 `json:"tradeCount"`
	RecordedAt     time.Time           `json:"recordedAt"`
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// a single writer avoids "database is locked" under concurrent sweeps
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// RecordSession stores a session's summary, trades, snapshots and alerts in a
// single transaction. Recording the same session again replaces it.
func (j *SQLite) RecordSession(ctx context.Context, s *engine.Session, r *engine.Report) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"sessions", "trades", "snapshots", "alerts"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE session_id = ?`, s.ID()); err != nil {
			return fmt.Errorf("clear %s for %s: %w", table, s.ID(), err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions
		(session_id, label, status, reason, start_date, end_date, trading_days, initial_capital,
		 final_value, total_return, max_drawdown, sharpe_ratio, trade_count, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID(), r.Label, string(r.Status), r.Reason,
		formatTime(r.StartDate), formatTime(r.EndDate), r.TradingDays,
		r.InitialCapital.String(), r.FinalValue.String(), r.TotalReturn.String(),
		r.MaxDrawdown.String(), r.SharpeRatio.String(), r.TradeCount,
		formatTime(j.now()),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", s.ID(), err)
	}

	for _, t := range s.Trades() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trades
			(trade_id, session_id, time, symbol, side, quantity, price, commission, cash_delta, realized_pnl)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, s.ID(), formatTime(t.Time), t.Symbol, string(t.Side),
			t.Quantity.String(), t.Price.String(), t.Commission.String(),
			t.CashDelta.String(), t.RealizedPnL.String(),
		)
		if err != nil {
			return fmt.Errorf("insert trade %s: %w", t.ID, err)
		}
	}

	for _, snap := range s.Snapshots() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots
			(session_id, date, value, cash, daily_return, drawdown, trade_count)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.ID(), formatTime(snap.Date), snap.Value.String(), snap.Cash.String(),
			snap.DailyReturn.String(), snap.Drawdown.String(), snap.TradeCount,
		)
		if err != nil {
			return fmt.Errorf("insert snapshot %s: %w", snap.Date.Format(time.DateOnly), err)
		}
	}

	for _, a := range s.Alerts() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO alerts
			(alert_id, session_id, severity, metric, value, threshold, message, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, s.ID(), string(a.Severity), string(a.Metric),
			a.Value.String(), a.Threshold.String(), a.Message, formatTime(a.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert alert %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// ListSessions returns every recorded session, most recently recorded first.
func (j *SQLite) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session_id, label, status, reason, start_date, end_date, trading_days, initial_capital,
		       final_value, total_return, max_drawdown, sharpe_ratio, trade_count, recorded_at
		FROM sessions
		ORDER BY recorded_at DESC, session_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (j *SQLite) GetSession(ctx context.Context, sessionID string) (SessionRecord, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT session_id, label, status, reason, start_date, end_date, trading_days, initial_capital,
		       final_value, total_return, max_drawdown, sharpe_ratio, trade_count, recorded_at
		FROM sessions
		WHERE session_id = ?`, sessionID)

	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return rec, err
}

// LoadSnapshots returns the daily snapshots of a recorded session in date order.
func (j *SQLite) LoadSnapshots(ctx context.Context, sessionID string) ([]types.DailySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT date, value, cash, daily_return, drawdown, trade_count
		FROM snapshots
		WHERE session_id = ?
		ORDER BY date`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.DailySnapshot
	for rows.Next() {
		var (
			date, value, cash, ret, dd string
			snap                       types.DailySnapshot
		)
		if err := rows.Scan(&date, &value, &cash, &ret, &dd, &snap.TradeCount); err != nil {
			return nil, err
		}
		if snap.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		if err := parseDecimals(
			decField{&snap.Value, value},
			decField{&snap.Cash, cash},
			decField{&snap.DailyReturn, ret},
			decField{&snap.Drawdown, dd},
		); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// LoadTrades returns the trades of a recorded session in booking order.
func (j *SQLite) LoadTrades(ctx context.Context, sessionID string) ([]types.Trade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, time, symbol, side, quantity, price, commission, cash_delta, realized_pnl
		FROM trades
		WHERE session_id = ?
		ORDER BY trade_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Trade
	for rows.Next() {
		var (
			ts, side, qty, price, fee, delta, pnl string
			t                                     types.Trade
		)
		if err := rows.Scan(&t.ID, &ts, &t.Symbol, &side, &qty, &price, &fee, &delta, &pnl); err != nil {
			return nil, err
		}
		if t.Time, err = parseTime(ts); err != nil {
			return nil, err
		}
		t.Side = types.Side(side)
		if err := parseDecimals(
			decField{&t.Quantity, qty},
			decField{&t.Price, price},
			decField{&t.Commission, fee},
			decField{&t.CashDelta, delta},
			decField{&t.RealizedPnL, pnl},
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (SessionRecord, error) {
	var (
		rec                                     SessionRecord
		status, start, end, recorded            string
		initial, final, total, drawdown, sharpe string
	)
	err := sc.Scan(
		&rec.ID, &rec.Label, &status, &rec.Reason, &start, &end, &rec.TradingDays,
		&initial, &final, &total, &drawdown, &sharpe, &rec.TradeCount, &recorded,
	)
	if err != nil {
		return SessionRecord{}, err
	}
	rec.Status = types.SessionStatus(status)

	if rec.StartDate, err = parseTime(start); err != nil {
		return SessionRecord{}, err
	}
	if rec.EndDate, err = parseTime(end); err != nil {
		return SessionRecord{}, err
	}
	if rec.RecordedAt, err = parseTime(recorded); err != nil {
		return SessionRecord{}, err
	}
	err = parseDecimals(
		decField{&rec.InitialCapital, initial},
		decField{&rec.FinalValue, final},
		decField{&rec.TotalReturn, total},
		decField{&rec.MaxDrawdown, drawdown},
		decField{&rec.SharpeRatio, sharpe},
	)
	return rec, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("journal time %q: %w", s, err)
	}
	return t, nil
}

type decField struct {
	dst  *decimal.Decimal
	text string
}

func parseDecimals(fields ...decField) error {
	for _, f := range fields {
		d, err := decimal.NewFromString(f.text)
		if err != nil {
			return fmt.Errorf("journal decimal %q: %w", f.text, err)
		}
		*f.dst = d
	}
	return nil
}
