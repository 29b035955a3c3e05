package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"portfoliosim/types"
)

// WriteReportFiles writes <name>_trades.csv and <name>_snapshots.csv into dir.
func WriteReportFiles(dir, name string, session *Session) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := writeCSVFile(filepath.Join(dir, name+"_trades.csv"), func(w io.Writer) error {
		return WriteTradesCSV(w, session.Trades())
	}); err != nil {
		return err
	}
	return writeCSVFile(filepath.Join(dir, name+"_snapshots.csv"), func(w io.Writer) error {
		return WriteSnapshotsCSV(w, session.Snapshots())
	})
}

func writeCSVFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	return write(f)
}

// WriteTradesCSV writes the trade log to any io.Writer as CSV.
func WriteTradesCSV(w io.Writer, trades []types.Trade) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"trade_id",
		"time", // RFC3339
		"symbol",
		"side",
		"quantity",
		"price",
		"commission",
		"cash_delta",
		"realized_pnl",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, t := range trades {
		record := []string{
			t.ID,
			t.Time.Format(time.RFC3339),
			t.Symbol,
			string(t.Side),
			t.Quantity.String(),
			t.Price.String(),
			t.Commission.String(),
			t.CashDelta.String(),
			t.RealizedPnL.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteSnapshotsCSV writes the daily equity curve as CSV.
func WriteSnapshotsCSV(w io.Writer, snapshots []types.DailySnapshot) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"date", "value", "cash", "daily_return", "drawdown", "trades"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range snapshots {
		record := []string{
			s.Date.Format(time.DateOnly),
			s.Value.String(),
			s.Cash.String(),
			s.DailyReturn.String(),
			s.Drawdown.String(),
			strconv.Itoa(s.TradeCount),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
