package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"portfoliosim/internal/engine"
	"portfoliosim/types"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

const checkpointVersion = 1

var ErrCheckpointVersion = errors.New("unsupported checkpoint version")

// Checkpoint is a point-in-time copy of a session's ledger and history.
type Checkpoint struct {
	SessionID   string
	Label       string
	Status      types.SessionStatus
	CurrentDate time.Time
	Cash        decimal.Decimal
	Positions   []types.PositionSnapshot
	Trades      []types.Trade
	Snapshots   []types.DailySnapshot
	WrittenAt   time.Time
}

// the wire form keeps decimals as strings so no precision is lost
type checkpointRecord struct {
	Version     int              `msgpack:"v"`
	SessionID   string           `msgpack:"session_id"`
	Label       string           `msgpack:"label"`
	Status      string           `msgpack:"status"`
	CurrentDate time.Time        `msgpack:"current_date"`
	Cash        string           `msgpack:"cash"`
	Positions   []positionRecord `msgpack:"positions"`
	Trades      []tradeRecord    `msgpack:"trades"`
	Snapshots   []snapshotRecord `msgpack:"snapshots"`
	WrittenAt   time.Time        `msgpack:"written_at"`
}

type positionRecord struct {
	Symbol    string `msgpack:"symbol"`
	Quantity  string `msgpack:"qty"`
	AvgCost   string `msgpack:"avg_cost"`
	LastPrice string `msgpack:"last_price"`
}

type tradeRecord struct {
	ID          string    `msgpack:"id"`
	Time        time.Time `msgpack:"time"`
	Symbol      string    `msgpack:"symbol"`
	Side        string    `msgpack:"side"`
	Quantity    string    `msgpack:"qty"`
	Price       string    `msgpack:"price"`
	Commission  string    `msgpack:"commission"`
	CashDelta   string    `msgpack:"cash_delta"`
	RealizedPnL string    `msgpack:"realized_pnl"`
}

type snapshotRecord struct {
	Date        time.Time `msgpack:"date"`
	Value       string    `msgpack:"value"`
	Cash        string    `msgpack:"cash"`
	DailyReturn string    `msgpack:"daily_return"`
	Drawdown    string    `msgpack:"drawdown"`
	TradeCount  int       `msgpack:"trade_count"`
}

// NewCheckpoint captures the current state of a session. It is safe to call
// while the session is running.
func NewCheckpoint(s *engine.Session) Checkpoint {
	view := s.Portfolio().View(s.CurrentDate())
	positions := make([]types.PositionSnapshot, 0, len(view.Positions))
	for _, sym := range view.Symbols() {
		positions = append(positions, view.Positions[sym])
	}
	return Checkpoint{
		SessionID:   s.ID(),
		Label:       s.Params().Label,
		Status:      s.Status(),
		CurrentDate: s.CurrentDate(),
		Cash:        view.Cash,
		Positions:   positions,
		Trades:      s.Trades(),
		Snapshots:   s.Snapshots(),
		WrittenAt:   time.Now().UTC(),
	}
}

func CheckpointPath(dir, sessionID string) string {
	return filepath.Join(dir, sessionID+".ckpt")
}

// WriteCheckpoint encodes the session's state to <dir>/<session id>.ckpt. The
// file is written to a temporary name first and renamed into place.
func WriteCheckpoint(dir string, s *engine.Session) (string, error) {
	cp := NewCheckpoint(s)
	data, err := msgpack.Marshal(toRecord(cp))
	if err != nil {
		return "", fmt.Errorf("encode checkpoint %s: %w", cp.SessionID, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := CheckpointPath(dir, cp.SessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}
	return path, nil
}

func ReadCheckpoint(path string) (Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Checkpoint{}, err
	}

	var rec checkpointRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return Checkpoint{}, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	if rec.Version != checkpointVersion {
		return Checkpoint{}, fmt.Errorf("%w: %d", ErrCheckpointVersion, rec.Version)
	}
	return fromRecord(rec)
}

func toRecord(cp Checkpoint) checkpointRecord {
	rec := checkpointRecord{
		Version:     checkpointVersion,
		SessionID:   cp.SessionID,
		Label:       cp.Label,
		Status:      string(cp.Status),
		CurrentDate: cp.CurrentDate.UTC(),
		Cash:        cp.Cash.String(),
		WrittenAt:   cp.WrittenAt.UTC(),
	}
	for _, p := range cp.Positions {
		rec.Positions = append(rec.Positions, positionRecord{
			Symbol:    p.Symbol,
			Quantity:  p.Quantity.String(),
			AvgCost:   p.AvgCost.String(),
			LastPrice: p.LastPrice.String(),
		})
	}
	for _, t := range cp.Trades {
		rec.Trades = append(rec.Trades, tradeRecord{
			ID:          t.ID,
			Time:        t.Time.UTC(),
			Symbol:      t.Symbol,
			Side:        string(t.Side),
			Quantity:    t.Quantity.String(),
			Price:       t.Price.String(),
			Commission:  t.Commission.String(),
			CashDelta:   t.CashDelta.String(),
			RealizedPnL: t.RealizedPnL.String(),
		})
	}
	for _, s := range cp.Snapshots {
		rec.Snapshots = append(rec.Snapshots, snapshotRecord{
			Date:        s.Date.UTC(),
			Value:       s.Value.String(),
			Cash:        s.Cash.String(),
			DailyReturn: s.DailyReturn.String(),
			Drawdown:    s.Drawdown.String(),
			TradeCount:  s.TradeCount,
		})
	}
	return rec
}

func fromRecord(rec checkpointRecord) (Checkpoint, error) {
	cp := Checkpoint{
		SessionID:   rec.SessionID,
		Label:       rec.Label,
		Status:      types.SessionStatus(rec.Status),
		CurrentDate: rec.CurrentDate.UTC(),
		WrittenAt:   rec.WrittenAt.UTC(),
	}
	if err := parseDecimals(decField{&cp.Cash, rec.Cash}); err != nil {
		return Checkpoint{}, err
	}

	for _, p := range rec.Positions {
		pos := types.PositionSnapshot{Symbol: p.Symbol}
		if err := parseDecimals(
			decField{&pos.Quantity, p.Quantity},
			decField{&pos.AvgCost, p.AvgCost},
			decField{&pos.LastPrice, p.LastPrice},
		); err != nil {
			return Checkpoint{}, err
		}
		cp.Positions = append(cp.Positions, pos)
	}
	sort.Slice(cp.Positions, func(i, j int) bool { return cp.Positions[i].Symbol < cp.Positions[j].Symbol })

	for _, r := range rec.Trades {
		t := types.Trade{ID: r.ID, Time: r.Time.UTC(), Symbol: r.Symbol, Side: types.Side(r.Side)}
		if err := parseDecimals(
			decField{&t.Quantity, r.Quantity},
			decField{&t.Price, r.Price},
			decField{&t.Commission, r.Commission},
			decField{&t.CashDelta, r.CashDelta},
			decField{&t.RealizedPnL, r.RealizedPnL},
		); err != nil {
			return Checkpoint{}, err
		}
		cp.Trades = append(cp.Trades, t)
	}

	for _, r := range rec.Snapshots {
		s := types.DailySnapshot{Date: r.Date.UTC(), TradeCount: r.TradeCount}
		if err := parseDecimals(
			decField{&s.Value, r.Value},
			decField{&s.Cash, r.Cash},
			decField{&s.DailyReturn, r.DailyReturn},
			decField{&s.Drawdown, r.Drawdown},
		); err != nil {
			return Checkpoint{}, err
		}
		cp.Snapshots = append(cp.Snapshots, s)
	}
	return cp, nil
}
