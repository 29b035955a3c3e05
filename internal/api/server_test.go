package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"portfoliosim/internal/engine"
	"portfoliosim/internal/feed"
	"portfoliosim/internal/journal"
	"portfoliosim/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

func testEngine() *engine.Engine {
	prices := feed.NewStaticPrices()
	signals := feed.NewStaticSignals()
	for i, px := range []string{"100", "102", "104"} {
		day := start.AddDate(0, 0, i)
		prices.Set(day, "MSFT", decimal.RequireFromString(px))
		signals.Add(types.NewSignal("MSFT", types.ActionBuy, decimal.NewFromInt(1), decimal.RequireFromString("0.9"), day))
	}
	return engine.NewEngine(prices, signals, engine.DefaultSimulationConfig(), zerolog.Nop())
}

func testParams(label string) engine.StartParams {
	return engine.StartParams{
		Label:          label,
		InitialCapital: decimal.NewFromInt(10000),
		HorizonDays:    3,
		StartDate:      start,
		Limits:         types.DefaultRiskLimits(),
		Thresholds:     types.DefaultAlertThresholds(),
	}
}

// newTestServer tracks one completed and one not yet started session.
func newTestServer(t *testing.T, opts ...Option) (*Server, *engine.Session, *engine.Session) {
	t.Helper()

	e := testEngine()
	done, err := e.Start(context.Background(), testParams("done"))
	require.NoError(t, err)
	pending, err := e.NewSession(testParams("pending"))
	require.NoError(t, err)

	s := NewServer(zerolog.Nop(), opts...)
	s.Track(done)
	s.Track(pending)
	s.Track(done)
	return s, done, pending
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListSessions(t *testing.T) {
	s, done, pending := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/sessions")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Sessions []engine.SessionInfo `json:"sessions"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Sessions, 2)
	assert.Equal(t, done.ID(), body.Sessions[0].ID)
	assert.Equal(t, types.SessionCompleted, body.Sessions[0].Status)
	assert.Equal(t, pending.ID(), body.Sessions[1].ID)
	assert.Equal(t, types.SessionCreated, body.Sessions[1].Status)
}

func TestGetSession(t *testing.T) {
	s, done, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/sessions/"+done.ID())
	require.Equal(t, http.StatusOK, rec.Code)

	var info engine.SessionInfo
	decode(t, rec, &info)
	assert.Equal(t, "done", info.Label)
	assert.Equal(t, 3, info.Days)
	assert.True(t, info.Value.Equal(done.Portfolio().SnapshotValue()))

	rec = do(t, s, http.MethodGet, "/sessions/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetReport(t *testing.T) {
	s, done, pending := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/sessions/"+done.ID()+"/report")
	require.Equal(t, http.StatusOK, rec.Code)

	var report engine.Report
	decode(t, rec, &report)
	assert.Equal(t, done.ID(), report.SessionID)
	assert.Equal(t, 3, report.TradingDays)
	assert.True(t, report.InitialCapital.Equal(decimal.NewFromInt(10000)))

	rec = do(t, s, http.MethodGet, "/sessions/"+pending.ID()+"/report")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetTrades(t *testing.T) {
	s, done, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/sessions/"+done.ID()+"/trades")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count  int           `json:"count"`
		Trades []types.Trade `json:"trades"`
	}
	decode(t, rec, &body)
	require.Equal(t, len(done.Trades()), body.Count)
	require.NotEmpty(t, body.Trades)
	assert.Equal(t, "MSFT", body.Trades[0].Symbol)
	assert.Equal(t, types.SideTypeBuy, body.Trades[0].Side)
}

func TestGetSnapshotsAndAlerts(t *testing.T) {
	s, done, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/sessions/"+done.ID()+"/snapshots")
	require.Equal(t, http.StatusOK, rec.Code)
	var snaps struct {
		Snapshots []types.DailySnapshot `json:"snapshots"`
	}
	decode(t, rec, &snaps)
	assert.Len(t, snaps.Snapshots, 3)

	rec = do(t, s, http.MethodGet, "/sessions/"+done.ID()+"/alerts")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStopSession(t *testing.T) {
	s, done, pending := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/sessions/"+pending.ID()+"/stop")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// the stop is honoured before the first day runs
	err := testEngine().Run(context.Background(), pending)
	assert.ErrorIs(t, err, engine.ErrSessionStopped)
	assert.Equal(t, types.SessionFailed, pending.Status())
	assert.Empty(t, pending.Snapshots())

	rec = do(t, s, http.MethodPost, "/sessions/"+done.ID()+"/stop")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodGet, "/sessions/"+done.ID()+"/stop")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

type stubHistory struct {
	records []journal.SessionRecord
	err     error
}

func (h stubHistory) ListSessions(context.Context) ([]journal.SessionRecord, error) {
	return h.records, h.err
}

func TestHistory(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/history")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s, _, _ = newTestServer(t, WithHistory(stubHistory{records: []journal.SessionRecord{{ID: "old", Label: "last week"}}}))
	rec = do(t, s, http.MethodGet, "/history")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Sessions []journal.SessionRecord `json:"sessions"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Sessions, 1)
	assert.Equal(t, "old", body.Sessions[0].ID)

	s, _, _ = newTestServer(t, WithHistory(stubHistory{err: errors.New("disk gone")}))
	rec = do(t, s, http.MethodGet, "/history")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
