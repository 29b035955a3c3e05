package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"portfoliosim/internal/risk"
	"portfoliosim/types"

	"github.com/shopspring/decimal"
)

// Rejection records a candidate trade the risk gate did not admit as requested.
type Rejection struct {
	Date       time.Time        `json:"date"`
	Symbol     string           `json:"symbol"`
	Side       types.Side       `json:"side"`
	Requested  decimal.Decimal  `json:"requested"`
	Admitted   decimal.Decimal  `json:"admitted"`
	Violations []risk.Violation `json:"violations,omitempty"`
}

// Session is one simulation run. All state is owned by the engine goroutine
// running it; readers get copies.
type Session struct {
	mu sync.RWMutex

	id        string
	params    StartParams
	portfolio *Portfolio

	status      types.SessionStatus
	reason      string
	err         error
	currentDate time.Time
	snapshots   []types.DailySnapshot
	alerts      []types.RiskAlert
	rejections  []Rejection

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// SessionInfo is a point-in-time summary of a session for status endpoints.
type SessionInfo struct {
	ID          string              `json:"id"`
	Label       string              `json:"label,omitempty"`
	Status      types.SessionStatus `json:"status"`
	Reason      string              `json:"reason,omitempty"`
	StartDate   time.Time           `json:"startDate"`
	CurrentDate time.Time           `json:"currentDate"`
	HorizonDays int                 `json:"horizonDays"`
	Days        int                 `json:"days"`
	Value       decimal.Decimal     `json:"value"`
	Cash        decimal.Decimal     `json:"cash"`
	Alerts      int                 `json:"alerts"`
}

func newSession(sessionID string, params StartParams, portfolio *Portfolio) *Session {
	return &Session{
		id:        sessionID,
		params:    params,
		portfolio: portfolio,
		status:    types.SessionCreated,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Params() StartParams {
	return s.params
}

func (s *Session) Limits() types.RiskLimits {
	return s.params.Limits
}

func (s *Session) Portfolio() *Portfolio {
	return s.portfolio
}

func (s *Session) Status() types.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) Reason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// Err is the error that ended a failed session.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Session) CurrentDate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentDate
}

func (s *Session) Snapshots() []types.DailySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.DailySnapshot(nil), s.snapshots...)
}

func (s *Session) Alerts() []types.RiskAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.RiskAlert(nil), s.alerts...)
}

func (s *Session) Rejections() []Rejection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Rejection(nil), s.rejections...)
}

func (s *Session) Trades() []types.Trade {
	return s.portfolio.Trades()
}

// Returns is the daily return series recorded so far, oldest first.
func (s *Session) Returns() []decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]decimal.Decimal, len(s.snapshots))
	for i, snap := range s.snapshots {
		out[i] = snap.DailyReturn
	}
	return out
}

func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionInfo{
		ID:          s.id,
		Label:       s.params.Label,
		Status:      s.status,
		Reason:      s.reason,
		StartDate:   s.params.StartDate,
		CurrentDate: s.currentDate,
		HorizonDays: s.params.HorizonDays,
		Days:        len(s.snapshots),
		Value:       s.portfolio.SnapshotValue(),
		Cash:        s.portfolio.Cash(),
		Alerts:      len(s.alerts),
	}
}

// Stop asks the engine to end the session at the next day boundary.
func (s *Session) Stop() error {
	if s.Status().Terminal() {
		return fmt.Errorf("%w: session %s is %s", ErrSessionState, s.id, s.Status())
	}
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session is terminal or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) stopRequested(ctx context.Context) bool {
	select {
	case <-s.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != types.SessionCreated {
		return fmt.Errorf("%w: cannot run session %s in status %s", ErrSessionState, s.id, s.status)
	}
	s.status = types.SessionRunning
	return nil
}

func (s *Session) finish(status types.SessionStatus, reason string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return
	}
	s.status = status
	s.reason = reason
	s.err = err
	close(s.done)
}

func (s *Session) setCurrentDate(date time.Time) {
	s.mu.Lock()
	s.currentDate = date
	s.mu.Unlock()
}

func (s *Session) appendSnapshot(snap types.DailySnapshot) {
	s.mu.Lock()
	s.snapshots = append(s.snapshots, snap)
	s.mu.Unlock()
}

func (s *Session) addAlert(alert types.RiskAlert) {
	s.mu.Lock()
	s.alerts = append(s.alerts, alert)
	s.mu.Unlock()
}

func (s *Session) addRejection(r Rejection) {
	s.mu.Lock()
	s.rejections = append(s.rejections, r)
	s.mu.Unlock()
}
