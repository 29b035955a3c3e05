package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfoliosim/internal/risk"
	"portfoliosim/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
)

// Engine drives sessions one trading day at a time. It holds no per-session
// state, so one engine may run many sessions concurrently.
type Engine struct {
	prices   PriceSource
	signals  SignalSource
	cfg      *SimulationConfig
	log      zerolog.Logger
	progress bool
}

type EngineOption func(*Engine)

// WithProgressBar renders a progress bar over the trading days of each run.
func WithProgressBar(enabled bool) EngineOption {
	return func(e *Engine) {
		e.progress = enabled
	}
}

func NewEngine(prices PriceSource, signals SignalSource, cfg *SimulationConfig, log zerolog.Logger, opts ...EngineOption) *Engine {
	if cfg == nil {
		cfg = DefaultSimulationConfig()
	}
	e := &Engine{
		prices:  prices,
		signals: signals,
		cfg:     cfg,
		log:     log.With().Str("component", "engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Config() *SimulationConfig {
	return e.cfg
}

// NewSession validates params and returns a session in the created state.
func (e *Engine) NewSession(params StartParams) (*Session, error) {
	if params.HorizonDays < 1 {
		return nil, fmt.Errorf("%w: horizon must be at least one day, got %d", ErrInvalidTradeParameter, params.HorizonDays)
	}
	if _, err := risk.NewGate(params.Limits, params.Thresholds); err != nil {
		return nil, err
	}
	sessionID := uuid.New().String()
	portfolio, err := NewPortfolio(sessionID, params.InitialCapital)
	if err != nil {
		return nil, err
	}
	return newSession(sessionID, params, portfolio), nil
}

// Start runs a session to completion on the calling goroutine. The session is
// returned even when it fails; the error is the one that ended it.
func (e *Engine) Start(ctx context.Context, params StartParams) (*Session, error) {
	s, err := e.NewSession(params)
	if err != nil {
		return nil, err
	}
	return s, e.Run(ctx, s)
}

// Launch starts a session in the background and returns it immediately.
func (e *Engine) Launch(ctx context.Context, params StartParams) (*Session, error) {
	s, err := e.NewSession(params)
	if err != nil {
		return nil, err
	}
	if err := s.begin(); err != nil {
		return nil, err
	}
	go e.run(ctx, s)
	return s, nil
}

// Run drives a created session through its horizon.
func (e *Engine) Run(ctx context.Context, s *Session) error {
	if err := s.begin(); err != nil {
		return err
	}
	return e.run(ctx, s)
}

func (e *Engine) run(ctx context.Context, s *Session) error {
	params := s.Params()
	log := e.log.With().Str("session", s.ID()).Logger()

	gate, err := risk.NewGate(params.Limits, params.Thresholds)
	if err != nil {
		s.finish(types.SessionFailed, err.Error(), err)
		return err
	}

	days := tradingDays(params.StartDate, params.HorizonDays, e.cfg.SkipWeekends)
	log.Info().
		Str("capital", params.InitialCapital.String()).
		Int("days", len(days)).
		Time("start", days[0]).
		Msg("session started")

	var bar *progressbar.ProgressBar
	if e.progress {
		bar = initProgressBar(len(days))
	}

	d := &day{
		engine:    e,
		session:   s,
		gate:      gate,
		allocator: newLongOnlyAllocator(e.cfg),
		log:       log,
		tracker:   risk.NewDrawdownTracker(params.InitialCapital),
		prevValue: params.InitialCapital,
	}

	for _, date := range days {
		if s.stopRequested(ctx) {
			log.Info().Time("date", date).Msg("session stopped")
			s.finish(types.SessionFailed, "stopped before "+date.Format(time.DateOnly), ErrSessionStopped)
			return ErrSessionStopped
		}
		s.setCurrentDate(date)

		alert, err := d.step(ctx, date)
		if err != nil {
			log.Error().Err(err).Time("date", date).Msg("session failed")
			s.finish(types.SessionFailed, err.Error(), err)
			return err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
		if alert != nil && alert.Severity == types.SeverityCritical {
			err := fmt.Errorf("%w: %s", ErrCriticalAlert, alert.Message)
			log.Error().Str("metric", string(alert.Metric)).Time("date", date).Msg("session halted by critical alert")
			s.finish(types.SessionFailed, alert.Message, err)
			return err
		}
	}

	log.Info().
		Str("value", s.Portfolio().SnapshotValue().String()).
		Int("trades", len(s.Trades())).
		Msg("session completed")
	s.finish(types.SessionCompleted, "", nil)
	return nil
}

// day carries the running state of one session between trading days.
type day struct {
	engine    *Engine
	session   *Session
	gate      *risk.Gate
	allocator *longOnlyAllocator
	log       zerolog.Logger

	tracker   *risk.DrawdownTracker
	prevValue decimal.Decimal
}

func (d *day) step(ctx context.Context, date time.Time) (*types.RiskAlert, error) {
	e, s, p := d.engine, d.session, d.session.Portfolio()

	prices, err := e.prices.GetPrices(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%w: prices for %s: %w", ErrDataUnavailable, date.Format(time.DateOnly), err)
	}
	p.UpdatePrices(prices)
	for _, sym := range p.View(date).Symbols() {
		if _, ok := prices[sym]; !ok {
			d.log.Debug().Str("symbol", sym).Time("date", date).Msg("no price, carrying last close forward")
		}
	}

	signals, err := e.signals.GetSignals(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%w: signals for %s: %w", ErrDataUnavailable, date.Format(time.DateOnly), err)
	}

	before := len(p.Trades())
	d.rebalance(date, signals, prices)
	tradeCount := len(p.Trades()) - before

	value := p.SnapshotValue()
	dailyReturn := decimal.Zero
	if d.prevValue.IsPositive() {
		dailyReturn = value.Div(d.prevValue).Sub(decimal.NewFromInt(1))
	}
	drawdown, _ := d.tracker.Observe(value)
	d.prevValue = value

	s.appendSnapshot(types.DailySnapshot{
		Date:        date,
		Value:       value,
		Cash:        p.Cash(),
		DailyReturn: dailyReturn,
		Drawdown:    drawdown,
		TradeCount:  tradeCount,
	})
	d.log.Debug().
		Time("date", date).
		Str("value", value.String()).
		Str("return", dailyReturn.StringFixed(6)).
		Int("trades", tradeCount).
		Msg("day closed")

	alert := d.gate.GenerateAlert(p.View(date), s.Returns(), s.Params().Sectors)
	if alert == nil {
		return nil, nil
	}
	s.addAlert(*alert)
	ev := d.log.Warn()
	if alert.Severity == types.SeverityCritical {
		ev = d.log.Error()
	}
	ev.Str("severity", string(alert.Severity)).
		Str("metric", string(alert.Metric)).
		Str("value", alert.Value.String()).
		Time("date", date).
		Msg(alert.Message)
	return alert, nil
}

// rebalance applies sells first and sizes buys from the post-sell ledger.
func (d *day) rebalance(date time.Time, signals []types.Signal, prices map[string]decimal.Decimal) {
	p := d.session.Portfolio()

	for _, c := range d.allocator.Sells(signals, p.View(date)) {
		d.execute(date, c)
	}
	for _, c := range d.allocator.Buys(signals, p.View(date), prices) {
		d.execute(date, c)
	}
}

// execute puts a candidate through the risk gate and books whatever it admits.
func (d *day) execute(date time.Time, c risk.Candidate) {
	p := d.session.Portfolio()
	view := p.View(date)
	sectors := d.session.Params().Sectors
	cfg := d.engine.cfg

	if !cfg.AutoReduce {
		if err := d.gate.Enforce(view, c, sectors); err != nil {
			d.session.addRejection(Rejection{Date: date, Symbol: c.Symbol, Side: c.Side, Requested: c.Quantity, Admitted: decimal.Zero})
			d.log.Info().Err(err).Str("symbol", c.Symbol).Msg("trade blocked by risk gate")
			return
		}
	} else if check := d.gate.CheckTrade(view, c, sectors); !check.Accepted {
		d.session.addRejection(Rejection{
			Date:       date,
			Symbol:     c.Symbol,
			Side:       c.Side,
			Requested:  c.Quantity,
			Admitted:   check.SuggestedQuantity,
			Violations: check.Violations,
		})
		d.log.Info().
			Str("symbol", c.Symbol).
			Str("requested", c.Quantity.String()).
			Str("admitted", check.SuggestedQuantity.String()).
			Str("violation", check.Violations[0].Code).
			Msg("trade reduced by risk gate")
		if !check.SuggestedQuantity.IsPositive() {
			return
		}
		c.Quantity = check.SuggestedQuantity
		c.Commission = cfg.commission(c.Quantity.Mul(c.Price))
	}

	trade, err := p.ApplyTrade(date, c.Symbol, c.Quantity, c.Price, c.Side, c.Commission)
	if err != nil {
		lvl := d.log.Warn()
		if errors.Is(err, ErrInsufficientCash) {
			lvl = d.log.Info()
		}
		lvl.Err(err).Str("symbol", c.Symbol).Str("side", string(c.Side)).Msg("ledger refused trade")
		return
	}
	d.log.Debug().
		Str("id", trade.ID).
		Str("symbol", trade.Symbol).
		Str("side", string(trade.Side)).
		Str("qty", trade.Quantity.String()).
		Str("price", trade.Price.String()).
		Msg("trade booked")
}

// tradingDays lists horizon consecutive trading dates from start, skipping
// Saturdays and Sundays when skipWeekends is set.
func tradingDays(start time.Time, horizon int, skipWeekends bool) []time.Time {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	days := make([]time.Time, 0, horizon)
	for cur := start; len(days) < horizon; cur = cur.AddDate(0, 0, 1) {
		if skipWeekends && (cur.Weekday() == time.Saturday || cur.Weekday() == time.Sunday) {
			continue
		}
		days = append(days, cur)
	}
	return days
}

func initProgressBar(maxTicks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Simulating trading days..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
