package strategy

import (
	"errors"
	"time"

	"macdbot/internal/indicator"
)

// Decision reasons not owned by the forced-exit ladder.
const (
	ReasonInsufficientData = "Insufficient data"
	ReasonCooldown         = "Cooldown active"
	ReasonMACDReversal     = "MACD reversal"
	ReasonBearishMomentum  = "Bearish momentum (profit-taking)"
	ReasonGoldenCross      = "MACD golden cross"
	ReasonBullishMomentum  = "Bullish momentum"
	ReasonNoEntry          = "No entry signal"
	ReasonNoExit           = "No exit signal"
)

// EngineState bundles the mutable state the engine owns, for persistence
// across restarts and for rollback when order execution fails.
type EngineState struct {
	Position PositionSnapshot `json:"position"`
	Cooldown CooldownSnapshot `json:"cooldown"`
}

// Engine is the per-asset decision engine. It owns a position tracker and a
// cooldown tracker, evaluates the exit-priority ladder before entry filters,
// and emits exactly one decision per tick. It performs no I/O, reads no
// clock (now is injected), and must not be shared between concurrent
// evaluations; the caller serializes access.
type Engine struct {
	cfg      Config
	calc     *indicator.Calculator
	risk     riskManager
	pos      *Position
	cooldown *CooldownTracker
}

// New validates cfg and builds a flat engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	calc, err := indicator.NewCalculator(cfg.FastPeriod, cfg.SlowPeriod, cfg.SignalPeriod, cfg.TrendPeriod)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:      cfg,
		calc:     calc,
		risk:     riskManager{cfg: cfg},
		pos:      NewPosition(),
		cooldown: NewCooldownTracker(cfg.MinTradeInterval),
	}, nil
}

// Position exposes the tracker for read-only inspection by the caller.
func (e *Engine) Position() PositionSnapshot { return e.pos.Snapshot() }

// State captures position and cooldown for persistence or rollback.
func (e *Engine) State() EngineState {
	return EngineState{Position: e.pos.Snapshot(), Cooldown: e.cooldown.Snapshot()}
}

// Restore overwrites position and cooldown from a previously captured state.
func (e *Engine) Restore(s EngineState) {
	e.pos.Restore(s.Position)
	e.cooldown.Restore(s.Cooldown)
}

// Evaluate runs one tick over the ordered price history, using the last
// point as the current price. A history too short for the MACD window
// degrades to HOLD; the only error returned is ErrInvalidTransition, which
// indicates a broken invariant and is fatal to the caller.
func (e *Engine) Evaluate(history []PricePoint, now time.Time) (Decision, error) {
	if len(history) == 0 {
		return holdDecision(ReasonInsufficientData), nil
	}
	price := history[len(history)-1].Price

	prices := make([]float64, len(history))
	for i, p := range history {
		prices[i] = p.Price
	}
	snap, err := e.calc.Compute(prices)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientHistory) {
			return holdDecision(ReasonInsufficientData), nil
		}
		return holdDecision(ReasonInsufficientData), err
	}

	if e.pos.State() == Long {
		return e.evaluateLong(snap, price, now)
	}
	return e.evaluateFlat(snap, price, now)
}

func (e *Engine) evaluateLong(snap indicator.Snapshot, price float64, now time.Time) (Decision, error) {
	e.pos.UpdateHighWaterMark(price)

	if reason, exit := e.risk.forcedExit(e.pos, price, now); exit {
		return e.sell(reason, now)
	}
	if crossedBelow(snap) {
		return e.sell(ReasonMACDReversal, now)
	}
	profitable := price > e.pos.EntryPrice()
	if snap.MACD < 0 && snap.Histogram < snap.HistogramPrev && profitable {
		return e.sell(ReasonBearishMomentum, now)
	}
	return holdDecision(ReasonNoExit), nil
}

func (e *Engine) evaluateFlat(snap indicator.Snapshot, price float64, now time.Time) (Decision, error) {
	trendOK := !snap.HasTrend || price > snap.TrendEMA
	if !trendOK {
		return holdDecision(ReasonNoEntry), nil
	}
	if crossedAbove(snap) {
		return e.buy(ReasonGoldenCross, price, now)
	}
	if snap.MACD > 0 && snap.Histogram > snap.HistogramPrev {
		return e.buy(ReasonBullishMomentum, price, now)
	}
	return holdDecision(ReasonNoEntry), nil
}

func (e *Engine) buy(reason string, price float64, now time.Time) (Decision, error) {
	if !e.cooldown.Allows(Buy, now) {
		return holdDecision(ReasonCooldown), nil
	}
	if err := e.pos.Open(price, now); err != nil {
		return holdDecision(reason), err
	}
	e.cooldown.Record(Buy, now)

	stop := price * (1 - e.cfg.StopLossPct)
	take := price * (1 + e.cfg.TakeProfitPct)
	return Decision{Action: Buy, Reason: reason, StopLoss: &stop, TakeProfit: &take}, nil
}

func (e *Engine) sell(reason string, now time.Time) (Decision, error) {
	if !e.cooldown.Allows(Sell, now) {
		return holdDecision(ReasonCooldown), nil
	}
	if err := e.pos.Close(); err != nil {
		return holdDecision(reason), err
	}
	e.cooldown.Record(Sell, now)
	return Decision{Action: Sell, Reason: reason}, nil
}

// A cross requires a strict sign change of (macd - signal) between the
// previous and current tick; touching zero is not a cross.
func crossedAbove(s indicator.Snapshot) bool {
	return s.HistogramPrev < 0 && s.Histogram > 0
}

func crossedBelow(s indicator.Snapshot) bool {
	return s.HistogramPrev > 0 && s.Histogram < 0
}
