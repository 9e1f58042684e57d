// Package strategy implements the MACD decision engine: a pure, synchronous
// state machine that turns an ordered price history into one BUY/SELL/HOLD
// decision per tick under a fixed risk policy.
package strategy

import (
	"errors"
	"fmt"
	"time"
)

// Action is the trading action a decision carries.
type Action string

const (
	Hold Action = "HOLD"
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// ErrInvalidConfig is returned by New when the configuration cannot produce
// a working engine. It fails fast, before any tick runs.
var ErrInvalidConfig = errors.New("invalid strategy config")

// PricePoint is one sample of the upstream price feed. The feed carries no
// volume or high/low data, so neither does this type.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// Decision is the unit of output per evaluation tick. StopLoss and
// TakeProfit are set only on BUY decisions, for the caller to log and
// display; they are nil otherwise.
type Decision struct {
	Action     Action
	Reason     string
	StopLoss   *float64
	TakeProfit *float64
}

// Config holds every tunable the engine needs. All values are caller
// supplied; Defaults returns the stock parameter set.
type Config struct {
	FastPeriod   int
	SlowPeriod   int
	SignalPeriod int
	TrendPeriod  int

	StopLossPct           float64
	TakeProfitPct         float64
	TrailingStopPct       float64
	TrailingActivationPct float64

	MaxPositionAge   time.Duration
	MinTradeInterval time.Duration
}

// Defaults returns the standard 12/26/9 MACD setup with a 200-period trend
// filter and the stock risk parameters.
func Defaults() Config {
	return Config{
		FastPeriod:            12,
		SlowPeriod:            26,
		SignalPeriod:          9,
		TrendPeriod:           200,
		StopLossPct:           0.03,
		TakeProfitPct:         0.03,
		TrailingStopPct:       0.015,
		TrailingActivationPct: 0.02,
		MaxPositionAge:        48 * time.Hour,
		MinTradeInterval:      time.Hour,
	}
}

// Validate reports the first configuration problem found, wrapped in
// ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.FastPeriod <= 0:
		return fmt.Errorf("%w: fast period must be > 0", ErrInvalidConfig)
	case c.SlowPeriod <= 0:
		return fmt.Errorf("%w: slow period must be > 0", ErrInvalidConfig)
	case c.SignalPeriod <= 0:
		return fmt.Errorf("%w: signal period must be > 0", ErrInvalidConfig)
	case c.TrendPeriod <= 0:
		return fmt.Errorf("%w: trend period must be > 0", ErrInvalidConfig)
	case c.FastPeriod >= c.SlowPeriod:
		return fmt.Errorf("%w: fast period must be shorter than slow period", ErrInvalidConfig)
	case c.StopLossPct <= 0:
		return fmt.Errorf("%w: stop loss pct must be > 0", ErrInvalidConfig)
	case c.TakeProfitPct <= 0:
		return fmt.Errorf("%w: take profit pct must be > 0", ErrInvalidConfig)
	case c.TrailingStopPct <= 0:
		return fmt.Errorf("%w: trailing stop pct must be > 0", ErrInvalidConfig)
	case c.TrailingActivationPct <= 0:
		return fmt.Errorf("%w: trailing activation pct must be > 0", ErrInvalidConfig)
	case c.MaxPositionAge <= 0:
		return fmt.Errorf("%w: max position age must be > 0", ErrInvalidConfig)
	case c.MinTradeInterval < 0:
		return fmt.Errorf("%w: min trade interval must be >= 0", ErrInvalidConfig)
	}
	return nil
}

func holdDecision(reason string) Decision {
	return Decision{Action: Hold, Reason: reason}
}
