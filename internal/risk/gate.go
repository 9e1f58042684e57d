// Package risk holds the account-level order gate. It runs after the
// strategy has produced a decision and before the order reaches the venue,
// enforcing limits that are about the account rather than the chart.
package risk

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"macdbot/internal/strategy"
)

var (
	ErrKillSwitch      = errors.New("kill switch enabled")
	ErrDailyLimit      = errors.New("daily trade limit reached")
	ErrTradeTooSmall   = errors.New("trade value below minimum")
	ErrConcentration   = errors.New("position concentration limit")
	ErrNothingToSell   = errors.New("no position to sell")
	ErrInvalidQuantity = errors.New("invalid order quantity")
)

// Limits are the account-level thresholds, sourced from config.
type Limits struct {
	KillSwitch       bool
	DailyTradeLimit  int
	MinTradeValue    float64
	MaxConcentration float64
}

// Context carries the account facts a single check needs.
type Context struct {
	Now            time.Time
	Price          float64
	Quantity       float64
	CashBalance    float64
	PositionValue  float64 // value of all non-cash holdings at current prices
	PortfolioValue float64 // cash plus holdings
	TradesToday    int
}

// Gate evaluates decisions against the account limits.
type Gate struct {
	limits Limits
	log    zerolog.Logger
}

// NewGate builds a gate with the given limits.
func NewGate(limits Limits, log zerolog.Logger) *Gate {
	return &Gate{limits: limits, log: log}
}

// Check approves or rejects a trade. HOLD always passes. Rejections return a
// sentinel error identifying the violated limit.
func (g *Gate) Check(action strategy.Action, ctx Context) error {
	if action == strategy.Hold {
		return nil
	}

	if g.limits.KillSwitch {
		g.reject(action, ctx, ErrKillSwitch)
		return ErrKillSwitch
	}
	if ctx.Quantity <= 0 {
		g.reject(action, ctx, ErrInvalidQuantity)
		return ErrInvalidQuantity
	}

	notional := ctx.Price * ctx.Quantity
	if notional < g.limits.MinTradeValue {
		g.reject(action, ctx, ErrTradeTooSmall)
		return ErrTradeTooSmall
	}
	if g.limits.DailyTradeLimit > 0 && ctx.TradesToday >= g.limits.DailyTradeLimit {
		g.reject(action, ctx, ErrDailyLimit)
		return ErrDailyLimit
	}

	switch action {
	case strategy.Buy:
		if ctx.PortfolioValue > 0 {
			concentration := (ctx.PositionValue + notional) / ctx.PortfolioValue
			if concentration > g.limits.MaxConcentration {
				g.reject(action, ctx, ErrConcentration)
				return ErrConcentration
			}
		}
	case strategy.Sell:
		if ctx.PositionValue <= 0 {
			g.reject(action, ctx, ErrNothingToSell)
			return ErrNothingToSell
		}
	}

	g.log.Debug().Str("action", string(action)).Float64("notional", notional).Msg("risk approved")
	return nil
}

func (g *Gate) reject(action strategy.Action, ctx Context, err error) {
	g.log.Warn().Str("action", string(action)).
		Float64("price", ctx.Price).
		Float64("quantity", ctx.Quantity).
		Int("trades_today", ctx.TradesToday).
		Err(err).Msg("risk rejected")
}
