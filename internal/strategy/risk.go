package strategy

import "time"

// Exit reasons produced by the forced-exit ladder.
const (
	ReasonStopLoss     = "Stop loss"
	ReasonTakeProfit   = "Take profit"
	ReasonTrailingStop = "Trailing stop"
	ReasonTimeStop     = "Time stop"
)

// riskManager evaluates the forced-exit ladder for an open long position.
// The ladder order is the behavioral contract: stop-loss, then take-profit,
// then trailing stop, then time-stop. First match wins.
type riskManager struct {
	cfg Config
}

// forcedExit checks the ladder against the current price and clock. It also
// advances the trailing stop: once unrealized gain reaches the activation
// threshold, the stop level follows the high-water mark and only ever moves
// up, even if price later falls without a new high.
func (r riskManager) forcedExit(pos *Position, price float64, now time.Time) (string, bool) {
	entry := pos.EntryPrice()

	if price <= entry*(1-r.cfg.StopLossPct) {
		return ReasonStopLoss, true
	}
	if price >= entry*(1+r.cfg.TakeProfitPct) {
		return ReasonTakeProfit, true
	}

	if gain := (price - entry) / entry; gain >= r.cfg.TrailingActivationPct {
		pos.RaiseTrailingStop(pos.HighWaterMark() * (1 - r.cfg.TrailingStopPct))
	}
	if level, armed := pos.TrailingStop(); armed && price <= level {
		return ReasonTrailingStop, true
	}

	if now.Sub(pos.EntryTime()) >= r.cfg.MaxPositionAge {
		return ReasonTimeStop, true
	}
	return "", false
}
