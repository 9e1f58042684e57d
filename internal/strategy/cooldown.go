package strategy

import "time"

// CooldownTracker throttles same-direction trades: a BUY or SELL matching
// the direction of the immediately preceding trade is vetoed inside the
// minimum interval. Reversals are never vetoed.
type CooldownTracker struct {
	minInterval time.Duration
	lastTime    time.Time
	lastAction  Action
	recorded    bool
}

// CooldownSnapshot is the serializable view of the tracker.
type CooldownSnapshot struct {
	LastTradeTime   time.Time `json:"last_trade_time,omitempty"`
	LastTradeAction Action    `json:"last_trade_action,omitempty"`
	Recorded        bool      `json:"recorded"`
}

// NewCooldownTracker builds a tracker with no trade history.
func NewCooldownTracker(minInterval time.Duration) *CooldownTracker {
	return &CooldownTracker{minInterval: minInterval}
}

// Allows reports whether a trade in the given direction may execute at now.
func (c *CooldownTracker) Allows(action Action, now time.Time) bool {
	if !c.recorded || action != c.lastAction {
		return true
	}
	return now.Sub(c.lastTime) >= c.minInterval
}

// Record stores the direction and time of an executed trade.
func (c *CooldownTracker) Record(action Action, now time.Time) {
	c.lastTime = now
	c.lastAction = action
	c.recorded = true
}

// Snapshot captures the tracker for persistence.
func (c *CooldownTracker) Snapshot() CooldownSnapshot {
	return CooldownSnapshot{
		LastTradeTime:   c.lastTime,
		LastTradeAction: c.lastAction,
		Recorded:        c.recorded,
	}
}

// Restore overwrites the tracker from a snapshot, keeping the configured
// interval.
func (c *CooldownTracker) Restore(s CooldownSnapshot) {
	c.lastTime = s.LastTradeTime
	c.lastAction = s.LastTradeAction
	c.recorded = s.Recorded
}
