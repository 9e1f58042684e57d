package strategy

import (
	"errors"
	"time"
)

// ErrInvalidTransition signals a position transition that correct
// orchestration can never produce (open while long, close while flat). It is
// an invariant violation and should be surfaced loudly, not corrected.
var ErrInvalidTransition = errors.New("invalid position transition")

// PositionState enumerates the two states the tracker can be in.
type PositionState string

const (
	Flat PositionState = "FLAT"
	Long PositionState = "LONG"
)

// Position tracks the current position and its entry metadata. All
// entry-derived fields are zero whenever the state is Flat; Close clears
// them atomically with the transition.
type Position struct {
	state         PositionState
	entryPrice    float64
	entryTime     time.Time
	highWaterMark float64
	trailingStop  float64
	trailingArmed bool
}

// PositionSnapshot is the serializable view of a Position, used for
// persistence across restarts.
type PositionSnapshot struct {
	State         PositionState `json:"state"`
	EntryPrice    float64       `json:"entry_price,omitempty"`
	EntryTime     time.Time     `json:"entry_time,omitempty"`
	HighWaterMark float64       `json:"high_water_mark,omitempty"`
	TrailingStop  float64       `json:"trailing_stop,omitempty"`
	TrailingArmed bool          `json:"trailing_armed,omitempty"`
}

// NewPosition returns a flat tracker.
func NewPosition() *Position {
	return &Position{state: Flat}
}

func (p *Position) State() PositionState { return p.state }
func (p *Position) EntryPrice() float64  { return p.entryPrice }
func (p *Position) EntryTime() time.Time { return p.entryTime }

// HighWaterMark is the highest price seen since entry. Zero while flat.
func (p *Position) HighWaterMark() float64 { return p.highWaterMark }

// TrailingStop returns the current trailing stop level and whether trailing
// has been armed for this position.
func (p *Position) TrailingStop() (float64, bool) {
	return p.trailingStop, p.trailingArmed
}

// Open transitions Flat→Long, recording the entry price and time. The
// high-water mark starts at the entry price.
func (p *Position) Open(price float64, at time.Time) error {
	if p.state != Flat {
		return ErrInvalidTransition
	}
	p.state = Long
	p.entryPrice = price
	p.entryTime = at
	p.highWaterMark = price
	return nil
}

// Close transitions Long→Flat, clearing every entry-derived field.
func (p *Position) Close() error {
	if p.state != Long {
		return ErrInvalidTransition
	}
	*p = Position{state: Flat}
	return nil
}

// UpdateHighWaterMark raises the high-water mark to price if higher. No-op
// while flat; the mark never decreases.
func (p *Position) UpdateHighWaterMark(price float64) {
	if p.state != Long {
		return
	}
	if price > p.highWaterMark {
		p.highWaterMark = price
	}
}

// RaiseTrailingStop arms trailing and lifts the stop level to level if that
// is an improvement. The level is monotonically non-decreasing for the life
// of the position.
func (p *Position) RaiseTrailingStop(level float64) {
	if p.state != Long {
		return
	}
	if !p.trailingArmed || level > p.trailingStop {
		p.trailingStop = level
	}
	p.trailingArmed = true
}

// Snapshot captures the tracker for persistence.
func (p *Position) Snapshot() PositionSnapshot {
	return PositionSnapshot{
		State:         p.state,
		EntryPrice:    p.entryPrice,
		EntryTime:     p.entryTime,
		HighWaterMark: p.highWaterMark,
		TrailingStop:  p.trailingStop,
		TrailingArmed: p.trailingArmed,
	}
}

// Restore overwrites the tracker from a snapshot.
func (p *Position) Restore(s PositionSnapshot) {
	state := s.State
	if state != Long {
		state = Flat
	}
	if state == Flat {
		*p = Position{state: Flat}
		return
	}
	*p = Position{
		state:         Long,
		entryPrice:    s.EntryPrice,
		entryTime:     s.EntryTime,
		highWaterMark: s.HighWaterMark,
		trailingStop:  s.TrailingStop,
		trailingArmed: s.TrailingArmed,
	}
}
