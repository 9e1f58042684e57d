package strategy

import (
	"errors"
	"testing"
	"time"
)

func TestPositionOpenClose(t *testing.T) {
	pos := NewPosition()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := pos.Open(100, at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.State() != Long || pos.EntryPrice() != 100 || !pos.EntryTime().Equal(at) {
		t.Fatalf("entry fields not set: %+v", pos.Snapshot())
	}
	if pos.HighWaterMark() != 100 {
		t.Fatalf("expected high-water mark to start at entry, got %f", pos.HighWaterMark())
	}

	if err := pos.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := pos.Snapshot()
	if snap.State != Flat || snap.EntryPrice != 0 || !snap.EntryTime.IsZero() || snap.HighWaterMark != 0 || snap.TrailingArmed {
		t.Fatalf("expected all entry fields cleared on close, got %+v", snap)
	}
}

func TestPositionInvalidTransitions(t *testing.T) {
	pos := NewPosition()
	if err := pos.Close(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition closing flat, got %v", err)
	}

	if err := pos.Open(100, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pos.Open(101, time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition opening while long, got %v", err)
	}
}

func TestHighWaterMarkNeverDecreases(t *testing.T) {
	pos := NewPosition()
	pos.UpdateHighWaterMark(500) // no-op while flat
	if pos.HighWaterMark() != 0 {
		t.Fatalf("expected no-op while flat, got %f", pos.HighWaterMark())
	}

	if err := pos.Open(100, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, price := range []float64{105, 103, 110, 90} {
		pos.UpdateHighWaterMark(price)
	}
	if pos.HighWaterMark() != 110 {
		t.Fatalf("expected high-water mark 110, got %f", pos.HighWaterMark())
	}
}

func TestTrailingStopMonotone(t *testing.T) {
	pos := NewPosition()
	if err := pos.Open(100, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos.RaiseTrailingStop(101)
	if level, armed := pos.TrailingStop(); !armed || level != 101 {
		t.Fatalf("expected armed at 101, got %f armed=%v", level, armed)
	}
	pos.RaiseTrailingStop(100.5) // lower: must not move
	if level, _ := pos.TrailingStop(); level != 101 {
		t.Fatalf("expected level to hold at 101, got %f", level)
	}
	pos.RaiseTrailingStop(102)
	if level, _ := pos.TrailingStop(); level != 102 {
		t.Fatalf("expected level raised to 102, got %f", level)
	}
}

func TestPositionSnapshotRoundTrip(t *testing.T) {
	pos := NewPosition()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := pos.Open(100, at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos.UpdateHighWaterMark(104)
	pos.RaiseTrailingStop(102.44)

	restored := NewPosition()
	restored.Restore(pos.Snapshot())
	if restored.Snapshot() != pos.Snapshot() {
		t.Fatalf("round trip mismatch: %+v vs %+v", restored.Snapshot(), pos.Snapshot())
	}
}
