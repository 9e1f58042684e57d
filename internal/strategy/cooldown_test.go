package strategy

import (
	"testing"
	"time"
)

func TestCooldownAllowsFirstTrade(t *testing.T) {
	c := NewCooldownTracker(time.Hour)
	if !c.Allows(Buy, time.Now()) {
		t.Fatalf("expected first trade to be allowed")
	}
}

func TestCooldownVetoesSameDirection(t *testing.T) {
	c := NewCooldownTracker(time.Hour)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.Record(Buy, at)

	if c.Allows(Buy, at.Add(30*time.Minute)) {
		t.Fatalf("expected same-direction BUY vetoed inside the interval")
	}
	if !c.Allows(Buy, at.Add(time.Hour)) {
		t.Fatalf("expected BUY allowed once the interval elapsed")
	}
}

func TestCooldownNeverVetoesReversal(t *testing.T) {
	c := NewCooldownTracker(time.Hour)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.Record(Buy, at)

	if !c.Allows(Sell, at.Add(time.Second)) {
		t.Fatalf("expected reversal SELL allowed immediately after BUY")
	}
}

func TestCooldownSnapshotRoundTrip(t *testing.T) {
	c := NewCooldownTracker(time.Hour)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.Record(Sell, at)

	restored := NewCooldownTracker(time.Hour)
	restored.Restore(c.Snapshot())
	if restored.Allows(Sell, at.Add(time.Minute)) {
		t.Fatalf("expected restored tracker to keep vetoing same-direction SELL")
	}
	if !restored.Allows(Buy, at.Add(time.Minute)) {
		t.Fatalf("expected restored tracker to allow reversal")
	}
}
