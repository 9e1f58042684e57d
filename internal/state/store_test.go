package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"macdbot/internal/strategy"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEngineStateRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st := strategy.EngineState{
		Position: strategy.PositionSnapshot{
			State:         strategy.Long,
			EntryPrice:    64000,
			EntryTime:     entry,
			HighWaterMark: 65500,
			TrailingStop:  64517.5,
			TrailingArmed: true,
		},
		Cooldown: strategy.CooldownSnapshot{
			LastTradeTime:   entry,
			LastTradeAction: strategy.Buy,
			Recorded:        true,
		},
	}
	if err := store.SaveEngineState(ctx, "BTC/USD", st); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.LoadEngineState(ctx, "BTC/USD")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatalf("expected stored state")
	}
	if got.Position.State != strategy.Long || got.Position.HighWaterMark != 65500 {
		t.Fatalf("position not restored: %+v", got.Position)
	}
	if !got.Cooldown.Recorded || got.Cooldown.LastTradeAction != strategy.Buy {
		t.Fatalf("cooldown not restored: %+v", got.Cooldown)
	}
	if !got.Position.EntryTime.Equal(entry) {
		t.Fatalf("entry time drifted: %v", got.Position.EntryTime)
	}
}

func TestEngineStateUpsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	flat := strategy.EngineState{Position: strategy.PositionSnapshot{State: strategy.Flat}}
	long := strategy.EngineState{Position: strategy.PositionSnapshot{State: strategy.Long, EntryPrice: 100}}

	if err := store.SaveEngineState(ctx, "ETH/USD", flat); err != nil {
		t.Fatalf("save flat: %v", err)
	}
	if err := store.SaveEngineState(ctx, "ETH/USD", long); err != nil {
		t.Fatalf("save long: %v", err)
	}

	got, ok, err := store.LoadEngineState(ctx, "ETH/USD")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Position.State != strategy.Long {
		t.Fatalf("expected latest state to win, got %+v", got.Position)
	}
}

func TestLoadEngineStateMissing(t *testing.T) {
	store := openTestStore(t)
	_, ok, err := store.LoadEngineState(context.Background(), "BTC/USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected no state for unknown pair")
	}
}

func TestTradesOrderingAndCount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		tr := Trade{
			Pair:     "BTC/USD",
			Side:     "BUY",
			Price:    100 + float64(i),
			Quantity: 0.5,
			Value:    50 + float64(i),
			Reason:   "MACD golden cross",
			Time:     base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.RecordTrade(ctx, tr); err != nil {
			t.Fatalf("record trade %d: %v", i, err)
		}
	}

	trades, err := store.Trades(ctx, 2)
	if err != nil {
		t.Fatalf("list trades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].Price != 102 {
		t.Fatalf("expected newest first, got price %v", trades[0].Price)
	}

	count, err := store.TradesSince(ctx, base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("count trades: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 trade since cutoff, got %d", count)
	}
}

func TestLastTrade(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.LastTrade(ctx, "BTC/USD"); err != nil || ok {
		t.Fatalf("expected no trade yet, ok=%v err=%v", ok, err)
	}

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, side := range []string{"BUY", "SELL"} {
		tr := Trade{Pair: "BTC/USD", Side: side, Price: 100, Quantity: 1, Value: 100, Reason: "Take profit", Time: base.Add(time.Duration(i) * time.Hour)}
		if err := store.RecordTrade(ctx, tr); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	last, ok, err := store.LastTrade(ctx, "BTC/USD")
	if err != nil || !ok {
		t.Fatalf("last trade: ok=%v err=%v", ok, err)
	}
	if last.Side != "SELL" {
		t.Fatalf("expected newest trade, got %+v", last)
	}
}

func TestPortfolioHistory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		p := PortfolioPoint{Time: base.Add(time.Duration(i) * time.Minute), Value: 10000 + float64(i)*10}
		if err := store.SavePortfolioPoint(ctx, p); err != nil {
			t.Fatalf("save point %d: %v", i, err)
		}
	}

	points, err := store.PortfolioHistory(ctx, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Value != 10010 || points[1].Value != 10020 {
		t.Fatalf("unexpected values: %v", points)
	}
}
