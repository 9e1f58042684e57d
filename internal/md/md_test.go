package md

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"macdbot/internal/strategy"
)

func TestRingRollsOver(t *testing.T) {
	ring := NewRing(3)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ring.Add(strategy.PricePoint{Time: base.Add(time.Duration(i) * time.Minute), Price: float64(i)})
	}

	if ring.Len() != 3 {
		t.Fatalf("expected length 3, got %d", ring.Len())
	}
	points := ring.Points()
	if points[0].Price != 2 || points[2].Price != 4 {
		t.Fatalf("expected window [2 3 4], got %v", points)
	}
	last, ok := ring.Last()
	if !ok || last.Price != 4 {
		t.Fatalf("expected last price 4, got %v ok=%v", last, ok)
	}
}

func TestRingEmpty(t *testing.T) {
	ring := NewRing(3)
	if ring.Len() != 0 || len(ring.Points()) != 0 {
		t.Fatalf("expected empty ring")
	}
	if _, ok := ring.Last(); ok {
		t.Fatalf("expected no last point in empty ring")
	}
}

func TestHorusHistoryParsesAndSorts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/market/price" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Fatalf("missing API key header")
		}
		if r.URL.Query().Get("asset") != "BTC" {
			t.Fatalf("unexpected asset %s", r.URL.Query().Get("asset"))
		}
		// Out of order, with one bad sample to drop.
		w.Write([]byte(`[
			{"timestamp": 1750000900, "price": 101.5},
			{"timestamp": 1750000000, "price": 100.0},
			{"timestamp": 1750001800, "price": 0}
		]`))
	}))
	defer server.Close()

	source := newHorus(server.URL, "test-key", 15*time.Minute, 100, zerolog.Nop())
	points, err := source.History(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points after filtering, got %d", len(points))
	}
	if points[0].Price != 100.0 || points[1].Price != 101.5 {
		t.Fatalf("expected ascending order, got %v", points)
	}
}

func TestHorusHistoryStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	source := newHorus(server.URL, "bad-key", 15*time.Minute, 100, zerolog.Nop())
	if _, err := source.History(context.Background(), "BTC"); err == nil {
		t.Fatalf("expected error on non-200 status")
	}
}

func TestStubHistoryDeterministic(t *testing.T) {
	source := newStub(15*time.Minute, 240)

	first, err := source.History(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 240 {
		t.Fatalf("expected 240 points, got %d", len(first))
	}
	for i := 1; i < len(first); i++ {
		if !first[i].Time.After(first[i-1].Time) {
			t.Fatalf("timestamps not strictly increasing at %d", i)
		}
	}

	second, err := source.History(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range first {
		if first[i].Price != second[i].Price {
			t.Fatalf("stub series not deterministic at %d", i)
		}
	}
}

func TestIntervalLabel(t *testing.T) {
	cases := map[time.Duration]string{
		15 * time.Minute:   "15m",
		time.Hour:          "1h",
		24 * time.Hour:     "1d",
		2 * 24 * time.Hour: "2d",
	}
	for d, want := range cases {
		if got := intervalLabel(d); got != want {
			t.Fatalf("intervalLabel(%v) = %q, want %q", d, got, want)
		}
	}
}
