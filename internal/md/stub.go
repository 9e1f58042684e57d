package md

import (
	"context"
	"math"
	"time"

	"macdbot/internal/strategy"
)

// stub emits a deterministic synthetic price series, useful for offline
// work and tests. The series is a slow sine swing around a base price
// derived from the asset name, so different assets get different but
// repeatable curves.
type stub struct {
	interval time.Duration
	window   int
}

func newStub(interval time.Duration, window int) *stub {
	return &stub{interval: interval, window: window}
}

func (s *stub) History(_ context.Context, asset string) ([]strategy.PricePoint, error) {
	base := 100.0
	for _, r := range asset {
		base += float64(r)
	}

	end := time.Now().UTC().Truncate(s.interval)
	points := make([]strategy.PricePoint, s.window)
	for i := 0; i < s.window; i++ {
		phase := float64(i) / 20
		points[i] = strategy.PricePoint{
			Time:  end.Add(-time.Duration(s.window-1-i) * s.interval),
			Price: base * (1 + 0.03*math.Sin(phase)),
		}
	}
	return points, nil
}
