// Package indicator computes MACD and trend EMA values over ordered price
// series. Calculations are pure: the same input series always produces the
// same snapshot.
package indicator

import (
	"errors"
	"fmt"
)

// ErrInsufficientHistory is returned when the price series is shorter than
// the minimum window the MACD computation needs.
var ErrInsufficientHistory = errors.New("insufficient price history")

// Snapshot holds the indicator values for the most recent tick.
type Snapshot struct {
	MACD          float64
	Signal        float64
	Histogram     float64
	HistogramPrev float64
	// TrendEMA is the long-period EMA of price, valid only when HasTrend is
	// true (history reached the trend window).
	TrendEMA float64
	HasTrend bool
}

// Calculator derives MACD line, signal line, histogram, and a long trend EMA
// from a price series.
type Calculator struct {
	fast   int
	slow   int
	signal int
	trend  int
}

// NewCalculator validates the periods and returns a calculator.
func NewCalculator(fast, slow, signal, trend int) (*Calculator, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 || trend <= 0 {
		return nil, fmt.Errorf("periods must be positive: fast=%d slow=%d signal=%d trend=%d", fast, slow, signal, trend)
	}
	if fast >= slow {
		return nil, fmt.Errorf("fast period %d must be shorter than slow period %d", fast, slow)
	}
	return &Calculator{fast: fast, slow: slow, signal: signal, trend: trend}, nil
}

// MinHistory is the shortest price series Compute accepts.
func (c *Calculator) MinHistory() int {
	return c.slow + c.signal
}

// Compute evaluates the indicator set over prices (oldest first). It fails
// with ErrInsufficientHistory when the series is shorter than MinHistory.
// The trend EMA is simply absent, not an error, while the series is shorter
// than the trend window.
func (c *Calculator) Compute(prices []float64) (Snapshot, error) {
	n := len(prices)
	if n < c.MinHistory() {
		return Snapshot{}, fmt.Errorf("%w: have %d points, need %d", ErrInsufficientHistory, n, c.MinHistory())
	}

	fastEMA := ema(prices, c.fast)
	slowEMA := ema(prices, c.slow)

	// MACD is defined from the first index where both EMAs exist.
	macd := make([]float64, 0, n-c.slow+1)
	for i := c.slow - 1; i < n; i++ {
		macd = append(macd, fastEMA[i]-slowEMA[i])
	}

	signal := ema(macd, c.signal)

	last := len(macd) - 1
	snap := Snapshot{
		MACD:          macd[last],
		Signal:        signal[last],
		Histogram:     macd[last] - signal[last],
		HistogramPrev: macd[last-1] - signal[last-1],
	}

	if n >= c.trend {
		trendEMA := ema(prices, c.trend)
		snap.TrendEMA = trendEMA[n-1]
		snap.HasTrend = true
	}
	return snap, nil
}
