package indicator

import (
	"math"
	"testing"
)

func constantSeries(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestComputeConstantSeriesConvergesToZero(t *testing.T) {
	calc, err := NewCalculator(12, 26, 9, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := calc.Compute(constantSeries(100, 50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(snap.MACD) > 1e-9 || math.Abs(snap.Signal) > 1e-9 || math.Abs(snap.Histogram) > 1e-9 {
		t.Fatalf("expected zero MACD/signal/histogram for constant prices, got %+v", snap)
	}
	if snap.HasTrend {
		t.Fatalf("expected no trend EMA below the trend window")
	}
}

func TestComputeInsufficientHistory(t *testing.T) {
	calc, err := NewCalculator(12, 26, 9, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calc.MinHistory() != 35 {
		t.Fatalf("expected minimum history 35, got %d", calc.MinHistory())
	}

	if _, err := calc.Compute(constantSeries(100, 34)); err == nil {
		t.Fatalf("expected ErrInsufficientHistory for 34 points")
	}
	if _, err := calc.Compute(constantSeries(100, 35)); err != nil {
		t.Fatalf("expected 35 points to be enough, got %v", err)
	}
}

func TestComputeTrendEMAPresentAtWindow(t *testing.T) {
	calc, err := NewCalculator(12, 26, 9, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := calc.Compute(constantSeries(100, 200))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.HasTrend {
		t.Fatalf("expected trend EMA at 200 points")
	}
	if math.Abs(snap.TrendEMA-100) > 1e-9 {
		t.Fatalf("expected trend EMA 100 for constant prices, got %f", snap.TrendEMA)
	}
}

func TestComputeRisingLastPriceLiftsMACD(t *testing.T) {
	calc, err := NewCalculator(12, 26, 9, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prices := constantSeries(100, 41)
	prices[40] = 150

	snap, err := calc.Compute(prices)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.MACD <= 0 {
		t.Fatalf("expected positive MACD after upward jump, got %f", snap.MACD)
	}
	if snap.Histogram <= snap.HistogramPrev {
		t.Fatalf("expected growing histogram, got %f vs prev %f", snap.Histogram, snap.HistogramPrev)
	}
}

func TestComputeDeterministic(t *testing.T) {
	calc, err := NewCalculator(12, 26, 9, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + math.Sin(float64(i)/5)*3
	}

	first, err := calc.Compute(prices)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := calc.Compute(prices)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical snapshots, got %+v vs %+v", first, second)
	}
}

func TestEMASeededWithSimpleAverage(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := ema(values, 3)

	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Fatalf("expected NaN before the seed index, got %v", out[:2])
	}
	if out[2] != 2 {
		t.Fatalf("expected seed 2 (average of first 3), got %f", out[2])
	}
	// k = 2/(3+1) = 0.5
	if out[3] != 3 {
		t.Fatalf("expected 3 at index 3, got %f", out[3])
	}
	if out[4] != 4 {
		t.Fatalf("expected 4 at index 4, got %f", out[4])
	}
}

func TestNewCalculatorRejectsBadPeriods(t *testing.T) {
	if _, err := NewCalculator(0, 26, 9, 200); err == nil {
		t.Fatalf("expected error for zero fast period")
	}
	if _, err := NewCalculator(26, 12, 9, 200); err == nil {
		t.Fatalf("expected error for fast >= slow")
	}
}
