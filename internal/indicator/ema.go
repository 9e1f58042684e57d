package indicator

import "math"

// ema returns the exponential moving average series for values. Entries
// before index period-1 are NaN; the value at period-1 is the simple average
// of the first period points, and later entries use the standard smoothing
// factor 2/(period+1).
func ema(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period {
		return out
	}

	sum := 0.0
	for _, v := range values[:period] {
		sum += v
	}
	prev := sum / float64(period)
	out[period-1] = prev

	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}
