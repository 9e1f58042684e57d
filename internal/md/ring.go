package md

import "macdbot/internal/strategy"

// Ring is a fixed-size rolling window of price points. The engine keeps one
// per pair so the dashboard can chart recent prices without refetching.
type Ring struct {
	points []strategy.PricePoint
	size   int
	index  int
	filled bool
}

// NewRing allocates a window of the given capacity.
func NewRing(size int) *Ring {
	return &Ring{points: make([]strategy.PricePoint, size), size: size}
}

// Add appends a point, evicting the oldest once full.
func (r *Ring) Add(p strategy.PricePoint) {
	r.points[r.index] = p
	r.index = (r.index + 1) % r.size
	if r.index == 0 {
		r.filled = true
	}
}

// Len reports how many points are held.
func (r *Ring) Len() int {
	if r.filled {
		return r.size
	}
	return r.index
}

// Points returns the window oldest first.
func (r *Ring) Points() []strategy.PricePoint {
	length := r.Len()
	out := make([]strategy.PricePoint, 0, length)
	if length == 0 {
		return out
	}
	if r.filled {
		out = append(out, r.points[r.index:]...)
	}
	out = append(out, r.points[:r.index]...)
	return out
}

// Last returns the newest point, if any.
func (r *Ring) Last() (strategy.PricePoint, bool) {
	if r.Len() == 0 {
		return strategy.PricePoint{}, false
	}
	idx := r.index - 1
	if idx < 0 {
		idx = r.size - 1
	}
	return r.points[idx], true
}
