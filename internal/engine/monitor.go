package engine

// Monitor tracks portfolio performance across the run: peak value, worst
// drawdown, and the realized win/loss tally. It is advisory only; limits are
// enforced by the risk gate.
type Monitor struct {
	peak              float64
	maxDrawdown       float64
	wins              int
	losses            int
	consecutiveLosses int
}

// MonitorStats is the exported view, included in status broadcasts.
type MonitorStats struct {
	PeakValue         float64 `json:"peak_value"`
	MaxDrawdown       float64 `json:"max_drawdown"`
	Wins              int     `json:"wins"`
	Losses            int     `json:"losses"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
}

// ObserveValue folds a portfolio valuation into the peak and drawdown.
func (m *Monitor) ObserveValue(value float64) {
	if value > m.peak {
		m.peak = value
	}
	if m.peak > 0 {
		drawdown := (m.peak - value) / m.peak
		if drawdown > m.maxDrawdown {
			m.maxDrawdown = drawdown
		}
	}
}

// RecordPnL registers the realized result of a closed position.
func (m *Monitor) RecordPnL(pnl float64) {
	if pnl >= 0 {
		m.wins++
		m.consecutiveLosses = 0
		return
	}
	m.losses++
	m.consecutiveLosses++
}

// Stats returns the current tallies.
func (m *Monitor) Stats() MonitorStats {
	return MonitorStats{
		PeakValue:         m.peak,
		MaxDrawdown:       m.maxDrawdown,
		Wins:              m.wins,
		Losses:            m.losses,
		ConsecutiveLosses: m.consecutiveLosses,
	}
}
