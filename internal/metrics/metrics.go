// Package metrics registers prometheus collectors for the bot and serves
// them over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "evaluations_total", Help: "Strategy evaluations performed"},
		[]string{"pair"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "decisions_total", Help: "Decisions by pair and action"},
		[]string{"pair", "action"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted by pair, side, and result"},
		[]string{"pair", "side", "result"},
	)
	FeedErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "feed_errors_total", Help: "Price history fetch failures"},
		[]string{"pair"},
	)
	PortfolioValue = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "portfolio_value_usd", Help: "Last computed portfolio value"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, DecisionsTotal, OrdersTotal, FeedErrorsTotal, PortfolioValue)
}

// Serve exposes /metrics on addr in a background goroutine and returns the
// server so the caller can shut it down.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
