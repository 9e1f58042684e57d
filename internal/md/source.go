// Package md supplies ordered price histories to the decision engine. The
// engine never fetches, caches, or retries on its own; everything behind the
// Source interface is this package's problem.
package md

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"macdbot/internal/config"
	"macdbot/internal/strategy"
)

// Provider names accepted by New.
const (
	ProviderHorus  = "horus"
	ProviderAlpaca = "alpaca"
	ProviderStub   = "stub"
)

// Source fetches the ordered price history for one base asset (e.g. "BTC"),
// oldest point first, ending near now.
type Source interface {
	History(ctx context.Context, asset string) ([]strategy.PricePoint, error)
}

// New builds the provider named in cfg.
func New(cfg config.Feed, log zerolog.Logger) (Source, error) {
	interval := time.Duration(cfg.IntervalMinutes) * time.Minute
	switch cfg.Provider {
	case ProviderHorus:
		return newHorus(cfg.BaseURL, cfg.APIKey, interval, cfg.Window, log), nil
	case ProviderAlpaca:
		return newAlpaca(cfg.AlpacaKey, cfg.AlpacaSecret, cfg.IntervalMinutes, cfg.Window), nil
	case ProviderStub:
		return newStub(interval, cfg.Window), nil
	default:
		return nil, fmt.Errorf("unknown feed provider: %s", cfg.Provider)
	}
}
