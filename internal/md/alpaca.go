package md

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"macdbot/internal/strategy"
)

// alpacaSource backs the history feed with Alpaca crypto bars, as an
// alternative to Horus. Only the bar close is used; the engine's data model
// carries no volume or high/low.
type alpacaSource struct {
	client          *marketdata.Client
	intervalMinutes int
	window          int
}

func newAlpaca(apiKey, apiSecret string, intervalMinutes, window int) *alpacaSource {
	return &alpacaSource{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		intervalMinutes: intervalMinutes,
		window:          window,
	}
}

func (a *alpacaSource) History(ctx context.Context, asset string) ([]strategy.PricePoint, error) {
	symbol := asset + "/USD"
	end := time.Now().UTC()
	start := end.Add(-time.Duration(a.intervalMinutes*a.window) * time.Minute)

	bars, err := a.client.GetCryptoBars(symbol, marketdata.GetCryptoBarsRequest{
		TimeFrame:  marketdata.NewTimeFrame(a.intervalMinutes, marketdata.Min),
		Start:      start,
		End:        end,
		TotalLimit: a.window,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca crypto bars: %w", err)
	}

	points := make([]strategy.PricePoint, 0, len(bars))
	for _, bar := range bars {
		points = append(points, strategy.PricePoint{Time: bar.Timestamp.UTC(), Price: bar.Close})
	}
	return points, nil
}
