package md

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"macdbot/internal/strategy"
)

// horus polls the Horus market-data REST API for historical prices. The
// feed returns close-only samples: no volume, no high/low.
type horus struct {
	baseURL  string
	apiKey   string
	interval time.Duration
	window   int
	client   *http.Client
	log      zerolog.Logger
}

func newHorus(baseURL, apiKey string, interval time.Duration, window int, log zerolog.Logger) *horus {
	return &horus{
		baseURL:  baseURL,
		apiKey:   apiKey,
		interval: interval,
		window:   window,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

type horusPoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

func (h *horus) History(ctx context.Context, asset string) ([]strategy.PricePoint, error) {
	end := time.Now().Unix()
	start := end - int64(h.interval.Seconds())*int64(h.window)

	params := url.Values{}
	params.Set("asset", asset)
	params.Set("interval", intervalLabel(h.interval))
	params.Set("start", strconv.FormatInt(start, 10))
	params.Set("end", strconv.FormatInt(end, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/market/price?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build horus request: %w", err)
	}
	req.Header.Set("X-API-Key", h.apiKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("horus request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("horus status %d", resp.StatusCode)
	}

	var raw []horusPoint
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode horus response: %w", err)
	}

	points := make([]strategy.PricePoint, 0, len(raw))
	for _, p := range raw {
		if p.Price <= 0 {
			continue
		}
		points = append(points, strategy.PricePoint{Time: time.Unix(p.Timestamp, 0).UTC(), Price: p.Price})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })

	h.log.Debug().Str("asset", asset).Int("points", len(points)).Msg("horus history fetched")
	return points, nil
}

// intervalLabel renders a duration the way the Horus API spells intervals
// (15m, 1h, 1d).
func intervalLabel(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	default:
		return fmt.Sprintf("%dm", d/time.Minute)
	}
}
