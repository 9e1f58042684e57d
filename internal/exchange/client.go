// Package exchange implements the signed REST client for the paper-trading
// venue: ticker, balance, and order endpoints. Requests carry the API key, a
// millisecond timestamp, and an HMAC-SHA256 signature over the sorted
// parameter string.
package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Side enumerates order directions.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// QtyPrecision is the venue's order quantity precision (decimal places).
const QtyPrecision = 5

// OrderRequest is a market order placement.
type OrderRequest struct {
	Pair     string
	Side     Side
	Quantity decimal.Decimal
}

// OrderRef identifies a placed or open order.
type OrderRef struct {
	ID     string `json:"OrderID"`
	Pair   string `json:"Pair"`
	Side   Side   `json:"Side"`
	Status string `json:"Status"`
}

// Asset is one wallet entry.
type Asset struct {
	Free float64 `json:"Free"`
	Lock float64 `json:"Lock"`
}

// Ticker is the last traded price for a pair.
type Ticker struct {
	Pair      string
	LastPrice float64
	Time      time.Time
}

// Client talks to the venue. All methods honor the request context and wrap
// transport and venue errors.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
	log       zerolog.Logger
	now       func() time.Time
}

// New builds a client for baseURL with the given credentials.
func New(baseURL, apiKey, apiSecret string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http:      &http.Client{Timeout: timeout},
		log:       log,
		now:       time.Now,
	}
}

// sign returns the hex HMAC-SHA256 of the sorted key=value parameter string.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

// signedParams stamps the common auth parameters and the signature.
func (c *Client) signedParams(params map[string]string) url.Values {
	if params == nil {
		params = map[string]string{}
	}
	params["api_key"] = c.apiKey
	params["timestamp"] = strconv.FormatInt(c.now().UnixMilli(), 10)
	params["sign"] = c.sign(params)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return values
}

func (c *Client) get(ctx context.Context, endpoint string, params map[string]string, out any) error {
	values := c.signedParams(params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, endpoint string, params map[string]string, out any) error {
	values := c.signedParams(params)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

type envelope struct {
	Success bool   `json:"Success"`
	ErrMsg  string `json:"ErrMsg"`
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// Ticker fetches the last traded price for pair.
func (c *Client) Ticker(ctx context.Context, pair string) (Ticker, error) {
	var resp struct {
		envelope
		Data map[string]struct {
			LastPrice float64 `json:"LastPrice"`
		} `json:"Data"`
	}
	if err := c.get(ctx, "/api/v1/market/ticker", map[string]string{"pair": pair}, &resp); err != nil {
		return Ticker{}, err
	}
	if !resp.Success {
		return Ticker{}, fmt.Errorf("ticker %s: %s", pair, resp.ErrMsg)
	}
	data, ok := resp.Data[pair]
	if !ok || data.LastPrice <= 0 {
		return Ticker{}, fmt.Errorf("ticker %s: no price in response", pair)
	}
	return Ticker{Pair: pair, LastPrice: data.LastPrice, Time: c.now().UTC()}, nil
}

// Balance fetches the wallet, keyed by currency.
func (c *Client) Balance(ctx context.Context) (map[string]Asset, error) {
	var resp struct {
		envelope
		Wallet map[string]Asset `json:"Wallet"`
	}
	if err := c.get(ctx, "/api/v1/account/balance", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("balance: %s", resp.ErrMsg)
	}
	return resp.Wallet, nil
}

// PlaceOrder submits a market order. The quantity is rounded to the venue's
// precision before submission.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderRef, error) {
	qty := req.Quantity.Round(QtyPrecision)
	if qty.Sign() <= 0 {
		return OrderRef{}, fmt.Errorf("place order %s: quantity %s rounds to zero", req.Pair, req.Quantity)
	}

	var resp struct {
		envelope
		OrderDetail OrderRef `json:"OrderDetail"`
	}
	params := map[string]string{
		"pair":     req.Pair,
		"side":     string(req.Side),
		"type":     "MARKET",
		"quantity": qty.String(),
	}
	if err := c.post(ctx, "/api/v1/trade/order", params, &resp); err != nil {
		return OrderRef{}, err
	}
	if !resp.Success {
		return OrderRef{}, fmt.Errorf("place order %s %s: %s", req.Side, req.Pair, resp.ErrMsg)
	}

	c.log.Info().Str("pair", req.Pair).Str("side", string(req.Side)).
		Str("qty", qty.String()).Str("order_id", resp.OrderDetail.ID).Msg("order placed")
	return resp.OrderDetail, nil
}

// OpenOrders lists resting orders, optionally filtered by pair.
func (c *Client) OpenOrders(ctx context.Context, pair string) ([]OrderRef, error) {
	params := map[string]string{}
	if pair != "" {
		params["pair"] = pair
	}
	var resp struct {
		envelope
		Orders []OrderRef `json:"Orders"`
	}
	if err := c.get(ctx, "/api/v1/trade/openOrders", params, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("open orders: %s", resp.ErrMsg)
	}
	return resp.Orders, nil
}

// CancelOrder cancels a resting order by ID.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	var resp envelope
	if err := c.post(ctx, "/api/v1/trade/cancel", map[string]string{"order_id": orderID}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("cancel order %s: %s", orderID, resp.ErrMsg)
	}
	return nil
}
