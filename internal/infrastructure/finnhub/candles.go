package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/ports"
)

var _ ports.PriceSource = (*Client)(nil)

type candleResponse struct {
	Close     []float64 `json:"c"`
	Timestamp []int64   `json:"t"`
	Status    string    `json:"s"`
	Error     string    `json:"error"`
}

// WindowChange compares the first and last daily close inside window.
func (c *Client) WindowChange(ctx context.Context, symbol string, window domain.Window) (domain.PriceMove, error) {
	if c.apiKey == "" {
		return domain.PriceMove{}, domain.ErrMissingAPIKey
	}

	to := window.To.UTC().Unix()
	if window.HalfOpen {
		to--
	}
	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))
	q.Set("resolution", "D")
	q.Set("from", strconv.FormatInt(window.From.UTC().Unix(), 10))
	q.Set("to", strconv.FormatInt(to, 10))
	q.Set("token", c.apiKey)

	body, err := c.fetch(ctx, c.baseURL+"/stock/candle?"+q.Encode(), symbol)
	if err != nil {
		return domain.PriceMove{}, fmt.Errorf("finnhub candles %s: %w", symbol, err)
	}
	return decodeCandles(body)
}

func decodeCandles(body []byte) (domain.PriceMove, error) {
	var resp candleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.PriceMove{}, fmt.Errorf("decode finnhub candles: %w", err)
	}
	if resp.Error != "" {
		return domain.PriceMove{}, fmt.Errorf("finnhub error: %s", resp.Error)
	}
	if resp.Status == "no_data" || len(resp.Close) == 0 {
		return domain.PriceMove{}, domain.ErrNoPriceData
	}
	return domain.NewPriceMove(resp.Close[0], resp.Close[len(resp.Close)-1]), nil
}
