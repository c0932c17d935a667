package finnhub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"NewsMatcher/internal/config"
	"NewsMatcher/internal/domain"
	"NewsMatcher/internal/ports"
	"NewsMatcher/internal/retry"
)

const dayLayout = "2006-01-02"

// Client queries the Finnhub company-news endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      retry.RetryConfig
	logger     *slog.Logger
}

var _ ports.NewsFeed = (*Client)(nil)

// NewClient builds a rate-limited client from configuration.
func NewClient(cfg config.FeedConfig, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		retry: retry.RetryConfig{
			MaxAttempts: 2,
			Delay:       cfg.RetryBackoff,
			Retryable:   retry.TransientStatus,
		},
		logger: log,
	}
}

// Name identifies the provider inside the registry.
func (c *Client) Name() string {
	return config.ProviderFinnhub
}

// CompanyNews lists items for symbol between the first and last calendar day
// of window. Day granularity means callers still filter by timestamp.
func (c *Client) CompanyNews(ctx context.Context, symbol string, window domain.Window) ([]domain.FeedItem, error) {
	if c.apiKey == "" {
		return nil, domain.ErrMissingAPIKey
	}

	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))
	q.Set("from", window.From.UTC().Format(dayLayout))
	q.Set("to", window.LastDay().UTC().Format(dayLayout))
	q.Set("token", c.apiKey)
	endpoint := c.baseURL + "/company-news?" + q.Encode()

	body, err := c.fetch(ctx, endpoint, symbol)
	if err != nil {
		return nil, fmt.Errorf("finnhub company news %s: %w", symbol, err)
	}

	return decodeNews(body)
}

// fetch waits on the limiter and retries transient statuses.
func (c *Client) fetch(ctx context.Context, endpoint, symbol string) ([]byte, error) {
	var body []byte
	err := retry.WithRetry(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		payload, err := c.get(ctx, endpoint)
		if err != nil {
			if retry.TransientStatus(err) {
				c.debug("finnhub transient failure", "symbol", symbol, "error", err)
			}
			return err
		}
		body = payload
		return nil
	})
	return body, err
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NewsMatcher/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &retry.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return payload, nil
}

type newsItem struct {
	Headline string `json:"headline"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	Datetime any    `json:"datetime"`
	Time     any    `json:"time"`
}

// decodeNews accepts the documented array payload. An object payload is the
// provider's error shape.
func decodeNews(body []byte) ([]domain.FeedItem, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '{' {
		var errPayload map[string]any
		if err := json.Unmarshal(trimmed, &errPayload); err != nil {
			return nil, fmt.Errorf("decode finnhub error payload: %w", err)
		}
		if msg, ok := errPayload["error"].(string); ok && msg != "" {
			return nil, fmt.Errorf("finnhub error: %s", msg)
		}
		return nil, fmt.Errorf("finnhub returned an object instead of a list")
	}

	var raw []newsItem
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode finnhub news: %w", err)
	}

	items := make([]domain.FeedItem, 0, len(raw))
	for _, r := range raw {
		title := r.Headline
		if title == "" {
			title = r.Title
		}
		ts := unixSeconds(r.Datetime)
		if ts == 0 {
			ts = unixSeconds(r.Time)
		}
		items = append(items, domain.FeedItem{
			Title:         title,
			URL:           r.URL,
			Source:        r.Source,
			PublishedUnix: ts,
			Summary:       r.Summary,
		})
	}
	return items, nil
}

func unixSeconds(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i
		}
	}
	return 0
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
