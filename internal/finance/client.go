package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"uisBacktest/internal/metrics"
)

// Client is a rate-limited HTTP client that retries transient Yahoo failures.
type Client struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	MaxElapsed time.Duration
	Metrics    *metrics.Metrics
}

type ClientOptions struct {
	Timeout        time.Duration
	RequestsPerSec int
	MaxElapsed     time.Duration
	Metrics        *metrics.Metrics
}

func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 2
	}
	if opts.MaxElapsed == 0 {
		opts.MaxElapsed = 30 * time.Second
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: opts.Timeout},
		Limiter:    rate.NewLimiter(rate.Every(time.Second), opts.RequestsPerSec),
		MaxElapsed: opts.MaxElapsed,
		Metrics:    opts.Metrics,
	}
}

// StatusError is a non-200 answer from upstream.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// getJSON fetches url and decodes the body into out. 429s, 5xx and HTML or "Edge:" bodies are
// retried with exponential backoff; other statuses and bad JSON fail at once.
func (c *Client) getJSON(ctx context.Context, url, symbol string, out any) error {
	operation := func() error {
		if err := c.Limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		setBrowserHeaders(req, symbol)

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			c.Metrics.YahooRequest("retry")
			return err
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			c.Metrics.YahooRequest("retry")
			return fmt.Errorf("failed to read yahoo response: %w", readErr)
		}

		text := string(body)
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(text, "Edge: Too Many Requests"):
			c.Metrics.YahooRequest("throttled")
			return &StatusError{URL: url, StatusCode: http.StatusTooManyRequests, Body: preview(text)}
		case resp.StatusCode >= 500:
			c.Metrics.YahooRequest("retry")
			return &StatusError{URL: url, StatusCode: resp.StatusCode, Body: preview(text)}
		case resp.StatusCode != http.StatusOK:
			c.Metrics.YahooRequest("error")
			return backoff.Permanent(&StatusError{URL: url, StatusCode: resp.StatusCode, Body: preview(text)})
		case strings.HasPrefix(text, "<") || strings.HasPrefix(text, "Edge:"):
			c.Metrics.YahooRequest("retry")
			return fmt.Errorf("yahoo returned non-json body: %s", preview(text))
		}
		if err := json.Unmarshal(body, out); err != nil {
			c.Metrics.YahooRequest("error")
			return backoff.Permanent(fmt.Errorf("failed to parse yahoo json: %v; body: %s", err, preview(text)))
		}
		c.Metrics.YahooRequest("ok")
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = c.MaxElapsed
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

func setBrowserHeaders(req *http.Request, symbol string) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/history", strings.ToUpper(symbol)))
}

func preview(s string) string {
	if len(s) > 120 {
		return s[:120]
	}
	return s
}
