package ratesapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"marketpulse/internal/ports"
)

// Client implements the ports.RateSource interface against an HTTP
// exchange-rate endpoint with the "base currency in, target-rate map out"
// contract (GET {baseURL}/latest?base=EUR).
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	logger     ports.Logger
}

// Config holds configuration for a rate endpoint client.
type Config struct {
	Name    string // Source name used in logs and rate provenance
	BaseURL string
	Timeout time.Duration
	Logger  ports.Logger
}

// ratesPayload is the wire shape of the endpoint response.
type ratesPayload struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// New creates a rate endpoint client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for rates client", ports.ErrConfiguration)
	}
	if cfg.Name == "" || cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: rates client requires a name and base URL", ports.ErrConfiguration)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		name:       cfg.Name,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}, nil
}

// Name identifies the source in logs and rate provenance.
func (c *Client) Name() string {
	return c.name
}

// Rates fetches all known conversion rates for the given base currency.
func (c *Client) Rates(ctx context.Context, base string) (map[string]float64, error) {
	op := "Rates"
	endpoint := fmt.Sprintf("%s/latest?base=%s", c.baseURL, url.QueryEscape(strings.ToUpper(base)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w: %w", c.name, ports.ErrContextCanceled, err)
		}
		return nil, fmt.Errorf("%s: %w: %w", c.name, ports.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.logger.Warn(ctx, op+": endpoint returned non-success status", map[string]interface{}{
			"source": c.name,
			"base":   base,
			"status": resp.StatusCode,
		})
		return nil, fmt.Errorf("%s: status %d: %w", c.name, resp.StatusCode, ports.ErrSourceUnavailable)
	}

	var payload ratesPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w: %w", c.name, ports.ErrSourceUnavailable, err)
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("%s: empty rate map for base %s: %w", c.name, base, ports.ErrNotFound)
	}

	c.logger.Debug(ctx, op+" successful", map[string]interface{}{
		"source": c.name,
		"base":   base,
		"count":  len(payload.Rates),
	})
	return payload.Rates, nil
}
