package marketapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harvestlink/agrimarket/pkg/config"
	pkgerrors "github.com/harvestlink/agrimarket/pkg/errors"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

const (
	listingsPath              = "/listings"
	responseBodyReadLimit int64 = 1024
	defaultTimeout              = 10 * time.Second
)

var errBaseURLRequired = errors.New("upstream marketplace base url is required")

// Client fetches listings from the upstream marketplace API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	retries    uint64
	delay      time.Duration
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetry overrides the retry count and the fixed delay between attempts.
func WithRetry(retries int, delay time.Duration) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.retries = uint64(retries)
		}
		if delay > 0 {
			c.delay = delay
		}
	}
}

// NewClient builds the upstream client from configuration.
func NewClient(cfg config.UpstreamConfig, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		delay:      time.Second,
	}
	if cfg.RetryAttempts > 0 {
		client.retries = uint64(cfg.RetryAttempts)
	}
	if cfg.RetryDelay > 0 {
		client.delay = cfg.RetryDelay
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Listing mirrors the upstream listing payload.
type Listing struct {
	ID         string          `json:"id"`
	CropType   string          `json:"cropType"`
	Farmer     string          `json:"farmer"`
	Location   string          `json:"location"`
	TokenType  string          `json:"tokenType"`
	Price      decimal.Decimal `json:"price"`
	TrustScore float64         `json:"trustScore"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type listingsResponse struct {
	Listings []Listing `json:"listings"`
}

// ListListings fetches the full listing collection. Transport failures, 5xx and 429
// responses are retried with a fixed delay; anything else fails immediately.
func (c *Client) ListListings(ctx context.Context) ([]Listing, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "upstream marketplace client not configured")
	}

	backoff := retry.WithMaxRetries(c.retries, retry.NewConstant(c.delay))
	var out []Listing
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		listings, err := c.fetchListings(ctx)
		if err != nil {
			return err
		}
		out = listings
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch upstream listings")
	}
	return out, nil
}

func (c *Client) fetchListings(ctx context.Context) ([]Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+listingsPath, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build listings request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, retry.RetryableError(fmt.Errorf("execute listings request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if retryableStatus(resp.StatusCode) {
			return nil, retry.RetryableError(statusErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, statusErr, "listings request failed")
	}

	var payload listingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode listings response")
	}
	return payload.Listings, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
