package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Layr-Labs/exchange-partner-go/pkg/types"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	defaultMaxAttempts    = 4
	defaultInitialBackoff = 200 * time.Millisecond
	defaultTimeout        = 10 * time.Second
)

// ClientConfig holds the configuration for the exchange client
type ClientConfig struct {
	BaseURL    string
	Logger     *zap.Logger
	HTTPClient *http.Client

	// MaxAttempts caps tries per call, including the first; defaults to 4
	MaxAttempts uint
	// InitialBackoff is the first retry delay; defaults to 200ms
	InitialBackoff time.Duration
}

// StatusError is a non-2xx response from the server
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to a running exchange server. Transport errors, 429 and 5xx
// responses are retried with exponential backoff; other 4xx are returned as is.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	logger         *zap.Logger
	maxAttempts    uint
	initialBackoff time.Duration
}

func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	baseURL, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got '%s'", config.BaseURL)
	}

	c := &Client{
		baseURL:        baseURL,
		httpClient:     config.HTTPClient,
		logger:         config.Logger,
		maxAttempts:    config.MaxAttempts,
		initialBackoff: config.InitialBackoff,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.maxAttempts == 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.initialBackoff <= 0 {
		c.initialBackoff = defaultInitialBackoff
	}
	return c, nil
}

// RequestExchange asks the server to assemble and sign a payload
func (c *Client) RequestExchange(ctx context.Context, req types.ExchangeRequest) (*types.ExchangeResponse, error) {
	var resp types.ExchangeResponse
	if err := c.do(ctx, http.MethodPost, "/exchange", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetExchange fetches a previously issued payload
func (c *Client) GetExchange(ctx context.Context, id string) (*types.ExchangeRecordResponse, error) {
	var resp types.ExchangeRecordResponse
	if err := c.do(ctx, http.MethodGet, "/exchange/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListExchanges returns every payload the server has issued, oldest first
func (c *Client) ListExchanges(ctx context.Context) ([]types.ExchangeRecordResponse, error) {
	var resp types.ExchangeListResponse
	if err := c.do(ctx, http.MethodGet, "/exchanges", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Exchanges, nil
}

func (c *Client) DeleteExchange(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/exchange/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Tickers(ctx context.Context) ([]string, error) {
	var resp types.TickersResponse
	if err := c.do(ctx, http.MethodGet, "/tickers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tickers, nil
}

// Verify asks the server to replay the device-side checks on a payload
func (c *Client) Verify(ctx context.Context, kind types.ExchangeKind, payload *types.SignedPayload) (*types.VerifyResponse, error) {
	var resp types.VerifyResponse
	if err := c.do(ctx, http.MethodPost, "/verify", types.VerifyRequest{Kind: kind, Payload: *payload}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JWKSURL is where the server publishes its signing key
func (c *Client) JWKSURL() string {
	return c.baseURL.String() + "/.well-known/jwks.json"
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var encoded []byte
	if body != nil {
		var err error
		if encoded, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}
	target := c.baseURL.String() + path

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.initialBackoff

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := c.doOnce(ctx, method, target, encoded, out)
		if err != nil {
			c.logger.Sugar().Debugw("Request attempt failed",
				"method", method,
				"url", target,
				"attempt", attempt,
				"error", err,
			)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(c.maxAttempts),
	)
	if err != nil {
		return fmt.Errorf("%s %s failed after %d attempt(s): %w", method, path, attempt, err)
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, method, target string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return backoff.Permanent(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func errorMessage(body []byte) string {
	var resp types.ErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return resp.Error
	}
	return strings.TrimSpace(string(body))
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}
