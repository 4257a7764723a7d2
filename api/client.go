// Package api is the low-level HTTP client for the payments service. It speaks
// bearer-token authenticated JSON and maps each endpoint to one method; all
// orchestration (debounce, polling, recovery) lives above it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hallidaylabs/payments-go/logger"
	"github.com/hallidaylabs/payments-go/metrics"
)

// DefaultBaseURL is the production payments service.
const DefaultBaseURL = "https://v2.prod.halliday.xyz"

// defaultTimeout bounds a single request when no custom http.Client is given.
const defaultTimeout = 30 * time.Second

// ClientConfig configures the API client.
type ClientConfig struct {
	// BaseURL is the service root. Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is sent as a bearer token on every request.
	APIKey string

	// HTTPClient overrides the default client (optional).
	HTTPClient *http.Client

	// Timeout applies when HTTPClient is nil (optional, defaults to 30s).
	Timeout time.Duration

	// Logger receives request/response diagnostics (optional).
	Logger logger.Logger

	// Metrics receives per-endpoint counters and latencies (optional).
	Metrics metrics.Recorder
}

// Client communicates with the payments service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        logger.Logger
	metrics    metrics.Recorder
}

// NewClient creates a payments API client.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = &ClientConfig{}
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	log := config.Logger
	if log == nil {
		log = logger.NoopLogger{}
	}

	rec := config.Metrics
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     config.APIKey,
		httpClient: httpClient,
		log:        log,
		metrics:    rec,
	}
}

// Error is a non-2xx response from the payments service. Body holds the raw
// payload so callers can surface provider error details unchanged.
type Error struct {
	Endpoint string
	Status   int
	Body     []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("payments %s failed (%d): %s", e.Endpoint, e.Status, string(e.Body))
}

// RequestQuotes prices a payment across every configured provider in one call.
func (c *Client) RequestQuotes(ctx context.Context, req *QuotesRequest) (*QuotesResponse, error) {
	var resp QuotesResponse
	if err := c.do(ctx, http.MethodPost, "/payments/quotes", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConfirmPayment accepts a quote and opens the payment. Not idempotent: a
// failed confirm must be followed by a fresh quote, never a blind retry.
func (c *Client) ConfirmPayment(ctx context.Context, req *ConfirmRequest) (*ConfirmResponse, error) {
	var resp ConfirmResponse
	if err := c.do(ctx, http.MethodPost, "/payments/confirm", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPayment fetches the current state of a payment. Safe to poll.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	query := url.Values{"payment_id": {paymentID}}
	var resp Payment
	if err := c.do(ctx, http.MethodGet, "/payments", query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPaymentHistory fetches one page of an owner's payment history, most
// recent first. Pass the previous page's NextPaginationKey to continue.
func (c *Client) GetPaymentHistory(ctx context.Context, ownerAddress string, limit int, paginationKey string) (*HistoryResponse, error) {
	query := url.Values{
		"category":      {"ALL"},
		"owner_address": {ownerAddress},
	}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}
	if paginationKey != "" {
		query.Set("pagination_key", paginationKey)
	}

	var resp HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/payments/history", query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProcessingBalances reports token balances held by a payment's processing
// addresses. Safe to poll.
func (c *Client) GetProcessingBalances(ctx context.Context, paymentID string) (*BalancesResponse, error) {
	var resp BalancesResponse
	if err := c.do(ctx, http.MethodPost, "/payments/balances", nil, &BalancesRequest{PaymentID: paymentID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RequestWithdrawAuthorization asks for the typed-data descriptor the payment
// owner must sign to release stranded funds.
func (c *Client) RequestWithdrawAuthorization(ctx context.Context, req *WithdrawRequest) (*WithdrawResponse, error) {
	var resp WithdrawResponse
	if err := c.do(ctx, http.MethodPost, "/payments/withdraw", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConfirmWithdraw submits the owner's signature and broadcasts the withdrawal.
// The transaction hash in the response is final; no polling is needed.
func (c *Client) ConfirmWithdraw(ctx context.Context, req *WithdrawConfirmRequest) (*WithdrawConfirmResponse, error) {
	var resp WithdrawConfirmResponse
	if err := c.do(ctx, http.MethodPost, "/payments/withdraw/confirm", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAssets fetches the supported-asset reference table, keyed by asset id.
func (c *Client) GetAssets(ctx context.Context) (map[string]Asset, error) {
	var resp map[string]Asset
	if err := c.do(ctx, http.MethodGet, "/assets", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetChains fetches the supported-chain reference table, keyed by chain name.
func (c *Client) GetChains(ctx context.Context) (map[string]Chain, error) {
	var resp map[string]Chain
	if err := c.do(ctx, http.MethodGet, "/chains", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// do issues one request and decodes the response into out. Non-2xx responses
// become *Error with the raw body attached.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(encoded)
	}

	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.IncCounter("request_error", map[string]string{"endpoint": endpoint})
		return fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response body: %w", endpoint, err)
	}

	c.metrics.IncCounter("request", map[string]string{"endpoint": endpoint})
	c.metrics.ObserveLatency("request", time.Since(start), map[string]string{"endpoint": endpoint})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("payments API error", map[string]any{
			"endpoint": endpoint,
			"status":   resp.StatusCode,
			"body":     string(responseBody),
		})
		return &Error{Endpoint: endpoint, Status: resp.StatusCode, Body: responseBody}
	}

	if out != nil {
		if err := json.Unmarshal(responseBody, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
		}
	}

	c.log.Debug("payments API call", map[string]any{
		"endpoint": endpoint,
		"status":   resp.StatusCode,
	})

	return nil
}
