// Package payments orchestrates the client side of a payments API: debounced
// quote fetching with freshness refresh, quote acceptance, settlement status
// polling, and recovery of funds stranded in incomplete payments.
package payments

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hallidaylabs/payments-go/api"
	"github.com/hallidaylabs/payments-go/logger"
	"github.com/hallidaylabs/payments-go/metrics"
)

// Client is the payment orchestrator. It owns the API client and the shared
// reference-data caches; per-flow state lives in the fetchers, watches and
// recovery options it hands out.
type Client struct {
	cfg     Config
	api     *api.Client
	log     logger.Logger
	metrics metrics.Recorder
	signer  Signer
	now     func() time.Time

	refMu  sync.Mutex
	assets map[string]api.Asset
	chains map[string]api.Chain
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithMetrics sets the metrics recorder. Defaults to a no-op recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

// WithSigner binds the signing boundary used by the recovery flows.
func WithSigner(s Signer) Option {
	return func(c *Client) {
		c.signer = s
	}
}

// WithClock overrides the wall clock, letting tests control quote expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a client from an explicit config.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	c := &Client{
		cfg:     cfg,
		log:     logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.api = api.NewClient(&api.ClientConfig{
		BaseURL:    cfg.APIBaseURL,
		APIKey:     cfg.APIKey,
		HTTPClient: cfg.HTTPClient,
		Timeout:    cfg.Timeout,
		Logger:     c.log,
		Metrics:    c.metrics,
	})

	return c, nil
}

// API exposes the underlying payments API client.
func (c *Client) API() *api.Client {
	return c.api
}

// SupportedAssets returns the asset reference table, fetched once and cached
// for the lifetime of the client.
func (c *Client) SupportedAssets(ctx context.Context) (map[string]api.Asset, error) {
	c.refMu.Lock()
	defer c.refMu.Unlock()
	if c.assets != nil {
		return c.assets, nil
	}
	assets, err := c.api.GetAssets(ctx)
	if err != nil {
		return nil, err
	}
	c.assets = assets
	return assets, nil
}

// SupportedChains returns the chain reference table, fetched once and cached
// for the lifetime of the client.
func (c *Client) SupportedChains(ctx context.Context) (map[string]api.Chain, error) {
	c.refMu.Lock()
	defer c.refMu.Unlock()
	if c.chains != nil {
		return c.chains, nil
	}
	chains, err := c.api.GetChains(ctx)
	if err != nil {
		return nil, err
	}
	c.chains = chains
	return chains, nil
}

// ExplorerTxURL resolves a ready-to-link transaction URL for a chain. Returns
// "" when the chain is unknown.
func (c *Client) ExplorerTxURL(ctx context.Context, chain, txHash string) string {
	chains, err := c.SupportedChains(ctx)
	if err != nil {
		c.log.Warn("chain lookup failed", map[string]any{"chain": chain, "error": err.Error()})
		return ""
	}
	info, ok := chains[chain]
	if !ok || info.Explorer == "" {
		return ""
	}
	return info.Explorer + "tx/" + txHash
}

// chainOfAsset extracts the chain component of an asset id like
// "base:0x833..." or "story:0x".
func chainOfAsset(asset string) string {
	chain, _, _ := strings.Cut(asset, ":")
	return chain
}
