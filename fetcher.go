package payments

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hallidaylabs/payments-go/api"
)

// amountPattern accepts the decimal strings users can type: digits with at
// most one dot, including partial input like "1." or ".5".
var amountPattern = regexp.MustCompile(`^[0-9]*\.?[0-9]*$`)

// ValidAmountInput reports whether value is acceptable amount input.
func ValidAmountInput(value string) bool {
	return amountPattern.MatchString(value)
}

// FetcherConfig describes one quoting flow instance.
type FetcherConfig struct {
	Flow        Flow
	InputAsset  string
	OutputAsset string

	// ParentPaymentID links retry quotes to the payment being recovered.
	ParentPaymentID string

	// OnQuotes is invoked after each successful fetch with the fresh quote
	// set, in the fetcher's goroutine (optional).
	OnQuotes func(quotes []Quote)
}

// QuoteFetcher keeps a flow's quotes fresh. Amount changes are debounced so a
// typing user issues one pricing request per quiet period; a background
// freshness check re-fetches with the last amount once the active quote
// expires. All cache writes are guarded by a generation counter so a slow
// response never overwrites a newer amount's result.
type QuoteFetcher struct {
	id              string
	client          *Client
	cache           *QuoteCache
	flow            Flow
	inputAsset      string
	outputAsset     string
	parentPaymentID string
	onramps         []string
	onQuotes        func([]Quote)

	mu       sync.Mutex
	amount   string
	gen      uint64
	timer    *time.Timer
	fetching bool

	stop     chan struct{}
	stopOnce sync.Once
}

// NewQuoteFetcher creates a fetcher for one flow instance and starts its
// freshness check. Stop it when the flow is left.
func (c *Client) NewQuoteFetcher(ctx context.Context, fc FetcherConfig) *QuoteFetcher {
	f := &QuoteFetcher{
		id:              uuid.NewString(),
		client:          c,
		cache:           NewQuoteCache(),
		flow:            fc.Flow,
		inputAsset:      fc.InputAsset,
		outputAsset:     fc.OutputAsset,
		parentPaymentID: fc.ParentPaymentID,
		onQuotes:        fc.OnQuotes,
		stop:            make(chan struct{}),
	}
	if fc.Flow == FlowOnramp {
		f.onramps = c.cfg.SupportedOnramps
	}

	go f.refreshLoop(ctx)

	return f
}

// Cache exposes the fetcher's quote cache.
func (f *QuoteFetcher) Cache() *QuoteCache {
	return f.cache
}

// providers lists the quote partitions of this flow.
func (f *QuoteFetcher) providers() []Provider {
	if len(f.onramps) == 0 {
		return []Provider{ProviderAggregator}
	}
	out := make([]Provider, len(f.onramps))
	for i, o := range f.onramps {
		out[i] = Provider(o)
	}
	return out
}

// Quotes returns the current quote per provider, zero sentinels included.
func (f *QuoteFetcher) Quotes() []Quote {
	providers := f.providers()
	out := make([]Quote, 0, len(providers))
	for _, p := range providers {
		q, ok := f.cache.Get(QuoteKey{Flow: f.flow, Provider: p})
		if !ok {
			q = zeroQuote(p)
		}
		out = append(out, q)
	}
	return out
}

// Best returns the preferred selectable quote, if any.
func (f *QuoteFetcher) Best() (Quote, bool) {
	return BestQuote(f.Quotes(), f.client.now())
}

// SetAmount records a new input amount and schedules a debounced fetch.
// Malformed input returns a FlowError without touching state; empty and "0"
// cancel any pending fetch and issue no request.
func (f *QuoteFetcher) SetAmount(ctx context.Context, value string) error {
	if !ValidAmountInput(value) {
		return NewFlowError(ErrCodeInvalidAmount, "amount must be a non-negative decimal", map[string]interface{}{
			"amount": value,
		})
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.amount = value
	f.gen++

	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}

	if value == "" || value == "0" {
		return nil
	}

	gen := f.gen
	f.timer = time.AfterFunc(f.client.cfg.DebounceInterval, func() {
		f.fetch(ctx, value, gen)
	})

	return nil
}

// Refresh issues an immediate fetch with the last entered amount.
func (f *QuoteFetcher) Refresh(ctx context.Context) {
	f.mu.Lock()
	amount := f.amount
	f.gen++
	gen := f.gen
	f.mu.Unlock()

	if amount == "" || amount == "0" {
		return
	}
	f.fetch(ctx, amount, gen)
}

// Stop cancels the pending debounce timer and the freshness check. Idempotent.
func (f *QuoteFetcher) Stop() {
	f.stopOnce.Do(func() {
		close(f.stop)
	})
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.gen++ // orphan any in-flight fetch
	f.mu.Unlock()
}

// refreshLoop re-fetches once the live quote set has expired, using the last
// known amount. It never prompts the user.
func (f *QuoteFetcher) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(f.client.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		f.mu.Lock()
		amount := f.amount
		busy := f.fetching || f.timer != nil
		f.mu.Unlock()

		if busy || amount == "" || amount == "0" {
			continue
		}
		if !f.expired() {
			continue
		}
		f.Refresh(ctx)
	}
}

// expired reports whether every provider's quote is past its accept-by time.
func (f *QuoteFetcher) expired() bool {
	now := f.client.now()
	for _, p := range f.providers() {
		if !f.cache.IsExpired(QuoteKey{Flow: f.flow, Provider: p}, now) {
			return false
		}
	}
	return true
}

// fetch issues one batched pricing request and partitions the result per
// provider. A transport or API failure is logged and leaves the previous
// quotes in place; expiry then makes them non-actionable.
func (f *QuoteFetcher) fetch(ctx context.Context, amount string, gen uint64) {
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return
	}
	f.fetching = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.fetching = false
		f.mu.Unlock()
	}()

	req := &api.QuotesRequest{
		Request: api.PriceRequest{
			Kind:             api.RequestKindFixedInput,
			FixedInputAmount: api.AssetAmount{Asset: f.inputAsset, Amount: amount},
			OutputAsset:      f.outputAsset,
		},
		PriceCurrency:   f.client.cfg.PriceCurrency,
		ParentPaymentID: f.parentPaymentID,
	}
	if len(f.onramps) > 0 {
		req.Onramps = f.onramps
		req.OnrampMethods = f.client.cfg.OnrampMethods
		if f.client.cfg.CountryCode != "" {
			req.CustomerGeolocation = &api.Geolocation{Alpha3CountryCode: f.client.cfg.CountryCode}
		}
	}

	resp, err := f.client.api.RequestQuotes(ctx, req)
	if err != nil {
		f.client.log.Error("quote fetch failed", map[string]any{
			"fetcher_id": f.id,
			"flow":       string(f.flow),
			"amount":     amount,
			"error":      err.Error(),
		})
		return
	}

	quotes := partitionQuotes(resp, f.providers(), amount)

	f.mu.Lock()
	if gen != f.gen {
		// A newer amount was entered while this request was in flight.
		f.mu.Unlock()
		return
	}
	for _, q := range quotes {
		f.cache.Put(QuoteKey{Flow: f.flow, Provider: q.Provider}, q)
	}
	f.mu.Unlock()

	if f.onQuotes != nil {
		f.onQuotes(quotes)
	}
}

// partitionQuotes maps a batched quotes response onto one Quote per provider.
// Absent providers get the zero sentinel; per-provider infeasibility from the
// failures list is carried as an inline ErrorMessage, not discarded.
func partitionQuotes(resp *api.QuotesResponse, providers []Provider, inputAmount string) []Quote {
	expiresAt, err := time.Parse(time.RFC3339, resp.AcceptBy)
	if err != nil {
		expiresAt = time.Time{}
	}

	input, err := decimal.NewFromString(inputAmount)
	if err != nil {
		input = decimal.Zero
	}

	byProvider := make(map[Provider]Quote, len(providers))
	for _, p := range providers {
		byProvider[p] = zeroQuote(p)
	}

	for _, result := range resp.Quotes {
		provider := Provider(result.Onramp)
		if provider == "" {
			provider = ProviderAggregator
		}

		output, err := decimal.NewFromString(result.OutputAmount.Amount)
		if err != nil {
			output = decimal.Zero
		}
		fees, err := decimal.NewFromString(result.Fees.TotalFees)
		if err != nil {
			fees = decimal.Zero
		}

		var unitPrice decimal.Decimal
		if output.IsPositive() {
			unitPrice = input.DivRound(output, 8)
		}

		byProvider[provider] = Quote{
			Provider:     provider,
			PaymentID:    result.PaymentID,
			StateToken:   resp.StateToken,
			InputAmount:  input,
			OutputAmount: output,
			UnitPrice:    unitPrice,
			FeesTotal:    fees,
			ExpiresAt:    expiresAt,
		}
	}

	for _, failure := range resp.Failures {
		for _, issue := range failure.Issues {
			provider := Provider(issue.Source)
			q, ok := byProvider[provider]
			if !ok || q.PaymentID != "" {
				continue
			}
			q.ErrorMessage = issue.Message
			q.ExpiresAt = expiresAt
			byProvider[provider] = q
		}
	}

	out := make([]Quote, 0, len(byProvider))
	for _, p := range providers {
		out = append(out, byProvider[p])
	}
	return out
}

// FormatReceiveAmount renders an output amount for display, six decimal
// places, "-" when nothing is quoted.
func FormatReceiveAmount(q Quote) string {
	if !q.OutputAmount.IsPositive() {
		return "-"
	}
	return q.OutputAmount.StringFixed(6)
}

// FormatUnitPrice renders the per-token price label, or the provider's
// infeasibility message when the quote failed.
func FormatUnitPrice(q Quote) string {
	if q.ErrorMessage != "" {
		return "Error: " + q.ErrorMessage
	}
	if q.UnitPrice.IsZero() {
		return "$-"
	}
	return "$" + q.UnitPrice.StringFixed(2) + " per token"
}
