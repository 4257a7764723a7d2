package payments

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Flow identifies which user journey a quote belongs to.
type Flow string

const (
	FlowOnramp Flow = "onramp"
	FlowSwap   Flow = "swap"
	FlowRetry  Flow = "retry"
)

// Provider identifies who fulfills a quote. Onramp flows quote several
// providers at once; swap and retry flows settle through the aggregator
// itself, recorded as ProviderAggregator.
type Provider string

const ProviderAggregator Provider = "halliday"

// Quote is an immutable snapshot of one provider's priced offer. A later
// fetch for the same key supersedes it; it is never mutated in place.
type Quote struct {
	Provider     Provider
	PaymentID    string
	StateToken   string
	InputAmount  decimal.Decimal
	OutputAmount decimal.Decimal
	UnitPrice    decimal.Decimal
	FeesTotal    decimal.Decimal
	ExpiresAt    time.Time

	// ErrorMessage is set when the provider could not quote this amount
	// (below minimum, above maximum, no liquidity). Such a quote is shown
	// inline but never selectable.
	ErrorMessage string
}

// IsSelectable reports whether the quote can be accepted at the given
// instant: feasible, positive output, and not yet expired. Expiration uses
// the client's wall clock; the API's clock is trusted to agree.
func (q Quote) IsSelectable(now time.Time) bool {
	return q.ErrorMessage == "" && q.OutputAmount.IsPositive() && now.Before(q.ExpiresAt)
}

// zeroQuote is the sentinel for providers absent from a fetch result, so a
// previous amount's quote never bleeds into the current display.
func zeroQuote(provider Provider) Quote {
	return Quote{
		Provider:     provider,
		InputAmount:  decimal.Zero,
		OutputAmount: decimal.Zero,
	}
}

// QuoteKey partitions the cache. Each flow instance has at most one amount in
// flight, so flow plus provider is sufficient.
type QuoteKey struct {
	Flow     Flow
	Provider Provider
}

// QuoteCache holds the latest quote per key. Pure in-memory state, no
// network calls; selection among cached quotes is the caller's business.
type QuoteCache struct {
	mu     sync.RWMutex
	quotes map[QuoteKey]Quote
}

// NewQuoteCache creates an empty cache.
func NewQuoteCache() *QuoteCache {
	return &QuoteCache{
		quotes: make(map[QuoteKey]Quote),
	}
}

// Get returns the cached quote for key, if any.
func (c *QuoteCache) Get(key QuoteKey) (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[key]
	return q, ok
}

// Put stores a quote, superseding any previous one for the key.
func (c *QuoteCache) Put(key QuoteKey, q Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[key] = q
}

// IsExpired reports whether the cached quote for key is stale at now. A
// missing quote counts as expired.
func (c *QuoteCache) IsExpired(key QuoteKey, now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[key]
	if !ok {
		return true
	}
	return !now.Before(q.ExpiresAt)
}

// BestQuote picks the preferred quote among selectable candidates: lowest
// unit price, ties broken by latest expiration. Returns false when nothing
// is selectable.
func BestQuote(quotes []Quote, now time.Time) (Quote, bool) {
	var best Quote
	found := false
	for _, q := range quotes {
		if !q.IsSelectable(now) {
			continue
		}
		if !found {
			best = q
			found = true
			continue
		}
		switch q.UnitPrice.Cmp(best.UnitPrice) {
		case -1:
			best = q
		case 0:
			if q.ExpiresAt.After(best.ExpiresAt) {
				best = q
			}
		}
	}
	return best, found
}
