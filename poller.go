package payments

import (
	"context"
	"sync"
	"time"

	"github.com/hallidaylabs/payments-go/api"
)

// Poller runs a tick function on a fixed interval until the function reports
// it is done or Stop is called. Each poller owns its ticker; the component
// that starts a poll owns the state its ticks write.
type Poller struct {
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewPoller creates a poller with the given interval.
func NewPoller(interval time.Duration) *Poller {
	return &Poller{
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Run executes tick on the interval until tick returns true, Stop is called,
// or the context ends. Blocks; callers run it in their own goroutine.
func (p *Poller) Run(ctx context.Context, tick func(ctx context.Context) bool) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if tick(ctx) {
			p.Stop()
			return
		}

		// Stop may have been called while tick was in flight; its result
		// must not start another cycle.
		select {
		case <-p.stop:
			return
		default:
		}
	}
}

// Stop ends the poll. Safe to call any number of times, from any goroutine.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
}

// stopped reports whether Stop has been called.
func (p *Poller) stopped() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

// StatusUpdate is one observation of a watched payment.
type StatusUpdate struct {
	PaymentID string
	Status    api.PaymentStatus
	Route     []api.RouteStep
	UpdatedAt string

	// TransactionHash and ExplorerTxURL are set on the COMPLETE update when
	// the route's final step carries a hash and the destination chain has a
	// known explorer.
	TransactionHash string
	ExplorerTxURL   string
}

// Watch is a handle on a running settlement poll.
type Watch struct {
	poller *Poller
}

// Stop cancels the watch. Unconditional and idempotent; an in-flight status
// request finishes but its result is dropped.
func (w *Watch) Stop() {
	w.poller.Stop()
}

// WatchPayment polls a payment's status until it reaches a terminal state,
// invoking onUpdate with each observation. The poller stops itself strictly
// after observing a terminal status; it never polls past one. Pass interval
// 0 for the configured default. Independent watches share no mutable state.
func (c *Client) WatchPayment(ctx context.Context, paymentID string, interval time.Duration, onUpdate func(StatusUpdate)) *Watch {
	if interval == 0 {
		interval = c.cfg.PollInterval
	}

	w := &Watch{poller: NewPoller(interval)}

	go w.poller.Run(ctx, func(ctx context.Context) bool {
		payment, err := c.api.GetPayment(ctx, paymentID)
		if err != nil {
			// Transient failure: keep polling, the next tick may succeed.
			c.log.Warn("status poll failed", map[string]any{
				"payment_id": paymentID,
				"error":      err.Error(),
			})
			return false
		}
		if w.poller.stopped() {
			// Cancelled while the request was in flight; drop the result.
			return true
		}

		update := StatusUpdate{
			PaymentID: paymentID,
			Status:    payment.Status,
			UpdatedAt: payment.UpdatedAt,
		}
		if payment.Fulfilled != nil {
			update.Route = payment.Fulfilled.Route
		}

		if payment.Status == api.StatusComplete && payment.Fulfilled != nil && len(payment.Fulfilled.Route) > 0 {
			last := payment.Fulfilled.Route[len(payment.Fulfilled.Route)-1]
			if last.TransactionHash != "" {
				update.TransactionHash = last.TransactionHash
				chain := chainOfAsset(payment.Fulfilled.OutputAmount.Asset)
				update.ExplorerTxURL = c.ExplorerTxURL(ctx, chain, last.TransactionHash)
			}
		}

		onUpdate(update)

		return payment.Status.Terminal()
	})

	return w
}
