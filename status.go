package payments

import (
	"fmt"

	"github.com/hallidaylabs/payments-go/api"
)

// ViewState is the small state-machine view a renderer needs. Derived purely
// from a payment snapshot so it can be tested without any UI.
type ViewState int

const (
	// ViewAwaitingFunding: the payment is open and waiting for the user to
	// fund the processing address.
	ViewAwaitingFunding ViewState = iota
	// ViewInProgress: funds received, route steps settling.
	ViewInProgress
	// ViewComplete: terminal success.
	ViewComplete
	// ViewFailed: terminal failure, recovery may apply.
	ViewFailed
)

func (s ViewState) String() string {
	switch s {
	case ViewAwaitingFunding:
		return "awaiting_funding"
	case ViewInProgress:
		return "in_progress"
	case ViewComplete:
		return "complete"
	case ViewFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ViewStateOf maps a payment snapshot to its view state.
func ViewStateOf(p *api.Payment) ViewState {
	switch p.Status {
	case api.StatusComplete:
		return ViewComplete
	case api.StatusFailed:
		return ViewFailed
	}
	if p.Fulfilled != nil && len(p.Fulfilled.Route) > 0 && p.Fulfilled.Route[0].Status == api.StatusPending {
		return ViewAwaitingFunding
	}
	return ViewInProgress
}

// StatusContext renders a one-line human explanation of the payment's state.
func StatusContext(p *api.Payment) string {
	switch ViewStateOf(p) {
	case ViewComplete:
		return "Complete. Check the destination address for the output tokens."
	case ViewFailed:
		return "Failed. Stranded funds can be recovered via retry or withdrawal."
	case ViewAwaitingFunding:
		var amount, address string
		if p.Quoted != nil && len(p.Quoted.Route) > 0 {
			if effect := p.Quoted.Route[0].NetEffect; effect != nil && len(effect.Consume) > 0 {
				amount = effect.Consume[0].Amount
			}
		}
		if len(p.ProcessingAddresses) > 0 {
			address = p.ProcessingAddresses[0].Address
		}
		return fmt.Sprintf("Waiting for the processing address (%s) to be funded with %s tokens.", address, amount)
	default:
		return "Settlement in progress."
	}
}
