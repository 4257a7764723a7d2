package payments

import (
	"context"

	"github.com/hallidaylabs/payments-go/api"
	"github.com/hallidaylabs/payments-go/evm"
)

// FundingInstruction tells the caller how to fund an opened payment. Exactly
// one of FundingPageURL (onramp) or DepositAddress (swap, retry) is set.
type FundingInstruction struct {
	FundingPageURL string

	// DepositAddress is the processing address to transfer into, with the
	// exact amount and asset consumed by the first route step.
	DepositAddress string
	Amount         string
	Asset          string
}

// OpenedPayment is the orchestrator's view of a freshly confirmed payment.
type OpenedPayment struct {
	PaymentID           string
	Status              api.PaymentStatus
	Funding             FundingInstruction
	ProcessingAddresses []string
}

// Accept turns a selectable quote into an opened payment. Preconditions are
// checked locally: the quote must be selectable right now and both addresses
// must be well-formed. A non-2xx confirm surfaces the raw API error; accept
// is not retried automatically since a failed confirm needs a fresh quote.
func (c *Client) Accept(ctx context.Context, quote Quote, ownerAddress, destinationAddress string) (*OpenedPayment, error) {
	now := c.now()
	if quote.ErrorMessage != "" || !quote.OutputAmount.IsPositive() {
		return nil, NewFlowError(ErrCodeNoQuote, "quote has no positive output", map[string]interface{}{
			"provider": string(quote.Provider),
		})
	}
	if !now.Before(quote.ExpiresAt) {
		return nil, NewFlowError(ErrCodeQuoteExpired, "quote expired, refresh before accepting", map[string]interface{}{
			"provider":   string(quote.Provider),
			"expires_at": quote.ExpiresAt,
		})
	}
	if !evm.IsValidAddress(ownerAddress) {
		return nil, NewFlowError(ErrCodeInvalidAddress, "malformed owner address", nil)
	}
	if !evm.IsValidAddress(destinationAddress) {
		return nil, NewFlowError(ErrCodeInvalidAddress, "malformed destination address", nil)
	}

	resp, err := c.api.ConfirmPayment(ctx, &api.ConfirmRequest{
		PaymentID:          quote.PaymentID,
		StateToken:         quote.StateToken,
		OwnerAddress:       ownerAddress,
		DestinationAddress: destinationAddress,
	})
	if err != nil {
		return nil, err
	}

	opened := &OpenedPayment{
		PaymentID: resp.PaymentID,
		Status:    resp.Status,
		Funding: FundingInstruction{
			FundingPageURL: resp.NextInstruction.FundingPageURL,
		},
	}

	if len(resp.NextInstruction.DepositInfo) > 0 {
		opened.Funding.DepositAddress = resp.NextInstruction.DepositInfo[0].DepositAddress
	}
	for _, addr := range resp.ProcessingAddresses {
		opened.ProcessingAddresses = append(opened.ProcessingAddresses, addr.Address)
	}

	// The first route step says exactly what the user must transfer.
	if resp.Quoted != nil && len(resp.Quoted.Route) > 0 {
		if effect := resp.Quoted.Route[0].NetEffect; effect != nil && len(effect.Consume) > 0 {
			opened.Funding.Amount = effect.Consume[0].Amount
			opened.Funding.Asset = effect.Consume[0].Resource.Asset
			if opened.Funding.DepositAddress == "" && len(opened.ProcessingAddresses) > 0 {
				opened.Funding.DepositAddress = opened.ProcessingAddresses[0]
			}
		}
	}

	c.log.Info("payment opened", map[string]any{
		"payment_id": opened.PaymentID,
		"status":     string(opened.Status),
	})

	return opened, nil
}
