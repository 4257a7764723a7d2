package payments

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/hallidaylabs/payments-go/api"
)

// PaymentKind classifies a payment by how it was funded.
type PaymentKind string

const (
	KindOnramp PaymentKind = "Onramp"
	KindSwap   PaymentKind = "Swap"
)

// StuckPayment is a payment that never completed and still holds a non-zero
// balance in its processing addresses. It is a point-in-time snapshot:
// triggering any recovery action invalidates it, so rescan before reuse.
type StuckPayment struct {
	PaymentID     string
	Status        api.PaymentStatus
	Kind          PaymentKind
	Provider      string
	InputSymbol   string
	OutputSymbol  string
	OutputAsset   string
	StrandedTotal decimal.Decimal
	Balances      []api.BalanceResult
	CreatedAt     string
}

// FindStuckPayments scans the owner's recent payment history for payments
// that are not COMPLETE and still hold funds. Balance lookups run
// sequentially over a capped history, so a scan can take several seconds;
// callers should show progress. The result is deterministic for unchanged
// history and balances: same membership, same order.
func (c *Client) FindStuckPayments(ctx context.Context, ownerAddress string) ([]*StuckPayment, error) {
	history, err := c.api.GetPaymentHistory(ctx, ownerAddress, c.cfg.HistoryScanLimit, "")
	if err != nil {
		return nil, err
	}

	assets, err := c.SupportedAssets(ctx)
	if err != nil {
		return nil, err
	}

	recent := history.PaymentStatuses
	if len(recent) > c.cfg.HistoryScanLimit {
		recent = recent[:c.cfg.HistoryScanLimit]
	}

	var stuck []*StuckPayment
	for _, payment := range recent {
		if payment.Status == api.StatusComplete {
			continue
		}

		balances, err := c.api.GetProcessingBalances(ctx, payment.PaymentID)
		if err != nil {
			c.log.Warn("balance lookup failed during scan", map[string]any{
				"payment_id": payment.PaymentID,
				"error":      err.Error(),
			})
			continue
		}

		total := decimal.Zero
		for _, balance := range balances.BalanceResults {
			amount, err := decimal.NewFromString(balance.Value.Amount)
			if err != nil {
				continue
			}
			total = total.Add(amount)
		}
		if total.IsZero() {
			continue
		}

		stuck = append(stuck, c.classifyStuck(payment, balances.BalanceResults, total, assets))
	}

	return stuck, nil
}

// classifyStuck derives the display fields of a stuck payment from its quoted
// route: swaps start with a USER_FUND step, everything else is an onramp.
func (c *Client) classifyStuck(payment api.Payment, balances []api.BalanceResult, total decimal.Decimal, assets map[string]api.Asset) *StuckPayment {
	s := &StuckPayment{
		PaymentID:     payment.PaymentID,
		Status:        payment.Status,
		Kind:          KindOnramp,
		Provider:      "Halliday",
		StrandedTotal: total,
		Balances:      balances,
		CreatedAt:     payment.CreatedAt,
	}

	if payment.Quoted == nil {
		return s
	}

	var consumedAsset string
	if len(payment.Quoted.Route) > 0 {
		step := payment.Quoted.Route[0]
		if step.Type == api.RouteStepTypeUserFund {
			s.Kind = KindSwap
		}
		if step.NetEffect != nil && len(step.NetEffect.Consume) > 0 {
			consumedAsset = step.NetEffect.Consume[0].Resource.Asset
		}
	}

	if s.Kind == KindOnramp {
		s.InputSymbol = strings.ToUpper(consumedAsset)
	} else if asset, ok := assets[consumedAsset]; ok {
		s.InputSymbol = asset.Symbol
	} else {
		s.InputSymbol = "Unknown"
	}

	s.OutputAsset = payment.Quoted.OutputAmount.Asset
	if asset, ok := assets[s.OutputAsset]; ok {
		s.OutputSymbol = asset.Symbol
	} else {
		s.OutputSymbol = "Unknown"
	}

	if onramp := payment.Quoted.Onramp; onramp != "" {
		s.Provider = strings.ToUpper(onramp[:1]) + onramp[1:]
	}

	return s
}

// RecoveryState is the signing/submission sub-state of one recovery option.
// Each option is updated only by the goroutine driving it.
type RecoveryState int

const (
	RecoveryIdle RecoveryState = iota
	RecoverySigning
	RecoverySubmitting
	RecoveryComplete
	RecoveryFailed
)

func (s RecoveryState) String() string {
	switch s {
	case RecoveryIdle:
		return "idle"
	case RecoverySigning:
		return "signing"
	case RecoverySubmitting:
		return "submitting"
	case RecoveryComplete:
		return "complete"
	case RecoveryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// recoveryProgress is the shared sub-state of retry and withdraw options.
type recoveryProgress struct {
	mu          sync.Mutex
	state       RecoveryState
	txHash      string
	explorerURL string
}

func (p *recoveryProgress) setState(s RecoveryState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// State returns the option's current sub-state.
func (p *recoveryProgress) State() RecoveryState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Result returns the transaction hash and explorer link once complete.
func (p *recoveryProgress) Result() (txHash, explorerURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.txHash, p.explorerURL
}

func (p *recoveryProgress) complete(txHash, explorerURL string) {
	p.mu.Lock()
	p.state = RecoveryComplete
	p.txHash = txHash
	p.explorerURL = explorerURL
	p.mu.Unlock()
}

// RetryOption routes one stranded balance through a fresh quote back toward
// the original output asset.
type RetryOption struct {
	recoveryProgress

	Balance         api.BalanceResult
	Quote           Quote
	ParentPaymentID string
	NewPaymentID    string
}

// SkippedBalance records a stranded balance that could not be re-quoted.
// Feasibility depends on asset and liquidity and must be ascertained fresh
// every time, so skipped balances are reported, never retried automatically.
type SkippedBalance struct {
	Balance api.BalanceResult
	Notice  string
}

// BuildRetryOptions re-quotes every non-zero stranded balance of a stuck
// payment, tagging each request with the parent payment id. Balances with no
// feasible quote come back as SkippedBalance with a user-facing notice.
func (c *Client) BuildRetryOptions(ctx context.Context, stuck *StuckPayment) ([]*RetryOption, []SkippedBalance, error) {
	var options []*RetryOption
	var skipped []SkippedBalance

	for _, balance := range stuck.Balances {
		amount, err := decimal.NewFromString(balance.Value.Amount)
		if err != nil || amount.IsZero() {
			continue
		}

		resp, err := c.api.RequestQuotes(ctx, &api.QuotesRequest{
			Request: api.PriceRequest{
				Kind:             api.RequestKindFixedInput,
				FixedInputAmount: api.AssetAmount{Asset: balance.Token, Amount: balance.Value.Amount},
				OutputAsset:      stuck.OutputAsset,
			},
			PriceCurrency:   c.cfg.PriceCurrency,
			ParentPaymentID: stuck.PaymentID,
		})
		if err != nil {
			return nil, nil, err
		}

		if len(resp.Quotes) == 0 {
			skipped = append(skipped, SkippedBalance{
				Balance: balance,
				Notice:  "Retry not possible for this balance. Use withdrawal instead.",
			})
			continue
		}

		quotes := partitionQuotes(resp, []Provider{ProviderAggregator}, balance.Value.Amount)
		options = append(options, &RetryOption{
			Balance:         balance,
			Quote:           quotes[0],
			ParentPaymentID: stuck.PaymentID,
		})
	}

	return options, skipped, nil
}

// SignAndSubmitRetry drives one retry option to completion: accept the new
// quote, authorize moving the original stranded balance to the new payment's
// deposit address, sign, submit, then watch the new payment until COMPLETE.
// The returned watch updates the option's sub-state; callers may stop it.
// A declined signature resets the option to idle so it stays retryable.
func (c *Client) SignAndSubmitRetry(ctx context.Context, stuck *StuckPayment, option *RetryOption, onUpdate func(StatusUpdate)) (*Watch, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("no signer configured")
	}

	owner, err := c.signer.Address(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve owner address: %w", err)
	}

	option.setState(RecoverySubmitting)
	opened, err := c.Accept(ctx, option.Quote, owner, owner)
	if err != nil {
		option.setState(RecoveryFailed)
		return nil, err
	}
	option.mu.Lock()
	option.NewPaymentID = opened.PaymentID
	option.mu.Unlock()

	depositAddress := opened.Funding.DepositAddress
	if depositAddress == "" {
		option.setState(RecoveryFailed)
		return nil, fmt.Errorf("retry confirm returned no deposit address for payment %s", opened.PaymentID)
	}

	// The authorization moves the ORIGINAL stranded balance out of the stuck
	// payment and into the new payment's deposit address.
	signature, err := c.signWithdrawAuthorization(ctx, stuck.PaymentID, option.Balance, depositAddress, option)
	if err != nil {
		return nil, err
	}

	option.setState(RecoverySubmitting)
	if _, err := c.api.ConfirmWithdraw(ctx, &api.WithdrawConfirmRequest{
		PaymentID:        stuck.PaymentID,
		TokenAmounts:     []api.TokenAmount{{Token: option.Balance.Token, Amount: option.Balance.Value.Amount}},
		RecipientAddress: depositAddress,
		OwnerSignature:   signature,
	}); err != nil {
		option.setState(RecoveryFailed)
		return nil, err
	}

	watch := c.WatchPayment(ctx, opened.PaymentID, c.cfg.RecoveryPollInterval, func(update StatusUpdate) {
		if update.Status == api.StatusComplete {
			option.complete(update.TransactionHash, update.ExplorerTxURL)
		} else if update.Status == api.StatusFailed {
			option.setState(RecoveryFailed)
		}
		if onUpdate != nil {
			onUpdate(update)
		}
	})

	return watch, nil
}

// WithdrawOption returns one stranded balance directly to the owner, no
// re-quoting.
type WithdrawOption struct {
	recoveryProgress

	Balance   api.BalanceResult
	TokenName string
	Amount    decimal.Decimal
}

// BuildWithdrawOptions builds one option per non-zero stranded balance. The
// sum of option amounts equals the sum of non-zero balance entries.
func (c *Client) BuildWithdrawOptions(ctx context.Context, stuck *StuckPayment) []*WithdrawOption {
	assets, err := c.SupportedAssets(ctx)
	if err != nil {
		c.log.Warn("asset lookup failed, using raw token ids", map[string]any{"error": err.Error()})
		assets = map[string]api.Asset{}
	}

	var options []*WithdrawOption
	for _, balance := range stuck.Balances {
		amount, err := decimal.NewFromString(balance.Value.Amount)
		if err != nil || amount.IsZero() {
			continue
		}

		name := "Unknown Token"
		if asset, ok := assets[balance.Token]; ok && asset.Name != "" {
			name = asset.Name
		}

		options = append(options, &WithdrawOption{
			Balance:   balance,
			TokenName: name,
			Amount:    amount,
		})
	}
	return options
}

// SignAndSubmitWithdraw authorizes, signs and submits a direct withdrawal of
// one stranded balance to the owner's address. Withdrawal confirmation is
// synchronous: the submit response carries the final transaction hash, so no
// polling follows.
func (c *Client) SignAndSubmitWithdraw(ctx context.Context, stuck *StuckPayment, option *WithdrawOption) error {
	if c.signer == nil {
		return fmt.Errorf("no signer configured")
	}

	owner, err := c.signer.Address(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve owner address: %w", err)
	}

	signature, err := c.signWithdrawAuthorization(ctx, stuck.PaymentID, option.Balance, owner, option)
	if err != nil {
		return err
	}

	option.setState(RecoverySubmitting)
	resp, err := c.api.ConfirmWithdraw(ctx, &api.WithdrawConfirmRequest{
		PaymentID:        stuck.PaymentID,
		TokenAmounts:     []api.TokenAmount{{Token: option.Balance.Token, Amount: option.Balance.Value.Amount}},
		RecipientAddress: owner,
		OwnerSignature:   signature,
	})
	if err != nil {
		option.setState(RecoveryFailed)
		return err
	}

	chain := chainOfAsset(option.Balance.Token)
	option.complete(resp.TransactionHash, c.ExplorerTxURL(ctx, chain, resp.TransactionHash))

	c.log.Info("withdrawal complete", map[string]any{
		"payment_id": stuck.PaymentID,
		"token":      option.Balance.Token,
		"tx_hash":    resp.TransactionHash,
	})

	return nil
}

// recoveryOption is the sub-state shared by both option kinds.
type recoveryOption interface {
	setState(RecoveryState)
}

// signWithdrawAuthorization fetches the typed-data descriptor for moving a
// stranded balance to recipient, strips the domain self-declaration and asks
// the signing boundary for a signature. A declined signature resets the
// option to idle; it stays retryable.
func (c *Client) signWithdrawAuthorization(ctx context.Context, paymentID string, balance api.BalanceResult, recipient string, option recoveryOption) (string, error) {
	resp, err := c.api.RequestWithdrawAuthorization(ctx, &api.WithdrawRequest{
		PaymentID:        paymentID,
		TokenAmounts:     []api.TokenAmount{{Token: balance.Token, Amount: balance.Value.Amount}},
		RecipientAddress: recipient,
	})
	if err != nil {
		option.setState(RecoveryFailed)
		return "", err
	}

	typedData, err := ParseWithdrawAuthorization(resp.WithdrawAuthorization)
	if err != nil {
		option.setState(RecoveryFailed)
		return "", err
	}

	option.setState(RecoverySigning)
	signature, err := c.signer.SignTypedData(ctx, typedData)
	if err != nil {
		option.setState(RecoveryIdle)
		return "", fmt.Errorf("signature declined: %w", err)
	}

	return signature, nil
}
