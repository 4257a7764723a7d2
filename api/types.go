package api

// PaymentStatus is the provider-owned status of a payment. The set is open
// ended; only the terminal values below are interpreted by this SDK.
type PaymentStatus string

const (
	StatusPending  PaymentStatus = "PENDING"
	StatusComplete PaymentStatus = "COMPLETE"
	StatusFailed   PaymentStatus = "FAILED"
)

// Terminal reports whether the status will never change again.
func (s PaymentStatus) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// AssetAmount is an amount of a specific asset. Amounts travel as decimal
// strings on the wire and are never parsed into floats.
type AssetAmount struct {
	Asset  string `json:"asset,omitempty"`
	Amount string `json:"amount"`
}

// RequestKindFixedInput asks for quotes where the input amount is fixed and
// the output amount floats.
const RequestKindFixedInput = "FIXED_INPUT"

// PriceRequest describes what is being priced.
type PriceRequest struct {
	Kind             string      `json:"kind"`
	FixedInputAmount AssetAmount `json:"fixed_input_amount"`
	OutputAsset      string      `json:"output_asset"`
}

// Geolocation narrows onramp availability by customer location.
type Geolocation struct {
	Alpha3CountryCode string `json:"alpha3_country_code"`
}

// QuotesRequest is the body of POST /payments/quotes. A single request covers
// every configured onramp; the API fans out internally.
type QuotesRequest struct {
	Request             PriceRequest `json:"request"`
	PriceCurrency       string       `json:"price_currency"`
	Onramps             []string     `json:"onramps,omitempty"`
	OnrampMethods       []string     `json:"onramp_methods,omitempty"`
	CustomerGeolocation *Geolocation `json:"customer_geolocation,omitempty"`
	ParentPaymentID     string       `json:"parent_payment_id,omitempty"`
}

// QuoteFees carries the fee breakdown of a single quote.
type QuoteFees struct {
	TotalFees string `json:"total_fees"`
}

// QuoteResult is one provider's priced offer inside a QuotesResponse.
type QuoteResult struct {
	Onramp       string      `json:"onramp,omitempty"`
	PaymentID    string      `json:"payment_id"`
	OutputAmount AssetAmount `json:"output_amount"`
	Fees         QuoteFees   `json:"fees"`
}

// QuoteIssue describes why a provider could not quote, e.g. the amount being
// below its minimum. Source names the provider at fault.
type QuoteIssue struct {
	Message string `json:"message"`
	Source  string `json:"source"`
}

// QuoteFailure groups the issues of one failed provider.
type QuoteFailure struct {
	Issues []QuoteIssue `json:"issues"`
}

// QuotesResponse is the body returned by POST /payments/quotes. StateToken is
// the opaque credential required to later confirm any quote in the batch;
// AcceptBy is the shared wall-clock expiration.
type QuotesResponse struct {
	StateToken    string            `json:"state_token"`
	AcceptBy      string            `json:"accept_by"`
	Quotes        []QuoteResult     `json:"quotes"`
	Failures      []QuoteFailure    `json:"failures,omitempty"`
	CurrentPrices map[string]string `json:"current_prices,omitempty"`
}

// ConfirmRequest is the body of POST /payments/confirm.
type ConfirmRequest struct {
	PaymentID          string `json:"payment_id"`
	StateToken         string `json:"state_token"`
	OwnerAddress       string `json:"owner_address"`
	DestinationAddress string `json:"destination_address"`
}

// DepositInfo names an address the user must fund to move the payment along.
type DepositInfo struct {
	DepositAddress string `json:"deposit_address"`
}

// NextInstruction tells the caller how to fund an opened payment: either a
// hosted funding page (onramp) or one or more deposit addresses (swap, retry).
type NextInstruction struct {
	FundingPageURL string        `json:"funding_page_url,omitempty"`
	DepositInfo    []DepositInfo `json:"deposit_info,omitempty"`
}

// NetEffect lists the resources a route step consumes and produces.
type NetEffect struct {
	Consume []Resource `json:"consume,omitempty"`
	Produce []Resource `json:"produce,omitempty"`
}

// Resource is an amount of an asset moving through a route step.
type Resource struct {
	Amount   string       `json:"amount"`
	Resource ResourceInfo `json:"resource"`
}

// ResourceInfo identifies the asset of a Resource.
type ResourceInfo struct {
	Asset string `json:"asset"`
}

// RouteStepTypeUserFund is the first step of payments funded directly by the
// user's wallet (swaps). Onramp payments start with a provider-side step.
const RouteStepTypeUserFund = "USER_FUND"

// RouteStep is one settlement step of a payment's route.
type RouteStep struct {
	Type            string        `json:"type"`
	Status          PaymentStatus `json:"status,omitempty"`
	NetEffect       *NetEffect    `json:"net_effect,omitempty"`
	TransactionHash string        `json:"transaction_hash,omitempty"`
}

// RoutePlan is the quoted or fulfilled route of a payment.
type RoutePlan struct {
	Route        []RouteStep `json:"route"`
	OutputAmount AssetAmount `json:"output_amount"`
	Onramp       string      `json:"onramp,omitempty"`
}

// ProcessingAddress is an intermediate custody address used while a payment
// settles. Funds stranded here are what the recovery flows drain.
type ProcessingAddress struct {
	Address string `json:"address"`
}

// ConfirmResponse is the opened payment returned by POST /payments/confirm.
type ConfirmResponse struct {
	PaymentID           string              `json:"payment_id"`
	Status              PaymentStatus       `json:"status"`
	NextInstruction     NextInstruction     `json:"next_instruction"`
	Quoted              *RoutePlan          `json:"quoted,omitempty"`
	ProcessingAddresses []ProcessingAddress `json:"processing_addresses,omitempty"`
}

// Payment is the API-owned payment record returned by GET /payments.
type Payment struct {
	PaymentID           string              `json:"payment_id"`
	Status              PaymentStatus       `json:"status"`
	Quoted              *RoutePlan          `json:"quoted,omitempty"`
	Fulfilled           *RoutePlan          `json:"fulfilled,omitempty"`
	ProcessingAddresses []ProcessingAddress `json:"processing_addresses,omitempty"`
	CreatedAt           string              `json:"created_at,omitempty"`
	UpdatedAt           string              `json:"updated_at,omitempty"`
}

// HistoryResponse is one page of GET /payments/history.
type HistoryResponse struct {
	PaymentStatuses   []Payment `json:"payment_statuses"`
	NextPaginationKey string    `json:"next_pagination_key,omitempty"`
}

// BalancesRequest is the body of POST /payments/balances.
type BalancesRequest struct {
	PaymentID string `json:"payment_id"`
}

// BalanceResult is one token balance held by a payment's processing addresses.
type BalanceResult struct {
	Token string      `json:"token"`
	Value AssetAmount `json:"value"`
}

// BalancesResponse is the body returned by POST /payments/balances.
type BalancesResponse struct {
	BalanceResults []BalanceResult `json:"balance_results"`
}

// TokenAmount pairs a token identifier with a decimal amount string.
type TokenAmount struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

// WithdrawRequest is the body of POST /payments/withdraw. The response carries
// a typed-data descriptor the payment owner must sign off-chain.
type WithdrawRequest struct {
	PaymentID        string        `json:"payment_id"`
	TokenAmounts     []TokenAmount `json:"token_amounts"`
	RecipientAddress string        `json:"recipient_address"`
}

// WithdrawResponse carries the JSON-encoded EIP-712 descriptor authorizing the
// withdrawal.
type WithdrawResponse struct {
	WithdrawAuthorization string `json:"withdraw_authorization"`
}

// WithdrawConfirmRequest is the body of POST /payments/withdraw/confirm: the
// original withdraw request plus the owner's signature over the descriptor.
type WithdrawConfirmRequest struct {
	PaymentID        string        `json:"payment_id"`
	TokenAmounts     []TokenAmount `json:"token_amounts"`
	RecipientAddress string        `json:"recipient_address"`
	OwnerSignature   string        `json:"owner_signature"`
}

// WithdrawConfirmResponse reports the broadcast withdrawal transaction.
type WithdrawConfirmResponse struct {
	TransactionHash string `json:"transaction_hash"`
}

// Asset is a supported-asset reference entry from GET /assets.
type Asset struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Chain is a supported-chain reference entry from GET /chains. Explorer is the
// block-explorer base URL including trailing slash.
type Chain struct {
	Explorer string `json:"explorer"`
}
