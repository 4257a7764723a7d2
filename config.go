package payments

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied by Config.withDefaults. Intervals mirror the reference
// client: a 2s quiet period before quoting a typed amount, a 1s freshness
// tick, 5s settlement polls (3s for recovery watches), and a 15-payment
// history scan.
const (
	DefaultPriceCurrency        = "USD"
	DefaultDebounceInterval     = 2 * time.Second
	DefaultRefreshInterval      = 1 * time.Second
	DefaultPollInterval         = 5 * time.Second
	DefaultRecoveryPollInterval = 3 * time.Second
	DefaultHistoryScanLimit     = 15
)

// DefaultOnramps is the provider set quoted when none is configured.
var DefaultOnramps = []string{"stripe", "transak", "moonpay"}

// DefaultOnrampMethods is the pay-in method set offered to onramp providers.
var DefaultOnrampMethods = []string{"CREDIT_CARD"}

// Config is the explicit configuration of a Client. Only APIKey is required;
// everything else has a documented default.
type Config struct {
	// APIBaseURL is the payments service root. Defaults to api.DefaultBaseURL.
	APIBaseURL string `validate:"omitempty,url"`

	// APIKey authenticates every request as a bearer token.
	APIKey string `validate:"required"`

	// SupportedOnramps are the fiat providers quoted for onramp flows.
	SupportedOnramps []string

	// OnrampMethods are the pay-in methods offered to onramp providers.
	OnrampMethods []string

	// PriceCurrency is the fiat currency quotes are denominated in.
	PriceCurrency string

	// CountryCode is the customer's alpha-3 country code for onramp
	// eligibility (optional).
	CountryCode string `validate:"omitempty,len=3"`

	// HTTPClient overrides the transport (optional).
	HTTPClient *http.Client

	// Timeout bounds a single API request when HTTPClient is nil.
	Timeout time.Duration

	// DebounceInterval is the quiet period after an amount change before a
	// pricing request is issued.
	DebounceInterval time.Duration

	// RefreshInterval is how often quote expiration is checked.
	RefreshInterval time.Duration

	// PollInterval is the settlement status polling interval.
	PollInterval time.Duration

	// RecoveryPollInterval is the polling interval for recovery watches.
	RecoveryPollInterval time.Duration

	// HistoryScanLimit caps how many recent payments a stuck-payment scan
	// inspects.
	HistoryScanLimit int
}

var validate = validator.New()

// Validate checks the config, reporting the first violation.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// withDefaults returns a copy with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.PriceCurrency == "" {
		c.PriceCurrency = DefaultPriceCurrency
	}
	if c.SupportedOnramps == nil {
		c.SupportedOnramps = DefaultOnramps
	}
	if c.OnrampMethods == nil {
		c.OnrampMethods = DefaultOnrampMethods
	}
	if c.DebounceInterval == 0 {
		c.DebounceInterval = DefaultDebounceInterval
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.RecoveryPollInterval == 0 {
		c.RecoveryPollInterval = DefaultRecoveryPollInterval
	}
	if c.HistoryScanLimit == 0 {
		c.HistoryScanLimit = DefaultHistoryScanLimit
	}
	return c
}
