package payments

import "fmt"

// FlowError is a validation or precondition failure raised before any request
// is issued. Transport and API failures surface as *api.Error instead.
type FlowError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeInvalidAmount   = "invalid_amount"
	ErrCodeInvalidAddress  = "invalid_address"
	ErrCodeQuoteExpired    = "quote_expired"
	ErrCodeQuoteInfeasible = "quote_infeasible"
	ErrCodeNoQuote         = "no_quote"
)

// NewFlowError creates a new flow error.
func NewFlowError(code, message string, details map[string]interface{}) *FlowError {
	return &FlowError{
		Code:    code,
		Message: message,
		Details: details,
	}
}
