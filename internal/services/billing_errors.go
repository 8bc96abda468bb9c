package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Ledger failures are raised to the caller as typed sentinels so the API
// layer can map them without string matching. Nothing at this layer is
// logged-and-swallowed.
var (
	ErrInvalidAmount             = errors.New("amount must not be negative")
	ErrMissingDescription        = errors.New("adjustment requires a description")
	ErrInsufficientCredits       = errors.New("insufficient credits")
	ErrMonthlyLimitReached       = errors.New("monthly recharge limit reached")
	ErrNoPaymentMethodConfigured = errors.New("no payment method configured for auto-recharge")
	ErrUnknownModelPricing       = errors.New("no token cost configured")
	ErrInvalidTokenCount         = errors.New("token counts must not be negative")
)

// AutoRechargeError wraps the payment provider's rejection of an automatic
// charge. It carries the attempted amount so the failed transaction can be
// recorded once the debit transaction has rolled back.
type AutoRechargeError struct {
	Amount decimal.Decimal
	Cause  error
}

func (e *AutoRechargeError) Error() string {
	return fmt.Sprintf("auto-recharge failed: %v", e.Cause)
}

func (e *AutoRechargeError) Unwrap() error {
	return e.Cause
}
