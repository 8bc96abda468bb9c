package services

import (
	"github.com/stripe/stripe-go/v79"
)

// PaymentProvider is the boundary to the card-payments API. Amounts cross it
// as integer minor units (cents).
type PaymentProvider interface {
	CreateCustomer(email string) (string, error)
	CreatePaymentIntent(amountCents int64, customerID string) (intentID, clientSecret string, err error)
	// ChargePaymentMethod submits a confirmed off-session charge against a
	// saved payment method and returns the payment intent id.
	ChargePaymentMethod(amountCents int64, customerID, paymentMethodID string) (string, error)
	CancelPaymentIntent(intentID string) error
	CreateSetupIntent(customerID string) (clientSecret string, err error)
	ConstructWebhookEvent(payload []byte, signatureHeader string) (stripe.Event, error)
}
