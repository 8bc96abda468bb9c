package services

import (
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/setupintent"
	"github.com/stripe/stripe-go/v79/webhook"
)

type StripeService struct {
	publicKey     string
	secretKey     string
	webhookSecret string
}

func NewStripeService(publicKey, secretKey, webhookSecret string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{
		publicKey:     publicKey,
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
	}
}

func (s *StripeService) PublicKey() string {
	return s.publicKey
}

func (s *StripeService) CreateCustomer(email string) (string, error) {
	c, err := customer.New(&stripe.CustomerParams{
		Email: stripe.String(email),
	})
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

// CreatePaymentIntent opens a card payment for a user-initiated recharge. The
// client confirms it with the returned secret.
func (s *StripeService) CreatePaymentIntent(amountCents int64, customerID string) (string, string, error) {
	pi, err := paymentintent.New(&stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		Customer: stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
	})
	if err != nil {
		return "", "", err
	}
	return pi.ID, pi.ClientSecret, nil
}

// ChargePaymentMethod charges a saved card immediately, off-session. Used by
// auto-recharge where no user is present to confirm.
func (s *StripeService) ChargePaymentMethod(amountCents int64, customerID, paymentMethodID string) (string, error) {
	pi, err := paymentintent.New(&stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amountCents),
		Currency:      stripe.String(string(stripe.CurrencyUSD)),
		Customer:      stripe.String(customerID),
		PaymentMethod: stripe.String(paymentMethodID),
		OffSession:    stripe.Bool(true),
		Confirm:       stripe.Bool(true),
	})
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

func (s *StripeService) CancelPaymentIntent(intentID string) error {
	_, err := paymentintent.Cancel(intentID, nil)
	return err
}

// CreateSetupIntent starts the flow for saving a reusable payment method.
func (s *StripeService) CreateSetupIntent(customerID string) (string, error) {
	si, err := setupintent.New(&stripe.SetupIntentParams{
		Customer: stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
	})
	if err != nil {
		return "", err
	}
	return si.ClientSecret, nil
}

func (s *StripeService) ConstructWebhookEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signatureHeader, s.webhookSecret)
}
