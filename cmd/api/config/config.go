package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	SignupCredits        decimal.Decimal
	SessionWindow        time.Duration
	LowCreditThreshold   decimal.Decimal
	BalanceCheckInterval time.Duration

	// TokenPriceFallback is used when a model has no pricing row. Nil means
	// unknown models are rejected.
	TokenPriceFallback *decimal.Decimal

	TutorsDir string

	StripePublicKey     string
	StripeSecretKey     string
	StripeWebhookSecret string
}

func Load() (*Config, error) {
	cfg := &Config{
		SignupCredits:        decimal.NewFromFloat(5.00),
		SessionWindow:        30 * time.Minute,
		LowCreditThreshold:   decimal.NewFromFloat(1.00),
		BalanceCheckInterval: 30 * time.Second,
		TutorsDir:            "tutors",
		StripePublicKey:      os.Getenv("STRIPE_PUBLIC_KEY"),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
	}

	if v := os.Getenv("SIGNUP_CREDITS"); v != "" {
		credits, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SIGNUP_CREDITS %q: %w", v, err)
		}
		cfg.SignupCredits = credits
	}

	if v := os.Getenv("SESSION_WINDOW"); v != "" {
		window, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_WINDOW %q: %w", v, err)
		}
		cfg.SessionWindow = window
	}

	if v := os.Getenv("LOW_CREDIT_THRESHOLD"); v != "" {
		threshold, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LOW_CREDIT_THRESHOLD %q: %w", v, err)
		}
		cfg.LowCreditThreshold = threshold
	}

	if v := os.Getenv("TOKEN_PRICE_FALLBACK"); v != "" {
		fallback, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_PRICE_FALLBACK %q: %w", v, err)
		}
		cfg.TokenPriceFallback = &fallback
	}

	if v := os.Getenv("TUTORS_DIR"); v != "" {
		cfg.TutorsDir = v
	}

	return cfg, nil
}
