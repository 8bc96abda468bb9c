package services_test

import (
	"testing"

	"prepdeck_go_backend/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestPricingService(t *testing.T) {
	db := newTestDB(t)
	pricing := services.NewPricingService(db, nil)

	t.Run("Returns the stored price", func(t *testing.T) {
		assert.NoError(t, pricing.SetTokenCost("gpt-4o", services.TokenClassInput, mustDecimal(t, "2.50")))

		price, err := pricing.TokenCost("gpt-4o", services.TokenClassInput)

		assert.NoError(t, err)
		assert.True(t, price.Equal(mustDecimal(t, "2.50")))
	})

	t.Run("Upserts on repeated set", func(t *testing.T) {
		assert.NoError(t, pricing.SetTokenCost("gpt-4o", services.TokenClassOutput, mustDecimal(t, "10.00")))
		assert.NoError(t, pricing.SetTokenCost("gpt-4o", services.TokenClassOutput, mustDecimal(t, "12.00")))

		price, err := pricing.TokenCost("gpt-4o", services.TokenClassOutput)

		assert.NoError(t, err)
		assert.True(t, price.Equal(mustDecimal(t, "12.00")))
	})

	t.Run("Missing price is an error without a fallback", func(t *testing.T) {
		_, err := pricing.TokenCost("nonexistent", services.TokenClassInput)

		assert.ErrorIs(t, err, services.ErrUnknownModelPricing)
	})

	t.Run("Missing price uses the fallback when set", func(t *testing.T) {
		fallback := mustDecimal(t, "20.00")
		withFallback := services.NewPricingService(db, &fallback)

		price, err := withFallback.TokenCost("nonexistent", services.TokenClassInput)

		assert.NoError(t, err)
		assert.True(t, price.Equal(fallback))
	})
}
