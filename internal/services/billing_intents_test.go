package services_test

import (
	"testing"

	"prepdeck_go_backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestUpdateCreditIntent(t *testing.T) {
	t.Run("Succeeded webhook credits the profile once", func(t *testing.T) {
		db := newTestDB(t)
		billing := newBillingService(t, db, new(MockPaymentProvider))
		profile := newTestProfile(t, db, "")

		_, err := billing.AddCreditIntent(profile.ID, mustDecimal(t, "10.00"), "pi_1", models.TransactionRecharge, "Credit purchase")
		assert.NoError(t, err)

		handled, err := billing.UpdateCreditIntent("pi_1", models.TransactionSucceeded)
		assert.NoError(t, err)
		assert.True(t, handled)

		current, _ := billing.GetProfile(profile.ID)
		assert.True(t, current.Balance().Equal(mustDecimal(t, "10.00")))

		// A webhook retry with the same status must not credit again.
		handled, err = billing.UpdateCreditIntent("pi_1", models.TransactionSucceeded)
		assert.NoError(t, err)
		assert.True(t, handled)

		current, _ = billing.GetProfile(profile.ID)
		assert.True(t, current.Balance().Equal(mustDecimal(t, "10.00")))
	})

	t.Run("Leaving succeeded withdraws the credit", func(t *testing.T) {
		db := newTestDB(t)
		billing := newBillingService(t, db, new(MockPaymentProvider))
		profile := newTestProfile(t, db, "")

		_, err := billing.AddCreditIntent(profile.ID, mustDecimal(t, "10.00"), "pi_2", models.TransactionRecharge, "")
		assert.NoError(t, err)

		_, err = billing.UpdateCreditIntent("pi_2", models.TransactionSucceeded)
		assert.NoError(t, err)

		handled, err := billing.UpdateCreditIntent("pi_2", models.TransactionFailed)
		assert.NoError(t, err)
		assert.True(t, handled)

		current, _ := billing.GetProfile(profile.ID)
		assert.True(t, current.Balance().IsZero())
	})

	t.Run("Failed auto-recharge disables the flag", func(t *testing.T) {
		db := newTestDB(t)
		billing := newBillingService(t, db, new(MockPaymentProvider))
		profile := newTestProfile(t, db, "")
		enableAutoRecharge(t, db, profile, "10.00", "50.00")

		_, err := billing.AddCreditIntent(profile.ID, mustDecimal(t, "10.00"), "pi_3", models.TransactionAutoRecharge, "")
		assert.NoError(t, err)

		handled, err := billing.UpdateCreditIntent("pi_3", models.TransactionFailed)
		assert.NoError(t, err)
		assert.True(t, handled)

		current, _ := billing.GetProfile(profile.ID)
		assert.False(t, current.AutoRechargeEnabled)
	})

	t.Run("Unknown intent reference is a benign no-op", func(t *testing.T) {
		db := newTestDB(t)
		billing := newBillingService(t, db, new(MockPaymentProvider))

		handled, err := billing.UpdateCreditIntent("pi_unknown", models.TransactionSucceeded)

		assert.NoError(t, err)
		assert.False(t, handled)
	})
}

func TestDeleteCreditIntent(t *testing.T) {
	db := newTestDB(t)
	billing := newBillingService(t, db, new(MockPaymentProvider))
	profile := newTestProfile(t, db, "")

	t.Run("Deletes a pending transaction", func(t *testing.T) {
		_, err := billing.AddCreditIntent(profile.ID, mustDecimal(t, "10.00"), "pi_del_1", models.TransactionRecharge, "")
		assert.NoError(t, err)

		deleted, err := billing.DeleteCreditIntent("pi_del_1")
		assert.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("Keeps settled transactions in the ledger", func(t *testing.T) {
		_, err := billing.AddCreditIntent(profile.ID, mustDecimal(t, "10.00"), "pi_del_2", models.TransactionRecharge, "")
		assert.NoError(t, err)
		_, err = billing.UpdateCreditIntent("pi_del_2", models.TransactionSucceeded)
		assert.NoError(t, err)

		deleted, err := billing.DeleteCreditIntent("pi_del_2")
		assert.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("Unknown reference deletes nothing", func(t *testing.T) {
		deleted, err := billing.DeleteCreditIntent("pi_nope")
		assert.NoError(t, err)
		assert.False(t, deleted)
	})
}
