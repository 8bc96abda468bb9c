package services

import (
	"errors"

	"prepdeck_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AddCreditIntent records a pending transaction for an externally created
// payment intent. Credits are not touched until the webhook settles it.
func (s *BillingService) AddCreditIntent(profileID uuid.UUID, amount decimal.Decimal, intentID string, txType models.TransactionType, description string) (*models.Transaction, error) {
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	ref := intentID
	transaction := models.Transaction{
		BillingProfileID:      profileID,
		Amount:                amount,
		Type:                  txType,
		Status:                models.TransactionPending,
		StripePaymentIntentID: &ref,
		Description:           description,
	}
	if err := s.db.Create(&transaction).Error; err != nil {
		return nil, err
	}
	return &transaction, nil
}

// UpdateCreditIntent moves the transaction identified by the payment intent
// id to a new status and applies the credit effect of crossing the succeeded
// boundary in either direction. An unknown intent id is a benign no-op and
// returns false, so webhook retries and test events never surface as errors.
// Re-applying the current status changes nothing.
func (s *BillingService) UpdateCreditIntent(intentID string, newStatus models.TransactionStatus) (bool, error) {
	handled := false
	var updated *models.BillingProfile

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var transaction models.Transaction
		err := tx.Where("stripe_payment_intent_id = ?", intentID).First(&transaction).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if transaction.Status == newStatus {
			handled = true
			return nil
		}

		profile, err := s.lockProfile(tx, transaction.BillingProfileID)
		if err != nil {
			return err
		}

		creditsChanged := false
		if newStatus == models.TransactionSucceeded {
			profile.TotalCredits = profile.TotalCredits.Add(transaction.Amount)
			creditsChanged = true
		} else if transaction.Status == models.TransactionSucceeded {
			// Reversal or chargeback: the credit is withdrawn again.
			profile.TotalCredits = profile.TotalCredits.Sub(transaction.Amount)
			creditsChanged = true
		}

		if newStatus == models.TransactionFailed && transaction.Type == models.TransactionAutoRecharge {
			// A failing saved card would otherwise be charged on every debit.
			profile.AutoRechargeEnabled = false
			creditsChanged = true
		}

		if creditsChanged {
			if err := s.saveTotals(tx, profile); err != nil {
				return err
			}
			updated = profile
		}

		if err := tx.Model(&transaction).Update("status", newStatus).Error; err != nil {
			return err
		}
		handled = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if updated != nil {
		s.publishBalance(updated)
	}
	return handled, nil
}

// DeleteCreditIntent removes the transaction for a cancelled payment intent.
// Only pending and processing transactions are deletable; settled ones stay
// in the ledger. Returns whether a row was deleted.
func (s *BillingService) DeleteCreditIntent(intentID string) (bool, error) {
	result := s.db.Where("stripe_payment_intent_id = ? AND status IN ?",
		intentID, []models.TransactionStatus{models.TransactionPending, models.TransactionProcessing}).
		Delete(&models.Transaction{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
