package services

import (
	"errors"
	"strings"
	"time"

	"prepdeck_go_backend/internal/models"
	"prepdeck_go_backend/internal/utils/broker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var oneMillion = decimal.NewFromInt(1_000_000)

// BillingService owns every mutation of a billing profile's running totals.
// Each operation runs inside a database transaction with the profile row
// locked, so a concurrent debit cannot race the balance check.
type BillingService struct {
	db            *gorm.DB
	pricing       *PricingService
	payments      PaymentProvider
	messageBroker *broker.Broker
	sessionWindow time.Duration
}

func NewBillingService(db *gorm.DB, pricing *PricingService, payments PaymentProvider, messageBroker *broker.Broker, sessionWindow time.Duration) *BillingService {
	return &BillingService{
		db:            db,
		pricing:       pricing,
		payments:      payments,
		messageBroker: messageBroker,
		sessionWindow: sessionWindow,
	}
}

// lockProfile fetches the profile for update. The sqlite dialect used in
// tests has no SELECT ... FOR UPDATE.
func (s *BillingService) lockProfile(tx *gorm.DB, profileID uuid.UUID) (*models.BillingProfile, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var profile models.BillingProfile
	if err := q.Where("id = ?", profileID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *BillingService) saveTotals(tx *gorm.DB, profile *models.BillingProfile) error {
	return tx.Model(profile).Updates(map[string]interface{}{
		"total_credits":         profile.TotalCredits,
		"total_usage":           profile.TotalUsage,
		"auto_recharge_enabled": profile.AutoRechargeEnabled,
	}).Error
}

func (s *BillingService) publishBalance(profile *models.BillingProfile) {
	if s.messageBroker == nil {
		return
	}
	s.messageBroker.Publish("credit_update_"+profile.UserID.String(), profile.Balance().String())
}

// GetProfile returns the billing profile by its id.
func (s *BillingService) GetProfile(profileID uuid.UUID) (*models.BillingProfile, error) {
	var profile models.BillingProfile
	if err := s.db.Where("id = ?", profileID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// AddCredits increments total credits and records a succeeded transaction of
// the given type. Returns the new balance.
func (s *BillingService) AddCredits(profileID uuid.UUID, amount decimal.Decimal, txType models.TransactionType) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}

	var updated *models.BillingProfile
	err := s.db.Transaction(func(tx *gorm.DB) error {
		profile, err := s.lockProfile(tx, profileID)
		if err != nil {
			return err
		}
		profile.TotalCredits = profile.TotalCredits.Add(amount)
		if err := s.saveTotals(tx, profile); err != nil {
			return err
		}
		if err := tx.Create(&models.Transaction{
			BillingProfileID: profile.ID,
			Amount:           amount,
			Type:             txType,
			Status:           models.TransactionSucceeded,
		}).Error; err != nil {
			return err
		}
		updated = profile
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.publishBalance(updated)
	return updated.Balance(), nil
}

// AdjustCredits applies a signed manual correction to total credits. The
// description is mandatory and an adjustment may not take total credits below
// zero.
func (s *BillingService) AdjustCredits(profileID uuid.UUID, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	if strings.TrimSpace(description) == "" {
		return decimal.Zero, ErrMissingDescription
	}

	var updated *models.BillingProfile
	err := s.db.Transaction(func(tx *gorm.DB) error {
		profile, err := s.lockProfile(tx, profileID)
		if err != nil {
			return err
		}
		newTotal := profile.TotalCredits.Add(amount)
		if newTotal.IsNegative() {
			return ErrInvalidAmount
		}
		profile.TotalCredits = newTotal
		if err := s.saveTotals(tx, profile); err != nil {
			return err
		}
		if err := tx.Create(&models.Transaction{
			BillingProfileID: profile.ID,
			Amount:           amount,
			Type:             models.TransactionAdjustment,
			Status:           models.TransactionSucceeded,
			Description:      description,
		}).Error; err != nil {
			return err
		}
		updated = profile
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.publishBalance(updated)
	return updated.Balance(), nil
}

// UseCredits debits usage from the profile. When the balance does not cover
// the amount and auto-recharge is enabled within the monthly cap, a charge is
// submitted to the payment provider and the debit proceeds optimistically;
// the credit lands later via the webhook. The usage event is folded into the
// given session, or into the most recent session updated within the session
// window, or starts a new one.
func (s *BillingService) UseCredits(profileID uuid.UUID, amount decimal.Decimal, session *models.Session, tokens int) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}

	var updated *models.BillingProfile
	err := s.db.Transaction(func(tx *gorm.DB) error {
		profile, err := s.lockProfile(tx, profileID)
		if err != nil {
			return err
		}

		if profile.Balance().LessThan(amount) {
			if err := s.handleInsufficientBalance(tx, profile); err != nil {
				return err
			}
		}

		profile.TotalUsage = profile.TotalUsage.Add(amount)
		if err := s.saveTotals(tx, profile); err != nil {
			return err
		}

		if err := s.recordSessionUsage(tx, profile.ID, amount, session, tokens); err != nil {
			return err
		}
		updated = profile
		return nil
	})
	if err != nil {
		var rechargeErr *AutoRechargeError
		if errors.As(err, &rechargeErr) {
			if recErr := s.recordFailedRecharge(profileID, rechargeErr); recErr != nil {
				return decimal.Zero, recErr
			}
		}
		return decimal.Zero, err
	}

	s.publishBalance(updated)
	return updated.Balance(), nil
}

// recordFailedRecharge persists a declined auto-recharge attempt after the
// debit transaction has rolled back. The record must outlive the rollback so
// the attempt still counts against the monthly limit.
func (s *BillingService) recordFailedRecharge(profileID uuid.UUID, rechargeErr *AutoRechargeError) error {
	return s.db.Create(&models.Transaction{
		BillingProfileID: profileID,
		Amount:           rechargeErr.Amount,
		Type:             models.TransactionAutoRecharge,
		Status:           models.TransactionFailed,
		Description:      rechargeErr.Cause.Error(),
	}).Error
}

func (s *BillingService) handleInsufficientBalance(tx *gorm.DB, profile *models.BillingProfile) error {
	if !profile.AutoRechargeEnabled || !profile.AutoRechargeAmount.IsPositive() {
		return ErrInsufficientCredits
	}

	monthSum, err := s.monthlyRechargeTotal(tx, profile.ID)
	if err != nil {
		return err
	}
	if monthSum.Add(profile.AutoRechargeAmount).GreaterThan(profile.MonthlyRechargeLimit) {
		return ErrMonthlyLimitReached
	}

	// If a recharge is already in flight, do not charge the card again; the
	// debit proceeds against the pending credit.
	var inFlight int64
	if err := tx.Model(&models.Transaction{}).
		Where("billing_profile_id = ? AND type = ? AND status = ?",
			profile.ID, models.TransactionAutoRecharge, models.TransactionProcessing).
		Count(&inFlight).Error; err != nil {
		return err
	}
	if inFlight > 0 {
		return nil
	}

	return s.startAutoRecharge(tx, profile)
}

// monthlyRechargeTotal sums auto-recharge transaction amounts created since
// the start of the current calendar month (UTC), regardless of status.
func (s *BillingService) monthlyRechargeTotal(tx *gorm.DB, profileID uuid.UUID) (decimal.Decimal, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var raw string
	err := tx.Model(&models.Transaction{}).
		Where("billing_profile_id = ? AND type = ? AND created_at >= ?",
			profileID, models.TransactionAutoRecharge, monthStart).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func (s *BillingService) startAutoRecharge(tx *gorm.DB, profile *models.BillingProfile) error {
	if profile.StripePaymentMethodID == "" {
		return ErrNoPaymentMethodConfigured
	}

	intentID, err := s.payments.ChargePaymentMethod(
		MinorUnits(profile.AutoRechargeAmount),
		profile.StripeCustomerID,
		profile.StripePaymentMethodID,
	)
	if err != nil {
		// The failed attempt is recorded by UseCredits after the surrounding
		// transaction has rolled back; an insert here would contend with the
		// locks that transaction still holds.
		return &AutoRechargeError{Amount: profile.AutoRechargeAmount, Cause: err}
	}

	// Credits are not added here; the webhook confirming the payment intent
	// settles this transaction.
	ref := intentID
	return tx.Create(&models.Transaction{
		BillingProfileID:      profile.ID,
		Amount:                profile.AutoRechargeAmount,
		Type:                  models.TransactionAutoRecharge,
		Status:                models.TransactionProcessing,
		StripePaymentIntentID: &ref,
	}).Error
}

func (s *BillingService) recordSessionUsage(tx *gorm.DB, profileID uuid.UUID, amount decimal.Decimal, session *models.Session, tokens int) error {
	if session != nil {
		session.AddUsage(amount, tokens)
		return tx.Save(session).Error
	}

	cutoff := time.Now().Add(-s.sessionWindow)
	var recent models.Session
	err := tx.Where("billing_profile_id = ? AND updated_at >= ?", profileID, cutoff).
		Order("updated_at DESC").
		First(&recent).Error
	if err == nil {
		recent.AddUsage(amount, tokens)
		return tx.Save(&recent).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return tx.Create(&models.Session{
		BillingProfileID: profileID,
		Cost:             amount,
		TotalTokens:      tokens,
	}).Error
}

// AddTokenUsage converts token counts into a cost using the pricing table and
// debits it via UseCredits. Returns the cost of this event and the new
// balance.
func (s *BillingService) AddTokenUsage(profileID uuid.UUID, modelName string, inputTokens, inputTokensCached, outputTokens int, session *models.Session) (decimal.Decimal, decimal.Decimal, error) {
	if inputTokens < 0 || inputTokensCached < 0 || outputTokens < 0 {
		return decimal.Zero, decimal.Zero, ErrInvalidTokenCount
	}

	priceIn, err := s.pricing.TokenCost(modelName, TokenClassInput)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	priceInCached, err := s.pricing.TokenCost(modelName, TokenClassInputCached)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	priceOut, err := s.pricing.TokenCost(modelName, TokenClassOutput)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	cost := decimal.NewFromInt(int64(inputTokens)).Mul(priceIn).
		Add(decimal.NewFromInt(int64(inputTokensCached)).Mul(priceInCached)).
		Add(decimal.NewFromInt(int64(outputTokens)).Mul(priceOut)).
		Div(oneMillion).
		Round(6)

	balance, err := s.UseCredits(profileID, cost, session, inputTokens+inputTokensCached+outputTokens)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return cost, balance, nil
}

// RecentTransactions returns up to limit ledger entries, newest first.
func (s *BillingService) RecentTransactions(profileID uuid.UUID, limit int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := s.db.Where("billing_profile_id = ?", profileID).
		Order("created_at DESC").
		Limit(limit).
		Find(&transactions).Error
	return transactions, err
}

// RecentSessions returns up to limit usage sessions, newest first.
func (s *BillingService) RecentSessions(profileID uuid.UUID, limit int) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.Where("billing_profile_id = ?", profileID).
		Order("created_at DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// UpdateSettings changes the auto-recharge configuration. Amounts must not be
// negative.
func (s *BillingService) UpdateSettings(profileID uuid.UUID, enabled bool, amount, monthlyLimit decimal.Decimal) (*models.BillingProfile, error) {
	if amount.IsNegative() || monthlyLimit.IsNegative() {
		return nil, ErrInvalidAmount
	}
	var updated *models.BillingProfile
	err := s.db.Transaction(func(tx *gorm.DB) error {
		profile, err := s.lockProfile(tx, profileID)
		if err != nil {
			return err
		}
		profile.AutoRechargeEnabled = enabled
		profile.AutoRechargeAmount = amount
		profile.MonthlyRechargeLimit = monthlyLimit
		if err := tx.Model(profile).Updates(map[string]interface{}{
			"auto_recharge_enabled":  enabled,
			"auto_recharge_amount":   amount,
			"monthly_recharge_limit": monthlyLimit,
		}).Error; err != nil {
			return err
		}
		updated = profile
		return nil
	})
	return updated, err
}

// SaveCustomerID stores the payment provider's customer reference.
func (s *BillingService) SaveCustomerID(profileID uuid.UUID, customerID string) error {
	return s.db.Model(&models.BillingProfile{}).
		Where("id = ?", profileID).
		Update("stripe_customer_id", customerID).Error
}

// SavePaymentMethod stores the provider references used for auto-recharge.
func (s *BillingService) SavePaymentMethod(profileID uuid.UUID, customerID, paymentMethodID string) error {
	return s.db.Model(&models.BillingProfile{}).
		Where("id = ?", profileID).
		Updates(map[string]interface{}{
			"stripe_customer_id":       customerID,
			"stripe_payment_method_id": paymentMethodID,
		}).Error
}

// MinorUnits converts a decimal dollar amount to integer cents for the
// payment provider.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
