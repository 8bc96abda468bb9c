package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionRecharge     TransactionType = "recharge"
	TransactionAutoRecharge TransactionType = "auto_recharge"
	TransactionRefund       TransactionType = "refund"
	TransactionAdjustment   TransactionType = "adjustment"
	TransactionPromotion    TransactionType = "promotion"
)

type TransactionStatus string

const (
	TransactionPending    TransactionStatus = "pending"
	TransactionProcessing TransactionStatus = "processing"
	TransactionSucceeded  TransactionStatus = "succeeded"
	TransactionFailed     TransactionStatus = "failed"
	TransactionCancelled  TransactionStatus = "cancelled"
)

// BillingProfile holds billing settings and the running credit/usage totals
// for one user. The balance is always derived, never stored.
type BillingProfile struct {
	gorm.Model
	ID                    uuid.UUID       `gorm:"type:uuid;primary_key"`
	UserID                uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	AutoRechargeEnabled   bool            `gorm:"default:false"`
	AutoRechargeAmount    decimal.Decimal `gorm:"type:numeric(10,2);default:0"`
	MonthlyRechargeLimit  decimal.Decimal `gorm:"type:numeric(10,2);default:0"`
	TotalCredits          decimal.Decimal `gorm:"type:numeric(12,2);default:0"`
	TotalUsage            decimal.Decimal `gorm:"type:numeric(14,6);default:0"`
	StripeCustomerID      string
	StripePaymentMethodID string
}

func (p *BillingProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Balance may be transiently negative while an auto-recharge payment is in
// flight; the totals themselves never go negative.
func (p *BillingProfile) Balance() decimal.Decimal {
	return p.TotalCredits.Sub(p.TotalUsage)
}

// Transaction is a single credit-affecting ledger entry. Cancelled intents are
// deleted rather than kept around.
type Transaction struct {
	gorm.Model
	ID                    uuid.UUID         `gorm:"type:uuid;primary_key"`
	BillingProfileID      uuid.UUID         `gorm:"type:uuid;index;not null"`
	Amount                decimal.Decimal   `gorm:"type:numeric(10,2)"`
	Type                  TransactionType   `gorm:"type:varchar(20);index"`
	Status                TransactionStatus `gorm:"type:varchar(20);default:'pending';index"`
	StripePaymentIntentID *string           `gorm:"uniqueIndex"`
	Description           string
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Session aggregates metered usage within a sliding 30-minute idle window.
type Session struct {
	gorm.Model
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	BillingProfileID uuid.UUID       `gorm:"type:uuid;index;not null"`
	TotalTokens      int             `gorm:"default:0"`
	Cost             decimal.Decimal `gorm:"type:numeric(14,6);default:0"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Duration of the session in minutes.
func (s *Session) Duration() float64 {
	return s.UpdatedAt.Sub(s.CreatedAt).Minutes()
}

// AddUsage accumulates cost and tokens onto the session. Validation is the
// caller's job; cost and token totals only ever grow.
func (s *Session) AddUsage(cost decimal.Decimal, tokens int) {
	s.Cost = s.Cost.Add(cost)
	s.TotalTokens += tokens
	s.UpdatedAt = time.Now()
}

// BillingSettingItem is one row of the pricing table, keyed like
// "gpt-4o-mini-input-cost" with the value in dollars per million tokens.
type BillingSettingItem struct {
	gorm.Model
	Key         string          `gorm:"uniqueIndex;not null"`
	Value       decimal.Decimal `gorm:"type:numeric(12,6)"`
	Description string
}
