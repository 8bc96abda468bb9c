package services

import (
	"errors"
	"fmt"

	"prepdeck_go_backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	TokenClassInput       = "input"
	TokenClassInputCached = "input-cached"
	TokenClassOutput      = "output"
)

// PricingService resolves per-model token prices from the billing settings
// table. Prices are in dollars per million tokens.
type PricingService struct {
	db       *gorm.DB
	fallback *decimal.Decimal
}

// NewPricingService creates a pricing lookup. A nil fallback makes a missing
// price entry a hard ErrUnknownModelPricing; a non-nil fallback is returned
// instead, for deployments that prefer to overcharge rather than refuse.
func NewPricingService(db *gorm.DB, fallback *decimal.Decimal) *PricingService {
	return &PricingService{db: db, fallback: fallback}
}

func pricingKey(modelName, tokenClass string) string {
	return fmt.Sprintf("%s-%s-cost", modelName, tokenClass)
}

func (s *PricingService) TokenCost(modelName, tokenClass string) (decimal.Decimal, error) {
	key := pricingKey(modelName, tokenClass)
	var item models.BillingSettingItem
	err := s.db.Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if s.fallback != nil {
			return *s.fallback, nil
		}
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownModelPricing, key)
	}
	if err != nil {
		return decimal.Zero, err
	}
	return item.Value, nil
}

// SetTokenCost upserts one price entry; used by seeding and admin tooling.
func (s *PricingService) SetTokenCost(modelName, tokenClass string, price decimal.Decimal) error {
	item := models.BillingSettingItem{
		Key:   pricingKey(modelName, tokenClass),
		Value: price,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&item).Error
}
