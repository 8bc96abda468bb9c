package services

import (
	"prepdeck_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type UserService struct {
	db            *gorm.DB
	billing       *BillingService
	signupCredits decimal.Decimal
}

func NewUserService(db *gorm.DB, billing *BillingService, signupCredits decimal.Decimal) *UserService {
	return &UserService{
		db:            db,
		billing:       billing,
		signupCredits: signupCredits,
	}
}

// CreateOrUpdateUser upserts the user on first sight of a verified token and
// makes sure a billing profile exists, seeded with the signup credit.
func (s *UserService) CreateOrUpdateUser(auth0ID, email, name, nickname string) (*models.User, error) {
	user := models.User{
		Auth0ID:  auth0ID,
		Email:    email,
		Name:     name,
		Nickname: nickname,
	}
	result := s.db.Where(models.User{Auth0ID: auth0ID}).FirstOrCreate(&user)
	if result.Error != nil {
		return nil, result.Error
	}

	if err := s.ensureBillingProfile(user.ID); err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *UserService) ensureBillingProfile(userID uuid.UUID) error {
	profile := models.BillingProfile{UserID: userID}
	result := s.db.Where(models.BillingProfile{UserID: userID}).FirstOrCreate(&profile)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 && s.signupCredits.IsPositive() {
		if _, err := s.billing.AddCredits(profile.ID, s.signupCredits, models.TransactionPromotion); err != nil {
			return err
		}
		log.Info().
			Str("user_id", userID.String()).
			Str("amount", s.signupCredits.String()).
			Msg("Seeded signup credits")
	}
	return nil
}

func (s *UserService) GetUserByAuth0ID(auth0ID string) (*models.User, error) {
	var user models.User
	result := s.db.Where("auth0_id = ?", auth0ID).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// GetBillingProfile returns the billing profile owned by the user.
func (s *UserService) GetBillingProfile(userID uuid.UUID) (*models.BillingProfile, error) {
	var profile models.BillingProfile
	result := s.db.Where("user_id = ?", userID).First(&profile)
	if result.Error != nil {
		return nil, result.Error
	}
	return &profile, nil
}
