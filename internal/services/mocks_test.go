package services_test

import (
	"fmt"
	"testing"

	"prepdeck_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v79"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) CreateCustomer(email string) (string, error) {
	args := m.Called(email)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProvider) CreatePaymentIntent(amountCents int64, customerID string) (string, string, error) {
	args := m.Called(amountCents, customerID)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockPaymentProvider) ChargePaymentMethod(amountCents int64, customerID, paymentMethodID string) (string, error) {
	args := m.Called(amountCents, customerID, paymentMethodID)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProvider) CancelPaymentIntent(intentID string) error {
	args := m.Called(intentID)
	return args.Error(0)
}

func (m *MockPaymentProvider) CreateSetupIntent(customerID string) (string, error) {
	args := m.Called(customerID)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProvider) ConstructWebhookEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	args := m.Called(payload, signatureHeader)
	return args.Get(0).(stripe.Event), args.Error(1)
}

// newTestDB opens a private in-memory sqlite database with all tables
// migrated. cache=shared keeps the database alive across gorm's pooled
// connections.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.BillingProfile{},
		&models.Transaction{},
		&models.Session{},
		&models.BillingSettingItem{},
		&models.FlashCard{},
		&models.Application{},
		&models.Deck{},
		&models.Document{},
		&models.Tutor{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// newTestProfile creates a user with a billing profile seeded with the given
// credit total.
func newTestProfile(t *testing.T, db *gorm.DB, credits string) *models.BillingProfile {
	t.Helper()

	user := models.User{
		Auth0ID: "auth0|" + uuid.NewString(),
		Email:   uuid.NewString() + "@example.com",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	profile := models.BillingProfile{UserID: user.ID}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("failed to create test profile: %v", err)
	}
	if credits != "" {
		if err := db.Model(&profile).Update("total_credits", credits).Error; err != nil {
			t.Fatalf("failed to seed credits: %v", err)
		}
		profile.TotalCredits = mustDecimal(t, credits)
	}
	return &profile
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}
