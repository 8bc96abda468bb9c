package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"prepdeck_go_backend/internal/models"
	"prepdeck_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v79"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type mockPaymentProvider struct {
	mock.Mock
}

func (m *mockPaymentProvider) CreateCustomer(email string) (string, error) {
	args := m.Called(email)
	return args.String(0), args.Error(1)
}

func (m *mockPaymentProvider) CreatePaymentIntent(amountCents int64, customerID string) (string, string, error) {
	args := m.Called(amountCents, customerID)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockPaymentProvider) ChargePaymentMethod(amountCents int64, customerID, paymentMethodID string) (string, error) {
	args := m.Called(amountCents, customerID, paymentMethodID)
	return args.String(0), args.Error(1)
}

func (m *mockPaymentProvider) CancelPaymentIntent(intentID string) error {
	args := m.Called(intentID)
	return args.Error(0)
}

func (m *mockPaymentProvider) CreateSetupIntent(customerID string) (string, error) {
	args := m.Called(customerID)
	return args.String(0), args.Error(1)
}

func (m *mockPaymentProvider) ConstructWebhookEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	args := m.Called(payload, signatureHeader)
	return args.Get(0).(stripe.Event), args.Error(1)
}

func newWebhookTestEnv(t *testing.T) (*gorm.DB, *services.BillingService, *mockPaymentProvider, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.BillingProfile{}, &models.Transaction{}, &models.Session{}, &models.BillingSettingItem{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	mockPayments := new(mockPaymentProvider)
	pricing := services.NewPricingService(db, nil)
	billing := services.NewBillingService(db, pricing, mockPayments, nil, 30*time.Minute)

	r := gin.New()
	r.POST("/api/stripe/webhook", stripeWebhookHandler(billing, mockPayments))
	return db, billing, mockPayments, r
}

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

func paymentIntentEvent(eventType, intentID string) stripe.Event {
	return stripe.Event{
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{
			Raw: json.RawMessage(fmt.Sprintf(`{"id": %q}`, intentID)),
		},
	}
}

func postWebhook(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewBufferString(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=sig")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStripeWebhookHandler(t *testing.T) {
	t.Run("Invalid signature is rejected", func(t *testing.T) {
		_, _, mockPayments, r := newWebhookTestEnv(t)
		mockPayments.On("ConstructWebhookEvent", mock.Anything, mock.Anything).
			Return(stripe.Event{}, errors.New("signature verification failed")).Once()

		w := postWebhook(r, `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockPayments.AssertExpectations(t)
	})

	t.Run("Succeeded intent credits the profile", func(t *testing.T) {
		db, billing, mockPayments, r := newWebhookTestEnv(t)
		profile := models.BillingProfile{UserID: uuid.New()}
		assert.NoError(t, db.Create(&profile).Error)
		_, err := billing.AddCreditIntent(profile.ID, decimalFromString(t, "10.00"), "pi_hook_1", models.TransactionRecharge, "")
		assert.NoError(t, err)

		mockPayments.On("ConstructWebhookEvent", mock.Anything, mock.Anything).
			Return(paymentIntentEvent("payment_intent.succeeded", "pi_hook_1"), nil).Once()

		w := postWebhook(r, `{}`)

		assert.Equal(t, http.StatusOK, w.Code)

		current, err := billing.GetProfile(profile.ID)
		assert.NoError(t, err)
		assert.True(t, current.Balance().Equal(decimalFromString(t, "10.00")))
	})

	t.Run("Unknown intent is acknowledged without effect", func(t *testing.T) {
		_, _, mockPayments, r := newWebhookTestEnv(t)
		mockPayments.On("ConstructWebhookEvent", mock.Anything, mock.Anything).
			Return(paymentIntentEvent("payment_intent.succeeded", "pi_never_seen"), nil).Once()

		w := postWebhook(r, `{}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Transaction not found")
	})

	t.Run("Canceled intent deletes the pending transaction", func(t *testing.T) {
		db, billing, mockPayments, r := newWebhookTestEnv(t)
		profile := models.BillingProfile{UserID: uuid.New()}
		assert.NoError(t, db.Create(&profile).Error)
		_, err := billing.AddCreditIntent(profile.ID, decimalFromString(t, "10.00"), "pi_hook_2", models.TransactionRecharge, "")
		assert.NoError(t, err)

		mockPayments.On("ConstructWebhookEvent", mock.Anything, mock.Anything).
			Return(paymentIntentEvent("payment_intent.canceled", "pi_hook_2"), nil).Once()

		w := postWebhook(r, `{}`)

		assert.Equal(t, http.StatusOK, w.Code)

		var count int64
		db.Model(&models.Transaction{}).Where("billing_profile_id = ?", profile.ID).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("Unhandled event types are acknowledged", func(t *testing.T) {
		_, _, mockPayments, r := newWebhookTestEnv(t)
		mockPayments.On("ConstructWebhookEvent", mock.Anything, mock.Anything).
			Return(stripe.Event{Type: "customer.created", Data: &stripe.EventData{Raw: json.RawMessage(`{}`)}}, nil).Once()

		w := postWebhook(r, `{}`)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
