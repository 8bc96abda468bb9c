package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "prepdeck_go_backend/internal/errors"
	"prepdeck_go_backend/internal/models"
	"prepdeck_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
)

// billingError maps service-level billing errors onto HTTP errors. Payment-
// shaped failures get 402 so the frontend can open the recharge flow.
func billingError(err error) *apperrors.CustomError {
	var rechargeErr *services.AutoRechargeError
	switch {
	case errors.Is(err, services.ErrInsufficientCredits),
		errors.Is(err, services.ErrMonthlyLimitReached),
		errors.Is(err, services.ErrNoPaymentMethodConfigured),
		errors.As(err, &rechargeErr):
		return apperrors.New402Error(err.Error())
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrMissingDescription),
		errors.Is(err, services.ErrInvalidTokenCount),
		errors.Is(err, services.ErrUnknownModelPricing):
		return apperrors.New400Error(err.Error())
	default:
		return apperrors.LogAndReturn500(err)
	}
}

func addTokenUsageHandler(billingService *services.BillingService, userService *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := currentProfile(c, userService)
		if !ok {
			return
		}

		var req struct {
			ModelName         string `json:"model_name" binding:"required"`
			InputTokens       int    `json:"input_tokens"`
			InputTokensCached int    `json:"input_tokens_cached"`
			OutputTokens      int    `json:"output_tokens"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cost, balance, err := billingService.AddTokenUsage(profile.ID, req.ModelName, req.InputTokens, req.InputTokensCached, req.OutputTokens, nil)
		if err != nil {
			apperrors.HandleError(c, billingError(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"cost":    cost.InexactFloat64(),
			"balance": balance.InexactFloat64(),
		})
	}
}

func billingDashboardHandler(billingService *services.BillingService, userService *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := currentProfile(c, userService)
		if !ok {
			return
		}

		transactions, err := billingService.RecentTransactions(profile.ID, 10)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transactions"})
			return
		}
		sessions, err := billingService.RecentSessions(profile.ID, 10)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sessions"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"balance":                profile.Balance().InexactFloat64(),
			"total_credits":          profile.TotalCredits.InexactFloat64(),
			"total_usage":            profile.TotalUsage.InexactFloat64(),
			"auto_recharge_enabled":  profile.AutoRechargeEnabled,
			"auto_recharge_amount":   profile.AutoRechargeAmount.InexactFloat64(),
			"monthly_recharge_limit": profile.MonthlyRechargeLimit.InexactFloat64(),
			"has_payment_method":     profile.StripePaymentMethodID != "",
			"transactions":           transactionsJSON(transactions),
			"sessions":               sessionsJSON(sessions),
		})
	}
}

func billingHistoryHandler(billingService *services.BillingService, userService *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := currentProfile(c, userService)
		if !ok {
			return
		}

		transactions, err := billingService.RecentTransactions(profile.ID, 100)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transactions"})
			return
		}
		sessions, err := billingService.RecentSessions(profile.ID, 100)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sessions"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"transactions": transactionsJSON(transactions),
			"sessions":     sessionsJSON(sessions),
		})
	}
}

func transactionsJSON(transactions []models.Transaction) []gin.H {
	out := make([]gin.H, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, gin.H{
			"id":          t.ID,
			"amount":      t.Amount.InexactFloat64(),
			"type":        t.Type,
			"status":      t.Status,
			"description": t.Description,
			"created_at":  t.CreatedAt,
		})
	}
	return out
}

func sessionsJSON(sessions []models.Session) []gin.H {
	out := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, gin.H{
			"id":               s.ID,
			"total_tokens":     s.TotalTokens,
			"cost":             s.Cost.InexactFloat64(),
			"duration_minutes": s.Duration(),
			"started_at":       s.CreatedAt,
			"last_activity_at": s.UpdatedAt,
		})
	}
	return out
}

func updateBillingSettingsHandler(billingService *services.BillingService, userService *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := currentProfile(c, userService)
		if !ok {
			return
		}

		var req struct {
			AutoRechargeEnabled  bool   `json:"auto_recharge_enabled"`
			AutoRechargeAmount   string `json:"auto_recharge_amount" binding:"required"`
			MonthlyRechargeLimit string `json:"monthly_recharge_limit" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		amount, err := decimal.NewFromString(req.AutoRechargeAmount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid auto_recharge_amount"})
			return
		}
		limit, err := decimal.NewFromString(req.MonthlyRechargeLimit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid monthly_recharge_limit"})
			return
		}

		updated, err := billingService.UpdateSettings(profile.ID, req.AutoRechargeEnabled, amount, limit)
		if err != nil {
			apperrors.HandleError(c, billingError(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"auto_recharge_enabled":  updated.AutoRechargeEnabled,
			"auto_recharge_amount":   updated.AutoRechargeAmount.InexactFloat64(),
			"monthly_recharge_limit": updated.MonthlyRechargeLimit.InexactFloat64(),
		})
	}
}

func adjustCreditsHandler(billingService *services.BillingService, userService *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := currentProfile(c, userService)
		if !ok {
			return
		}

		var req struct {
			Amount      string `json:"amount" binding:"required"`
			Description string `json:"description"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}

		balance, err := billingService.AdjustCredits(profile.ID, amount, req.Description)
		if err != nil {
			apperrors.HandleError(c, billingError(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"balance": balance.InexactFloat64()})
	}
}

func rechargeHandler(billingService *services.BillingService, userService *services.UserService, payments services.PaymentProvider, stripePublicKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		profile, err := userService.GetBillingProfile(user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load billing profile"})
			return
		}

		var req struct {
			Amount string `json:"amount" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || !amount.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}

		customerID := profile.StripeCustomerID
		if customerID == "" {
			customerID, err = payments.CreateCustomer(user.Email)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create customer"})
				return
			}
			if err := billingService.SaveCustomerID(profile.ID, customerID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save customer"})
				return
			}
		}

		intentID, clientSecret, err := payments.CreatePaymentIntent(services.MinorUnits(amount), customerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment intent"})
			return
		}

		if _, err := billingService.AddCreditIntent(profile.ID, amount, intentID, models.TransactionRecharge, "Credit purchase"); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record transaction"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"client_secret":     clientSecret,
			"payment_intent_id": intentID,
			"public_key":        stripePublicKey,
		})
	}
}

func updateTransactionStatusHandler(billingService *services.BillingService, payments services.PaymentProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PaymentIntentID string `json:"payment_intent_id" binding:"required"`
			Action          string `json:"action" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		switch req.Action {
		case "process":
			handled, err := billingService.UpdateCreditIntent(req.PaymentIntentID, models.TransactionProcessing)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update transaction"})
				return
			}
			if !handled {
				c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "processing"})
		case "cancel":
			if err := payments.CancelPaymentIntent(req.PaymentIntentID); err != nil {
				log.Warn().Err(err).Str("intent_id", req.PaymentIntentID).Msg("Failed to cancel payment intent with provider")
			}
			deleted, err := billingService.DeleteCreditIntent(req.PaymentIntentID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel transaction"})
				return
			}
			if !deleted {
				c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action"})
		}
	}
}

func setupIntentHandler(billingService *services.BillingService, userService *services.UserService, payments services.PaymentProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		profile, err := userService.GetBillingProfile(user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load billing profile"})
			return
		}

		customerID := profile.StripeCustomerID
		if customerID == "" {
			customerID, err = payments.CreateCustomer(user.Email)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create customer"})
				return
			}
			if err := billingService.SaveCustomerID(profile.ID, customerID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save customer"})
				return
			}
		}

		clientSecret, err := payments.CreateSetupIntent(customerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create setup intent"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"client_secret": clientSecret})
	}
}

func savePaymentMethodHandler(billingService *services.BillingService, userService *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := currentProfile(c, userService)
		if !ok {
			return
		}

		var req struct {
			PaymentMethodID string `json:"payment_method_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := billingService.SavePaymentMethod(profile.ID, profile.StripeCustomerID, req.PaymentMethodID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save payment method"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}

func stripeWebhookHandler(billingService *services.BillingService, payments services.PaymentProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		const MaxBodyBytes = int64(65536)
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
			return
		}

		signatureHeader := c.GetHeader("Stripe-Signature")
		event, err := payments.ConstructWebhookEvent(payload, signatureHeader)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to verify webhook signature")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to verify webhook signature"})
			return
		}

		var intent stripe.PaymentIntent
		switch event.Type {
		case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
			if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse payment intent"})
				return
			}
		default:
			c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Unhandled event type"})
			return
		}

		var handled bool
		switch event.Type {
		case "payment_intent.succeeded":
			handled, err = billingService.UpdateCreditIntent(intent.ID, models.TransactionSucceeded)
		case "payment_intent.payment_failed":
			handled, err = billingService.UpdateCreditIntent(intent.ID, models.TransactionFailed)
		case "payment_intent.canceled":
			handled, err = billingService.DeleteCreditIntent(intent.ID)
		}
		if err != nil {
			log.Error().Err(err).Str("intent_id", intent.ID).Str("event_type", string(event.Type)).Msg("Failed to settle payment intent")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process webhook"})
			return
		}
		if !handled {
			// Not one of ours. Acknowledge so Stripe stops retrying.
			c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Transaction not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}
