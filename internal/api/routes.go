package api

import (
	"net/http"

	"prepdeck_go_backend/internal/auth"
	"prepdeck_go_backend/internal/models"
	"prepdeck_go_backend/internal/services"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	r *gin.Engine,
	billingService *services.BillingService,
	userService *services.UserService,
	reviewService *services.ReviewService,
	flashcardService services.FlashCardServiceDB,
	applicationService *services.ApplicationService,
	deckService *services.DeckService,
	documentService *services.DocumentService,
	tutorService *services.TutorService,
	payments services.PaymentProvider,
	stripePublicKey string,
) {
	authRequired := auth.AuthMiddleware(userService)

	api := r.Group("/api")
	{
		api.GET("/private", authRequired, privateRoute)

		api.POST("/billing/token-usage", authRequired, addTokenUsageHandler(billingService, userService))
		api.GET("/billing/dashboard", authRequired, billingDashboardHandler(billingService, userService))
		api.GET("/billing/history", authRequired, billingHistoryHandler(billingService, userService))
		api.POST("/billing/settings", authRequired, updateBillingSettingsHandler(billingService, userService))
		api.POST("/billing/adjust", authRequired, adjustCreditsHandler(billingService, userService))
		api.POST("/billing/recharge", authRequired, rechargeHandler(billingService, userService, payments, stripePublicKey))
		api.POST("/billing/transactions/status", authRequired, updateTransactionStatusHandler(billingService, payments))
		api.POST("/billing/setup-intent", authRequired, setupIntentHandler(billingService, userService, payments))
		api.POST("/billing/payment-method", authRequired, savePaymentMethodHandler(billingService, userService))
		api.POST("/stripe/webhook", stripeWebhookHandler(billingService, payments))

		api.GET("/flashcards", authRequired, listFlashCardsHandler(flashcardService))
		api.POST("/flashcards", authRequired, createFlashCardsHandler(flashcardService))
		api.PUT("/flashcards/:id", authRequired, updateFlashCardHandler(flashcardService))
		api.DELETE("/flashcards/:id", authRequired, deleteFlashCardHandler(flashcardService))
		api.GET("/flashcards/next-review", authRequired, nextReviewHandler(reviewService))
		api.POST("/flashcards/:id/review", authRequired, reviewFlashCardHandler(reviewService))

		api.GET("/applications", authRequired, listApplicationsHandler(applicationService))
		api.POST("/applications", authRequired, createApplicationHandler(applicationService))
		api.PUT("/applications/:id", authRequired, updateApplicationHandler(applicationService))
		api.DELETE("/applications/:id", authRequired, deleteApplicationHandler(applicationService))
		api.GET("/applications/:id/pdf", authRequired, exportApplicationPDFHandler(applicationService, documentService))

		api.GET("/documents", authRequired, listDocumentsHandler(documentService))
		api.POST("/documents/import", authRequired, importDocumentHandler(documentService))
		api.GET("/documents/:id/pdf", authRequired, exportDocumentPDFHandler(documentService))
		api.DELETE("/documents/:id", authRequired, deleteDocumentHandler(documentService))

		api.GET("/decks", authRequired, listDecksHandler(deckService))
		api.POST("/decks", authRequired, createDeckHandler(deckService))
		api.DELETE("/decks/:id", authRequired, deleteDeckHandler(deckService))
		api.GET("/decks/:id/cards", authRequired, listDeckCardsHandler(deckService))
		api.POST("/decks/:id/cards/:cardId", authRequired, addCardToDeckHandler(deckService))
		api.DELETE("/decks/:id/cards/:cardId", authRequired, removeCardFromDeckHandler(deckService))

		api.GET("/tutors", authRequired, listTutorsHandler(tutorService))
		api.POST("/tutors/sync", authRequired, syncTutorsHandler(tutorService))
	}
}

func privateRoute(c *gin.Context) {
	user, _ := c.Get("user")
	c.JSON(http.StatusOK, gin.H{
		"message": "This is a private route",
		"user":    user,
	})
}

// currentUser pulls the authenticated user placed on the context by the auth
// middleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return nil, false
	}
	userModel, ok := user.(*models.User)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cast user to *models.User"})
		return nil, false
	}
	return userModel, true
}

// currentProfile resolves the billing profile of the authenticated user.
func currentProfile(c *gin.Context, userService *services.UserService) (*models.BillingProfile, bool) {
	user, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	profile, err := userService.GetBillingProfile(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load billing profile"})
		return nil, false
	}
	return profile, true
}
