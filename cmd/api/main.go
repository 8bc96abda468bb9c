package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"prepdeck_go_backend/cmd/api/config"
	"prepdeck_go_backend/internal/api"
	"prepdeck_go_backend/internal/auth"
	"prepdeck_go_backend/internal/database"
	"prepdeck_go_backend/internal/services"
	"prepdeck_go_backend/internal/utils/broker"
	"prepdeck_go_backend/internal/wsocket"

	"github.com/gorilla/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database.InitDB()

	stripeService := services.NewStripeService(cfg.StripePublicKey, cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	messageBroker := broker.NewBroker()

	pricingService := services.NewPricingService(database.DB, cfg.TokenPriceFallback)
	billingService := services.NewBillingService(database.DB, pricingService, stripeService, messageBroker, cfg.SessionWindow)
	userService := services.NewUserService(database.DB, billingService, cfg.SignupCredits)

	reviewService := services.NewReviewService(database.DB)
	flashcardService := services.NewFlashCardServiceDB(database.DB)
	applicationService := services.NewApplicationService(database.DB)
	deckService := services.NewDeckService(database.DB)
	documentService := services.NewDocumentService(database.DB)
	tutorService := services.NewTutorService(database.DB, cfg.TutorsDir)

	if _, err := tutorService.SyncTutors(); err != nil {
		log.Printf("Tutor sync failed: %v", err)
	}

	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173" // Default to your local frontend
	}

	// CORS middleware configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(allowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// WebSocket upgrader
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // TODO: Implement a more secure check in production
		},
	}

	wsHandler := wsocket.NewHandler(billingService, userService, upgrader, cfg.BalanceCheckInterval, cfg.LowCreditThreshold)

	api.SetupRoutes(
		r,
		billingService,
		userService,
		reviewService,
		flashcardService,
		applicationService,
		deckService,
		documentService,
		tutorService,
		stripeService,
		cfg.StripePublicKey,
	)
	auth.SetupRoutes(r, userService)

	r.GET("/ws", auth.AuthMiddleware(userService), func(c *gin.Context) {
		user, _ := c.Get("user")
		wsHandler.HandleWebSocket(c.Writer, c.Request, user, messageBroker)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
