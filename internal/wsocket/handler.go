package wsocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"prepdeck_go_backend/internal/models"
	"prepdeck_go_backend/internal/services"
	"prepdeck_go_backend/internal/utils/broker"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Handler serves the study-session websocket. The frontend reports token
// usage over the socket while a tutor session runs and gets balance updates
// and low-credit warnings pushed back.
type Handler struct {
	billingService     *services.BillingService
	userService        *services.UserService
	upgrader           websocket.Upgrader
	balanceInterval    time.Duration
	lowCreditThreshold decimal.Decimal
}

type Message struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`

	ModelName         string `json:"model_name,omitempty"`
	InputTokens       int    `json:"input_tokens,omitempty"`
	InputTokensCached int    `json:"input_tokens_cached,omitempty"`
	OutputTokens      int    `json:"output_tokens,omitempty"`
}

func NewHandler(billingService *services.BillingService, userService *services.UserService, upgrader websocket.Upgrader, balanceInterval time.Duration, lowCreditThreshold decimal.Decimal) *Handler {
	return &Handler{
		billingService:     billingService,
		userService:        userService,
		upgrader:           upgrader,
		balanceInterval:    balanceInterval,
		lowCreditThreshold: lowCreditThreshold,
	}
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request, user interface{}, messageBroker *broker.Broker) {
	userModel, ok := user.(*models.User)
	if !ok {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	profile, err := h.userService.GetBillingProfile(userModel.ID)
	if err != nil {
		http.Error(w, "No billing profile", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	// The push goroutine and the read loop share the connection; gorilla
	// allows only one concurrent writer.
	var writeMu sync.Mutex
	writeJSON := func(msg Message) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ticker := time.NewTicker(h.balanceInterval)
	defer ticker.Stop()

	userID := userModel.ID.String()
	creditUpdateChan := messageBroker.Subscribe("credit_update_" + userID)
	defer messageBroker.Unsubscribe("credit_update_"+userID, creditUpdateChan)

	go func() {
		warned := false
		for {
			select {
			case <-ctx.Done():
				return
			case msg, open := <-creditUpdateChan:
				if !open {
					return
				}
				if err := writeJSON(Message{
					Type:    "credit_update",
					Content: msg.(string),
				}); err != nil {
					log.Warn().Err(err).Msg("Failed to send credit update")
					return
				}
			case <-ticker.C:
				current, err := h.billingService.GetProfile(profile.ID)
				if err != nil {
					log.Warn().Err(err).Msg("Failed to load profile for balance check")
					continue
				}
				balance := current.Balance()
				if balance.GreaterThan(h.lowCreditThreshold) {
					warned = false
					continue
				}
				if warned {
					continue
				}
				warned = true
				if err := writeJSON(Message{
					Type:    "credit_warning",
					Content: fmt.Sprintf(`{"balance": %s}`, balance.StringFixed(6)),
				}); err != nil {
					log.Warn().Err(err).Msg("Failed to send credit warning")
					return
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "token_usage":
			h.handleTokenUsage(writeJSON, profile.ID, msg)
		case "get_balance":
			current, err := h.billingService.GetProfile(profile.ID)
			if err != nil {
				writeJSON(Message{Type: "error", Content: "Failed to load balance"})
				continue
			}
			writeJSON(Message{
				Type:    "balance",
				Content: current.Balance().StringFixed(6),
			})
		default:
			log.Debug().Str("type", msg.Type).Msg("Unknown websocket message type")
		}
	}
}

func (h *Handler) handleTokenUsage(writeJSON func(Message) error, profileID uuid.UUID, msg Message) {
	cost, balance, err := h.billingService.AddTokenUsage(profileID, msg.ModelName, msg.InputTokens, msg.InputTokensCached, msg.OutputTokens, nil)
	if err != nil {
		writeJSON(Message{
			Type:    "error",
			Content: err.Error(),
		})
		return
	}

	payload, _ := json.Marshal(map[string]string{
		"cost":    cost.StringFixed(6),
		"balance": balance.StringFixed(6),
	})
	writeJSON(Message{
		Type:    "usage_recorded",
		Content: string(payload),
	})
}
