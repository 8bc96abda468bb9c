package wsocket_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"prepdeck_go_backend/internal/models"
	"prepdeck_go_backend/internal/services"
	"prepdeck_go_backend/internal/utils/broker"
	"prepdeck_go_backend/internal/wsocket"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSocketTestDB(t *testing.T) *gorm.DB {
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
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newSocketTestUser(t *testing.T, db *gorm.DB, credits string) *models.User {
	t.Helper()

	user := models.User{
		Auth0ID: "auth0|" + uuid.NewString(),
		Email:   uuid.NewString() + "@example.com",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	amount, err := decimal.NewFromString(credits)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", credits, err)
	}
	profile := models.BillingProfile{UserID: user.ID, TotalCredits: amount}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("failed to create test profile: %v", err)
	}
	return &user
}

type socketEnv struct {
	conn   *websocket.Conn
	broker *broker.Broker
	user   *models.User
}

// dialSocket stands up the full websocket stack against an in-memory database
// and returns a connected client.
func dialSocket(t *testing.T, credits string, balanceInterval time.Duration, lowCreditThreshold string) *socketEnv {
	t.Helper()

	db := newSocketTestDB(t)
	user := newSocketTestUser(t, db, credits)
	messageBroker := broker.NewBroker()

	pricing := services.NewPricingService(db, nil)
	if err := pricing.SetTokenCost("gpt-4o-mini", services.TokenClassInput, decimal.NewFromInt(2)); err != nil {
		t.Fatalf("failed to seed pricing: %v", err)
	}
	if err := pricing.SetTokenCost("gpt-4o-mini", services.TokenClassInputCached, decimal.NewFromInt(1)); err != nil {
		t.Fatalf("failed to seed pricing: %v", err)
	}
	if err := pricing.SetTokenCost("gpt-4o-mini", services.TokenClassOutput, decimal.NewFromInt(4)); err != nil {
		t.Fatalf("failed to seed pricing: %v", err)
	}

	billing := services.NewBillingService(db, pricing, nil, messageBroker, 30*time.Minute)
	users := services.NewUserService(db, billing, decimal.Zero)

	threshold, err := decimal.NewFromString(lowCreditThreshold)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", lowCreditThreshold, err)
	}
	handler := wsocket.NewHandler(billing, users, websocket.Upgrader{}, balanceInterval, threshold)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.HandleWebSocket(w, r, user, messageBroker)
	}))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return &socketEnv{conn: conn, broker: messageBroker, user: user}
}

func readFrame(t *testing.T, conn *websocket.Conn) wsocket.Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg wsocket.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read websocket frame: %v", err)
	}
	return msg
}

func TestHandleWebSocket(t *testing.T) {
	t.Run("Replies to balance queries", func(t *testing.T) {
		env := dialSocket(t, "10.00", time.Hour, "1.00")

		err := env.conn.WriteJSON(wsocket.Message{Type: "get_balance"})
		assert.NoError(t, err)

		msg := readFrame(t, env.conn)
		assert.Equal(t, "balance", msg.Type)
		assert.Equal(t, "10.000000", msg.Content)
	})

	t.Run("Records token usage and pushes the new balance", func(t *testing.T) {
		env := dialSocket(t, "10.00", time.Hour, "1.00")

		err := env.conn.WriteJSON(wsocket.Message{
			Type:        "token_usage",
			ModelName:   "gpt-4o-mini",
			InputTokens: 1_000_000,
		})
		assert.NoError(t, err)

		// The usage acknowledgement comes from the read loop and the
		// balance push from the broker goroutine; the order is not fixed.
		frames := map[string]wsocket.Message{}
		for i := 0; i < 2; i++ {
			msg := readFrame(t, env.conn)
			frames[msg.Type] = msg
		}
		assert.Contains(t, frames, "usage_recorded")
		assert.Contains(t, frames, "credit_update")
		assert.Contains(t, frames["usage_recorded"].Content, `"cost":"2.000000"`)
		assert.Contains(t, frames["usage_recorded"].Content, `"balance":"8.000000"`)
		assert.Equal(t, "8", frames["credit_update"].Content)
	})

	t.Run("Warns when the balance is below the threshold", func(t *testing.T) {
		env := dialSocket(t, "2.00", 10*time.Millisecond, "5.00")

		msg := readFrame(t, env.conn)
		assert.Equal(t, "credit_warning", msg.Type)
		assert.Equal(t, `{"balance": 2.000000}`, msg.Content)
	})

	t.Run("Serves queries while balance pushes are in flight", func(t *testing.T) {
		env := dialSocket(t, "10.00", time.Hour, "1.00")

		// A round trip first, so the read loop (and with it the broker
		// subscription) is known to be up before publishing.
		assert.NoError(t, env.conn.WriteJSON(wsocket.Message{Type: "get_balance"}))
		assert.Equal(t, "balance", readFrame(t, env.conn).Type)

		const rounds = 20
		topic := "credit_update_" + env.user.ID.String()
		go func() {
			for i := 0; i < rounds; i++ {
				env.broker.Publish(topic, "10")
			}
		}()
		for i := 0; i < rounds; i++ {
			assert.NoError(t, env.conn.WriteJSON(wsocket.Message{Type: "get_balance"}))
		}

		// Both writers are active at once; every frame must still arrive
		// intact.
		for i := 0; i < 2*rounds; i++ {
			msg := readFrame(t, env.conn)
			assert.Contains(t, []string{"balance", "credit_update"}, msg.Type)
		}
	})
}
