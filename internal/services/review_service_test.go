package services_test

import (
	"testing"
	"time"

	"prepdeck_go_backend/internal/models"
	"prepdeck_go_backend/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newTestCard(t *testing.T, db *gorm.DB, userID uuid.UUID) *models.FlashCard {
	t.Helper()
	card := models.FlashCard{
		UserID: userID,
		Front:  "What does STAR stand for?",
		Back:   "Situation, Task, Action, Result",
	}
	if err := db.Create(&card).Error; err != nil {
		t.Fatalf("failed to create test card: %v", err)
	}
	return &card
}

func TestUpdateReview(t *testing.T) {
	db := newTestDB(t)
	reviewService := services.NewReviewService(db)
	userID := uuid.New()

	t.Run("Persists the reviewed side only", func(t *testing.T) {
		card := newTestCard(t, db, userID)

		updated, err := reviewService.UpdateReview(userID, card.ID, models.ReviewEasy, models.CardSideFront, nil)

		assert.NoError(t, err)
		assert.Equal(t, 1, updated.FrontState.ReviewCount)
		assert.NotNil(t, updated.FrontState.LastReview)

		var reloaded models.FlashCard
		db.Where("id = ?", card.ID).First(&reloaded)
		assert.Equal(t, 1, reloaded.FrontState.ReviewCount)
		assert.Equal(t, 0, reloaded.BackState.ReviewCount)
		assert.Nil(t, reloaded.BackState.LastReview)
	})

	t.Run("Rejects an invalid status", func(t *testing.T) {
		card := newTestCard(t, db, userID)

		_, err := reviewService.UpdateReview(userID, card.ID, "sorta", models.CardSideFront, nil)

		assert.ErrorIs(t, err, services.ErrInvalidReviewStatus)
	})

	t.Run("Rejects an invalid side", func(t *testing.T) {
		card := newTestCard(t, db, userID)

		_, err := reviewService.UpdateReview(userID, card.ID, models.ReviewEasy, "middle", nil)

		assert.ErrorIs(t, err, services.ErrInvalidCardSide)
	})

	t.Run("Another user's card is not found", func(t *testing.T) {
		card := newTestCard(t, db, userID)

		_, err := reviewService.UpdateReview(uuid.New(), card.ID, models.ReviewEasy, models.CardSideFront, nil)

		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestNextReview(t *testing.T) {
	db := newTestDB(t)
	reviewService := services.NewReviewService(db)

	t.Run("Returns nil when nothing is due", func(t *testing.T) {
		userID := uuid.New()
		card := newTestCard(t, db, userID)

		// Push both sides far into the future.
		future := time.Now()
		assert.NoError(t, db.Model(card).Updates(map[string]interface{}{
			"front_last_review": future,
			"front_interval":    600,
			"back_last_review":  future,
			"back_interval":     600,
		}).Error)

		picked, _, err := reviewService.NextReview(userID)

		assert.NoError(t, err)
		assert.Nil(t, picked)
	})

	t.Run("Prefers a previously reviewed due side over an unreviewed one", func(t *testing.T) {
		userID := uuid.New()
		reviewed := newTestCard(t, db, userID)
		newTestCard(t, db, userID) // never reviewed, both sides due

		past := time.Now().Add(-2 * time.Hour)
		assert.NoError(t, db.Model(reviewed).Updates(map[string]interface{}{
			"front_last_review": past,
			"front_interval":    1,
			"back_last_review":  time.Now(),
			"back_interval":     600,
		}).Error)

		for i := 0; i < 5; i++ {
			picked, side, err := reviewService.NextReview(userID)
			assert.NoError(t, err)
			assert.NotNil(t, picked)
			assert.Equal(t, reviewed.ID, picked.ID)
			assert.Equal(t, models.CardSideFront, side)
		}
	})

	t.Run("Falls back to unreviewed sides", func(t *testing.T) {
		userID := uuid.New()
		card := newTestCard(t, db, userID)

		picked, _, err := reviewService.NextReview(userID)

		assert.NoError(t, err)
		assert.NotNil(t, picked)
		assert.Equal(t, card.ID, picked.ID)
	})
}
