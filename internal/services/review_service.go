package services

import (
	"errors"
	"math/rand"
	"time"

	"prepdeck_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidReviewStatus = errors.New("review status must be forgot, hard or easy")
	ErrInvalidCardSide     = errors.New("card side must be front or back")
)

// ReviewService runs the spaced-repetition scheduling over a user's cards.
type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// UpdateReview applies one review answer to one side of a card and persists
// only that side's fields.
func (s *ReviewService) UpdateReview(userID, cardID uuid.UUID, status models.ReviewStatus, side models.CardSide, notes *string) (*models.FlashCard, error) {
	if !status.Valid() {
		return nil, ErrInvalidReviewStatus
	}
	if !side.Valid() {
		return nil, ErrInvalidCardSide
	}

	var card models.FlashCard
	if err := s.db.Where("id = ? AND user_id = ?", cardID, userID).First(&card).Error; err != nil {
		return nil, err
	}

	card.Side(side).ApplyReview(status, notes, time.Now())

	prefix := string(side) + "_"
	state := card.Side(side)
	err := s.db.Model(&card).Updates(map[string]interface{}{
		prefix + "last_review":     state.LastReview,
		prefix + "interval":        state.Interval,
		prefix + "review_count":    state.ReviewCount,
		prefix + "easiness_factor": state.EasinessFactor,
		prefix + "repetitions":     state.Repetitions,
		prefix + "notes":           state.Notes,
	}).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// NextReview picks the next (card, side) pair to study. Sides that have been
// reviewed before and are due again come before never-reviewed sides; within
// each class the pick is random. Returns a nil card when nothing is due.
func (s *ReviewService) NextReview(userID uuid.UUID) (*models.FlashCard, models.CardSide, error) {
	var cards []models.FlashCard
	if err := s.db.Where("user_id = ?", userID).Find(&cards).Error; err != nil {
		return nil, "", err
	}

	type candidate struct {
		card *models.FlashCard
		side models.CardSide
	}
	var reviewNeeded, unreviewed []candidate
	now := time.Now()

	for i := range cards {
		card := &cards[i]
		for _, side := range []models.CardSide{models.CardSideFront, models.CardSideBack} {
			state := card.Side(side)
			if !state.IsDue(now) {
				continue
			}
			if state.LastReview == nil {
				unreviewed = append(unreviewed, candidate{card, side})
			} else {
				reviewNeeded = append(reviewNeeded, candidate{card, side})
			}
		}
	}

	pool := reviewNeeded
	if len(pool) == 0 {
		pool = unreviewed
	}
	if len(pool) == 0 {
		return nil, "", nil
	}

	picked := pool[rand.Intn(len(pool))]
	return picked.card, picked.side, nil
}
