package services

import (
	"prepdeck_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FlashCardServiceDB defines the interface for flashcard persistence
type FlashCardServiceDB interface {
	CreateFlashCard(card *models.FlashCard) error
	CreateFlashCards(cards []*models.FlashCard) error
	GetFlashCardsByUserID(userID uuid.UUID) ([]models.FlashCard, error)
	GetFlashCardByID(userID, cardID uuid.UUID) (*models.FlashCard, error)
	UpdateFlashCardContent(userID, cardID uuid.UUID, front, back string, tags []byte) (*models.FlashCard, error)
	DeleteFlashCard(userID, cardID uuid.UUID) error
}

// DefaultFlashCardService implements FlashCardServiceDB
type DefaultFlashCardService struct {
	db *gorm.DB
}

func NewFlashCardServiceDB(db *gorm.DB) FlashCardServiceDB {
	return &DefaultFlashCardService{db: db}
}

func (s *DefaultFlashCardService) CreateFlashCard(card *models.FlashCard) error {
	return s.db.Create(card).Error
}

// CreateFlashCards inserts a batch of cards, typically a whole generated deck.
func (s *DefaultFlashCardService) CreateFlashCards(cards []*models.FlashCard) error {
	if len(cards) == 0 {
		return nil
	}
	return s.db.Create(cards).Error
}

// GetFlashCardsByUserID returns the user's cards, most recently reviewed
// first, never-reviewed cards last.
func (s *DefaultFlashCardService) GetFlashCardsByUserID(userID uuid.UUID) ([]models.FlashCard, error) {
	var cards []models.FlashCard
	result := s.db.Where("user_id = ?", userID).
		Order("front_last_review DESC NULLS LAST").
		Order("back_last_review DESC NULLS LAST").
		Order("created_at DESC").
		Find(&cards)
	if result.Error != nil {
		return nil, result.Error
	}
	return cards, nil
}

func (s *DefaultFlashCardService) GetFlashCardByID(userID, cardID uuid.UUID) (*models.FlashCard, error) {
	var card models.FlashCard
	result := s.db.Where("id = ? AND user_id = ?", cardID, userID).First(&card)
	if result.Error != nil {
		return nil, result.Error
	}
	return &card, nil
}

// UpdateFlashCardContent updates the editable fields only; review state is
// owned by the scheduler and never written here.
func (s *DefaultFlashCardService) UpdateFlashCardContent(userID, cardID uuid.UUID, front, back string, tags []byte) (*models.FlashCard, error) {
	var card models.FlashCard
	if err := s.db.Where("id = ? AND user_id = ?", cardID, userID).First(&card).Error; err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"front": front,
		"back":  back,
	}
	if tags != nil {
		updates["tags"] = tags
	}
	if err := s.db.Model(&card).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (s *DefaultFlashCardService) DeleteFlashCard(userID, cardID uuid.UUID) error {
	result := s.db.Where("id = ? AND user_id = ?", cardID, userID).Delete(&models.FlashCard{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
