package services

import (
	"prepdeck_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeckService struct {
	db *gorm.DB
}

func NewDeckService(db *gorm.DB) *DeckService {
	return &DeckService{db: db}
}

func (s *DeckService) CreateDeck(userID uuid.UUID, name, description string) (*models.Deck, error) {
	deck := models.Deck{
		UserID:      userID,
		Name:        name,
		Description: description,
	}
	if err := s.db.Create(&deck).Error; err != nil {
		return nil, err
	}
	return &deck, nil
}

func (s *DeckService) GetDecksByUserID(userID uuid.UUID) ([]models.Deck, error) {
	var decks []models.Deck
	result := s.db.Where("user_id = ?", userID).Order("name ASC").Find(&decks)
	if result.Error != nil {
		return nil, result.Error
	}
	return decks, nil
}

func (s *DeckService) GetDeckByID(userID, deckID uuid.UUID) (*models.Deck, error) {
	var deck models.Deck
	result := s.db.Where("id = ? AND user_id = ?", deckID, userID).First(&deck)
	if result.Error != nil {
		return nil, result.Error
	}
	return &deck, nil
}

// GetDeckCards returns the cards associated with a deck.
func (s *DeckService) GetDeckCards(userID, deckID uuid.UUID) ([]models.FlashCard, error) {
	deck, err := s.GetDeckByID(userID, deckID)
	if err != nil {
		return nil, err
	}
	var cards []models.FlashCard
	err = s.db.Joins("JOIN deck_cards ON deck_cards.flash_card_id = flash_cards.id").
		Where("deck_cards.deck_id = ?", deck.ID).
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// AddCardToDeck links an existing card into a deck. Both must belong to the
// same user.
func (s *DeckService) AddCardToDeck(userID, deckID, cardID uuid.UUID) error {
	deck, err := s.GetDeckByID(userID, deckID)
	if err != nil {
		return err
	}
	var card models.FlashCard
	if err := s.db.Where("id = ? AND user_id = ?", cardID, userID).First(&card).Error; err != nil {
		return err
	}
	return s.db.Model(&card).Association("Decks").Append(deck)
}

func (s *DeckService) RemoveCardFromDeck(userID, deckID, cardID uuid.UUID) error {
	deck, err := s.GetDeckByID(userID, deckID)
	if err != nil {
		return err
	}
	var card models.FlashCard
	if err := s.db.Where("id = ? AND user_id = ?", cardID, userID).First(&card).Error; err != nil {
		return err
	}
	return s.db.Model(&card).Association("Decks").Delete(deck)
}

func (s *DeckService) DeleteDeck(userID, deckID uuid.UUID) error {
	deck, err := s.GetDeckByID(userID, deckID)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM deck_cards WHERE deck_id = ?", deck.ID).Error; err != nil {
			return err
		}
		return tx.Delete(deck).Error
	})
}
