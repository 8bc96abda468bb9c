package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"prepdeck_go_backend/internal/models"
	"prepdeck_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func flashCardJSON(card *models.FlashCard) gin.H {
	var tags []string
	if len(card.Tags) > 0 {
		// Tags column is a JSON array; bad data just serializes as empty.
		_ = json.Unmarshal(card.Tags, &tags)
	}
	if tags == nil {
		tags = []string{}
	}
	return gin.H{
		"id":          card.ID,
		"front":       card.Front,
		"back":        card.Back,
		"tags":        tags,
		"created_at":  card.CreatedAt,
		"front_state": sideStateJSON(&card.FrontState),
		"back_state":  sideStateJSON(&card.BackState),
	}
}

func sideStateJSON(state *models.CardSideState) gin.H {
	return gin.H{
		"last_review":     state.LastReview,
		"interval":        state.Interval,
		"review_count":    state.ReviewCount,
		"easiness_factor": state.EasinessFactor,
		"repetitions":     state.Repetitions,
		"notes":           state.Notes,
	}
}

type flashCardRequest struct {
	Front string   `json:"front" binding:"required"`
	Back  string   `json:"back" binding:"required"`
	Tags  []string `json:"tags"`
}

func (r *flashCardRequest) toModel(userID uuid.UUID) (*models.FlashCard, error) {
	tags, err := json.Marshal(r.Tags)
	if err != nil {
		return nil, err
	}
	return &models.FlashCard{
		UserID: userID,
		Front:  r.Front,
		Back:   r.Back,
		Tags:   tags,
	}, nil
}

func listFlashCardsHandler(flashcardService services.FlashCardServiceDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		cards, err := flashcardService.GetFlashCardsByUserID(user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load flashcards"})
			return
		}

		out := make([]gin.H, 0, len(cards))
		for i := range cards {
			out = append(out, flashCardJSON(&cards[i]))
		}
		c.JSON(http.StatusOK, gin.H{"flashcards": out})
	}
}

// createFlashCardsHandler accepts either a single card object or an array of
// cards, matching the bulk-import flow on the frontend.
func createFlashCardsHandler(flashcardService services.FlashCardServiceDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
			return
		}

		var reqs []flashCardRequest
		if err := json.Unmarshal(body, &reqs); err != nil {
			var single flashCardRequest
			if err := json.Unmarshal(body, &single); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid flashcard payload"})
				return
			}
			reqs = []flashCardRequest{single}
		}
		if len(reqs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No flashcards provided"})
			return
		}

		cards := make([]*models.FlashCard, 0, len(reqs))
		for i := range reqs {
			if reqs[i].Front == "" || reqs[i].Back == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Both front and back are required"})
				return
			}
			card, err := reqs[i].toModel(user.ID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tags"})
				return
			}
			cards = append(cards, card)
		}

		if err := flashcardService.CreateFlashCards(cards); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create flashcards"})
			return
		}

		out := make([]gin.H, 0, len(cards))
		for _, card := range cards {
			out = append(out, flashCardJSON(card))
		}
		c.JSON(http.StatusCreated, gin.H{"flashcards": out})
	}
}

func updateFlashCardHandler(flashcardService services.FlashCardServiceDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		cardID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid flashcard ID"})
			return
		}

		var req flashCardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		tags, err := json.Marshal(req.Tags)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tags"})
			return
		}

		card, err := flashcardService.UpdateFlashCardContent(user.ID, cardID, req.Front, req.Back, tags)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Flashcard not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update flashcard"})
			return
		}

		c.JSON(http.StatusOK, flashCardJSON(card))
	}
}

func deleteFlashCardHandler(flashcardService services.FlashCardServiceDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		cardID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid flashcard ID"})
			return
		}

		if err := flashcardService.DeleteFlashCard(user.ID, cardID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Flashcard not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete flashcard"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}

func nextReviewHandler(reviewService *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		card, side, err := reviewService.NextReview(user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to pick next review"})
			return
		}
		if card == nil {
			c.JSON(http.StatusOK, gin.H{"card": nil})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"card": flashCardJSON(card),
			"side": side,
		})
	}
}

func reviewFlashCardHandler(reviewService *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		cardID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid flashcard ID"})
			return
		}

		var req struct {
			Status string  `json:"status" binding:"required"`
			Side   string  `json:"side" binding:"required"`
			Notes  *string `json:"notes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		card, err := reviewService.UpdateReview(user.ID, cardID, models.ReviewStatus(req.Status), models.CardSide(req.Side), req.Notes)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Flashcard not found"})
				return
			}
			if errors.Is(err, services.ErrInvalidReviewStatus) || errors.Is(err, services.ErrInvalidCardSide) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record review"})
			return
		}

		c.JSON(http.StatusOK, flashCardJSON(card))
	}
}
