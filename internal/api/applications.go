package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"prepdeck_go_backend/internal/models"
	"prepdeck_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func listApplicationsHandler(applicationService *services.ApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		apps, err := applicationService.GetApplicationsByUserID(user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load applications"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"applications": apps})
	}
}

func createApplicationHandler(applicationService *services.ApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var req struct {
			Name           string `json:"name" binding:"required"`
			Resume         string `json:"resume"`
			JobDescription string `json:"job_description"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		app, err := applicationService.CreateApplication(user.ID, req.Name, req.Resume, req.JobDescription)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create application"})
			return
		}

		c.JSON(http.StatusCreated, app)
	}
}

func updateApplicationHandler(applicationService *services.ApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		appID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
			return
		}

		var req struct {
			Name           string `json:"name" binding:"required"`
			Status         string `json:"status" binding:"required"`
			Resume         string `json:"resume"`
			JobDescription string `json:"job_description"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		status := models.ApplicationStatus(req.Status)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application status"})
			return
		}

		app, err := applicationService.UpdateApplication(user.ID, appID, req.Name, status, req.Resume, req.JobDescription)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update application"})
			return
		}

		c.JSON(http.StatusOK, app)
	}
}

func deleteApplicationHandler(applicationService *services.ApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		appID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
			return
		}

		if err := applicationService.DeleteApplication(user.ID, appID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete application"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}

func exportApplicationPDFHandler(applicationService *services.ApplicationService, documentService *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		appID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
			return
		}

		app, err := applicationService.GetApplicationByID(user.ID, appID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load application"})
			return
		}

		pdfBytes, err := documentService.RenderApplicationPDF(app)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render PDF"})
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", app.Name+".pdf"))
		c.Data(http.StatusOK, "application/pdf", pdfBytes)
	}
}

func listDocumentsHandler(documentService *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		docs, err := documentService.GetDocumentsByUserID(user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load documents"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"documents": docs})
	}
}

// importDocumentHandler accepts a multipart PDF upload, extracts its text and
// stores only the text. The uploaded file is written to a temp path for the
// extractor and removed afterwards.
func importDocumentHandler(documentService *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
			return
		}
		if filepath.Ext(file.Filename) != ".pdf" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are supported"})
			return
		}

		title := c.PostForm("title")
		if title == "" {
			title = file.Filename
		}

		tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("upload-%s.pdf", uuid.NewString()))
		if err := c.SaveUploadedFile(file, tmpPath); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save uploaded file"})
			return
		}
		defer os.Remove(tmpPath)

		doc, err := documentService.ImportPDF(user.ID, title, tmpPath)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to extract text from PDF"})
			return
		}

		c.JSON(http.StatusCreated, doc)
	}
}

func exportDocumentPDFHandler(documentService *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		docID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
			return
		}

		doc, err := documentService.GetDocumentByID(user.ID, docID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load document"})
			return
		}

		pdfBytes, err := documentService.RenderDocumentPDF(doc)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render PDF"})
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Title+".pdf"))
		c.Data(http.StatusOK, "application/pdf", pdfBytes)
	}
}

func deleteDocumentHandler(documentService *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		docID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
			return
		}

		if err := documentService.DeleteDocument(user.ID, docID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete document"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}

func listDecksHandler(deckService *services.DeckService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		decks, err := deckService.GetDecksByUserID(user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load decks"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"decks": decks})
	}
}

func createDeckHandler(deckService *services.DeckService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var req struct {
			Name        string `json:"name" binding:"required"`
			Description string `json:"description"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		deck, err := deckService.CreateDeck(user.ID, req.Name, req.Description)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create deck"})
			return
		}

		c.JSON(http.StatusCreated, deck)
	}
}

func deleteDeckHandler(deckService *services.DeckService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		deckID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deck ID"})
			return
		}

		if err := deckService.DeleteDeck(user.ID, deckID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Deck not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete deck"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}

func listDeckCardsHandler(deckService *services.DeckService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		deckID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deck ID"})
			return
		}

		cards, err := deckService.GetDeckCards(user.ID, deckID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Deck not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load deck cards"})
			return
		}

		out := make([]gin.H, 0, len(cards))
		for i := range cards {
			out = append(out, flashCardJSON(&cards[i]))
		}
		c.JSON(http.StatusOK, gin.H{"flashcards": out})
	}
}

func addCardToDeckHandler(deckService *services.DeckService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		deckID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deck ID"})
			return
		}
		cardID, err := uuid.Parse(c.Param("cardId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid flashcard ID"})
			return
		}

		if err := deckService.AddCardToDeck(user.ID, deckID, cardID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Deck or flashcard not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add card to deck"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "added"})
	}
}

func removeCardFromDeckHandler(deckService *services.DeckService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		deckID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deck ID"})
			return
		}
		cardID, err := uuid.Parse(c.Param("cardId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid flashcard ID"})
			return
		}

		if err := deckService.RemoveCardFromDeck(user.ID, deckID, cardID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Deck or flashcard not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove card from deck"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "removed"})
	}
}

func listTutorsHandler(tutorService *services.TutorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tutors, err := tutorService.ListTutors()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load tutors"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"tutors": tutors})
	}
}

func syncTutorsHandler(tutorService *services.TutorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := tutorService.SyncTutors()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync tutors"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"synced": count})
	}
}
