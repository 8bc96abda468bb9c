package services

import (
	"bytes"
	"fmt"
	"strings"

	"prepdeck_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/ledongthuc/pdf"
	"gorm.io/gorm"
)

// DocumentService imports uploaded PDFs as plain-text documents and renders
// applications back out as PDFs. Uploaded files are parsed in-request and
// never stored.
type DocumentService struct {
	db *gorm.DB
}

func NewDocumentService(db *gorm.DB) *DocumentService {
	return &DocumentService{db: db}
}

// ImportPDF extracts the text of the PDF at pdfPath and saves it as a
// document owned by the user.
func (s *DocumentService) ImportPDF(userID uuid.UUID, title, pdfPath string) (*models.Document, error) {
	content, err := s.extractTextFromPDF(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from PDF: %v", err)
	}

	doc := models.Document{
		UserID:  userID,
		Title:   title,
		Content: content,
	}
	if err := s.db.Create(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *DocumentService) GetDocumentsByUserID(userID uuid.UUID) ([]models.Document, error) {
	var docs []models.Document
	result := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&docs)
	if result.Error != nil {
		return nil, result.Error
	}
	return docs, nil
}

func (s *DocumentService) GetDocumentByID(userID, docID uuid.UUID) (*models.Document, error) {
	var doc models.Document
	result := s.db.Where("id = ? AND user_id = ?", docID, userID).First(&doc)
	if result.Error != nil {
		return nil, result.Error
	}
	return &doc, nil
}

func (s *DocumentService) DeleteDocument(userID, docID uuid.UUID) error {
	result := s.db.Where("id = ? AND user_id = ?", docID, userID).Delete(&models.Document{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *DocumentService) extractTextFromPDF(pdfPath string) (string, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %v", err)
	}
	defer f.Close()

	var content strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		content.WriteString(text)
		content.WriteString("\n\n") // Add separation between pages
	}

	if content.Len() == 0 {
		return "", fmt.Errorf("no text content extracted from PDF")
	}

	return content.String(), nil
}

// RenderDocumentPDF re-exports an imported document's text as a PDF.
func (s *DocumentService) RenderDocumentPDF(doc *models.Document) ([]byte, error) {
	out := gofpdf.New("P", "mm", "A4", "")
	out.SetTitle(doc.Title, true)
	out.AddPage()

	out.SetFont("Helvetica", "B", 16)
	out.MultiCell(0, 8, doc.Title, "", "L", false)
	out.Ln(4)

	out.SetFont("Helvetica", "", 10)
	out.MultiCell(0, 5, doc.Content, "", "L", false)

	var buf bytes.Buffer
	if err := out.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderApplicationPDF produces a printable PDF of one application: name,
// status, job description and the resume text used for it.
func (s *DocumentService) RenderApplicationPDF(app *models.Application) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle(app.Name, true)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.MultiCell(0, 8, app.Name, "", "L", false)

	doc.SetFont("Helvetica", "I", 10)
	doc.MultiCell(0, 6, fmt.Sprintf("Status: %s", app.Status), "", "L", false)
	doc.Ln(4)

	doc.SetFont("Helvetica", "B", 12)
	doc.MultiCell(0, 6, "Job Description", "", "L", false)
	doc.SetFont("Helvetica", "", 10)
	doc.MultiCell(0, 5, app.JobDescription, "", "L", false)
	doc.Ln(4)

	doc.SetFont("Helvetica", "B", 12)
	doc.MultiCell(0, 6, "Resume", "", "L", false)
	doc.SetFont("Helvetica", "", 10)
	doc.MultiCell(0, 5, app.Resume, "", "L", false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
