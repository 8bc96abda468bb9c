package services

import (
	"fmt"

	"prepdeck_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApplicationService is plain CRUD over job applications, scoped to the
// owning user.
type ApplicationService struct {
	db *gorm.DB
}

func NewApplicationService(db *gorm.DB) *ApplicationService {
	return &ApplicationService{db: db}
}

func (s *ApplicationService) CreateApplication(userID uuid.UUID, name, resume, jobDescription string) (*models.Application, error) {
	app := models.Application{
		UserID:         userID,
		Name:           name,
		Status:         models.ApplicationDraft,
		Resume:         resume,
		JobDescription: jobDescription,
	}
	if err := s.db.Create(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *ApplicationService) GetApplicationsByUserID(userID uuid.UUID) ([]models.Application, error) {
	var apps []models.Application
	result := s.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&apps)
	if result.Error != nil {
		return nil, result.Error
	}
	return apps, nil
}

func (s *ApplicationService) GetApplicationByID(userID, appID uuid.UUID) (*models.Application, error) {
	var app models.Application
	result := s.db.Where("id = ? AND user_id = ?", appID, userID).First(&app)
	if result.Error != nil {
		return nil, result.Error
	}
	return &app, nil
}

func (s *ApplicationService) UpdateApplication(userID, appID uuid.UUID, name string, status models.ApplicationStatus, resume, jobDescription string) (*models.Application, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid application status: %q", status)
	}
	app, err := s.GetApplicationByID(userID, appID)
	if err != nil {
		return nil, err
	}
	err = s.db.Model(app).Updates(map[string]interface{}{
		"name":            name,
		"status":          status,
		"resume":          resume,
		"job_description": jobDescription,
	}).Error
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (s *ApplicationService) DeleteApplication(userID, appID uuid.UUID) error {
	result := s.db.Where("id = ? AND user_id = ?", appID, userID).Delete(&models.Application{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
