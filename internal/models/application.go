package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	ApplicationDraft      ApplicationStatus = "draft"
	ApplicationSubmitted  ApplicationStatus = "submitted"
	ApplicationInProgress ApplicationStatus = "in_progress"
	ApplicationRejected   ApplicationStatus = "rejected"
	ApplicationAccepted   ApplicationStatus = "accepted"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationDraft, ApplicationSubmitted, ApplicationInProgress, ApplicationRejected, ApplicationAccepted:
		return true
	}
	return false
}

// Application is one tracked job application: the position, the resume text
// used for it and the job description it targets.
type Application struct {
	gorm.Model
	ID             uuid.UUID         `gorm:"type:uuid;primary_key"`
	UserID         uuid.UUID         `gorm:"type:uuid;index;not null"`
	Name           string            `gorm:"not null"`
	Status         ApplicationStatus `gorm:"type:varchar(20);default:'draft'"`
	Resume         string
	JobDescription string
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type Deck struct {
	gorm.Model
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID      uuid.UUID `gorm:"type:uuid;index;not null"`
	Name        string    `gorm:"not null"`
	Description string
}

func (d *Deck) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Document is imported text content, typically extracted from an uploaded
// resume PDF. Only the text is kept; the file itself is discarded.
type Document struct {
	gorm.Model
	ID      uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Title   string    `gorm:"not null"`
	Content string
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Tutor mirrors one YAML config file from the tutors directory, keyed by the
// file's path relative to that directory.
type Tutor struct {
	gorm.Model
	ConfigPath string `gorm:"uniqueIndex;not null"`
	Name       string
	DeckName   string
	URLPath    string
}
