package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReviewStatus string

const (
	ReviewForgot ReviewStatus = "forgot"
	ReviewHard   ReviewStatus = "hard"
	ReviewEasy   ReviewStatus = "easy"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewForgot, ReviewHard, ReviewEasy:
		return true
	}
	return false
}

type CardSide string

const (
	CardSideFront CardSide = "front"
	CardSideBack  CardSide = "back"
)

func (s CardSide) Valid() bool {
	return s == CardSideFront || s == CardSideBack
}

const (
	MinEasinessFactor = 1.3
	MaxEasinessFactor = 2.5
)

// CardSideState carries the SM-2 scheduling state for one face of a card.
// Interval is in minutes.
type CardSideState struct {
	LastReview     *time.Time
	Interval       int     `gorm:"default:1"`
	ReviewCount    int     `gorm:"default:0"`
	EasinessFactor float64 `gorm:"default:2.5"`
	Repetitions    int     `gorm:"default:0"`
	Notes          string
}

// IsDue reports whether this side needs review. A side that was never
// reviewed is always due.
func (s *CardSideState) IsDue(now time.Time) bool {
	if s.LastReview == nil {
		return true
	}
	return !s.LastReview.Add(time.Duration(s.Interval) * time.Minute).After(now)
}

// ApplyReview runs one SM-2 update for this side. A forgot answer resets the
// repetition chain; hard and easy adjust the easiness factor within
// [1.3, 2.5]. The first two successful repetitions pin the interval to 1 and
// 6 minutes, after that it compounds on the previous interval.
func (s *CardSideState) ApplyReview(status ReviewStatus, notes *string, now time.Time) {
	s.ReviewCount++
	s.LastReview = &now
	if notes != nil {
		s.Notes = *notes
	}

	if status == ReviewForgot {
		s.Repetitions = 0
		s.Interval = 1
		s.EasinessFactor = math.Max(MinEasinessFactor, s.EasinessFactor-0.3)
		return
	}

	s.Repetitions++
	switch status {
	case ReviewHard:
		s.EasinessFactor = math.Max(MinEasinessFactor, s.EasinessFactor-0.15)
	case ReviewEasy:
		s.EasinessFactor = math.Min(MaxEasinessFactor, s.EasinessFactor+0.15)
	}

	switch s.Repetitions {
	case 1:
		s.Interval = 1
	case 2:
		s.Interval = 6
	default:
		s.Interval = int(math.Round(float64(s.Interval) * s.EasinessFactor))
	}
}

// FlashCard has two independently scheduled faces. Either side can be due on
// its own, and a review of one side never touches the other.
type FlashCard struct {
	gorm.Model
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID     uuid.UUID `gorm:"type:uuid;index;not null"`
	Front      string    `gorm:"not null"`
	Back       string    `gorm:"not null"`
	Tags       []byte    // JSON-encoded list of tags
	Decks      []Deck    `gorm:"many2many:deck_cards"`
	FrontState CardSideState `gorm:"embedded;embeddedPrefix:front_"`
	BackState  CardSideState `gorm:"embedded;embeddedPrefix:back_"`
}

func (c *FlashCard) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.FrontState.EasinessFactor == 0 {
		c.FrontState.EasinessFactor = MaxEasinessFactor
	}
	if c.BackState.EasinessFactor == 0 {
		c.BackState.EasinessFactor = MaxEasinessFactor
	}
	if c.FrontState.Interval == 0 {
		c.FrontState.Interval = 1
	}
	if c.BackState.Interval == 0 {
		c.BackState.Interval = 1
	}
	return nil
}

func (c *FlashCard) Side(side CardSide) *CardSideState {
	if side == CardSideBack {
		return &c.BackState
	}
	return &c.FrontState
}

func (c *FlashCard) IsDueForReview(side CardSide, now time.Time) bool {
	return c.Side(side).IsDue(now)
}

// IsDueAnySide reports whether either face is due.
func (c *FlashCard) IsDueAnySide(now time.Time) bool {
	return c.FrontState.IsDue(now) || c.BackState.IsDue(now)
}
