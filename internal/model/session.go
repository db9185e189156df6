package model

import (
	"slices"
	"time"
)

const (
	OfferReward    = 5
	TeachingReward = 10
)

// Session is a tutoring offering. Unrelated to HTTP or auth sessions.
type Session struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Teacher          string    `json:"teacher"`
	CreditsRequired  int       `json:"creditsRequired"`
	EnrolledStudents []string  `json:"students"`
	IsBooked         bool      `json:"isBooked"`           // legacy, unused
	LegacySessionIDs []string  `json:"sessions,omitempty"` // legacy, unused
	CreatedAt        time.Time `json:"createdAt"`
}

// HasStudent reports whether username is already enrolled
func (s *Session) HasStudent(username string) bool {
	return slices.Contains(s.EnrolledStudents, username)
}

// OfferSessionRequest is the payload for offering a new session
type OfferSessionRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description" validate:"required,max=5000"`
	CreditsRequired int    `json:"creditsRequired" validate:"required,gt=0"`
}

// Enrollment describes a committed enrollment
type Enrollment struct {
	SessionID   string    `json:"sessionId"`
	Student     string    `json:"student"`
	Teacher     string    `json:"teacher"`
	Price       int       `json:"price"`
	TeacherPaid bool      `json:"teacherPaid"`
	EnrolledAt  time.Time `json:"enrolledAt"`
}
