package model

import "time"

const (
	DefaultCredits = 10
	SchemaVersion  = 1
)

// User represents a registered learner/teacher and their credit balance
type User struct {
	Username           string    `json:"username"`
	PasswordHash       string    `json:"-"` // Do not expose password hash in JSON responses
	Credits            int       `json:"credits"`
	Bio                string    `json:"bio"`
	Skills             []string  `json:"skills"`
	Interests          []string  `json:"interests"`
	EnrolledSessionIDs []string  `json:"enrolledSessionIds"`
	TaughtSessionIDs   []string  `json:"-"` // legacy, never written
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Profile is the dashboard view of a user
type Profile struct {
	Username  string   `json:"username"`
	Credits   int      `json:"credits"`
	Bio       string   `json:"bio"`
	Skills    []string `json:"skills"`
	Interests []string `json:"interests"`
}

// Summary is the short view served on /me
type Summary struct {
	Username string `json:"username"`
	Credits  int    `json:"credits"`
}

// UpdateProfileRequest replaces bio, skills and interests as a whole
type UpdateProfileRequest struct {
	Bio       string   `json:"bio" validate:"max=2000"`
	Skills    []string `json:"skills" validate:"omitempty,max=50,dive,max=100"`
	Interests []string `json:"interests" validate:"omitempty,max=50,dive,max=100"`
}
