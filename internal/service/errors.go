package service

import "errors"

var (
	ErrValidation           = errors.New("validation failed")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrUserNotFound         = errors.New("user not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrInsufficientCredits  = errors.New("not enough credits")
	ErrAlreadyEnrolled      = errors.New("already enrolled in this session")
	ErrEnrollmentInProgress = errors.New("enrollment already in progress, retry shortly")
)
