package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"edupair/internal/events"
	"edupair/internal/model"
	"edupair/internal/repository"
	"edupair/internal/utils"
)

// AuthService provides authentication related services
type AuthService interface {
	Register(ctx context.Context, username, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Verify(token string) (string, error)
}

type authService struct {
	store      repository.Store
	jwtUtil    *utils.JWTUtil
	bcryptCost int
	events     *events.Emitter
	logger     *slog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(store repository.Store, jwtUtil *utils.JWTUtil, bcryptCost int, emitter *events.Emitter, logger *slog.Logger) AuthService {
	return &authService{
		store:      store,
		jwtUtil:    jwtUtil,
		bcryptCost: bcryptCost,
		events:     emitter,
		logger:     logger,
	}
}

// Register creates a new user account with the signup credit grant
func (s *authService) Register(ctx context.Context, username, password string) (*model.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	if len(password) > utils.MaxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, utils.MaxPasswordBytes)
	}

	existingUser, err := s.store.Users().FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, ErrUserAlreadyExists
	}

	hashedPassword, err := utils.HashPasswordWithCost(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:           username,
		PasswordHash:       hashedPassword,
		Credits:            model.DefaultCredits,
		Skills:             []string{},
		Interests:          []string{},
		EnrolledSessionIDs: []string{},
		TaughtSessionIDs:   []string{},
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Ledger().Create(ctx, &model.LedgerEntry{
			Username: username,
			Amount:   model.DefaultCredits,
			Kind:     model.LedgerKindSignupGrant,
		})
	})
	if errors.Is(err, repository.ErrDuplicateKey) {
		return nil, ErrUserAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", "username", username)
	s.events.Emit(ctx, events.TopicUserRegistered, events.UserRegistered{
		Username:     username,
		Credits:      user.Credits,
		RegisteredAt: time.Now().UTC(),
	})
	return user, nil
}

// Login checks the password and issues a signed token
func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.Users().FindByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("error finding user: %w", err)
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := s.jwtUtil.GenerateToken(user.Username)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// Verify resolves a bearer token to the username it was issued for
func (s *authService) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	claims, err := s.jwtUtil.ValidateToken(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims.Username, nil
}
