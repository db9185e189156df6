package service

import (
	"context"
	"errors"
	"fmt"

	"edupair/internal/model"
	"edupair/internal/repository"
)

// ProfileService reads and edits a user's public profile
type ProfileService interface {
	GetProfile(ctx context.Context, username string) (*model.Profile, error)
	GetSummary(ctx context.Context, username string) (*model.Summary, error)
	UpdateProfile(ctx context.Context, username string, req model.UpdateProfileRequest) error
}

type profileService struct {
	store     repository.Store
	validator *Validator
}

// NewProfileService creates a new ProfileService
func NewProfileService(store repository.Store, validator *Validator) ProfileService {
	return &profileService{store: store, validator: validator}
}

func (s *profileService) findUser(ctx context.Context, username string) (*model.User, error) {
	user, err := s.store.Users().FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *profileService) GetProfile(ctx context.Context, username string) (*model.Profile, error) {
	user, err := s.findUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return &model.Profile{
		Username:  user.Username,
		Credits:   user.Credits,
		Bio:       user.Bio,
		Skills:    nonNilList(user.Skills),
		Interests: nonNilList(user.Interests),
	}, nil
}

func (s *profileService) GetSummary(ctx context.Context, username string) (*model.Summary, error) {
	user, err := s.findUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return &model.Summary{Username: user.Username, Credits: user.Credits}, nil
}

// UpdateProfile replaces bio, skills and interests. Missing lists become empty.
func (s *profileService) UpdateProfile(ctx context.Context, username string, req model.UpdateProfileRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	err := s.store.Users().UpdateProfile(ctx, username, req.Bio, nonNilList(req.Skills), nonNilList(req.Interests))
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

func nonNilList(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
