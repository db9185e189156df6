package repository

import (
	"context"
	"errors"
	"fmt"

	"edupair/internal/model"

	"github.com/jackc/pgx/v5"
)

// UserRepository defines operations for user data
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateProfile(ctx context.Context, username, bio string, skills, interests []string) error
	AddCredits(ctx context.Context, username string, amount int) error
	DebitCredits(ctx context.Context, username string, amount int) (bool, error)
	AppendEnrolledSession(ctx context.Context, username, sessionID string) (bool, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `username, password_hash, credits, bio, skills, interests, enrolled_session_ids, taught_session_ids, created_at, updated_at`

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	sql := `INSERT INTO users (username, password_hash, credits, bio, skills, interests, enrolled_session_ids)
            VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, sql,
		user.Username, user.PasswordHash, user.Credits, user.Bio,
		nonNil(user.Skills), nonNil(user.Interests), nonNil(user.EnrolledSessionIDs),
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create user: %w", ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByUsername retrieves a user by username. A missing user is (nil, nil).
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user := &model.User{}
	sql := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	err := r.db.QueryRow(ctx, sql, username).Scan(
		&user.Username, &user.PasswordHash, &user.Credits, &user.Bio, &user.Skills, &user.Interests,
		&user.EnrolledSessionIDs, &user.TaughtSessionIDs, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found is not an error for this method's contract, service layer handles it
		}
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

// UpdateProfile overwrites bio, skills and interests as a whole
func (r *userRepository) UpdateProfile(ctx context.Context, username, bio string, skills, interests []string) error {
	sql := `UPDATE users SET bio = $1, skills = $2, interests = $3 WHERE username = $4`
	cmdTag, err := r.db.Exec(ctx, sql, bio, nonNil(skills), nonNil(interests), username)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("user not found for profile update: %w", ErrNotFound)
	}
	return nil
}

// AddCredits increments a balance. Negative amounts are refused; use DebitCredits.
func (r *userRepository) AddCredits(ctx context.Context, username string, amount int) error {
	if amount < 0 {
		return fmt.Errorf("add credits: negative amount %d", amount)
	}
	sql := `UPDATE users SET credits = credits + $1 WHERE username = $2`
	cmdTag, err := r.db.Exec(ctx, sql, amount, username)
	if err != nil {
		return fmt.Errorf("failed to add credits: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("user not found for credit: %w", ErrNotFound)
	}
	return nil
}

// DebitCredits decrements a balance only if it covers amount. It returns false
// when the balance was too low (or the user is gone).
func (r *userRepository) DebitCredits(ctx context.Context, username string, amount int) (bool, error) {
	sql := `UPDATE users SET credits = credits - $1 WHERE username = $2 AND credits >= $1`
	cmdTag, err := r.db.Exec(ctx, sql, amount, username)
	if err != nil {
		return false, fmt.Errorf("failed to debit credits: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

// AppendEnrolledSession adds sessionID to the user's enrolled list unless it is
// already there. It returns false when nothing was appended.
func (r *userRepository) AppendEnrolledSession(ctx context.Context, username, sessionID string) (bool, error) {
	sql := `UPDATE users SET enrolled_session_ids = array_append(enrolled_session_ids, $1)
            WHERE username = $2 AND NOT ($1 = ANY(enrolled_session_ids))`
	cmdTag, err := r.db.Exec(ctx, sql, sessionID, username)
	if err != nil {
		return false, fmt.Errorf("failed to append enrolled session: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}
