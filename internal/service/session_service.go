package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"edupair/internal/cache"
	"edupair/internal/events"
	"edupair/internal/model"
	"edupair/internal/repository"

	"github.com/google/uuid"
)

// SessionService covers offering, listing and enrolling in tutoring sessions
type SessionService interface {
	Offer(ctx context.Context, teacher string, req model.OfferSessionRequest) (*model.Session, error)
	ListAvailable(ctx context.Context, username string) iter.Seq2[model.Session, error]
	ListEnrolled(ctx context.Context, username string) ([]model.Session, error)
	Enroll(ctx context.Context, username, sessionID string) (*model.Enrollment, error)
}

type sessionService struct {
	store     repository.Store
	guard     *cache.EnrollmentGuard
	validator *Validator
	events    *events.Emitter
	logger    *slog.Logger
}

// NewSessionService creates a new SessionService. guard may be nil.
func NewSessionService(store repository.Store, guard *cache.EnrollmentGuard, validator *Validator, emitter *events.Emitter, logger *slog.Logger) SessionService {
	return &sessionService{
		store:     store,
		guard:     guard,
		validator: validator,
		events:    emitter,
		logger:    logger,
	}
}

// Offer creates a session taught by teacher and rewards the teacher for offering it
func (s *sessionService) Offer(ctx context.Context, teacher string, req model.OfferSessionRequest) (*model.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	session := &model.Session{
		ID:               uuid.NewString(),
		Title:            req.Title,
		Description:      req.Description,
		Teacher:          teacher,
		CreditsRequired:  req.CreditsRequired,
		EnrolledStudents: []string{},
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Sessions().Create(ctx, session); err != nil {
			return err
		}
		if err := tx.Users().AddCredits(ctx, teacher, model.OfferReward); err != nil {
			return err
		}
		return tx.Ledger().Create(ctx, &model.LedgerEntry{
			Username:  teacher,
			Amount:    model.OfferReward,
			Kind:      model.LedgerKindOfferReward,
			SessionID: &session.ID,
		})
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to offer session: %w", err)
	}

	s.logger.InfoContext(ctx, "session offered", "session_id", session.ID, "teacher", teacher)
	s.events.Emit(ctx, events.TopicSessionOffered, events.SessionOffered{
		SessionID:       session.ID,
		Teacher:         teacher,
		Title:           session.Title,
		CreditsRequired: session.CreditsRequired,
		Reward:          model.OfferReward,
		OfferedAt:       session.CreatedAt,
	})
	return session, nil
}

// ListAvailable streams sessions the user neither teaches nor attends
func (s *sessionService) ListAvailable(ctx context.Context, username string) iter.Seq2[model.Session, error] {
	return s.store.Sessions().StreamAvailable(ctx, username)
}

func (s *sessionService) ListEnrolled(ctx context.Context, username string) ([]model.Session, error) {
	sessions, err := s.store.Sessions().FindEnrolled(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get enrolled sessions: %w", err)
	}
	return sessions, nil
}

// Enroll moves the session price from the student to the session and pays the
// teacher. All writes happen in one transaction; each one is a conditional
// update, so a concurrent duplicate attempt fails instead of double charging.
func (s *sessionService) Enroll(ctx context.Context, username, sessionID string) (*model.Enrollment, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrSessionNotFound
	}

	release, err := s.guard.Acquire(ctx, username, sessionID)
	switch {
	case errors.Is(err, cache.ErrGuardHeld):
		return nil, ErrEnrollmentInProgress
	case err != nil:
		s.logger.WarnContext(ctx, "enrollment guard unavailable, continuing without it", "error", err)
	default:
		defer release()
	}

	session, err := s.store.Sessions().FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	user, err := s.store.Users().FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if user.Credits < session.CreditsRequired {
		return nil, ErrInsufficientCredits
	}
	if session.HasStudent(username) {
		return nil, ErrAlreadyEnrolled
	}
	if session.Teacher == username {
		return nil, fmt.Errorf("%w: cannot enroll in your own session", ErrValidation)
	}

	enrollment := &model.Enrollment{
		SessionID: session.ID,
		Student:   username,
		Teacher:   session.Teacher,
		Price:     session.CreditsRequired,
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		enrollment.TeacherPaid = false

		added, err := tx.Sessions().AddStudent(ctx, session.ID, username)
		if err != nil {
			return err
		}
		if !added {
			return ErrAlreadyEnrolled
		}

		appended, err := tx.Users().AppendEnrolledSession(ctx, username, session.ID)
		if err != nil {
			return err
		}
		if !appended {
			return ErrAlreadyEnrolled
		}

		debited, err := tx.Users().DebitCredits(ctx, username, session.CreditsRequired)
		if err != nil {
			return err
		}
		if !debited {
			return ErrInsufficientCredits
		}
		if err := tx.Ledger().Create(ctx, &model.LedgerEntry{
			Username:  username,
			Amount:    -session.CreditsRequired,
			Kind:      model.LedgerKindEnrollmentDebit,
			SessionID: &session.ID,
		}); err != nil {
			return err
		}

		err = tx.Users().AddCredits(ctx, session.Teacher, model.TeachingReward)
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.WarnContext(ctx, "teacher missing, teaching reward skipped",
				"session_id", session.ID, "teacher", session.Teacher)
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Ledger().Create(ctx, &model.LedgerEntry{
			Username:  session.Teacher,
			Amount:    model.TeachingReward,
			Kind:      model.LedgerKindTeachingReward,
			SessionID: &session.ID,
		}); err != nil {
			return err
		}
		enrollment.TeacherPaid = true
		return nil
	})
	switch {
	case errors.Is(err, ErrAlreadyEnrolled), errors.Is(err, repository.ErrDuplicateKey):
		return nil, ErrAlreadyEnrolled
	case errors.Is(err, ErrInsufficientCredits):
		return nil, ErrInsufficientCredits
	case err != nil:
		return nil, fmt.Errorf("failed to enroll: %w", err)
	}

	enrollment.EnrolledAt = time.Now().UTC()
	s.logger.InfoContext(ctx, "user enrolled",
		"session_id", session.ID, "student", username, "teacher", session.Teacher, "price", session.CreditsRequired)
	s.events.Emit(ctx, events.TopicSessionEnrolled, enrollment)
	return enrollment, nil
}
