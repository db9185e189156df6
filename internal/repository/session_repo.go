package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"edupair/internal/model"

	"github.com/jackc/pgx/v5"
)

// SessionRepository defines operations for tutoring session data
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	AddStudent(ctx context.Context, id, username string) (bool, error)
	StreamAvailable(ctx context.Context, username string) iter.Seq2[model.Session, error]
	FindEnrolled(ctx context.Context, username string) ([]model.Session, error)
	EnrollmentMismatches(ctx context.Context) ([]model.EnrollmentMismatch, error)
}

type sessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db DBTX) SessionRepository {
	return &sessionRepository{db: db}
}

const sessionColumns = `id, title, description, teacher, credits_required, enrolled_students, is_booked, legacy_session_ids, created_at`

func scanSession(row pgx.Row, s *model.Session) error {
	return row.Scan(
		&s.ID, &s.Title, &s.Description, &s.Teacher, &s.CreditsRequired,
		&s.EnrolledStudents, &s.IsBooked, &s.LegacySessionIDs, &s.CreatedAt,
	)
}

// Create inserts a new session into the database
func (r *sessionRepository) Create(ctx context.Context, s *model.Session) error {
	sql := `INSERT INTO sessions (id, title, description, teacher, credits_required, enrolled_students)
            VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`
	err := r.db.QueryRow(ctx, sql, s.ID, s.Title, s.Description, s.Teacher, s.CreditsRequired, nonNil(s.EnrolledStudents)).
		Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID retrieves a session by its ID
func (r *sessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	s := &model.Session{}
	sql := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	if err := scanSession(r.db.QueryRow(ctx, sql, id), s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to find session by ID: %w", err)
	}
	return s, nil
}

// AddStudent appends username to the session's students unless already present.
// It returns false when nothing was appended.
func (r *sessionRepository) AddStudent(ctx context.Context, id, username string) (bool, error) {
	sql := `UPDATE sessions SET enrolled_students = array_append(enrolled_students, $1)
            WHERE id = $2 AND NOT ($1 = ANY(enrolled_students))`
	cmdTag, err := r.db.Exec(ctx, sql, username, id)
	if err != nil {
		return false, fmt.Errorf("failed to add student to session: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

// StreamAvailable yields sessions the user neither teaches nor attends, newest
// first, straight off the database cursor. Each call runs a fresh query.
func (r *sessionRepository) StreamAvailable(ctx context.Context, username string) iter.Seq2[model.Session, error] {
	return func(yield func(model.Session, error) bool) {
		sql := `SELECT ` + sessionColumns + ` FROM sessions
                WHERE teacher <> $1 AND NOT ($1 = ANY(enrolled_students))
                ORDER BY created_at DESC, id`
		rows, err := r.db.Query(ctx, sql, username)
		if err != nil {
			yield(model.Session{}, fmt.Errorf("failed to query available sessions: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var s model.Session
			if err := scanSession(rows, &s); err != nil {
				yield(model.Session{}, fmt.Errorf("failed to scan session row: %w", err))
				return
			}
			if !yield(s, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.Session{}, fmt.Errorf("error iterating session rows: %w", err))
		}
	}
}

// FindEnrolled retrieves the sessions a user is enrolled in
func (r *sessionRepository) FindEnrolled(ctx context.Context, username string) ([]model.Session, error) {
	sql := `SELECT ` + sessionColumns + ` FROM sessions
            WHERE $1 = ANY(enrolled_students)
            ORDER BY created_at DESC, id`
	rows, err := r.db.Query(ctx, sql, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrolled sessions: %w", err)
	}
	defer rows.Close()

	sessions := []model.Session{}
	for rows.Next() {
		var s model.Session
		if err := scanSession(rows, &s); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrolled session rows: %w", err)
	}
	return sessions, nil
}

// EnrollmentMismatches lists enrollment facts recorded on only one side:
// a student listed on a session without the session id on their user row, or
// the reverse.
func (r *sessionRepository) EnrollmentMismatches(ctx context.Context) ([]model.EnrollmentMismatch, error) {
	sql := `
        SELECT st.username, s.id, 'user' AS missing_in
        FROM sessions s
        CROSS JOIN LATERAL unnest(s.enrolled_students) AS st(username)
        LEFT JOIN users u ON u.username = st.username
        WHERE u.username IS NULL OR NOT (s.id = ANY(u.enrolled_session_ids))
        UNION ALL
        SELECT u.username, sid.id, 'session' AS missing_in
        FROM users u
        CROSS JOIN LATERAL unnest(u.enrolled_session_ids) AS sid(id)
        LEFT JOIN sessions s ON s.id = sid.id
        WHERE s.id IS NULL OR NOT (u.username = ANY(s.enrolled_students))
        ORDER BY 1, 2`
	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollment mismatches: %w", err)
	}
	defer rows.Close()

	var mismatches []model.EnrollmentMismatch
	for rows.Next() {
		var m model.EnrollmentMismatch
		if err := rows.Scan(&m.Username, &m.SessionID, &m.MissingIn); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment mismatch: %w", err)
		}
		mismatches = append(mismatches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrollment mismatches: %w", err)
	}
	return mismatches, nil
}
