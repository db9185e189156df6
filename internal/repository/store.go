package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned by updates that matched no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when an insert hits a unique constraint
	ErrDuplicateKey = errors.New("duplicate key")
)

const uniqueViolation = "23505"

// DBTX is the query surface shared by *pgxpool.Pool, pgx.Tx and pgxmock
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is a DBTX that can open transactions
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store groups the repositories and runs units of work across them
type Store interface {
	Users() UserRepository
	Sessions() SessionRepository
	Ledger() LedgerRepository
	// WithTx runs fn inside a single database transaction. Nested calls reuse
	// the outer transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
}

type pgStore struct {
	pool Pool // nil when the store is bound to a transaction
	db   DBTX
}

// NewStore creates a Store backed by a connection pool
func NewStore(pool Pool) Store {
	return &pgStore{pool: pool, db: pool}
}

func (s *pgStore) Users() UserRepository       { return NewUserRepository(s.db) }
func (s *pgStore) Sessions() SessionRepository { return NewSessionRepository(s.db) }
func (s *pgStore) Ledger() LedgerRepository    { return NewLedgerRepository(s.db) }

func (s *pgStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&pgStore{db: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// nonNil keeps NOT NULL array columns from receiving NULL
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
