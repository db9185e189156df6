package repository

import (
	"context"
	"fmt"
	"strings"

	"edupair/internal/model"
)

// LedgerRepository defines operations for the append-only credit ledger
type LedgerRepository interface {
	Create(ctx context.Context, entry *model.LedgerEntry) error
	FindByUser(ctx context.Context, username string, filters model.LedgerFilters) ([]model.LedgerEntry, error)
	BalanceMismatches(ctx context.Context) ([]model.BalanceMismatch, error)
}

type ledgerRepository struct {
	db DBTX
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(db DBTX) LedgerRepository {
	return &ledgerRepository{db: db}
}

// Create appends an entry. A second enrollment debit for the same user and
// session is rejected with ErrDuplicateKey.
func (r *ledgerRepository) Create(ctx context.Context, e *model.LedgerEntry) error {
	sql := `INSERT INTO credit_ledger (username, amount, kind, session_id)
            VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := r.db.QueryRow(ctx, sql, e.Username, e.Amount, e.Kind, e.SessionID).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create ledger entry: %w", ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

// FindByUser retrieves ledger entries for a user with optional filters
func (r *ledgerRepository) FindByUser(ctx context.Context, username string, filters model.LedgerFilters) ([]model.LedgerEntry, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, username, amount, kind, session_id, created_at
                               FROM credit_ledger WHERE username = $1`)
	args := []interface{}{username}
	argCount := 2 // Start after username

	if filters.Kind != nil && *filters.Kind != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND kind = $%d", argCount))
		args = append(args, *filters.Kind)
		argCount++
	}
	if filters.StartDate != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND created_at >= $%d", argCount))
		args = append(args, *filters.StartDate)
		argCount++
	}
	if filters.EndDate != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND created_at <= $%d", argCount))
		args = append(args, *filters.EndDate)
	}

	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger by user: %w", err)
	}
	defer rows.Close()

	entries := []model.LedgerEntry{}
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.Username, &e.Amount, &e.Kind, &e.SessionID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}
	return entries, nil
}

// BalanceMismatches lists users whose stored credits differ from their ledger sum
func (r *ledgerRepository) BalanceMismatches(ctx context.Context) ([]model.BalanceMismatch, error) {
	sql := `
        SELECT u.username, u.credits, COALESCE(SUM(l.amount), 0) AS ledger_sum
        FROM users u
        LEFT JOIN credit_ledger l ON l.username = u.username
        GROUP BY u.username, u.credits
        HAVING u.credits <> COALESCE(SUM(l.amount), 0)
        ORDER BY u.username`
	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance mismatches: %w", err)
	}
	defer rows.Close()

	var mismatches []model.BalanceMismatch
	for rows.Next() {
		var m model.BalanceMismatch
		if err := rows.Scan(&m.Username, &m.Credits, &m.LedgerSum); err != nil {
			return nil, fmt.Errorf("failed to scan balance mismatch: %w", err)
		}
		mismatches = append(mismatches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance mismatches: %w", err)
	}
	return mismatches, nil
}
