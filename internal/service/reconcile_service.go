package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"edupair/internal/model"
	"edupair/internal/repository"
)

// Reconciler compares balances against the ledger and the two enrollment views
// against each other. It only reports; nothing is repaired.
type Reconciler struct {
	store  repository.Store
	logger *slog.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(store repository.Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger}
}

// Check runs one reconciliation pass
func (r *Reconciler) Check(ctx context.Context) (*model.ReconcileReport, error) {
	balances, err := r.store.Ledger().BalanceMismatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check balances: %w", err)
	}

	enrollments, err := r.store.Sessions().EnrollmentMismatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollments: %w", err)
	}

	report := &model.ReconcileReport{
		CheckedAt:   time.Now().UTC(),
		Balances:    balances,
		Enrollments: enrollments,
	}

	for _, b := range report.Balances {
		r.logger.WarnContext(ctx, "balance does not match ledger",
			"username", b.Username, "credits", b.Credits, "ledger_sum", b.LedgerSum)
	}
	for _, e := range report.Enrollments {
		r.logger.WarnContext(ctx, "enrollment recorded on one side only",
			"username", e.Username, "session_id", e.SessionID, "missing_in", e.MissingIn)
	}
	r.logger.InfoContext(ctx, "reconciliation finished",
		"balance_mismatches", len(report.Balances), "enrollment_mismatches", len(report.Enrollments))
	return report, nil
}
