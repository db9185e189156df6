package model

import "time"

const (
	LedgerKindSignupGrant     = "signup_grant"
	LedgerKindOfferReward     = "offer_reward"
	LedgerKindEnrollmentDebit = "enrollment_debit"
	LedgerKindTeachingReward  = "teaching_reward"
)

// LedgerEntry records a single credit movement for a user
type LedgerEntry struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Amount    int       `json:"amount"` // signed, negative for debits
	Kind      string    `json:"kind"`
	SessionID *string   `json:"sessionId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// LedgerFilters contains filter parameters for ledger queries
type LedgerFilters struct {
	Kind      *string
	StartDate *time.Time
	EndDate   *time.Time
}

// BalanceMismatch is a user whose balance differs from their ledger sum
type BalanceMismatch struct {
	Username  string `json:"username"`
	Credits   int    `json:"credits"`
	LedgerSum int    `json:"ledgerSum"`
}

// EnrollmentMismatch is an enrollment fact recorded in only one of the two views
type EnrollmentMismatch struct {
	Username  string `json:"username"`
	SessionID string `json:"sessionId"`
	MissingIn string `json:"missingIn"` // "session" or "user"
}

// ReconcileReport collects every inconsistency found by a reconciliation pass
type ReconcileReport struct {
	CheckedAt   time.Time            `json:"checkedAt"`
	Balances    []BalanceMismatch    `json:"balances"`
	Enrollments []EnrollmentMismatch `json:"enrollments"`
}

// Clean reports whether the pass found nothing
func (r *ReconcileReport) Clean() bool {
	return len(r.Balances) == 0 && len(r.Enrollments) == 0
}

// IsLedgerKind reports whether kind names a known ledger entry kind
func IsLedgerKind(kind string) bool {
	switch kind {
	case LedgerKindSignupGrant, LedgerKindOfferReward, LedgerKindEnrollmentDebit, LedgerKindTeachingReward:
		return true
	}
	return false
}
