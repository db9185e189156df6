package service

import (
	"context"
	"testing"

	"edupair/internal/cache"
	"edupair/internal/logger"
	"edupair/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionService(store *memStore, guard *cache.EnrollmentGuard) SessionService {
	return NewSessionService(store, guard, NewValidator(), nil, logger.Discard())
}

func offer(t *testing.T, svc SessionService, teacher string, price int) *model.Session {
	t.Helper()
	session, err := svc.Offer(context.Background(), teacher, model.OfferSessionRequest{
		Title:           "Intro to Go",
		Description:     "Goroutines and channels",
		CreditsRequired: price,
	})
	require.NoError(t, err)
	return session
}

func TestSessionService_Offer(t *testing.T) {
	store := newMemStore()
	store.seedUser("alice", 10)
	svc := newSessionService(store, nil)

	session := offer(t, svc, "alice", 5)

	_, err := uuid.Parse(session.ID)
	assert.NoError(t, err)
	assert.Equal(t, "alice", session.Teacher)
	assert.Empty(t, session.EnrolledStudents)
	assert.Equal(t, 15, store.users["alice"].Credits)

	entries := store.ledgerFor("alice")
	require.Len(t, entries, 2)
	assert.Equal(t, model.LedgerKindOfferReward, entries[1].Kind)
	assert.Equal(t, session.ID, *entries[1].SessionID)
}

func TestSessionService_Offer_Validation(t *testing.T) {
	store := newMemStore()
	store.seedUser("alice", 10)
	svc := newSessionService(store, nil)

	cases := []model.OfferSessionRequest{
		{Description: "d", CreditsRequired: 5},
		{Title: "t", CreditsRequired: 5},
		{Title: "t", Description: "d"},
		{Title: "t", Description: "d", CreditsRequired: -1},
	}
	for _, req := range cases {
		_, err := svc.Offer(context.Background(), "alice", req)
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.Empty(t, store.sessions)
	assert.Equal(t, 10, store.users["alice"].Credits)
}

func TestSessionService_Offer_UnknownTeacherRollsBack(t *testing.T) {
	store := newMemStore()
	svc := newSessionService(store, nil)

	_, err := svc.Offer(context.Background(), "ghost", model.OfferSessionRequest{
		Title: "t", Description: "d", CreditsRequired: 5,
	})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, store.sessions)
}

// A offers a 5 credit session, B enrolls, B tries again.
func TestSessionService_Enroll_Scenario(t *testing.T) {
	store := newMemStore()
	store.seedUser("A", 10)
	store.seedUser("B", 10)
	svc := newSessionService(store, nil)

	session := offer(t, svc, "A", 5)
	assert.Equal(t, 15, store.users["A"].Credits)

	enrollment, err := svc.Enroll(context.Background(), "B", session.ID)
	require.NoError(t, err)
	assert.True(t, enrollment.TeacherPaid)
	assert.Equal(t, 5, enrollment.Price)

	assert.Equal(t, 5, store.users["B"].Credits)
	assert.Equal(t, 25, store.users["A"].Credits)
	assert.Equal(t, []string{"B"}, store.sessions[session.ID].EnrolledStudents)
	assert.Equal(t, []string{session.ID}, store.users["B"].EnrolledSessionIDs)

	_, err = svc.Enroll(context.Background(), "B", session.ID)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
	assert.Equal(t, 5, store.users["B"].Credits)
	assert.Equal(t, 25, store.users["A"].Credits)
	assert.Equal(t, []string{"B"}, store.sessions[session.ID].EnrolledStudents)
	assert.Equal(t, []string{session.ID}, store.users["B"].EnrolledSessionIDs)
	assert.Len(t, store.ledgerFor("B"), 2)
	assert.Len(t, store.ledgerFor("A"), 3)

	report, err := NewReconciler(store, logger.Discard()).Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Clean())
}

func TestSessionService_Enroll_InsufficientCredits(t *testing.T) {
	store := newMemStore()
	store.seedUser("A", 10)
	store.seedUser("B", 3)
	svc := newSessionService(store, nil)
	session := offer(t, svc, "A", 5)

	_, err := svc.Enroll(context.Background(), "B", session.ID)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Equal(t, 3, store.users["B"].Credits)
	assert.Equal(t, 15, store.users["A"].Credits)
	assert.Empty(t, store.sessions[session.ID].EnrolledStudents)
}

func TestSessionService_Enroll_NotFound(t *testing.T) {
	store := newMemStore()
	store.seedUser("A", 10)
	svc := newSessionService(store, nil)
	session := offer(t, svc, "A", 5)

	_, err := svc.Enroll(context.Background(), "B", uuid.NewString())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Enroll(context.Background(), "B", "not-a-uuid")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Enroll(context.Background(), "ghost", session.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSessionService_Enroll_OwnSession(t *testing.T) {
	store := newMemStore()
	store.seedUser("A", 10)
	svc := newSessionService(store, nil)
	session := offer(t, svc, "A", 5)

	_, err := svc.Enroll(context.Background(), "A", session.ID)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 15, store.users["A"].Credits)
}

func TestSessionService_Enroll_MissingTeacherStillEnrolls(t *testing.T) {
	store := newMemStore()
	store.seedUser("A", 10)
	store.seedUser("B", 10)
	svc := newSessionService(store, nil)
	session := offer(t, svc, "A", 5)
	delete(store.users, "A")

	enrollment, err := svc.Enroll(context.Background(), "B", session.ID)
	require.NoError(t, err)
	assert.False(t, enrollment.TeacherPaid)
	assert.Equal(t, 5, store.users["B"].Credits)
}

func TestSessionService_Enroll_RollsBackOnFailure(t *testing.T) {
	store := newMemStore()
	store.seedUser("A", 10)
	store.seedUser("B", 10)
	svc := newSessionService(store, nil)
	session := offer(t, svc, "A", 5)

	store.failOn = "ledger.create." + model.LedgerKindTeachingReward
	_, err := svc.Enroll(context.Background(), "B", session.ID)
	require.Error(t, err)

	assert.Equal(t, 10, store.users["B"].Credits)
	assert.Equal(t, 15, store.users["A"].Credits)
	assert.Empty(t, store.sessions[session.ID].EnrolledStudents)
	assert.Empty(t, store.users["B"].EnrolledSessionIDs)
	assert.Len(t, store.ledgerFor("B"), 1)
}

// The pre-checks pass on the state read before the transaction, but another
// request wins one of the conditional updates first.
func TestSessionService_Enroll_ConcurrentWriterWins(t *testing.T) {
	cases := []struct {
		lost string
		want error
	}{
		{"sessions.add_student", ErrAlreadyEnrolled},
		{"users.append", ErrAlreadyEnrolled},
		{"users.debit", ErrInsufficientCredits},
	}
	for _, tc := range cases {
		t.Run(tc.lost, func(t *testing.T) {
			store := newMemStore()
			store.seedUser("A", 10)
			store.seedUser("B", 10)
			svc := newSessionService(store, nil)
			session := offer(t, svc, "A", 5)

			store.raceLost = tc.lost
			_, err := svc.Enroll(context.Background(), "B", session.ID)
			assert.ErrorIs(t, err, tc.want)

			assert.Equal(t, 10, store.users["B"].Credits)
			assert.Equal(t, 15, store.users["A"].Credits)
			assert.Empty(t, store.sessions[session.ID].EnrolledStudents)
			assert.Empty(t, store.users["B"].EnrolledSessionIDs)
			assert.Len(t, store.ledgerFor("B"), 1)
			assert.Len(t, store.ledgerFor("A"), 2)
		})
	}
}

func TestSessionService_Enroll_GuardHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	guard := cache.NewEnrollmentGuard(client, cache.DefaultGuardTTL)

	store := newMemStore()
	store.seedUser("A", 10)
	store.seedUser("B", 10)
	svc := newSessionService(store, guard)
	session := offer(t, svc, "A", 5)

	release, err := guard.Acquire(context.Background(), "B", session.ID)
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), "B", session.ID)
	assert.ErrorIs(t, err, ErrEnrollmentInProgress)
	assert.Equal(t, 10, store.users["B"].Credits)

	release()
	_, err = svc.Enroll(context.Background(), "B", session.ID)
	assert.NoError(t, err)
}

func TestSessionService_ListAvailable(t *testing.T) {
	store := newMemStore()
	store.seedUser("A", 10)
	store.seedUser("B", 10)
	store.seedUser("C", 10)
	svc := newSessionService(store, nil)

	own := offer(t, svc, "B", 5)
	enrolled := offer(t, svc, "A", 5)
	open := offer(t, svc, "C", 5)
	_, err := svc.Enroll(context.Background(), "B", enrolled.ID)
	require.NoError(t, err)

	var ids []string
	for session, err := range svc.ListAvailable(context.Background(), "B") {
		require.NoError(t, err)
		ids = append(ids, session.ID)
	}
	assert.Equal(t, []string{open.ID}, ids)
	assert.NotContains(t, ids, own.ID)

	mine, err := svc.ListEnrolled(context.Background(), "B")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, enrolled.ID, mine[0].ID)
}
