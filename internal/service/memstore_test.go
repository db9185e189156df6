package service

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"edupair/internal/model"
	"edupair/internal/repository"
)

// memStore is an in-memory repository.Store. WithTx snapshots state and
// restores it when fn fails, which is enough to observe rollback behaviour.
type memStore struct {
	users    map[string]*model.User
	sessions map[string]*model.Session
	order    []string
	ledger   []model.LedgerEntry
	nextID   int64

	// failOn makes the named operation return an error, to force rollbacks
	failOn string
	// raceLost makes the named conditional update match no row, as if a
	// concurrent request had applied it between the read and the write
	raceLost string
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*model.User{},
		sessions: map[string]*model.Session{},
	}
}

func (s *memStore) Users() repository.UserRepository       { return memUsers{s} }
func (s *memStore) Sessions() repository.SessionRepository { return memSessions{s} }
func (s *memStore) Ledger() repository.LedgerRepository    { return memLedger{s} }

func (s *memStore) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	users := make(map[string]*model.User, len(s.users))
	for k, u := range s.users {
		users[k] = cloneUser(u)
	}
	sessions := make(map[string]*model.Session, len(s.sessions))
	for k, ss := range s.sessions {
		sessions[k] = cloneSession(ss)
	}
	order := slices.Clone(s.order)
	ledger := slices.Clone(s.ledger)
	nextID := s.nextID

	if err := fn(s); err != nil {
		s.users, s.sessions, s.order, s.ledger, s.nextID = users, sessions, order, ledger, nextID
		return err
	}
	return nil
}

func (s *memStore) fail(op string) error {
	if s.failOn == op {
		return fmt.Errorf("injected failure in %s", op)
	}
	return nil
}

// seedUser stores a user directly, with a matching signup ledger row
func (s *memStore) seedUser(username string, credits int) {
	s.users[username] = &model.User{
		Username:           username,
		Credits:            credits,
		Skills:             []string{},
		Interests:          []string{},
		EnrolledSessionIDs: []string{},
	}
	s.nextID++
	s.ledger = append(s.ledger, model.LedgerEntry{
		ID:        s.nextID,
		Username:  username,
		Amount:    credits,
		Kind:      model.LedgerKindSignupGrant,
		CreatedAt: time.Now(),
	})
}

func (s *memStore) ledgerFor(username string) []model.LedgerEntry {
	var out []model.LedgerEntry
	for _, e := range s.ledger {
		if e.Username == username {
			out = append(out, e)
		}
	}
	return out
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.Skills = slices.Clone(u.Skills)
	c.Interests = slices.Clone(u.Interests)
	c.EnrolledSessionIDs = slices.Clone(u.EnrolledSessionIDs)
	c.TaughtSessionIDs = slices.Clone(u.TaughtSessionIDs)
	return &c
}

func cloneSession(ss *model.Session) *model.Session {
	c := *ss
	c.EnrolledStudents = slices.Clone(ss.EnrolledStudents)
	return &c
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, user *model.User) error {
	if err := r.s.fail("users.create"); err != nil {
		return err
	}
	if _, ok := r.s.users[user.Username]; ok {
		return fmt.Errorf("failed to create user: %w", repository.ErrDuplicateKey)
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.Username] = cloneUser(user)
	return nil
}

func (r memUsers) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	u, ok := r.s.users[username]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (r memUsers) UpdateProfile(ctx context.Context, username, bio string, skills, interests []string) error {
	u, ok := r.s.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	u.Bio, u.Skills, u.Interests = bio, slices.Clone(skills), slices.Clone(interests)
	return nil
}

func (r memUsers) AddCredits(ctx context.Context, username string, amount int) error {
	if err := r.s.fail("users.add_credits"); err != nil {
		return err
	}
	u, ok := r.s.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	u.Credits += amount
	return nil
}

func (r memUsers) DebitCredits(ctx context.Context, username string, amount int) (bool, error) {
	if r.s.raceLost == "users.debit" {
		return false, nil
	}
	u, ok := r.s.users[username]
	if !ok || u.Credits < amount {
		return false, nil
	}
	u.Credits -= amount
	return true, nil
}

func (r memUsers) AppendEnrolledSession(ctx context.Context, username, sessionID string) (bool, error) {
	if r.s.raceLost == "users.append" {
		return false, nil
	}
	u, ok := r.s.users[username]
	if !ok || slices.Contains(u.EnrolledSessionIDs, sessionID) {
		return false, nil
	}
	u.EnrolledSessionIDs = append(u.EnrolledSessionIDs, sessionID)
	return true, nil
}

type memSessions struct{ s *memStore }

func (r memSessions) Create(ctx context.Context, session *model.Session) error {
	session.CreatedAt = time.Now()
	r.s.sessions[session.ID] = cloneSession(session)
	r.s.order = append(r.s.order, session.ID)
	return nil
}

func (r memSessions) FindByID(ctx context.Context, id string) (*model.Session, error) {
	ss, ok := r.s.sessions[id]
	if !ok {
		return nil, nil
	}
	return cloneSession(ss), nil
}

func (r memSessions) AddStudent(ctx context.Context, id, username string) (bool, error) {
	if r.s.raceLost == "sessions.add_student" {
		return false, nil
	}
	ss, ok := r.s.sessions[id]
	if !ok || ss.HasStudent(username) {
		return false, nil
	}
	ss.EnrolledStudents = append(ss.EnrolledStudents, username)
	return true, nil
}

func (r memSessions) StreamAvailable(ctx context.Context, username string) iter.Seq2[model.Session, error] {
	return func(yield func(model.Session, error) bool) {
		for _, id := range slices.Backward(r.s.order) {
			ss := r.s.sessions[id]
			if ss.Teacher == username || ss.HasStudent(username) {
				continue
			}
			if !yield(*cloneSession(ss), nil) {
				return
			}
		}
	}
}

func (r memSessions) FindEnrolled(ctx context.Context, username string) ([]model.Session, error) {
	out := []model.Session{}
	for _, id := range slices.Backward(r.s.order) {
		if ss := r.s.sessions[id]; ss.HasStudent(username) {
			out = append(out, *cloneSession(ss))
		}
	}
	return out, nil
}

func (r memSessions) EnrollmentMismatches(ctx context.Context) ([]model.EnrollmentMismatch, error) {
	var out []model.EnrollmentMismatch
	for _, id := range r.s.order {
		for _, student := range r.s.sessions[id].EnrolledStudents {
			u, ok := r.s.users[student]
			if !ok || !slices.Contains(u.EnrolledSessionIDs, id) {
				out = append(out, model.EnrollmentMismatch{Username: student, SessionID: id, MissingIn: "user"})
			}
		}
	}
	for name, u := range r.s.users {
		for _, id := range u.EnrolledSessionIDs {
			ss, ok := r.s.sessions[id]
			if !ok || !ss.HasStudent(name) {
				out = append(out, model.EnrollmentMismatch{Username: name, SessionID: id, MissingIn: "session"})
			}
		}
	}
	return out, nil
}

type memLedger struct{ s *memStore }

func (r memLedger) Create(ctx context.Context, entry *model.LedgerEntry) error {
	if err := r.s.fail("ledger.create." + entry.Kind); err != nil {
		return err
	}
	if entry.Kind == model.LedgerKindEnrollmentDebit {
		for _, e := range r.s.ledger {
			if e.Kind == entry.Kind && e.Username == entry.Username && *e.SessionID == *entry.SessionID {
				return fmt.Errorf("failed to create ledger entry: %w", repository.ErrDuplicateKey)
			}
		}
	}
	r.s.nextID++
	entry.ID = r.s.nextID
	entry.CreatedAt = time.Now()
	r.s.ledger = append(r.s.ledger, *entry)
	return nil
}

func (r memLedger) FindByUser(ctx context.Context, username string, filters model.LedgerFilters) ([]model.LedgerEntry, error) {
	out := []model.LedgerEntry{}
	for _, e := range slices.Backward(r.s.ledger) {
		if e.Username != username {
			continue
		}
		if filters.Kind != nil && e.Kind != *filters.Kind {
			continue
		}
		if filters.StartDate != nil && e.CreatedAt.Before(*filters.StartDate) {
			continue
		}
		if filters.EndDate != nil && e.CreatedAt.After(*filters.EndDate) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r memLedger) BalanceMismatches(ctx context.Context) ([]model.BalanceMismatch, error) {
	sums := map[string]int{}
	for _, e := range r.s.ledger {
		sums[e.Username] += e.Amount
	}
	var out []model.BalanceMismatch
	for name, u := range r.s.users {
		if sums[name] != u.Credits {
			out = append(out, model.BalanceMismatch{Username: name, Credits: u.Credits, LedgerSum: sums[name]})
		}
	}
	return out, nil
}
