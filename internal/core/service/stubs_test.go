package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"

	"github.com/letwise/onboarding/internal/core/domain"
)

type stubUserRepo struct {
	mu     sync.Mutex
	users  map[string]*domain.User // by id
	nextID int

	// findBarrier, when set, holds every FindByEmail call until all callers arrived.
	findBarrier *sync.WaitGroup
	findErr     error
	insertErr   error
	patchErr    error
	patches     int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if r.findBarrier != nil {
		r.findBarrier.Done()
		r.findBarrier.Wait()
	}
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *stubUserRepo) FindByUserKey(_ context.Context, key string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.UserKey == key {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *stubUserRepo) Insert(_ context.Context, user *domain.User) (string, error) {
	if r.insertErr != nil {
		return "", r.insertErr
	}
	if !domain.ProfileMatchesRole(user.Role, user.Profile) {
		return "", domain.ErrProfileMismatch
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return "", domain.ErrDuplicateEmail
		}
	}
	r.nextID++
	c := cloneUser(user)
	c.ID = fmt.Sprintf("user-%d", r.nextID)
	r.users[c.ID] = c
	return c.ID, nil
}

func (r *stubUserRepo) Get(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.users[id]), nil
}

func (r *stubUserRepo) Patch(_ context.Context, id string, patch domain.UserPatch) error {
	if r.patchErr != nil {
		return r.patchErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	r.patches++
	return nil
}

func (r *stubUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

type stubSessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	nextID   int

	createErr error
	patchErr  error
	deleteErr error
	deletes   int
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: make(map[string]domain.Session)}
}

func (s *stubSessionStore) Create(_ context.Context, userID string, expiration time.Time) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("sess-%d", s.nextID)
	s.sessions[id] = domain.Session{ID: id, UserID: userID, ExpirationTime: expiration.UnixMilli()}
	return id, nil
}

func (s *stubSessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *stubSessionStore) Patch(_ context.Context, id string, expiration time.Time) error {
	if s.patchErr != nil {
		return s.patchErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.ExpirationTime = expiration.UnixMilli()
	s.sessions[id] = sess
	return nil
}

func (s *stubSessionStore) Delete(_ context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	delete(s.sessions, id)
	return nil
}

func (s *stubSessionStore) get(id string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *stubSessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// stubHasher stores passwords in the clear behind a recognisable prefix.
// Hashes starting with "legacy:" verify but need an upgrade.
type stubHasher struct {
	hashErr error
}

const (
	stubPrefix   = "$argon2id$stub$"
	legacyPrefix = "legacy:"
)

func (h *stubHasher) Hash(password string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return stubPrefix + password, nil
}

func (h *stubHasher) Verify(password, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, stubPrefix):
		return strings.TrimPrefix(hash, stubPrefix) == password, nil
	case strings.HasPrefix(hash, legacyPrefix):
		return strings.TrimPrefix(hash, legacyPrefix) == password, nil
	}
	return false, errors.New("unrecognised hash format")
}

func (h *stubHasher) NeedsUpgrade(hash string) bool {
	return !strings.HasPrefix(hash, stubPrefix)
}

type stubPublisher struct {
	mu     sync.Mutex
	events []domain.UserRegistered
	err    error
}

func (p *stubPublisher) PublishUserRegistered(_ context.Context, e domain.UserRegistered) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

type stubSigner struct {
	signed []domain.TokenClaims
	err    error
}

func (s *stubSigner) Sign(c domain.TokenClaims) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.signed = append(s.signed, c)
	return "token-for-" + c.Subject, nil
}

func (s *stubSigner) Verify(token string) (*domain.TokenClaims, error) {
	sub, ok := strings.CutPrefix(token, "token-for-")
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	return &domain.TokenClaims{Subject: sub}, nil
}

func (s *stubSigner) KeySet() jose.JSONWebKeySet {
	return jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{KeyID: "kid-1", Use: "sig", Algorithm: "RS256"}}}
}

// fakeClock is a settable clock shared by a test and the service under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
