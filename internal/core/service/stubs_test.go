package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/messagely/messagely/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory user repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	touched []string
	findErr error // if set, FindByUsername returns this error
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

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Username]; exists {
		return nil, domain.ErrUserExists
	}
	r.users[user.Username] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) TouchLastLogin(_ context.Context, username string, at time.Time) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return time.Time{}, domain.ErrUserNotFound
	}
	u.LastLoginAt = at
	r.touched = append(r.touched, username)
	return at, nil
}

func (r *stubUserRepo) ListAll(_ context.Context) ([]domain.UserSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.UserSummary, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, domain.UserSummary{Username: u.Username, FirstName: u.FirstName, LastName: u.LastName})
	}
	return out, nil
}

func (r *stubUserRepo) contact(username string) domain.UserContact {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[username]; ok {
		return u.Contact()
	}
	return domain.UserContact{Username: username}
}

// ---------------------------------------------------------------------------
// In-memory message repository (mirrors the conditional update of the real stores)
// ---------------------------------------------------------------------------

type stubMessageRepo struct {
	mu        sync.Mutex
	users     *stubUserRepo
	msgs      map[int64]*domain.Message
	nextID    int64
	markCalls int
	createErr error
	// createGate, when set, holds Create until it is closed.
	createGate chan struct{}
}

func newStubMessageRepo(users *stubUserRepo) *stubMessageRepo {
	return &stubMessageRepo{users: users, msgs: make(map[int64]*domain.Message)}
}

func cloneMessage(m *domain.Message) *domain.Message {
	clone := *m
	if m.ReadAt != nil {
		t := *m.ReadAt
		clone.ReadAt = &t
	}
	return &clone
}

func (r *stubMessageRepo) Create(_ context.Context, msg *domain.Message) (*domain.Message, error) {
	if r.createGate != nil {
		<-r.createGate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	stored := cloneMessage(msg)
	stored.ID = r.nextID
	r.msgs[stored.ID] = stored
	return cloneMessage(stored), nil
}

func (r *stubMessageRepo) detail(m *domain.Message) domain.MessageDetail {
	return domain.MessageDetail{
		Message: *cloneMessage(m),
		From:    r.users.contact(m.FromUsername),
		To:      r.users.contact(m.ToUsername),
	}
}

func (r *stubMessageRepo) GetByID(_ context.Context, id int64) (*domain.MessageDetail, error) {
	r.mu.Lock()
	m, ok := r.msgs[id]
	r.mu.Unlock()
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	d := r.detail(m)
	return &d, nil
}

func (r *stubMessageRepo) list(match func(*domain.Message) bool) []domain.MessageDetail {
	r.mu.Lock()
	var matched []*domain.Message
	for _, m := range r.msgs {
		if match(m) {
			matched = append(matched, m)
		}
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	out := make([]domain.MessageDetail, 0, len(matched))
	for _, m := range matched {
		out = append(out, r.detail(m))
	}
	return out
}

func (r *stubMessageRepo) ListSentBy(_ context.Context, username string) ([]domain.MessageDetail, error) {
	return r.list(func(m *domain.Message) bool { return m.FromUsername == username }), nil
}

func (r *stubMessageRepo) ListReceivedBy(_ context.Context, username string) ([]domain.MessageDetail, error) {
	return r.list(func(m *domain.Message) bool { return m.ToUsername == username }), nil
}

func (r *stubMessageRepo) MarkRead(_ context.Context, id int64, at time.Time) (*domain.Message, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markCalls++
	m, ok := r.msgs[id]
	if !ok {
		return nil, false, domain.ErrMessageNotFound
	}
	if m.ReadAt != nil {
		return cloneMessage(m), false, nil
	}
	t := at
	m.ReadAt = &t
	return cloneMessage(m), true, nil
}

// ---------------------------------------------------------------------------
// Notifier / idempotency stubs
// ---------------------------------------------------------------------------

type stubNotifier struct {
	mu  sync.Mutex
	got []domain.Notification
}

func (n *stubNotifier) Enqueue(note domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, note)
}

func (n *stubNotifier) kinds() []domain.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NotificationKind, len(n.got))
	for i, note := range n.got {
		out[i] = note.Kind
	}
	return out
}

// stubIdempotency mirrors the Redis store: a reserved key holds 0 until bound.
type stubIdempotency struct {
	mu         sync.Mutex
	keys       map[string]int64
	ttls       []time.Duration
	reserves   int
	released   []string
	reserveErr error
	lookupErr  error
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{keys: make(map[string]int64)}
}

func (s *stubIdempotency) Reserve(_ context.Context, scope, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserves++
	if s.reserveErr != nil {
		return false, s.reserveErr
	}
	if _, held := s.keys[scope+":"+key]; held {
		return false, nil
	}
	s.keys[scope+":"+key] = 0
	return true, nil
}

func (s *stubIdempotency) Lookup(_ context.Context, scope, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return 0, false, s.lookupErr
	}
	id := s.keys[scope+":"+key]
	return id, id != 0, nil
}

func (s *stubIdempotency) Remember(_ context.Context, scope, key string, id int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[scope+":"+key] = id
	s.ttls = append(s.ttls, ttl)
	return nil
}

func (s *stubIdempotency) Release(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, scope+":"+key)
	s.released = append(s.released, scope+":"+key)
	return nil
}

func (s *stubIdempotency) reserveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reserves
}

var errStoreDown = errors.New("store unavailable")
