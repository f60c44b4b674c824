package services

import (
	"context"
	"smartacademy/internal/models"
	"smartacademy/internal/repository"
	"strings"
	"sync"
	"time"
)

// memStore — in-memory реализация PasswordResetRepo и UserRepo с теми же
// гарантиями, что и транзакции в Postgres (всё под одним мьютексом).
type memStore struct {
	mu     sync.Mutex
	users  map[int64]*models.User
	tokens []*models.PasswordResetToken
	nextID int64

	failIssue error
}

func newMemStore(users ...*models.User) *memStore {
	s := &memStore{users: make(map[int64]*models.User)}
	for _, u := range users {
		cp := *u
		s.users[u.ID] = &cp
	}
	return s
}

func (s *memStore) FindUserIDByEmail(_ context.Context, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u.ID, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (s *memStore) IssueToken(_ context.Context, t *models.PasswordResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIssue != nil {
		return s.failIssue
	}
	if _, ok := s.users[t.UserID]; !ok {
		return repository.ErrNotFound
	}
	s.markUserTokensUsed(t.UserID, t.CreatedAt)
	s.nextID++
	cp := *t
	cp.ID = s.nextID
	t.ID = cp.ID
	s.tokens = append(s.tokens, &cp)
	return nil
}

func (s *memStore) FindByHash(_ context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.TokenHash == tokenHash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) CommitReset(_ context.Context, tokenHash, passwordHash string, now time.Time) (*models.PasswordResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rec *models.PasswordResetToken
	for _, t := range s.tokens {
		if t.TokenHash == tokenHash {
			rec = t
		}
	}
	if rec == nil {
		return nil, repository.ErrNotFound
	}
	if rec.IsUsed {
		return nil, repository.ErrTokenUsed
	}
	if !now.Before(rec.ExpiresAt) {
		return nil, repository.ErrTokenExpired
	}
	u, ok := s.users[rec.UserID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	s.markUserTokensUsed(rec.UserID, now)
	cp := *rec
	return &cp, nil
}

func (s *memStore) ReplacePassword(_ context.Context, userID int64, passwordHash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	s.markUserTokensUsed(userID, now)
	return nil
}

func (s *memStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tokens[:0]
	var deleted int64
	for _, t := range s.tokens {
		if t.ExpiresAt.Before(now) || t.IsUsed {
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	s.tokens = kept
	return deleted, nil
}

func (s *memStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) markUserTokensUsed(userID int64, at time.Time) {
	for _, t := range s.tokens {
		if t.UserID == userID && !t.IsUsed {
			t.IsUsed = true
			used := at
			t.UsedAt = &used
		}
	}
}

func (s *memStore) activeCount(userID int64, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if t.UserID == userID && t.Usable(now) {
			n++
		}
	}
	return n
}

func (s *memStore) passwordHash(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID].PasswordHash
}

type sentReset struct {
	To   string
	Link string
}

type fakeNotifier struct {
	mu      sync.Mutex
	resets  []sentReset
	changed []string
	err     error
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, to, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, sentReset{To: to, Link: link})
	return n.err
}

func (n *fakeNotifier) SendPasswordChanged(_ context.Context, to string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, to)
	return n.err
}

func (n *fakeNotifier) lastToken() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.resets) == 0 {
		return ""
	}
	link := n.resets[len(n.resets)-1].Link
	_, token, _ := strings.Cut(link, "token=")
	return token
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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
