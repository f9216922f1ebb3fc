package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/brokersim/ledger-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*model.User
	ledger []model.Transaction

	// FailCommits makes CommitTrade fail without mutating any state,
	// simulating an unreachable backing store in tests.
	FailCommits error
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*model.User),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return ErrUsernameTaken
		}
	}

	// Store a copy to avoid external mutation.
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

// CommitTrade applies both mutations under a single lock section so no
// reader observes the cash update without the ledger row or vice versa.
func (s *MemoryStore) CommitTrade(_ context.Context, userID string, newCash decimal.Decimal, t *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailCommits != nil {
		return s.FailCommits
	}

	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}

	u.Cash = newCash
	s.ledger = append(s.ledger, *t)
	return nil
}

func (s *MemoryStore) TransactionsByUser(_ context.Context, userID string) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Transaction
	for _, t := range s.ledger {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	return result, nil
}
