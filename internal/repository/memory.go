package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/collexus/erp/backend/internal/domain"
)

// MemoryStore keeps accounts in process memory. It backs the demo fallback list and tests.
type MemoryStore struct {
	mutex    sync.RWMutex
	accounts map[string]*domain.Account
	readOnly bool
}

func NewMemoryStore(accounts ...*domain.Account) *MemoryStore {
	s := &MemoryStore{accounts: make(map[string]*domain.Account, len(accounts))}
	for _, a := range accounts {
		cp := *a
		s.accounts[cp.ID] = &cp
	}
	return s
}

// NewReadOnlyMemoryStore returns a store whose mutating methods fail with domain.ErrDependencyUnavailable.
func NewReadOnlyMemoryStore(accounts ...*domain.Account) *MemoryStore {
	s := NewMemoryStore(accounts...)
	s.readOnly = true
	return s
}

func (s *MemoryStore) GetAccountByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, a := range s.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *MemoryStore) GetAccountByID(_ context.Context, id string) (*domain.Account, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if a, ok := s.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (s *MemoryStore) GetAllAccounts(_ context.Context, role *domain.Role) ([]*domain.Account, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	accounts := make([]*domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if role != nil && a.Role != *role {
			continue
		}
		cp := *a
		accounts = append(accounts, &cp)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (s *MemoryStore) CreateAccount(_ context.Context, account *domain.Account) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.readOnly {
		return domain.ErrDependencyUnavailable
	}
	for _, a := range s.accounts {
		if a.Email == account.Email {
			return domain.ErrEmailAlreadyExists
		}
	}

	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	account.Version = 1

	cp := *account
	s.accounts[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateAccount(_ context.Context, account *domain.Account) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.readOnly {
		return domain.ErrDependencyUnavailable
	}
	current, ok := s.accounts[account.ID]
	if !ok || current.Version != account.Version {
		return ErrEditConflict
	}
	for id, a := range s.accounts {
		if id != account.ID && a.Email == account.Email {
			return domain.ErrEmailAlreadyExists
		}
	}

	account.UpdatedAt = time.Now().UTC()
	account.Version++

	cp := *account
	s.accounts[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteAccount(_ context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.readOnly {
		return domain.ErrDependencyUnavailable
	}
	if _, ok := s.accounts[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *MemoryStore) CountAccountsByRole(_ context.Context, role domain.Role) (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var count int64
	for _, a := range s.accounts {
		if a.Role == role {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) CheckEmailIfExists(ctx context.Context, email string) (bool, error) {
	_, err := s.GetAccountByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case err == domain.ErrAccountNotFound:
		return false, nil
	default:
		return false, err
	}
}
