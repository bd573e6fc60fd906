package account

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps accounts in process memory. Suitable for dev
// and tests; everything is lost on restart.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	// identity index keyed by platform + "\x00" + externalID
	byIdentity map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts:   make(map[string]*Account),
		byIdentity: make(map[string]string),
	}
}

func identityKey(platform, externalID string) string {
	return platform + "\x00" + externalID
}

func (m *MemoryRepository) Ping(ctx context.Context) error { return nil }

func (m *MemoryRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAccount(a), nil
}

func (m *MemoryRepository) FindByIdentity(ctx context.Context, platform, externalID string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byIdentity[identityKey(platform, externalID)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAccount(m.accounts[id]), nil
}

func (m *MemoryRepository) Create(ctx context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; ok {
		return ErrConflict
	}
	for _, l := range a.Accounts {
		if _, taken := m.byIdentity[identityKey(l.Platform, l.ID)]; taken {
			return ErrConflict
		}
	}
	cp := cloneAccount(a)
	if cp.Pronouns == "" {
		cp.Pronouns = DefaultPronouns
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.accounts[cp.ID] = cp
	for _, l := range cp.Accounts {
		m.byIdentity[identityKey(l.Platform, l.ID)] = cp.ID
	}
	return nil
}

func (m *MemoryRepository) AddIdentity(ctx context.Context, accountID string, l Linked) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	if _, taken := m.byIdentity[identityKey(l.Platform, l.ID)]; taken {
		return ErrConflict
	}
	a.Accounts = append(a.Accounts, l)
	m.byIdentity[identityKey(l.Platform, l.ID)] = accountID
	return nil
}

func (m *MemoryRepository) RemoveIdentity(ctx context.Context, accountID, platform, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	idx := -1
	for i, l := range a.Accounts {
		if l.Platform == platform && l.ID == externalID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	if len(a.Accounts) == 1 {
		return ErrLastLink
	}
	removed := a.Accounts[idx]
	a.Accounts = append(a.Accounts[:idx], a.Accounts[idx+1:]...)
	delete(m.byIdentity, identityKey(removed.Platform, removed.ID))
	return nil
}

func (m *MemoryRepository) SetPronouns(ctx context.Context, accountID, pronouns string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	a.Pronouns = pronouns
	return nil
}

func cloneAccount(a *Account) *Account {
	cp := *a
	cp.Accounts = make([]Linked, len(a.Accounts))
	copy(cp.Accounts, a.Accounts)
	return &cp
}
