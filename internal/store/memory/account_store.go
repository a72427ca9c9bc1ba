package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/draftforge/draftforge/internal/models"
	"github.com/draftforge/draftforge/internal/store"
	"github.com/google/uuid"
)

// AccountStore is an in-memory implementation of store.AccountStore.
type AccountStore struct {
	backend *Backend
}

var _ store.AccountStore = (*AccountStore)(nil)

// Create creates a new account. Email is lowercased before storage.
func (s *AccountStore) Create(ctx context.Context, account *models.Account) error {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(account.Email))
	if b.findByEmailLocked(email) != nil {
		return store.ErrAccountAlreadyExists
	}

	cp := *account
	cp.Email = email
	if cp.AccountID == uuid.Nil {
		cp.AccountID = uuid.Must(uuid.NewV7())
	}
	now := time.Now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	b.accounts[cp.AccountID] = &cp

	// Reflect generated fields back to the caller
	*account = copyAccount(&cp)
	return nil
}

// Get retrieves an account by ID.
func (s *AccountStore) Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	account, ok := b.accounts[accountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	cp := copyAccount(account)
	return &cp, nil
}

// GetByEmail retrieves an account by case-insensitive email.
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	account := b.findByEmailLocked(email)
	if account == nil {
		return nil, store.ErrAccountNotFound
	}
	cp := copyAccount(account)
	return &cp, nil
}

// GetByExternalID retrieves an account by external identity-provider subject.
func (s *AccountStore) GetByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, account := range b.accounts {
		if account.ExternalID != "" && account.ExternalID == externalID {
			cp := copyAccount(account)
			return &cp, nil
		}
	}
	return nil, store.ErrAccountNotFound
}

// List returns the most recently created accounts, up to limit.
func (s *AccountStore) List(ctx context.Context, limit int) ([]*models.Account, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	accounts := make([]*models.Account, 0, len(b.accounts))
	for _, account := range b.accounts {
		cp := copyAccount(account)
		accounts = append(accounts, &cp)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
	})
	if limit > 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}
