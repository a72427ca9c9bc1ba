// Package memory provides in-memory implementations of the store
// interfaces for development and testing. All stores created from one
// Backend share state behind a single mutex, which gives the same
// all-or-nothing semantics as the PostgreSQL implementation's
// transactions.
package memory

import (
	"strings"
	"sync"

	"github.com/draftforge/draftforge/internal/models"
	"github.com/google/uuid"
)

// Backend holds the shared state for a set of in-memory stores.
type Backend struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]*models.Account
	orgs      map[uuid.UUID]*models.Organization
	purchases []*models.CreditPurchase
	usage     []*models.UsageLog
	transfers []*models.CreditTransfer
}

// NewBackend creates an empty in-memory backend.
func NewBackend() *Backend {
	return &Backend{
		accounts: make(map[uuid.UUID]*models.Account),
		orgs:     make(map[uuid.UUID]*models.Organization),
	}
}

// Accounts returns an account store view over the backend.
func (b *Backend) Accounts() *AccountStore {
	return &AccountStore{backend: b}
}

// Organizations returns an organization store view over the backend.
func (b *Backend) Organizations() *OrganizationStore {
	return &OrganizationStore{backend: b}
}

// Ledger returns a ledger store view over the backend.
func (b *Backend) Ledger() *LedgerStore {
	return &LedgerStore{backend: b}
}

func (b *Backend) findByEmailLocked(email string) *models.Account {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, account := range b.accounts {
		if account.Email == email {
			return account
		}
	}
	return nil
}

func (b *Backend) findOrgByOwnerLocked(ownerID uuid.UUID) *models.Organization {
	for _, org := range b.orgs {
		if org.OwnerAccountID == ownerID {
			return org
		}
	}
	return nil
}

func copyAccount(a *models.Account) models.Account {
	cp := *a
	if a.OrgID != nil {
		id := *a.OrgID
		cp.OrgID = &id
	}
	return cp
}
