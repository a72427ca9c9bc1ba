// Package store defines the storage interfaces for accounts, organizations
// and the credit ledger, along with the sentinel and typed errors callers
// match on. Implementations live in the memory and postgres subpackages.
package store

import (
	"context"
	"errors"

	"github.com/draftforge/draftforge/internal/models"
	"github.com/google/uuid"
)

// Sentinel errors for account store operations
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountAlreadyExists = errors.New("account already exists")
)

// AccountStore defines the interface for account storage operations.
// Balances and org membership are NOT mutated through this interface;
// those changes go through LedgerStore and OrganizationStore so every
// movement leaves an audit trail.
type AccountStore interface {
	// Create creates a new account. Email is stored lowercased.
	// Returns ErrAccountAlreadyExists if the email is already registered.
	Create(ctx context.Context, account *models.Account) error

	// Get retrieves an account by ID.
	// Returns ErrAccountNotFound if the account doesn't exist.
	Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error)

	// GetByEmail retrieves an account by case-insensitive email.
	// Returns ErrAccountNotFound if no account matches.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// GetByExternalID retrieves an account by its external
	// identity-provider subject.
	// Returns ErrAccountNotFound if no account matches.
	GetByExternalID(ctx context.Context, externalID string) (*models.Account, error)

	// List returns the most recently created accounts, up to limit.
	List(ctx context.Context, limit int) ([]*models.Account, error)
}
