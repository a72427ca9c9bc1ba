package store

import (
	"context"
	"errors"

	"github.com/draftforge/draftforge/internal/models"
	"github.com/google/uuid"
)

// Sentinel errors for organization membership operations
var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrInvalidRole          = errors.New("only INDIVIDUAL accounts can be added as employees")
	ErrNotOwner             = errors.New("only OWNER accounts can have an organization")
)

// OrganizationWithOwner pairs an organization with its owner's email for
// administrative listings.
type OrganizationWithOwner struct {
	Organization models.Organization
	OwnerEmail   string
}

// OrganizationStore defines the interface for organization membership
// operations. Multi-step operations (lazy creation, assignment by email)
// execute atomically so a concurrent role or membership change cannot be
// observed mid-operation.
type OrganizationStore interface {
	// GetOrCreateForOwner returns the organization owned by ownerID,
	// creating it with the given default name if absent. Safe under
	// concurrent first access: losers of the creation race return the
	// winner's row.
	GetOrCreateForOwner(ctx context.Context, ownerID uuid.UUID, defaultName string) (*models.Organization, error)

	// Get retrieves an organization by ID.
	// Returns ErrOrganizationNotFound if it doesn't exist.
	Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)

	// AssignByEmail binds the account with the given email to the
	// organization owned by ownerID. The target must have role INDIVIDUAL.
	// Returns ErrOrganizationNotFound if the owner has no organization,
	// ErrAccountNotFound if no account matches the email, and
	// ErrInvalidRole if the target is an OWNER or ADMIN.
	AssignByEmail(ctx context.Context, ownerID uuid.UUID, email string) (*models.Account, error)

	// AssignByID directly binds an account to an organization without a
	// role check. Administrative override.
	// Returns ErrAccountNotFound if the account doesn't exist.
	AssignByID(ctx context.Context, accountID, orgID uuid.UUID) (*models.Account, error)

	// Unassign clears an account's organization binding.
	// Returns ErrAccountNotFound if the account doesn't exist.
	Unassign(ctx context.Context, accountID uuid.UUID) (*models.Account, error)

	// ListEmployees returns all accounts bound to the organization,
	// newest first.
	ListEmployees(ctx context.Context, orgID uuid.UUID) ([]*models.Account, error)

	// ListOrganizations returns the most recently created organizations
	// with their owners' emails, up to limit.
	ListOrganizations(ctx context.Context, limit int) ([]*OrganizationWithOwner, error)
}
