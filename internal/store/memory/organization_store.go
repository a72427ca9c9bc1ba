package memory

import (
	"context"
	"sort"
	"time"

	"github.com/draftforge/draftforge/internal/models"
	"github.com/draftforge/draftforge/internal/store"
	"github.com/google/uuid"
)

// OrganizationStore is an in-memory implementation of store.OrganizationStore.
type OrganizationStore struct {
	backend *Backend
}

var _ store.OrganizationStore = (*OrganizationStore)(nil)

// GetOrCreateForOwner returns the organization owned by ownerID, creating
// it if absent. The backend mutex stands in for the unique constraint on
// owner_account_id, so concurrent first access cannot create duplicates.
func (s *OrganizationStore) GetOrCreateForOwner(ctx context.Context, ownerID uuid.UUID, defaultName string) (*models.Organization, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if org := b.findOrgByOwnerLocked(ownerID); org != nil {
		cp := *org
		return &cp, nil
	}

	owner, ok := b.accounts[ownerID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	if owner.Role != models.RoleOwner {
		return nil, store.ErrNotOwner
	}

	now := time.Now()
	org := &models.Organization{
		OrgID:          uuid.Must(uuid.NewV7()),
		Name:           defaultName,
		OwnerAccountID: ownerID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	b.orgs[org.OrgID] = org

	cp := *org
	return &cp, nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	org, ok := b.orgs[orgID]
	if !ok {
		return nil, store.ErrOrganizationNotFound
	}
	cp := *org
	return &cp, nil
}

// AssignByEmail binds the account with the given email to the owner's
// organization, enforcing the INDIVIDUAL role requirement.
func (s *OrganizationStore) AssignByEmail(ctx context.Context, ownerID uuid.UUID, email string) (*models.Account, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	org := b.findOrgByOwnerLocked(ownerID)
	if org == nil {
		return nil, store.ErrOrganizationNotFound
	}

	account := b.findByEmailLocked(email)
	if account == nil {
		return nil, store.ErrAccountNotFound
	}

	if account.Role != models.RoleIndividual {
		return nil, store.ErrInvalidRole
	}

	orgID := org.OrgID
	account.OrgID = &orgID
	account.UpdatedAt = time.Now()

	cp := copyAccount(account)
	return &cp, nil
}

// AssignByID directly binds an account to an organization. No role check.
func (s *OrganizationStore) AssignByID(ctx context.Context, accountID, orgID uuid.UUID) (*models.Account, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	account, ok := b.accounts[accountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}

	id := orgID
	account.OrgID = &id
	account.UpdatedAt = time.Now()

	cp := copyAccount(account)
	return &cp, nil
}

// Unassign clears an account's organization binding.
func (s *OrganizationStore) Unassign(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	account, ok := b.accounts[accountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}

	account.OrgID = nil
	account.UpdatedAt = time.Now()

	cp := copyAccount(account)
	return &cp, nil
}

// ListEmployees returns all accounts bound to the organization, newest first.
func (s *OrganizationStore) ListEmployees(ctx context.Context, orgID uuid.UUID) ([]*models.Account, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	var employees []*models.Account
	for _, account := range b.accounts {
		if account.OrgID != nil && *account.OrgID == orgID {
			cp := copyAccount(account)
			employees = append(employees, &cp)
		}
	}
	sort.Slice(employees, func(i, j int) bool {
		return employees[i].CreatedAt.After(employees[j].CreatedAt)
	})
	return employees, nil
}

// ListOrganizations returns the most recent organizations with owner emails.
func (s *OrganizationStore) ListOrganizations(ctx context.Context, limit int) ([]*store.OrganizationWithOwner, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	orgs := make([]*store.OrganizationWithOwner, 0, len(b.orgs))
	for _, org := range b.orgs {
		entry := &store.OrganizationWithOwner{Organization: *org}
		if owner, ok := b.accounts[org.OwnerAccountID]; ok {
			entry.OwnerEmail = owner.Email
		}
		orgs = append(orgs, entry)
	}
	sort.Slice(orgs, func(i, j int) bool {
		return orgs[i].Organization.CreatedAt.After(orgs[j].Organization.CreatedAt)
	})
	if limit > 0 && len(orgs) > limit {
		orgs = orgs[:limit]
	}
	return orgs, nil
}
