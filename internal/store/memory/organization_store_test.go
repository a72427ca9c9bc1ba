package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/draftforge/draftforge/internal/models"
	"github.com/draftforge/draftforge/internal/store"
	"github.com/stretchr/testify/require"
)

func newOwnerFixture(t *testing.T, backend *Backend) *models.Account {
	t.Helper()
	owner := &models.Account{Name: "Owner", Email: "owner@example.com", Role: models.RoleOwner}
	require.NoError(t, backend.Accounts().Create(context.Background(), owner))
	return owner
}

func TestOrganizationStore_GetOrCreateForOwner(t *testing.T) {
	t.Run("creates on first access", func(t *testing.T) {
		backend := NewBackend()
		owner := newOwnerFixture(t, backend)
		orgs := backend.Organizations()

		org, err := orgs.GetOrCreateForOwner(context.Background(), owner.AccountID, "Owner's Team")
		require.NoError(t, err)
		require.Equal(t, "Owner's Team", org.Name)
		require.Equal(t, owner.AccountID, org.OwnerAccountID)
	})

	t.Run("idempotent on repeat access", func(t *testing.T) {
		backend := NewBackend()
		owner := newOwnerFixture(t, backend)
		orgs := backend.Organizations()
		ctx := context.Background()

		first, err := orgs.GetOrCreateForOwner(ctx, owner.AccountID, "Team")
		require.NoError(t, err)

		second, err := orgs.GetOrCreateForOwner(ctx, owner.AccountID, "Different Name")
		require.NoError(t, err)
		require.Equal(t, first.OrgID, second.OrgID)
		require.Equal(t, "Team", second.Name)
	})

	t.Run("concurrent first access creates exactly one org", func(t *testing.T) {
		backend := NewBackend()
		owner := newOwnerFixture(t, backend)
		orgs := backend.Organizations()
		ctx := context.Background()

		const workers = 16
		results := make([]*models.Organization, workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				org, err := orgs.GetOrCreateForOwner(ctx, owner.AccountID, "Team")
				require.NoError(t, err)
				results[i] = org
			}()
		}
		wg.Wait()

		for _, org := range results {
			require.Equal(t, results[0].OrgID, org.OrgID)
		}
	})

	t.Run("unknown owner", func(t *testing.T) {
		backend := NewBackend()
		_, err := backend.Organizations().GetOrCreateForOwner(context.Background(), newAccountID(), "Team")
		require.ErrorIs(t, err, store.ErrAccountNotFound)
	})

	t.Run("individual cannot own an organization", func(t *testing.T) {
		backend := NewBackend()
		individual := &models.Account{Name: "Ind", Email: "ind@example.com", Role: models.RoleIndividual}
		require.NoError(t, backend.Accounts().Create(context.Background(), individual))

		_, err := backend.Organizations().GetOrCreateForOwner(context.Background(), individual.AccountID, "Team")
		require.ErrorIs(t, err, store.ErrNotOwner)
	})
}

func TestOrganizationStore_AssignByEmail(t *testing.T) {
	setup := func(t *testing.T) (*Backend, *models.Account, *models.Organization) {
		t.Helper()
		backend := NewBackend()
		owner := newOwnerFixture(t, backend)
		org, err := backend.Organizations().GetOrCreateForOwner(context.Background(), owner.AccountID, "Team")
		require.NoError(t, err)
		return backend, owner, org
	}

	t.Run("assigns an individual", func(t *testing.T) {
		backend, owner, org := setup(t)
		ctx := context.Background()

		employee := &models.Account{Name: "Emp", Email: "emp@example.com", Role: models.RoleIndividual}
		require.NoError(t, backend.Accounts().Create(ctx, employee))

		updated, err := backend.Organizations().AssignByEmail(ctx, owner.AccountID, "EMP@example.com")
		require.NoError(t, err)
		require.NotNil(t, updated.OrgID)
		require.Equal(t, org.OrgID, *updated.OrgID)
		require.Equal(t, models.RoleIndividual, updated.Role, "assignment must not change role")
	})

	t.Run("owner cannot become an employee", func(t *testing.T) {
		backend, owner, _ := setup(t)
		ctx := context.Background()

		other := &models.Account{Name: "Other Owner", Email: "other@example.com", Role: models.RoleOwner}
		require.NoError(t, backend.Accounts().Create(ctx, other))

		_, err := backend.Organizations().AssignByEmail(ctx, owner.AccountID, "other@example.com")
		require.ErrorIs(t, err, store.ErrInvalidRole)

		// No membership change on the rejected assignment
		unchanged, err := backend.Accounts().Get(ctx, other.AccountID)
		require.NoError(t, err)
		require.Nil(t, unchanged.OrgID)
	})

	t.Run("owner without organization", func(t *testing.T) {
		backend := NewBackend()
		owner := newOwnerFixture(t, backend)
		ctx := context.Background()

		employee := &models.Account{Name: "Emp", Email: "emp@example.com", Role: models.RoleIndividual}
		require.NoError(t, backend.Accounts().Create(ctx, employee))

		_, err := backend.Organizations().AssignByEmail(ctx, owner.AccountID, "emp@example.com")
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	})

	t.Run("unknown email", func(t *testing.T) {
		backend, owner, _ := setup(t)
		_, err := backend.Organizations().AssignByEmail(context.Background(), owner.AccountID, "ghost@example.com")
		require.ErrorIs(t, err, store.ErrAccountNotFound)
	})
}

func TestOrganizationStore_AssignAndUnassign(t *testing.T) {
	backend := NewBackend()
	owner := newOwnerFixture(t, backend)
	ctx := context.Background()

	org, err := backend.Organizations().GetOrCreateForOwner(ctx, owner.AccountID, "Team")
	require.NoError(t, err)

	// AssignByID skips the role check entirely
	admin := &models.Account{Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin}
	require.NoError(t, backend.Accounts().Create(ctx, admin))

	assigned, err := backend.Organizations().AssignByID(ctx, admin.AccountID, org.OrgID)
	require.NoError(t, err)
	require.NotNil(t, assigned.OrgID)

	employees, err := backend.Organizations().ListEmployees(ctx, org.OrgID)
	require.NoError(t, err)
	require.Len(t, employees, 1)

	removed, err := backend.Organizations().Unassign(ctx, admin.AccountID)
	require.NoError(t, err)
	require.Nil(t, removed.OrgID)

	employees, err = backend.Organizations().ListEmployees(ctx, org.OrgID)
	require.NoError(t, err)
	require.Empty(t, employees)
}

func TestOrganizationStore_ListOrganizations(t *testing.T) {
	backend := NewBackend()
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com"} {
		owner := &models.Account{Name: email, Email: email, Role: models.RoleOwner}
		require.NoError(t, backend.Accounts().Create(ctx, owner))
		_, err := backend.Organizations().GetOrCreateForOwner(ctx, owner.AccountID, email+" org")
		require.NoError(t, err)
	}

	listed, err := backend.Organizations().ListOrganizations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	for _, entry := range listed {
		require.NotEmpty(t, entry.OwnerEmail)
	}
}
