package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/draftforge/draftforge/internal/models"
	"github.com/draftforge/draftforge/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// OrganizationStore implements store.OrganizationStore using PostgreSQL.
type OrganizationStore struct {
	pool *pgxpool.Pool
}

var _ store.OrganizationStore = (*OrganizationStore)(nil)

// NewOrganizationStore creates a new PostgreSQL-backed organization store.
// It shares the connection pool with other stores.
func NewOrganizationStore(pool *pgxpool.Pool) *OrganizationStore {
	return &OrganizationStore{
		pool: pool,
	}
}

// GetOrCreateForOwner returns the organization owned by ownerID, creating
// it with defaultName if absent. The unique constraint on owner_account_id
// makes concurrent first access safe: the loser of the insert race re-reads
// the winner's row.
func (s *OrganizationStore) GetOrCreateForOwner(ctx context.Context, ownerID uuid.UUID, defaultName string) (*models.Organization, error) {
	org, err := s.getByOwner(ctx, ownerID)
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, store.ErrOrganizationNotFound) {
		return nil, err
	}

	// Only owner accounts get an organization; an existing org implies the
	// role was already checked at creation.
	var role string
	err = s.pool.QueryRow(ctx, `
		SELECT role FROM accounts WHERE account_id = $1
	`, ownerID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to look up owner: %w", err)
	}
	if role != models.RoleOwner {
		return nil, store.ErrNotOwner
	}

	now := time.Now()
	org = &models.Organization{
		OrgID:          uuid.Must(uuid.NewV7()),
		Name:           strings.TrimSpace(defaultName),
		OwnerAccountID: ownerID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	query := `
		INSERT INTO organizations (
			org_id, name, owner_account_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
	`

	_, err = s.pool.Exec(ctx, query,
		org.OrgID,
		org.Name,
		org.OwnerAccountID,
		org.CreatedAt,
		org.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			// Lost the creation race; the winner's row is authoritative
			return s.getByOwner(ctx, ownerID)
		}
		if isForeignKeyViolation(err) {
			return nil, store.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Str("owner_account_id", ownerID.String()).
		Msg("Created organization")

	return org, nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	query := `
		SELECT org_id, name, owner_account_id, created_at, updated_at
		FROM organizations
		WHERE org_id = $1
	`

	var org models.Organization
	err := s.pool.QueryRow(ctx, query, orgID).Scan(
		&org.OrgID,
		&org.Name,
		&org.OwnerAccountID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &org, nil
}

// AssignByEmail binds the account with the given email to the organization
// owned by ownerID. The org lookup, target lookup, role check and update
// all run in one transaction so a role change cannot slip in between.
func (s *OrganizationStore) AssignByEmail(ctx context.Context, ownerID uuid.UUID, email string) (*models.Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	var orgID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT org_id FROM organizations WHERE owner_account_id = $1
	`, ownerID).Scan(&orgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to look up organization: %w", err)
	}

	var accountID uuid.UUID
	var role string
	err = tx.QueryRow(ctx, `
		SELECT account_id, role FROM accounts WHERE lower(email) = lower($1) FOR UPDATE
	`, strings.TrimSpace(email)).Scan(&accountID, &role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	// Only INDIVIDUALs can be employees
	if role != models.RoleIndividual {
		return nil, store.ErrInvalidRole
	}

	account, err := scanAccount(tx.QueryRow(ctx, `
		UPDATE accounts SET org_id = $1, updated_at = $2
		WHERE account_id = $3
		RETURNING `+accountColumns,
		orgID, time.Now(), accountID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to assign account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit assignment: %w", err)
	}

	log.Debug().
		Str("account_id", accountID.String()).
		Str("org_id", orgID.String()).
		Msg("Assigned account to organization")

	return account, nil
}

// AssignByID directly binds an account to an organization. No role check;
// administrative override.
func (s *OrganizationStore) AssignByID(ctx context.Context, accountID, orgID uuid.UUID) (*models.Account, error) {
	return s.updateMembership(ctx, accountID, &orgID)
}

// Unassign clears an account's organization binding.
func (s *OrganizationStore) Unassign(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	return s.updateMembership(ctx, accountID, nil)
}

func (s *OrganizationStore) updateMembership(ctx context.Context, accountID uuid.UUID, orgID *uuid.UUID) (*models.Account, error) {
	account, err := scanAccount(s.pool.QueryRow(ctx, `
		UPDATE accounts SET org_id = $1, updated_at = $2
		WHERE account_id = $3
		RETURNING `+accountColumns,
		orgID, time.Now(), accountID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to update membership: %w", err)
	}
	return account, nil
}

// ListEmployees returns all accounts bound to the organization, newest first.
func (s *OrganizationStore) ListEmployees(ctx context.Context, orgID uuid.UUID) ([]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE org_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employees: %w", err)
	}

	return employees, nil
}

// ListOrganizations returns the most recent organizations joined with their
// owners' emails, up to limit.
func (s *OrganizationStore) ListOrganizations(ctx context.Context, limit int) ([]*store.OrganizationWithOwner, error) {
	query := `
		SELECT o.org_id, o.name, o.owner_account_id, o.created_at, o.updated_at, a.email
		FROM organizations o
		JOIN accounts a ON a.account_id = o.owner_account_id
		ORDER BY o.created_at DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*store.OrganizationWithOwner
	for rows.Next() {
		var entry store.OrganizationWithOwner
		err := rows.Scan(
			&entry.Organization.OrgID,
			&entry.Organization.Name,
			&entry.Organization.OwnerAccountID,
			&entry.Organization.CreatedAt,
			&entry.Organization.UpdatedAt,
			&entry.OwnerEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}

	return orgs, nil
}

func (s *OrganizationStore) getByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Organization, error) {
	query := `
		SELECT org_id, name, owner_account_id, created_at, updated_at
		FROM organizations
		WHERE owner_account_id = $1
	`

	var org models.Organization
	err := s.pool.QueryRow(ctx, query, ownerID).Scan(
		&org.OrgID,
		&org.Name,
		&org.OwnerAccountID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization by owner: %w", err)
	}

	return &org, nil
}
