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

const accountColumns = `
	account_id, name, email, password_hash, external_id,
	role, credits, org_id, created_at, updated_at
`

// AccountStore implements store.AccountStore using PostgreSQL.
type AccountStore struct {
	pool *pgxpool.Pool
}

var _ store.AccountStore = (*AccountStore)(nil)

// NewAccountStore creates a new PostgreSQL-backed account store.
// It shares the connection pool with other stores.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{
		pool: pool,
	}
}

// Create creates a new account in the database. Email is lowercased.
func (s *AccountStore) Create(ctx context.Context, account *models.Account) error {
	if account.AccountID == uuid.Nil {
		account.AccountID = uuid.Must(uuid.NewV7())
	}
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	query := `
		INSERT INTO accounts (
			account_id, name, email, password_hash, external_id,
			role, credits, org_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	// Convert empty strings to NULL for optional fields (to satisfy DB constraints)
	var passwordHash, externalID any
	if account.PasswordHash != "" {
		passwordHash = account.PasswordHash
	}
	if account.ExternalID != "" {
		externalID = account.ExternalID
	}

	_, err := s.pool.Exec(ctx, query,
		account.AccountID,
		account.Name,
		account.Email,
		passwordHash,
		externalID,
		account.Role,
		account.Credits,
		account.OrgID,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAccountAlreadyExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	log.Debug().
		Str("account_id", account.AccountID.String()).
		Str("role", account.Role).
		Msg("Created account")

	return nil
}

// Get retrieves an account by ID.
func (s *AccountStore) Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1`
	return s.queryOne(ctx, query, accountID)
}

// GetByEmail retrieves an account by case-insensitive email.
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1)`
	return s.queryOne(ctx, query, strings.TrimSpace(email))
}

// GetByExternalID retrieves an account by external identity-provider subject.
func (s *AccountStore) GetByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE external_id = $1`
	return s.queryOne(ctx, query, externalID)
}

// List returns the most recently created accounts, up to limit.
func (s *AccountStore) List(ctx context.Context, limit int) ([]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

func (s *AccountStore) queryOne(ctx context.Context, query string, args ...any) (*models.Account, error) {
	account, err := scanAccount(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// scanAccount reads one account row, converting NULLs to Go zero values.
func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	var passwordHash, externalID *string
	err := row.Scan(
		&a.AccountID,
		&a.Name,
		&a.Email,
		&passwordHash,
		&externalID,
		&a.Role,
		&a.Credits,
		&a.OrgID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if passwordHash != nil {
		a.PasswordHash = *passwordHash
	}
	if externalID != nil {
		a.ExternalID = *externalID
	}

	return &a, nil
}
