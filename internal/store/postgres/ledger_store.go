package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/draftforge/draftforge/internal/models"
	"github.com/draftforge/draftforge/internal/store"
	"github.com/draftforge/draftforge/internal/telemetry"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LedgerStore implements store.LedgerStore using PostgreSQL. Every
// balance-mutating operation runs as one transaction with SELECT ... FOR
// UPDATE on the account rows it touches, so concurrent operations on the
// same account serialize rather than interleave. No operation is retried
// here; retries are the caller's decision.
type LedgerStore struct {
	pool *pgxpool.Pool
}

var _ store.LedgerStore = (*LedgerStore)(nil)

// NewLedgerStore creates a new PostgreSQL-backed ledger store.
// It shares the connection pool with other stores.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{
		pool: pool,
	}
}

// AddCredits increments the account balance and appends a purchase row in
// one transaction. Either both writes commit or neither does.
func (s *LedgerStore) AddCredits(ctx context.Context, accountID uuid.UUID, packageKey string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, store.ErrInvalidAmount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	// The UPDATE takes the row lock; RETURNING yields the new balance.
	var balance int64
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET credits = credits + $1, updated_at = $2
		WHERE account_id = $3
		RETURNING credits
	`, amount, time.Now(), accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, store.ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to add credits: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO credit_purchases (purchase_id, account_id, package_key, credits_added, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.Must(uuid.NewV7()), accountID, packageKey, amount, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to record purchase: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit purchase: %w", err)
	}

	telemetry.GetMetrics().CreditsPurchasedTotal.Add(ctx, amount,
		metric.WithAttributes(attribute.String("package_key", packageKey)))

	log.Debug().
		Str("account_id", accountID.String()).
		Str("package_key", packageKey).
		Int64("credits_added", amount).
		Int64("balance", balance).
		Msg("Added credits")

	return balance, nil
}

// TransferCredits moves amount between two accounts in the same
// organization. Both rows are locked in ascending account-id order before
// balances are read, so two concurrent opposite-direction transfers cannot
// deadlock or lose an update. The destination's membership in orgID is
// re-checked under the lock. Both legs and the audit row commit together.
func (s *LedgerStore) TransferCredits(ctx context.Context, fromID, toID uuid.UUID, amount int64, orgID uuid.UUID) error {
	if amount <= 0 {
		return store.ErrInvalidAmount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	locked, err := lockAccounts(ctx, tx, fromID, toID)
	if err != nil {
		return err
	}

	from, ok := locked[fromID]
	if !ok {
		return store.ErrAccountNotFound
	}
	to, ok := locked[toID]
	if !ok || to.orgID == nil || *to.orgID != orgID {
		return store.ErrEmployeeNotInOrg
	}

	// Balance check happens after the lock, never on a stale read
	if from.credits < amount {
		return &store.InsufficientCreditsError{Available: from.credits, Required: amount}
	}

	now := time.Now()
	if _, err := tx.Exec(ctx, `
		UPDATE accounts SET credits = credits - $1, updated_at = $2 WHERE account_id = $3
	`, amount, now, fromID); err != nil {
		if isCheckViolation(err) {
			return &store.InsufficientCreditsError{Available: from.credits, Required: amount}
		}
		return fmt.Errorf("failed to debit source: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE accounts SET credits = credits + $1, updated_at = $2 WHERE account_id = $3
	`, amount, now, toID); err != nil {
		return fmt.Errorf("failed to credit destination: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO credit_transfers (transfer_id, from_account_id, to_account_id, org_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.Must(uuid.NewV7()), fromID, toID, orgID, amount, now); err != nil {
		return fmt.Errorf("failed to record transfer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}

	telemetry.GetMetrics().CreditsTransferredTotal.Add(ctx, amount)

	log.Debug().
		Str("from_account_id", fromID.String()).
		Str("to_account_id", toID.String()).
		Int64("amount", amount).
		Msg("Transferred credits")

	return nil
}

// ChargeAndLog is the metering primitive. The account row is locked before
// the balance is read; the insufficient-funds rejection commits its FAILED
// log row before the typed error is returned, so every invocation attempt
// leaves exactly one usage log row.
func (s *LedgerStore) ChargeAndLog(ctx context.Context, req *store.ChargeRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	var balance int64
	err = tx.QueryRow(ctx, `
		SELECT credits FROM accounts WHERE account_id = $1 FOR UPDATE
	`, req.AccountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, store.ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to lock account: %w", err)
	}

	now := time.Now()

	if req.Status == models.UsageStatusSuccess {
		if balance < req.CreditsCharged {
			// The rejected attempt is still recorded: insert the FAILED
			// row and commit before signalling the caller.
			if err := insertUsageLog(ctx, tx, req.AccountID, req.ToolKey, req.CreditsCharged,
				req.InputChars, 0, models.UsageStatusFailed, models.InsufficientCreditsMessage, now); err != nil {
				return 0, err
			}
			if err := tx.Commit(ctx); err != nil {
				return 0, fmt.Errorf("failed to commit rejection log: %w", err)
			}
			telemetry.GetMetrics().UsageLogsTotal.Add(ctx, 1,
				metric.WithAttributes(attribute.String("status", "rejected")))
			return balance, &store.InsufficientCreditsError{
				Available: balance,
				Required:  req.CreditsCharged,
			}
		}

		err = tx.QueryRow(ctx, `
			UPDATE accounts SET credits = credits - $1, updated_at = $2
			WHERE account_id = $3
			RETURNING credits
		`, req.CreditsCharged, now, req.AccountID).Scan(&balance)
		if err != nil {
			if isCheckViolation(err) {
				return 0, &store.InsufficientCreditsError{Available: balance, Required: req.CreditsCharged}
			}
			return 0, fmt.Errorf("failed to charge credits: %w", err)
		}
	}

	if err := insertUsageLog(ctx, tx, req.AccountID, req.ToolKey, req.CreditsCharged,
		req.InputChars, req.OutputChars, req.Status, req.ErrorMessage, now); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit charge: %w", err)
	}

	if req.Status == models.UsageStatusSuccess {
		telemetry.GetMetrics().CreditsChargedTotal.Add(ctx, req.CreditsCharged,
			metric.WithAttributes(attribute.String("tool_key", req.ToolKey)))
	}
	telemetry.GetMetrics().UsageLogsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", req.Status)))

	log.Debug().
		Str("account_id", req.AccountID.String()).
		Str("tool_key", req.ToolKey).
		Str("status", req.Status).
		Int64("balance", balance).
		Msg("Charge recorded")

	return balance, nil
}

// GetBalance returns the account's committed balance.
func (s *LedgerStore) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx, `
		SELECT credits FROM accounts WHERE account_id = $1
	`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, store.ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// ListPurchases returns the account's purchase history, newest first.
func (s *LedgerStore) ListPurchases(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.CreditPurchase, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT purchase_id, account_id, package_key, credits_added, created_at
		FROM credit_purchases
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*models.CreditPurchase
	for rows.Next() {
		var p models.CreditPurchase
		if err := rows.Scan(&p.PurchaseID, &p.AccountID, &p.PackageKey, &p.CreditsAdded, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchases: %w", err)
	}

	return purchases, nil
}

// ListUsage returns the account's usage history, newest first.
func (s *LedgerStore) ListUsage(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.UsageLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT log_id, account_id, tool_key, credits_charged, input_chars, output_chars,
			status, error_message, created_at
		FROM usage_logs
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	defer rows.Close()

	var usage []*models.UsageLog
	for rows.Next() {
		u, err := scanUsageLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage log: %w", err)
		}
		usage = append(usage, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage logs: %w", err)
	}

	return usage, nil
}

// ListTransfers returns transfers touching the account, newest first.
func (s *LedgerStore) ListTransfers(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.CreditTransfer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT transfer_id, from_account_id, to_account_id, org_id, amount, created_at
		FROM credit_transfers
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*models.CreditTransfer
	for rows.Next() {
		var t models.CreditTransfer
		if err := rows.Scan(&t.TransferID, &t.FromAccountID, &t.ToAccountID, &t.OrgID, &t.Amount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfers: %w", err)
	}

	return transfers, nil
}

// RecentUsage returns the latest usage rows across all accounts, joined
// with account email and role.
func (s *LedgerStore) RecentUsage(ctx context.Context, limit int) ([]*store.UsageWithAccount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ul.log_id, ul.account_id, ul.tool_key, ul.credits_charged, ul.input_chars,
			ul.output_chars, ul.status, ul.error_message, ul.created_at, a.email, a.role
		FROM usage_logs ul
		JOIN accounts a ON a.account_id = ul.account_id
		ORDER BY ul.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent usage: %w", err)
	}
	defer rows.Close()

	var usage []*store.UsageWithAccount
	for rows.Next() {
		var entry store.UsageWithAccount
		var errorMessage *string
		err := rows.Scan(
			&entry.Usage.LogID,
			&entry.Usage.AccountID,
			&entry.Usage.ToolKey,
			&entry.Usage.CreditsCharged,
			&entry.Usage.InputChars,
			&entry.Usage.OutputChars,
			&entry.Usage.Status,
			&errorMessage,
			&entry.Usage.CreatedAt,
			&entry.Email,
			&entry.Role,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recent usage row: %w", err)
		}
		if errorMessage != nil {
			entry.Usage.ErrorMessage = *errorMessage
		}
		usage = append(usage, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent usage: %w", err)
	}

	return usage, nil
}

// GetStats returns operator-facing row counts.
func (s *LedgerStore) GetStats(ctx context.Context) (*store.Stats, error) {
	var stats store.Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM accounts),
			(SELECT COUNT(*) FROM organizations),
			(SELECT COUNT(*) FROM usage_logs)
	`).Scan(&stats.Accounts, &stats.Organizations, &stats.UsageLogs)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &stats, nil
}

// lockedAccount is the slice of an account row read under FOR UPDATE.
type lockedAccount struct {
	credits int64
	orgID   *uuid.UUID
}

// lockAccounts locks the given account rows in ascending id order. Rows
// that don't exist are simply absent from the result.
func lockAccounts(ctx context.Context, tx pgx.Tx, ids ...uuid.UUID) (map[uuid.UUID]lockedAccount, error) {
	ordered := append([]uuid.UUID(nil), ids...)
	for i := range ordered {
		for j := i + 1; j < len(ordered); j++ {
			if bytes.Compare(ordered[j][:], ordered[i][:]) < 0 {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}

	locked := make(map[uuid.UUID]lockedAccount, len(ordered))
	for _, id := range ordered {
		var acc lockedAccount
		err := tx.QueryRow(ctx, `
			SELECT credits, org_id FROM accounts WHERE account_id = $1 FOR UPDATE
		`, id).Scan(&acc.credits, &acc.orgID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("failed to lock account %s: %w", id, err)
		}
		locked[id] = acc
	}
	return locked, nil
}

func insertUsageLog(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, toolKey string,
	creditsCharged, inputChars, outputChars int64, status, errorMessage string, now time.Time) error {
	var msg any
	if errorMessage != "" {
		msg = errorMessage
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO usage_logs (log_id, account_id, tool_key, credits_charged,
			input_chars, output_chars, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.Must(uuid.NewV7()), accountID, toolKey, creditsCharged,
		inputChars, outputChars, status, msg, now)
	if err != nil {
		return fmt.Errorf("failed to insert usage log: %w", err)
	}
	return nil
}

func scanUsageLog(row pgx.Row) (*models.UsageLog, error) {
	var u models.UsageLog
	var errorMessage *string
	err := row.Scan(
		&u.LogID,
		&u.AccountID,
		&u.ToolKey,
		&u.CreditsCharged,
		&u.InputChars,
		&u.OutputChars,
		&u.Status,
		&errorMessage,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if errorMessage != nil {
		u.ErrorMessage = *errorMessage
	}
	return &u, nil
}
