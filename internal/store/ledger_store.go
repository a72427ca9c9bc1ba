package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/draftforge/draftforge/internal/models"
	"github.com/google/uuid"
)

// Sentinel errors for ledger operations
var (
	ErrInvalidAmount    = errors.New("amount must be a positive number")
	ErrInvalidStatus    = errors.New("status must be SUCCESS or FAILED")
	ErrEmployeeNotInOrg = errors.New("employee does not belong to the organization")
)

// InsufficientCreditsError signals that a charge or transfer was rejected
// because the source balance was too low. Available carries the actual
// balance for user-facing messaging.
type InsufficientCreditsError struct {
	Available int64
	Required  int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: have %d, need %d", e.Available, e.Required)
}

// AsInsufficientCredits unwraps err as an InsufficientCreditsError.
func AsInsufficientCredits(err error) (*InsufficientCreditsError, bool) {
	var ice *InsufficientCreditsError
	if errors.As(err, &ice) {
		return ice, true
	}
	return nil, false
}

// ChargeRequest carries the parameters of one ChargeAndLog invocation.
type ChargeRequest struct {
	AccountID      uuid.UUID
	ToolKey        string
	CreditsCharged int64
	InputChars     int64
	OutputChars    int64
	Status         string // models.UsageStatusSuccess or models.UsageStatusFailed
	ErrorMessage   string // required context on the FAILED path
}

// Validate checks the request before it reaches a transaction.
func (r *ChargeRequest) Validate() error {
	if r.Status != models.UsageStatusSuccess && r.Status != models.UsageStatusFailed {
		return ErrInvalidStatus
	}
	if r.Status == models.UsageStatusSuccess && r.CreditsCharged <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// UsageWithAccount pairs a usage log row with the account's email and role
// for operator views.
type UsageWithAccount struct {
	Usage models.UsageLog
	Email string
	Role  string
}

// Stats holds operator-facing row counts.
type Stats struct {
	Accounts      int64
	Organizations int64
	UsageLogs     int64
}

// LedgerStore defines the transactional credit ledger. Every operation
// that mutates a balance runs as a single all-or-nothing transaction with
// row-level locks on the account rows it reads then writes, so concurrent
// operations on the same account serialize instead of interleaving.
type LedgerStore interface {
	// AddCredits increments the account's balance by amount and appends a
	// CreditPurchase row, atomically. Payment verification has already
	// happened upstream. Returns the new balance.
	// Returns ErrAccountNotFound if the account doesn't exist and
	// ErrInvalidAmount if amount is not positive.
	AddCredits(ctx context.Context, accountID uuid.UUID, packageKey string, amount int64) (int64, error)

	// TransferCredits moves amount from one account to another within
	// orgID, atomically, and appends a CreditTransfer row. The destination
	// must belong to orgID, re-checked under lock. Both rows are locked in
	// ascending account-id order before balances are read.
	// Returns ErrAccountNotFound, ErrEmployeeNotInOrg, ErrInvalidAmount,
	// or an InsufficientCreditsError when the source balance is too low.
	TransferCredits(ctx context.Context, fromID, toID uuid.UUID, amount int64, orgID uuid.UUID) error

	// ChargeAndLog is the metering primitive. With status SUCCESS it locks
	// the account row, rejects the charge if the balance is below
	// CreditsCharged (committing a FAILED log row and returning an
	// InsufficientCreditsError), otherwise deducts and appends a SUCCESS
	// row. With status FAILED it appends a FAILED row without touching the
	// balance. Every invocation attempt produces exactly one usage log row.
	// Returns the account's balance after the operation.
	ChargeAndLog(ctx context.Context, req *ChargeRequest) (int64, error)

	// GetBalance returns the account's committed balance.
	GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error)

	// ListPurchases returns the account's purchase history, newest first.
	ListPurchases(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.CreditPurchase, error)

	// ListUsage returns the account's usage history, newest first.
	ListUsage(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.UsageLog, error)

	// ListTransfers returns transfers where the account is either leg,
	// newest first.
	ListTransfers(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.CreditTransfer, error)

	// RecentUsage returns the latest usage rows across all accounts,
	// joined with account email and role.
	RecentUsage(ctx context.Context, limit int) ([]*UsageWithAccount, error)

	// GetStats returns operator-facing row counts.
	GetStats(ctx context.Context) (*Stats, error)
}
