package memory

import (
	"context"
	"sort"
	"time"

	"github.com/draftforge/draftforge/internal/models"
	"github.com/draftforge/draftforge/internal/store"
	"github.com/google/uuid"
)

// LedgerStore is an in-memory implementation of store.LedgerStore. Holding
// the backend mutex for the whole of each operation reproduces the
// serialization the PostgreSQL implementation gets from row-level locks.
type LedgerStore struct {
	backend *Backend
}

var _ store.LedgerStore = (*LedgerStore)(nil)

// AddCredits increments the account balance and appends a purchase row.
func (s *LedgerStore) AddCredits(ctx context.Context, accountID uuid.UUID, packageKey string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, store.ErrInvalidAmount
	}

	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	account, ok := b.accounts[accountID]
	if !ok {
		return 0, store.ErrAccountNotFound
	}

	account.Credits += amount
	account.UpdatedAt = time.Now()
	b.purchases = append(b.purchases, &models.CreditPurchase{
		PurchaseID:   uuid.Must(uuid.NewV7()),
		AccountID:    accountID,
		PackageKey:   packageKey,
		CreditsAdded: amount,
		CreatedAt:    time.Now(),
	})

	return account.Credits, nil
}

// TransferCredits moves amount between two accounts in the same
// organization and appends a transfer row.
func (s *LedgerStore) TransferCredits(ctx context.Context, fromID, toID uuid.UUID, amount int64, orgID uuid.UUID) error {
	if amount <= 0 {
		return store.ErrInvalidAmount
	}

	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	from, ok := b.accounts[fromID]
	if !ok {
		return store.ErrAccountNotFound
	}

	to, ok := b.accounts[toID]
	if !ok || to.OrgID == nil || *to.OrgID != orgID {
		return store.ErrEmployeeNotInOrg
	}

	if from.Credits < amount {
		return &store.InsufficientCreditsError{Available: from.Credits, Required: amount}
	}

	now := time.Now()
	from.Credits -= amount
	to.Credits += amount
	from.UpdatedAt = now
	to.UpdatedAt = now
	b.transfers = append(b.transfers, &models.CreditTransfer{
		TransferID:    uuid.Must(uuid.NewV7()),
		FromAccountID: fromID,
		ToAccountID:   toID,
		OrgID:         orgID,
		Amount:        amount,
		CreatedAt:     now,
	})

	return nil
}

// ChargeAndLog deducts credits on the SUCCESS path and appends exactly one
// usage log row for every invocation attempt.
func (s *LedgerStore) ChargeAndLog(ctx context.Context, req *store.ChargeRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	account, ok := b.accounts[req.AccountID]
	if !ok {
		return 0, store.ErrAccountNotFound
	}

	now := time.Now()

	if req.Status == models.UsageStatusSuccess {
		if account.Credits < req.CreditsCharged {
			// The rejected attempt is still recorded; the log row commits
			// even though the charge does not happen.
			b.usage = append(b.usage, &models.UsageLog{
				LogID:          uuid.Must(uuid.NewV7()),
				AccountID:      req.AccountID,
				ToolKey:        req.ToolKey,
				CreditsCharged: req.CreditsCharged,
				InputChars:     req.InputChars,
				OutputChars:    0,
				Status:         models.UsageStatusFailed,
				ErrorMessage:   models.InsufficientCreditsMessage,
				CreatedAt:      now,
			})
			return account.Credits, &store.InsufficientCreditsError{
				Available: account.Credits,
				Required:  req.CreditsCharged,
			}
		}
		account.Credits -= req.CreditsCharged
		account.UpdatedAt = now
	}

	b.usage = append(b.usage, &models.UsageLog{
		LogID:          uuid.Must(uuid.NewV7()),
		AccountID:      req.AccountID,
		ToolKey:        req.ToolKey,
		CreditsCharged: req.CreditsCharged,
		InputChars:     req.InputChars,
		OutputChars:    req.OutputChars,
		Status:         req.Status,
		ErrorMessage:   req.ErrorMessage,
		CreatedAt:      now,
	})

	return account.Credits, nil
}

// GetBalance returns the account's committed balance.
func (s *LedgerStore) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	account, ok := b.accounts[accountID]
	if !ok {
		return 0, store.ErrAccountNotFound
	}
	return account.Credits, nil
}

// ListPurchases returns the account's purchase history, newest first.
func (s *LedgerStore) ListPurchases(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.CreditPurchase, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	var purchases []*models.CreditPurchase
	for _, p := range b.purchases {
		if p.AccountID == accountID {
			cp := *p
			purchases = append(purchases, &cp)
		}
	}
	sortNewestFirst(purchases, func(p *models.CreditPurchase) time.Time { return p.CreatedAt })
	if limit > 0 && len(purchases) > limit {
		purchases = purchases[:limit]
	}
	return purchases, nil
}

// ListUsage returns the account's usage history, newest first.
func (s *LedgerStore) ListUsage(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.UsageLog, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	var usage []*models.UsageLog
	for _, u := range b.usage {
		if u.AccountID == accountID {
			cp := *u
			usage = append(usage, &cp)
		}
	}
	sortNewestFirst(usage, func(u *models.UsageLog) time.Time { return u.CreatedAt })
	if limit > 0 && len(usage) > limit {
		usage = usage[:limit]
	}
	return usage, nil
}

// ListTransfers returns transfers touching the account, newest first.
func (s *LedgerStore) ListTransfers(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.CreditTransfer, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	var transfers []*models.CreditTransfer
	for _, t := range b.transfers {
		if t.FromAccountID == accountID || t.ToAccountID == accountID {
			cp := *t
			transfers = append(transfers, &cp)
		}
	}
	sortNewestFirst(transfers, func(t *models.CreditTransfer) time.Time { return t.CreatedAt })
	if limit > 0 && len(transfers) > limit {
		transfers = transfers[:limit]
	}
	return transfers, nil
}

// RecentUsage returns the latest usage rows across all accounts.
func (s *LedgerStore) RecentUsage(ctx context.Context, limit int) ([]*store.UsageWithAccount, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	usage := make([]*store.UsageWithAccount, 0, len(b.usage))
	for _, u := range b.usage {
		entry := &store.UsageWithAccount{Usage: *u}
		if account, ok := b.accounts[u.AccountID]; ok {
			entry.Email = account.Email
			entry.Role = account.Role
		}
		usage = append(usage, entry)
	}
	sortNewestFirst(usage, func(u *store.UsageWithAccount) time.Time { return u.Usage.CreatedAt })
	if limit > 0 && len(usage) > limit {
		usage = usage[:limit]
	}
	return usage, nil
}

// GetStats returns operator-facing row counts.
func (s *LedgerStore) GetStats(ctx context.Context) (*store.Stats, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	return &store.Stats{
		Accounts:      int64(len(b.accounts)),
		Organizations: int64(len(b.orgs)),
		UsageLogs:     int64(len(b.usage)),
	}, nil
}

func sortNewestFirst[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).After(createdAt(items[j]))
	})
}
