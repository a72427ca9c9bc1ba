package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageStatus records the outcome of one tool-invocation attempt.
const (
	UsageStatusSuccess = "SUCCESS"
	UsageStatusFailed  = "FAILED"
)

// InsufficientCreditsMessage is the error_message recorded on the FAILED
// usage log row written when a charge is rejected for lack of funds.
const InsufficientCreditsMessage = "INSUFFICIENT_CREDITS"

// CreditPurchase is an append-only record of credits added to an account
// after a confirmed purchase. Rows are never mutated after insert.
type CreditPurchase struct {
	PurchaseID   uuid.UUID // UUIDv7
	AccountID    uuid.UUID
	PackageKey   string
	CreditsAdded int64
	CreatedAt    time.Time
}

// UsageLog is an append-only record of one tool invocation attempt.
// Summing credits_charged over SUCCESS rows reconstructs total spend.
type UsageLog struct {
	LogID          uuid.UUID // UUIDv7
	AccountID      uuid.UUID
	ToolKey        string
	CreditsCharged int64
	InputChars     int64
	OutputChars    int64
	Status         string // "SUCCESS" or "FAILED"
	ErrorMessage   string // empty on success
	CreatedAt      time.Time
}

// CreditTransfer is an append-only record of one owner-to-employee transfer.
// Both legs of the movement are captured in a single row so the ledger
// stays reconstructible.
type CreditTransfer struct {
	TransferID    uuid.UUID // UUIDv7
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	OrgID         uuid.UUID
	Amount        int64
	CreatedAt     time.Time
}
