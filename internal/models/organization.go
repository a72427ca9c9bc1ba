package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization groups accounts under one owning account for shared credit
// administration. An owner has at most one organization, enforced by a
// unique constraint on owner_account_id.
type Organization struct {
	OrgID          uuid.UUID // UUIDv7
	Name           string
	OwnerAccountID uuid.UUID // UUIDv7, FK to accounts
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
