package models

import (
	"time"

	"github.com/google/uuid"
)

// Role determines what an account may do: individuals run tools, owners
// administer an organization, admins have operator access.
const (
	RoleIndividual = "INDIVIDUAL"
	RoleOwner      = "OWNER"
	RoleAdmin      = "ADMIN"
)

// Account represents a registered identity with a credit balance.
// The credits field is only ever mutated through ledger operations, and
// org_id only through membership operations.
type Account struct {
	AccountID uuid.UUID // UUIDv7
	Name      string
	Email     string // stored lowercased, unique

	// Credential hash for password login, empty for external-identity accounts
	PasswordHash string

	// External identity provider subject (e.g. Google), empty for local accounts
	ExternalID string

	Role    string // "INDIVIDUAL", "OWNER", "ADMIN"
	Credits int64  // >= 0 at every committed state

	// OrgID is set when the account is an employee of an organization
	OrgID *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsEmployee returns true if the account is bound to an organization.
func (a *Account) IsEmployee() bool {
	return a.OrgID != nil
}
