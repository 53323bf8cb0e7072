package model

import "time"

// CredentialAccount is the relational-store mirror of a network
// authentication account.  The authoritative copy for authentication
// decisions lives in the RADIUS-style store; this mirror exists for
// listing, audit and cascade deletion.  Both copies must reference the
// same username set.  The plaintext secret is returned to the caller
// exactly once at provisioning time; only this mirror row retains it for
// staff lookup, never the API after creation.
type CredentialAccount struct {
	Username        string    `json:"username"`          // credential_accounts.username (globally unique)
	Secret          string    `json:"-"`                 // credential_accounts.secret (never serialized)
	GroupID         *string   `json:"group_id"`          // credential_accounts.group_id (nullable)
	OwnerCustomerID *string   `json:"owner_customer_id"` // credential_accounts.owner_customer_id (nullable)
	ReservationID   *uint64   `json:"reservation_id"`    // credential_accounts.reservation_id (nullable)
	IsActive        bool      `json:"is_active"`         // credential_accounts.is_active
	CreatedAt       time.Time `json:"created_at"`        // credential_accounts.created_at
}

// AccessGroup is a bandwidth/session policy selectable on a reservation.
// Provisioned accounts are joined to a group via the authentication
// store's group-membership table.
type AccessGroup struct {
	ID          string `json:"id"`          // access_groups.id
	Name        string `json:"name"`        // access_groups.name
	Description string `json:"description"` // access_groups.description
}
