package model

import "time"

// Customer represents a hotel guest record as stored in the `customers`
// table.  Customers are identified by a UUID string so that credential
// usernames can be derived from a stable prefix of the identifier.  The
// IsActive flag is a derived cache: it is true exactly when the customer
// has a CHECKED_IN reservation whose time window covers the current
// moment.  The flag is recomputed from reservations on every read and by
// the periodic sweep; it must never be treated as authoritative on its own.
//
// Fields:
//  ID        – UUID primary key of the customer.
//  FullName  – display name of the guest.
//  Email     – contact email (nullable; at least one of Email/Phone is set).
//  Phone     – contact phone (nullable; at least one of Email/Phone is set).
//  IsActive  – derived occupancy cache, persisted for cheap listing.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Customer struct {
	ID        string    `json:"id"`         // customers.id (CHAR(36) UUID)
	FullName  string    `json:"full_name"`  // customers.full_name
	Email     *string   `json:"email"`      // customers.email (nullable)
	Phone     *string   `json:"phone"`      // customers.phone (nullable)
	IsActive  bool      `json:"is_active"`  // customers.is_active (derived cache)
	CreatedAt time.Time `json:"created_at"` // customers.created_at
	UpdatedAt time.Time `json:"updated_at"` // customers.updated_at
}
