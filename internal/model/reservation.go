package model

import "time"

// Reservation statuses.  A reservation is created directly in CHECKED_IN
// (booking equals immediate occupancy); it leaves that state either by an
// explicit transition to CHECKED_OUT/CANCELED or by the expiry sweep once
// its window has elapsed.
const (
	ReservationPending    = "PENDING"
	ReservationCheckedIn  = "CHECKED_IN"
	ReservationCheckedOut = "CHECKED_OUT"
	ReservationCanceled   = "CANCELED"
)

// Provisioning states recorded on a reservation.  They make drift between
// the relational store and the authentication store observable: a
// reservation can be live while its credential writes are still pending or
// have failed, and an operator report can surface and retry those rows.
const (
	ProvisioningNone    = "NONE"    // no access group requested, nothing to provision
	ProvisioningOK      = "OK"      // credential rows exist in both stores
	ProvisioningPending = "PENDING" // mirror write incomplete after auth-store success
	ProvisioningFailed  = "FAILED"  // auth-store write failed; retried by operators
)

// Reservation ties a customer to a room for a time window.  The window is
// inclusive on both ends: the reservation grants access at exactly CheckIn
// and at exactly CheckOut.  GuestCount determines how many credential
// accounts are issued when an access group is requested.
type Reservation struct {
	ID                uint64    `json:"id"`                 // reservations.id
	CustomerID        string    `json:"customer_id"`        // reservations.customer_id
	RoomID            uint64    `json:"room_id"`            // reservations.room_id
	RoomNumber        string    `json:"room_number"`        // joined from rooms for username derivation
	GuestCount        int       `json:"guest_count"`        // reservations.guest_count (>= 1)
	CheckIn           time.Time `json:"check_in"`           // reservations.check_in (UTC)
	CheckOut          time.Time `json:"check_out"`          // reservations.check_out (UTC)
	Status            string    `json:"status"`             // reservations.status
	AccessGroupID     *string   `json:"access_group_id"`    // reservations.access_group_id (nullable)
	ProvisioningState string    `json:"provisioning_state"` // reservations.provisioning_state
	CreatedAt         time.Time `json:"created_at"`         // reservations.created_at
	UpdatedAt         time.Time `json:"updated_at"`         // reservations.updated_at
}
