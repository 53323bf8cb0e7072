// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrRoomOccupied indicates that a reservation cannot be
// created because another CHECKED_IN reservation already covers the
// requested window, while ErrConflict signals that an operation
// cannot proceed due to existing dependent records (e.g. deleting
// a room that still has reservations).
package repository

import "errors"

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// delete a room that still has reservations. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrRoomOccupied is returned by the reservation check-and-insert when
// the requested window overlaps an existing CHECKED_IN reservation for
// the same room. The check and the insert run in one serialized
// transaction, so two concurrent bookings cannot both observe the room
// as free.
var ErrRoomOccupied = errors.New("room occupied for requested window")

// ErrUsernameTaken is returned when a credential username that is about
// to be provisioned already belongs to an unrelated account. Generation
// must never silently collide with existing accounts; the operation that
// would have caused the inconsistency does not proceed.
var ErrUsernameTaken = errors.New("username already taken")
