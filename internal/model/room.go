package model

import "time"

// Room represents a physical hotel room in the `rooms` table.  The room
// number is unique and is the basis for deterministic guest usernames
// (R{number}-{index}).  The Used flag mirrors customer.IsActive semantics:
// it is a derived cache that is true exactly when some CHECKED_IN
// reservation for the room covers the current moment.  At most one
// reservation may occupy a room at any instant; reservation creation
// enforces this with a serialized check-and-insert.
type Room struct {
	ID         uint64    `json:"id"`          // rooms.id
	RoomNumber string    `json:"room_number"` // rooms.room_number (unique)
	Used       bool      `json:"used"`        // rooms.used (derived cache)
	CreatedAt  time.Time `json:"created_at"`  // rooms.created_at
	UpdatedAt  time.Time `json:"updated_at"`  // rooms.updated_at
}
