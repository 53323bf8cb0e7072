// Package queue defines message payloads exchanged over the message broker.
package queue

import "github.com/iliyamo/hotel-guest-access/internal/model"

// Queue names for occupancy change events.  Downstream consumers (captive
// portal, staff dashboard push) subscribe to these to learn about state
// flips without polling the primary database.
const (
	RoomChangedQueue     = "room.changed"
	CustomerChangedQueue = "customer.changed"
)

// Change discriminators carried in every event.  ChangeStatus marks a
// flip of the derived occupancy flag; ChangeUpdate marks a general edit
// of the record (contact details, room number).
const (
	ChangeStatus = "status"
	ChangeUpdate = "update"
)

// RoomChangedEvent is published when a room record changes.  It carries
// the full updated record so consumers need not query the primary store.
type RoomChangedEvent struct {
	Change     string     `json:"change"`
	Room       model.Room `json:"room"`
	OccurredAt string     `json:"occurred_at"`
}

// CustomerChangedEvent is published when a customer record changes.
type CustomerChangedEvent struct {
	Change     string         `json:"change"`
	Customer   model.Customer `json:"customer"`
	OccurredAt string         `json:"occurred_at"`
}
