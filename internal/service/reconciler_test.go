package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-guest-access/internal/model"
	"github.com/iliyamo/hotel-guest-access/internal/queue"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
}

func testReconciler(rooms *fakeRooms, customers *fakeCustomers, reservations *fakeReservations, revoker Revoker, notifier Notifier) *Reconciler {
	r := NewReconciler(rooms, customers, reservations, revoker, notifier)
	r.now = fixedNow
	return r
}

func TestReconcileRoomFlipsToUsed(t *testing.T) {
	now := fixedNow()
	rooms := newFakeRooms(&model.Room{ID: 1, RoomNumber: "101", Used: false})
	customers := newFakeCustomers()
	reservations := newFakeReservations(&model.Reservation{
		ID: 1, RoomID: 1, CustomerID: "c1", Status: model.ReservationCheckedIn,
		CheckIn: now.Add(-time.Hour), CheckOut: now.Add(time.Hour),
	})
	notifier := &fakeNotifier{}
	r := testReconciler(rooms, customers, reservations, &fakeRevoker{}, notifier)

	room, err := r.ReconcileRoom(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, room.Used)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "room", notifier.events[0].kind)
	assert.Equal(t, queue.ChangeStatus, notifier.events[0].change)
	assert.True(t, notifier.events[0].state)

	// Second pass finds the flag already correct: no write, no event.
	_, err = r.ReconcileRoom(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, notifier.events, 1)
}

func TestReconcileCustomerStaysActiveAcrossOverlappingStays(t *testing.T) {
	now := fixedNow()
	rooms := newFakeRooms()
	customers := newFakeCustomers(&model.Customer{ID: "c1", IsActive: true})
	// One stay just ended, a second is in progress.  The customer must
	// stay active and no event may fire.
	reservations := newFakeReservations(
		&model.Reservation{ID: 1, CustomerID: "c1", RoomID: 1, Status: model.ReservationCheckedOut,
			CheckIn: now.Add(-48 * time.Hour), CheckOut: now.Add(-time.Hour)},
		&model.Reservation{ID: 2, CustomerID: "c1", RoomID: 2, Status: model.ReservationCheckedIn,
			CheckIn: now.Add(-time.Hour), CheckOut: now.Add(24 * time.Hour)},
	)
	notifier := &fakeNotifier{}
	r := testReconciler(rooms, customers, reservations, &fakeRevoker{}, notifier)

	customer, err := r.ReconcileCustomer(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, customer.IsActive)
	assert.Empty(t, notifier.events)
}

func TestReconcileCustomerDeactivatesWhenAllWindowsElapsed(t *testing.T) {
	now := fixedNow()
	customers := newFakeCustomers(&model.Customer{ID: "c1", IsActive: true})
	reservations := newFakeReservations(&model.Reservation{
		ID: 1, CustomerID: "c1", RoomID: 1, Status: model.ReservationCheckedOut,
		CheckIn: now.Add(-48 * time.Hour), CheckOut: now.Add(-time.Hour),
	})
	notifier := &fakeNotifier{}
	r := testReconciler(newFakeRooms(), customers, reservations, &fakeRevoker{}, notifier)

	customer, err := r.ReconcileCustomer(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, customer.IsActive)
	require.Len(t, notifier.events, 1)
	assert.False(t, notifier.events[0].state)
}

func TestSweepExpiredReservations(t *testing.T) {
	now := fixedNow()
	group := "g1"
	rooms := newFakeRooms(&model.Room{ID: 1, RoomNumber: "101", Used: true})
	customers := newFakeCustomers(&model.Customer{ID: "c1", IsActive: true})
	reservations := newFakeReservations(&model.Reservation{
		ID: 1, CustomerID: "c1", RoomID: 1, RoomNumber: "101", GuestCount: 2,
		Status: model.ReservationCheckedIn, AccessGroupID: &group,
		ProvisioningState: model.ProvisioningOK,
		CheckIn:           now.Add(-48 * time.Hour), CheckOut: now.Add(-time.Hour),
	})
	revoker := &fakeRevoker{}
	notifier := &fakeNotifier{}
	r := testReconciler(rooms, customers, reservations, revoker, notifier)

	stats, err := r.SweepExpiredReservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepStats{Examined: 1, CheckedOut: 1, Revoked: 1}, stats)

	require.Len(t, revoker.revoked, 1)
	assert.Equal(t, []string{"R101-1", "R101-2"}, revoker.revoked[0])
	assert.Equal(t, model.ReservationCheckedOut, reservations.reservations[1].Status)
	assert.False(t, rooms.rooms[1].Used)
	assert.False(t, customers.customers["c1"].IsActive)

	// A second sweep finds nothing expired and revokes nothing again.
	stats, err = r.SweepExpiredReservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepStats{}, stats)
	assert.Len(t, revoker.revoked, 1)
}

func TestSweepSkipsRevocationWithoutAccessGroup(t *testing.T) {
	now := fixedNow()
	rooms := newFakeRooms(&model.Room{ID: 1, RoomNumber: "101", Used: true})
	customers := newFakeCustomers(&model.Customer{ID: "c1", IsActive: true})
	reservations := newFakeReservations(&model.Reservation{
		ID: 1, CustomerID: "c1", RoomID: 1, RoomNumber: "101", GuestCount: 1,
		Status:            model.ReservationCheckedIn,
		ProvisioningState: model.ProvisioningNone,
		CheckIn:           now.Add(-48 * time.Hour), CheckOut: now.Add(-time.Hour),
	})
	revoker := &fakeRevoker{}
	r := testReconciler(rooms, customers, reservations, revoker, &fakeNotifier{})

	stats, err := r.SweepExpiredReservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepStats{Examined: 1, CheckedOut: 1}, stats)
	assert.Empty(t, revoker.revoked)
}

func TestSweepContinuesPastRevocationFailure(t *testing.T) {
	now := fixedNow()
	group := "g1"
	rooms := newFakeRooms(&model.Room{ID: 1, RoomNumber: "101", Used: true})
	customers := newFakeCustomers(&model.Customer{ID: "c1", IsActive: true})
	reservations := newFakeReservations(&model.Reservation{
		ID: 1, CustomerID: "c1", RoomID: 1, RoomNumber: "101", GuestCount: 1,
		Status: model.ReservationCheckedIn, AccessGroupID: &group,
		ProvisioningState: model.ProvisioningOK,
		CheckIn:           now.Add(-48 * time.Hour), CheckOut: now.Add(-time.Hour),
	})
	revoker := &fakeRevoker{err: assert.AnError}
	r := testReconciler(rooms, customers, reservations, revoker, &fakeNotifier{})

	// Occupancy ending is never blocked by an authentication-store
	// outage: the reservation still transitions.
	stats, err := r.SweepExpiredReservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepStats{Examined: 1, CheckedOut: 1, Revoked: 0}, stats)
	assert.Equal(t, model.ReservationCheckedOut, reservations.reservations[1].Status)
	assert.False(t, rooms.rooms[1].Used)
}
