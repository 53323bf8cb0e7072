package service

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/hotel-guest-access/internal/model"
	"github.com/iliyamo/hotel-guest-access/internal/occupancy"
	"github.com/iliyamo/hotel-guest-access/internal/queue"
	"github.com/iliyamo/hotel-guest-access/internal/utils"
)

// RoomStore is the slice of room persistence the reconciler needs.
// Implemented by repository.RoomRepo.
type RoomStore interface {
	List(ctx context.Context) ([]model.Room, error)
	GetByID(ctx context.Context, id uint64) (model.Room, error)
	SetUsed(ctx context.Context, id uint64, used bool) (bool, error)
}

// CustomerStore is the slice of customer persistence the reconciler
// needs.  Implemented by repository.CustomerRepo.
type CustomerStore interface {
	List(ctx context.Context) ([]model.Customer, error)
	GetByID(ctx context.Context, id string) (model.Customer, error)
	SetActive(ctx context.Context, id string, active bool) (bool, error)
}

// ReservationSource supplies the reservation data the reconciler derives
// state from.  Implemented by repository.ReservationRepo.
type ReservationSource interface {
	ListWindowsForRoom(ctx context.Context, roomID uint64) ([]occupancy.Window, error)
	ListWindowsForCustomer(ctx context.Context, customerID string) ([]occupancy.Window, error)
	ListExpiredCheckedIn(ctx context.Context, now time.Time) ([]model.Reservation, error)
	TransitionStatus(ctx context.Context, id uint64, from, to string) (bool, error)
}

// Revoker revokes credential accounts by username.  Implemented by
// Provisioner.
type Revoker interface {
	RevokeByUsernames(ctx context.Context, usernames []string) error
}

// Notifier receives change events for broadcast.  Transport semantics are
// out of scope here; implementations must not block reconciliation.
type Notifier interface {
	RoomChanged(ctx context.Context, room model.Room, change string)
	CustomerChanged(ctx context.Context, customer model.Customer, change string)
}

// SweepStats summarizes one sweep pass.
type SweepStats struct {
	Examined   int `json:"examined"`    // expired CHECKED_IN reservations found
	CheckedOut int `json:"checked_out"` // reservations this pass transitioned
	Revoked    int `json:"revoked"`     // reservations whose credentials were revoked cleanly
}

// Reconciler recomputes the derived customer.is_active and room.used
// caches from reservation windows and corrects any stored value that
// disagrees.  One shared implementation backs both triggers: the
// read path (every list/detail request reconciles what it returns, so
// responses are self-consistent even when the timer has not fired
// recently) and the periodic/on-demand sweep.
//
// The reconciler holds no in-process lock across store calls.
// Correctness comes from fetching the reservation set fresh immediately
// before each write and from the writes themselves being conditional and
// idempotent: a flip that has been superseded or already applied affects
// zero rows and emits no event.
type Reconciler struct {
	rooms        RoomStore
	customers    CustomerStore
	reservations ReservationSource
	revoker      Revoker
	notifier     Notifier
	now          func() time.Time
}

// NewReconciler constructs a Reconciler.  All dependencies must be
// non-nil.
func NewReconciler(rooms RoomStore, customers CustomerStore, reservations ReservationSource, revoker Revoker, notifier Notifier) *Reconciler {
	if rooms == nil || customers == nil || reservations == nil || revoker == nil || notifier == nil {
		panic("nil dependency passed to NewReconciler")
	}
	return &Reconciler{
		rooms:        rooms,
		customers:    customers,
		reservations: reservations,
		revoker:      revoker,
		notifier:     notifier,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ReconcileRooms recomputes and corrects the used flag of every room and
// returns the corrected records.
func (r *Reconciler) ReconcileRooms(ctx context.Context) ([]model.Room, error) {
	rooms, err := r.rooms.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		if err := r.reconcileRoom(ctx, &rooms[i]); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

// ReconcileRoom recomputes and corrects a single room's used flag.
func (r *Reconciler) ReconcileRoom(ctx context.Context, id uint64) (model.Room, error) {
	room, err := r.rooms.GetByID(ctx, id)
	if err != nil {
		return model.Room{}, err
	}
	if err := r.reconcileRoom(ctx, &room); err != nil {
		return model.Room{}, err
	}
	return room, nil
}

func (r *Reconciler) reconcileRoom(ctx context.Context, room *model.Room) error {
	windows, err := r.reservations.ListWindowsForRoom(ctx, room.ID)
	if err != nil {
		return err
	}
	active := occupancy.Active(r.now(), windows)
	if active == room.Used {
		return nil
	}
	changed, err := r.rooms.SetUsed(ctx, room.ID, active)
	if err != nil {
		return err
	}
	room.Used = active
	if changed {
		r.notifier.RoomChanged(ctx, *room, queue.ChangeStatus)
	}
	return nil
}

// ReconcileCustomers recomputes and corrects the is_active flag of every
// customer and returns the corrected records.
func (r *Reconciler) ReconcileCustomers(ctx context.Context) ([]model.Customer, error) {
	customers, err := r.customers.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range customers {
		if err := r.reconcileCustomer(ctx, &customers[i]); err != nil {
			return nil, err
		}
	}
	return customers, nil
}

// ReconcileCustomer recomputes and corrects a single customer's
// is_active flag.
func (r *Reconciler) ReconcileCustomer(ctx context.Context, id string) (model.Customer, error) {
	customer, err := r.customers.GetByID(ctx, id)
	if err != nil {
		return model.Customer{}, err
	}
	if err := r.reconcileCustomer(ctx, &customer); err != nil {
		return model.Customer{}, err
	}
	return customer, nil
}

func (r *Reconciler) reconcileCustomer(ctx context.Context, customer *model.Customer) error {
	windows, err := r.reservations.ListWindowsForCustomer(ctx, customer.ID)
	if err != nil {
		return err
	}
	active := occupancy.Active(r.now(), windows)
	if active == customer.IsActive {
		return nil
	}
	changed, err := r.customers.SetActive(ctx, customer.ID, active)
	if err != nil {
		return err
	}
	customer.IsActive = active
	if changed {
		r.notifier.CustomerChanged(ctx, *customer, queue.ChangeStatus)
	}
	return nil
}

// SweepExpiredReservations finds reservations whose window has elapsed
// while still CHECKED_IN and, for each one independently: revokes its
// deterministically derived usernames, force-transitions it to
// CHECKED_OUT, and re-evaluates the affected customer and room.  The
// transition happens regardless of whether revocation succeeded, because
// occupancy ending must never be blocked by an authentication-store
// outage.  One reservation's failure never aborts the sweep for the
// others, and a reservation another sweep already transitioned is simply
// skipped, so the pass is safe to run repeatedly and concurrently with
// itself.
func (r *Reconciler) SweepExpiredReservations(ctx context.Context) (SweepStats, error) {
	expired, err := r.reservations.ListExpiredCheckedIn(ctx, r.now())
	if err != nil {
		return SweepStats{}, err
	}
	stats := SweepStats{Examined: len(expired)}
	for _, res := range expired {
		if res.AccessGroupID != nil && res.ProvisioningState != model.ProvisioningNone {
			usernames := utils.ReservationUsernames(res.RoomNumber, res.GuestCount)
			if err := r.revoker.RevokeByUsernames(ctx, usernames); err != nil {
				log.Printf("sweep: revoke for reservation %d failed: %v", res.ID, err)
			} else {
				stats.Revoked++
			}
		}
		moved, err := r.reservations.TransitionStatus(ctx, res.ID,
			model.ReservationCheckedIn, model.ReservationCheckedOut)
		if err != nil {
			log.Printf("sweep: transition for reservation %d failed: %v", res.ID, err)
			continue
		}
		if !moved {
			continue // a concurrent sweep got there first
		}
		stats.CheckedOut++
		if _, err := r.ReconcileCustomer(ctx, res.CustomerID); err != nil {
			log.Printf("sweep: reconcile customer %s failed: %v", res.CustomerID, err)
		}
		if _, err := r.ReconcileRoom(ctx, res.RoomID); err != nil {
			log.Printf("sweep: reconcile room %d failed: %v", res.RoomID, err)
		}
	}
	return stats, nil
}

// RunSweeper drives the periodic sweep until the context is cancelled.
// The interval is on the order of tens of seconds; the read-triggered
// path bounds staleness between ticks.
func (r *Reconciler) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Bound each pass so a wedged store cannot stall the loop.
			passCtx, cancel := context.WithTimeout(ctx, interval)
			stats, err := r.SweepExpiredReservations(passCtx)
			cancel()
			if err != nil {
				log.Printf("sweep: pass failed: %v", err)
				continue
			}
			if stats.CheckedOut > 0 {
				log.Printf("sweep: checked out %d of %d expired reservations", stats.CheckedOut, stats.Examined)
			}
		}
	}
}
