package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/hotel-guest-access/internal/model"
	"github.com/iliyamo/hotel-guest-access/internal/occupancy"
)

// ReservationRepo provides CRUD operations for reservations.  A
// reservation groups a customer, a room and an occupancy window; it is
// the single source of truth from which the derived customer.is_active
// and room.used caches are recomputed.  All timestamp fields are assumed
// to be stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationCols = `r.id, r.customer_id, r.room_id, ro.room_number, r.guest_count,
	r.check_in, r.check_out, r.status, r.access_group_id, r.provisioning_state,
	r.created_at, r.updated_at`

func scanReservation(row interface{ Scan(...any) error }) (model.Reservation, error) {
	var m model.Reservation
	var group sql.NullString
	err := row.Scan(
		&m.ID, &m.CustomerID, &m.RoomID, &m.RoomNumber, &m.GuestCount,
		&m.CheckIn, &m.CheckOut, &m.Status, &group, &m.ProvisioningState,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return model.Reservation{}, err
	}
	if group.Valid {
		g := group.String
		m.AccessGroupID = &g
	}
	return m, nil
}

// CreateCheckedIn inserts a reservation directly in CHECKED_IN status
// after verifying that the room is free for the requested window.  The
// occupancy check and the insert run in one transaction with the room row
// locked (SELECT ... FOR UPDATE), so two concurrent bookings for the same
// room cannot both observe it as free: the second waits on the lock and
// then fails the overlap check with ErrRoomOccupied.
//
// The generated ID and DB-assigned timestamps are populated on the
// provided record.  Overlap uses inclusive window bounds: windows
// [a1,a2] and [b1,b2] collide when a1 <= b2 and a2 >= b1.
func (r *ReservationRepo) CreateCheckedIn(ctx context.Context, res *model.Reservation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	// Lock the room row to serialize concurrent check-and-insert attempts.
	var roomNumber string
	if err := tx.QueryRowContext(ctx,
		`SELECT room_number FROM rooms WHERE id = ? FOR UPDATE`, res.RoomID,
	).Scan(&roomNumber); err != nil {
		return err
	}
	var overlapping int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations
		 WHERE room_id = ? AND status = ? AND check_in <= ? AND check_out >= ?`,
		res.RoomID, model.ReservationCheckedIn,
		res.CheckOut.UTC().Format("2006-01-02 15:04:05"),
		res.CheckIn.UTC().Format("2006-01-02 15:04:05"),
	).Scan(&overlapping); err != nil {
		return err
	}
	if overlapping > 0 {
		return ErrRoomOccupied
	}
	provisioning := model.ProvisioningNone
	if res.AccessGroupID != nil {
		provisioning = model.ProvisioningPending
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations
		   (customer_id, room_id, guest_count, check_in, check_out, status, access_group_id, provisioning_state)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.CustomerID, res.RoomID, res.GuestCount,
		res.CheckIn.UTC().Format("2006-01-02 15:04:05"),
		res.CheckOut.UTC().Format("2006-01-02 15:04:05"),
		model.ReservationCheckedIn, res.AccessGroupID, provisioning,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	got, err := r.GetByID(ctx, res.ID)
	if err != nil {
		// The insert is committed, so a failed re-read must not report
		// the booking as failed.  Return the written values; the
		// DB-assigned timestamps stay zero until the next read.
		res.RoomNumber = roomNumber
		res.Status = model.ReservationCheckedIn
		res.ProvisioningState = provisioning
		res.CheckIn = res.CheckIn.UTC()
		res.CheckOut = res.CheckOut.UTC()
		return nil
	}
	*res = got
	return nil
}

// GetByID returns a reservation joined with its room number.  When no
// reservation with the specified ID exists, sql.ErrNoRows is returned.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	const q = `SELECT ` + reservationCols + `
	           FROM reservations r
	           JOIN rooms ro ON ro.id = r.room_id
	           WHERE r.id = ?`
	return scanReservation(r.db.QueryRowContext(ctx, q, id))
}

// List returns all reservations, newest first.
func (r *ReservationRepo) List(ctx context.Context) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + `
	           FROM reservations r
	           JOIN rooms ro ON ro.id = r.room_id
	           ORDER BY r.created_at DESC`
	return r.queryReservations(ctx, q)
}

// ListByCustomer returns all reservations for a customer, newest first.
func (r *ReservationRepo) ListByCustomer(ctx context.Context, customerID string) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + `
	           FROM reservations r
	           JOIN rooms ro ON ro.id = r.room_id
	           WHERE r.customer_id = ?
	           ORDER BY r.created_at DESC`
	return r.queryReservations(ctx, q, customerID)
}

// ListByRoom returns all reservations for a room, newest first.
func (r *ReservationRepo) ListByRoom(ctx context.Context, roomID uint64) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + `
	           FROM reservations r
	           JOIN rooms ro ON ro.id = r.room_id
	           WHERE r.room_id = ?
	           ORDER BY r.created_at DESC`
	return r.queryReservations(ctx, q, roomID)
}

func (r *ReservationRepo) queryReservations(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		m, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListWindowsForRoom returns the occupancy windows of all reservations on
// a room.  The reconciler evaluates these against the current time.
func (r *ReservationRepo) ListWindowsForRoom(ctx context.Context, roomID uint64) ([]occupancy.Window, error) {
	const q = `SELECT status, check_in, check_out FROM reservations WHERE room_id = ?`
	return r.queryWindows(ctx, q, roomID)
}

// ListWindowsForCustomer returns the occupancy windows of all
// reservations belonging to a customer.
func (r *ReservationRepo) ListWindowsForCustomer(ctx context.Context, customerID string) ([]occupancy.Window, error) {
	const q = `SELECT status, check_in, check_out FROM reservations WHERE customer_id = ?`
	return r.queryWindows(ctx, q, customerID)
}

func (r *ReservationRepo) queryWindows(ctx context.Context, q string, arg any) ([]occupancy.Window, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var windows []occupancy.Window
	for rows.Next() {
		var w occupancy.Window
		if err := rows.Scan(&w.Status, &w.CheckIn, &w.CheckOut); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return windows, nil
}

// ListExpiredCheckedIn returns reservations that are still CHECKED_IN even
// though their window elapsed before the given instant.  The sweep
// processes each of these independently.
func (r *ReservationRepo) ListExpiredCheckedIn(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + `
	           FROM reservations r
	           JOIN rooms ro ON ro.id = r.room_id
	           WHERE r.status = ? AND r.check_out < ?`
	return r.queryReservations(ctx, q, model.ReservationCheckedIn,
		now.UTC().Format("2006-01-02 15:04:05"))
}

// TransitionStatus moves a reservation from one status to another with a
// conditional update and reports whether the transition happened.  A
// reservation already out of the from-status simply yields false, which
// makes the sweep idempotent and safe to run concurrently with itself.
func (r *ReservationRepo) TransitionStatus(ctx context.Context, id uint64, from, to string) (bool, error) {
	const q = `UPDATE reservations SET status = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetProvisioningState records the outcome of the credential-provisioning
// leg on the reservation so that drift between the two stores stays
// observable instead of being silently discarded.
func (r *ReservationRepo) SetProvisioningState(ctx context.Context, id uint64, state string) error {
	const q = `UPDATE reservations SET provisioning_state = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, strings.ToUpper(state), id)
	return err
}
