package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/hotel-guest-access/internal/model"
)

// RoomRepo provides CRUD operations for physical rooms.  The used flag is
// a derived occupancy cache maintained by the reconciler; nothing in this
// repository derives it.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo returns a new RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// ErrRoomNumberExists is returned when creating a room whose number is
// already taken.  Handlers should translate this into an HTTP 409.
var ErrRoomNumberExists = ErrConflict

const roomCols = "id, room_number, used, created_at, updated_at"

func scanRoom(row interface{ Scan(...any) error }) (model.Room, error) {
	var m model.Room
	err := row.Scan(&m.ID, &m.RoomNumber, &m.Used, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// Create inserts a new room and populates the generated ID and timestamps
// on the provided record.  Room numbers are unique; inserting a duplicate
// returns ErrRoomNumberExists.
func (r *RoomRepo) Create(ctx context.Context, room *model.Room) error {
	const q = `INSERT INTO rooms (room_number, used) VALUES (?, FALSE)`
	res, err := r.db.ExecContext(ctx, q, room.RoomNumber)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrRoomNumberExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	const sel = `SELECT ` + roomCols + ` FROM rooms WHERE id = ?`
	got, err := scanRoom(r.db.QueryRowContext(ctx, sel, uint64(id)))
	if err != nil {
		return err
	}
	*room = got
	return nil
}

// GetByID returns a single room; sql.ErrNoRows when absent.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (model.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms WHERE id = ?`
	return scanRoom(r.db.QueryRowContext(ctx, q, id))
}

// GetByNumber returns the room with the given unique number.
func (r *RoomRepo) GetByNumber(ctx context.Context, number string) (model.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms WHERE room_number = ?`
	return scanRoom(r.db.QueryRowContext(ctx, q, number))
}

// List returns all rooms ordered by room number.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms ORDER BY room_number`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rooms := make([]model.Room, 0)
	for rows.Next() {
		m, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rooms, nil
}

// SetUsed writes the derived occupancy flag only when it differs from the
// stored value and reports whether a row changed.  Setting the same value
// twice is a no-op, which keeps concurrent reconciliation passes safe.
func (r *RoomRepo) SetUsed(ctx context.Context, id uint64, used bool) (bool, error) {
	const q = `UPDATE rooms SET used = ? WHERE id = ? AND used <> ?`
	res, err := r.db.ExecContext(ctx, q, used, id, used)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes a room that has no reservations.  When reservations
// still reference the room, ErrConflict is returned and nothing changes.
// The check and the delete run in one transaction with the room row
// locked, so a booking started between them waits on the lock and then
// sees the room gone instead of orphaning its reservation.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
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
	var locked uint64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id = ? FOR UPDATE`, id).Scan(&locked); err != nil {
		return err
	}
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE room_id = ?`, id).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
