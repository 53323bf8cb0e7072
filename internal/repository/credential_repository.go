package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/hotel-guest-access/internal/model"
)

// CredentialRepo maintains the relational-store mirror of authentication
// accounts (the credential_accounts table).  The mirror exists for
// listing, audit and cascade deletion; authentication decisions are made
// against the RADIUS-style store, never against this table.
type CredentialRepo struct {
	db *sql.DB
}

// NewCredentialRepo returns a new CredentialRepo bound to the given database.
func NewCredentialRepo(db *sql.DB) *CredentialRepo { return &CredentialRepo{db: db} }

const credentialCols = "username, secret, group_id, owner_customer_id, reservation_id, is_active, created_at"

func scanCredential(row interface{ Scan(...any) error }) (model.CredentialAccount, error) {
	var m model.CredentialAccount
	var group, owner sql.NullString
	var reservation sql.NullInt64
	err := row.Scan(&m.Username, &m.Secret, &group, &owner, &reservation, &m.IsActive, &m.CreatedAt)
	if err != nil {
		return model.CredentialAccount{}, err
	}
	if group.Valid {
		g := group.String
		m.GroupID = &g
	}
	if owner.Valid {
		o := owner.String
		m.OwnerCustomerID = &o
	}
	if reservation.Valid {
		id := uint64(reservation.Int64)
		m.ReservationID = &id
	}
	return m, nil
}

// UpsertBatch mirrors a batch of provisioned accounts in a single
// statement.  Rows keyed by an existing username are overwritten in
// place, so a retried provisioning call refreshes the same rows instead
// of failing; usernames owned by unrelated accounts are rejected by
// TakenByOthers before any write happens.  Passing an empty slice has no
// effect and returns nil.
func (r *CredentialRepo) UpsertBatch(ctx context.Context, accounts []model.CredentialAccount) error {
	if len(accounts) == 0 {
		return nil
	}
	query := `INSERT INTO credential_accounts
	          (username, secret, group_id, owner_customer_id, reservation_id, is_active) VALUES `
	args := make([]interface{}, 0, len(accounts)*6)
	for i, a := range accounts {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, a.Username, a.Secret, a.GroupID, a.OwnerCustomerID, a.ReservationID, a.IsActive)
	}
	query += ` ON DUPLICATE KEY UPDATE
	           secret = VALUES(secret), group_id = VALUES(group_id),
	           owner_customer_id = VALUES(owner_customer_id),
	           reservation_id = VALUES(reservation_id), is_active = VALUES(is_active)`
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// DeleteByUsernames removes mirror rows for the given usernames.  Rows
// that are already absent are not an error; revocation is idempotent.
func (r *CredentialRepo) DeleteByUsernames(ctx context.Context, usernames []string) error {
	if len(usernames) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(usernames))
	args := make([]interface{}, 0, len(usernames))
	for _, u := range usernames {
		placeholders = append(placeholders, "?")
		args = append(args, u)
	}
	query := `DELETE FROM credential_accounts WHERE username IN (` + strings.Join(placeholders, ",") + `)`
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// GetByUsername returns a single mirror row; sql.ErrNoRows when absent.
func (r *CredentialRepo) GetByUsername(ctx context.Context, username string) (model.CredentialAccount, error) {
	const q = `SELECT ` + credentialCols + ` FROM credential_accounts WHERE username = ?`
	return scanCredential(r.db.QueryRowContext(ctx, q, username))
}

// ListByCustomer returns all mirror rows owned by a customer, including
// rows provisioned for the customer's reservations.
func (r *CredentialRepo) ListByCustomer(ctx context.Context, customerID string) ([]model.CredentialAccount, error) {
	const q = `SELECT ` + credentialCols + `
	           FROM credential_accounts
	           WHERE owner_customer_id = ?
	           ORDER BY username`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.CredentialAccount, 0)
	for rows.Next() {
		m, err := scanCredential(rows)
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

// ListByReservation returns the mirror rows provisioned for a reservation.
func (r *CredentialRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.CredentialAccount, error) {
	const q = `SELECT ` + credentialCols + `
	           FROM credential_accounts
	           WHERE reservation_id = ?
	           ORDER BY username`
	rows, err := r.db.QueryContext(ctx, q, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.CredentialAccount, 0)
	for rows.Next() {
		m, err := scanCredential(rows)
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

// OwnedByAnother reports whether a standalone username already belongs to
// a different customer (or to no customer at all, i.e. a reservation
// account).  Re-issuing a customer's own account is allowed.
func (r *CredentialRepo) OwnedByAnother(ctx context.Context, username, customerID string) (bool, error) {
	const q = `SELECT COUNT(*) FROM credential_accounts
	           WHERE username = ? AND (owner_customer_id IS NULL OR owner_customer_id <> ?)`
	var count int
	if err := r.db.QueryRowContext(ctx, q, username, customerID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// TakenByOthers returns the subset of usernames that already exist in the
// mirror but do not belong to the given reservation (zero for standalone
// accounts).  Username generation is deterministic, so a non-empty result
// means an unrelated account would be silently overwritten; the caller
// must refuse to provision.
func (r *CredentialRepo) TakenByOthers(ctx context.Context, usernames []string, reservationID uint64) ([]string, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	placeholders := make([]string, 0, len(usernames))
	args := make([]interface{}, 0, len(usernames)+1)
	for _, u := range usernames {
		placeholders = append(placeholders, "?")
		args = append(args, u)
	}
	query := `SELECT username FROM credential_accounts
	          WHERE username IN (` + strings.Join(placeholders, ",") + `)`
	if reservationID != 0 {
		query += ` AND (reservation_id IS NULL OR reservation_id <> ?)`
		args = append(args, reservationID)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var taken []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		taken = append(taken, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return taken, nil
}
