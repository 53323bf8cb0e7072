package repository

import (
	"context"
	"database/sql"
	"strings"
)

// RadiusRepo is the thin client for the authentication store: a separate
// MySQL database holding the FreeRADIUS-style radcheck (per-username
// check attributes) and radusergroup (username-to-group membership)
// tables.  It carries no business logic.  All multi-row writes for one
// logical operation run inside a transaction local to this store; no
// consistency with the relational store is attempted here.
type RadiusRepo struct {
	db *sql.DB
}

// NewRadiusRepo returns a new RadiusRepo bound to the authentication
// store's database handle.
func NewRadiusRepo(db *sql.DB) *RadiusRepo { return &RadiusRepo{db: db} }

// PasswordAttribute is the radcheck attribute that carries a user's
// secret.  The := operator sets the check value unconditionally.
const (
	PasswordAttribute = "Cleartext-Password"
	AttributeSetOp    = ":="
)

// CheckAttribute mirrors one radcheck row.
type CheckAttribute struct {
	Username  string `json:"username"`
	Attribute string `json:"attribute"`
	Op        string `json:"op"`
	Value     string `json:"value"`
}

// ProvisionBatch writes the check-attribute row and, when groupname is
// non-empty, the group-membership row for every username as one atomic
// batch within this store.  Existing rows keyed by (username, attribute)
// are updated in place, so re-running the same batch is a no-op rather
// than an error.
func (r *RadiusRepo) ProvisionBatch(ctx context.Context, usernames []string, secret, groupname string) error {
	if len(usernames) == 0 {
		return nil
	}
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
	checkQuery := `INSERT INTO radcheck (username, attribute, op, value) VALUES `
	checkArgs := make([]interface{}, 0, len(usernames)*4)
	for i, u := range usernames {
		if i > 0 {
			checkQuery += ","
		}
		checkQuery += "(?, ?, ?, ?)"
		checkArgs = append(checkArgs, u, PasswordAttribute, AttributeSetOp, secret)
	}
	checkQuery += ` ON DUPLICATE KEY UPDATE op = VALUES(op), value = VALUES(value)`
	if _, err := tx.ExecContext(ctx, checkQuery, checkArgs...); err != nil {
		return err
	}
	if groupname != "" {
		// Replace any previous membership so re-provisioning with a new
		// group does not leave two rows per username.
		if err := deleteGroupRowsTx(ctx, tx, usernames); err != nil {
			return err
		}
		groupQuery := `INSERT INTO radusergroup (username, groupname, priority) VALUES `
		groupArgs := make([]interface{}, 0, len(usernames)*3)
		for i, u := range usernames {
			if i > 0 {
				groupQuery += ","
			}
			groupQuery += "(?, ?, 1)"
			groupArgs = append(groupArgs, u, groupname)
		}
		if _, err := tx.ExecContext(ctx, groupQuery, groupArgs...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// UpsertCheckAttribute inserts or updates a single radcheck row keyed by
// (username, attribute).  Staff use this to attach policy attributes
// (session timeouts, bandwidth caps) to an individual account without
// re-provisioning it.
func (r *RadiusRepo) UpsertCheckAttribute(ctx context.Context, attr CheckAttribute) error {
	const q = `INSERT INTO radcheck (username, attribute, op, value) VALUES (?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE op = VALUES(op), value = VALUES(value)`
	_, err := r.db.ExecContext(ctx, q, attr.Username, attr.Attribute, attr.Op, attr.Value)
	return err
}

// ListCheckAttributes returns all radcheck rows for a username, ordered
// by attribute for deterministic output.
func (r *RadiusRepo) ListCheckAttributes(ctx context.Context, username string) ([]CheckAttribute, error) {
	const q = `SELECT username, attribute, op, value FROM radcheck WHERE username = ? ORDER BY attribute`
	rows, err := r.db.QueryContext(ctx, q, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]CheckAttribute, 0)
	for rows.Next() {
		var a CheckAttribute
		if err := rows.Scan(&a.Username, &a.Attribute, &a.Op, &a.Value); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByUsernames removes all radcheck and radusergroup rows for the
// given usernames in one store-local transaction.  Usernames with no
// rows are simply skipped; revocation is idempotent.
func (r *RadiusRepo) DeleteByUsernames(ctx context.Context, usernames []string) error {
	if len(usernames) == 0 {
		return nil
	}
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
	placeholders, args := usernamePlaceholders(usernames)
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM radcheck WHERE username IN (`+placeholders+`)`, args...); err != nil {
		return err
	}
	if err := deleteGroupRowsTx(ctx, tx, usernames); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ExistingUsernames returns the subset of the given usernames that
// already have radcheck rows.  The credential inspection endpoint uses it
// to show which accounts actually exist in the authentication store,
// making drift against the mirror visible.
func (r *RadiusRepo) ExistingUsernames(ctx context.Context, usernames []string) ([]string, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	placeholders, args := usernamePlaceholders(usernames)
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT username FROM radcheck WHERE username IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var existing []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		existing = append(existing, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return existing, nil
}

func deleteGroupRowsTx(ctx context.Context, tx *sql.Tx, usernames []string) error {
	placeholders, args := usernamePlaceholders(usernames)
	_, err := tx.ExecContext(ctx,
		`DELETE FROM radusergroup WHERE username IN (`+placeholders+`)`, args...)
	return err
}

func usernamePlaceholders(usernames []string) (string, []interface{}) {
	placeholders := make([]string, 0, len(usernames))
	args := make([]interface{}, 0, len(usernames))
	for _, u := range usernames {
		placeholders = append(placeholders, "?")
		args = append(args, u)
	}
	return strings.Join(placeholders, ","), args
}
