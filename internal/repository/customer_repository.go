package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/hotel-guest-access/internal/model"
)

// CustomerRepo provides CRUD operations for hotel guests.  Customers own
// reservations and credential accounts; deletion cascades through both.
// All timestamp fields are assumed to be stored in UTC.
type CustomerRepo struct {
	db *sql.DB
}

// NewCustomerRepo returns a new CustomerRepo bound to the given database.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span multiple repositories on the same database.
func (r *CustomerRepo) DB() *sql.DB { return r.db }

const customerCols = "id, full_name, email, phone, is_active, created_at, updated_at"

func scanCustomer(row interface{ Scan(...any) error }) (model.Customer, error) {
	var c model.Customer
	var email, phone sql.NullString
	err := row.Scan(&c.ID, &c.FullName, &email, &phone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Customer{}, err
	}
	if email.Valid {
		v := email.String
		c.Email = &v
	}
	if phone.Valid {
		v := phone.String
		c.Phone = &v
	}
	return c, nil
}

// Create inserts a new customer row.  The caller supplies the UUID and has
// already validated the contact rule (at least one of email/phone).  The
// is_active cache starts false; the reconciler flips it once a live
// reservation exists.
func (r *CustomerRepo) Create(ctx context.Context, c *model.Customer) error {
	const q = `INSERT INTO customers (id, full_name, email, phone, is_active) VALUES (?, ?, ?, ?, FALSE)`
	if _, err := r.db.ExecContext(ctx, q, c.ID, c.FullName, c.Email, c.Phone); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	const sel = `SELECT ` + customerCols + ` FROM customers WHERE id = ?`
	got, err := scanCustomer(r.db.QueryRowContext(ctx, sel, c.ID))
	if err != nil {
		return err
	}
	*c = got
	return nil
}

// GetByID returns a single customer.  When no customer with the specified
// ID exists, sql.ErrNoRows is returned.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (model.Customer, error) {
	const q = `SELECT ` + customerCols + ` FROM customers WHERE id = ?`
	return scanCustomer(r.db.QueryRowContext(ctx, q, id))
}

// List returns all customers ordered by creation time descending.
func (r *CustomerRepo) List(ctx context.Context) ([]model.Customer, error) {
	const q = `SELECT ` + customerCols + ` FROM customers ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	customers := make([]model.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

// SetActive writes the derived occupancy flag, but only when it actually
// differs from the stored value.  It reports whether a row changed, which
// lets the reconciler emit change events exactly once even when invoked
// concurrently: the second writer sees zero affected rows and stays quiet.
func (r *CustomerRepo) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	const q = `UPDATE customers SET is_active = ? WHERE id = ? AND is_active <> ?`
	res, err := r.db.ExecContext(ctx, q, active, id, active)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Update rewrites a customer's name and contact fields.  The caller has
// already validated the contact rule.  Returns sql.ErrNoRows when the
// customer does not exist.
func (r *CustomerRepo) Update(ctx context.Context, c *model.Customer) error {
	const q = `UPDATE customers SET full_name = ?, email = ?, phone = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, c.FullName, c.Email, c.Phone, c.ID)
	if err != nil {
		return err
	}
	if _, err := res.RowsAffected(); err != nil {
		return err
	}
	const sel = `SELECT ` + customerCols + ` FROM customers WHERE id = ?`
	got, err := scanCustomer(r.db.QueryRowContext(ctx, sel, c.ID))
	if err != nil {
		return err
	}
	*c = got
	return nil
}

// DeleteCascadeTx removes a customer together with its reservations and
// credential-account mirror rows inside the provided transaction.  The
// caller revokes the authentication-store rows beforehand (that store has
// no transactional relationship with this one) and commits or rolls back
// the transaction.  Returns sql.ErrNoRows when the customer does not exist.
func (r *CustomerRepo) DeleteCascadeTx(ctx context.Context, tx *sql.Tx, id string) error {
	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM customers WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM credential_accounts WHERE owner_customer_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE customer_id = ?`, id); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	return err
}
