package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/hotel-guest-access/internal/model"
)

// AccessGroupRepo provides read/write access to the access_groups table.
// Access groups name the bandwidth/session policies configured on the
// RADIUS side (radgroupreply et al.); this service only selects them by
// ID when provisioning.
type AccessGroupRepo struct {
	db *sql.DB
}

// NewAccessGroupRepo returns a new AccessGroupRepo bound to the given database.
func NewAccessGroupRepo(db *sql.DB) *AccessGroupRepo { return &AccessGroupRepo{db: db} }

// Create inserts an access group.  Duplicate IDs return ErrConflict.
func (r *AccessGroupRepo) Create(ctx context.Context, g *model.AccessGroup) error {
	const q = `INSERT INTO access_groups (id, name, description) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, g.ID, g.Name, g.Description); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	return nil
}

// GetByID returns a single access group; sql.ErrNoRows when absent.
func (r *AccessGroupRepo) GetByID(ctx context.Context, id string) (model.AccessGroup, error) {
	const q = `SELECT id, name, description FROM access_groups WHERE id = ?`
	var g model.AccessGroup
	err := r.db.QueryRowContext(ctx, q, id).Scan(&g.ID, &g.Name, &g.Description)
	return g, err
}

// List returns all access groups ordered by name.
func (r *AccessGroupRepo) List(ctx context.Context) ([]model.AccessGroup, error) {
	const q = `SELECT id, name, description FROM access_groups ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	groups := make([]model.AccessGroup, 0)
	for rows.Next() {
		var g model.AccessGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Description); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}
