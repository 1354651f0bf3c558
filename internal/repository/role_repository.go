package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/tts-access-api/internal/model"
)

// RoleRepo reads the role/permission graph: `roles`, `permissions` and the
// `role_permissions` link table.  Roles never inherit from each other.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// GetByName looks a role up by its unique name.
func (r *RoleRepo) GetByName(ctx context.Context, name string) (model.Role, error) {
	return r.getOne(ctx, "SELECT id, name FROM roles WHERE name=? LIMIT 1", name)
}

// GetByID looks a role up by id.
func (r *RoleRepo) GetByID(ctx context.Context, id uint64) (model.Role, error) {
	return r.getOne(ctx, "SELECT id, name FROM roles WHERE id=? LIMIT 1", id)
}

func (r *RoleRepo) getOne(ctx context.Context, q string, arg any) (model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(&role.ID, &role.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Role{}, ErrNotFound
	}
	return role, err
}

// PermissionNames returns the names of every permission linked to roleID,
// sorted.  A role without permissions yields an empty slice.
func (r *RoleRepo) PermissionNames(ctx context.Context, roleID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT p.name FROM role_permissions rp
		   JOIN permissions p ON p.id = rp.permission_id
		  WHERE rp.role_id = ?
		  ORDER BY p.name`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// List returns every role with its permission names, ordered by role id.
func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.id, r.name, p.name
		   FROM roles r
		   LEFT JOIN role_permissions rp ON rp.role_id = r.id
		   LEFT JOIN permissions p ON p.id = rp.permission_id
		  ORDER BY r.id, p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Role
	for rows.Next() {
		var (
			id   uint64
			name string
			perm sql.NullString
		)
		if err := rows.Scan(&id, &name, &perm); err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1].ID != id {
			out = append(out, model.Role{ID: id, Name: name, Permissions: []string{}})
		}
		if perm.Valid {
			last := &out[len(out)-1]
			last.Permissions = append(last.Permissions, perm.String)
		}
	}
	return out, rows.Err()
}
