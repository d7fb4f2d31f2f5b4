package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/brikvest/apiserver/types"
)

// RBACRepository handles roles, permissions, and user-role assignments.
type RBACRepository struct {
	db *sql.DB
}

func NewRBACRepository(db *sql.DB) *RBACRepository {
	return &RBACRepository{db: db}
}

func (r *RBACRepository) GetRoleByName(ctx context.Context, name string) (types.Role, error) {
	const query = `
		SELECT id, name, description, created_at
		FROM roles
		WHERE name = $1`
	var role types.Role
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&role.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Role{}, ErrNotFound
		}
		return types.Role{}, err
	}
	return role, nil
}

// UserRoles returns the names of all roles assigned to a user.
func (r *RBACRepository) UserRoles(ctx context.Context, userID int) ([]string, error) {
	const query = `
		SELECT r.name
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// UserPermissions flattens the user's roles to a unique permission set.
// DISTINCT makes the union explicit: a key granted by several roles
// appears once.
func (r *RBACRepository) UserPermissions(ctx context.Context, userID int) ([]string, error) {
	const query = `
		SELECT DISTINCT p.key
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1
		ORDER BY p.key`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// AssignRole adds a role to a user. Assigning an already-held role is
// a no-op.
func (r *RBACRepository) AssignRole(ctx context.Context, userID int, roleName string) error {
	const query = `
		INSERT INTO user_roles (user_id, role_id, created_at)
		SELECT $1, id, now() FROM roles WHERE name = $2
		ON CONFLICT (user_id, role_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, userID, roleName)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the role name does not exist or the assignment already
		// held; distinguish by checking the role.
		if _, roleErr := r.GetRoleByName(ctx, roleName); roleErr != nil {
			return roleErr
		}
	}
	return nil
}

func (r *RBACRepository) RemoveRole(ctx context.Context, userID int, roleName string) error {
	const query = `
		DELETE FROM user_roles
		WHERE user_id = $1
		AND role_id = (SELECT id FROM roles WHERE name = $2)`
	result, err := r.db.ExecContext(ctx, query, userID, roleName)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
