package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/luke-anto/ledgerdesk/internal/core"
)

// CreateUser inserts a user and their tenant memberships.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (int64, error) {
	if err := u.Validate(); err != nil {
		return 0, fmt.Errorf("validate user: %w", err)
	}

	var id int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (email, password_hash, name, role) VALUES (?, ?, ?, ?)`,
			u.Email, u.PasswordHash, u.Name, string(u.Role))
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("user id: %w", err)
		}
		for _, tenantID := range u.TenantIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_tenants (user_id, tenant_id) VALUES (?, ?)`, id, tenantID); err != nil {
				return fmt.Errorf("insert membership: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetUserByEmail loads a user and their tenant memberships for login.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var (
		u         core.User
		role      string
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, role, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("select user: %w", err)
	}
	u.Role = core.UserRole(role)
	u.CreatedAt = parseTime(createdAt)

	ids, err := r.userTenantIDs(ctx, u.ID)
	if err != nil {
		return core.User{}, err
	}
	u.TenantIDs = ids
	return u, nil
}

// GetUser loads a user by ID, memberships included.
func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var (
		u         core.User
		role      string
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, role, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("select user: %w", err)
	}
	u.Role = core.UserRole(role)
	u.CreatedAt = parseTime(createdAt)

	ids, err := r.userTenantIDs(ctx, u.ID)
	if err != nil {
		return core.User{}, err
	}
	u.TenantIDs = ids
	return u, nil
}

func (r *SQLiteRepository) userTenantIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tenant_id FROM user_tenants WHERE user_id = ? ORDER BY tenant_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("select memberships: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddUserToTenant grants a user membership of a tenant.
func (r *SQLiteRepository) AddUserToTenant(ctx context.Context, userID, tenantID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_tenants (user_id, tenant_id) VALUES (?, ?)`, userID, tenantID)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}
