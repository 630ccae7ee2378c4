package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/luke-anto/ledgerdesk/internal/core"
)

// CreateTenant inserts a tenant, assigning its public ID.
func (r *SQLiteRepository) CreateTenant(ctx context.Context, t core.Tenant) (core.Tenant, error) {
	if err := t.Validate(); err != nil {
		return core.Tenant{}, fmt.Errorf("validate tenant: %w", err)
	}
	if t.PublicID == "" {
		t.PublicID = uuid.NewString()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (public_id, name, legal_name, contact_email, billing_rate_cents, tier, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.PublicID, t.Name, t.LegalName, t.ContactEmail, t.BillingRateCents, string(t.Tier), boolToInt(t.Active))
	if err != nil {
		return core.Tenant{}, fmt.Errorf("insert tenant: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return core.Tenant{}, fmt.Errorf("tenant id: %w", err)
	}

	slog.InfoContext(ctx, "Tenant created", "tenant_id", t.ID, "name", t.Name, "tier", t.Tier)
	return t, nil
}

// GetTenant loads one tenant by internal ID.
func (r *SQLiteRepository) GetTenant(ctx context.Context, id int64) (core.Tenant, error) {
	return r.scanTenant(r.db.QueryRowContext(ctx,
		`SELECT id, public_id, name, legal_name, contact_email, billing_rate_cents, tier, active, created_at
		 FROM tenants WHERE id = ?`, id))
}

func (r *SQLiteRepository) scanTenant(row *sql.Row) (core.Tenant, error) {
	var (
		t         core.Tenant
		tier      string
		active    int
		createdAt string
	)
	err := row.Scan(&t.ID, &t.PublicID, &t.Name, &t.LegalName, &t.ContactEmail,
		&t.BillingRateCents, &tier, &active, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Tenant{}, ErrNotFound
	}
	if err != nil {
		return core.Tenant{}, fmt.Errorf("scan tenant: %w", err)
	}
	t.Tier = core.ServiceTier(tier)
	t.Active = active != 0
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

// ListTenants returns tenants visible to the user: all of them for admins,
// memberships only for staff.
func (r *SQLiteRepository) ListTenants(ctx context.Context, user core.User) ([]core.Tenant, error) {
	query := `SELECT id, public_id, name, legal_name, contact_email, billing_rate_cents, tier, active, created_at
	          FROM tenants ORDER BY name`
	args := []any{}
	if user.Role != core.RoleAdmin {
		query = `SELECT t.id, t.public_id, t.name, t.legal_name, t.contact_email, t.billing_rate_cents, t.tier, t.active, t.created_at
		         FROM tenants t
		         JOIN user_tenants ut ON ut.tenant_id = t.id AND ut.user_id = ?
		         ORDER BY t.name`
		args = append(args, user.ID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select tenants: %w", err)
	}
	defer rows.Close()

	var tenants []core.Tenant
	for rows.Next() {
		var (
			t         core.Tenant
			tier      string
			active    int
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.PublicID, &t.Name, &t.LegalName, &t.ContactEmail,
			&t.BillingRateCents, &tier, &active, &createdAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		t.Tier = core.ServiceTier(tier)
		t.Active = active != 0
		t.CreatedAt = parseTime(createdAt)
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// ListActiveTenants returns every active tenant. Used by the cycle opener.
func (r *SQLiteRepository) ListActiveTenants(ctx context.Context) ([]core.Tenant, error) {
	admin := core.User{Role: core.RoleAdmin}
	tenants, err := r.ListTenants(ctx, admin)
	if err != nil {
		return nil, err
	}
	active := tenants[:0]
	for _, t := range tenants {
		if t.Active {
			active = append(active, t)
		}
	}
	return active, nil
}

// UpdateTenant rewrites the mutable tenant fields.
func (r *SQLiteRepository) UpdateTenant(ctx context.Context, t core.Tenant) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate tenant: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET name = ?, legal_name = ?, contact_email = ?, billing_rate_cents = ?, tier = ?, active = ?
		 WHERE id = ?`,
		t.Name, t.LegalName, t.ContactEmail, t.BillingRateCents, string(t.Tier), boolToInt(t.Active), t.ID)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateTaskTemplate adds a checklist template row for a tenant.
func (r *SQLiteRepository) CreateTaskTemplate(ctx context.Context, tpl core.TaskTemplate) (int64, error) {
	if err := tpl.Validate(); err != nil {
		return 0, fmt.Errorf("validate template: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO task_templates (tenant_id, name, stage, sort_order) VALUES (?, ?, ?, ?)`,
		tpl.TenantID, tpl.Name, string(tpl.Stage), tpl.SortOrder)
	if err != nil {
		return 0, fmt.Errorf("insert template: %w", err)
	}
	return res.LastInsertId()
}

// ListTaskTemplates returns a tenant's checklist templates in display order.
func (r *SQLiteRepository) ListTaskTemplates(ctx context.Context, tenantID int64) ([]core.TaskTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, stage, sort_order FROM task_templates
		 WHERE tenant_id = ? ORDER BY sort_order, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("select templates: %w", err)
	}
	defer rows.Close()

	var templates []core.TaskTemplate
	for rows.Next() {
		var (
			tpl   core.TaskTemplate
			stage string
		)
		if err := rows.Scan(&tpl.ID, &tpl.TenantID, &tpl.Name, &stage, &tpl.SortOrder); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		tpl.Stage = core.CycleStatus(stage)
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

// DeleteTaskTemplate removes a template within the tenant scope.
func (r *SQLiteRepository) DeleteTaskTemplate(ctx context.Context, tenantID, templateID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM task_templates WHERE id = ? AND tenant_id = ?`, templateID, tenantID)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
