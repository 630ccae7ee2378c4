package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/luke-anto/ledgerdesk/internal/core"
)

// ErrDuplicateSubmission is returned when a lead with the same webhook
// submission ID was already recorded. Replays are acknowledged upstream.
var ErrDuplicateSubmission = errors.New("duplicate intake submission")

// CreateLead inserts a lead from the intake pipeline. submissionID may be
// empty for leads entered by hand.
func (r *SQLiteRepository) CreateLead(ctx context.Context, l core.Lead, submissionID string) (core.Lead, error) {
	if err := l.Validate(); err != nil {
		return core.Lead{}, fmt.Errorf("validate lead: %w", err)
	}
	if l.PublicID == "" {
		l.PublicID = uuid.NewString()
	}

	var subID any
	if submissionID != "" {
		subID = submissionID
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO leads (public_id, submission_id, business_name, contact_name, email, phone, message, tier_interest, source, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.PublicID, subID, l.BusinessName, l.ContactName, l.Email, l.Phone, l.Message,
		string(l.TierInterest), l.Source, string(l.Status))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: leads.submission_id") {
			return core.Lead{}, ErrDuplicateSubmission
		}
		return core.Lead{}, fmt.Errorf("insert lead: %w", err)
	}
	l.ID, err = res.LastInsertId()
	if err != nil {
		return core.Lead{}, fmt.Errorf("lead id: %w", err)
	}

	slog.InfoContext(ctx, "Lead created",
		"lead_id", l.ID, "business", l.BusinessName, "source", l.Source)
	return l, nil
}

// GetLead loads one lead by internal ID.
func (r *SQLiteRepository) GetLead(ctx context.Context, id int64) (core.Lead, error) {
	var (
		l            core.Lead
		tierInterest string
		status       string
		tenantID     sql.NullInt64
		createdAt    string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, public_id, business_name, contact_name, email, phone, message, tier_interest, source, status, tenant_id, created_at
		 FROM leads WHERE id = ?`, id).
		Scan(&l.ID, &l.PublicID, &l.BusinessName, &l.ContactName, &l.Email, &l.Phone,
			&l.Message, &tierInterest, &l.Source, &status, &tenantID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Lead{}, ErrNotFound
	}
	if err != nil {
		return core.Lead{}, fmt.Errorf("select lead: %w", err)
	}
	l.TierInterest = core.ServiceTier(tierInterest)
	l.Status = core.LeadStatus(status)
	if tenantID.Valid {
		l.TenantID = &tenantID.Int64
	}
	l.CreatedAt = parseTime(createdAt)
	return l, nil
}

// ListLeads returns leads, optionally filtered to one status, newest first.
func (r *SQLiteRepository) ListLeads(ctx context.Context, status core.LeadStatus) ([]core.Lead, error) {
	query := `SELECT id, public_id, business_name, contact_name, email, phone, message, tier_interest, source, status, tenant_id, created_at
	          FROM leads ORDER BY id DESC`
	args := []any{}
	if status != "" {
		query = `SELECT id, public_id, business_name, contact_name, email, phone, message, tier_interest, source, status, tenant_id, created_at
		         FROM leads WHERE status = ? ORDER BY id DESC`
		args = append(args, string(status))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select leads: %w", err)
	}
	defer rows.Close()

	var leads []core.Lead
	for rows.Next() {
		var (
			l            core.Lead
			tierInterest string
			st           string
			tenantID     sql.NullInt64
			createdAt    string
		)
		if err := rows.Scan(&l.ID, &l.PublicID, &l.BusinessName, &l.ContactName, &l.Email, &l.Phone,
			&l.Message, &tierInterest, &l.Source, &st, &tenantID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		l.TierInterest = core.ServiceTier(tierInterest)
		l.Status = core.LeadStatus(st)
		if tenantID.Valid {
			l.TenantID = &tenantID.Int64
		}
		l.CreatedAt = parseTime(createdAt)
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// UpdateLeadStatus persists a lead transition made by the domain layer.
func (r *SQLiteRepository) UpdateLeadStatus(ctx context.Context, l core.Lead) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE leads SET status = ?, tenant_id = ? WHERE id = ?`,
		string(l.Status), l.TenantID, l.ID)
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ConvertLead creates the tenant, its default task templates, and stamps
// the lead converted, in one transaction.
func (r *SQLiteRepository) ConvertLead(ctx context.Context, l core.Lead, t core.Tenant, templates []core.TaskTemplate) (core.Tenant, error) {
	if err := t.Validate(); err != nil {
		return core.Tenant{}, fmt.Errorf("validate tenant: %w", err)
	}
	if t.PublicID == "" {
		t.PublicID = uuid.NewString()
	}

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO tenants (public_id, name, legal_name, contact_email, billing_rate_cents, tier, active)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.PublicID, t.Name, t.LegalName, t.ContactEmail, t.BillingRateCents, string(t.Tier), boolToInt(t.Active))
		if err != nil {
			return fmt.Errorf("insert tenant: %w", err)
		}
		t.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("tenant id: %w", err)
		}

		for _, tpl := range templates {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO task_templates (tenant_id, name, stage, sort_order) VALUES (?, ?, ?, ?)`,
				t.ID, tpl.Name, string(tpl.Stage), tpl.SortOrder); err != nil {
				return fmt.Errorf("insert template: %w", err)
			}
		}

		upd, err := tx.ExecContext(ctx,
			`UPDATE leads SET status = ?, tenant_id = ? WHERE id = ? AND status = ?`,
			string(core.LeadConverted), t.ID, l.ID, string(core.LeadQualified))
		if err != nil {
			return fmt.Errorf("update lead: %w", err)
		}
		n, _ := upd.RowsAffected()
		if n == 0 {
			return fmt.Errorf("%w: lead %d is not qualified", core.ErrInvalidLeadStatus, l.ID)
		}
		return nil
	})
	if err != nil {
		return core.Tenant{}, err
	}

	slog.InfoContext(ctx, "Lead converted to tenant",
		"lead_id", l.ID, "tenant_id", t.ID, "name", t.Name)
	return t, nil
}
