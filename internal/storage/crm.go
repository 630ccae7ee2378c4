package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/luke-anto/ledgerdesk/internal/core"
)

// CreateContact inserts a contact for the tenant.
func (r *SQLiteRepository) CreateContact(ctx context.Context, c core.Contact) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, fmt.Errorf("validate contact: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (tenant_id, name, email, phone, role_label) VALUES (?, ?, ?, ?, ?)`,
		c.TenantID, c.Name, c.Email, c.Phone, c.RoleLabel)
	if err != nil {
		return 0, fmt.Errorf("insert contact: %w", err)
	}
	return res.LastInsertId()
}

// GetContact loads a contact within the tenant scope.
func (r *SQLiteRepository) GetContact(ctx context.Context, tenantID, id int64) (core.Contact, error) {
	var (
		c         core.Contact
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, email, phone, role_label, created_at
		 FROM contacts WHERE id = ? AND tenant_id = ?`, id, tenantID).
		Scan(&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.RoleLabel, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Contact{}, ErrNotFound
	}
	if err != nil {
		return core.Contact{}, fmt.Errorf("select contact: %w", err)
	}
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// ListContacts returns the tenant's contacts in name order.
func (r *SQLiteRepository) ListContacts(ctx context.Context, tenantID int64) ([]core.Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, email, phone, role_label, created_at
		 FROM contacts WHERE tenant_id = ? ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("select contacts: %w", err)
	}
	defer rows.Close()

	var contacts []core.Contact
	for rows.Next() {
		var (
			c         core.Contact
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.RoleLabel, &createdAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		c.CreatedAt = parseTime(createdAt)
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// UpdateContact rewrites a contact within the tenant scope.
func (r *SQLiteRepository) UpdateContact(ctx context.Context, tenantID int64, c core.Contact) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate contact: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE contacts SET name = ?, email = ?, phone = ?, role_label = ? WHERE id = ? AND tenant_id = ?`,
		c.Name, c.Email, c.Phone, c.RoleLabel, c.ID, tenantID)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteContact removes a contact and its notes within the tenant scope.
func (r *SQLiteRepository) DeleteContact(ctx context.Context, tenantID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateNote appends a note to a contact, checking the tenant scope via the
// contact join.
func (r *SQLiteRepository) CreateNote(ctx context.Context, tenantID int64, n core.Note) (int64, error) {
	if err := n.Validate(); err != nil {
		return 0, fmt.Errorf("validate note: %w", err)
	}

	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contacts WHERE id = ? AND tenant_id = ?`, n.ContactID, tenantID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check contact: %w", err)
	}
	if exists == 0 {
		return 0, ErrNotFound
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notes (contact_id, author, body) VALUES (?, ?, ?)`,
		n.ContactID, n.Author, n.Body)
	if err != nil {
		return 0, fmt.Errorf("insert note: %w", err)
	}
	return res.LastInsertId()
}

// ListNotes returns a contact's notes, newest first, within the tenant scope.
func (r *SQLiteRepository) ListNotes(ctx context.Context, tenantID, contactID int64) ([]core.Note, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT n.id, n.contact_id, n.author, n.body, n.created_at
		 FROM notes n
		 JOIN contacts c ON c.id = n.contact_id AND c.tenant_id = ?
		 WHERE n.contact_id = ?
		 ORDER BY n.id DESC`, tenantID, contactID)
	if err != nil {
		return nil, fmt.Errorf("select notes: %w", err)
	}
	defer rows.Close()

	var notes []core.Note
	for rows.Next() {
		var (
			n         core.Note
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.ContactID, &n.Author, &n.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.CreatedAt = parseTime(createdAt)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
