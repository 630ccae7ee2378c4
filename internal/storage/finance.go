package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/luke-anto/ledgerdesk/internal/core"
)

// CreateTransaction inserts a money movement for the tenant.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, fmt.Errorf("validate transaction: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (tenant_id, tx_date, description, amount_cents, category, kind, invoice_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.TenantID, tx.Date.Format(dateLayout), tx.Description, tx.Amount.Cents,
		tx.Category, string(tx.Kind), tx.InvoiceID)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id, "tenant_id", tx.TenantID, "amount_cents", tx.Amount.Cents, "category", tx.Category)
	return id, nil
}

// ListTransactions returns the tenant's live transactions for a month,
// newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, tenantID int64, year, month int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, tx_date, description, amount_cents, category, kind, invoice_id, created_at
		 FROM transactions
		 WHERE tenant_id = ? AND deleted_at IS NULL
		   AND CAST(strftime('%Y', tx_date) AS INTEGER) = ?
		   AND CAST(strftime('%m', tx_date) AS INTEGER) = ?
		 ORDER BY tx_date DESC, id DESC`, tenantID, year, month)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			tx        core.Transaction
			txDate    string
			kind      string
			invoiceID sql.NullInt64
			createdAt string
		)
		if err := rows.Scan(&tx.ID, &tx.TenantID, &txDate, &tx.Description, &tx.Amount.Cents,
			&tx.Category, &kind, &invoiceID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		d, err := time.Parse(dateLayout, txDate)
		if err != nil {
			return nil, fmt.Errorf("parse tx date %q: %w", txDate, err)
		}
		tx.Date = core.Date{Time: d}
		tx.Kind = core.TransactionKind(kind)
		if invoiceID.Valid {
			tx.InvoiceID = &invoiceID.Int64
		}
		tx.CreatedAt = parseTime(createdAt)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// SoftDeleteTransaction hides a transaction without losing the row.
func (r *SQLiteRepository) SoftDeleteTransaction(ctx context.Context, tenantID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET deleted_at = ? WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL`,
		formatTime(time.Now()), id, tenantID)
	if err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertBudget creates or replaces the monthly category budget.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("validate budget: %w", err)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (tenant_id, category, year, month, amount_cents)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, category, year, month) DO UPDATE SET amount_cents = excluded.amount_cents`,
		b.TenantID, b.Category, b.Year, b.Month, b.Amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// ListBudgets returns the tenant's budgets for a month.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, tenantID int64, year, month int) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, category, year, month, amount_cents
		 FROM budgets WHERE tenant_id = ? AND year = ? AND month = ?
		 ORDER BY category`, tenantID, year, month)
	if err != nil {
		return nil, fmt.Errorf("select budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.TenantID, &b.Category, &b.Year, &b.Month, &b.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// DeleteBudget removes a budget row within the tenant scope.
func (r *SQLiteRepository) DeleteBudget(ctx context.Context, tenantID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// NextInvoiceNumber allocates the next per-tenant invoice number for the
// year, in the form INV-YYYY-NNNN.
func (r *SQLiteRepository) NextInvoiceNumber(ctx context.Context, tenantID int64, year int) (string, error) {
	prefix := fmt.Sprintf("INV-%d-", year)
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invoices WHERE tenant_id = ? AND number LIKE ? || '%'`,
		tenantID, prefix).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("count invoices: %w", err)
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

// CreateInvoice inserts an invoice for the tenant.
func (r *SQLiteRepository) CreateInvoice(ctx context.Context, inv core.Invoice) (int64, error) {
	if err := inv.Validate(); err != nil {
		return 0, fmt.Errorf("validate invoice: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO invoices (tenant_id, number, issue_date, due_date, amount_cents, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		inv.TenantID, inv.Number, inv.IssueDate.Format(dateLayout), inv.DueDate.Format(dateLayout),
		inv.Amount.Cents, string(inv.Status))
	if err != nil {
		return 0, fmt.Errorf("insert invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("invoice id: %w", err)
	}

	slog.InfoContext(ctx, "Invoice created",
		"id", id, "tenant_id", inv.TenantID, "number", inv.Number, "amount_cents", inv.Amount.Cents)
	return id, nil
}

// GetInvoice loads an invoice within the tenant scope.
func (r *SQLiteRepository) GetInvoice(ctx context.Context, tenantID, id int64) (core.Invoice, error) {
	var (
		inv       core.Invoice
		issueDate string
		dueDate   string
		status    string
		paidAt    sql.NullString
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, number, issue_date, due_date, amount_cents, status, paid_at, created_at
		 FROM invoices WHERE id = ? AND tenant_id = ?`, id, tenantID).
		Scan(&inv.ID, &inv.TenantID, &inv.Number, &issueDate, &dueDate, &inv.Amount.Cents, &status, &paidAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invoice{}, ErrNotFound
	}
	if err != nil {
		return core.Invoice{}, fmt.Errorf("select invoice: %w", err)
	}
	if d, err := time.Parse(dateLayout, issueDate); err == nil {
		inv.IssueDate = core.Date{Time: d}
	}
	if d, err := time.Parse(dateLayout, dueDate); err == nil {
		inv.DueDate = core.Date{Time: d}
	}
	inv.Status = core.InvoiceStatus(status)
	inv.PaidAt = parseNullTime(paidAt)
	inv.CreatedAt = parseTime(createdAt)
	return inv, nil
}

// ListInvoices returns all invoices for the tenant, newest first.
func (r *SQLiteRepository) ListInvoices(ctx context.Context, tenantID int64) ([]core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, number, issue_date, due_date, amount_cents, status, paid_at, created_at
		 FROM invoices WHERE tenant_id = ? ORDER BY id DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("select invoices: %w", err)
	}
	defer rows.Close()

	var invoices []core.Invoice
	for rows.Next() {
		var (
			inv       core.Invoice
			issueDate string
			dueDate   string
			status    string
			paidAt    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&inv.ID, &inv.TenantID, &inv.Number, &issueDate, &dueDate,
			&inv.Amount.Cents, &status, &paidAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		if d, err := time.Parse(dateLayout, issueDate); err == nil {
			inv.IssueDate = core.Date{Time: d}
		}
		if d, err := time.Parse(dateLayout, dueDate); err == nil {
			inv.DueDate = core.Date{Time: d}
		}
		inv.Status = core.InvoiceStatus(status)
		inv.PaidAt = parseNullTime(paidAt)
		inv.CreatedAt = parseTime(createdAt)
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// UpdateInvoiceStatus persists a status transition made by the domain layer.
func (r *SQLiteRepository) UpdateInvoiceStatus(ctx context.Context, tenantID int64, inv core.Invoice) error {
	var paidAt any
	if inv.PaidAt != nil {
		paidAt = formatTime(*inv.PaidAt)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET status = ?, paid_at = ? WHERE id = ? AND tenant_id = ?`,
		string(inv.Status), paidAt, inv.ID, tenantID)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReadMonthOverview aggregates the tenant's month: totals, category spend,
// and budget variance.
func (r *SQLiteRepository) ReadMonthOverview(ctx context.Context, tenantID int64, year, month int) (core.MonthOverview, error) {
	overview := core.MonthOverview{TenantID: tenantID, Year: year, Month: month}

	err := r.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN kind = 'income' THEN amount_cents ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN kind = 'expense' THEN amount_cents ELSE 0 END), 0)
		 FROM transactions
		 WHERE tenant_id = ? AND deleted_at IS NULL
		   AND CAST(strftime('%Y', tx_date) AS INTEGER) = ?
		   AND CAST(strftime('%m', tx_date) AS INTEGER) = ?`,
		tenantID, year, month).Scan(&overview.TotalIn.Cents, &overview.TotalOut.Cents)
	if err != nil {
		return overview, fmt.Errorf("month totals: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents)
		 FROM transactions
		 WHERE tenant_id = ? AND deleted_at IS NULL AND kind = 'expense'
		   AND CAST(strftime('%Y', tx_date) AS INTEGER) = ?
		   AND CAST(strftime('%m', tx_date) AS INTEGER) = ?
		 GROUP BY category
		 ORDER BY SUM(amount_cents) ASC`, tenantID, year, month)
	if err != nil {
		return overview, fmt.Errorf("category sums: %w", err)
	}
	defer rows.Close()

	spend := make(map[string]int64)
	for rows.Next() {
		var (
			name  string
			cents int64
		)
		if err := rows.Scan(&name, &cents); err != nil {
			return overview, fmt.Errorf("scan category sum: %w", err)
		}
		spend[name] = cents
		overview.ByCategory = append(overview.ByCategory, core.CategoryAmount{
			Name:   name,
			Amount: core.Money{Cents: cents},
		})
	}
	if err := rows.Err(); err != nil {
		return overview, err
	}

	budgets, err := r.ListBudgets(ctx, tenantID, year, month)
	if err != nil {
		return overview, err
	}
	for _, b := range budgets {
		actual := -spend[b.Category] // spend is negative cents
		overview.Budgets = append(overview.Budgets, core.BudgetVariance{
			Category: b.Category,
			Budget:   b.Amount,
			Actual:   core.Money{Cents: actual},
			Variance: core.Money{Cents: b.Amount.Cents - actual},
		})
	}

	return overview, nil
}
