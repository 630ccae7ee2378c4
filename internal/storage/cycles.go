package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/luke-anto/ledgerdesk/internal/core"
)

// CreateCycle opens a cycle and seeds its checklist from the templates, in
// one transaction. Returns ErrCycleExists when the month is already open.
var ErrCycleExists = errors.New("cycle already exists for this month")

func (r *SQLiteRepository) CreateCycle(ctx context.Context, c core.ServiceCycle, templates []core.TaskTemplate) (core.ServiceCycle, error) {
	if err := c.Validate(); err != nil {
		return core.ServiceCycle{}, fmt.Errorf("validate cycle: %w", err)
	}

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO service_cycles (tenant_id, year, month, status, paused_from) VALUES (?, ?, ?, ?, ?)`,
			c.TenantID, c.Year, c.Month, string(c.Status), string(c.PausedFrom))
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return ErrCycleExists
			}
			return fmt.Errorf("insert cycle: %w", err)
		}
		c.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("cycle id: %w", err)
		}
		for _, tpl := range templates {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO cycle_tasks (cycle_id, name, stage, sort_order) VALUES (?, ?, ?, ?)`,
				c.ID, tpl.Name, string(tpl.Stage), tpl.SortOrder); err != nil {
				return fmt.Errorf("insert task: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return core.ServiceCycle{}, err
	}

	slog.InfoContext(ctx, "Service cycle opened",
		"cycle_id", c.ID, "tenant_id", c.TenantID, "year", c.Year, "month", c.Month, "tasks", len(templates))
	return c, nil
}

// GetCycle loads a cycle within the tenant scope.
func (r *SQLiteRepository) GetCycle(ctx context.Context, tenantID, cycleID int64) (core.ServiceCycle, error) {
	return r.scanCycle(r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, year, month, status, paused_from, delivered_at, created_at
		 FROM service_cycles WHERE id = ? AND tenant_id = ?`, cycleID, tenantID))
}

// GetCycleByMonth loads the tenant's cycle for a specific month.
func (r *SQLiteRepository) GetCycleByMonth(ctx context.Context, tenantID int64, year, month int) (core.ServiceCycle, error) {
	return r.scanCycle(r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, year, month, status, paused_from, delivered_at, created_at
		 FROM service_cycles WHERE tenant_id = ? AND year = ? AND month = ?`, tenantID, year, month))
}

func (r *SQLiteRepository) scanCycle(row *sql.Row) (core.ServiceCycle, error) {
	var (
		c           core.ServiceCycle
		status      string
		pausedFrom  string
		deliveredAt sql.NullString
		createdAt   string
	)
	err := row.Scan(&c.ID, &c.TenantID, &c.Year, &c.Month, &status, &pausedFrom, &deliveredAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ServiceCycle{}, ErrNotFound
	}
	if err != nil {
		return core.ServiceCycle{}, fmt.Errorf("scan cycle: %w", err)
	}
	c.Status = core.CycleStatus(status)
	c.PausedFrom = core.CycleStatus(pausedFrom)
	c.DeliveredAt = parseNullTime(deliveredAt)
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// ListCycles returns the tenant's cycles, newest month first.
func (r *SQLiteRepository) ListCycles(ctx context.Context, tenantID int64, limit int) ([]core.ServiceCycle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, year, month, status, paused_from, delivered_at, created_at
		 FROM service_cycles WHERE tenant_id = ?
		 ORDER BY year DESC, month DESC LIMIT ?`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("select cycles: %w", err)
	}
	defer rows.Close()

	var cycles []core.ServiceCycle
	for rows.Next() {
		var (
			c           core.ServiceCycle
			status      string
			pausedFrom  string
			deliveredAt sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Year, &c.Month, &status, &pausedFrom, &deliveredAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		c.Status = core.CycleStatus(status)
		c.PausedFrom = core.CycleStatus(pausedFrom)
		c.DeliveredAt = parseNullTime(deliveredAt)
		c.CreatedAt = parseTime(createdAt)
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

// UpdateCycleStatus persists a status change made by the cycle service.
func (r *SQLiteRepository) UpdateCycleStatus(ctx context.Context, tenantID int64, c core.ServiceCycle) error {
	var deliveredAt any
	if c.DeliveredAt != nil {
		deliveredAt = formatTime(*c.DeliveredAt)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE service_cycles SET status = ?, paused_from = ?, delivered_at = ?
		 WHERE id = ? AND tenant_id = ?`,
		string(c.Status), string(c.PausedFrom), deliveredAt, c.ID, tenantID)
	if err != nil {
		return fmt.Errorf("update cycle status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCycleTasks returns the checklist in display order.
func (r *SQLiteRepository) ListCycleTasks(ctx context.Context, tenantID, cycleID int64) ([]core.CycleTask, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.cycle_id, t.name, t.stage, t.done, t.completed_at, t.sort_order
		 FROM cycle_tasks t
		 JOIN service_cycles c ON c.id = t.cycle_id AND c.tenant_id = ?
		 WHERE t.cycle_id = ?
		 ORDER BY t.sort_order, t.id`, tenantID, cycleID)
	if err != nil {
		return nil, fmt.Errorf("select tasks: %w", err)
	}
	defer rows.Close()

	var tasks []core.CycleTask
	for rows.Next() {
		var (
			t           core.CycleTask
			stage       string
			done        int
			completedAt sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.CycleID, &t.Name, &stage, &done, &completedAt, &t.SortOrder); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Stage = core.CycleStatus(stage)
		t.Done = done != 0
		t.CompletedAt = parseNullTime(completedAt)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SetTaskDone toggles a checklist task, stamping or clearing completed_at.
func (r *SQLiteRepository) SetTaskDone(ctx context.Context, tenantID, taskID int64, done bool) error {
	var completedAt any
	if done {
		completedAt = formatTime(time.Now())
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE cycle_tasks SET done = ?, completed_at = ?
		 WHERE id = ? AND cycle_id IN (SELECT id FROM service_cycles WHERE tenant_id = ?)`,
		boolToInt(done), completedAt, taskID, tenantID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountOpenTasks returns open task counts for a stage and for the whole
// cycle, used to gate stage transitions.
func (r *SQLiteRepository) CountOpenTasks(ctx context.Context, tenantID, cycleID int64, stage core.CycleStatus) (stageOpen, totalOpen int, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN t.stage = ? AND t.done = 0 THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN t.done = 0 THEN 1 ELSE 0 END), 0)
		 FROM cycle_tasks t
		 JOIN service_cycles c ON c.id = t.cycle_id AND c.tenant_id = ?
		 WHERE t.cycle_id = ?`,
		string(stage), tenantID, cycleID).Scan(&stageOpen, &totalOpen)
	if err != nil {
		return 0, 0, fmt.Errorf("count open tasks: %w", err)
	}
	return stageOpen, totalOpen, nil
}

// CreateCycleReport records the delivery summary row for the sheet sync.
func (r *SQLiteRepository) CreateCycleReport(ctx context.Context, rep core.CycleReport) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO cycle_reports (cycle_id, tenant_id, year, month, total_in_cents, total_out_cents, tasks_done)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rep.CycleID, rep.TenantID, rep.Year, rep.Month, rep.TotalIn.Cents, rep.TotalOut.Cents, rep.TasksDone)
	if err != nil {
		return 0, fmt.Errorf("insert report: %w", err)
	}
	return res.LastInsertId()
}

// GetCycleReport loads one report row by ID together with the tenant name.
func (r *SQLiteRepository) GetCycleReport(ctx context.Context, id int64) (core.CycleReport, error) {
	var rep core.CycleReport
	err := r.db.QueryRowContext(ctx,
		`SELECT r.id, r.cycle_id, r.tenant_id, t.name, r.year, r.month,
		        r.total_in_cents, r.total_out_cents, r.tasks_done, r.sync_state
		 FROM cycle_reports r
		 JOIN tenants t ON t.id = r.tenant_id
		 WHERE r.id = ?`, id).
		Scan(&rep.ID, &rep.CycleID, &rep.TenantID, &rep.TenantName, &rep.Year, &rep.Month,
			&rep.TotalIn.Cents, &rep.TotalOut.Cents, &rep.TasksDone, &rep.SyncState)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CycleReport{}, ErrNotFound
	}
	if err != nil {
		return core.CycleReport{}, fmt.Errorf("select report: %w", err)
	}
	return rep, nil
}

// ListPendingReports returns unsynced reports for the catch-up pass. Rows
// in the error state are included so a failed sheet append gets retried.
func (r *SQLiteRepository) ListPendingReports(ctx context.Context, limit int) ([]core.CycleReport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.cycle_id, r.tenant_id, t.name, r.year, r.month,
		        r.total_in_cents, r.total_out_cents, r.tasks_done, r.sync_state
		 FROM cycle_reports r
		 JOIN tenants t ON t.id = r.tenant_id
		 WHERE r.sync_state IN ('pending', 'error')
		 ORDER BY r.id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending reports: %w", err)
	}
	defer rows.Close()

	var reports []core.CycleReport
	for rows.Next() {
		var rep core.CycleReport
		if err := rows.Scan(&rep.ID, &rep.CycleID, &rep.TenantID, &rep.TenantName, &rep.Year, &rep.Month,
			&rep.TotalIn.Cents, &rep.TotalOut.Cents, &rep.TasksDone, &rep.SyncState); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

// MarkReportSynced records a successful sheet append.
func (r *SQLiteRepository) MarkReportSynced(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE cycle_reports SET sync_state = 'synced', synced_at = ? WHERE id = ?`,
		formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("mark report synced: %w", err)
	}
	slog.InfoContext(ctx, "Report marked as synced", "report_id", id)
	return nil
}

// MarkReportSyncError flags a report whose sheet append failed.
func (r *SQLiteRepository) MarkReportSyncError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE cycle_reports SET sync_state = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark report sync error: %w", err)
	}
	slog.WarnContext(ctx, "Report marked with sync error", "report_id", id)
	return nil
}
