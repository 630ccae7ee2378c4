package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/luke-anto/ledgerdesk/internal/core"
	"github.com/luke-anto/ledgerdesk/internal/sheets/memory"
	"github.com/luke-anto/ledgerdesk/internal/storage"
)

type failingWriter struct{}

func (failingWriter) Append(context.Context, core.CycleReport) (string, error) {
	return "", errors.New("spreadsheet unavailable")
}

func seedReport(t *testing.T, repo *storage.SQLiteRepository) int64 {
	t.Helper()
	ctx := context.Background()

	tenant, err := repo.CreateTenant(ctx, core.Tenant{
		Name: "Alpha Books", Tier: core.TierStandard, Active: true,
	})
	if err != nil {
		t.Fatalf("CreateTenant() error = %v", err)
	}
	cycle, err := repo.CreateCycle(ctx, core.ServiceCycle{
		TenantID: tenant.ID, Year: 2026, Month: 8, Status: core.StatusCollecting,
	}, nil)
	if err != nil {
		t.Fatalf("CreateCycle() error = %v", err)
	}
	reportID, err := repo.CreateCycleReport(ctx, core.CycleReport{
		CycleID: cycle.ID, TenantID: tenant.ID, Year: 2026, Month: 8,
		TotalIn:   core.Money{Cents: 250000},
		TotalOut:  core.Money{Cents: -9800},
		TasksDone: 5,
		SyncState: "pending",
	})
	if err != nil {
		t.Fatalf("CreateCycleReport() error = %v", err)
	}
	return reportID
}

func newTestStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSyncReport(t *testing.T) {
	repo := newTestStorage(t)
	store := memory.New()
	w := NewReportWorker(repo, store, nil, 10)
	ctx := context.Background()
	reportID := seedReport(t, repo)

	if err := w.syncReport(ctx, reportID); err != nil {
		t.Fatalf("syncReport() error = %v", err)
	}

	reports := store.Reports()
	if len(reports) != 1 {
		t.Fatalf("written reports = %d, want 1", len(reports))
	}
	if reports[0].TenantName != "Alpha Books" {
		t.Errorf("TenantName = %q, want Alpha Books", reports[0].TenantName)
	}

	got, err := repo.GetCycleReport(ctx, reportID)
	if err != nil {
		t.Fatalf("GetCycleReport() error = %v", err)
	}
	if got.SyncState != "synced" {
		t.Errorf("SyncState = %q, want synced", got.SyncState)
	}

	// A second sync of the same report is a no-op.
	if err := w.syncReport(ctx, reportID); err != nil {
		t.Fatalf("syncReport() repeat error = %v", err)
	}
	if len(store.Reports()) != 1 {
		t.Errorf("written reports after repeat = %d, want 1", len(store.Reports()))
	}
}

func TestSyncReportMarksError(t *testing.T) {
	repo := newTestStorage(t)
	w := NewReportWorker(repo, failingWriter{}, nil, 10)
	ctx := context.Background()
	reportID := seedReport(t, repo)

	if err := w.syncReport(ctx, reportID); err == nil {
		t.Fatal("syncReport() error = nil, want error")
	}

	got, err := repo.GetCycleReport(ctx, reportID)
	if err != nil {
		t.Fatalf("GetCycleReport() error = %v", err)
	}
	if got.SyncState != "error" {
		t.Errorf("SyncState = %q, want error", got.SyncState)
	}
}

func TestCatchUpRetriesErroredReport(t *testing.T) {
	repo := newTestStorage(t)
	ctx := context.Background()
	reportID := seedReport(t, repo)

	// First append fails and leaves the row in the error state.
	failing := NewReportWorker(repo, failingWriter{}, nil, 10)
	if err := failing.syncReport(ctx, reportID); err == nil {
		t.Fatal("syncReport() error = nil, want error")
	}
	got, err := repo.GetCycleReport(ctx, reportID)
	if err != nil {
		t.Fatalf("GetCycleReport() error = %v", err)
	}
	if got.SyncState != "error" {
		t.Fatalf("SyncState = %q, want error", got.SyncState)
	}

	// The catch-up pass must pick the errored row back up once the
	// writer recovers.
	store := memory.New()
	recovered := NewReportWorker(repo, store, nil, 10)
	synced, err := recovered.ProcessPendingReports(ctx)
	if err != nil {
		t.Fatalf("ProcessPendingReports() error = %v", err)
	}
	if synced != 1 {
		t.Fatalf("synced = %d, want 1", synced)
	}
	got, err = repo.GetCycleReport(ctx, reportID)
	if err != nil {
		t.Fatalf("GetCycleReport() error = %v", err)
	}
	if got.SyncState != "synced" {
		t.Errorf("SyncState = %q, want synced", got.SyncState)
	}
}

func TestProcessPendingReports(t *testing.T) {
	repo := newTestStorage(t)
	store := memory.New()
	w := NewReportWorker(repo, store, nil, 10)
	ctx := context.Background()
	seedReport(t, repo)

	synced, err := w.ProcessPendingReports(ctx)
	if err != nil {
		t.Fatalf("ProcessPendingReports() error = %v", err)
	}
	if synced != 1 {
		t.Errorf("synced = %d, want 1", synced)
	}

	// Nothing pending on the next pass.
	synced, err = w.ProcessPendingReports(ctx)
	if err != nil {
		t.Fatalf("ProcessPendingReports() second pass error = %v", err)
	}
	if synced != 0 {
		t.Errorf("second pass synced = %d, want 0", synced)
	}
}

func TestSyncReportMissingRow(t *testing.T) {
	repo := newTestStorage(t)
	w := NewReportWorker(repo, memory.New(), nil, 10)

	if err := w.syncReport(context.Background(), 9999); err != nil {
		t.Errorf("syncReport(missing) error = %v, want nil", err)
	}
}
