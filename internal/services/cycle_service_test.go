package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/luke-anto/ledgerdesk/internal/core"
	"github.com/luke-anto/ledgerdesk/internal/storage"
)

func newTestStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedTenantWithCycle(t *testing.T, repo *storage.SQLiteRepository) (core.Tenant, core.ServiceCycle, []core.CycleTask) {
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
	}, []core.TaskTemplate{
		{Name: "Collect statements", Stage: core.StatusCollecting, SortOrder: 1},
		{Name: "Categorize entries", Stage: core.StatusProcessing, SortOrder: 1},
	})
	if err != nil {
		t.Fatalf("CreateCycle() error = %v", err)
	}

	tasks, err := repo.ListCycleTasks(ctx, tenant.ID, cycle.ID)
	if err != nil {
		t.Fatalf("ListCycleTasks() error = %v", err)
	}
	return tenant, cycle, tasks
}

func taskForStage(t *testing.T, tasks []core.CycleTask, stage core.CycleStatus) core.CycleTask {
	t.Helper()
	for _, task := range tasks {
		if task.Stage == stage {
			return task
		}
	}
	t.Fatalf("no task for stage %s", stage)
	return core.CycleTask{}
}

func TestAdvanceBlockedByOpenTasks(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewCycleService(repo, nil)
	ctx := context.Background()
	tenant, cycle, _ := seedTenantWithCycle(t, repo)

	_, err := svc.Advance(ctx, tenant.ID, cycle.ID, core.StatusProcessing)
	if !errors.Is(err, core.ErrTasksOpen) {
		t.Fatalf("Advance() error = %v, want ErrTasksOpen", err)
	}
	if !IsBlockedByTasks(err) {
		t.Error("IsBlockedByTasks() = false, want true")
	}
}

func TestAdvanceAfterStageComplete(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewCycleService(repo, nil)
	ctx := context.Background()
	tenant, cycle, tasks := seedTenantWithCycle(t, repo)

	collecting := taskForStage(t, tasks, core.StatusCollecting)
	if err := svc.SetTaskDone(ctx, tenant.ID, collecting.ID, true); err != nil {
		t.Fatalf("SetTaskDone() error = %v", err)
	}

	got, err := svc.Advance(ctx, tenant.ID, cycle.ID, core.StatusProcessing)
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if got.Status != core.StatusProcessing {
		t.Errorf("Status = %s, want processing", got.Status)
	}

	// Skipping a stage is rejected even with a clean checklist.
	if _, err := svc.Advance(ctx, tenant.ID, cycle.ID, core.StatusReporting); err == nil {
		t.Error("Advance(skip stage) error = nil, want error")
	}
}

func TestDeliverRequiresFullChecklist(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewCycleService(repo, nil)
	ctx := context.Background()
	tenant, cycle, tasks := seedTenantWithCycle(t, repo)

	// Finish collecting only, then walk to reporting; the processing task
	// stays open, blocking its own stage on the way.
	collecting := taskForStage(t, tasks, core.StatusCollecting)
	if err := svc.SetTaskDone(ctx, tenant.ID, collecting.ID, true); err != nil {
		t.Fatalf("SetTaskDone() error = %v", err)
	}
	if _, err := svc.Advance(ctx, tenant.ID, cycle.ID, core.StatusProcessing); err != nil {
		t.Fatalf("Advance(processing) error = %v", err)
	}
	if _, err := svc.Advance(ctx, tenant.ID, cycle.ID, core.StatusReconciling); !errors.Is(err, core.ErrTasksOpen) {
		t.Fatalf("Advance(reconciling) error = %v, want ErrTasksOpen", err)
	}

	processing := taskForStage(t, tasks, core.StatusProcessing)
	if err := svc.SetTaskDone(ctx, tenant.ID, processing.ID, true); err != nil {
		t.Fatalf("SetTaskDone() error = %v", err)
	}
	for _, next := range []core.CycleStatus{core.StatusReconciling, core.StatusReporting, core.StatusDelivered} {
		if _, err := svc.Advance(ctx, tenant.ID, cycle.ID, next); err != nil {
			t.Fatalf("Advance(%s) error = %v", next, err)
		}
	}

	got, err := repo.GetCycle(ctx, tenant.ID, cycle.ID)
	if err != nil {
		t.Fatalf("GetCycle() error = %v", err)
	}
	if got.Status != core.StatusDelivered {
		t.Errorf("Status = %s, want delivered", got.Status)
	}
	if got.DeliveredAt == nil {
		t.Error("DeliveredAt not stamped")
	}

	// Delivery snapshots a report row waiting for sync.
	reports, err := repo.ListPendingReports(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingReports() error = %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("pending reports = %d, want 1", len(reports))
	}
	if reports[0].CycleID != cycle.ID || reports[0].TasksDone != 2 {
		t.Errorf("report = %+v, want cycle %d with 2 tasks done", reports[0], cycle.ID)
	}
}

func TestPauseResume(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewCycleService(repo, nil)
	ctx := context.Background()
	tenant, cycle, _ := seedTenantWithCycle(t, repo)

	paused, err := svc.Pause(ctx, tenant.ID, cycle.ID)
	if err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if paused.Status != core.StatusPaused || paused.PausedFrom != core.StatusCollecting {
		t.Errorf("after pause: status %s from %s, want paused from collecting", paused.Status, paused.PausedFrom)
	}

	if _, err := svc.Pause(ctx, tenant.ID, cycle.ID); !errors.Is(err, core.ErrCycleAlreadyPaused) {
		t.Errorf("Pause(paused) error = %v, want ErrCycleAlreadyPaused", err)
	}

	resumed, err := svc.Resume(ctx, tenant.ID, cycle.ID)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if resumed.Status != core.StatusCollecting {
		t.Errorf("after resume: status %s, want collecting", resumed.Status)
	}
	if _, err := svc.Resume(ctx, tenant.ID, cycle.ID); !errors.Is(err, core.ErrCycleNotPaused) {
		t.Errorf("Resume(running) error = %v, want ErrCycleNotPaused", err)
	}
}

func TestCycleOpener(t *testing.T) {
	repo := newTestStorage(t)
	opener := NewCycleOpener(repo)
	ctx := context.Background()

	for _, name := range []string{"Alpha Books", "Beta Retail"} {
		if _, err := repo.CreateTenant(ctx, core.Tenant{Name: name, Tier: core.TierBasic, Active: true}); err != nil {
			t.Fatalf("CreateTenant(%q) error = %v", name, err)
		}
	}
	inactive, err := repo.CreateTenant(ctx, core.Tenant{Name: "Gone Corp", Tier: core.TierBasic, Active: true})
	if err != nil {
		t.Fatalf("CreateTenant(inactive) error = %v", err)
	}
	inactive.Active = false
	if err := repo.UpdateTenant(ctx, inactive); err != nil {
		t.Fatalf("UpdateTenant() error = %v", err)
	}

	now := time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)

	opened, err := opener.OpenDueCycles(ctx, now)
	if err != nil {
		t.Fatalf("OpenDueCycles() error = %v", err)
	}
	if opened != 2 {
		t.Errorf("opened = %d, want 2 (inactive tenant skipped)", opened)
	}

	// A second pass finds nothing to do.
	opened, err = opener.OpenDueCycles(ctx, now)
	if err != nil {
		t.Fatalf("OpenDueCycles() second pass error = %v", err)
	}
	if opened != 0 {
		t.Errorf("second pass opened = %d, want 0", opened)
	}
}
