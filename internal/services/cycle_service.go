// Package services orchestrates domain operations across storage and AMQP.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/luke-anto/ledgerdesk/internal/amqp"
	"github.com/luke-anto/ledgerdesk/internal/core"
	"github.com/luke-anto/ledgerdesk/internal/storage"
)

// CycleService drives service cycles through their stages. Leaving a stage
// requires that stage's checklist to be complete; delivery requires the
// whole checklist.
type CycleService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewCycleService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *CycleService {
	return &CycleService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// Advance moves a cycle to the next stage after checking its checklist.
func (s *CycleService) Advance(ctx context.Context, tenantID, cycleID int64, next core.CycleStatus) (core.ServiceCycle, error) {
	cycle, err := s.storage.GetCycle(ctx, tenantID, cycleID)
	if err != nil {
		return core.ServiceCycle{}, fmt.Errorf("load cycle: %w", err)
	}

	stageOpen, totalOpen, err := s.storage.CountOpenTasks(ctx, tenantID, cycleID, cycle.Status)
	if err != nil {
		return core.ServiceCycle{}, fmt.Errorf("count open tasks: %w", err)
	}
	if stageOpen > 0 {
		return core.ServiceCycle{}, fmt.Errorf("%w: %d open in stage %s", core.ErrTasksOpen, stageOpen, cycle.Status)
	}
	if next == core.StatusDelivered && totalOpen > 0 {
		return core.ServiceCycle{}, fmt.Errorf("%w: %d open across all stages", core.ErrTasksOpen, totalOpen)
	}

	if err := cycle.Advance(next); err != nil {
		return core.ServiceCycle{}, err
	}
	if err := s.storage.UpdateCycleStatus(ctx, tenantID, cycle); err != nil {
		return core.ServiceCycle{}, fmt.Errorf("update cycle: %w", err)
	}

	slog.InfoContext(ctx, "Cycle advanced",
		"tenant_id", tenantID, "cycle_id", cycleID, "status", cycle.Status)

	if cycle.Status == core.StatusDelivered {
		if err := s.recordDelivery(ctx, cycle); err != nil {
			// The cycle is delivered either way; the report catch-up
			// worker picks up what this misses.
			slog.ErrorContext(ctx, "Failed to record delivery report",
				"tenant_id", tenantID, "cycle_id", cycleID, "error", err)
		}
	}

	return cycle, nil
}

// Pause parks a cycle, remembering the stage it left.
func (s *CycleService) Pause(ctx context.Context, tenantID, cycleID int64) (core.ServiceCycle, error) {
	cycle, err := s.storage.GetCycle(ctx, tenantID, cycleID)
	if err != nil {
		return core.ServiceCycle{}, fmt.Errorf("load cycle: %w", err)
	}
	if err := cycle.Pause(); err != nil {
		return core.ServiceCycle{}, err
	}
	if err := s.storage.UpdateCycleStatus(ctx, tenantID, cycle); err != nil {
		return core.ServiceCycle{}, fmt.Errorf("update cycle: %w", err)
	}
	slog.InfoContext(ctx, "Cycle paused",
		"tenant_id", tenantID, "cycle_id", cycleID, "paused_from", cycle.PausedFrom)
	return cycle, nil
}

// Resume returns a paused cycle to the stage it was paused from.
func (s *CycleService) Resume(ctx context.Context, tenantID, cycleID int64) (core.ServiceCycle, error) {
	cycle, err := s.storage.GetCycle(ctx, tenantID, cycleID)
	if err != nil {
		return core.ServiceCycle{}, fmt.Errorf("load cycle: %w", err)
	}
	if err := cycle.Resume(); err != nil {
		return core.ServiceCycle{}, err
	}
	if err := s.storage.UpdateCycleStatus(ctx, tenantID, cycle); err != nil {
		return core.ServiceCycle{}, fmt.Errorf("update cycle: %w", err)
	}
	slog.InfoContext(ctx, "Cycle resumed",
		"tenant_id", tenantID, "cycle_id", cycleID, "status", cycle.Status)
	return cycle, nil
}

// SetTaskDone toggles one checklist item.
func (s *CycleService) SetTaskDone(ctx context.Context, tenantID, taskID int64, done bool) error {
	return s.storage.SetTaskDone(ctx, tenantID, taskID, done)
}

// recordDelivery snapshots the month's numbers into a report row and queues
// it for the spreadsheet sync. The snapshot survives later edits to the
// underlying transactions.
func (s *CycleService) recordDelivery(ctx context.Context, cycle core.ServiceCycle) error {
	overview, err := s.storage.ReadMonthOverview(ctx, cycle.TenantID, cycle.Year, cycle.Month)
	if err != nil {
		return fmt.Errorf("read month overview: %w", err)
	}
	tasks, err := s.storage.ListCycleTasks(ctx, cycle.TenantID, cycle.ID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	reportID, err := s.storage.CreateCycleReport(ctx, core.CycleReport{
		CycleID:   cycle.ID,
		TenantID:  cycle.TenantID,
		Year:      cycle.Year,
		Month:     cycle.Month,
		TotalIn:   overview.TotalIn,
		TotalOut:  overview.TotalOut,
		TasksDone: len(tasks),
		SyncState: "pending",
	})
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, report waits for catch-up",
			"report_id", reportID)
		return nil
	}
	if err := s.amqpClient.PublishReportSync(ctx, reportID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish report sync",
			"report_id", reportID, "error", err)
		// Not fatal, the catch-up pass re-queues pending reports.
	}
	return nil
}

// Close releases storage and broker connections.
func (s *CycleService) Close() error {
	var errs []error
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close cycle service: %v", errs)
	}
	return nil
}

// IsBlockedByTasks reports whether err is the open-checklist guard.
func IsBlockedByTasks(err error) bool {
	return errors.Is(err, core.ErrTasksOpen)
}
