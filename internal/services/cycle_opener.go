package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/luke-anto/ledgerdesk/internal/core"
	"github.com/luke-anto/ledgerdesk/internal/storage"
)

// CycleOpener opens the current month's service cycle for every active
// tenant that does not have one yet. It runs on a timer and is safe to run
// as often as wanted: existing cycles are skipped.
type CycleOpener struct {
	storage *storage.SQLiteRepository
}

func NewCycleOpener(storage *storage.SQLiteRepository) *CycleOpener {
	return &CycleOpener{storage: storage}
}

// OpenDueCycles opens missing cycles for the month containing now.
// Returns the number of cycles opened.
func (o *CycleOpener) OpenDueCycles(ctx context.Context, now time.Time) (int, error) {
	if o.storage == nil {
		return 0, fmt.Errorf("opener not properly initialized")
	}

	tenants, err := o.storage.ListActiveTenants(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active tenants: %w", err)
	}

	year, month := now.Year(), int(now.Month())
	opened := 0

	for _, tenant := range tenants {
		templates, err := o.storage.ListTaskTemplates(ctx, tenant.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load task templates",
				"tenant_id", tenant.ID, "error", err)
			continue
		}

		_, err = o.storage.CreateCycle(ctx, core.ServiceCycle{
			TenantID: tenant.ID,
			Year:     year,
			Month:    month,
			Status:   core.StatusCollecting,
		}, templates)
		if errors.Is(err, storage.ErrCycleExists) {
			continue
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to open cycle",
				"tenant_id", tenant.ID, "year", year, "month", month, "error", err)
			continue
		}
		opened++
	}

	slog.InfoContext(ctx, "Cycle opening pass complete",
		"year", year, "month", month,
		"tenants", len(tenants), "opened", opened)
	return opened, nil
}

// Run ticks OpenDueCycles until ctx is cancelled. The first pass runs
// immediately.
func (o *CycleOpener) Run(ctx context.Context, interval time.Duration) error {
	if _, err := o.OpenDueCycles(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Initial cycle opening failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if _, err := o.OpenDueCycles(ctx, now); err != nil {
				slog.ErrorContext(ctx, "Cycle opening failed", "error", err)
			}
		}
	}
}
