package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/luke-anto/ledgerdesk/internal/amqp"
	"github.com/luke-anto/ledgerdesk/internal/sheets"
	"github.com/luke-anto/ledgerdesk/internal/storage"
)

// ReportWorker syncs delivered-cycle reports to the practice spreadsheet.
// Reports whose publish was missed or whose append failed are picked up by
// the periodic catch-up pass over pending and errored rows.
type ReportWorker struct {
	storage   *storage.SQLiteRepository
	writer    sheets.ReportWriter
	client    *amqp.Client
	batchSize int
}

func NewReportWorker(storage *storage.SQLiteRepository, writer sheets.ReportWriter, client *amqp.Client, batchSize int) *ReportWorker {
	return &ReportWorker{
		storage:   storage,
		writer:    writer,
		client:    client,
		batchSize: batchSize,
	}
}

// Run consumes sync messages until ctx is cancelled. Messages are acked
// even when the sync fails: the outcome is recorded on the report row and
// the catch-up pass retries, so a broken sheet never spins the queue.
func (w *ReportWorker) Run(ctx context.Context) error {
	return w.client.Consume(ctx, func(body []byte) error {
		msg, err := amqp.ReportSyncMessageFromJSON(body)
		if err != nil {
			slog.ErrorContext(ctx, "Dropping undecodable report message", "error", err)
			return nil
		}
		if err := w.syncReport(ctx, msg.ReportID); err != nil {
			slog.ErrorContext(ctx, "Report sync deferred to catch-up",
				"report_id", msg.ReportID, "error", err)
		}
		return nil
	})
}

// syncReport writes one report row and records the outcome.
func (w *ReportWorker) syncReport(ctx context.Context, reportID int64) error {
	report, err := w.storage.GetCycleReport(ctx, reportID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Report vanished before sync", "report_id", reportID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load report %d: %w", reportID, err)
	}
	if report.SyncState == "synced" {
		return nil
	}

	rowRef, err := w.writer.Append(ctx, report)
	if err != nil {
		if markErr := w.storage.MarkReportSyncError(ctx, reportID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark report error",
				"report_id", reportID, "error", markErr)
		}
		return fmt.Errorf("append report %d: %w", reportID, err)
	}

	if err := w.storage.MarkReportSynced(ctx, reportID); err != nil {
		return fmt.Errorf("mark report synced: %w", err)
	}
	slog.InfoContext(ctx, "Report synced",
		"report_id", reportID, "tenant", report.TenantName, "row", rowRef)
	return nil
}

// ProcessPendingReports syncs up to batchSize reports that are still
// pending, regardless of whether their publish ever arrived. Returns the
// number synced.
func (w *ReportWorker) ProcessPendingReports(ctx context.Context) (int, error) {
	reports, err := w.storage.ListPendingReports(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending reports: %w", err)
	}

	synced := 0
	for _, report := range reports {
		if err := w.syncReport(ctx, report.ID); err != nil {
			slog.ErrorContext(ctx, "Catch-up sync failed",
				"report_id", report.ID, "error", err)
			continue
		}
		synced++
	}
	if len(reports) > 0 {
		slog.InfoContext(ctx, "Catch-up pass complete",
			"pending", len(reports), "synced", synced)
	}
	return synced, nil
}

// RunCatchUp ticks ProcessPendingReports until ctx is cancelled. The first
// pass runs immediately so a restart clears the backlog right away.
func (w *ReportWorker) RunCatchUp(ctx context.Context, interval time.Duration) error {
	if _, err := w.ProcessPendingReports(ctx); err != nil {
		slog.ErrorContext(ctx, "Initial catch-up failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessPendingReports(ctx); err != nil {
				slog.ErrorContext(ctx, "Catch-up failed", "error", err)
			}
		}
	}
}
