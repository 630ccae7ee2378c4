// Package worker runs the queue consumers: intake submissions into leads,
// delivered-cycle reports into the practice spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/luke-anto/ledgerdesk/internal/amqp"
	"github.com/luke-anto/ledgerdesk/internal/services"
)

// IntakeWorker drains the intake queue into the leads table.
type IntakeWorker struct {
	client *amqp.Client
	intake *services.IntakeService
}

func NewIntakeWorker(client *amqp.Client, intake *services.IntakeService) *IntakeWorker {
	return &IntakeWorker{client: client, intake: intake}
}

// Run consumes until ctx is cancelled.
func (w *IntakeWorker) Run(ctx context.Context) error {
	return w.client.Consume(ctx, func(body []byte) error {
		msg, err := amqp.IntakeSubmissionMessageFromJSON(body)
		if err != nil {
			// Undecodable messages never succeed on retry.
			slog.ErrorContext(ctx, "Dropping undecodable intake message", "error", err)
			return nil
		}
		if err := w.intake.RecordSubmission(ctx, msg); err != nil {
			return fmt.Errorf("record submission %s: %w", msg.SubmissionID, err)
		}
		return nil
	})
}
