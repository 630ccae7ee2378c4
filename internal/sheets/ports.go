package sheets

import (
	"context"

	"github.com/luke-anto/ledgerdesk/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportWriter appends one delivered-cycle report row to the practice
	// spreadsheet and returns a reference to the written row.
	ReportWriter interface {
		Append(ctx context.Context, r core.CycleReport) (rowRef string, err error)
	}
)
