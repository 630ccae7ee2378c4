package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/luke-anto/ledgerdesk/internal/core"
)

func TestWriteTransactionsCSV(t *testing.T) {
	transactions := []core.Transaction{
		{
			ID:          1,
			Date:        core.NewDate(2026, 8, 3),
			Description: "Client retainer",
			Amount:      core.Money{Cents: 250000},
			Category:    "revenue",
			Kind:        core.KindIncome,
		},
		{
			ID:          2,
			Date:        core.NewDate(2026, 8, 10),
			Description: "Software, \"pro\" tier",
			Amount:      core.Money{Cents: -4900},
			Category:    "software",
			Kind:        core.KindExpense,
		},
	}

	var buf bytes.Buffer
	if err := WriteTransactionsCSV(&buf, transactions); err != nil {
		t.Fatalf("WriteTransactionsCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2 rows", len(lines))
	}
	if lines[0] != "date,description,category,kind,amount" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "2026-08-03,Client retainer,revenue,income,2500.00" {
		t.Errorf("row 1 = %q", lines[1])
	}
	// Quotes and commas in descriptions must be escaped.
	if lines[2] != `2026-08-10,"Software, ""pro"" tier",software,expense,-49.00` {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestWriteTransactionsCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTransactionsCSV(&buf, nil); err != nil {
		t.Fatalf("WriteTransactionsCSV() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "date,description,category,kind,amount" {
		t.Errorf("empty export = %q, want header only", got)
	}
}

func TestWriteInvoicesCSV(t *testing.T) {
	invoices := []core.Invoice{
		{
			Number:    "INV-2026-0001",
			IssueDate: core.NewDate(2026, 8, 1),
			DueDate:   core.NewDate(2026, 8, 31),
			Amount:    core.Money{Cents: 150000},
			Status:    core.InvoiceSent,
		},
	}

	var buf bytes.Buffer
	if err := WriteInvoicesCSV(&buf, invoices); err != nil {
		t.Fatalf("WriteInvoicesCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header + 1 row", len(lines))
	}
	if lines[1] != "INV-2026-0001,2026-08-01,2026-08-31,sent,1500.00" {
		t.Errorf("row = %q", lines[1])
	}
}
