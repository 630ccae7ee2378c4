// Package export renders tenant data as CSV downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/luke-anto/ledgerdesk/internal/core"
)

// WriteTransactionsCSV writes the month's transactions with a header row.
// Amounts are decimal strings; expenses stay negative.
func WriteTransactionsCSV(w io.Writer, transactions []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "description", "category", "kind", "amount"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tx := range transactions {
		record := []string{
			fmt.Sprintf("%04d-%02d-%02d", tx.Date.Year(), tx.Date.Month(), tx.Date.Day()),
			tx.Description,
			tx.Category,
			string(tx.Kind),
			core.DecimalString(tx.Amount.Cents),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write transaction %d: %w", tx.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteInvoicesCSV writes a tenant's invoices with a header row.
func WriteInvoicesCSV(w io.Writer, invoices []core.Invoice) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"number", "issue_date", "due_date", "status", "amount"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, inv := range invoices {
		record := []string{
			inv.Number,
			fmt.Sprintf("%04d-%02d-%02d", inv.IssueDate.Year(), inv.IssueDate.Month(), inv.IssueDate.Day()),
			fmt.Sprintf("%04d-%02d-%02d", inv.DueDate.Year(), inv.DueDate.Month(), inv.DueDate.Day()),
			string(inv.Status),
			core.DecimalString(inv.Amount.Cents),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write invoice %s: %w", inv.Number, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
